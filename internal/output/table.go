package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

// TableFormatter renders outcomes as an ASCII (or Markdown) table.
type TableFormatter struct {
	Markdown bool
}

// FormatOutcomes renders one row per outcome with an acceptance summary footer.
func (f *TableFormatter) FormatOutcomes(outcomes []*core.SubmissionOutcome) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Submission", "Type", "Group", "Kind", "Document", "Wait", "Detail"})

	accepted, total := 0, 0
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		total++
		if o.Succeeded() {
			accepted++
		}
		t.AppendRow(table.Row{
			shortID(o.Provenance.SubmissionID),
			string(o.DocumentType),
			groupLabel(o.ProductGroup),
			string(o.Kind),
			o.DocumentID,
			formatWait(o.Provenance.GateWait),
			detail(o),
		})
	}

	if total > 0 {
		t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d/%d accepted", accepted, total), "", "", ""})
	}

	if f.Markdown {
		return t.RenderMarkdown(), nil
	}
	return t.Render(), nil
}

// FormatCatalog renders the product group codes and document types.
func FormatCatalog(markdown bool) string {
	groups := table.NewWriter()
	groups.SetStyle(table.StyleRounded)
	groups.AppendHeader(table.Row{"Product group", "Code"})
	for _, group := range core.ProductGroups {
		code, _ := group.Code()
		groups.AppendRow(table.Row{string(group), code})
	}

	types := table.NewWriter()
	types.SetStyle(table.StyleRounded)
	types.AppendHeader(table.Row{"Document type"})
	for _, docType := range core.DocumentTypes {
		types.AppendRow(table.Row{string(docType)})
	}

	if markdown {
		return groups.RenderMarkdown() + "\n\n" + types.RenderMarkdown()
	}
	return groups.Render() + "\n" + types.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func groupLabel(group *core.ProductGroup) string {
	if group == nil {
		return "-"
	}
	if code, ok := group.Code(); ok {
		return fmt.Sprintf("%s (%d)", *group, code)
	}
	return string(*group)
}

func formatWait(wait time.Duration) string {
	if wait <= 0 {
		return "-"
	}
	return wait.Round(time.Millisecond).String()
}

func detail(o *core.SubmissionOutcome) string {
	if o.Rejection != nil {
		parts := []string{o.Rejection.Code}
		if o.Rejection.ErrorMessage != "" {
			parts = append(parts, o.Rejection.ErrorMessage)
		}
		if o.Rejection.Description != "" {
			parts = append(parts, o.Rejection.Description)
		}
		return strings.Join(parts, ": ")
	}
	return o.Message
}
