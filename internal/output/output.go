package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders submission outcomes.
type Formatter interface {
	FormatOutcomes(outcomes []*core.SubmissionOutcome) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &TableFormatter{Markdown: true}
	default:
		return &TableFormatter{}
	}
}

// FormatJournal renders stored journal entries using the requested format.
func FormatJournal(format Format, entries []core.SubmissionOutcome) (string, error) {
	outcomes := make([]*core.SubmissionOutcome, 0, len(entries))
	for i := range entries {
		outcomes = append(outcomes, &entries[i])
	}
	return NewFormatter(format).FormatOutcomes(outcomes)
}

// MarshalJSON renders any value as indented JSON.
func MarshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
