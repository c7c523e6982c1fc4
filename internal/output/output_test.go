package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

func sampleOutcomes() []*core.SubmissionOutcome {
	shoes := core.ProductGroupShoes
	return []*core.SubmissionOutcome{
		{
			Kind:         core.KindSuccess,
			DocumentID:   "doc-123",
			DocumentType: core.DocumentTypeIntroduceGoods,
			ProductGroup: &shoes,
			Provenance: core.Provenance{
				SubmissionID: "0b4c1f0e-aaaa-bbbb-cccc-123456789abc",
				GateWait:     1500 * time.Millisecond,
			},
		},
		{
			Kind:         core.KindAPIRejected,
			DocumentType: core.DocumentTypeIntroduceGoods,
			Rejection: &core.Rejection{
				Code:         "400",
				ErrorMessage: "bad signature",
			},
			Provenance: core.Provenance{SubmissionID: "short"},
		},
		nil,
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatTable).FormatOutcomes(sampleOutcomes())
	require.NoError(t, err)

	assert.Contains(t, rendered, "0b4c1f0e")
	assert.NotContains(t, rendered, "0b4c1f0e-aaaa")
	assert.Contains(t, rendered, "SHOES (2)")
	assert.Contains(t, rendered, "doc-123")
	assert.Contains(t, rendered, "1.5s")
	assert.Contains(t, rendered, "400: bad signature")
	assert.Contains(t, strings.ToLower(rendered), "1/2 accepted")
}

func TestMarkdownFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatMarkdown).FormatOutcomes(sampleOutcomes())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(strings.TrimSpace(rendered), "|"))
	assert.Contains(t, rendered, "api_rejected")
}

func TestJSONFormatterSkipsNil(t *testing.T) {
	rendered, err := NewFormatter(FormatJSON).FormatOutcomes(sampleOutcomes())
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "success", decoded[0]["kind"])
	assert.Equal(t, "SHOES", decoded[0]["product_group"])
	_, hasGroup := decoded[1]["product_group"]
	assert.False(t, hasGroup)
}

func TestFormatJournal(t *testing.T) {
	entries := []core.SubmissionOutcome{
		{Kind: core.KindNetworkTimeout, DocumentType: core.DocumentTypeIntroduceGoods, Message: "deadline exceeded"},
	}

	rendered, err := FormatJournal(FormatTable, entries)
	require.NoError(t, err)
	assert.Contains(t, rendered, "network_timeout")
	assert.Contains(t, rendered, "deadline exceeded")
	assert.Contains(t, strings.ToLower(rendered), "0/1 accepted")
}

func TestFormatCatalog(t *testing.T) {
	rendered := FormatCatalog(false)
	assert.Contains(t, rendered, "CLOTHES")
	assert.Contains(t, rendered, "WHEELCHAIRS")
	assert.Contains(t, rendered, "LP_INTRODUCE_GOODS")

	assert.Contains(t, FormatCatalog(true), "| CLOTHES")
}
