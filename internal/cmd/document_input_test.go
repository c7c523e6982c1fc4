package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

const bareDocumentJSON = `{
	"docId": "doc-1",
	"docType": "LP_INTRODUCE_GOODS",
	"ownerInn": "7700000000",
	"participantInn": "7700000000",
	"producerInn": "7700000001",
	"productionDate": "2026-01-15"
}`

const wrappedDocumentYAML = `
document:
  docId: doc-2
  docType: LP_INTRODUCE_GOODS
  ownerInn: "7700000000"
  participantInn: "7700000000"
  producerInn: "7700000001"
  productionDate: 2026-01-15
  products:
    - tnvedCode: "6401"
      ownerInn: "7700000000"
      producerInn: "7700000001"
product_group: shoes
signature: c2lnbmF0dXJl
`

func TestDecodeSubmissionInputBareJSON(t *testing.T) {
	input, err := decodeSubmissionInput([]byte(bareDocumentJSON))
	require.NoError(t, err)

	assert.Equal(t, "doc-1", input.Document.DocID)
	assert.Equal(t, core.DocumentTypeIntroduceGoods, input.Document.DocType)
	require.NotNil(t, input.Document.ProductionDate)
	assert.Equal(t, "2026-01-15", input.Document.ProductionDate.Format(core.DateLayout))
	assert.Empty(t, input.Signature)
	assert.Empty(t, input.ProductGroup)
}

func TestDecodeSubmissionInputWrappedYAML(t *testing.T) {
	input, err := decodeSubmissionInput([]byte(wrappedDocumentYAML))
	require.NoError(t, err)

	assert.Equal(t, "doc-2", input.Document.DocID)
	assert.Equal(t, "shoes", input.ProductGroup)
	assert.Equal(t, "c2lnbmF0dXJl", input.Signature)
	require.Len(t, input.Document.Products, 1)
	assert.Equal(t, "6401", input.Document.Products[0].TnvedCode)

	req, err := input.Request()
	require.NoError(t, err)
	require.NotNil(t, req.Group)
	assert.Equal(t, core.ProductGroupShoes, *req.Group)
}

func TestDecodeSubmissionInputErrors(t *testing.T) {
	_, err := decodeSubmissionInput([]byte("- just\n- a list\n"))
	assert.Error(t, err)

	_, err = decodeSubmissionInput([]byte("{not yaml"))
	assert.Error(t, err)

	_, err = decodeSubmissionInput([]byte(`{"docId": "x", "productionDate": "yesterday"}`))
	assert.Error(t, err)
}

func TestLoadDocumentsFromDirectoryAndStdin(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(wrappedDocumentYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(bareDocumentJSON), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	sources, err := loadDocuments([]string{dir, "-"}, strings.NewReader(bareDocumentJSON))
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, filepath.Join(dir, "a.json"), sources[0].Name)
	assert.Equal(t, filepath.Join(dir, "b.yaml"), sources[1].Name)
	assert.Equal(t, "stdin", sources[2].Name)
	assert.Equal(t, "doc-2", sources[1].Input.Document.DocID)
}

func TestLoadDocumentsEmptyDirectory(t *testing.T) {
	_, err := loadDocuments([]string{t.TempDir()}, nil)
	assert.Error(t, err)

	_, err = loadDocuments([]string{filepath.Join(t.TempDir(), "missing.json")}, nil)
	assert.Error(t, err)
}

func TestSubmissionOverridesApply(t *testing.T) {
	input := core.SubmissionInput{ProductGroup: "shoes", Signature: "file-sig"}

	unchanged := submissionOverrides{}.apply(input)
	assert.Equal(t, input, unchanged)

	changed := submissionOverrides{Type: "LP_SHIP_GOODS", Group: "milk", Signature: "flag-sig"}.apply(input)
	assert.Equal(t, "LP_SHIP_GOODS", changed.Type)
	assert.Equal(t, "milk", changed.ProductGroup)
	assert.Equal(t, "flag-sig", changed.Signature)
}
