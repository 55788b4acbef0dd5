package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRegistry_UnsupportedType(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extract(context.Background(), []byte("x"), "csv")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestRegistry_NormalizesFileType(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Supported(".PDF"))
	assert.True(t, r.Supported("xlsx"))
	assert.True(t, r.Supported(" docx"))
	assert.False(t, r.Supported("txt"))
}

func TestPDFExtractor_RejectsNonPDF(t *testing.T) {
	e := NewPDFExtractor()
	_, err := e.Extract(context.Background(), []byte("this is not a pdf"))
	require.Error(t, err)
}

func TestXLSXExtractor_RoundTrip(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "item"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "total"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "bolts"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 125.50))

	_, err := f.NewSheet("Pricing")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Pricing", "A1", "net 30"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	result, extractErr := NewXLSXExtractor().Extract(context.Background(), buf.Bytes())
	require.NoError(t, extractErr)

	assert.Contains(t, result.Text, "item | total")
	assert.Contains(t, result.Text, "bolts | 125.5")
	assert.Contains(t, result.Text, "Sheet: Pricing")

	require.Len(t, result.Boundaries, 2)
	assert.Equal(t, "sheet Sheet1", result.Boundaries[0].Label)
	assert.Equal(t, "sheet Pricing", result.Boundaries[1].Label)
	assert.Equal(t, 0, result.Boundaries[0].StartWord)
	assert.Equal(t, result.Boundaries[0].EndWord, result.Boundaries[1].StartWord,
		"boundaries tile the text without gaps")
}

func TestFlattenDocxXML(t *testing.T) {
	raw := `<w:p><w:r><w:t>Vendor quote</w:t></w:r></w:p>` +
		`<w:tbl><w:tr><w:tc><w:t>bolt</w:t></w:tc><w:tc><w:t>10</w:t></w:tc></w:tr></w:tbl>`
	flat := flattenDocxXML(raw)
	assert.Contains(t, flat, "Vendor quote\n")
	assert.Contains(t, flat, "bolt | 10 | ")
}

func TestResultFromSegments_SkipsEmptyAndComputesOffsets(t *testing.T) {
	result, err := resultFromSegments(
		[]string{"page 1", "page 2", "page 3"},
		[]string{"one two three", "   ", "four five"},
	)
	require.NoError(t, err)
	require.Len(t, result.Boundaries, 2)
	assert.Equal(t, "page 1", result.Boundaries[0].Label)
	assert.Equal(t, 3, result.Boundaries[0].EndWord)
	assert.Equal(t, "page 3", result.Boundaries[1].Label)
	assert.Equal(t, 3, result.Boundaries[1].StartWord)
	assert.Equal(t, 5, result.Boundaries[1].EndWord)
}

func TestResultFromSegments_AllEmpty(t *testing.T) {
	_, err := resultFromSegments([]string{"page 1"}, []string{"  "})
	assert.ErrorIs(t, err, ErrNoTextContent)
}
