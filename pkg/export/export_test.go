package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	table := Table{Columns: []string{"date", "amount", "category"}}
	table.Append("2026-01-02", "120.50", "ads")
	table.Append("2026-01-03", "80")

	out, err := NewCSVExporter().Render(table)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,amount,category", lines[0])
	assert.Equal(t, "2026-01-02,120.50,ads", lines[1])
	assert.Equal(t, "2026-01-03,80,", lines[2])
}

func TestCSVExporterRejectsEmptyColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	table := Table{Title: "Invoices", Columns: []string{"date", "amount"}}
	table.Append("2026-01-02", "99.95")

	out, err := NewPDFExporter().Render(table)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}
