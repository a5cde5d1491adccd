package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	sheet := Sheet{
		Title:   "Final Term marksheet",
		Columns: []string{"Student", "Marks", "Grade"},
		Rows: [][]string{
			{"Asha Rai", "85", "A"},
			{"Bikash KC", "40"},
		},
	}
	data, err := NewCSVExporter().Render(sheet)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Student,Marks,Grade", lines[0])
	require.Equal(t, "Asha Rai,85,A", lines[1])
	// short rows are padded to the column count
	require.Equal(t, "Bikash KC,40,", lines[2])
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Sheet{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	sheet := Sheet{
		Title:   "Final Term marksheet",
		Columns: []string{"Student", "Marks"},
		Rows:    [][]string{{"Asha Rai", "85"}},
	}
	data, err := NewPDFExporter().Render(sheet)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "%PDF"))
}
