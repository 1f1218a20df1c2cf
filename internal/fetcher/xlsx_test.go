package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string, order ...string) string {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range order {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range sheets[name] {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "feed.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	t.Parallel()

	path := createTestXLSX(t, map[string][][]string{
		"Master": {
			{"管理用案件名", "運用タイプ"},
			{"Demo", "成果"},
		},
		"Baseline": {
			{"title row"},
			{"商材", "指標"},
			{"Demo", "CPA"},
		},
	}, "Master", "Baseline")

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"管理用案件名", "運用タイプ"}, {"Demo", "成果"}}, rows)

	sheet, err := ReadXLSXSheet(path, XLSXOptions{SheetName: "Baseline", SkipRows: 1})
	require.NoError(t, err)
	require.Equal(t, 1, sheet.Len())
	assert.Equal(t, "CPA", sheet.Rows[0]["指標"])

	sheet, err = ReadXLSXSheet(path, XLSXOptions{SheetIndex: 1, SkipRows: 1})
	require.NoError(t, err)
	assert.Equal(t, "Demo", sheet.Rows[0]["商材"])
}

func TestReadXLSX_Errors(t *testing.T) {
	t.Parallel()

	path := createTestXLSX(t, map[string][][]string{"Only": {{"a"}}}, "Only")

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	assert.ErrorContains(t, err, "not found")

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	assert.ErrorContains(t, err, "out of range")

	_, err = ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	assert.Error(t, err)
}
