package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamCSV(t *testing.T) {
	t.Parallel()

	input := "a,b\n1,2\n3\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}, {"3"}}, rows)
}

func TestStreamCSV_Options(t *testing.T) {
	t.Parallel()

	input := "# exported\na; b\n 1 ;2\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		Delimiter: ';',
		Comment:   '#',
		TrimSpace: true,
	})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, rows)
}

func TestStreamCSV_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a\n1\n"), CSVOptions{})
	for range rowCh {
	}
	assert.Error(t, <-errCh)
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	input := "date_jst,folder_name,parameter,cv\n" +
		"2024-01-01,【運用】Demo,utm_creative=abc,2\n" +
		"\"2024-01-02\",\"a, b\",utm_creative=def,0\n"

	sheet, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, sheet.Len())
	assert.Equal(t, "【運用】Demo", sheet.Rows[0]["folder_name"])
	assert.Equal(t, "a, b", sheet.Rows[1]["folder_name"])
	assert.Equal(t, []string{"date_jst", "folder_name", "parameter", "cv"}, sheet.Header)
}

func TestReadCSV_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ReadCSV(context.Background(), strings.NewReader("a,b\n\"unterminated,1\n"), CSVOptions{})
	assert.Error(t, err)
}

func TestReadCSV_Empty(t *testing.T) {
	t.Parallel()

	sheet, err := ReadCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, sheet.Len())
}

func TestReadCSV_SkipRows(t *testing.T) {
	t.Parallel()

	input := "Baseline export\n商材,指標\nDemo,CPA\n"
	sheet, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{SkipRows: 1})
	require.NoError(t, err)
	require.Equal(t, 1, sheet.Len())
	assert.Equal(t, "CPA", sheet.Rows[0]["指標"])

	sheet, err = ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{SkipRows: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, sheet.Len())
}
