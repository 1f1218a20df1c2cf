package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/adperf/internal/kpi"
	"github.com/sells-group/adperf/internal/model"
)

func sampleRows() []kpi.DailyRow {
	return []kpi.DailyRow{
		{
			Date:     model.Day(2024, 1, 1),
			Campaign: "Demo",
			Bundle: kpi.Bundle{
				Cost: 5000, Revenue: 20000, Profit: 15000,
				Impressions: kpi.Measured(1000), Clicks: 20, Conversions: 2,
				CTR: kpi.Measured(2), CPM: kpi.Measured(5000), CPC: 250, CPA: 2500, ROAS: 400,
				VideoViews3s: kpi.Measured(400), CostPerVideoView3s: kpi.Measured(12.5),
			},
		},
		{
			Date:     model.Day(2024, 1, 2),
			Campaign: "Demo",
			Bundle:   kpi.Bundle{Cost: 100, CTR: kpi.Unavailable(), CPM: kpi.Unavailable()},
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{" XLSX ", FormatXLSX, false},
		{"pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFormatForPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatXLSX, FormatForPath("out/daily.XLSX"))
	assert.Equal(t, FormatCSV, FormatForPath("daily.csv"))
	assert.Equal(t, FormatCSV, FormatForPath("daily"))
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Headers(), records[0])

	row := make(map[string]string)
	for i, h := range records[0] {
		row[h] = records[1][i]
	}
	assert.Equal(t, "2024-01-01", row["date"])
	assert.Equal(t, "Demo", row["campaign"])
	assert.Equal(t, "5000", row["cost"])
	assert.Equal(t, "2", row["ctr"])
	assert.Equal(t, "400", row["roas"])
	assert.Equal(t, "400", row["video_views_3s"])
	assert.Equal(t, "12.5", row["cost_per_video_view_3s"])

	second := make(map[string]string)
	for i, h := range records[0] {
		second[h] = records[2][i]
	}
	assert.Empty(t, second["ctr"], "unavailable metrics are blank")
	assert.Empty(t, second["impressions"])
	assert.Empty(t, second["video_views_3s"])
	assert.Equal(t, "0", second["cpa"])
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "daily.xlsx")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Write(f, FormatXLSX, sampleRows()))
	require.NoError(t, f.Close())

	book, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, book.Sheets, 1)
	sheet := book.Sheets[0]
	assert.Equal(t, "daily", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "date", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "2024-01-01", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "Demo", sheet.Rows[1].Cells[1].String())

	cost, err := sheet.Rows[1].Cells[2].Float()
	require.NoError(t, err)
	assert.InDelta(t, 5000, cost, 1e-9)
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.Error(t, Write(&buf, Format("pdf"), nil))
	require.NoError(t, Write(&buf, "", nil))
	assert.Contains(t, buf.String(), "date,campaign,cost")
}
