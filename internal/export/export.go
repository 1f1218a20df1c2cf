// Package export writes the daily KPI table to spreadsheet formats.
package export

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/adperf/internal/kpi"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

// FormatForPath infers the format from a file extension, defaulting to CSV.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// cell is one exported value. Unavailable metrics are left blank.
type cell struct {
	text    string
	number  float64
	numeric bool
}

type column struct {
	header string
	value  func(kpi.DailyRow) cell
}

func num(v float64) cell { return cell{number: v, numeric: true} }

func opt(v kpi.Value) cell {
	if !v.Available {
		return cell{}
	}
	return num(v.Amount)
}

var dailyColumns = []column{
	{"date", func(r kpi.DailyRow) cell { return cell{text: r.Date.Format("2006-01-02")} }},
	{"campaign", func(r kpi.DailyRow) cell { return cell{text: r.Campaign} }},
	{"cost", func(r kpi.DailyRow) cell { return num(r.Bundle.Cost) }},
	{"revenue", func(r kpi.DailyRow) cell { return num(r.Bundle.Revenue) }},
	{"profit", func(r kpi.DailyRow) cell { return num(r.Bundle.Profit) }},
	{"impressions", func(r kpi.DailyRow) cell { return opt(r.Bundle.Impressions) }},
	{"clicks", func(r kpi.DailyRow) cell { return num(float64(r.Bundle.Clicks)) }},
	{"conversions", func(r kpi.DailyRow) cell { return num(float64(r.Bundle.Conversions)) }},
	{"ctr", func(r kpi.DailyRow) cell { return opt(r.Bundle.CTR) }},
	{"cpm", func(r kpi.DailyRow) cell { return opt(r.Bundle.CPM) }},
	{"cpc", func(r kpi.DailyRow) cell { return num(r.Bundle.CPC) }},
	{"mcvr", func(r kpi.DailyRow) cell { return num(r.Bundle.MCVR) }},
	{"cvr", func(r kpi.DailyRow) cell { return num(r.Bundle.CVR) }},
	{"cpa", func(r kpi.DailyRow) cell { return num(r.Bundle.CPA) }},
	{"mcpa", func(r kpi.DailyRow) cell { return num(r.Bundle.MCPA) }},
	{"roas", func(r kpi.DailyRow) cell { return num(r.Bundle.ROAS) }},
	{"profit_margin", func(r kpi.DailyRow) cell { return num(r.Bundle.ProfitMargin) }},
	{"video_views_3s", func(r kpi.DailyRow) cell { return opt(r.Bundle.VideoViews3s) }},
	{"cost_per_video_view_3s", func(r kpi.DailyRow) cell { return opt(r.Bundle.CostPerVideoView3s) }},
}

// Headers returns the exported column names.
func Headers() []string {
	out := make([]string, len(dailyColumns))
	for i, c := range dailyColumns {
		out[i] = c.header
	}
	return out
}

func (c cell) String() string {
	if c.numeric {
		return strconv.FormatFloat(c.number, 'f', -1, 64)
	}
	return c.text
}

// Write encodes rows to w in the given format.
func Write(w io.Writer, format Format, rows []kpi.DailyRow) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, rows)
	case FormatCSV, "":
		return WriteCSV(w, rows)
	}
	return eris.Errorf("export: unknown format %q", format)
}

// WriteCSV writes rows as CSV with a header line.
func WriteCSV(w io.Writer, rows []kpi.DailyRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers()); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	record := make([]string, len(dailyColumns))
	for _, r := range rows {
		for i, c := range dailyColumns {
			record[i] = c.value(r).String()
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes rows to a single "daily" sheet.
func WriteXLSX(w io.Writer, rows []kpi.DailyRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("daily")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Headers() {
		header.AddCell().SetString(h)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		for _, c := range dailyColumns {
			v := c.value(r)
			if v.numeric {
				row.AddCell().SetFloat(v.number)
			} else {
				row.AddCell().SetString(v.text)
			}
		}
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}
