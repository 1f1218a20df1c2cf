package fetcher

import (
	"strings"

	"github.com/sells-group/adperf/internal/model"
)

// Sheet is a parsed table: its header and one RawRow per data row.
type Sheet struct {
	Header []string
	Rows   []model.RawRow
}

// Len returns the number of data rows.
func (s Sheet) Len() int { return len(s.Rows) }

const bom = "\ufeff"

// ToRawRows keys each row by header. Header cells are trimmed and a leading
// byte-order mark is dropped; blank header cells are skipped and the first
// of duplicate headers wins. Cells beyond a short row are left absent, and
// rows whose cells are all blank are dropped.
func ToRawRows(header []string, rows [][]string) []model.RawRow {
	keys := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		keys[i] = h
	}

	out := make([]model.RawRow, 0, len(rows))
	for _, cells := range rows {
		row := make(model.RawRow, len(keys))
		blank := true
		for i, cell := range cells {
			if i >= len(keys) || keys[i] == "" {
				continue
			}
			row[keys[i]] = cell
			if strings.TrimSpace(cell) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		out = append(out, row)
	}
	return out
}

// NewSheet builds a Sheet from a table whose first row is the header.
func NewSheet(table [][]string) Sheet {
	if len(table) == 0 {
		return Sheet{}
	}
	return Sheet{Header: table[0], Rows: ToRawRows(table[0], table[1:])}
}
