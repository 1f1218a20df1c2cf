package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adperf/internal/model"
)

func TestToRawRows(t *testing.T) {
	t.Parallel()

	header := []string{"\ufeffdate_jst", " cost ", "", "cost", "cv"}
	rows := [][]string{
		{"2024-01-01", "5000", "ignored", "dup", "2"},
		{"2024-01-02", "100"},
		{"", "  ", ""},
		{"2024-01-03", "1", "x", "y", "0", "extra"},
	}

	got := ToRawRows(header, rows)
	require.Len(t, got, 3)
	assert.Equal(t, model.RawRow{"date_jst": "2024-01-01", "cost": "5000", "cv": "2"}, got[0])
	assert.Equal(t, model.RawRow{"date_jst": "2024-01-02", "cost": "100"}, got[1])
	_, ok := got[1]["cv"]
	assert.False(t, ok, "short rows leave trailing columns absent")
	assert.Equal(t, "0", got[2]["cv"])
}

func TestNewSheet(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Sheet{}, NewSheet(nil))

	s := NewSheet([][]string{{"a", "b"}, {"1", "2"}})
	assert.Equal(t, []string{"a", "b"}, s.Header)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "2", s.Rows[0]["b"])

	headerOnly := NewSheet([][]string{{"a"}})
	assert.Equal(t, 0, headerOnly.Len())
}
