package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/adperf/internal/model"
)

var numberCleaner = strings.NewReplacer(",", "", " ", "", "¥", "", "￥", "", "$", "", "%", "")

// ParseNumber parses a locale-formatted number. Malformed input yields 0.
func ParseNumber(s string) float64 {
	s = numberCleaner.Replace(strings.TrimSpace(norm.NFKC.String(s)))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseAmount parses a non-negative monetary amount.
func ParseAmount(s string) float64 {
	return math.Max(0, ParseNumber(s))
}

// ParseCount parses a non-negative integer counter, rounding fractional input.
func ParseCount(s string) int64 {
	v := ParseNumber(s)
	if v <= 0 {
		return 0
	}
	return int64(math.Round(v))
}

var dateRe = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})`)

// ParseDate reads the literal calendar day from a raw date string. The
// result is midnight UTC of that day; no zone conversion is applied.
func ParseDate(s string) (time.Time, bool) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	if mo < 1 || mo > 12 || d < 1 {
		return time.Time{}, false
	}
	t := model.Day(y, time.Month(mo), d)
	if t.Day() != d {
		return time.Time{}, false // e.g. 2024-02-31
	}
	return t, true
}

// NormalizeLabel maps full-width characters to their ASCII forms (U+3000
// becomes a plain space) and trims surrounding whitespace.
func NormalizeLabel(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// Lookup returns the first present column among names. Headers are matched
// exactly first, then case-insensitively after trimming.
func Lookup(row model.RawRow, names ...string) string {
	for _, n := range names {
		if v, ok := row[n]; ok {
			return v
		}
	}
	for _, n := range names {
		want := strings.ToLower(strings.TrimSpace(n))
		match, found := "", false
		for k := range row {
			if strings.ToLower(strings.TrimSpace(k)) != want {
				continue
			}
			// Smallest key wins so that duplicate headers resolve the same way every time.
			if !found || k < match {
				match, found = k, true
			}
		}
		if found {
			return row[match]
		}
	}
	return ""
}

var (
	btCreativeRe      = regexp.MustCompile(`(?i)bt\d+(?:_\d+)+`)
	mixedCreativeRe   = regexp.MustCompile(`\d+(?:_[a-zA-Z0-9]+){2,}`)
	numericCreativeRe = regexp.MustCompile(`\d{2,}(?:_\d{1,3})+`)
	adIDRe            = regexp.MustCompile(`\d{15,}`)
	underscoreDateRe  = regexp.MustCompile(`^20\d{2}_\d{2}_\d{2}$`)
)

// ExtractCreative pulls a creative code out of a free-text ad name, such as
// bt054_004_004, 116_004_004 or a bare platform ad ID. Dates written as
// 20YY_MM_DD are not creative codes. Returns "" when nothing matches.
func ExtractCreative(adName string) string {
	if adName == "" {
		return ""
	}
	if m := btCreativeRe.FindString(adName); m != "" {
		return m
	}
	if m := mixedCreativeRe.FindString(adName); m != "" && !underscoreDateRe.MatchString(m) {
		return m
	}
	if m := numericCreativeRe.FindString(adName); m != "" && !underscoreDateRe.MatchString(m) {
		return m
	}
	return adIDRe.FindString(adName)
}
