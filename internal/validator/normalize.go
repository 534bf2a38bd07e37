package validator

import (
	"strings"
	"time"
	"unicode"
)

const canonicalDate = "2006-01-02"

// dateLayouts are tried in order after '.' and '-' separators have been
// turned into '/'. Two-digit years follow the usual pivot: 69-99 is 19xx,
// 00-68 is 20xx.
var dateLayouts = []string{
	"2/1/06",
	"2/1/2006",
	"2006/1/2",
}

// NormalizeDate returns raw as a YYYY-MM-DD date. A value already in that
// form and naming a real calendar day is returned unchanged.
func NormalizeDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if _, err := time.Parse(canonicalDate, s); err == nil {
		return s, true
	}

	s = strings.NewReplacer(".", "/", "-", "/").Replace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(canonicalDate), true
		}
	}
	return "", false
}

// UnknownOrganism replaces an empty organism cell.
const UnknownOrganism = "unknown"

// NormalizeOrganism lower-cases a species name and joins its words with
// single underscores.
func NormalizeOrganism(raw string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(raw), unicode.IsSpace), "_")
}
