package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// twoDigitYearPivot expands two-digit years: below the pivot means 2000s, at
// or above means 1900s.
const twoDigitYearPivot = 70

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	isoDateRe     = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)
	dmyDateRe     = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{2,4})$`)
	compactRe     = regexp.MustCompile(`^(\d{1,2})([A-Za-z]{3})(\d{2,4})$`)
	dayMonthRe    = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?\s+([A-Za-z]{3,9})\.?,?\s+(\d{2,4})$`)
	monthDayRe    = regexp.MustCompile(`^([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{2,4})$`)
	inTextDateRe  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}|\d{1,2}[A-Za-z]{3}\d{2,4}|\d{1,2}(?:st|nd|rd|th)?\s+[A-Za-z]{3,9}\.?,?\s+\d{2,4}|[A-Za-z]{3,9}\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{2,4}`)
	dateLabelRe   = map[string]*regexp.Regexp{
		"date": regexp.MustCompile(`(?i)(?:date|dated|issued?(?:\s+on)?)\s*[:\-]?\s*(\S[^\n]{0,24})`),
		"expiryDate": regexp.MustCompile(`(?i)(?:valid\s+(?:until|till|through|upto|up\s+to)|expiry|expires?(?:\s+on)?|validity)\s*[:\-]?\s*(\S[^\n]{0,24})`),
	}
)

// parseDate accepts the formats that show up in trade documents: ISO
// YYYY-MM-DD, day-first DD/MM/YYYY, compact DDMonYY, "DD Month YYYY" and
// "Month DD, YYYY". The zero time reports failure.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := dmyDateRe.FindStringSubmatch(s); m != nil {
		d, mo, y := atoi(m[1]), atoi(m[2]), expandYear(atoi(m[3]))
		// Disambiguate MM/DD when the day slot cannot be a month.
		if mo > 12 && d <= 12 {
			d, mo = mo, d
		}
		return makeDate(y, mo, d)
	}
	if m := compactRe.FindStringSubmatch(s); m != nil {
		mo, ok := monthsByPrefix[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}
		}
		return makeDate(expandYear(atoi(m[3])), int(mo), atoi(m[1]))
	}
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		mo, ok := monthByName(m[2])
		if !ok {
			return time.Time{}
		}
		return makeDate(expandYear(atoi(m[3])), int(mo), atoi(m[1]))
	}
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		mo, ok := monthByName(m[1])
		if !ok {
			return time.Time{}
		}
		return makeDate(expandYear(atoi(m[3])), int(mo), atoi(m[2]))
	}
	return time.Time{}
}

func monthByName(name string) (time.Month, bool) {
	if len(name) < 3 {
		return 0, false
	}
	mo, ok := monthsByPrefix[strings.ToLower(name[:3])]
	return mo, ok
}

func expandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y < twoDigitYearPivot {
		return 2000 + y
	}
	return 1900 + y
}

func makeDate(y, mo, d int) time.Time {
	if mo < 1 || mo > 12 || d < 1 || d > 31 || y < 1900 || y > 2200 {
		return time.Time{}
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// Reject rollover like 31 Feb.
	if t.Day() != d || int(t.Month()) != mo {
		return time.Time{}
	}
	return t
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// dateField resolves a date field from the structured object, then from
// labeled raw-text patterns, then from any date-shaped token in the text.
func (n *Normalizer) dateField(data map[string]any, rawText, field string) time.Time {
	if s := n.cleanString(aliasValue(data, fieldAliases[field])); s != "" {
		if t := parseDate(s); !t.IsZero() {
			return t
		}
		// Structured value may embed a time suffix; try the date token.
		if tok := inTextDateRe.FindString(s); tok != "" {
			if t := parseDate(tok); !t.IsZero() {
				return t
			}
		}
	}
	if re := dateLabelRe[field]; re != nil {
		for _, m := range re.FindAllStringSubmatch(rawText, -1) {
			if tok := inTextDateRe.FindString(m[1]); tok != "" {
				if t := parseDate(tok); !t.IsZero() {
					return t
				}
			}
		}
	}
	// Only the primary date falls back to an arbitrary date token; guessing
	// an expiry from any date in the text would fabricate lifecycle state.
	if field == "date" {
		for _, tok := range inTextDateRe.FindAllString(rawText, -1) {
			if t := parseDate(tok); !t.IsZero() {
				return t
			}
		}
	}
	return time.Time{}
}
