package normalize

import (
	"strconv"
	"strings"
)

// toFloat coerces a conventionally numeric value from string or number form.
// Strings are stripped of currency symbols, codes, thousands separators and
// whitespace first. Anything unparseable coerces to zero.
func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		return parseAmount(x)
	default:
		return 0
	}
}

func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = decimalComma(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == ',', r == ' ', r == '\'', r == '_':
			// thousands separators
		case r == '$' || r == '€' || r == '£' || r == '¥' || r == '₹':
			// currency symbols
		case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
			// currency codes and stray words
		default:
			// skip anything else
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

// decimalComma rewrites a European decimal comma ("1 234,50", "1.234,50")
// to a dot, dropping earlier dots as thousands separators. A comma counts
// as decimal only when it is the last one, follows any dot, and exactly
// two digits trail it before the end of the number.
func decimalComma(s string) string {
	i := strings.LastIndexByte(s, ',')
	if i < 0 || i < strings.LastIndexByte(s, '.') {
		return s
	}
	tail := s[i+1:]
	j := 0
	for j < len(tail) && tail[j] >= '0' && tail[j] <= '9' {
		j++
	}
	if j != 2 || strings.ContainsAny(tail[j:], "0123456789") {
		return s
	}
	return strings.ReplaceAll(s[:i], ".", "") + "." + tail
}
