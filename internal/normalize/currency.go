package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/currency"
)

var (
	codeNearAmountRe = regexp.MustCompile(`([A-Z]{3})\s?\d[\d,.]*|\d[\d,.]*\s?([A-Z]{3})`)
	anyCodeRe        = regexp.MustCompile(`\b[A-Z]{3}\b`)
)

// ISO codes that double as ordinary shouting-case English words. Accepted
// only when adjacent to an amount, never from the bare-code scan.
var ambiguousCodes = map[string]bool{
	"ALL": true,
	"TRY": true,
	"TOP": true,
	"CUP": true,
	"MAD": true,
	"PEN": true,
	"GEL": true,
	"BOB": true,
}

var symbolCurrencies = []struct {
	token string
	code  string
}{
	{"€", "EUR"},
	{"£", "GBP"},
	{"₹", "INR"},
	{"¥", "JPY"},
	{"$", "USD"},
}

var wordCurrencies = []struct {
	word string
	code string
}{
	{"euro", "EUR"},
	{"pound", "GBP"},
	{"sterling", "GBP"},
	{"rupee", "INR"},
	{"yen", "JPY"},
	{"dollar", "USD"},
}

// validCode reports whether code is a known ISO 4217 unit.
func validCode(code string) bool {
	_, err := currency.ParseISO(code)
	return err == nil
}

// detectCurrency scans text for a currency cue: an ISO code adjacent to an
// amount first, then any unambiguous ISO code, then symbols and currency
// words. Empty when nothing matches.
func detectCurrency(text string) string {
	for _, m := range codeNearAmountRe.FindAllStringSubmatch(text, -1) {
		code := m[1]
		if code == "" {
			code = m[2]
		}
		if validCode(code) {
			return code
		}
	}
	for _, code := range anyCodeRe.FindAllString(text, -1) {
		if validCode(code) && !ambiguousCodes[code] {
			return code
		}
	}
	for _, sc := range symbolCurrencies {
		if strings.Contains(text, sc.token) {
			return sc.code
		}
	}
	lower := strings.ToLower(text)
	for _, wc := range wordCurrencies {
		if strings.Contains(lower, wc.word) {
			return wc.code
		}
	}
	return ""
}

// currencyField resolves the record currency: structured value when it is a
// valid ISO code or recognizable cue, then detection over raw text, then the
// configured default.
func (n *Normalizer) currencyField(data map[string]any, rawText string) string {
	if s := n.cleanString(aliasValue(data, fieldAliases["currency"])); s != "" {
		upper := strings.ToUpper(strings.TrimSpace(s))
		if len(upper) == 3 && validCode(upper) {
			return upper
		}
		if code := detectCurrency(s); code != "" {
			return code
		}
	}
	if code := detectCurrency(rawText); code != "" {
		return code
	}
	return n.opts.DefaultCurrency
}
