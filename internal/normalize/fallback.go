package normalize

import "regexp"

// Fallback ladders. Each field has its patterns tried in priority order; the
// first capture wins.

var numberRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:po|p\.o\.|purchase\s+order)\s*(?:number|no\.?|#)?\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9/\-]{2,})`),
	regexp.MustCompile(`(?i)\b(?:order|quotation|quote|inquiry|enquiry|reference|ref)\s*(?:number|no\.?|#)?\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9/\-]{2,})`),
	regexp.MustCompile(`\b([A-Z]{2,4}-\d{2,}(?:-\d+)*)\b`),
}

var counterpartyRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:supplier|vendor|customer|buyer|m/s\.?|messrs\.?)\s*[:\-]\s*([^\n]{3,60})`),
	regexp.MustCompile(`(?m)\b([A-Z][A-Za-z0-9&.,' ]{2,60}?(?:Ltd|LLC|Inc|GmbH|Corp|Co|Limited|Industries|Supplies|Enterprises|Trading)\.?)(?:$|[\s,])`),
}

var addressRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:address|addr)\s*[:\-]\s*([^\n]{5,120})`),
	regexp.MustCompile(`(?im)^\s*(\d{1,5}\s+[A-Za-z][^\n]{3,80}(?:street|st\.?|road|rd\.?|avenue|ave\.?|lane|ln\.?|blvd|drive|dr\.?)[^\n]{0,40})$`),
}

var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

var totalRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:grand\s+total|total\s+amount|net\s+total|amount\s+payable)\s*[:\-]?\s*(?:[A-Z]{3}\s*|[$€£¥₹]\s*)?([\d,]+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)\btotal\s*[:\-]?\s*(?:[A-Z]{3}\s*|[$€£¥₹]\s*)?([\d,]+(?:\.\d+)?)`),
}

func firstMatch(res []*regexp.Regexp, text string) string {
	for _, re := range res {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func fallbackNumber(text string) string       { return firstMatch(numberRes, text) }
func fallbackCounterparty(text string) string { return firstMatch(counterpartyRes, text) }
func fallbackAddress(text string) string      { return firstMatch(addressRes, text) }

func fallbackEmail(text string) string { return emailRe.FindString(text) }

func fallbackTotal(text string) string { return firstMatch(totalRes, text) }

// Table-row patterns for the secondary line-item pass, tried in order. Each
// pattern's capture layout is (name, quantity, unitPrice[, total]).
var (
	// "Widget | 5 | 180.00 | 900.00"
	rowPipeRe = regexp.MustCompile(`(?m)^\s*\|?\s*([A-Za-z][A-Za-z0-9 .\-/]*?)\s*\|\s*(\d+(?:\.\d+)?)\s*\|\s*([\d,]+(?:\.\d+)?)\s*\|\s*([\d,]+(?:\.\d+)?)\s*\|?\s*$`)
	// "Widget 5 180.00 900.00", optionally led by a row index
	rowColumnsRe = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]\s+)?([A-Za-z][A-Za-z0-9 .\-/]*?)\s+(\d+(?:\.\d+)?)\s+([\d,]+\.\d{2})\s+([\d,]+\.\d{2})\s*$`)
	// "Widget 5 x 180.00" or "Widget: 5 @ 180.00"
	rowProductRe = regexp.MustCompile(`(?im)^\s*([A-Za-z][A-Za-z0-9 .\-/]*?)\s*[:\-]?\s*(\d+(?:\.\d+)?)\s*(?:x|@)\s*([\d,]+(?:\.\d+)?)\s*$`)
)

var tableRowRes = []*regexp.Regexp{rowPipeRe, rowColumnsRe, rowProductRe}
