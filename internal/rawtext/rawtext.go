// Package rawtext recovers best-effort plain text from opaque document bytes.
// Inputs arrive as scans, malformed PDFs, HTML exports or plain text with no
// reliable MIME information, so recovery runs several independent heuristics
// and merges whatever each of them finds. Extraction never fails: the result
// is simply empty when nothing usable can be recovered, and the caller
// decides what that means.
package rawtext

import (
	"regexp"
	"strings"
	"unicode"
)

// minRunLen is the shortest printable byte run the fallback strategy keeps.
const minRunLen = 6

// Extract recovers readable text from data. Strategies run in order of
// confidence: HTML parsing when the bytes sniff as markup, then PDF text
// objects, then PDF string literals, then raw printable runs. Segments are
// deduplicated on first-seen order so overlapping strategies do not repeat
// lines.
func Extract(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var segments []string
	if sniffHTML(data) {
		segments = append(segments, fromHTML(data))
	}
	segments = append(segments, textObjects(data))
	segments = append(segments, stringLiterals(data))
	segments = append(segments, printableRuns(data))

	return mergeSegments(segments)
}

// mergeSegments splits every strategy result into lines, drops duplicates
// keeping the first occurrence, and joins the survivors.
func mergeSegments(segments []string) string {
	seen := make(map[string]struct{})
	var out []string
	for _, seg := range segments {
		for _, line := range strings.Split(seg, "\n") {
			line = collapseSpaces(strings.TrimSpace(line))
			if line == "" {
				continue
			}
			if _, dup := seen[line]; dup {
				continue
			}
			seen[line] = struct{}{}
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

var vocabRe = regexp.MustCompile(`(?i)\b(invoice|order|purchase|quotation|quote|inquiry|enquiry|total|amount|qty|quantity|price|rate|date|number|no\.?|supplier|vendor|customer|buyer|terms|delivery|valid)\b`)

var moneyRe = regexp.MustCompile(`(?i)([$€£¥₹]|\b(usd|eur|gbp|inr|jpy|aud|cad)\b)\s*\d|\d[\d,]*\.\d{2}\b`)

// Readable reports whether text looks like recovered business-document
// content rather than residual binary noise. It requires a minimum amount of
// letters and at least one domain cue, either vocabulary or a money-like
// amount.
func Readable(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 30 {
		return false
	}
	letters := 0
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 15 {
		return false
	}
	return vocabRe.MatchString(trimmed) || moneyRe.MatchString(trimmed)
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		if r == unicode.ReplacementChar || (r < 0x20 && r != '\n') {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
