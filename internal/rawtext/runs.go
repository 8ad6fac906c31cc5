package rawtext

import "strings"

// structural tokens that show up as printable runs inside PDFs and other
// container formats but carry no document text.
var structuralTokens = []string{
	"obj", "endobj", "stream", "endstream", "xref", "startxref", "trailer",
	"/Type", "/Font", "/Page", "/Pages", "/Catalog", "/Length", "/Filter",
	"/FlateDecode", "/MediaBox", "/Resources", "/ProcSet", "/Encoding",
	"/BaseFont", "/Subtype", "/Contents", "/Kids", "/Count", "/Root",
	"/Info", "/Size", "/Producer", "/CreationDate",
}

// printableRuns is the lowest-confidence strategy: collect maximal runs of
// printable ASCII, keep the ones long enough to mean something, containing
// at least one letter and not dominated by container structure.
func printableRuns(data []byte) string {
	var b strings.Builder
	var run []byte
	flush := func() {
		if len(run) >= minRunLen && keepRun(string(run)) {
			b.Write(run)
			b.WriteString("\n")
		}
		run = run[:0]
	}
	for _, c := range data {
		if c >= 0x20 && c < 0x7F || c == '\t' {
			run = append(run, c)
			continue
		}
		flush()
	}
	flush()
	return b.String()
}

func keepRun(s string) bool {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < minRunLen {
		return false
	}
	hasLetter := false
	for _, r := range trimmed {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}
	structural := 0
	fields := strings.Fields(trimmed)
	for _, f := range fields {
		for _, tok := range structuralTokens {
			if f == tok || strings.HasPrefix(f, tok+"(") {
				structural++
				break
			}
		}
	}
	// Drop runs that are mostly container bookkeeping.
	return structural*2 < len(fields)
}
