package rawtext

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// sniffHTML reports whether the bytes look like markup. Only the leading
// portion is inspected.
func sniffHTML(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	lower := bytes.ToLower(head)
	return bytes.Contains(lower, []byte("<!doctype html")) ||
		bytes.Contains(lower, []byte("<html")) ||
		bytes.Contains(lower, []byte("<body")) ||
		bytes.Contains(lower, []byte("<table"))
}

// fromHTML extracts readable text from markup. Block elements break lines
// and table cells are joined with spaces so row layouts like
// "Widget  5  180.00  900.00" survive as single lines, which the field
// fallbacks downstream depend on.
func fromHTML(data []byte) string {
	node, err := html.Parse(bytes.NewReader(data))
	if err != nil || node == nil {
		return ""
	}
	var b strings.Builder
	walkHTML(&b, node)
	return b.String()
}

func walkHTML(b *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "head", "iframe":
			return
		case "br", "tr", "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n")
		case "td", "th":
			b.WriteString(" ")
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(b, c)
	}
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "tr", "p", "div", "li", "table", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n")
		}
	}
}
