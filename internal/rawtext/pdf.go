package rawtext

import (
	"bytes"
	"strings"
)

// textObjects recovers text from uncompressed PDF content streams by walking
// BT ... ET blocks. String literals shown with Tj/TJ inside one block are
// joined with spaces, and the positioning operators Td, TD and T* start a new
// line. Compressed streams yield nothing here and are left to the other
// strategies.
func textObjects(data []byte) string {
	var b strings.Builder
	rest := data
	for {
		start := bytes.Index(rest, []byte("BT"))
		if start < 0 {
			break
		}
		end := bytes.Index(rest[start:], []byte("ET"))
		if end < 0 {
			break
		}
		block := rest[start+2 : start+end]
		if line := textFromBlock(block); line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
		rest = rest[start+end+2:]
	}
	return b.String()
}

func textFromBlock(block []byte) string {
	var b strings.Builder
	needSpace := false
	for i := 0; i < len(block); i++ {
		switch block[i] {
		case '(':
			s, next := decodeLiteral(block, i)
			if keepLiteral(s) {
				if needSpace && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteString(" ")
				}
				b.WriteString(s)
				needSpace = true
			}
			i = next - 1
		case 'T':
			if i+1 < len(block) {
				switch block[i+1] {
				case 'd', 'D', '*':
					if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
						b.WriteString("\n")
						needSpace = false
					}
					i++
				}
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// stringLiterals scans the whole byte stream for parenthesized PDF string
// literals and angle-bracket hex strings, regardless of structure. This
// catches text in damaged files whose BT/ET framing is gone.
func stringLiterals(data []byte) string {
	var b strings.Builder
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '(':
			s, next := decodeLiteral(data, i)
			if keepLiteral(s) {
				b.WriteString(s)
				b.WriteString("\n")
			}
			i = next - 1
		case '<':
			if i+1 < len(data) && data[i+1] != '<' {
				s, next := decodeHexString(data, i)
				if keepLiteral(s) {
					b.WriteString(s)
					b.WriteString("\n")
				}
				i = next - 1
			} else if i+1 < len(data) {
				i++ // skip dictionary open
			}
		}
	}
	return b.String()
}

// decodeLiteral decodes the literal starting at the '(' at data[i], handling
// backslash escapes, octal escapes and balanced nested parentheses. It
// returns the decoded text and the index just past the closing ')'.
func decodeLiteral(data []byte, i int) (string, int) {
	var b strings.Builder
	depth := 1
	j := i + 1
	for j < len(data) && depth > 0 {
		c := data[j]
		switch c {
		case '\\':
			if j+1 >= len(data) {
				j++
				continue
			}
			j++
			switch e := data[j]; e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
				// discard
			case '(', ')', '\\':
				b.WriteByte(e)
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && j+1 < len(data) && data[j+1] >= '0' && data[j+1] <= '7'; k++ {
						j++
						v = v*8 + int(data[j]-'0')
					}
					if v >= 0x20 && v < 0x7F {
						b.WriteByte(byte(v))
					}
				}
			}
			j++
		case '(':
			depth++
			b.WriteByte(c)
			j++
		case ')':
			depth--
			if depth > 0 {
				b.WriteByte(c)
			}
			j++
		default:
			b.WriteByte(c)
			j++
		}
	}
	return b.String(), j
}

// decodeHexString decodes <48656C6C6F> starting at data[i] and returns the
// text plus the index just past the closing '>'.
func decodeHexString(data []byte, i int) (string, int) {
	var b strings.Builder
	var hi byte
	haveHi := false
	j := i + 1
	for ; j < len(data); j++ {
		c := data[j]
		if c == '>' {
			j++
			break
		}
		var v byte
		switch {
		case c >= '0' && c <= '9':
			v = c - '0'
		case c >= 'a' && c <= 'f':
			v = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v = c - 'A' + 10
		case c == ' ' || c == '\n' || c == '\r' || c == '\t':
			continue
		default:
			// not a hex string after all
			return "", j + 1
		}
		if !haveHi {
			hi = v
			haveHi = true
			continue
		}
		by := hi<<4 | v
		if by >= 0x20 && by < 0x7F {
			b.WriteByte(by)
		}
		haveHi = false
	}
	return b.String(), j
}

// keepLiteral filters decoded strings down to ones plausibly containing
// document text: at least one letter, mostly printable, and not a PDF name
// or metadata token.
func keepLiteral(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return false
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "D:") {
		return false
	}
	letters, printable := 0, 0
	for _, r := range s {
		if r >= 0x20 && r < 0x7F || r == '\n' || r == '\t' {
			printable++
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
		}
	}
	if letters == 0 {
		return false
	}
	return printable*10 >= len(s)*9
}
