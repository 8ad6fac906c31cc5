// Package jsonrepair converts text that is claimed to contain a single JSON
// object into syntactically valid JSON, tolerating the malformations
// generation models commonly produce: markdown fences, surrounding prose,
// truncation mid-structure, bare or single-quoted keys, unescaped quotes and
// control characters inside string values, and trailing commas.
//
// The engine is a pipeline of pure text-to-text stages followed by a
// parse-and-validate gate. Every stage is idempotent: reapplying a stage to
// its own output is a no-op, and Repair applied to its own successful output
// returns the same string. It never fabricates a plausible-looking object;
// when the bounded passes are exhausted the caller receives a definitive
// *Failure carrying the offending offset and surrounding context.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// extraPasses bounds the number of aggressive re-scan rounds applied after
// the initial normalization fails to parse.
const extraPasses = 3

var (
	errNoObject  = errors.New("no JSON object found")
	errNotObject = errors.New("payload is not a JSON object")
)

// Failure reports that no parseable object could be recovered. Offset is the
// byte position the decoder stopped at in the last repaired candidate;
// Context is a short window of surrounding text for diagnostics.
type Failure struct {
	Offset  int
	Context string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("json irrecoverable at offset %d: %v (near %q)", f.Offset, f.Err, f.Context)
}

func (f *Failure) Unwrap() error { return f.Err }

// Repair returns syntactically valid JSON for the single object contained in
// text, or a *Failure when no object can be recovered within the bounded
// pass budget.
func Repair(text string) (string, error) {
	s := stripFences(text)
	s = sliceObject(s)
	if s == "" {
		return "", &Failure{Offset: 0, Err: errNoObject}
	}
	s = closeUnterminated(s)
	s = quoteBareKeys(s)
	s = rewriteSingleQuotes(s)
	s = escapeInnerQuotes(s)
	s = removeTrailingCommas(s)

	off, err := parseCheck(s)
	if err == nil {
		return s, nil
	}
	for pass := 0; pass < extraPasses; pass++ {
		switch pass {
		case 0:
			s = escapeControlChars(s)
		case 1:
			s = escapeInnerQuotes(escapeControlChars(s))
		case 2:
			// Last resort: cut just before the byte the decoder choked on and
			// re-close the structure. Recovers a usable prefix of a payload
			// whose tail is garbage; anything after the cut is lost, never
			// invented.
			if off > 0 && off <= len(s) {
				s = strings.TrimRight(s[:off-1], ", \t\n\r")
			}
		}
		s = removeTrailingCommas(closeUnterminated(s))
		if off, err = parseCheck(s); err == nil {
			return s, nil
		}
	}
	return "", &Failure{Offset: off, Context: contextAround(s, off), Err: err}
}

// parseCheck attempts a full decode and confirms the top-level value is an
// object. It returns the decoder's byte offset on failure so the caller can
// report or cut at the offending position.
func parseCheck(s string) (int, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			return int(syn.Offset), err
		}
		var typ *json.UnmarshalTypeError
		if errors.As(err, &typ) {
			return int(typ.Offset), err
		}
		return 0, err
	}
	if _, ok := v.(map[string]any); !ok {
		return 0, errNotObject
	}
	return 0, nil
}

func contextAround(s string, off int) string {
	if off < 0 {
		off = 0
	}
	if off > len(s) {
		off = len(s)
	}
	lo := off - 40
	if lo < 0 {
		lo = 0
	}
	hi := off + 40
	if hi > len(s) {
		hi = len(s)
	}
	return s[lo:hi]
}

// stripFences removes a leading/trailing markdown code fence around the
// payload, with or without a language tag.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		if i := strings.IndexByte(t, '\n'); i >= 0 {
			t = t[i+1:]
		} else {
			t = strings.TrimPrefix(t, "```")
			t = strings.TrimPrefix(t, "json")
		}
	}
	t = strings.TrimSpace(t)
	if strings.HasSuffix(t, "```") {
		t = strings.TrimSpace(strings.TrimSuffix(t, "```"))
	}
	return t
}

// sliceObject keeps the span from the first '{' to the last '}', discarding
// commentary the model added before or after the object. When no closing
// brace exists (truncated output) everything from the first '{' onward is
// kept for the balance stage to close.
func sliceObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(s, '}')
	if end > start {
		return s[start : end+1]
	}
	return s[start:]
}

// closeUnterminated appends the closers for any unmatched '{'/'[' and, when
// the input ends inside a string value, terminates that string first. A
// trailing lone backslash is completed so the appended quote is not eaten as
// an escape.
func closeUnterminated(s string) string {
	var stack []byte
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			if esc {
				esc = false
				continue
			}
			switch c {
			case '\\':
				esc = true
			case '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if !inStr && len(stack) == 0 {
		return s
	}
	var b strings.Builder
	b.WriteString(s)
	if inStr {
		if esc {
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// quoteBareKeys wraps bare identifier property names in double quotes. A
// token qualifies only in a syntactically valid key position: immediately
// after '{', ',', '[' or input start, outside any string, and followed by a
// colon. Bare literals in value position (true, false, null) are untouched
// because they are never followed by a colon.
func quoteBareKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	inStr, esc := false, false
	expectKey := true
	for i := 0; i < len(s); {
		c := s[i]
		if inStr {
			b.WriteByte(c)
			if esc {
				esc = false
			} else if c == '\\' {
				esc = true
			} else if c == '"' {
				inStr = false
			}
			i++
			continue
		}
		switch {
		case c == '"':
			inStr = true
			expectKey = false
			b.WriteByte(c)
			i++
		case c == '{' || c == ',' || c == '[':
			expectKey = true
			b.WriteByte(c)
			i++
		case isSpace(c):
			b.WriteByte(c)
			i++
		case expectKey && isIdentStart(c):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			k := j
			for k < len(s) && isSpace(s[k]) {
				k++
			}
			if k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
			} else {
				b.WriteString(s[i:j])
			}
			i = j
			expectKey = false
		default:
			b.WriteByte(c)
			i++
			expectKey = false
		}
	}
	return b.String()
}

// rewriteSingleQuotes converts single-quoted property names and string
// values to double-quoted form, escaping any internal double quotes and
// unescaping \' to a plain apostrophe. Only quotes opening in a position
// where a string may legally start are rewritten, so apostrophes inside
// already-valid double-quoted strings are untouched.
func rewriteSingleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr, esc := false, false
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			b.WriteByte(c)
			if esc {
				esc = false
			} else if c == '\\' {
				esc = true
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		if c == '"' {
			inStr = true
			prev = c
			b.WriteByte(c)
			continue
		}
		if c == '\'' && (prev == 0 || prev == '{' || prev == '[' || prev == ',' || prev == ':') {
			var content strings.Builder
			j := i + 1
			for j < len(s) {
				d := s[j]
				if d == '\\' && j+1 < len(s) {
					if s[j+1] == '\'' {
						content.WriteByte('\'')
					} else {
						content.WriteByte(d)
						content.WriteByte(s[j+1])
					}
					j += 2
					continue
				}
				if d == '\'' {
					j++
					break
				}
				if d == '"' {
					content.WriteString(`\"`)
					j++
					continue
				}
				content.WriteByte(d)
				j++
			}
			b.WriteByte('"')
			b.WriteString(content.String())
			b.WriteByte('"')
			i = j - 1
			prev = '"'
			continue
		}
		b.WriteByte(c)
		if !isSpace(c) {
			prev = c
		}
	}
	return b.String()
}

// escapeInnerQuotes escapes double quotes that appear as content inside a
// string value. A quote met while inside a string is treated as content, not
// a terminator, when the immediately following character is not a structural
// JSON character (colon, comma, closing brace/bracket, or whitespace).
func escapeInnerQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inStr {
			b.WriteByte(c)
			if c == '"' {
				inStr = true
			}
			continue
		}
		if esc {
			b.WriteByte(c)
			esc = false
			continue
		}
		if c == '\\' {
			b.WriteByte(c)
			esc = true
			continue
		}
		if c == '"' {
			if i+1 < len(s) && !isStructural(s[i+1]) {
				b.WriteString(`\"`)
				continue
			}
			b.WriteByte(c)
			inStr = false
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// escapeControlChars rewrites raw control characters that appear inside
// string values as their JSON escape sequences. Models occasionally emit
// literal newlines or tabs inside a string, which the decoder rejects.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inStr {
			b.WriteByte(c)
			if c == '"' {
				inStr = true
			}
			continue
		}
		if esc {
			b.WriteByte(c)
			esc = false
			continue
		}
		switch {
		case c == '\\':
			b.WriteByte(c)
			esc = true
		case c == '"':
			b.WriteByte(c)
			inStr = false
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20:
			fmt.Fprintf(&b, `\u%04x`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// removeTrailingCommas drops commas that directly precede a closing brace or
// bracket, repeating until stable so stacked commas collapse too.
func removeTrailingCommas(s string) string {
	for {
		t := removeTrailingCommasOnce(s)
		if t == s {
			return s
		}
		s = t
	}
}

func removeTrailingCommasOnce(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			b.WriteByte(c)
			if esc {
				esc = false
			} else if c == '\\' {
				esc = true
			} else if c == '"' {
				inStr = false
			}
			continue
		}
		if c == '"' {
			inStr = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isStructural(c byte) bool {
	switch c {
	case ':', ',', '}', ']', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '-'
}
