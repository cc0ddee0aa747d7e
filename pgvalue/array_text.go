package pgvalue

import "strings"

// ScanText decodes PostgreSQL's text-format array literal, e.g. the
// plain `{1,2,3}` an int4[] column renders, or the "-quoted form an
// element type whose own text representation contains the delimiter
// forces: `{"(0,0)","(1,1)","(-1,-1)"}` for a POINT[] column, since
// POINT's "(x,y)" text form embeds a comma. spec.md §4.1 calls this
// out as a "critical format decision" the array text parser must
// respect, grounded on pgtype.ArrayHeader's binary dimension handling
// generalized to the text wire format.
func (v *Array) ScanText(src []byte, newElement func() FromSqlBinary) error {
	s := strings.TrimSpace(string(src))
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return errUnsupported("array text format")
	}
	body := s[1 : len(s)-1]
	if body == "" {
		v.Elements = nil
		v.Valid = true
		return nil
	}

	elems, err := splitArrayText(body)
	if err != nil {
		return err
	}

	out := make([]FromSqlBinary, 0, len(elems))
	for _, e := range elems {
		el := newElement()
		switch {
		case !e.quoted && strings.EqualFold(e.text, "NULL"):
			el.SetNull()
		default:
			scanner, ok := el.(FromSqlText)
			if !ok {
				return errUnsupported("array element has no text decoder")
			}
			if err := scanner.ScanText([]byte(e.text)); err != nil {
				return err
			}
		}
		out = append(out, el)
	}
	v.Elements = out
	v.Valid = true
	return nil
}

// EncodeText renders v back to PostgreSQL's text array literal,
// quoting any element whose own text contains a brace, comma, quote,
// backslash, or space, that is empty, or that reads as the bare NULL
// keyword.
func (v Array) EncodeText(buf []byte, encodeElementText func(el FromSqlBinary) (string, error), isNullElement func(el FromSqlBinary) bool) ([]byte, error) {
	buf = append(buf, '{')
	for i, el := range v.Elements {
		if i > 0 {
			buf = append(buf, ',')
		}
		if isNullElement(el) {
			buf = append(buf, "NULL"...)
			continue
		}
		text, err := encodeElementText(el)
		if err != nil {
			return nil, err
		}
		buf = append(buf, quoteArrayElement(text)...)
	}
	return append(buf, '}'), nil
}

func quoteArrayElement(s string) string {
	if s != "" && !strings.ContainsAny(s, `{}",\ `) && !strings.EqualFold(s, "NULL") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

type arrayTextElem struct {
	text   string
	quoted bool
}

// splitArrayText splits body (the array literal text with its outer
// braces already stripped) on top-level commas, tracking "-quoting and
// backslash escapes the way PostgreSQL's array_in does. quoted records
// whether an element was ever inside a quoted run, which distinguishes
// the bare NULL keyword (an actual SQL NULL) from the quoted string
// "NULL" (an ordinary four-character value).
func splitArrayText(body string) ([]arrayTextElem, error) {
	var out []arrayTextElem
	var cur strings.Builder
	inQuotes := false
	escaped := false
	wasQuoted := false

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inQuotes = !inQuotes
			wasQuoted = true
		case c == ',' && !inQuotes:
			out = append(out, arrayTextElem{text: cur.String(), quoted: wasQuoted})
			cur.Reset()
			wasQuoted = false
		default:
			cur.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, errUnsupported("unterminated quoted array element")
	}
	out = append(out, arrayTextElem{text: cur.String(), quoted: wasQuoted})
	return out, nil
}
