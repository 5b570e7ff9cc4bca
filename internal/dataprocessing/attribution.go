package dataprocessing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseAttribution parses an attribution hit cell into a mapping. JSON is
// tried first, then Python literal syntax (single quotes, True/False/None,
// tuples). Blank input, a syntax error or a top-level value that is not a
// mapping yields ok == false and an empty mapping.
func ParseAttribution(raw string) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, false
	}

	if m, ok := parseJSONObject(raw); ok {
		return m, true
	}

	p := &literalParser{src: raw}
	v, err := p.parseDocument()
	if err != nil {
		return map[string]any{}, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, false
	}
	return m, true
}

func parseJSONObject(raw string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// FlattenAttribution flattens a parsed mapping into column name/value pairs.
// Nested keys are joined with '_' and prefixed. Null leaves are reported in
// columns but omitted from values. Columns come back in sorted key order.
func FlattenAttribution(m map[string]any, prefix string) (values map[string]string, columns []string) {
	values = make(map[string]string)
	flattenInto(m, "", func(key string, v any) {
		name := NormalizeColumnName(prefix + key)
		columns = append(columns, name)
		if s, ok := leafText(v); ok {
			values[name] = s
		}
	})
	return values, columns
}

func flattenInto(m map[string]any, parent string, emit func(string, any)) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if parent != "" {
			name = parent + "_" + k
		}
		if child, ok := m[k].(map[string]any); ok && len(child) > 0 {
			flattenInto(child, name, emit)
			continue
		}
		emit(name, m[k])
	}
}

// leafText renders a flattened leaf; ok is false for null.
func leafText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return canonicalNumber(t), true
	default:
		return compactJSON(t), true
	}
}

// canonicalNumber renders integers verbatim and other numbers in their
// shortest round-trip form.
func canonicalNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return n.String()
}

func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// literalParser is a strict recursive-descent parser for the subset of
// Python literal syntax found in exported attribution cells. It never
// evaluates anything.
type literalParser struct {
	src string
	pos int
}

const maxLiteralDepth = 32

func (p *literalParser) parseDocument() (any, error) {
	v, err := p.parseValue(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return v, nil
}

func (p *literalParser) parseValue(depth int) (any, error) {
	if depth > maxLiteralDepth {
		return nil, p.errorf("nesting too deep")
	}
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '{':
		return p.parseDict(depth)
	case c == '[':
		return p.parseSequence(depth, '[', ']')
	case c == '(':
		return p.parseSequence(depth, '(', ')')
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.parseKeyword()
	}
}

func (p *literalParser) parseDict(depth int) (any, error) {
	p.pos++ // '{'
	out := make(map[string]any)
	for {
		p.skipSpace()
		if p.consume('}') {
			return out, nil
		}

		key, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		keyText, ok := dictKey(key)
		if !ok {
			return nil, p.errorf("unhashable dict key")
		}

		p.skipSpace()
		if !p.consume(':') {
			return nil, p.errorf("expected ':'")
		}
		val, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		out[keyText] = val

		p.skipSpace()
		if p.consume('}') {
			return out, nil
		}
		if !p.consume(',') {
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}

func (p *literalParser) parseSequence(depth int, open, closing byte) (any, error) {
	p.pos++ // open
	out := make([]any, 0)
	for {
		p.skipSpace()
		if p.consume(closing) {
			return out, nil
		}
		v, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		p.skipSpace()
		if p.consume(closing) {
			return out, nil
		}
		if !p.consume(',') {
			return nil, p.errorf("expected ',' or %q", closing)
		}
	}
}

func (p *literalParser) parseString() (any, error) {
	quote := p.src[p.pos]
	p.pos++

	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), nil
		case c == '\n':
			return nil, p.errorf("unterminated string")
		case c == '\\':
			if err := p.parseEscape(&sb); err != nil {
				return nil, err
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return nil, p.errorf("unterminated string")
}

func (p *literalParser) parseEscape(sb *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++

	simple := map[byte]byte{'\\': '\\', '\'': '\'', '"': '"', 'n': '\n', 't': '\t', 'r': '\r', '0': 0}
	if r, ok := simple[c]; ok {
		sb.WriteByte(r)
		return nil
	}

	var width int
	switch c {
	case 'x':
		width = 2
	case 'u':
		width = 4
	case 'U':
		width = 8
	default:
		return p.errorf("unsupported escape \\%c", c)
	}
	if p.pos+width > len(p.src) {
		return p.errorf("short escape")
	}
	code, err := strconv.ParseUint(p.src[p.pos:p.pos+width], 16, 32)
	if err != nil || !utf8.ValidRune(rune(code)) {
		return p.errorf("invalid escape")
	}
	p.pos += width
	sb.WriteRune(rune(code))
	return nil
}

func (p *literalParser) parseNumber() (any, error) {
	start := p.pos
	if c := p.src[p.pos]; c == '-' || c == '+' {
		p.pos++
	}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '_' ||
			((c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E')) {
			p.pos++
			continue
		}
		break
	}

	text := strings.TrimPrefix(strings.ReplaceAll(p.src[start:p.pos], "_", ""), "+")
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errorf("invalid number %q", p.src[start:p.pos])
	}
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		return json.Number(text), nil
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func (p *literalParser) parseKeyword() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	switch word := p.src[start:p.pos]; word {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	default:
		p.pos = start
		return nil, p.errorf("unexpected token")
	}
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("attribution literal at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// dictKey renders a scalar literal used as a dict key.
func dictKey(v any) (string, bool) {
	switch t := v.(type) {
	case map[string]any, []any:
		return "", false
	case nil:
		return "None", true
	case bool:
		if t {
			return "True", true
		}
		return "False", true
	}
	s, _ := leafText(v)
	return s, true
}
