package converter

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// ParseLiteralMap parses a serialized flat mapping into string values.
// JSON objects are accepted, as are Python-literal dicts such as
// {'email': 'x@y.com', 'phone': None}. None/null values are omitted;
// numbers and booleans are kept in their literal spelling.
func ParseLiteralMap(s string) (map[string]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]string{}, nil
	}

	var raw map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&raw); err == nil && !dec.More() {
		out := make(map[string]string, len(raw))
		for k, v := range raw {
			if v == nil {
				continue
			}
			out[k] = ToString(v)
		}
		return out, nil
	}

	p := &literalParser{src: []rune(s)}
	return p.parseMap()
}

type literalParser struct {
	src []rune
	pos int
}

func (p *literalParser) parseMap() (map[string]string, error) {
	out := make(map[string]string)

	p.skipSpace()
	if !p.consume('{') {
		return nil, p.errorf("expected '{'")
	}

	p.skipSpace()
	if p.consume('}') {
		return out, p.expectEnd()
	}

	for {
		p.skipSpace()
		key, isNone, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if isNone {
			return nil, p.errorf("mapping key cannot be None")
		}

		p.skipSpace()
		if !p.consume(':') {
			return nil, p.errorf("expected ':' after key %q", key)
		}

		p.skipSpace()
		value, isNone, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if !isNone {
			out[key] = value
		}

		p.skipSpace()
		if p.consume(',') {
			p.skipSpace()
			if p.consume('}') {
				return out, p.expectEnd()
			}
			continue
		}
		if p.consume('}') {
			return out, p.expectEnd()
		}
		return nil, p.errorf("expected ',' or '}'")
	}
}

// parseValue reads a quoted string or a bare literal (number, True, False, None)
func (p *literalParser) parseValue() (string, bool, error) {
	if p.pos >= len(p.src) {
		return "", false, p.errorf("unexpected end of input")
	}

	quote := p.src[p.pos]
	if quote == '\'' || quote == '"' {
		s, err := p.parseQuoted(quote)
		return s, false, err
	}

	start := p.pos
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		if r == ',' || r == ':' || r == '}' || unicode.IsSpace(r) {
			break
		}
		p.pos++
	}
	word := string(p.src[start:p.pos])
	if word == "" {
		return "", false, p.errorf("expected a value")
	}
	if word == "None" {
		return "", true, nil
	}
	return word, false, nil
}

func (p *literalParser) parseQuoted(quote rune) (string, error) {
	p.pos++ // opening quote

	var sb strings.Builder
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		p.pos++

		switch r {
		case quote:
			return sb.String(), nil
		case '\\':
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(esc)
			}
		default:
			sb.WriteRune(r)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *literalParser) consume(r rune) bool {
	if p.pos < len(p.src) && p.src[p.pos] == r {
		p.pos++
		return true
	}
	return false
}

func (p *literalParser) expectEnd() error {
	p.skipSpace()
	if p.pos != len(p.src) {
		return p.errorf("unexpected trailing input")
	}
	return nil
}

func (p *literalParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("failed to parse mapping at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}
