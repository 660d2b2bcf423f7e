package chtype

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed type expression.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("chtype: %s at position %d in %q", e.Msg, e.Pos, e.Input)
}

// bases whose parenthesized items are inner types rather than raw
// parameters. Tuple-like bases additionally allow named elements.
var typeArgBases = map[string]bool{
	"Nullable":       true,
	"Array":          true,
	"LowCardinality": true,
	"Map":            true,
	"Variant":        true,
	"Tuple":          true,
	"Nested":         true,
}

var namedElemBases = map[string]bool{
	"Tuple":  true,
	"Nested": true,
	"JSON":   true,
}

// Parse parses a single type expression.
func Parse(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Type{}, &ParseError{Input: s, Msg: "empty type expression"}
	}
	open := indexTop(s, '(')
	if open < 0 {
		if idx := indexTop(s, ')'); idx >= 0 {
			return Type{}, &ParseError{Input: s, Pos: idx, Msg: "unbalanced ')'"}
		}
		return Type{Base: s}, nil
	}
	if s[len(s)-1] != ')' {
		return Type{}, &ParseError{Input: s, Pos: len(s) - 1, Msg: "missing closing ')'"}
	}
	base := strings.TrimSpace(s[:open])
	if base == "" {
		return Type{}, &ParseError{Input: s, Pos: open, Msg: "missing type name before '('"}
	}
	inner := s[open+1 : len(s)-1]
	items, err := splitTop(inner)
	if err != nil {
		return Type{}, &ParseError{Input: s, Pos: open, Msg: err.Error()}
	}

	t := Type{Base: base}
	switch {
	case typeArgBases[base]:
		for _, it := range items {
			arg, err := parseElement(it, namedElemBases[base])
			if err != nil {
				return Type{}, err
			}
			t.Args = append(t.Args, arg)
		}
		if err := checkArity(t); err != nil {
			return Type{}, err
		}
	case base == "JSON":
		// JSON mixes settings (name=value), SKIP clauses and typed paths.
		for _, it := range items {
			if isJSONSetting(it) {
				t.Params = append(t.Params, normalizeSetting(it))
				continue
			}
			arg, err := parseElement(it, true)
			if err != nil {
				return Type{}, err
			}
			if arg.Name == "" {
				return Type{}, &ParseError{Input: s, Msg: "JSON typed path requires a name"}
			}
			t.Args = append(t.Args, arg)
		}
	case base == "Enum8" || base == "Enum16":
		for _, it := range items {
			item, err := parseEnumItem(it)
			if err != nil {
				return Type{}, &ParseError{Input: s, Msg: err.Error()}
			}
			t.Params = append(t.Params, item.canonical())
		}
	default:
		for _, it := range items {
			t.Params = append(t.Params, strings.TrimSpace(it))
		}
	}
	return t, nil
}

// ParseTypeList parses a comma-separated list of type expressions and
// returns the parsed nodes. Composite codecs use it to recurse through
// the registry with canonical subexpressions.
func ParseTypeList(s string) ([]Type, error) {
	items, err := splitTop(s)
	if err != nil {
		return nil, &ParseError{Input: s, Msg: err.Error()}
	}
	out := make([]Type, 0, len(items))
	for _, it := range items {
		t, err := Parse(it)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func checkArity(t Type) error {
	want := -1
	switch t.Base {
	case "Nullable", "Array", "LowCardinality":
		want = 1
	case "Map":
		want = 2
	}
	if want >= 0 && len(t.Args) != want {
		return &ParseError{
			Input: t.String(),
			Msg:   fmt.Sprintf("%s takes %d type argument(s), got %d", t.Base, want, len(t.Args)),
		}
	}
	if (t.Base == "Tuple" || t.Base == "Variant" || t.Base == "Nested") && len(t.Args) == 0 {
		return &ParseError{Input: t.String(), Msg: t.Base + " requires at least one element"}
	}
	return nil
}

// parseElement parses one list item, honoring an optional leading element
// name when the surrounding base allows it. The name is the first
// whitespace-separated identifier at depth 0 before the type.
func parseElement(s string, mayName bool) (Type, error) {
	s = strings.TrimSpace(s)
	if mayName {
		if sp := indexTop(s, ' '); sp > 0 {
			name := s[:sp]
			rest := strings.TrimSpace(s[sp+1:])
			if rest != "" && isIdentifier(name) {
				t, err := Parse(rest)
				if err != nil {
					return Type{}, err
				}
				t.Name = unquoteIdent(name)
				return t, nil
			}
		}
	}
	return Parse(s)
}

// splitTop splits s on commas at parenthesis depth 0 outside quoted
// literals. Empty input yields no items.
func splitTop(s string) ([]string, error) {
	var (
		items  []string
		depth  int
		quoted bool
		start  int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quoted {
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++ // doubled quote escape
					continue
				}
				quoted = false
			}
			continue
		}
		switch c {
		case '\'':
			quoted = true
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ')'")
			}
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced '('")
	}
	if quoted {
		return nil, fmt.Errorf("unterminated string literal")
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" || len(items) > 0 {
		items = append(items, tail)
	}
	return items, nil
}

// indexTop returns the index of the first occurrence of c at depth 0
// outside quotes, or -1.
func indexTop(s string, c byte) int {
	depth, quoted := 0, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quoted {
			if ch == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
					continue
				}
				quoted = false
			}
			continue
		}
		switch ch {
		case '\'':
			quoted = true
		case '(':
			if ch == c && depth == 0 {
				return i
			}
			depth++
			continue
		case ')':
			depth--
		}
		if ch == c && depth == 0 {
			return i
		}
	}
	return -1
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '`' {
		return len(s) > 2 && s[len(s)-1] == '`'
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '.':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func unquoteIdent(s string) string {
	if len(s) > 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}
	return s
}

func isJSONSetting(s string) bool {
	eq := indexTop(s, '=')
	if eq <= 0 {
		return strings.HasPrefix(s, "SKIP ") || strings.HasPrefix(s, "SKIP\t")
	}
	return isIdentifier(strings.TrimSpace(s[:eq]))
}

func normalizeSetting(s string) string {
	eq := indexTop(s, '=')
	if eq <= 0 {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.TrimSpace(s[:eq]) + "=" + strings.TrimSpace(s[eq+1:])
}
