package mal

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	tokenRe = regexp.MustCompile(`[\s,]*(~@|[\[\]{}()'` + "`" + `~^@]|"(?:\\.|[^\\"])*"?|;.*|[^\s\[\]{}('"` + "`" + `,;)]*)`)
	intRe   = regexp.MustCompile(`^-?[0-9]+$`)
)

// unsupported holds reader-macro and collection tokens. Quoting and non-list
// collections are not part of the language.
var unsupported = map[string]bool{
	"~@": true, "[": true, "]": true, "{": true, "}": true,
	"'": true, "`": true, "~": true, "^": true, "@": true,
}

// Tokenize splits input into tokens, dropping separators and comments.
func Tokenize(input string) []string {
	var tokens []string
	for _, m := range tokenRe.FindAllStringSubmatch(input, -1) {
		tok := m[1]
		if tok == "" || strings.HasPrefix(tok, ";") {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Blank reports whether input holds nothing but separators and comments.
func Blank(input string) bool {
	return len(Tokenize(input)) == 0
}

type reader struct {
	tokens []string
	pos    int
}

func (r *reader) peek() (string, bool) {
	if r.pos >= len(r.tokens) {
		return "", false
	}
	return r.tokens[r.pos], true
}

func (r *reader) next() (string, bool) {
	tok, ok := r.peek()
	if ok {
		r.pos++
	}
	return tok, ok
}

// ReadStr parses the first form in input. Anything after it is ignored.
func ReadStr(input string) (Value, error) {
	r := &reader{tokens: Tokenize(input)}
	if len(r.tokens) == 0 {
		return Value{}, errorf(KindParse, "no tokens found")
	}
	return r.readForm()
}

// ReadAll parses every top-level form in input, in order.
func ReadAll(input string) ([]Value, error) {
	r := &reader{tokens: Tokenize(input)}
	if len(r.tokens) == 0 {
		return nil, errorf(KindParse, "no tokens found")
	}
	var forms []Value
	for r.pos < len(r.tokens) {
		form, err := r.readForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, nil
}

func (r *reader) readForm() (Value, error) {
	tok, ok := r.peek()
	if !ok {
		return Value{}, errorf(KindParse, "expected form, got EOF")
	}
	switch tok {
	case "(":
		r.pos++
		return r.readList()
	case ")":
		return Value{}, errorf(KindUnexpectedToken, "unexpected ')'")
	}
	return r.readAtom()
}

func (r *reader) readList() (Value, error) {
	elems := []Value{}
	for {
		tok, ok := r.peek()
		if !ok {
			return Value{}, errorf(KindUnexpectedToken, "expected ')', got EOF")
		}
		if tok == ")" {
			r.pos++
			return ListVal(elems), nil
		}
		form, err := r.readForm()
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, form)
	}
}

func (r *reader) readAtom() (Value, error) {
	tok, _ := r.next()
	if unsupported[tok] {
		return Value{}, errorf(KindParse, "unsupported syntax: %s", tok)
	}
	switch tok {
	case "nil":
		return NilVal(), nil
	case "true":
		return BoolVal(true), nil
	case "false":
		return BoolVal(false), nil
	}
	if intRe.MatchString(tok) {
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return Value{}, errorf(KindParse, "integer out of range: %s", tok)
		}
		return IntVal(n), nil
	}
	if tok[0] == '"' {
		s, err := unquote(tok)
		if err != nil {
			return Value{}, err
		}
		return StrVal(s), nil
	}
	if tok[0] == ':' {
		return KeywordVal(tok[1:]), nil
	}
	return SymVal(tok), nil
}

// unquote decodes a string token. Only \\, \" and \n are escapes, so every
// decoded string prints back as the token it came from.
func unquote(tok string) (string, error) {
	body := tok[1:]
	if len(body) == 0 || body[len(body)-1] != '"' {
		return "", errorf(KindParse, "unbalanced string: %s", tok)
	}
	var buf strings.Builder
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch == '"' {
			if i != len(body)-1 {
				return "", errorf(KindParse, "unbalanced string: %s", tok)
			}
			return buf.String(), nil
		}
		if ch != '\\' {
			buf.WriteByte(ch)
			continue
		}
		i++
		if i >= len(body) {
			return "", errorf(KindParse, "unbalanced string: %s", tok)
		}
		switch body[i] {
		case 'n':
			buf.WriteByte('\n')
		case '\\', '"':
			buf.WriteByte(body[i])
		default:
			return "", errorf(KindParse, "unknown escape \\%c in string: %s", body[i], tok)
		}
	}
	return "", errorf(KindParse, "unbalanced string: %s", tok)
}
