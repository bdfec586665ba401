package preprocessor

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"modernc.org/token"
)

// paintMark prefixes an identifier that was left alone because its macro
// was being expanded. Later rescans must not expand it either; the mark is
// removed before text leaves the engine. The code point is reserved: a
// U+E000 written directly before an identifier in the source is dropped.
const paintMark = "\uE000"

// unpaint removes the marks that precede an identifier. A mark anywhere
// else is source text and stays.
func unpaint(s string) string {
	if !strings.Contains(s, paintMark) {
		return s
	}
	var b strings.Builder
	for {
		i := strings.Index(s, paintMark)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		s = s[i+len(paintMark):]
		if r, _ := utf8.DecodeRuneInString(s); s == "" || !isIdentStart(r) {
			b.WriteString(paintMark)
		}
	}
}

// Macro is one #define. Params is nil for object-like macros; a trailing
// "..." parameter makes the macro variadic.
type Macro struct {
	Name   string
	Params []string
	Body   []Token
}

func (m *Macro) IsFunc() bool { return m.Params != nil }

func (m *Macro) Variadic() bool {
	return len(m.Params) > 0 && m.Params[len(m.Params)-1] == "..."
}

func (m *Macro) isParam(name string) bool {
	if name == "__VA_ARGS__" {
		return m.Variadic()
	}
	for _, p := range m.Params {
		if p == name && p != "..." {
			return true
		}
	}
	return false
}

// newMacro scans and parses the replacement list once, at definition time.
func newMacro(name string, params []string, body string, pos token.Position) (*Macro, error) {
	m := &Macro{Name: name, Params: params}
	b, err := drain(newScanner(body, pos.Filename, pos.Line, modeMacro))
	if err != nil {
		return nil, err
	}
	if m.Body, err = parseReplacement(b, m); err != nil {
		return nil, err
	}
	return m, nil
}

// builtinMacro defines name as verbatim text.
func builtinMacro(name, value string) *Macro {
	return &Macro{Name: name, Body: []Token{{Kind: KindPlain, Text: value}}}
}

// parseReplacement binds the operands of '#' and '#@' and folds every
// "x ## y" into the Paste list of x.
func parseReplacement(b *buffer, m *Macro) ([]Token, error) {
	var out []Token
	for tok, ok := b.Read(); ok; tok, ok = b.Read() {
		if !tok.IsKeyword("#") && !tok.IsKeyword("#@") && !tok.IsKeyword("##") {
			out = append(out, tok)
			continue
		}
		if !m.IsFunc() && !tok.IsKeyword("##") {
			tok.Kind = KindPlain
			out = append(out, tok)
			continue
		}
		b.skipSpace()
		id, ok := b.Read()
		if !ok {
			return nil, errorf("no following ID for %s", tok.Text)
		}
		if id.Kind != KindIdent && (id.Kind != KindInt || !tok.IsKeyword("##")) {
			return nil, errorf("the following after %s is not ID", tok.Text)
		}
		if tok.IsKeyword("##") {
			for len(out) > 0 && out[len(out)-1].IsSpace() {
				out = out[:len(out)-1]
			}
			if len(out) == 0 {
				return nil, errorf("no prefix ID for %s", tok.Text)
			}
			pre := &out[len(out)-1]
			if pre.Kind != KindIdent {
				return nil, errorf("the prefix before %s is not ID", tok.Text)
			}
			pre.Paste = append(pre.Paste, id.Text)
			continue
		}
		if !m.isParam(id.Text) {
			return nil, errorf("'%s' is not followed by a macro parameter", tok.Text)
		}
		tok.Arg = id.Text
		out = append(out, tok)
	}
	return out, nil
}

// expander performs macro substitution. active holds the macros whose
// expansion is in progress; their names are never expanded again.
type expander struct {
	macros map[string]*Macro
	active map[string]bool
	line   int
}

func newExpander(macros map[string]*Macro, line int) *expander {
	return &expander{macros: macros, active: map[string]bool{}, line: line}
}

// expandString rescans text and expands every macro use in it.
func (e *expander) expandString(text string) (string, error) {
	b, err := drain(newScanner(text, "<macro>", 1, modeText))
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for tok, ok := b.Read(); ok; tok, ok = b.Read() {
		if tok.Kind == KindPlain && tok.Text == paintMark {
			out.WriteString(tok.Text)
			if next, ok := b.Peek(); ok && next.Kind == KindIdent {
				b.Read()
				out.WriteString(next.Text)
			}
			continue
		}
		if tok.Kind != KindIdent {
			out.WriteString(tok.Text)
			continue
		}
		s, _, err := e.expandIdent(b, tok)
		if err != nil {
			return "", err
		}
		out.WriteString(s)
	}
	return out.String(), nil
}

// expandIdent expands the identifier tok, reading the argument list of a
// function-like invocation from b. lines counts the newlines consumed
// from b.
func (e *expander) expandIdent(b *buffer, tok Token) (text string, lines int, err error) {
	m, ok := e.macros[tok.Text]
	if !ok {
		if tok.Text == "__LINE__" {
			return strconv.Itoa(e.line), 0, nil
		}
		return tok.Text, 0, nil
	}
	if e.active[m.Name] {
		return paintMark + tok.Text, 0, nil
	}
	if !m.IsFunc() {
		text, err = e.apply(m, nil)
		return text, 0, err
	}
	if !tok.Call {
		return tok.Text, 0, nil
	}
	args, lines, err := readArgs(b, tok.Text)
	if err != nil {
		return "", 0, err
	}
	text, err = e.apply(m, args)
	return text, lines, err
}

// readArgs reads a parenthesized argument list. Arguments are split on
// commas outside nested parentheses and keep their raw token text.
func readArgs(b *buffer, name string) (args []string, lines int, err error) {
	lines = b.skipSpace()
	if !b.ReadKeyword("(") {
		return nil, 0, errorf("macro function %s: expected '('", name)
	}
	depth := 0
	comma := false
	var cur strings.Builder
	for {
		tok, ok := b.Read()
		if !ok {
			return nil, 0, errorf("macro function %s not end", name)
		}
		lines += tok.Lines
		if tok.IsKeyword("(") {
			depth++
		}
		if tok.IsKeyword(")") {
			depth--
			if depth < 0 {
				break
			}
		}
		if depth == 0 && tok.Kind == KindPlain && tok.Text == "," {
			args = append(args, strings.TrimSpace(cur.String()))
			cur.Reset()
			comma = true
			continue
		}
		if tok.IsSpace() && tok.Lines > 0 {
			// the caller re-emits the swallowed newlines after the expansion
			cur.WriteString(" ")
			continue
		}
		cur.WriteString(tok.Text)
	}
	if last := strings.TrimSpace(cur.String()); last != "" || comma {
		args = append(args, last)
	}
	return args, lines, nil
}

// apply substitutes args into m and rescans the result. Parameters
// operated on by '#', '#@' or '##' receive the raw argument text, all
// other uses receive the argument after its own expansion.
func (e *expander) apply(m *Macro, args []string) (string, error) {
	raw := map[string]string{}
	if m.IsFunc() {
		n := len(m.Params)
		if m.Variadic() {
			if len(args) < n-1 {
				return "", errorf("require at least %d arguments, but %d provided", n-1, len(args))
			}
			for i := 0; i < n-1; i++ {
				raw[m.Params[i]] = args[i]
			}
			raw["__VA_ARGS__"] = strings.Join(args[n-1:], ",")
		} else {
			if len(args) == 0 && n == 1 {
				args = []string{""}
			}
			if len(args) != n {
				return "", errorf("require %d arguments, but %d provided", n, len(args))
			}
			for i, p := range m.Params {
				raw[p] = args[i]
			}
		}
	}

	expanded := map[string]string{}
	for _, tok := range m.Body {
		if tok.Kind != KindIdent || len(tok.Paste) > 0 {
			continue
		}
		arg, ok := raw[tok.Text]
		if !ok {
			continue
		}
		if _, done := expanded[tok.Text]; done {
			continue
		}
		s, err := e.expandString(arg)
		if err != nil {
			return "", err
		}
		expanded[tok.Text] = s
	}

	e.active[m.Name] = true
	defer delete(e.active, m.Name)

	var b strings.Builder
	for _, tok := range m.Body {
		switch {
		case tok.Kind == KindIdent && len(tok.Paste) > 0:
			// a pasted identifier is new and gets expanded on rescan
			b.WriteString(unpaint(bound(raw, tok.Text)))
			for _, frag := range tok.Paste {
				b.WriteString(unpaint(bound(raw, frag)))
			}
		case tok.Kind == KindIdent:
			b.WriteString(bound(expanded, tok.Text))
		case tok.IsKeyword("#"):
			b.WriteString(`"` + strings.TrimSpace(unpaint(raw[tok.Arg])) + `"`)
		case tok.IsKeyword("#@"):
			b.WriteString(`'` + strings.TrimSpace(unpaint(raw[tok.Arg])) + `'`)
		default:
			b.WriteString(tok.Text)
		}
	}
	return e.expandString(b.String())
}

func bound(params map[string]string, id string) string {
	if v, ok := params[id]; ok {
		return v
	}
	return id
}
