package preprocessor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"modernc.org/token"
)

type scanMode int

const (
	// modeText scans source text, turning comments into newline runs.
	modeText scanMode = iota
	// modeDirectives additionally turns '#' lines into directive tokens.
	modeDirectives
	// modeMacro scans replacement lists, where '#', '##' and '#@' are operators.
	modeMacro
	// modeCond scans #if expressions and parses literals on the spot.
	modeCond
)

var stageNames = [...]string{
	modeText:       "text tokenizer",
	modeDirectives: "text tokenizer",
	modeMacro:      "macro tokenizer",
	modeCond:       "condition tokenizer",
}

// scanner is a forward-only tokenizer with one token of lookahead.
type scanner struct {
	src  []rune
	off  int
	file string
	line int
	mode scanMode

	// locate makes the scanner attach its own file:line to errors.
	locate bool

	newLine     bool
	inDirective bool

	cur Token
	has bool
}

func newScanner(text, file string, line int, mode scanMode) *scanner {
	return &scanner{
		src:     []rune(text),
		file:    file,
		line:    line,
		mode:    mode,
		newLine: true,
	}
}

func (s *scanner) Peek() (Token, bool, error) {
	if s.has {
		return s.cur, true, nil
	}
	tok, ok, err := s.forward()
	if err != nil {
		err = errorf("%s: %v", stageNames[s.mode], err)
		if s.locate {
			err = locate(err, s.file, s.line)
		}
		return Token{}, false, err
	}
	if !ok {
		return Token{}, false, nil
	}
	tok.Pos = token.Position{Filename: s.file, Line: s.line}
	tok.Lines = strings.Count(tok.Text, "\n")
	s.cur, s.has = tok, true
	return tok, true, nil
}

// Read consumes the peeked token and advances the line counter past it.
func (s *scanner) Read() (Token, bool, error) {
	tok, ok, err := s.Peek()
	if ok {
		s.line += tok.Lines
		s.has = false
	}
	return tok, ok, err
}

// ReadKeyword consumes one token and reports whether it was keyword kw.
func (s *scanner) ReadKeyword(kw string) bool {
	tok, ok, err := s.Read()
	return err == nil && ok && tok.IsKeyword(kw)
}

func (s *scanner) forward() (Token, bool, error) {
	switch s.mode {
	case modeMacro:
		return s.scanMacro()
	case modeCond:
		return s.scanCond()
	default:
		return s.scanText()
	}
}

func (s *scanner) peekRune(n int) (rune, bool) {
	if s.off+n < len(s.src) {
		return s.src[s.off+n], true
	}
	return 0, false
}

func (s *scanner) next() (rune, bool) {
	r, ok := s.peekRune(0)
	if ok {
		s.off++
	}
	return r, ok
}

func (s *scanner) startsWith(r rune) bool {
	c, ok := s.peekRune(0)
	return ok && c == r
}

func (s *scanner) scanText() (Token, bool, error) {
	first, ok := s.next()
	if !ok {
		return Token{}, false, nil
	}
	if unicode.IsSpace(first) {
		if first == '\n' {
			s.newLine = true
			s.inDirective = false
		}
		return Token{Kind: KindPlain, Text: string(first)}, true, nil
	}
	atLineStart := s.newLine
	s.newLine = false
	if first == '#' && atLineStart {
		if s.mode == modeDirectives {
			return s.scanDirective()
		}
		s.inDirective = true
	}

	switch {
	case first == '(' || first == ')':
		return Token{Kind: KindKeyword, Text: string(first)}, true, nil

	case first == '/' && s.startsWith('/'):
		s.off++
		lines := 0
		for {
			r, ok := s.next()
			if !ok {
				break
			}
			if r == '\n' {
				lines++
				s.newLine = true
				s.inDirective = false
				break
			}
		}
		return commentToken(lines), true, nil

	case first == '/' && s.startsWith('*'):
		s.off++
		lines := 0
		star := false
		for {
			r, ok := s.next()
			if !ok {
				return Token{}, false, errorf("comment not finished")
			}
			if star && r == '/' {
				break
			}
			if r == '\n' {
				lines++
			}
			star = r == '*'
		}
		return commentToken(lines), true, nil

	case isIdentStart(first):
		return s.scanIdent(first), true, nil

	case isDigit(first) || first == '.' && s.digitFollows():
		return s.scanNumber(first), true, nil

	case first == '"' || first == '\'':
		start := s.off
		text, err := s.scanQuoted(first)
		if err != nil {
			if s.inDirective {
				// #error and #pragma lines may hold stray apostrophes
				s.off = start
				return Token{Kind: KindPlain, Text: string(first)}, true, nil
			}
			return Token{}, false, err
		}
		return Token{Kind: KindString, Text: text}, true, nil
	}
	return Token{Kind: KindPlain, Text: string(first)}, true, nil
}

// commentToken replaces a comment by its newlines, or by a single blank
// when it has none so that the tokens around it stay apart.
func commentToken(lines int) Token {
	if lines == 0 {
		return Token{Kind: KindComment, Text: " "}
	}
	return Token{Kind: KindComment, Text: strings.Repeat("\n", lines)}
}

func (s *scanner) scanDirective() (Token, bool, error) {
	var b strings.Builder
	for {
		r, ok := s.next()
		if !ok {
			break
		}
		b.WriteRune(r)
		if r == '\n' {
			s.newLine = true
			break
		}
	}
	body := b.String()
	text := "#" + body
	if trimmed := strings.TrimLeft(body, " \t"); trimmed != "" && isDigit(rune(trimmed[0])) {
		// linemarker left by an earlier preprocessing pass
		return Token{Kind: KindPlain, Text: text}, true, nil
	}
	d, err := parseDirective(body)
	if err != nil {
		return Token{}, false, err
	}
	return Token{Kind: KindDirective, Text: text, Dir: d}, true, nil
}

func (s *scanner) scanIdent(first rune) Token {
	var b strings.Builder
	b.WriteRune(first)
	for {
		r, ok := s.peekRune(0)
		if !ok || !isIdentPart(r) {
			break
		}
		b.WriteRune(r)
		s.off++
	}
	return Token{Kind: KindIdent, Text: b.String(), Call: s.callFollows()}
}

// callFollows reports whether the next non-blank character is '('.
func (s *scanner) callFollows() bool {
	i := s.off
	for i < len(s.src) && unicode.IsSpace(s.src[i]) {
		i++
	}
	return i < len(s.src) && s.src[i] == '('
}

func (s *scanner) digitFollows() bool {
	r, ok := s.peekRune(0)
	return ok && isDigit(r)
}

// scanNumber reads a preprocessing number: digits, letters, '_', '.' and
// a sign directly after an exponent letter.
func (s *scanner) scanNumber(first rune) Token {
	var b strings.Builder
	b.WriteRune(first)
	prev := first
	for {
		r, ok := s.peekRune(0)
		if !ok {
			break
		}
		sign := (r == '+' || r == '-') && strings.ContainsRune("eEpP", prev)
		if !sign && !isIdentPart(r) && r != '.' {
			break
		}
		b.WriteRune(r)
		s.off++
		prev = r
	}
	text := b.String()
	if isFloatLiteral(text) {
		return Token{Kind: KindFloat, Text: text}
	}
	return Token{Kind: KindInt, Text: text}
}

func isFloatLiteral(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, ".") {
		return true
	}
	if strings.HasPrefix(lower, "0x") {
		return strings.Contains(lower, "p")
	}
	return strings.Contains(lower, "e")
}

// scanQuoted reads a literal up to the matching unescaped quote. A
// literal may not run past the end of its line.
func (s *scanner) scanQuoted(quote rune) (string, error) {
	var b strings.Builder
	b.WriteRune(quote)
	for {
		r, ok := s.next()
		if !ok || r == '\n' {
			if quote == '"' {
				return "", errorf("string not finished")
			}
			return "", errorf("character literal not finished")
		}
		b.WriteRune(r)
		if r == '\\' {
			if esc, ok := s.next(); ok {
				b.WriteRune(esc)
			}
			continue
		}
		if r == quote {
			return b.String(), nil
		}
	}
}

func (s *scanner) scanMacro() (Token, bool, error) {
	first, ok := s.next()
	if !ok {
		return Token{}, false, nil
	}
	switch {
	case first == '#':
		if r, ok := s.peekRune(0); ok && (r == '#' || r == '@') {
			s.off++
			return Token{Kind: KindKeyword, Text: "#" + string(r)}, true, nil
		}
		return Token{Kind: KindKeyword, Text: "#"}, true, nil
	case first == '(' || first == ')':
		return Token{Kind: KindKeyword, Text: string(first)}, true, nil
	case isIdentStart(first):
		return s.scanIdent(first), true, nil
	case isDigit(first) || first == '.' && s.digitFollows():
		return s.scanNumber(first), true, nil
	case first == '"' || first == '\'':
		text, err := s.scanQuoted(first)
		if err != nil {
			return Token{}, false, err
		}
		return Token{Kind: KindString, Text: text}, true, nil
	}
	return Token{Kind: KindPlain, Text: string(first)}, true, nil
}

// condPairs maps the first character of a two-character operator to the
// characters that may complete it.
var condPairs = map[rune]string{
	'/': "/",
	'!': "=",
	'&': "&",
	'<': "<=",
	'>': ">=",
	'|': "|",
	'*': "*",
	'=': "=",
}

func (s *scanner) scanCond() (Token, bool, error) {
	for {
		r, ok := s.peekRune(0)
		if !ok {
			return Token{}, false, nil
		}
		if !unicode.IsSpace(r) {
			break
		}
		s.off++
	}
	first, _ := s.next()
	if strings.ContainsRune("%()+,-^~:?", first) {
		return Token{Kind: KindKeyword, Text: string(first)}, true, nil
	}
	if seconds, ok := condPairs[first]; ok {
		if r, ok := s.peekRune(0); ok && strings.ContainsRune(seconds, r) {
			s.off++
			return Token{Kind: KindKeyword, Text: string(first) + string(r)}, true, nil
		}
		return Token{Kind: KindKeyword, Text: string(first)}, true, nil
	}
	switch {
	case isIdentStart(first):
		return s.scanIdent(first), true, nil
	case isDigit(first) || first == '.' && s.digitFollows():
		tok := s.scanNumber(first)
		v, err := parseIntLiteral(tok.Text)
		if err != nil {
			return Token{}, false, err
		}
		tok.Kind, tok.Value = KindInt, v
		return tok, true, nil
	case first == '\'':
		text, err := s.scanQuoted(first)
		if err != nil {
			return Token{}, false, err
		}
		v, err := parseCharLiteral(text)
		if err != nil {
			return Token{}, false, err
		}
		return Token{Kind: KindString, Text: text, Value: v}, true, nil
	case first == '"':
		if _, err := s.scanQuoted(first); err != nil {
			return Token{}, false, err
		}
		return Token{}, false, errorf("string not allowed in condition")
	}
	return Token{}, false, errorf("unexpected character %q in condition", first)
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// readIdent splits a leading identifier off s.
func readIdent(s string) (id string, rest string, ok bool) {
	first, size := utf8.DecodeRuneInString(s)
	if s == "" || !isIdentStart(first) {
		return "", s, false
	}
	i := size
	for i < len(s) {
		r, n := utf8.DecodeRuneInString(s[i:])
		if !isIdentPart(r) {
			break
		}
		i += n
	}
	return s[:i], s[i:], true
}

func isIdent(s string) bool {
	id, rest, ok := readIdent(s)
	return ok && id != "" && rest == ""
}
