package preprocessor

// buffer materializes everything a scanner produces so the engine, the
// expander and the expression parser can peek and backtrack at will.
type buffer struct {
	toks []Token
	idx  int
}

func drain(s *scanner) (*buffer, error) {
	b := &buffer{}
	for {
		tok, ok, err := s.Read()
		if err != nil {
			return nil, err
		}
		if !ok {
			return b, nil
		}
		b.toks = append(b.toks, tok)
	}
}

func (b *buffer) Peek() (Token, bool) {
	if b.idx >= len(b.toks) {
		return Token{}, false
	}
	return b.toks[b.idx], true
}

func (b *buffer) Read() (Token, bool) {
	tok, ok := b.Peek()
	if ok {
		b.idx++
	}
	return tok, ok
}

// ReadKeyword consumes one token and reports whether it was keyword kw.
func (b *buffer) ReadKeyword(kw string) bool {
	tok, ok := b.Read()
	return ok && tok.IsKeyword(kw)
}

// skipSpace consumes whitespace tokens and returns the newlines they held.
func (b *buffer) skipSpace() int {
	lines := 0
	for {
		tok, ok := b.Peek()
		if !ok || !tok.IsSpace() {
			return lines
		}
		lines += tok.Lines
		b.idx++
	}
}
