package preprocessor

// condStack tracks the #if family of one file.
type condStack struct {
	stack []condFrame
}

type condFrame struct {
	// taken is set once a branch of this chain has been selected.
	taken  bool
	active bool
	// sawElse rejects a second #else or an #elif after it.
	sawElse bool
	tok     Token
}

func newCondStack() *condStack  { return &condStack{} }
func (c *condStack) Depth() int { return len(c.stack) }

func (c *condStack) Active() bool {
	if len(c.stack) == 0 {
		return true
	}
	return c.stack[len(c.stack)-1].active
}

// Push opens a chain at tok. eval runs only when the enclosing region is
// active; a chain opened in a skipped region is dead in all its branches.
func (c *condStack) Push(tok Token, eval func() (bool, error)) error {
	parent := c.Active()
	active := false
	if parent {
		ok, err := eval()
		if err != nil {
			return err
		}
		active = ok
	}
	c.stack = append(c.stack, condFrame{
		taken:  active || !parent,
		active: active,
		tok:    tok,
	})
	return nil
}

func (c *condStack) Elif(tok Token, eval func() (bool, error)) error {
	if len(c.stack) == 0 {
		return errorf("#elif has no corresponding #if")
	}
	top := &c.stack[len(c.stack)-1]
	top.tok = tok
	if top.sawElse {
		return errorf("#elif after #else")
	}
	if top.taken {
		top.active = false
		return nil
	}
	ok, err := eval()
	if err != nil {
		return err
	}
	top.active = ok
	top.taken = ok
	return nil
}

func (c *condStack) Else(tok Token) error {
	if len(c.stack) == 0 {
		return errorf("#else has no corresponding #if")
	}
	top := &c.stack[len(c.stack)-1]
	top.tok = tok
	if top.sawElse {
		return errorf("#else after #else")
	}
	top.sawElse = true
	top.active = !top.taken
	top.taken = true
	return nil
}

func (c *condStack) Endif() error {
	if len(c.stack) == 0 {
		return errorf("#endif has no corresponding #if")
	}
	c.stack = c.stack[:len(c.stack)-1]
	return nil
}

// Unclosed returns the latest directive of the innermost open chain.
func (c *condStack) Unclosed() (Token, bool) {
	if len(c.stack) == 0 {
		return Token{}, false
	}
	return c.stack[len(c.stack)-1].tok, true
}
