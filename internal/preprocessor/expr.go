package preprocessor

import (
	"github.com/fwessels/cpreproc/internal/report"
)

// Expr is a node of a parsed #if expression.
type Expr interface {
	exprNode()
}

type (
	// Literal is an integer or character constant.
	Literal struct {
		Val Value
	}
	// Ident is an identifier left over after macro expansion; it reads as 0.
	Ident struct {
		Name string
	}
	Unary struct {
		Op string
		X  Expr
	}
	Binary struct {
		Op   string
		X, Y Expr
	}
	// Ternary is cond ? then : else; only the chosen branch is evaluated.
	Ternary struct {
		Cond, Then, Else Expr
	}
	// Sequence evaluates every element and yields the last (comma operator).
	Sequence struct {
		List []Expr
	}
)

func (*Literal) exprNode()  {}
func (*Ident) exprNode()    {}
func (*Unary) exprNode()    {}
func (*Binary) exprNode()   {}
func (*Ternary) exprNode()  {}
func (*Sequence) exprNode() {}

// binaryLevels lists the binary operators from the loosest to the tightest
// binding. All of them, '**' included, associate to the left.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%", "//"},
	{"**"},
}

var unaryOps = map[string]bool{"+": true, "-": true, "!": true, "~": true}

type exprParser struct {
	b *buffer
}

// ParseExpr parses the text of an #if condition after defined() and
// macro substitution.
func ParseExpr(text string) (Expr, error) {
	b, err := drain(newScanner(text, "<macro cond>", 1, modeCond))
	if err != nil {
		return nil, err
	}
	if len(b.toks) == 0 {
		return nil, errorf("cond-root or () should have values")
	}
	p := &exprParser{b: b}
	e, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if tok, ok := b.Peek(); ok {
		return nil, errorf("unexpected %q in condition", tok.Text)
	}
	return e, nil
}

func (p *exprParser) peekKeyword(ops ...string) (string, bool) {
	tok, ok := p.b.Peek()
	if !ok || tok.Kind != KindKeyword {
		return "", false
	}
	for _, op := range ops {
		if tok.Text == op {
			return op, true
		}
	}
	return "", false
}

func (p *exprParser) parseSequence() (Expr, error) {
	var list []Expr
	for {
		if _, ok := p.peekKeyword(")"); ok || p.atEnd() {
			break
		}
		e, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if _, ok := p.peekKeyword(","); !ok {
			break
		}
		p.b.Read()
	}
	switch len(list) {
	case 0:
		return nil, errorf("cond-root or () should have values")
	case 1:
		return list[0], nil
	}
	return &Sequence{List: list}, nil
}

func (p *exprParser) atEnd() bool {
	_, ok := p.b.Peek()
	return !ok
}

func (p *exprParser) parseTernary() (Expr, error) {
	cond, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if _, ok := p.peekKeyword("?"); !ok {
		return cond, nil
	}
	p.b.Read()
	then, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if !p.b.ReadKeyword(":") {
		return nil, errorf("missing ':' in conditional expression")
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &Ternary{Cond: cond, Then: then, Else: els}, nil
}

func (p *exprParser) parseBinary(level int) (Expr, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	x, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.peekKeyword(binaryLevels[level]...)
		if !ok {
			return x, nil
		}
		p.b.Read()
		y, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		x = &Binary{Op: op, X: x, Y: y}
	}
}

func (p *exprParser) parseUnary() (Expr, error) {
	tok, ok := p.b.Peek()
	if !ok {
		return nil, errorf("should have something but nothing to parse")
	}
	if tok.Kind != KindKeyword || !unaryOps[tok.Text] {
		return p.parsePrimary()
	}
	p.b.Read()
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Unary{Op: tok.Text, X: x}, nil
}

func (p *exprParser) parsePrimary() (Expr, error) {
	tok, _ := p.b.Read()
	switch tok.Kind {
	case KindInt, KindString:
		return &Literal{Val: tok.Value}, nil
	case KindIdent:
		return &Ident{Name: tok.Text}, nil
	}
	if !tok.IsKeyword("(") {
		return nil, errorf("unexpected %q where a value should start", tok.Text)
	}
	e, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if !p.b.ReadKeyword(")") {
		return nil, errorf("brackets not matched")
	}
	return e, nil
}

// evaluator walks an expression tree once. It is the whole execution
// context an #if expression needs.
type evaluator struct {
	log Logger
}

func (ev *evaluator) eval(e Expr) (Value, error) {
	switch e := e.(type) {
	case *Literal:
		return e.Val, nil
	case *Ident:
		if ev.log != nil {
			ev.log.Logf(report.Information, "unsolved identifier %s in condition", e.Name)
		}
		return Signed(0), nil
	case *Unary:
		x, err := ev.eval(e.X)
		if err != nil {
			return Value{}, err
		}
		return unary(e.Op, x)
	case *Binary:
		x, err := ev.eval(e.X)
		if err != nil {
			return Value{}, err
		}
		switch e.Op {
		case "&&":
			if !x.Bool() {
				return Signed(0), nil
			}
			y, err := ev.eval(e.Y)
			if err != nil {
				return Value{}, err
			}
			return boolValue(y.Bool()), nil
		case "||":
			if x.Bool() {
				return Signed(1), nil
			}
			y, err := ev.eval(e.Y)
			if err != nil {
				return Value{}, err
			}
			return boolValue(y.Bool()), nil
		}
		y, err := ev.eval(e.Y)
		if err != nil {
			return Value{}, err
		}
		return binary(e.Op, x, y)
	case *Ternary:
		c, err := ev.eval(e.Cond)
		if err != nil {
			return Value{}, err
		}
		if c.Bool() {
			return ev.eval(e.Then)
		}
		return ev.eval(e.Else)
	case *Sequence:
		var last Value
		for _, x := range e.List {
			v, err := ev.eval(x)
			if err != nil {
				return Value{}, err
			}
			last = v
		}
		return last, nil
	}
	return Value{}, errorf("unexpected expression node %T", e)
}

// EvalExpr evaluates a parsed #if expression.
func EvalExpr(e Expr) (Value, error) {
	ev := &evaluator{}
	return ev.eval(e)
}
