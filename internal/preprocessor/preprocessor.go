package preprocessor

import (
	"bytes"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"modernc.org/strutil"
	"modernc.org/token"

	"github.com/fwessels/cpreproc/internal/report"
)

// DefaultMaxIncludeDepth bounds #include nesting when Options leaves it zero.
const DefaultMaxIncludeDepth = 200

// Logger receives the engine's diagnostics. A nil Logger discards them.
type Logger interface {
	Logf(level report.Level, format string, args ...interface{})
}

type Options struct {
	// IncludeDirs is searched, in order, for <name> includes and for
	// "name" includes not found next to an open file.
	IncludeDirs []string
	// Defines holds NAME or NAME=VALUE definitions applied before the
	// top-level file is read.
	Defines []string
	Logger  Logger
	// Cache shares file text between sessions; nil gives the session a
	// private cache.
	Cache           *FileCache
	MaxIncludeDepth int
	// Now feeds __DATE__ and __TIME__; nil means time.Now.
	Now func() time.Time
}

// Session is the state of one top-level preprocessing run. It is not safe
// for concurrent use; run independent files in independent sessions.
type Session struct {
	opts Options

	macros map[string]*Macro
	// included holds every file opened during the run.
	included map[string]bool
	// once holds the files that declared #pragma once.
	once map[string]bool
	// opened is the stack of files being processed, innermost last.
	opened []string

	top string
	out *bytes.Buffer
}

// fileState is what the engine knows about the file it is executing.
type fileState struct {
	path  string
	name  string
	depth int
	cond  *condStack
}

func New(opts Options) *Session {
	if opts.Cache == nil {
		opts.Cache = NewFileCache()
	}
	if opts.MaxIncludeDepth <= 0 {
		opts.MaxIncludeDepth = DefaultMaxIncludeDepth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{opts: opts}
}

// Preprocess runs one session over path.
func Preprocess(path string, opts Options) ([]byte, error) {
	return New(opts).ExecuteTop(path)
}

func (s *Session) logf(level report.Level, format string, args ...interface{}) {
	if s.opts.Logger != nil {
		s.opts.Logger.Logf(level, format, args...)
	}
}

// ExecuteTop preprocesses path and everything it includes and returns the
// expanded text. Each call starts from a fresh macro table.
func (s *Session) ExecuteTop(path string) ([]byte, error) {
	top, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	s.top = top
	s.macros = map[string]*Macro{}
	s.included = map[string]bool{}
	s.once = map[string]bool{}
	s.opened = nil
	s.out = &bytes.Buffer{}

	now := s.opts.Now()
	s.predefine("__STDC_NO_ATOMICS__", "1")
	s.predefine("__STDC_NO_COMPLEX__", "1")
	s.predefine("__STDC_NO_THREADS__", "1")
	s.predefine("__STDC_NO_VLA__", "1")
	s.predefine("__STDC_VERSION__", "199901L")
	s.predefine("__DATE__", `"`+now.Format("Jan 02 2006")+`"`)
	s.predefine("__TIME__", `"`+now.Format("15:04:05")+`"`)
	for _, def := range s.opts.Defines {
		name, value := ParseDefine(def)
		if err := s.defineValue(name, value); err != nil {
			return nil, err
		}
	}

	if err := s.execute(top, false, 0); err != nil {
		return nil, err
	}
	return s.out.Bytes(), nil
}

// defineValue adds an object-like macro as if by "#define name value".
func (s *Session) defineValue(name, value string) error {
	if !isIdent(name) {
		return errorf("macro name %q is not well-formed", name)
	}
	m, err := newMacro(name, nil, strings.TrimSpace(value), token.Position{Filename: "<command line>", Line: 1})
	if err != nil {
		return err
	}
	s.macros[name] = m
	return nil
}

func (s *Session) predefine(name, value string) {
	s.macros[name] = builtinMacro(name, value)
}

func (s *Session) execute(path string, onceOnly bool, depth int) error {
	if onceOnly && s.included[path] {
		return nil
	}
	name := s.displayName(path)
	s.logf(report.Detail, "process %s", name)

	text, err := s.opts.Cache.Load(path)
	if err != nil {
		return &Error{Msg: fmt.Sprintf("reader: %v", err), Err: err}
	}
	s.included[path] = true
	s.predefine("__FILE__", `"`+name+`"`)
	fmt.Fprintf(s.out, "# 1 \"%s\"\n", name)

	b, err := scanSource(text, name)
	if err != nil {
		return err
	}

	s.opened = append(s.opened, path)
	defer func() { s.opened = s.opened[:len(s.opened)-1] }()

	f := &fileState{path: path, name: name, depth: depth, cond: newCondStack()}
	for tok, ok := b.Read(); ok; tok, ok = b.Read() {
		stop, err := s.step(b, tok, f)
		if err != nil {
			return locate(err, name, tok.Line())
		}
		if stop {
			return nil
		}
	}
	if tok, open := f.cond.Unclosed(); open {
		return locate(errorf("%s no corresponding end", strings.TrimSpace(tok.Text)), name, tok.Line())
	}
	return nil
}

// step handles one token of the file. stop ends the file early.
func (s *Session) step(b *buffer, tok Token, f *fileState) (stop bool, err error) {
	if tok.Kind == KindDirective {
		return s.directive(tok, f)
	}
	if !f.cond.Active() {
		s.passLines(tok.Lines)
		return false, nil
	}
	if tok.Kind != KindIdent {
		s.out.WriteString(tok.Text)
		return false, nil
	}
	e := newExpander(s.macros, tok.Line())
	text, lines, err := e.expandIdent(b, tok)
	if err != nil {
		return false, err
	}
	s.out.WriteString(unpaint(text))
	// an invocation spread over several lines is followed by the lines it
	// swallowed
	s.passLines(lines)
	return false, nil
}

func (s *Session) passLines(n int) {
	for i := 0; i < n; i++ {
		s.out.WriteByte('\n')
	}
}

func (s *Session) directive(tok Token, f *fileState) (stop bool, err error) {
	d := tok.Dir
	if d.isConditional() {
		s.passLines(tok.Lines)
		return false, s.conditional(tok, f)
	}
	if !f.cond.Active() {
		s.passLines(tok.Lines)
		return false, nil
	}

	switch d.Name {
	case "", "line":
		s.out.WriteString(tok.Text)
	case "pragma":
		if d.Remain != "once" {
			s.out.WriteString(tok.Text)
			return false, nil
		}
		s.passLines(tok.Lines)
		if s.once[f.path] {
			return true, nil
		}
		s.once[f.path] = true
	case "include", "include_once":
		s.passLines(tok.Lines)
		return false, s.include(tok, f)
	case "error":
		return false, errorf("#error %s", d.Remain)
	case "undef":
		s.passLines(tok.Lines)
		if !isIdent(d.Remain) {
			return false, errorf("macro name is not well-formed")
		}
		delete(s.macros, d.Remain)
	case "define":
		s.passLines(tok.Lines)
		return false, s.define(tok)
	default:
		return false, errorf("#%s is unknown", d.Name)
	}
	return false, nil
}

func (s *Session) conditional(tok Token, f *fileState) error {
	d := tok.Dir
	switch d.Name {
	case "ifdef", "ifndef":
		return f.cond.Push(tok, func() (bool, error) {
			if !isIdent(d.Remain) {
				return false, errorf("macro name is not well-formed")
			}
			_, ok := s.macros[d.Remain]
			return ok == (d.Name == "ifdef"), nil
		})
	case "if":
		return f.cond.Push(tok, func() (bool, error) {
			return s.evalCondition(d.Remain, tok.Line())
		})
	case "elif":
		return f.cond.Elif(tok, func() (bool, error) {
			return s.evalCondition(d.Remain, tok.Line())
		})
	case "else":
		return f.cond.Else(tok)
	default:
		return f.cond.Endif()
	}
}

func (s *Session) define(tok Token) error {
	name, params, body, err := parseDefine(tok.Dir.Remain)
	if err != nil {
		return err
	}
	if _, ok := s.macros[name]; ok || name == "__LINE__" {
		s.logf(report.Warning, "%s:%d: macro %s redefined", tok.Pos.Filename, tok.Line(), name)
	}
	m, err := newMacro(name, params, body, tok.Pos)
	if err != nil {
		return err
	}
	s.macros[name] = m
	return nil
}

func (s *Session) include(tok Token, f *fileState) error {
	operand := tok.Dir.Remain
	name, angled, ok := parseIncludeArg(operand)
	if !ok {
		expanded, err := newExpander(s.macros, tok.Line()).expandString(operand)
		if err != nil {
			return err
		}
		if name, angled, ok = parseIncludeArg(unpaint(expanded)); !ok {
			return errorf("include should have \"name\" or <name> form")
		}
	}
	path, err := s.resolveInclude(name, angled)
	if err != nil {
		return err
	}
	if f.depth+1 > s.opts.MaxIncludeDepth {
		return errorf("include nested too deeply")
	}
	if err := s.execute(path, tok.Dir.Name == "include_once", f.depth+1); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "\n# %d \"%s\"\n", tok.Line()+tok.Lines, f.name)
	s.predefine("__FILE__", `"`+f.name+`"`)
	return nil
}

var exprHooks = strutil.PrettyPrintHooks{
	reflect.TypeOf(Value{}): func(f strutil.Formatter, v interface{}, prefix, suffix string) {
		f.Format(prefix)
		f.Format("%s", v.(Value))
		f.Format(suffix)
	},
}

// evalCondition evaluates the operand of #if or #elif: defined is
// resolved first, then macros are expanded and the result is parsed.
func (s *Session) evalCondition(text string, line int) (bool, error) {
	s.logf(report.Verbose, "condition: %s", text)
	text, err := s.substituteDefined(text)
	if err != nil {
		return false, err
	}
	s.logf(report.Verbose, "after defined: %s", text)
	expanded, err := newExpander(s.macros, line).expandString(text)
	if err != nil {
		return false, err
	}
	expanded = unpaint(expanded)
	s.logf(report.Verbose, "after expansion: %s", expanded)
	e, err := ParseExpr(expanded)
	if err != nil {
		return false, err
	}
	if s.opts.Logger != nil {
		s.logf(report.Verbose, "expression: %s", strutil.PrettyString(e, "", "  ", exprHooks))
	}
	ev := &evaluator{log: s.opts.Logger}
	v, err := ev.eval(e)
	if err != nil {
		return false, err
	}
	s.logf(report.Verbose, "condition value: %s (%v)", v, v.Bool())
	return v.Bool(), nil
}

// substituteDefined replaces "defined NAME" and "defined(NAME)" with 1 or 0.
func (s *Session) substituteDefined(text string) (string, error) {
	b, err := drain(newScanner(text, "<cond>", 1, modeText))
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for tok, ok := b.Read(); ok; tok, ok = b.Read() {
		if tok.Kind != KindIdent || tok.Text != "defined" {
			out.WriteString(tok.Text)
			continue
		}
		b.skipSpace()
		paren := false
		if next, ok := b.Peek(); ok && next.IsKeyword("(") {
			b.Read()
			b.skipSpace()
			paren = true
		}
		id, ok := b.Read()
		if !ok {
			return "", errorf("no ID after defined")
		}
		if id.Kind != KindIdent {
			return "", errorf("shall be ID after defined")
		}
		if paren {
			b.skipSpace()
			end, ok := b.Read()
			if !ok {
				return "", errorf("no ) for defined")
			}
			if !end.IsKeyword(")") {
				return "", errorf("shall be ) after defined")
			}
		}
		if _, def := s.macros[id.Text]; def {
			out.WriteString("1")
		} else {
			out.WriteString("0")
		}
	}
	return out.String(), nil
}
