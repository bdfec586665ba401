package preprocessor

import (
	"strings"
)

var directiveNames = map[string]bool{
	"if":           true,
	"else":         true,
	"endif":        true,
	"elif":         true,
	"ifdef":        true,
	"ifndef":       true,
	"include":      true,
	"define":       true,
	"error":        true,
	"line":         true,
	"pragma":       true,
	"include_once": true,
	"undef":        true,
}

// Directive is the parsed form of one '#' line: "#<Name> <Remain>".
type Directive struct {
	Name   string
	Remain string
}

// IsNull reports whether the line held nothing but the '#'.
func (d *Directive) IsNull() bool { return d.Name == "" }

func (d *Directive) isConditional() bool {
	switch d.Name {
	case "if", "ifdef", "ifndef", "elif", "else", "endif":
		return true
	}
	return false
}

// parseDirective parses the text following '#', up to and including the
// newline.
func parseDirective(body string) (*Directive, error) {
	origin := strings.TrimSpace(body)
	if origin == "" {
		return &Directive{}, nil
	}
	name, rest, ok := readIdent(origin)
	if !ok {
		return nil, errorf("#%s not start by an identifier", origin)
	}
	if !directiveNames[name] {
		return nil, errorf("#%s is unknown", name)
	}
	return &Directive{Name: name, Remain: strings.TrimSpace(rest)}, nil
}

// parseDefine splits the operand of #define into name, parameter list and
// replacement text. params is nil for object-like macros and non-nil
// (possibly empty) for function-like ones.
func parseDefine(arg string) (name string, params []string, body string, err error) {
	name, rest, ok := readIdent(strings.TrimSpace(arg))
	if !ok {
		return "", nil, "", errorf("define name not exist")
	}

	// function-like only if '(' immediately follows name
	if strings.HasPrefix(rest, "(") {
		j := strings.IndexByte(rest, ')')
		if j < 0 {
			return "", nil, "", errorf("macro %s: parameter list not closed", name)
		}
		paramStr := rest[1:j]
		body = rest[j+1:]
		params = []string{}
		if strings.TrimSpace(paramStr) != "" {
			for _, p := range strings.Split(paramStr, ",") {
				params = append(params, strings.TrimSpace(p))
			}
		}
		for i, p := range params {
			if p == "..." && i == len(params)-1 {
				continue
			}
			if !isIdent(p) {
				return "", nil, "", errorf("macro arguments name is not well-formed")
			}
		}
		return name, params, strings.TrimSpace(body), nil
	}
	return name, nil, strings.TrimSpace(rest), nil
}

// parseIncludeArg strips the delimiters of a "name" or <name> operand.
func parseIncludeArg(arg string) (path string, angled bool, ok bool) {
	arg = strings.TrimSpace(arg)
	if len(arg) >= 2 && arg[0] == '"' && arg[len(arg)-1] == '"' {
		return strings.TrimSpace(arg[1 : len(arg)-1]), false, true
	}
	if len(arg) >= 2 && arg[0] == '<' && arg[len(arg)-1] == '>' {
		return strings.TrimSpace(arg[1 : len(arg)-1]), true, true
	}
	return "", false, false
}

// ParseDefine splits a NAME=VALUE command line definition; a bare NAME
// is defined as 1.
func ParseDefine(s string) (name, value string) {
	if i := strings.IndexByte(s, '='); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, "1"
}
