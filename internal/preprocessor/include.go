package preprocessor

import (
	"os"
	"path/filepath"
	"strings"
)

// resolveInclude finds name the way the include directive asks for it. The
// quote form tries the directories of the open files, innermost first,
// before the include path; the angle form uses the include path only.
func (s *Session) resolveInclude(name string, angled bool) (string, error) {
	if filepath.IsAbs(name) {
		if fileExists(name) {
			return filepath.Clean(name), nil
		}
		return "", errorf("include file %s not found", name)
	}
	if !angled {
		for i := len(s.opened) - 1; i >= 0; i-- {
			cand := filepath.Join(filepath.Dir(s.opened[i]), name)
			if fileExists(cand) {
				return filepath.Abs(cand)
			}
		}
	}
	for _, dir := range s.opts.IncludeDirs {
		cand := filepath.Join(dir, name)
		if fileExists(cand) {
			return filepath.Abs(cand)
		}
	}
	if angled {
		return "", errorf("include file <%s> not found", name)
	}
	return "", errorf("include file %q not found", name)
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// displayName is how a file appears in line markers, __FILE__ and error
// messages: its base name when it sits next to the top-level input,
// otherwise its absolute path.
func (s *Session) displayName(path string) string {
	if filepath.Dir(path) == filepath.Dir(s.top) {
		return filepath.Base(path)
	}
	return path
}

// glue joins backslash-continued lines. Every swallowed line break is
// re-emitted as an empty line after the joined one so later lines keep
// their numbers.
func glue(text string) string {
	if !strings.Contains(text, "\\") {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var cur strings.Builder
	joined := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r\v\f")
		if strings.HasSuffix(trimmed, "\\") {
			cur.WriteString(trimmed[:len(trimmed)-1])
			joined++
			continue
		}
		if joined == 0 {
			out = append(out, line)
			continue
		}
		cur.WriteString(line)
		out = append(out, cur.String())
		for ; joined > 0; joined-- {
			out = append(out, "")
		}
		cur.Reset()
	}
	if joined > 0 {
		out = append(out, cur.String())
		for ; joined > 1; joined-- {
			out = append(out, "")
		}
	}
	return strings.Join(out, "\n")
}

// scanSource tokenizes a whole file: continuation lines are glued, the
// first pass turns comments into newlines and the second pass recognizes
// directives on the comment-free text.
func scanSource(text, name string) (*buffer, error) {
	first := newScanner(glue(text), name, 1, modeText)
	first.locate = true
	b, err := drain(first)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, tok := range b.toks {
		sb.WriteString(tok.Text)
	}
	second := newScanner(sb.String(), name, 1, modeDirectives)
	second.locate = true
	return drain(second)
}
