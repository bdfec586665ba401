// Package report prints leveled diagnostics to the console.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

type Level int

const (
	Verbose Level = iota
	Detail
	Information
	Warning
	Error
	Critical
)

// DefaultLevel is the least severe level shown unless configured otherwise.
const DefaultLevel = Warning

var levelNames = [...]string{
	Verbose:     "verbose",
	Detail:      "detail",
	Information: "information",
	Warning:     "warning",
	Error:       "error",
	Critical:    "critical",
}

func (l Level) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

// ParseLevel accepts a level name, case-insensitively, or its number.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "info", "infomation":
		return Information, nil
	}
	for l, name := range levelNames {
		if s == name {
			return Level(l), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(levelNames) {
		return Level(n), nil
	}
	return 0, fmt.Errorf("unknown show level %q (verbose|detail|information|warning|error|critical)", s)
}

var levelStyles = [...]lipgloss.Style{
	Verbose:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	Detail:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	Information: lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
	Warning:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	Error:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	Critical:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

// Reporter writes records at or above a minimum level. It is safe for
// concurrent use; each record is written in one piece.
type Reporter struct {
	mu    sync.Mutex
	w     io.Writer
	min   Level
	color bool
}

func New(w io.Writer, min Level) *Reporter {
	return &Reporter{w: w, min: min, color: true}
}

// SetColor turns the colored level prefix on or off.
func (r *Reporter) SetColor(on bool) {
	r.mu.Lock()
	r.color = on
	r.mu.Unlock()
}

func (r *Reporter) Enabled(level Level) bool { return level >= r.min }

func (r *Reporter) Logf(level Level, format string, args ...interface{}) {
	if !r.Enabled(level) {
		return
	}
	prefix := level.String() + ":"
	msg := fmt.Sprintf(format, args...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.color && level >= 0 && int(level) < len(levelStyles) {
		prefix = levelStyles[level].Render(prefix)
	}
	fmt.Fprintf(r.w, "%s %s\n", prefix, msg)
}

// Report logs err at level, or does nothing when err is nil.
func (r *Reporter) Report(level Level, err error) {
	if err != nil {
		r.Logf(level, "%v", err)
	}
}
