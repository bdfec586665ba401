package preprocessor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type condStep struct {
	op    string // if, elif, else, endif
	value bool
}

// runCond replays steps and records Active after each one along with the
// number of conditions actually evaluated.
func runCond(steps []condStep) ([]bool, int, error) {
	c := newCondStack()
	evals := 0
	var got []bool
	for _, st := range steps {
		v := st.value
		eval := func() (bool, error) {
			evals++
			return v, nil
		}
		tok := Token{Kind: KindDirective, Text: "#" + st.op}
		var err error
		switch st.op {
		case "if":
			err = c.Push(tok, eval)
		case "elif":
			err = c.Elif(tok, eval)
		case "else":
			err = c.Else(tok)
		case "endif":
			err = c.Endif()
		}
		if err != nil {
			return got, evals, err
		}
		got = append(got, c.Active())
	}
	return got, evals, nil
}

func TestCondStack(t *testing.T) {
	tests := []struct {
		name  string
		steps []condStep
		want  []bool
		evals int
	}{
		{
			"if taken",
			[]condStep{{"if", true}, {"else", false}, {"endif", false}},
			[]bool{true, false, true},
			1,
		},
		{
			"first true elif wins",
			[]condStep{{"if", false}, {"elif", true}, {"elif", true}, {"else", false}, {"endif", false}},
			[]bool{false, true, false, false, true},
			2,
		},
		{
			"else after failed chain",
			[]condStep{{"if", false}, {"elif", false}, {"else", false}, {"endif", false}},
			[]bool{false, false, true, true},
			2,
		},
		{
			"nested in skipped region is never evaluated",
			[]condStep{
				{"if", false},
				{"if", true}, {"elif", true}, {"else", false}, {"endif", false},
				{"endif", false},
			},
			[]bool{false, false, false, false, false, true},
			1,
		},
		{
			"nested in active region",
			[]condStep{
				{"if", true},
				{"if", false}, {"else", false}, {"endif", false},
				{"endif", false},
			},
			[]bool{true, false, true, true, true},
			2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, evals, err := runCond(tt.steps)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			if evals != tt.evals {
				t.Errorf("evaluated %d conditions, want %d", evals, tt.evals)
			}
		})
	}
}

func TestBadCondStack(t *testing.T) {
	tests := []struct {
		steps []condStep
		error string
	}{
		{[]condStep{{"elif", true}}, "#elif has no corresponding #if"},
		{[]condStep{{"else", false}}, "#else has no corresponding #if"},
		{[]condStep{{"endif", false}}, "#endif has no corresponding #if"},
		{[]condStep{{"if", true}, {"else", false}, {"else", false}}, "#else after #else"},
		{[]condStep{{"if", true}, {"else", false}, {"elif", true}}, "#elif after #else"},
		{[]condStep{{"if", true}, {"endif", false}, {"endif", false}}, "#endif has no corresponding #if"},
	}
	for _, tt := range tests {
		_, _, err := runCond(tt.steps)
		if err == nil {
			t.Errorf("expected error %q", tt.error)
			continue
		}
		if diff := cmp.Diff(tt.error, err.Error()); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestUnclosed(t *testing.T) {
	c := newCondStack()
	if _, open := c.Unclosed(); open {
		t.Fatal("empty stack reports an open chain")
	}
	always := func() (bool, error) { return true, nil }
	c.Push(Token{Text: "#if A\n"}, always)
	c.Push(Token{Text: "#ifdef B\n"}, always)
	c.Elif(Token{Text: "#elif C\n"}, always)
	tok, open := c.Unclosed()
	if !open || tok.Text != "#elif C\n" {
		t.Errorf("got %q (open %v), want the #elif of the inner chain", tok.Text, open)
	}
	if c.Depth() != 2 {
		t.Errorf("depth %d, want 2", c.Depth())
	}
}
