package preprocessor

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var exprTests = []struct {
	expr  string
	value string
}{
	{"1 + 2 * 3", "7"},
	{"(1 + 2) * 3", "9"},
	{"1 - 2 - 3", "-4"},
	{"2 ** 3 ** 2", "64"},
	{"2 ** (3 ** 2)", "512"},
	{"-2 ** 2", "4"},
	{"2 ** -1", "0"},
	{"1 ** -5", "1"},
	{"(-1) ** -3", "-1"},
	{"7 / 2", "3"},
	{"-7 / 2", "-3"},
	{"-7 // 2", "-4"},
	{"7 // -2", "-4"},
	{"8 // 2", "4"},
	{"-7 % 2", "-1"},
	{"1 << 4 | 1", "17"},
	{"3 & 6 ^ 1", "3"},
	{"-1 >> 1", "-1"},
	{"-1u >> 63", "1u"},
	{"0u - 1", "18446744073709551615u"},
	{"-1 < 0", "1"},
	{"-1 < 0u", "0"},
	{"1 == 1u", "1"},
	{"2 >= 2 && 3 != 4", "1"},
	{"!0", "1"},
	{"!5", "0"},
	{"~0", "-1"},
	{"+3", "3"},
	{"'A'", "65"},
	{`'\n'`, "10"},
	{`'\0'`, "0"},
	{`'\101'`, "65"},
	{"0x1F", "31"},
	{"0xE", "14"},
	{"0x1fULL", "31u"},
	{"0xffsz", "255u"},
	{"0b101", "5"},
	{"010", "8"},
	{"10L", "10"},
	{"9223372036854775808", "9223372036854775808u"},
	{"1 ? 2 : 3", "2"},
	{"0 ? 2 : 3", "3"},
	{"0 ? 1 : 0 ? 5 : 6", "6"},
	{"1 ? 2, 3 : 4", "3"},
	{"1, 2, 3", "3"},
	{"FOO + 1", "1"},
	{"0 && 1 / 0", "0"},
	{"1 || 1 / 0", "1"},
	{"0 ? 1 / 0 : 2", "2"},
}

func TestEvalExpr(t *testing.T) {
	for _, tt := range exprTests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := ParseExpr(tt.expr)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			v, err := EvalExpr(e)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			if diff := cmp.Diff(tt.value, v.String()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

var badExprTests = []struct {
	expr  string
	error string
}{
	{"", "cond-root or () should have values"},
	{"()", "cond-root or () should have values"},
	{"1 +", "should have something but nothing to parse"},
	{"(1", "brackets not matched"},
	{"1 2", `unexpected "2" in condition`},
	{"1 ? 2", "missing ':' in conditional expression"},
	{"* 1", `unexpected "*" where a value should start`},
	{"1 @", "condition tokenizer: unexpected character '@' in condition"},
	{"1 / 0", "division by zero"},
	{"1 % (2 - 2)", "division by zero"},
	{"0 ** -1", "division by zero"},
}

func TestBadExpr(t *testing.T) {
	for _, tt := range badExprTests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := ParseExpr(tt.expr)
			if err == nil {
				_, err = EvalExpr(e)
			}
			if err == nil {
				t.Fatalf("expected error %q", tt.error)
			}
			if diff := cmp.Diff(tt.error, err.Error()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseExprTree(t *testing.T) {
	lit := func(v int64) Expr { return &Literal{Val: Signed(v)} }
	tests := []struct {
		expr string
		want Expr
	}{
		{"1 + 2 * 3", &Binary{Op: "+", X: lit(1), Y: &Binary{Op: "*", X: lit(2), Y: lit(3)}}},
		{"a - b - c", &Binary{Op: "-", X: &Binary{Op: "-", X: &Ident{Name: "a"}, Y: &Ident{Name: "b"}}, Y: &Ident{Name: "c"}}},
		{"2 ** 3 ** 2", &Binary{Op: "**", X: &Binary{Op: "**", X: lit(2), Y: lit(3)}, Y: lit(2)}},
		{"-2 ** 2", &Binary{Op: "**", X: &Unary{Op: "-", X: lit(2)}, Y: lit(2)}},
		{"!-x", &Unary{Op: "!", X: &Unary{Op: "-", X: &Ident{Name: "x"}}}},
		{"c ? 1 : 2", &Ternary{Cond: &Ident{Name: "c"}, Then: lit(1), Else: lit(2)}},
		{"(1, 2)", &Sequence{List: []Expr{lit(1), lit(2)}}},
	}
	for _, tt := range tests {
		got, err := ParseExpr(tt.expr)
		if err != nil {
			t.Fatalf("%s: %v", tt.expr, err)
		}
		if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(Value{})); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", tt.expr, diff)
		}
	}
}

func TestUnsolvedIdentifierIsReported(t *testing.T) {
	e, err := ParseExpr("A || B && 0")
	if err != nil {
		t.Fatal(err)
	}
	log := &recorder{}
	ev := &evaluator{log: log}
	v, err := ev.eval(e)
	if err != nil {
		t.Fatal(err)
	}
	if v.Bool() {
		t.Errorf("got %s, want 0", v)
	}
	want := []string{
		"information: unsolved identifier A in condition",
		"information: unsolved identifier B in condition",
	}
	if diff := cmp.Diff(want, log.records); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestValueRepresentation(t *testing.T) {
	tests := []struct {
		expr     string
		unsigned bool
		i        int64
		u        uint64
	}{
		{"-5", false, -5, math.MaxUint64 - 4},
		{"0u - 1", true, -1, math.MaxUint64},
		{"1u + 1", true, 2, 2},
		{"-1 < 0u", false, 0, 0},
		{"0x7fffffffffffffff + 1", false, math.MinInt64, 1 << 63},
	}
	for _, tt := range tests {
		e, err := ParseExpr(tt.expr)
		if err != nil {
			t.Fatalf("%s: %v", tt.expr, err)
		}
		v, err := EvalExpr(e)
		if err != nil {
			t.Fatalf("%s: %v", tt.expr, err)
		}
		if v.IsUnsigned() != tt.unsigned || v.Int64() != tt.i || v.Uint64() != tt.u {
			t.Errorf("%s = (unsigned %v, %d, %d), want (unsigned %v, %d, %d)",
				tt.expr, v.IsUnsigned(), v.Int64(), v.Uint64(), tt.unsigned, tt.i, tt.u)
		}
	}
}
