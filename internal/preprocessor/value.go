package preprocessor

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Value is an #if operand: a 64-bit integer that is either signed or
// unsigned. The bits are shared; the flag decides how they are read.
type Value struct {
	bits     uint64
	unsigned bool
}

func Signed(v int64) Value    { return Value{bits: uint64(v)} }
func Unsigned(v uint64) Value { return Value{bits: v, unsigned: true} }

func (v Value) IsUnsigned() bool { return v.unsigned }
func (v Value) Int64() int64     { return int64(v.bits) }
func (v Value) Uint64() uint64   { return v.bits }
func (v Value) Bool() bool       { return v.bits != 0 }

func (v Value) String() string {
	if v.unsigned {
		return strconv.FormatUint(v.bits, 10) + "u"
	}
	return strconv.FormatInt(int64(v.bits), 10)
}

func boolValue(b bool) Value {
	if b {
		return Signed(1)
	}
	return Signed(0)
}

var errDivisionByZero = errorf("division by zero")

// binary applies a non-short-circuit operator. If either side is unsigned
// the whole operation, comparisons included, is carried out unsigned.
func binary(op string, x, y Value) (Value, error) {
	u := x.unsigned || y.unsigned
	switch op {
	case "+":
		return Value{x.bits + y.bits, u}, nil
	case "-":
		return Value{x.bits - y.bits, u}, nil
	case "*":
		return Value{x.bits * y.bits, u}, nil
	case "/", "%", "//":
		if y.bits == 0 {
			return Value{}, errDivisionByZero
		}
		if u {
			if op == "%" {
				return Unsigned(x.bits % y.bits), nil
			}
			return Unsigned(x.bits / y.bits), nil
		}
		a, b := int64(x.bits), int64(y.bits)
		switch op {
		case "%":
			return Signed(a % b), nil
		case "//":
			q := a / b
			if a%b != 0 && (a < 0) != (b < 0) {
				q--
			}
			return Signed(q), nil
		}
		return Signed(a / b), nil
	case "**":
		return power(x, y, u)
	case "<<":
		return Value{x.bits << y.bits, u}, nil
	case ">>":
		if u {
			return Unsigned(x.bits >> y.bits), nil
		}
		return Signed(int64(x.bits) >> y.bits), nil
	case "<", "<=", ">", ">=":
		var c int
		if u {
			c = cmpUnsigned(x.bits, y.bits)
		} else {
			c = cmpSigned(int64(x.bits), int64(y.bits))
		}
		switch op {
		case "<":
			return boolValue(c < 0), nil
		case "<=":
			return boolValue(c <= 0), nil
		case ">":
			return boolValue(c > 0), nil
		}
		return boolValue(c >= 0), nil
	case "==":
		return boolValue(x.bits == y.bits), nil
	case "!=":
		return boolValue(x.bits != y.bits), nil
	case "&":
		return Value{x.bits & y.bits, u}, nil
	case "^":
		return Value{x.bits ^ y.bits, u}, nil
	case "|":
		return Value{x.bits | y.bits, u}, nil
	}
	return Value{}, errorf("unknown binary operator %q", op)
}

func unary(op string, x Value) (Value, error) {
	switch op {
	case "+":
		return x, nil
	case "-":
		return Value{-x.bits, x.unsigned}, nil
	case "~":
		return Value{^x.bits, x.unsigned}, nil
	case "!":
		return boolValue(!x.Bool()), nil
	}
	return Value{}, errorf("unknown unary operator %q", op)
}

func cmpSigned(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpUnsigned(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// power raises x to y by repeated squaring, wrapping on overflow.
func power(x, y Value, u bool) (Value, error) {
	if !u && int64(y.bits) < 0 {
		switch int64(x.bits) {
		case 0:
			return Value{}, errDivisionByZero
		case 1:
			return Signed(1), nil
		case -1:
			if y.bits&1 == 1 {
				return Signed(-1), nil
			}
			return Signed(1), nil
		}
		return Signed(0), nil
	}
	base, exp, r := x.bits, y.bits, uint64(1)
	for exp > 0 {
		if exp&1 == 1 {
			r *= base
		}
		base *= base
		exp >>= 1
	}
	return Value{r, u}, nil
}

// parseIntLiteral converts an integer literal of an #if expression.
// 0x, 0b and leading-zero octal prefixes select the base; a suffix holding
// 'u', or ending in "sz", makes the value unsigned; other suffix letters
// are dropped.
func parseIntLiteral(text string) (Value, error) {
	s := strings.ToLower(text)
	if strings.Contains(s, ".") {
		return Value{}, errorf("float is not allowed in cond expression")
	}
	base, body := 10, s
	switch {
	case strings.HasPrefix(s, "0x"):
		base, body = 16, s[2:]
	case strings.HasPrefix(s, "0b"):
		base, body = 2, s[2:]
	}
	end := len(body)
	for end > 0 && isSuffixLetter(body[end-1], base) {
		end--
	}
	suffix := body[end:]
	body = body[:end]
	if base == 10 && len(body) > 1 && body[0] == '0' {
		base, body = 8, body[1:]
	}
	if body == "" {
		return Value{}, errorf("invalid integer literal %s", text)
	}
	n, err := strconv.ParseUint(body, base, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return Value{}, errorf("integer literal %s is too large", text)
		}
		return Value{}, errorf("invalid integer literal %s", text)
	}
	if strings.Contains(suffix, "u") || strings.HasSuffix(suffix, "sz") || n > math.MaxInt64 {
		return Unsigned(n), nil
	}
	return Signed(int64(n)), nil
}

func isSuffixLetter(c byte, base int) bool {
	if c < 'a' || c > 'z' {
		return false
	}
	return base != 16 || c > 'f'
}

// parseCharLiteral returns the ordinal of the first character of a
// single-quoted literal, escapes resolved.
func parseCharLiteral(text string) (Value, error) {
	body := text[1 : len(text)-1]
	if body == "" {
		return Value{}, errorf("empty character literal %s", text)
	}
	if len(body) > 1 && body[0] == '\\' && body[1] >= '0' && body[1] <= '7' {
		n, i := 0, 1
		for i < len(body) && i <= 3 && body[i] >= '0' && body[i] <= '7' {
			n = n*8 + int(body[i]-'0')
			i++
		}
		return Signed(int64(n)), nil
	}
	r, _, _, err := strconv.UnquoteChar(body, '\'')
	if err != nil {
		return Value{}, errorf("char(%s) unescape failed: %v", text, err)
	}
	return Signed(int64(r)), nil
}
