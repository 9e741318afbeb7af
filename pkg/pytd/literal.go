package pytd

import (
	"strconv"
	"strings"
)

// LiteralKind represents the kind of value held by a LiteralType.
type LiteralKind int

// LiteralKind constants for literal value kinds.
const (
	LiteralInt LiteralKind = iota
	LiteralStr
	LiteralBytes
	LiteralBool
)

// LiteralValue is the constant carried by a LiteralType.
type LiteralValue struct {
	Kind LiteralKind
	Int  int64
	Str  string // raw content for LiteralStr and LiteralBytes
	Bool bool
}

// IntLiteral returns Literal[v] for an integer.
func IntLiteral(v int64) *LiteralType {
	return &LiteralType{Value: LiteralValue{Kind: LiteralInt, Int: v}}
}

// StrLiteral returns Literal['v'].
func StrLiteral(v string) *LiteralType {
	return &LiteralType{Value: LiteralValue{Kind: LiteralStr, Str: v}}
}

// BytesLiteral returns Literal[b'v'].
func BytesLiteral(v string) *LiteralType {
	return &LiteralType{Value: LiteralValue{Kind: LiteralBytes, Str: v}}
}

// BoolLiteral returns Literal[True] or Literal[False].
func BoolLiteral(v bool) *LiteralType {
	return &LiteralType{Value: LiteralValue{Kind: LiteralBool, Bool: v}}
}

// String renders the value the way it appears inside Literal[...].
func (v LiteralValue) String() string {
	switch v.Kind {
	case LiteralInt:
		return strconv.FormatInt(v.Int, 10)
	case LiteralStr:
		return quote(v.Str)
	case LiteralBytes:
		return "b" + quote(v.Str)
	case LiteralBool:
		if v.Bool {
			return "True"
		}
		return "False"
	}
	return ""
}

// quote renders s as a single-quoted string literal, switching to double
// quotes when s contains a single quote and no double quote.
func quote(s string) string {
	q := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		q = '"'
	}
	var sb strings.Builder
	sb.WriteByte(q)
	for _, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == rune(q):
			sb.WriteByte('\\')
			sb.WriteByte(q)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			sb.WriteString(`\x`)
			sb.WriteString(strconv.FormatInt(int64(r)+0x100, 16)[1:])
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}

// PyvalKind is the source type of a constant written where a type is expected.
type PyvalKind int

// PyvalKind constants.
const (
	PyvalNone PyvalKind = iota
	PyvalInt
	PyvalFloat
	PyvalStr
	PyvalBytes
	PyvalBool
)

// Pyval is a constant value written in a type position, such as the True in
// "class Foo(TypedDict, total=True)" or the 1 in "Literal[1]".
type Pyval struct {
	Kind  PyvalKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

// ToLiteral converts the value to its canonical type form.
// None becomes NoneType; floats are rejected.
func (v Pyval) ToLiteral() (Type, error) {
	switch v.Kind {
	case PyvalNone:
		return &NamedType{Name: "NoneType"}, nil
	case PyvalInt:
		return IntLiteral(v.Int), nil
	case PyvalStr:
		return StrLiteral(v.Str), nil
	case PyvalBytes:
		return BytesLiteral(v.Str), nil
	case PyvalBool:
		return BoolLiteral(v.Bool), nil
	case PyvalFloat:
		return nil, Errorf("Invalid type `float` in Literal[%s].",
			strconv.FormatFloat(v.Float, 'g', -1, 64))
	}
	return nil, Errorf("unknown literal value kind %d", v.Kind)
}
