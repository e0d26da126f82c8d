package table

import "strconv"

type kind uint8

const (
	kindNull kind = iota
	kindNumber
	kindString
)

// Value is a sortable cell: a number, a string, or null.
type Value struct {
	kind kind
	num  float64
	str  string
}

// Num wraps a numeric cell.
func Num(v float64) Value { return Value{kind: kindNumber, num: v} }

// Str wraps a string cell.
func Str(v string) Value { return Value{kind: kindString, str: v} }

// Null is the missing cell; it always sorts last.
func Null() Value { return Value{} }

// OptNum wraps an optional number, mapping nil to Null.
func OptNum(v *float64) Value {
	if v == nil {
		return Null()
	}
	return Num(*v)
}

// IsNull reports whether the cell is missing.
func (v Value) IsNull() bool { return v.kind == kindNull }

// String renders the cell for mixed-type comparison and display.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindString:
		return v.str
	default:
		return ""
	}
}

// Fields maps sort keys to cell extractors for a record type.
type Fields[T any] map[string]func(T) Value
