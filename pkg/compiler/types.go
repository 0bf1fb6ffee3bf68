package compiler

import (
	"fmt"
	"strings"
)

// TypeKind enumerates the primitive Pixardis types.
type TypeKind int

const (
	KindInt TypeKind = iota
	KindFloat
	KindBool
	KindColour
)

var typeKindNames = [...]string{
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindColour: "colour",
}

func (k TypeKind) String() string {
	if int(k) >= 0 && int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// Type describes a Pixardis value type: a primitive, or a fixed-size array
// of a primitive. The zero Type is int.
type Type struct {
	Kind    TypeKind
	IsArray bool
	Len     int // element count; meaningful only when IsArray
}

func (t Type) String() string {
	if t.IsArray {
		return fmt.Sprintf("%s[%d]", t.Kind, t.Len)
	}
	return t.Kind.String()
}

// Elem returns the element type of an array type.
func (t Type) Elem() Type {
	return Type{Kind: t.Kind}
}

// Equal reports whether two types are identical (kind, arrayness and length).
func (t Type) Equal(o Type) bool {
	return t.Kind == o.Kind && t.IsArray == o.IsArray && (!t.IsArray || t.Len == o.Len)
}

// Numeric reports whether t is a scalar int or float.
func (t Type) Numeric() bool {
	return !t.IsArray && (t.Kind == KindInt || t.Kind == KindFloat)
}

// Scalar reports whether t is a non-array type.
func (t Type) Scalar() bool {
	return !t.IsArray
}

// castAllowed reports whether `expr as target` is a permitted conversion:
// int<->float, int<->colour, bool<->int.
func castAllowed(from, to Type) bool {
	if from.IsArray || to.IsArray {
		return false
	}
	if from.Kind == to.Kind {
		return true
	}
	switch {
	case from.Kind == KindInt && to.Kind == KindFloat:
		return true
	case from.Kind == KindFloat && to.Kind == KindInt:
		return true
	case from.Kind == KindInt && to.Kind == KindColour:
		return true
	case from.Kind == KindColour && to.Kind == KindInt:
		return true
	case from.Kind == KindBool && to.Kind == KindInt:
		return true
	case from.Kind == KindInt && to.Kind == KindBool:
		return true
	}
	return false
}

// FuncSig is a function signature (T1,...,Tn) -> T.
type FuncSig struct {
	Params []Type
	Ret    Type
}

func (s FuncSig) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ","), s.Ret)
}
