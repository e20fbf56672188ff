// Package types implements the Fax type system (§3.1): a closed, structural
// sum type shared by MIR, LIR lowering and the code emitter.
package types

import (
	"fmt"
	"strings"

	"github.com/faxlang/faxc/internal/symbol"
)

// Kind discriminates the Type sum. Dispatch on Kind is exhaustive switch,
// never a visitor hierarchy, per the "closed sum type" guidance for IR nodes.
type Kind byte

const (
	KindInvalid Kind = iota
	KindUnit
	KindNever
	KindBool
	KindChar
	KindInt
	KindUInt
	KindFloat
	KindString
	KindAdt
	KindParam
	KindRef
	KindTuple
	KindArray
	KindSlice
	KindFn
	KindFuture
	KindPointer
	KindError
)

// IntWidth enumerates the supported integer/float bit widths (§3.1:
// Int{8,16,32,64,default=64}).
type IntWidth byte

const (
	Width8 IntWidth = 8
	Width16 IntWidth = 16
	Width32 IntWidth = 32
	Width64 IntWidth = 64

	DefaultIntWidth   = Width64
	DefaultFloatWidth = Width64
)

// Type is an immutable, structurally-comparable value. Recursive variants
// (Ref, Tuple, Array, Slice, Fn, Future, Pointer) hold pointers to Type so
// that equality can be computed by recursive structural comparison (Equal)
// rather than pointer identity, matching §3.1's "Equality is structural".
type Type struct {
	Kind Kind

	// Int/UInt/Float
	Width IntWidth

	// Adt
	Def symbol.DefId

	// Param
	ParamIndex uint32

	// Ref
	Mut bool
	Elem *Type // Ref, Array, Slice, Pointer, Future

	// Tuple, Fn args
	Elems []Type

	// Array
	Len uint64

	// Fn
	Ret *Type
}

var (
	Unit    = Type{Kind: KindUnit}
	Never   = Type{Kind: KindNever}
	Bool    = Type{Kind: KindBool}
	Char    = Type{Kind: KindChar}
	String  = Type{Kind: KindString}
	ErrType = Type{Kind: KindError}

	Int8    = Type{Kind: KindInt, Width: Width8}
	Int16   = Type{Kind: KindInt, Width: Width16}
	Int32   = Type{Kind: KindInt, Width: Width32}
	Int64   = Type{Kind: KindInt, Width: Width64}
	Int     = Int64 // default width per §3.1

	UInt8  = Type{Kind: KindUInt, Width: Width8}
	UInt16 = Type{Kind: KindUInt, Width: Width16}
	UInt32 = Type{Kind: KindUInt, Width: Width32}
	UInt64 = Type{Kind: KindUInt, Width: Width64}
	UInt   = UInt64

	Float32 = Type{Kind: KindFloat, Width: Width32}
	Float64 = Type{Kind: KindFloat, Width: Width64}
	Float   = Float64
)

// Adt returns the nominal type for the struct/enum definition def.
func Adt(def symbol.DefId) Type { return Type{Kind: KindAdt, Def: def} }

// Param returns the i-th generic type parameter.
func Param(i uint32) Type { return Type{Kind: KindParam, ParamIndex: i} }

// Ref returns a reference to elem, mutable or not.
func Ref(elem Type, mut bool) Type {
	return Type{Kind: KindRef, Elem: &elem, Mut: mut}
}

// Pointer returns a raw pointer to elem.
func Pointer(elem Type) Type {
	return Type{Kind: KindPointer, Elem: &elem}
}

// Tuple returns the product type of elems.
func Tuple(elems ...Type) Type {
	return Type{Kind: KindTuple, Elems: elems}
}

// Array returns a fixed-length array of elem.
func Array(elem Type, length uint64) Type {
	return Type{Kind: KindArray, Elem: &elem, Len: length}
}

// Slice returns an unsized view over elem.
func Slice(elem Type) Type {
	return Type{Kind: KindSlice, Elem: &elem}
}

// Fn returns a function type with the given argument types and return type.
func Fn(args []Type, ret Type) Type {
	return Type{Kind: KindFn, Elems: args, Ret: &ret}
}

// Future returns the type of a suspended computation yielding elem.
func Future(elem Type) Type {
	return Type{Kind: KindFuture, Elem: &elem}
}

// Equal reports whether t and other denote the same type, recursively.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindInt, KindUInt, KindFloat:
		return t.Width == other.Width
	case KindAdt:
		return t.Def == other.Def
	case KindParam:
		return t.ParamIndex == other.ParamIndex
	case KindRef, KindPointer, KindArray, KindSlice, KindFuture:
		if t.Mut != other.Mut || t.Len != other.Len {
			return false
		}
		return elemEqual(t.Elem, other.Elem)
	case KindTuple:
		return elemsEqual(t.Elems, other.Elems)
	case KindFn:
		return elemsEqual(t.Elems, other.Elems) && elemEqual(t.Ret, other.Ret)
	default:
		return true // Unit, Never, Bool, Char, String, Error, Invalid
	}
}

func elemEqual(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func elemsEqual(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// IsInteger reports whether t is Int or UInt of any width.
func (t Type) IsInteger() bool {
	return t.Kind == KindInt || t.Kind == KindUInt
}

// IsFloat reports whether t is Float of any width.
func (t Type) IsFloat() bool {
	return t.Kind == KindFloat
}

// IsNumeric reports whether t supports arithmetic (§4.C2 constant folding
// operates only on numeric operands).
func (t Type) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

// Signed reports whether t is a signed integer type.
func (t Type) Signed() bool {
	return t.Kind == KindInt
}

// Bits returns the bit width used to compute wrapping arithmetic (§4.C2) and
// register class selection (§4.C4). Panics on non-scalar types.
func (t Type) Bits() int {
	switch t.Kind {
	case KindInt, KindUInt, KindFloat:
		return int(t.Width)
	case KindBool:
		return 8
	case KindChar:
		return 32
	default:
		panic(fmt.Sprintf("types: Bits() on non-scalar kind %v", t.Kind))
	}
}

// Size returns the natural byte size of t (§4.C6 size/alignment table).
func (t Type) Size() int {
	switch t.Kind {
	case KindUnit:
		return 8 // materialization convention, §4.C6
	case KindNever, KindError:
		return 0
	case KindBool, KindChar:
		return 1
	case KindInt, KindUInt, KindFloat:
		return int(t.Width) / 8
	case KindString, KindRef, KindPointer, KindFn:
		return 8
	case KindArray:
		return t.Elem.Size() * int(t.Len)
	case KindTuple:
		sz := 0
		for _, e := range t.Elems {
			sz += e.Size()
		}
		return sz
	case KindSlice:
		return 16 // pointer + length
	case KindAdt:
		return 8 // opaque struct handle; real layout resolved by the ADT table
	default:
		return 8
	}
}

// Align returns the natural alignment of t, matching Size for all scalar
// and pointer-like kinds (§4.C6: "Size / alignment follow natural width").
func (t Type) Align() int {
	switch t.Kind {
	case KindTuple:
		max := 1
		for _, e := range t.Elems {
			if a := e.Align(); a > max {
				max = a
			}
		}
		return max
	case KindArray:
		return t.Elem.Align()
	default:
		sz := t.Size()
		if sz == 0 {
			return 1
		}
		return sz
	}
}

// String renders t for diagnostics and IR text dumps.
func (t Type) String() string {
	switch t.Kind {
	case KindInvalid:
		return "<invalid>"
	case KindUnit:
		return "()"
	case KindNever:
		return "!"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindInt:
		return fmt.Sprintf("i%d", t.Width)
	case KindUInt:
		return fmt.Sprintf("u%d", t.Width)
	case KindFloat:
		return fmt.Sprintf("f%d", t.Width)
	case KindString:
		return "string"
	case KindError:
		return "error"
	case KindAdt:
		return fmt.Sprintf("adt#%d", t.Def)
	case KindParam:
		return fmt.Sprintf("T%d", t.ParamIndex)
	case KindRef:
		if t.Mut {
			return "&mut " + t.Elem.String()
		}
		return "&" + t.Elem.String()
	case KindPointer:
		return "*" + t.Elem.String()
	case KindTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindArray:
		return fmt.Sprintf("[%s; %d]", t.Elem.String(), t.Len)
	case KindSlice:
		return "[" + t.Elem.String() + "]"
	case KindFn:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return fmt.Sprintf("fn(%s) -> %s", strings.Join(parts, ", "), t.Ret.String())
	case KindFuture:
		return "future<" + t.Elem.String() + ">"
	default:
		return "?"
	}
}
