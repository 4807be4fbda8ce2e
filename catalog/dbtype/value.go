// Package dbtype implements the engine's small closed set of column types,
// following the teacher's catalog/db_types package: each type knows how to
// compare, serialize, and report the fixed width of its values. Only
// fixed-width, inlined columns are supported, matching the teacher (whose
// non-inlined path is explicitly unimplemented).
package dbtype

import (
	"encoding/binary"
	"fmt"
)

// Kind identifies a column's type.
type Kind uint8

const (
	KindInteger Kind = iota + 1
	KindVarchar
	KindBoolean
)

// TypeID carries a Kind plus, for Varchar, the fixed capacity in bytes.
type TypeID struct {
	Kind Kind
	Size uint32 // capacity, in bytes, for Varchar; unused otherwise
}

// Value is a typed column value.
type Value struct {
	typeID TypeID
	v      interface{}
}

func (v Value) TypeID() TypeID { return v.typeID }

func (v Value) AsInt32() int32 { return v.v.(int32) }

func (v Value) AsString() string { return v.v.(string) }

func (v Value) AsBool() bool { return v.v.(bool) }

func (v Value) IsNull() bool { return v.v == nil }

func NewInt(i int32) Value   { return Value{typeID: TypeID{Kind: KindInteger}, v: i} }
func NewBool(b bool) Value   { return Value{typeID: TypeID{Kind: KindBoolean}, v: b} }
func NewVarchar(s string, capacity uint32) Value {
	return Value{typeID: TypeID{Kind: KindVarchar, Size: capacity}, v: s}
}
func NewNull(t TypeID) Value { return Value{typeID: t, v: nil} }

// Size returns the fixed, inlined width of t in bytes.
func Size(t TypeID) int {
	switch t.Kind {
	case KindInteger:
		return 4
	case KindBoolean:
		return 1
	case KindVarchar:
		return int(t.Size)
	default:
		panic(fmt.Sprintf("dbtype: unknown kind %v", t.Kind))
	}
}

// Serialize writes v into dst, which must be at least Size(v.TypeID())
// bytes.
func Serialize(dst []byte, v Value) {
	switch v.typeID.Kind {
	case KindInteger:
		binary.LittleEndian.PutUint32(dst, uint32(v.AsInt32()))
	case KindBoolean:
		if v.AsBool() {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case KindVarchar:
		s := v.AsString()
		n := copy(dst[:v.typeID.Size], s)
		for i := n; i < int(v.typeID.Size); i++ {
			dst[i] = 0
		}
	default:
		panic(fmt.Sprintf("dbtype: unknown kind %v", v.typeID.Kind))
	}
}

// Deserialize reads a value of type t from src.
func Deserialize(t TypeID, src []byte) Value {
	switch t.Kind {
	case KindInteger:
		return NewInt(int32(binary.LittleEndian.Uint32(src)))
	case KindBoolean:
		return NewBool(src[0] != 0)
	case KindVarchar:
		n := 0
		for n < int(t.Size) && src[n] != 0 {
			n++
		}
		return NewVarchar(string(src[:n]), t.Size)
	default:
		panic(fmt.Sprintf("dbtype: unknown kind %v", t.Kind))
	}
}

// Less reports whether a orders before b. Both must share a TypeID.
func Less(a, b Value) bool {
	switch a.typeID.Kind {
	case KindInteger:
		return a.AsInt32() < b.AsInt32()
	case KindBoolean:
		return !a.AsBool() && b.AsBool()
	case KindVarchar:
		return a.AsString() < b.AsString()
	default:
		panic(fmt.Sprintf("dbtype: unknown kind %v", a.typeID.Kind))
	}
}

// Equal reports whether a and b hold the same value.
func Equal(a, b Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() == b.IsNull()
	}
	switch a.typeID.Kind {
	case KindInteger:
		return a.AsInt32() == b.AsInt32()
	case KindBoolean:
		return a.AsBool() == b.AsBool()
	case KindVarchar:
		return a.AsString() == b.AsString()
	default:
		panic(fmt.Sprintf("dbtype: unknown kind %v", a.typeID.Kind))
	}
}

// Add supports the sum aggregator; only meaningful for Integer.
func Add(a, b Value) Value {
	return NewInt(a.AsInt32() + b.AsInt32())
}
