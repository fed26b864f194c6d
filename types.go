package main

import (
	"strings"

	lltypes "github.com/llir/llvm/ir/types"
)

// TypeKind is the base of a Plush type, before array nesting.
type TypeKind int

const (
	KindInt TypeKind = iota
	KindFloat
	KindString
	KindChar
	KindBool
	KindVoid
	KindStruct
)

// TypeNode is a resolved Plush type.
//
// ArrayDepth is 0 for scalars; [int] has depth 1, [[int]] depth 2. StructName
// is only meaningful when Kind is KindStruct.
type TypeNode struct {
	Kind       TypeKind
	ArrayDepth int
	StructName string
}

var (
	TypeInt    = &TypeNode{Kind: KindInt}
	TypeFloat  = &TypeNode{Kind: KindFloat}
	TypeString = &TypeNode{Kind: KindString}
	TypeChar   = &TypeNode{Kind: KindChar}
	TypeBool   = &TypeNode{Kind: KindBool}
	TypeVoid   = &TypeNode{Kind: KindVoid}
)

// StructType returns the scalar type of the named struct.
func StructType(name string) *TypeNode {
	return &TypeNode{Kind: KindStruct, StructName: name}
}

// ArrayOf wraps t in one more level of array nesting.
func ArrayOf(t *TypeNode) *TypeNode {
	return &TypeNode{Kind: t.Kind, ArrayDepth: t.ArrayDepth + 1, StructName: t.StructName}
}

// ElementType returns the type produced by indexing t once.
func ElementType(t *TypeNode) *TypeNode {
	if t.ArrayDepth == 0 {
		panic("ElementType of non-array type " + TypeToString(t))
	}
	return &TypeNode{Kind: t.Kind, ArrayDepth: t.ArrayDepth - 1, StructName: t.StructName}
}

// TypesEqual compares two types structurally.
func TypesEqual(a, b *TypeNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.ArrayDepth != b.ArrayDepth {
		return false
	}
	if a.Kind == KindStruct {
		return a.StructName == b.StructName
	}
	return true
}

func (t *TypeNode) IsArray() bool {
	return t.ArrayDepth > 0
}

// IsStruct reports whether t is a struct value (not an array of structs).
func (t *TypeNode) IsStruct() bool {
	return t.Kind == KindStruct && t.ArrayDepth == 0
}

func (t *TypeNode) IsVoid() bool {
	return t.Kind == KindVoid && t.ArrayDepth == 0
}

// isScalar reports whether values of t are held directly in registers
// (as opposed to strings, arrays and structs, which are held by address).
func (t *TypeNode) isScalar() bool {
	if t.ArrayDepth > 0 {
		return false
	}
	switch t.Kind {
	case KindInt, KindFloat, KindChar, KindBool:
		return true
	}
	return false
}

func (t *TypeNode) String() string {
	return TypeToString(t)
}

// TypeToString renders t the way it is written in Plush source.
func TypeToString(t *TypeNode) string {
	if t == nil {
		return "<untyped>"
	}
	var base string
	switch t.Kind {
	case KindInt:
		base = "int"
	case KindFloat:
		base = "float"
	case KindString:
		base = "string"
	case KindChar:
		base = "char"
	case KindBool:
		base = "bool"
	case KindVoid:
		base = "void"
	case KindStruct:
		base = "struct " + t.StructName
	default:
		base = "?"
	}
	return strings.Repeat("[", t.ArrayDepth) + base + strings.Repeat("]", t.ArrayDepth)
}

// Mutability says whether a binding or struct field may be reassigned.
type Mutability int

const (
	MutVar Mutability = iota
	MutVal
)

func (m Mutability) String() string {
	if m == MutVal {
		return "val"
	}
	return "var"
}

// llvmPtr is the opaque pointer type used for strings, arrays and struct values.
const llvmPtr = "ptr"

// LLVMType returns the IR type used to pass a value of type t around:
// scalars map to their integer/float type, everything held by address is ptr.
func LLVMType(t *TypeNode) string {
	if t.ArrayDepth > 0 {
		return llvmPtr
	}
	switch t.Kind {
	case KindInt:
		return lltypes.I32.LLString()
	case KindFloat:
		return lltypes.Float.LLString()
	case KindBool:
		return lltypes.I1.LLString()
	case KindChar:
		return lltypes.I8.LLString()
	case KindVoid:
		return lltypes.Void.LLString()
	case KindString, KindStruct:
		return llvmPtr
	}
	panic("LLVMType: unknown type kind")
}

// LLVMStorageType returns the IR type of the memory that holds a value of
// type t. It differs from LLVMType only for structs, which are stored inline
// as their named aggregate.
func LLVMStorageType(t *TypeNode) string {
	if t.IsStruct() {
		return LLVMStructName(t.StructName)
	}
	return LLVMType(t)
}

// LLVMStructName is the IR name of the aggregate type for a struct.
func LLVMStructName(name string) string {
	return "%" + name
}
