package main

// FuncSignature describes a callable function.
type FuncSignature struct {
	Name       string
	Params     []Param
	ReturnType *TypeNode
	Line       int

	// Builtin functions are linked from the C runtime (or evaluated natively
	// by the interpreter) and have no Plush declaration.
	Builtin bool
	// HasDecl is set by a header-only declaration, HasBody by a definition.
	HasDecl bool
	HasBody bool
}

func builtin(name string, ret *TypeNode, params ...*TypeNode) *FuncSignature {
	sig := &FuncSignature{Name: name, ReturnType: ret, Builtin: true}
	for i, p := range params {
		sig.Params = append(sig.Params, Param{Mutability: MutVal, Name: "arg" + string(rune('0'+i)), Type: p})
	}
	return sig
}

// newBuiltinTable returns a fresh copy of the builtin function table.
func newBuiltinTable() map[string]*FuncSignature {
	intArray := ArrayOf(TypeInt)
	sigs := []*FuncSignature{
		builtin("print_int", TypeVoid, TypeInt),
		builtin("print_float", TypeVoid, TypeFloat),
		builtin("print_bool", TypeVoid, TypeBool),
		builtin("print_str", TypeVoid, TypeString),
		builtin("print_char", TypeVoid, TypeChar),
		builtin("print_int_array", TypeVoid, intArray, TypeInt),
		builtin("print_float_array", TypeVoid, ArrayOf(TypeFloat), TypeInt),
		builtin("print_str_array", TypeVoid, ArrayOf(TypeString), TypeInt),
		builtin("print_char_array", TypeVoid, ArrayOf(TypeChar), TypeInt),
		builtin("print_bool_array", TypeVoid, ArrayOf(TypeBool), TypeInt),
		builtin("int_array", intArray, TypeInt),
		builtin("float_array", ArrayOf(TypeFloat), TypeInt),
		builtin("str_array", ArrayOf(TypeString), TypeInt),
		builtin("char_array", ArrayOf(TypeChar), TypeInt),
		builtin("bool_array", ArrayOf(TypeBool), TypeInt),
		builtin("int_array_array", ArrayOf(intArray), TypeInt),
		builtin("copy_int_array", TypeVoid, intArray, intArray, TypeInt),
		builtin("pow_int", TypeInt, TypeInt, TypeInt),
	}
	table := make(map[string]*FuncSignature, len(sigs))
	for _, sig := range sigs {
		table[sig.Name] = sig
	}
	return table
}

// Intrinsic declarations the generator may need regardless of user code.
const (
	declMemcpy = "declare void @llvm.memcpy.p0.p0.i64(ptr, ptr, i64, i1)"
	declPowF32 = "declare float @llvm.pow.f32(float, float)"
	declMalloc = "declare ptr @malloc(i64)"
)
