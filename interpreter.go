package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Value is a runtime value: int32, float32, bool, byte (char), string,
// *ArrayValue or *StructValue. Void calls produce nil.
type Value any

// ArrayValue is shared by reference, like the heap arrays of compiled code.
type ArrayValue struct {
	Elems []Value
}

// StructValue has value semantics: it is copied whenever it is bound,
// passed or assigned.
type StructValue struct {
	Name   string
	Fields []Value
}

type environment struct {
	vars   map[string]*Value
	parent *environment
}

func newEnvironment(parent *environment) *environment {
	return &environment{vars: make(map[string]*Value), parent: parent}
}

func (env *environment) lookup(name string) *Value {
	for e := env; e != nil; e = e.parent {
		if slot, ok := e.vars[name]; ok {
			return slot
		}
	}
	return nil
}

func (env *environment) bind(name string, v Value) {
	env.vars[name] = &v
}

// flow reports whether a statement executed a return.
type flow struct {
	returned bool
	value    Value
}

// Interpreter executes an analyzed program directly. The code generator also
// uses it to fold global initializers, so global constants in the IR are
// exactly what the interpreter computes.
type Interpreter struct {
	Stdout io.Writer

	tc      *TypeChecker
	funcs   map[string]*ASTNode
	globals *environment
}

func NewInterpreter(tc *TypeChecker) *Interpreter {
	return &Interpreter{
		Stdout:  os.Stdout,
		tc:      tc,
		funcs:   make(map[string]*ASTNode),
		globals: newEnvironment(nil),
	}
}

// Run initializes globals in source order and calls main. It returns main's
// result, or 0 if main is void.
func (in *Interpreter) Run(program *ASTNode) (int32, error) {
	for _, node := range program.Children {
		if node.Kind == NodeFunc {
			in.funcs[node.String] = node
		}
	}
	for _, node := range program.Children {
		if node.Kind != NodeVar {
			continue
		}
		v, err := in.eval(node.Children[0], in.globals)
		if err != nil {
			return 0, err
		}
		in.globals.bind(node.String, copyValue(v))
	}
	main, ok := in.funcs["main"]
	if !ok {
		return 0, &RuntimeError{Line: program.Line, Msg: "no main function"}
	}
	result, err := in.call(main, nil)
	if err != nil {
		return 0, err
	}
	if code, ok := result.(int32); ok {
		return code, nil
	}
	return 0, nil
}

// EvalConstant evaluates a compile-time constant expression.
func (in *Interpreter) EvalConstant(expr *ASTNode) (Value, error) {
	if !isConstantExpr(expr) {
		return nil, runtimeErrorf(expr, "expression is not constant")
	}
	return in.eval(expr, newEnvironment(nil))
}

func (in *Interpreter) zeroValue(t *TypeNode) Value {
	if t.IsArray() {
		return (*ArrayValue)(nil)
	}
	switch t.Kind {
	case KindInt:
		return int32(0)
	case KindFloat:
		return float32(0)
	case KindBool:
		return false
	case KindChar:
		return byte(0)
	case KindString:
		return ""
	case KindStruct:
		def := in.tc.Structs[t.StructName]
		sv := &StructValue{Name: def.Name, Fields: make([]Value, len(def.Fields))}
		for i, field := range def.Fields {
			sv.Fields[i] = in.zeroValue(field.Type)
		}
		return sv
	}
	return nil
}

func copyValue(v Value) Value {
	sv, ok := v.(*StructValue)
	if !ok {
		return v
	}
	out := &StructValue{Name: sv.Name, Fields: make([]Value, len(sv.Fields))}
	for i, f := range sv.Fields {
		out.Fields[i] = copyValue(f)
	}
	return out
}

func (in *Interpreter) call(fn *ASTNode, args []Value) (Value, error) {
	env := newEnvironment(in.globals)
	for i, param := range fn.Params {
		env.bind(param.Name, copyValue(args[i]))
	}
	for _, stmt := range fn.Children[0].Children {
		f, err := in.exec(stmt, env)
		if err != nil {
			return nil, err
		}
		if f.returned {
			return f.value, nil
		}
	}
	if fn.DeclType.IsVoid() {
		return nil, nil
	}
	return in.zeroValue(fn.DeclType), nil
}

func (in *Interpreter) exec(node *ASTNode, env *environment) (flow, error) {
	switch node.Kind {
	case NodeVar:
		v, err := in.eval(node.Children[0], env)
		if err != nil {
			return flow{}, err
		}
		env.bind(node.String, copyValue(v))

	case NodeBlock:
		inner := newEnvironment(env)
		for _, stmt := range node.Children {
			f, err := in.exec(stmt, inner)
			if err != nil || f.returned {
				return f, err
			}
		}

	case NodeAssign:
		set, err := in.locate(node.Children[0], env)
		if err != nil {
			return flow{}, err
		}
		v, err := in.eval(node.Children[1], env)
		if err != nil {
			return flow{}, err
		}
		set(copyValue(v))

	case NodeIf:
		cond, err := in.eval(node.Children[0], env)
		if err != nil {
			return flow{}, err
		}
		if cond.(bool) {
			return in.exec(node.Children[1], env)
		}
		if len(node.Children) > 2 {
			return in.exec(node.Children[2], env)
		}

	case NodeWhile:
		for {
			guard, err := in.eval(node.Children[0], env)
			if err != nil {
				return flow{}, err
			}
			if !guard.(bool) {
				break
			}
			f, err := in.exec(node.Children[1], env)
			if err != nil || f.returned {
				return f, err
			}
		}

	case NodeReturn:
		if len(node.Children) == 0 {
			return flow{returned: true}, nil
		}
		v, err := in.eval(node.Children[0], env)
		if err != nil {
			return flow{}, err
		}
		return flow{returned: true, value: v}, nil

	case NodeCall:
		_, err := in.eval(node, env)
		return flow{}, err

	default:
		return flow{}, runtimeErrorf(node, "cannot execute %s", node.Kind)
	}
	return flow{}, nil
}

// locate resolves an assignment target to a setter. Bases and indexes are
// evaluated before the assigned value.
func (in *Interpreter) locate(node *ASTNode, env *environment) (func(Value), error) {
	switch node.Kind {
	case NodeIdent:
		slot := env.lookup(node.String)
		if slot == nil {
			return nil, runtimeErrorf(node, "undefined variable '%s'", node.String)
		}
		return func(v Value) { *slot = v }, nil

	case NodeIndex:
		arr, i, err := in.element(node, env)
		if err != nil {
			return nil, err
		}
		return func(v Value) { arr.Elems[i] = v }, nil

	case NodeDot:
		sv, i, err := in.field(node, env)
		if err != nil {
			return nil, err
		}
		return func(v Value) { sv.Fields[i] = v }, nil
	}
	return nil, runtimeErrorf(node, "cannot assign to %s", node.Kind)
}

func (in *Interpreter) element(node *ASTNode, env *environment) (*ArrayValue, int, error) {
	base, err := in.eval(node.Children[0], env)
	if err != nil {
		return nil, 0, err
	}
	index, err := in.eval(node.Children[1], env)
	if err != nil {
		return nil, 0, err
	}
	arr := base.(*ArrayValue)
	if arr == nil {
		return nil, 0, runtimeErrorf(node, "index into uninitialized array")
	}
	i := int(index.(int32))
	if i < 0 || i >= len(arr.Elems) {
		return nil, 0, runtimeErrorf(node, "index %d out of range [0, %d)", i, len(arr.Elems))
	}
	return arr, i, nil
}

func (in *Interpreter) field(node *ASTNode, env *environment) (*StructValue, int, error) {
	base, err := in.eval(node.Children[0], env)
	if err != nil {
		return nil, 0, err
	}
	sv := base.(*StructValue)
	i, ok := in.tc.Structs[sv.Name].FieldIndex(node.String)
	if !ok {
		return nil, 0, runtimeErrorf(node, "struct '%s' has no field '%s'", sv.Name, node.String)
	}
	return sv, i, nil
}

func (in *Interpreter) eval(node *ASTNode, env *environment) (Value, error) {
	switch node.Kind {
	case NodeInteger:
		return int32(node.Integer), nil
	case NodeFloat:
		return float32(node.Float), nil
	case NodeString:
		return node.String, nil
	case NodeChar:
		return node.Char, nil
	case NodeBoolean:
		return node.Boolean, nil

	case NodeIdent:
		slot := env.lookup(node.String)
		if slot == nil {
			return nil, runtimeErrorf(node, "undefined variable '%s'", node.String)
		}
		return *slot, nil

	case NodeIndex:
		arr, i, err := in.element(node, env)
		if err != nil {
			return nil, err
		}
		return arr.Elems[i], nil

	case NodeDot:
		sv, i, err := in.field(node, env)
		if err != nil {
			return nil, err
		}
		return sv.Fields[i], nil

	case NodeStructInit:
		sv := &StructValue{Name: node.String, Fields: make([]Value, len(node.Children))}
		for i, child := range node.Children {
			v, err := in.eval(child, env)
			if err != nil {
				return nil, err
			}
			sv.Fields[i] = copyValue(v)
		}
		return sv, nil

	case NodeCall:
		args := make([]Value, len(node.Children))
		for i, child := range node.Children {
			v, err := in.eval(child, env)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		if fn, ok := in.funcs[node.String]; ok {
			return in.call(fn, args)
		}
		return in.callBuiltin(node, args)

	case NodeUnary:
		v, err := in.eval(node.Children[0], env)
		if err != nil {
			return nil, err
		}
		switch node.Op {
		case "!":
			return !v.(bool), nil
		case "-":
			switch x := v.(type) {
			case int32:
				return -x, nil
			case float32:
				return -x, nil
			}
		}
		return nil, runtimeErrorf(node, "bad operand for unary '%s'", node.Op)

	case NodeBinary:
		left, err := in.eval(node.Children[0], env)
		if err != nil {
			return nil, err
		}
		right, err := in.eval(node.Children[1], env)
		if err != nil {
			return nil, err
		}
		return evalBinary(node, left, right)
	}
	return nil, runtimeErrorf(node, "cannot evaluate %s", node.Kind)
}

func evalBinary(node *ASTNode, left, right Value) (Value, error) {
	switch l := left.(type) {
	case bool:
		r := right.(bool)
		switch node.Op {
		case "&&":
			return l && r, nil
		case "||":
			return l || r, nil
		}
	case int32:
		r := right.(int32)
		switch node.Op {
		case "+":
			return l + r, nil
		case "-":
			return l - r, nil
		case "*":
			return l * r, nil
		case "/", "%":
			if r == 0 {
				return nil, runtimeErrorf(node, "integer division by zero")
			}
			if node.Op == "/" {
				return l / r, nil
			}
			return l % r, nil
		case "^":
			return int32(math.Pow(float64(l), float64(r))), nil
		case "==":
			return l == r, nil
		case "!=":
			return l != r, nil
		case "<":
			return l < r, nil
		case ">":
			return l > r, nil
		case "<=":
			return l <= r, nil
		case ">=":
			return l >= r, nil
		}
	case float32:
		r := right.(float32)
		switch node.Op {
		case "+":
			return l + r, nil
		case "-":
			return l - r, nil
		case "*":
			return l * r, nil
		case "/":
			return l / r, nil
		case "%":
			return float32(math.Mod(float64(l), float64(r))), nil
		case "^":
			return float32(math.Pow(float64(l), float64(r))), nil
		// Ordered comparisons: NaN compares false, even for "!=".
		case "==":
			return l == r, nil
		case "!=":
			return l < r || l > r, nil
		case "<":
			return l < r, nil
		case ">":
			return l > r, nil
		case "<=":
			return l <= r, nil
		case ">=":
			return l >= r, nil
		}
	}
	return nil, runtimeErrorf(node, "bad operands for binary '%s'", node.Op)
}

func (in *Interpreter) callBuiltin(node *ASTNode, args []Value) (Value, error) {
	switch node.String {
	case "print_int":
		fmt.Fprintf(in.Stdout, "%d\n", args[0].(int32))
	case "print_float":
		fmt.Fprintf(in.Stdout, "%f\n", args[0].(float32))
	case "print_bool":
		fmt.Fprintf(in.Stdout, "%t\n", args[0].(bool))
	case "print_str":
		fmt.Fprintf(in.Stdout, "%s\n", args[0].(string))
	case "print_char":
		fmt.Fprintf(in.Stdout, "%c\n", args[0].(byte))
	case "print_int_array", "print_float_array", "print_str_array", "print_char_array", "print_bool_array":
		return nil, in.printArray(node, args[0].(*ArrayValue), args[1].(int32))

	case "int_array":
		return in.newArray(node, args[0].(int32), TypeInt)
	case "float_array":
		return in.newArray(node, args[0].(int32), TypeFloat)
	case "str_array":
		return in.newArray(node, args[0].(int32), TypeString)
	case "char_array":
		return in.newArray(node, args[0].(int32), TypeChar)
	case "bool_array":
		return in.newArray(node, args[0].(int32), TypeBool)
	case "int_array_array":
		return in.newArray(node, args[0].(int32), ArrayOf(TypeInt))

	case "copy_int_array":
		dest, src, n := args[0].(*ArrayValue), args[1].(*ArrayValue), int(args[2].(int32))
		if dest == nil || src == nil || n < 0 || n > len(dest.Elems) || n > len(src.Elems) {
			return nil, runtimeErrorf(node, "copy_int_array: size %d out of range", n)
		}
		copy(dest.Elems[:n], src.Elems[:n])

	case "pow_int":
		return int32(math.Pow(float64(args[0].(int32)), float64(args[1].(int32)))), nil

	default:
		return nil, runtimeErrorf(node, "undefined function '%s'", node.String)
	}
	return nil, nil
}

func (in *Interpreter) newArray(node *ASTNode, size int32, elem *TypeNode) (Value, error) {
	if size < 0 {
		return nil, runtimeErrorf(node, "negative array size %d", size)
	}
	arr := &ArrayValue{Elems: make([]Value, size)}
	for i := range arr.Elems {
		arr.Elems[i] = in.zeroValue(elem)
	}
	return arr, nil
}

func (in *Interpreter) printArray(node *ASTNode, arr *ArrayValue, size int32) error {
	if arr == nil || size < 0 || int(size) > len(arr.Elems) {
		return runtimeErrorf(node, "%s: size %d out of range", node.String, size)
	}
	items := make([]string, size)
	for i, v := range arr.Elems[:size] {
		switch x := v.(type) {
		case float32:
			items[i] = fmt.Sprintf("%f", x)
		case byte:
			items[i] = string(rune(x))
		case bool:
			items[i] = "0"
			if x {
				items[i] = "1"
			}
		default:
			items[i] = fmt.Sprint(x)
		}
	}
	fmt.Fprintf(in.Stdout, "[%s]\n", strings.Join(items, ", "))
	return nil
}
