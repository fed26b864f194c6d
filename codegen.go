package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
)

type slotKey struct {
	name  string
	depth int
}

// FunctionContext is the per-function code generation state: the return
// type and the stack slot currently bound to each (name, shadow depth).
type FunctionContext struct {
	Name       string
	ReturnType *TypeNode

	slots    map[slotKey]string
	slotUses map[string]int
}

func newFunctionContext(name string, ret *TypeNode) *FunctionContext {
	return &FunctionContext{
		Name:       name,
		ReturnType: ret,
		slots:      make(map[slotKey]string),
		slotUses:   make(map[string]int),
	}
}

func (fn *FunctionContext) slot(node *ASTNode) string {
	slot, ok := fn.slots[slotKey{node.String, node.ShadowDepth}]
	if !ok {
		codegenPanic(node, "no stack slot for '%s' at depth %d", node.String, node.ShadowDepth)
	}
	return slot
}

// CodeGenerator lowers an analyzed program into an Emitter.
type CodeGenerator struct {
	tc *TypeChecker
	e  *Emitter
	fn *FunctionContext

	// Global initializers are folded by interpretation.
	consts *Interpreter
	folded map[*ASTNode]Value
}

// GenerateIR lowers program, which must have passed CheckProgram with tc.
// A tree the generator cannot lower yields an *InternalCodegenError; a
// global initializer that fails to evaluate yields its *RuntimeError.
func GenerateIR(program *ASTNode, tc *TypeChecker) (e *Emitter, err error) {
	g := &CodeGenerator{
		tc:     tc,
		e:      NewEmitter(),
		consts: NewInterpreter(tc),
		folded: make(map[*ASTNode]Value),
	}
	defer func() {
		if r := recover(); r != nil {
			if ice, ok := r.(*InternalCodegenError); ok {
				e, err = nil, ice
				return
			}
			panic(r)
		}
	}()

	for _, node := range program.Children {
		if node.Kind != NodeVar {
			continue
		}
		v, err := g.consts.EvalConstant(node.Children[0])
		if err != nil {
			return nil, err
		}
		g.folded[node] = v
	}

	for _, node := range program.Children {
		if node.Kind == NodeFunc {
			g.genFunction(node)
		}
	}
	for _, node := range program.Children {
		if node.Kind == NodeFuncDecl && !tc.Funcs[node.String].HasBody {
			g.e.EmitDecl(g.declareLine(tc.Funcs[node.String]))
		}
	}
	for i := len(program.Children) - 1; i >= 0; i-- {
		node := program.Children[i]
		switch node.Kind {
		case NodeStruct:
			g.e.EmitTop(g.structLayout(tc.Structs[node.String]))
		case NodeVar:
			lines := g.globalLines(node)
			for j := len(lines) - 1; j >= 0; j-- {
				g.e.EmitTop(lines[j])
			}
		}
	}
	return g.e, nil
}

func (g *CodeGenerator) structLayout(def *StructDef) string {
	fields := make([]string, len(def.Fields))
	for i, field := range def.Fields {
		fields[i] = LLVMStorageType(field.Type)
	}
	if len(fields) == 0 {
		return LLVMStructName(def.Name) + " = type {}"
	}
	return LLVMStructName(def.Name) + " = type { " + strings.Join(fields, ", ") + " }"
}

// globalLines renders a global definition preceded by the string constants
// its initializer refers to.
func (g *CodeGenerator) globalLines(node *ASTNode) []string {
	var lines []string
	n := 0
	str := func(s string) string {
		name, line := stringConstant(node.String, n, s)
		n++
		lines = append(lines, line)
		return name
	}
	init := g.constantText(node, g.folded[node], node.DeclType, str)
	kind := "global"
	if node.Mutability == MutVal {
		kind = "constant"
	}
	return append(lines, fmt.Sprintf("@%s = %s %s %s", node.String, kind, LLVMStorageType(node.DeclType), init))
}

func (g *CodeGenerator) constantText(node *ASTNode, v Value, t *TypeNode, str func(string) string) string {
	switch x := v.(type) {
	case int32:
		return intLiteral(x)
	case float32:
		return floatLiteral(x)
	case bool:
		return boolLiteral(x)
	case byte:
		return charLiteral(x)
	case string:
		return str(x)
	case *StructValue:
		def := g.tc.Structs[x.Name]
		if len(def.Fields) == 0 {
			return "{}"
		}
		parts := make([]string, len(def.Fields))
		for i, field := range def.Fields {
			parts[i] = LLVMStorageType(field.Type) + " " + g.constantText(node, x.Fields[i], field.Type, str)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	}
	codegenPanic(node, "cannot render constant of type %s", t)
	return ""
}

// stringConstant names the n-th string literal owned by a function or
// global and renders its definition.
func stringConstant(owner string, n int, s string) (name, line string) {
	name = fmt.Sprintf("@.str.%s.%d", owner, n)
	data := constant.NewCharArrayFromString(s + "\x00")
	arrayType := lltypes.NewArray(uint64(len(s)+1), lltypes.I8)
	line = fmt.Sprintf("%s = private unnamed_addr constant %s %s", name, arrayType.LLString(), data.Ident())
	return name, line
}

func intLiteral(v int32) string {
	return constant.NewInt(lltypes.I32, int64(v)).Ident()
}

func floatLiteral(v float32) string {
	return constant.NewFloat(lltypes.Float, float64(v)).Ident()
}

func boolLiteral(v bool) string {
	return constant.NewBool(v).Ident()
}

func charLiteral(v byte) string {
	return constant.NewInt(lltypes.I8, int64(int8(v))).Ident()
}

func zeroLiteral(t *TypeNode) string {
	switch t.Kind {
	case KindFloat:
		return floatLiteral(0)
	case KindBool:
		return boolLiteral(false)
	case KindChar:
		return charLiteral(0)
	}
	return intLiteral(0)
}

// llvmReturnType is the IR return type of a function. A void main still
// returns an exit status.
func llvmReturnType(sig *FuncSignature) *TypeNode {
	if sig.Name == "main" && sig.ReturnType.IsVoid() {
		return TypeInt
	}
	return sig.ReturnType
}

// paramType is the IR type of a call argument. Calls into the C runtime
// carry the extension attributes C expects for bool and char.
func paramType(sig *FuncSignature, t *TypeNode) string {
	if sig.Builtin && !t.IsArray() {
		switch t.Kind {
		case KindBool:
			return "i1 zeroext"
		case KindChar:
			return "i8 signext"
		}
	}
	return LLVMType(t)
}

func (g *CodeGenerator) declareLine(sig *FuncSignature) string {
	params := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = paramType(sig, p.Type)
	}
	return fmt.Sprintf("declare %s @%s(%s)", LLVMType(llvmReturnType(sig)), sig.Name, strings.Join(params, ", "))
}

// declareSlot allocates the stack slot of a new local binding. Shadowed
// bindings get their depth in the name; a second binding with the same name
// and depth in one function gets a further counter.
func (g *CodeGenerator) declareSlot(name string, depth int, t *TypeNode) string {
	base := "%" + name
	if depth > 0 {
		base += "." + strconv.Itoa(depth)
	}
	base += ".addr"
	slot := base
	if n := g.fn.slotUses[base]; n > 0 {
		slot = fmt.Sprintf("%s.%d", base, n)
	}
	g.fn.slotUses[base]++
	g.fn.slots[slotKey{name, depth}] = slot
	g.e.Alloca("%s = alloca %s", slot, LLVMStorageType(t))
	return slot
}

func (g *CodeGenerator) genFunction(node *ASTNode) {
	sig := g.tc.Funcs[node.String]
	ret := llvmReturnType(sig)
	g.fn = newFunctionContext(node.String, ret)
	if len(g.e.Lines()) > 0 {
		g.e.EmitRaw("")
	}
	g.e.BeginFunction()

	params := make([]string, len(node.Params))
	for i, p := range node.Params {
		params[i] = fmt.Sprintf("%s %%%s.arg", LLVMType(p.Type), p.Name)
	}
	g.e.EmitRaw(fmt.Sprintf("define %s @%s(%s) {", LLVMType(ret), node.String, strings.Join(params, ", ")))
	g.e.EmitLabel("entry")
	g.e.MarkAllocaPoint()

	if !ret.IsVoid() {
		g.e.Alloca("%%retval = alloca %s", LLVMType(ret))
		if ret.isScalar() {
			g.e.Emit("store %s %s, ptr %%retval", LLVMType(ret), zeroLiteral(ret))
		}
	}
	for _, p := range node.Params {
		slot := g.declareSlot(p.Name, p.ShadowDepth, p.Type)
		arg := "%" + p.Name + ".arg"
		if p.Type.IsStruct() {
			g.copyStruct(slot, arg, p.Type.StructName)
		} else {
			g.e.Emit("store %s %s, ptr %s", LLVMType(p.Type), arg, slot)
		}
	}

	for _, stmt := range node.Children[0].Children {
		g.genStatement(stmt)
	}

	g.e.Emit("br label %%return")
	g.e.EmitLabel("return")
	if ret.IsVoid() {
		g.e.Emit("ret void")
	} else {
		r := g.e.NextReg()
		g.e.Emit("%s = load %s, ptr %%retval", r, LLVMType(ret))
		g.e.Emit("ret %s %s", LLVMType(ret), r)
	}
	g.e.EmitRaw("}")
	g.fn = nil
}

func (g *CodeGenerator) genStatement(node *ASTNode) {
	switch node.Kind {
	case NodeVar:
		g.genLocalVar(node)
	case NodeBlock:
		for _, stmt := range node.Children {
			g.genStatement(stmt)
		}
	case NodeAssign:
		g.genAssign(node)
	case NodeIf:
		g.genIf(node)
	case NodeWhile:
		g.genWhile(node)
	case NodeReturn:
		g.genReturn(node)
	case NodeCall:
		g.genCall(node)
	default:
		codegenPanic(node, "unexpected statement")
	}
}

func (g *CodeGenerator) genLocalVar(node *ASTNode) {
	t := node.DeclType
	init := node.Children[0]
	if t.IsStruct() {
		slot := g.declareSlot(node.String, node.ShadowDepth, t)
		if init.Kind == NodeStructInit {
			g.genStructInit(init, slot)
		} else {
			g.copyStruct(slot, g.genValue(init), t.StructName)
		}
		return
	}
	v := g.genValue(init)
	slot := g.declareSlot(node.String, node.ShadowDepth, t)
	g.e.Emit("store %s %s, ptr %s", LLVMType(t), v, slot)
}

func (g *CodeGenerator) genAssign(node *ASTNode) {
	target, value := node.Children[0], node.Children[1]
	addr := g.genAddress(target)
	t := target.TypeAST
	if t.IsStruct() {
		g.copyStruct(addr, g.genValue(value), t.StructName)
		return
	}
	v := g.genValue(value)
	g.e.Emit("store %s %s, ptr %s", LLVMType(t), v, addr)
}

func (g *CodeGenerator) genIf(node *ASTNode) {
	cond := g.genValue(node.Children[0])
	n := g.e.NextLabel()
	thenLabel := fmt.Sprintf("if.then%d", n)
	elseLabel := fmt.Sprintf("if.else%d", n)
	endLabel := fmt.Sprintf("if.end%d", n)
	hasElse := len(node.Children) > 2
	if hasElse {
		g.e.Emit("br i1 %s, label %%%s, label %%%s", cond, thenLabel, elseLabel)
	} else {
		g.e.Emit("br i1 %s, label %%%s, label %%%s", cond, thenLabel, endLabel)
	}

	g.e.EmitLabel(thenLabel)
	g.genStatement(node.Children[1])
	g.e.Emit("br label %%%s", endLabel)

	if hasElse {
		g.e.EmitLabel(elseLabel)
		g.genStatement(node.Children[2])
		g.e.Emit("br label %%%s", endLabel)
	}
	g.e.EmitLabel(endLabel)
}

func (g *CodeGenerator) genWhile(node *ASTNode) {
	n := g.e.NextLabel()
	guardLabel := fmt.Sprintf("while.guard%d", n)
	bodyLabel := fmt.Sprintf("while.body%d", n)
	endLabel := fmt.Sprintf("while.end%d", n)

	g.e.Emit("br label %%%s", guardLabel)
	g.e.EmitLabel(guardLabel)
	guard := g.genValue(node.Children[0])
	g.e.Emit("br i1 %s, label %%%s, label %%%s", guard, bodyLabel, endLabel)

	g.e.EmitLabel(bodyLabel)
	g.genStatement(node.Children[1])
	g.e.Emit("br label %%%s", guardLabel)
	g.e.EmitLabel(endLabel)
}

// genReturn stores the result in the return slot and jumps to the epilogue.
// Instructions that follow the return in source land in a fresh block.
func (g *CodeGenerator) genReturn(node *ASTNode) {
	if len(node.Children) > 0 {
		value := node.Children[0]
		t := value.TypeAST
		if t.IsStruct() {
			// The callee's frame dies on return, so the result is copied
			// to the heap.
			src := g.genValue(value)
			size := g.structSize(t.StructName)
			heap := g.e.NextReg()
			g.e.EmitDecl(declMalloc)
			g.e.Emit("%s = call ptr @malloc(i64 %s)", heap, size)
			g.memcpy(heap, src, size)
			g.e.Emit("store ptr %s, ptr %%retval", heap)
		} else {
			v := g.genValue(value)
			g.e.Emit("store %s %s, ptr %%retval", LLVMType(t), v)
		}
	}
	g.e.Emit("br label %%return")
	g.e.EmitLabel(fmt.Sprintf("after.return%d", g.e.NextLabel()))
}

// structSize computes the byte size of a struct as the address one element
// past a null pointer.
func (g *CodeGenerator) structSize(name string) string {
	end := g.e.NextReg()
	g.e.Emit("%s = getelementptr %s, ptr null, i32 1", end, LLVMStructName(name))
	size := g.e.NextReg()
	g.e.Emit("%s = ptrtoint ptr %s to i64", size, end)
	return size
}

func (g *CodeGenerator) memcpy(dst, src, size string) {
	g.e.EmitDecl(declMemcpy)
	g.e.Emit("call void @llvm.memcpy.p0.p0.i64(ptr %s, ptr %s, i64 %s, i1 false)", dst, src, size)
}

// copyStruct copies a whole struct value between two addresses.
func (g *CodeGenerator) copyStruct(dst, src, name string) {
	g.memcpy(dst, src, g.structSize(name))
}
