package main

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir/enum"
)

var (
	intArithmetic   = map[string]string{"+": "add", "-": "sub", "*": "mul", "/": "sdiv", "%": "srem"}
	floatArithmetic = map[string]string{"+": "fadd", "-": "fsub", "*": "fmul", "/": "fdiv", "%": "frem"}

	intPredicates = map[string]enum.IPred{
		"==": enum.IPredEQ, "!=": enum.IPredNE,
		"<": enum.IPredSLT, ">": enum.IPredSGT,
		"<=": enum.IPredSLE, ">=": enum.IPredSGE,
	}
	floatPredicates = map[string]enum.FPred{
		"==": enum.FPredOEQ, "!=": enum.FPredONE,
		"<": enum.FPredOLT, ">": enum.FPredOGT,
		"<=": enum.FPredOLE, ">=": enum.FPredOGE,
	}
)

// genAddress returns the address of an identifier, array element or struct
// field without loading through it. Bases of a chain are evaluated with
// genValue, which for a struct-typed link is again its address, so a[i].f
// never loads a[i].
func (g *CodeGenerator) genAddress(node *ASTNode) string {
	switch node.Kind {
	case NodeIdent:
		if node.IsGlobal {
			return "@" + node.String
		}
		return g.fn.slot(node)

	case NodeIndex:
		base := g.genValue(node.Children[0])
		index := g.genValue(node.Children[1])
		addr := fmt.Sprintf("%%arrayidx.%d", g.e.NextIndex())
		g.e.Emit("%s = getelementptr %s, ptr %s, i32 %s", addr, LLVMStorageType(node.TypeAST), base, index)
		return addr

	case NodeDot:
		base := g.genValue(node.Children[0])
		return g.fieldAddress(node, node.Children[0].TypeAST.StructName, base)
	}
	codegenPanic(node, "expression is not addressable")
	return ""
}

func (g *CodeGenerator) fieldAddress(node *ASTNode, structName, base string) string {
	def, ok := g.tc.Structs[structName]
	if !ok {
		codegenPanic(node, "unknown struct '%s'", structName)
	}
	i, ok := def.FieldIndex(node.String)
	if !ok {
		codegenPanic(node, "struct '%s' has no field '%s'", structName, node.String)
	}
	return g.fieldAt(def, base, i)
}

func (g *CodeGenerator) fieldAt(def *StructDef, base string, i int) string {
	addr := g.e.NextReg()
	g.e.Emit("%s = getelementptr %s, ptr %s, i32 0, i32 %d", addr, LLVMStructName(def.Name), base, i)
	return addr
}

// genValue returns the operand holding the value of an expression. Values
// of struct type are represented by their address.
func (g *CodeGenerator) genValue(node *ASTNode) string {
	if node.TypeAST == nil {
		codegenPanic(node, "expression has no type")
	}
	switch node.Kind {
	case NodeInteger:
		return intLiteral(int32(node.Integer))
	case NodeFloat:
		return floatLiteral(float32(node.Float))
	case NodeBoolean:
		return boolLiteral(node.Boolean)
	case NodeChar:
		return charLiteral(node.Char)
	case NodeString:
		name, line := stringConstant(g.fn.Name, g.e.NextLiteral(), node.String)
		g.e.EmitString(line)
		return name

	case NodeIdent, NodeIndex, NodeDot:
		addr := g.genAddress(node)
		if node.TypeAST.IsStruct() {
			return addr
		}
		r := g.e.NextReg()
		g.e.Emit("%s = load %s, ptr %s", r, LLVMType(node.TypeAST), addr)
		return r

	case NodeStructInit:
		tmp := fmt.Sprintf("%%tmp.%d", g.e.NextTemp())
		g.e.Alloca("%s = alloca %s", tmp, LLVMStructName(node.String))
		g.genStructInit(node, tmp)
		return tmp

	case NodeCall:
		if node.TypeAST.IsVoid() {
			codegenPanic(node, "void call '%s' used as a value", node.String)
		}
		return g.genCall(node)

	case NodeBinary:
		return g.genBinary(node)

	case NodeUnary:
		return g.genUnary(node)
	}
	codegenPanic(node, "cannot lower expression")
	return ""
}

// genStructInit writes a struct literal field by field into the memory at
// base. Nested struct literals are written in place.
func (g *CodeGenerator) genStructInit(node *ASTNode, base string) {
	def, ok := g.tc.Structs[node.String]
	if !ok {
		codegenPanic(node, "unknown struct '%s'", node.String)
	}
	for i, value := range node.Children {
		field := def.Fields[i]
		addr := g.fieldAt(def, base, i)
		switch {
		case field.Type.IsStruct() && value.Kind == NodeStructInit:
			g.genStructInit(value, addr)
		case field.Type.IsStruct():
			g.copyStruct(addr, g.genValue(value), field.Type.StructName)
		default:
			v := g.genValue(value)
			g.e.Emit("store %s %s, ptr %s", LLVMType(field.Type), v, addr)
		}
	}
}

// genCall returns the result register, or "" for a void call.
func (g *CodeGenerator) genCall(node *ASTNode) string {
	sig, ok := g.tc.Funcs[node.String]
	if !ok {
		codegenPanic(node, "undefined function '%s'", node.String)
	}
	args := make([]string, len(node.Children))
	for i, arg := range node.Children {
		v := g.genValue(arg)
		args[i] = paramType(sig, arg.TypeAST) + " " + v
	}
	if sig.Builtin {
		g.e.EmitDecl(g.declareLine(sig))
	}
	ret := llvmReturnType(sig)
	if ret.IsVoid() {
		g.e.Emit("call void @%s(%s)", sig.Name, strings.Join(args, ", "))
		return ""
	}
	r := g.e.NextReg()
	g.e.Emit("%s = call %s @%s(%s)", r, LLVMType(ret), sig.Name, strings.Join(args, ", "))
	if sig.ReturnType.IsVoid() {
		return ""
	}
	return r
}

// genBinary evaluates both operands before combining them; && and || do
// not short-circuit.
func (g *CodeGenerator) genBinary(node *ASTNode) string {
	left, right := node.Children[0], node.Children[1]
	l := g.genValue(left)
	r := g.genValue(right)
	isFloat := TypesEqual(left.TypeAST, TypeFloat)
	operandType := LLVMType(left.TypeAST)

	switch node.Op {
	case "&&", "||":
		instr := "and"
		if node.Op == "||" {
			instr = "or"
		}
		res := g.e.NextReg()
		g.e.Emit("%s = %s i1 %s, %s", res, instr, l, r)
		return res

	case "^":
		res := g.e.NextReg()
		if isFloat {
			g.e.EmitDecl(declPowF32)
			g.e.Emit("%s = call float @llvm.pow.f32(float %s, float %s)", res, l, r)
		} else {
			g.e.EmitDecl(g.declareLine(g.tc.Funcs["pow_int"]))
			g.e.Emit("%s = call i32 @pow_int(i32 %s, i32 %s)", res, l, r)
		}
		return res
	}

	if isComparisonOp(node.Op) {
		res := g.e.NextReg()
		if isFloat {
			g.e.Emit("%s = fcmp %s %s %s, %s", res, floatPredicates[node.Op], operandType, l, r)
		} else {
			g.e.Emit("%s = icmp %s %s %s, %s", res, intPredicates[node.Op], operandType, l, r)
		}
		return res
	}

	ops := intArithmetic
	if isFloat {
		ops = floatArithmetic
	}
	instr, ok := ops[node.Op]
	if !ok {
		codegenPanic(node, "unknown operator '%s'", node.Op)
	}
	res := g.e.NextReg()
	g.e.Emit("%s = %s %s %s, %s", res, instr, operandType, l, r)
	return res
}

func (g *CodeGenerator) genUnary(node *ASTNode) string {
	v := g.genValue(node.Children[0])
	res := g.e.NextReg()
	switch {
	case node.Op == "!":
		g.e.Emit("%s = xor i1 %s, true", res, v)
	case node.Op == "-" && TypesEqual(node.TypeAST, TypeFloat):
		g.e.Emit("%s = fneg float %s", res, v)
	case node.Op == "-":
		g.e.Emit("%s = sub i32 0, %s", res, v)
	default:
		codegenPanic(node, "unknown unary operator '%s'", node.Op)
	}
	return res
}
