package main

import (
	"strconv"
	"strings"
)

// NodeKind represents different types of AST nodes
type NodeKind string

const (
	NodeProgram    NodeKind = "NodeProgram"
	NodeFuncDecl   NodeKind = "NodeFuncDecl"
	NodeFunc       NodeKind = "NodeFunc"
	NodeStruct     NodeKind = "NodeStruct"
	NodeVar        NodeKind = "NodeVar"
	NodeBlock      NodeKind = "NodeBlock"
	NodeAssign     NodeKind = "NodeAssign"
	NodeIf         NodeKind = "NodeIf"
	NodeWhile      NodeKind = "NodeWhile"
	NodeReturn     NodeKind = "NodeReturn"
	NodeCall       NodeKind = "NodeCall"
	NodeStructInit NodeKind = "NodeStructInit"
	NodeBinary     NodeKind = "NodeBinary"
	NodeUnary      NodeKind = "NodeUnary"
	NodeIndex      NodeKind = "NodeIndex"
	NodeDot        NodeKind = "NodeDot"
	NodeIdent      NodeKind = "NodeIdent"
	NodeInteger    NodeKind = "NodeInteger"
	NodeFloat      NodeKind = "NodeFloat"
	NodeString     NodeKind = "NodeString"
	NodeChar       NodeKind = "NodeChar"
	NodeBoolean    NodeKind = "NodeBoolean"
)

// Param is a function parameter or a struct field.
type Param struct {
	Mutability Mutability
	Name       string
	Type       *TypeNode

	// Function parameters only; set by the type checker.
	ShadowDepth int
}

// ASTNode represents a node in the Abstract Syntax Tree.
//
// Children are always stored in source order.
type ASTNode struct {
	Kind NodeKind
	Line int

	// NodeIdent, NodeString: the text. NodeFunc, NodeFuncDecl, NodeStruct,
	// NodeVar: the declared name. NodeCall: the callee. NodeStructInit: the
	// struct name. NodeDot: the field name.
	String string
	// NodeInteger:
	Integer int64
	// NodeFloat:
	Float float64
	// NodeBoolean:
	Boolean bool
	// NodeChar:
	Char byte
	// NodeBinary, NodeUnary:
	Op       string
	Children []*ASTNode

	// NodeVar:
	Mutability Mutability
	// NodeVar: the declared type. NodeFunc, NodeFuncDecl: the return type.
	DeclType *TypeNode
	// NodeFunc, NodeFuncDecl: parameters. NodeStruct: fields.
	Params []Param

	// Annotations written by the type checker.
	TypeAST     *TypeNode
	IsGlobal    bool
	ShadowDepth int
}

// isExpression reports whether the node produces a value.
func (n *ASTNode) isExpression() bool {
	switch n.Kind {
	case NodeCall, NodeStructInit, NodeBinary, NodeUnary, NodeIndex, NodeDot,
		NodeIdent, NodeInteger, NodeFloat, NodeString, NodeChar, NodeBoolean:
		return true
	}
	return false
}

// ToSExpr converts an AST node to s-expression string representation
func ToSExpr(node *ASTNode) string {
	if node == nil {
		return "nil"
	}
	switch node.Kind {
	case NodeProgram:
		return list("program", childSExprs(node.Children)...)
	case NodeFuncDecl:
		return list("declare", quote(node.String), paramsSExpr(node.Params), quote(TypeToString(node.DeclType)))
	case NodeFunc:
		return list("func", quote(node.String), paramsSExpr(node.Params), quote(TypeToString(node.DeclType)), ToSExpr(node.Children[0]))
	case NodeStruct:
		return list("struct", quote(node.String), paramsSExpr(node.Params))
	case NodeVar:
		return list(node.Mutability.String(), quote(node.String), quote(TypeToString(node.DeclType)), ToSExpr(node.Children[0]))
	case NodeBlock:
		return list("block", childSExprs(node.Children)...)
	case NodeAssign:
		return list("assign", ToSExpr(node.Children[0]), ToSExpr(node.Children[1]))
	case NodeIf:
		return list("if", childSExprs(node.Children)...)
	case NodeWhile:
		return list("while", childSExprs(node.Children)...)
	case NodeReturn:
		return list("return", childSExprs(node.Children)...)
	case NodeCall:
		return list("call", append([]string{quote(node.String)}, childSExprs(node.Children)...)...)
	case NodeStructInit:
		return list("struct-init", append([]string{quote(node.String)}, childSExprs(node.Children)...)...)
	case NodeBinary:
		return list("binary", quote(node.Op), ToSExpr(node.Children[0]), ToSExpr(node.Children[1]))
	case NodeUnary:
		return list("unary", quote(node.Op), ToSExpr(node.Children[0]))
	case NodeIndex:
		return list("idx", ToSExpr(node.Children[0]), ToSExpr(node.Children[1]))
	case NodeDot:
		return list("dot", ToSExpr(node.Children[0]), quote(node.String))
	case NodeIdent:
		return list("ident", quote(node.String))
	case NodeInteger:
		return list("integer", strconv.FormatInt(node.Integer, 10))
	case NodeFloat:
		return list("float", strconv.FormatFloat(node.Float, 'g', -1, 64))
	case NodeString:
		return list("string", quote(node.String))
	case NodeChar:
		return list("char", quote(string(rune(node.Char))))
	case NodeBoolean:
		return list("boolean", strconv.FormatBool(node.Boolean))
	default:
		return ""
	}
}

func list(head string, items ...string) string {
	if len(items) == 0 {
		return "(" + head + ")"
	}
	return "(" + head + " " + strings.Join(items, " ") + ")"
}

func quote(s string) string {
	return strconv.Quote(s)
}

func childSExprs(children []*ASTNode) []string {
	out := make([]string, len(children))
	for i, child := range children {
		out[i] = ToSExpr(child)
	}
	return out
}

func paramsSExpr(params []Param) string {
	items := make([]string, len(params))
	for i, p := range params {
		items[i] = list(p.Mutability.String(), quote(p.Name), quote(TypeToString(p.Type)))
	}
	return "(" + strings.Join(items, " ") + ")"
}
