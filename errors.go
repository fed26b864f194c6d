package main

import "fmt"

// SyntaxError is reported by the parser.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("error: line %d: syntax error: %s", e.Line, e.Msg)
}

// SemanticError is reported by the type checker. Compilation stops at the
// first one.
type SemanticError struct {
	Line int
	Msg  string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("error: line %d: %s", e.Line, e.Msg)
}

func semanticErrorf(node *ASTNode, format string, args ...any) error {
	line := 0
	if node != nil {
		line = node.Line
	}
	return &SemanticError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// InternalCodegenError means the generator met a tree it cannot lower. This
// only happens if the tree did not pass the type checker.
type InternalCodegenError struct {
	Kind NodeKind
	Msg  string
}

func (e *InternalCodegenError) Error() string {
	return fmt.Sprintf("internal codegen error: %s: %s", e.Kind, e.Msg)
}

func codegenPanic(node *ASTNode, format string, args ...any) {
	var kind NodeKind
	if node != nil {
		kind = node.Kind
	}
	panic(&InternalCodegenError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// RuntimeError is reported by the interpreter.
type RuntimeError struct {
	Line int
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("error: line %d: runtime error: %s", e.Line, e.Msg)
}

func runtimeErrorf(node *ASTNode, format string, args ...any) error {
	line := 0
	if node != nil {
		line = node.Line
	}
	return &RuntimeError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
