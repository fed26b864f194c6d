package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func parseExpr(t *testing.T, input string) *ASTNode {
	t.Helper()
	expr, err := ParseExpression(NewLexer([]byte(input)))
	be.Err(t, err, nil)
	return expr
}

func parseProgram(t *testing.T, input string) *ASTNode {
	t.Helper()
	program, err := ParseProgram(NewLexer([]byte(input)))
	be.Err(t, err, nil)
	return program
}

func TestParseExpressionPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", `(binary "+" (integer 1) (binary "*" (integer 2) (integer 3)))`},
		{"1 * 2 + 3", `(binary "+" (binary "*" (integer 1) (integer 2)) (integer 3))`},
		{"a || b && c", `(binary "||" (ident "a") (binary "&&" (ident "b") (ident "c")))`},
		{"a == b < c", `(binary "==" (ident "a") (binary "<" (ident "b") (ident "c")))`},
		{"2 ^ 3 ^ 4", `(binary "^" (integer 2) (binary "^" (integer 3) (integer 4)))`},
		{"-2 ^ 2", `(binary "^" (unary "-" (integer 2)) (integer 2))`},
		{"!a == b", `(binary "==" (unary "!" (ident "a")) (ident "b"))`},
		{"x.y[1]", `(idx (dot (ident "x") "y") (integer 1))`},
		{"f(g(1), 2.5)", `(call "f" (call "g" (integer 1)) (float 2.5))`},
		{"-2147483648", `(unary "-" (integer 2147483648))`},
		{"1 - -2147483648", `(binary "-" (integer 1) (unary "-" (integer 2147483648)))`},
	}
	for _, test := range tests {
		be.Equal(t, ToSExpr(parseExpr(t, test.input)), test.expected)
	}
}

func TestParseKeepsSourceOrder(t *testing.T) {
	program := parseProgram(t, `
struct S { val a: int, val b: int, val c: int }
function f(val x: int, val y: int, val z: int) {
    g(1, 2, 3);
    h(struct S(4, 5, 6));
}`)
	be.Equal(t, len(program.Children), 2)

	st := program.Children[0]
	be.Equal(t, st.Params[0].Name, "a")
	be.Equal(t, st.Params[2].Name, "c")

	fn := program.Children[1]
	be.Equal(t, fn.Params[0].Name, "x")
	be.Equal(t, fn.Params[2].Name, "z")

	body := fn.Children[0].Children
	be.Equal(t, ToSExpr(body[0]), `(call "g" (integer 1) (integer 2) (integer 3))`)
	be.Equal(t, ToSExpr(body[1]), `(call "h" (struct-init "S" (integer 4) (integer 5) (integer 6)))`)
}

func TestParseLineNumbers(t *testing.T) {
	program := parseProgram(t, "\n\nfunction main() {\n    var x: int := 1;\n    x := 2;\n}")
	fn := program.Children[0]
	be.Equal(t, fn.Line, 3)
	be.Equal(t, fn.Children[0].Children[0].Line, 4)
	be.Equal(t, fn.Children[0].Children[1].Line, 5)
}

func TestParseTypes(t *testing.T) {
	program := parseProgram(t, "var a: [[struct P]] := 0;\nfunction f(): [float];\nfunction g() {}")
	be.True(t, TypesEqual(program.Children[0].DeclType, ArrayOf(ArrayOf(StructType("P")))))
	be.Equal(t, program.Children[1].Kind, NodeFuncDecl)
	be.True(t, TypesEqual(program.Children[1].DeclType, ArrayOf(TypeFloat)))
	be.True(t, TypesEqual(program.Children[2].DeclType, TypeVoid))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		err   string
	}{
		{"function main() {", "error: line 1: syntax error: unexpected end of input in block"},
		{"function main() { 1; }", `error: line 1: syntax error: expected statement but got "1"`},
		{"x := 1;", `error: line 1: syntax error: expected declaration or definition but got "x"`},
		{"var x int := 1;", `error: line 1: syntax error: expected : but got "int"`},
		{"function f(x: int) {}", `error: line 1: syntax error: expected var or val but got "x"`},
		{"var x: number := 1;", `error: line 1: syntax error: expected type but got "number"`},
		{"function main() {\n  var s: string := \"abc;\n}", "error: line 2: syntax error: unterminated string literal"},
		{"function main() {\n  var a: int := 1 = 2;\n}", `error: line 2: syntax error: "=" is not a valid token`},
		{"function main() {\n  a = 1;\n}", "error: line 2: syntax error: expression statement must be a function call"},
		{"function main() {\n  print_int(2147483648);\n}", "error: line 2: syntax error: integer literal 2147483648 does not fit in int"},
		{"function main() {\n  print_int(-(2147483648));\n}", "error: line 2: syntax error: integer literal 2147483648 does not fit in int"},
		{"function main() {\n  print_int(-2147483649);\n}", "error: line 2: syntax error: integer literal 2147483649 does not fit in int"},
	}
	for _, test := range tests {
		_, err := ParseProgram(NewLexer([]byte(test.input)))
		be.Err(t, err, test.err)
	}
}

func TestParseExpressionTrailingInput(t *testing.T) {
	_, err := ParseExpression(NewLexer([]byte("1 2")))
	be.Err(t, err, `error: line 1: syntax error: unexpected "2" after expression`)
}
