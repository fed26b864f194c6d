package sexy

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

// fence wraps body in a fenced code block.
func fence(language, body string) string {
	return "```" + language + "\n" + body + "\n```\n"
}

func TestExtractTestCases_BasicTest(t *testing.T) {
	markdown := "# Binary expressions\n\n## Test: addition\n" +
		fence("plush-expr", "1 + 2") +
		fence("ast", `(binary "+" (integer 1) (integer 2))`) +
		"\n## Test: subtraction\n" +
		fence("plush-expr", "1 - 2") +
		fence("ast", `(binary "-" (integer 1) (integer 2))`)

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 2)

	tc1 := testCases[0]
	be.Equal(t, tc1.Name, "addition")
	be.Equal(t, tc1.Input, "1 + 2")
	be.Equal(t, tc1.InputType, InputTypePlushExpr)
	be.Equal(t, len(tc1.Assertions), 1)
	be.Equal(t, tc1.Assertions[0].Type, AssertionTypeAST)
	be.Equal(t, tc1.Assertions[0].Content, `(binary "+" (integer 1) (integer 2))`)
	be.Equal(t, tc1.Assertions[0].Pattern.String(), `(binary "+" (integer 1) (integer 2))`)

	tc2 := testCases[1]
	be.Equal(t, tc2.Name, "subtraction")
	be.Equal(t, tc2.Input, "1 - 2")
	be.Equal(t, tc2.Assertions[0].Pattern.String(), `(binary "-" (integer 1) (integer 2))`)
}

func TestExtractTestCases_AllAssertionTypes(t *testing.T) {
	markdown := "## Test: everything\n" +
		fence("plush-program", "function main() int {\n    var x int = 1;\n    return x;\n}") +
		fence("ast", `(program (func "main" () "int" ...))`) +
		fence("types", `{x: "int"}`) +
		fence("ir", "define i32 @main() {\n  ret i32 %4") +
		fence("execute", "") +
		fence("compile-error", "never")

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, tc.InputType, InputTypePlushProgram)
	be.True(t, strings.HasPrefix(tc.Input, "function main() int {"))
	be.Equal(t, len(tc.Assertions), 5)

	types := []AssertionType{
		AssertionTypeAST, AssertionTypeTypes, AssertionTypeIR,
		AssertionTypeExecute, AssertionTypeCompileError,
	}
	for i, want := range types {
		be.Equal(t, tc.Assertions[i].Type, want)
	}
	be.True(t, tc.Assertions[0].Pattern != nil)
	be.Equal(t, tc.Assertions[1].Pattern.Type, NodeMap)
	be.True(t, tc.Assertions[2].Pattern == nil)
	be.Equal(t, tc.Assertions[2].Content, "define i32 @main() {\n  ret i32 %4")
	be.Equal(t, tc.Assertions[3].Content, "")
}

func TestExtractTestCases_LineNumbers(t *testing.T) {
	markdown := "# Title\n\n## Test: lines\n\n" +
		fence("plush-expr", "1") +
		"\n" +
		fence("ast", "(integer 1)")

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, testCases[0].Line, 6)
	be.Equal(t, testCases[0].Assertions[0].Line, 10)
}

func TestExtractTestCases_Empty(t *testing.T) {
	testCases, err := ExtractTestCases("")
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)

	testCases, err = ExtractTestCases("# Just prose\n\n" + fence("", "plain block"))
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_AllowsFencesWithoutLanguage(t *testing.T) {
	markdown := "## Test: plain\n" +
		fence("plush-expr", "1") +
		fence("", "an illustration") +
		fence("ast", "(integer 1)")

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases[0].Assertions), 1)
}

func TestExtractTestCases_Errors(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		err      string
	}{
		{
			"fence outside test",
			fence("plush-expr", "1"),
			"line 2: plush-expr fence found outside of test case",
		},
		{
			"unknown fence outside test",
			fence("python", "print(1)"),
			"line 2: unknown fence language 'python' found outside of test case",
		},
		{
			"unknown fence in test",
			"## Test: t\n" + fence("plush-expr", "1") + fence("wasm", "(module)"),
			"line 6: unknown fence language 'wasm' in test 't'",
		},
		{
			"multiple inputs",
			"## Test: t\n" + fence("plush-expr", "1") + fence("plush-expr", "2"),
			"line 6: multiple input fences found in test 't'",
		},
		{
			"bad pattern",
			"## Test: t\n" + fence("plush-expr", "1") + fence("ast", "(integer 1"),
			"line 6: failed to parse ast assertion in test 't'",
		},
		{
			"missing input",
			"## Test: t\n" + fence("ast", "(integer 1)"),
			"test 't' has no input fence",
		},
		{
			"missing assertion",
			"## Test: t\n" + fence("plush-expr", "1"),
			"test 't' has no assertion fences",
		},
		{
			"error in second test",
			"## Test: ok\n" + fence("plush-expr", "1") + fence("ast", "(integer 1)") +
				"## Test: broken\n" + fence("plush-expr", "2"),
			"test 'broken' has no assertion fences",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ExtractTestCases(test.markdown)
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), test.err))
		})
	}
}
