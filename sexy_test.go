package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/plush/sexy"
)

func TestSexyAllTests(t *testing.T) {
	testFiles, err := filepath.Glob("test/*_test.md")
	be.Err(t, err, nil)
	be.True(t, len(testFiles) > 0)

	for _, testFile := range testFiles {
		testName := strings.TrimSuffix(filepath.Base(testFile), ".md")

		t.Run(testName, func(t *testing.T) {
			content, err := os.ReadFile(testFile)
			be.Err(t, err, nil)

			testCases, err := sexy.ExtractTestCases(string(content))
			be.Err(t, err, nil)

			for _, tc := range testCases {
				t.Run(tc.Name, func(t *testing.T) {
					runSexyTestCase(t, tc)
				})
			}
		})
	}
}

func runSexyTestCase(t *testing.T, tc sexy.TestCase) {
	for i, assertion := range tc.Assertions {
		t.Run("assertion_"+string(rune('a'+i)), func(t *testing.T) {
			switch assertion.Type {
			case sexy.AssertionTypeAST:
				assertASTMatch(t, tc, assertion)
			case sexy.AssertionTypeTypes:
				assertTypesMatch(t, tc, assertion)
			case sexy.AssertionTypeIR:
				assertIRContains(t, tc, assertion)
			case sexy.AssertionTypeCompileError:
				assertCompileError(t, tc, assertion)
			case sexy.AssertionTypeExecute:
				assertExecuteOutput(t, tc, assertion)
			default:
				t.Fatalf("unsupported assertion type %s", assertion.Type)
			}
		})
	}
}

func parseSexyInput(tc sexy.TestCase) (*ASTNode, error) {
	l := NewLexer([]byte(tc.Input))
	if tc.InputType == sexy.InputTypePlushExpr {
		return ParseExpression(l)
	}
	return ParseProgram(l)
}

func requireProgram(t *testing.T, tc sexy.TestCase) {
	t.Helper()
	if tc.InputType != sexy.InputTypePlushProgram {
		t.Fatalf("line %d: %s assertions need a plush-program input", tc.Line, tc.InputType)
	}
}

func assertASTMatch(t *testing.T, tc sexy.TestCase, assertion sexy.Assertion) {
	node, err := parseSexyInput(tc)
	be.Err(t, err, nil)
	actual, err := sexy.Parse(ToSExpr(node))
	be.Err(t, err, nil)
	if err := sexy.Match(assertion.Pattern, actual); err != nil {
		t.Errorf("line %d: %v\nactual: %s", assertion.Line, err, actual)
	}
}

// assertTypesMatch compares the pattern against a map from every declared
// or referenced variable name to its type.
func assertTypesMatch(t *testing.T, tc sexy.TestCase, assertion sexy.Assertion) {
	requireProgram(t, tc)
	program, _, err := Analyze([]byte(tc.Input))
	be.Err(t, err, nil)

	types := sexy.NewMap(nil, nil)
	record := func(name string, typ *TypeNode) {
		if _, ok := types.Get(name); ok {
			return
		}
		types.Keys = append(types.Keys, name)
		types.Items = append(types.Items, sexy.NewString(TypeToString(typ)))
	}
	var walk func(node *ASTNode)
	walk = func(node *ASTNode) {
		switch node.Kind {
		case NodeVar:
			record(node.String, node.DeclType)
		case NodeIdent:
			record(node.String, node.TypeAST)
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(program)

	if err := sexy.Match(assertion.Pattern, types); err != nil {
		t.Errorf("line %d: %v\nactual: %s", assertion.Line, err, types)
	}
}

// assertIRContains checks that every line of the fence appears in the
// generated IR, in order. Leading and trailing whitespace is ignored.
func assertIRContains(t *testing.T, tc sexy.TestCase, assertion sexy.Assertion) {
	requireProgram(t, tc)
	ir, err := CompileProgram([]byte(tc.Input))
	be.Err(t, err, nil)

	lines := strings.Split(ir, "\n")
	pos := 0
	for _, want := range strings.Split(assertion.Content, "\n") {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		found := false
		for pos < len(lines) {
			line := strings.TrimSpace(lines[pos])
			pos++
			if line == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("line %d: IR is missing %q (in order)\n%s", assertion.Line, want, ir)
		}
	}
}

func assertCompileError(t *testing.T, tc sexy.TestCase, assertion sexy.Assertion) {
	var err error
	if tc.InputType == sexy.InputTypePlushExpr {
		_, err = parseSexyInput(tc)
	} else {
		_, err = CompileProgram([]byte(tc.Input))
	}
	if err == nil {
		t.Fatalf("line %d: expected compile error containing %q", assertion.Line, assertion.Content)
	}
	be.True(t, strings.Contains(err.Error(), assertion.Content))
}

func assertExecuteOutput(t *testing.T, tc sexy.TestCase, assertion sexy.Assertion) {
	requireProgram(t, tc)
	program, checker, err := Analyze([]byte(tc.Input))
	be.Err(t, err, nil)

	var stdout bytes.Buffer
	in := NewInterpreter(checker)
	in.Stdout = &stdout
	_, err = in.Run(program)
	be.Err(t, err, nil)
	be.Equal(t, strings.TrimRight(stdout.String(), "\n"), assertion.Content)
}
