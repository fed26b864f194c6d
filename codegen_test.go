package main

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func compile(t *testing.T, source string) string {
	t.Helper()
	ir, err := CompileProgram([]byte(source))
	be.Err(t, err, nil)
	return ir
}

// functionBody returns the lines of the named function's definition.
func functionBody(t *testing.T, ir, name string) []string {
	t.Helper()
	var body []string
	inside := false
	for _, line := range strings.Split(ir, "\n") {
		if strings.HasPrefix(line, "define ") && strings.Contains(line, " @"+name+"(") {
			inside = true
		}
		if inside {
			body = append(body, strings.TrimSpace(line))
			if line == "}" {
				return body
			}
		}
	}
	t.Fatalf("no definition of @%s in\n%s", name, ir)
	return nil
}

func indexOf(lines []string, want string) int {
	for i, line := range lines {
		if line == want {
			return i
		}
	}
	return -1
}

func TestGenerateWholeModule(t *testing.T) {
	ir := compile(t, `struct Point { val x: int, val y: int }
var total: int := 0;
function add(val p: struct Point): int {
    return p.x + p.y;
}
function main() {
    total := add(struct Point(1, 2));
    print_int(total);
}`)
	be.Equal(t, ir, `%Point = type { i32, i32 }
@total = global i32 0

define i32 @add(ptr %p.arg) {
entry:
  %retval = alloca i32
  %p.addr = alloca %Point
  store i32 0, ptr %retval
  %0 = getelementptr %Point, ptr null, i32 1
  %1 = ptrtoint ptr %0 to i64
  call void @llvm.memcpy.p0.p0.i64(ptr %p.addr, ptr %p.arg, i64 %1, i1 false)
  %2 = getelementptr %Point, ptr %p.addr, i32 0, i32 0
  %3 = load i32, ptr %2
  %4 = getelementptr %Point, ptr %p.addr, i32 0, i32 1
  %5 = load i32, ptr %4
  %6 = add i32 %3, %5
  store i32 %6, ptr %retval
  br label %return
after.return1:
  br label %return
return:
  %7 = load i32, ptr %retval
  ret i32 %7
}

define i32 @main() {
entry:
  %retval = alloca i32
  %tmp.0 = alloca %Point
  store i32 0, ptr %retval
  %0 = getelementptr %Point, ptr %tmp.0, i32 0, i32 0
  store i32 1, ptr %0
  %1 = getelementptr %Point, ptr %tmp.0, i32 0, i32 1
  store i32 2, ptr %1
  %2 = call i32 @add(ptr %tmp.0)
  store i32 %2, ptr @total
  %3 = load i32, ptr @total
  call void @print_int(i32 %3)
  br label %return
return:
  %4 = load i32, ptr %retval
  ret i32 %4
}

declare void @llvm.memcpy.p0.p0.i64(ptr, ptr, i64, i1)
declare void @print_int(i32)
`)
}

func TestArithmeticEvaluationOrder(t *testing.T) {
	source := `function main(): int {
    var x: int := 2 + 3 * 4;
    x := x - 1;
    return x;
}`
	body := functionBody(t, compile(t, source), "main")
	mul := indexOf(body, "%0 = mul i32 3, 4")
	add := indexOf(body, "%1 = add i32 2, %0")
	store := indexOf(body, "store i32 %1, ptr %x.addr")
	sub := indexOf(body, "%3 = sub i32 %2, 1")
	be.True(t, mul >= 0)
	be.True(t, mul < add && add < store && store < sub)

	// The interpreter agrees on the value the IR returns.
	program, tc := checkSource(t, source)
	code, err := NewInterpreter(tc).Run(program)
	be.Err(t, err, nil)
	be.Equal(t, code, int32(13))
}

func TestStructInitOffsets(t *testing.T) {
	body := functionBody(t, compile(t, `struct Point { val x: int, val y: int }
function main(): int {
    val p: struct Point := struct Point(1, 2);
    return p.x + p.y;
}`), "main")
	want := []string{
		"%0 = getelementptr %Point, ptr %p.addr, i32 0, i32 0",
		"store i32 1, ptr %0",
		"%1 = getelementptr %Point, ptr %p.addr, i32 0, i32 1",
		"store i32 2, ptr %1",
		"%2 = getelementptr %Point, ptr %p.addr, i32 0, i32 0",
		"%3 = load i32, ptr %2",
		"%4 = getelementptr %Point, ptr %p.addr, i32 0, i32 1",
	}
	start := indexOf(body, want[0])
	be.True(t, start >= 0)
	for i, line := range want {
		be.Equal(t, body[start+i], line)
	}
}

func TestNestedStructInitWritesInPlace(t *testing.T) {
	body := functionBody(t, compile(t, `struct In { val a: int, val b: int }
struct Out { val first: int, val inner: struct In }
function main() {
    val o: struct Out := struct Out(1, struct In(2, 3));
}`), "main")
	be.True(t, indexOf(body, "%1 = getelementptr %Out, ptr %o.addr, i32 0, i32 1") >= 0)
	be.True(t, indexOf(body, "%2 = getelementptr %In, ptr %1, i32 0, i32 0") >= 0)
	be.True(t, indexOf(body, "%3 = getelementptr %In, ptr %1, i32 0, i32 1") >= 0)
	for _, line := range body {
		be.True(t, !strings.Contains(line, "memcpy"))
	}
}

func TestIndexedFieldNeverLoadsElement(t *testing.T) {
	body := functionBody(t, compile(t, `struct Item { var f: int, var g: float }
function set(var a: [struct Item], val i: int, val v: float) {
    a[i].g := v;
    a[i].g := a[i].g * 2.0;
}`), "set")

	loadOfItem := regexp.MustCompile(`= load %Item`)
	for _, line := range body {
		be.True(t, !loadOfItem.MatchString(line))
	}
	elem := indexOf(body, "%arrayidx.0 = getelementptr %Item, ptr %0, i32 %1")
	field := indexOf(body, "%2 = getelementptr %Item, ptr %arrayidx.0, i32 0, i32 1")
	be.True(t, elem >= 0)
	be.Equal(t, field, elem+1)
	be.True(t, indexOf(body, "store float %3, ptr %2") > field)

	// Each access computes a fresh element address.
	be.True(t, indexOf(body, "%arrayidx.1 = getelementptr %Item, ptr %4, i32 %5") >= 0)
	be.True(t, indexOf(body, "%arrayidx.2 = getelementptr %Item, ptr %7, i32 %8") >= 0)
}

func TestShadowedSlotsAreDistinct(t *testing.T) {
	body := functionBody(t, compile(t, `function main() {
    var x: int := 1;
    {
        var x: int := 2;
        {
            var x: int := 3;
        }
        {
            var x: int := 4;
            {
                var x: int := 5;
            }
        }
    }
}`), "main")

	allocaRe := regexp.MustCompile(`^(%x[.\w]*) = alloca i32$`)
	var slots []string
	for _, line := range body {
		if m := allocaRe.FindStringSubmatch(line); m != nil {
			slots = append(slots, m[1])
		}
	}
	be.Equal(t, slots, []string{"%x.addr", "%x.1.addr", "%x.2.addr", "%x.2.addr.1", "%x.3.addr"})
}

func TestShadowedSlotsResolveToTheRightBinding(t *testing.T) {
	body := functionBody(t, compile(t, `function main() {
    var x: int := 1;
    {
        var x: int := 2;
        print_int(x);
    }
    print_int(x);
}`), "main")
	inner := indexOf(body, "%0 = load i32, ptr %x.1.addr")
	outer := indexOf(body, "%1 = load i32, ptr %x.addr")
	be.True(t, inner >= 0 && outer > inner)
}

func TestParametersDoNotClashWithReservedNames(t *testing.T) {
	ir := compile(t, `function f(val retval: int, val entry: int): int {
    return retval + entry;
}`)
	body := functionBody(t, ir, "f")
	be.Equal(t, body[0], "define i32 @f(i32 %retval.arg, i32 %entry.arg) {")
	be.True(t, indexOf(body, "%retval.addr = alloca i32") >= 0)
	be.True(t, indexOf(body, "store i32 %retval.arg, ptr %retval.addr") >= 0)
}

func TestRecursiveCallUsesFunctionName(t *testing.T) {
	body := functionBody(t, compile(t, `function fact(val n: int): int {
    if n <= 1 {
        return 1;
    }
    return n * fact(n - 1);
}`), "fact")
	be.True(t, indexOf(body, "%1 = icmp sle i32 %0, 1") >= 0)
	be.True(t, indexOf(body, "after.return2:") >= 0)
	be.True(t, indexOf(body, "%5 = call i32 @fact(i32 %4)") >= 0)
	be.True(t, indexOf(body, "%6 = mul i32 %2, %5") >= 0)
}

func TestGlobalsKeepDeclarationOrder(t *testing.T) {
	ir := compile(t, `val c: char := 'A';
struct S { val b: bool, val c: char }
var z: int := -1;
val s: struct S := struct S(false, 'a');
val names: string := "n";
function main() {}`)
	top := strings.Split(strings.SplitN(ir, "\n\n", 2)[0], "\n")
	be.Equal(t, top, []string{
		"@c = constant i8 65",
		"%S = type { i1, i8 }",
		"@z = global i32 -1",
		"@s = constant %S { i1 false, i8 97 }",
		`@.str.names.0 = private unnamed_addr constant [2 x i8] c"n\00"`,
		"@names = constant ptr @.str.names.0",
	})
}

func TestGlobalFoldingFailure(t *testing.T) {
	_, err := CompileProgram([]byte("val a: int := 1 / (2 - 2);\nfunction main() {}"))
	var runtimeErr *RuntimeError
	be.True(t, errors.As(err, &runtimeErr))
	be.Equal(t, runtimeErr.Msg, "integer division by zero")
}

func TestInternalErrorOnUncheckedTree(t *testing.T) {
	program := parseProgram(t, "function main() {\n    print_int(1);\n}")
	tc := NewTypeChecker()
	be.Err(t, RegisterDeclarations(program, tc), nil)

	e, err := GenerateIR(program, tc)
	be.True(t, e == nil)
	var ice *InternalCodegenError
	be.True(t, errors.As(err, &ice))
	be.Equal(t, ice.Kind, NodeInteger)
	be.Equal(t, err.Error(), "internal codegen error: NodeInteger: expression has no type")
}

func TestVoidMainReturnsZero(t *testing.T) {
	body := functionBody(t, compile(t, "function main() {}"), "main")
	be.Equal(t, body, []string{
		"define i32 @main() {",
		"entry:",
		"%retval = alloca i32",
		"store i32 0, ptr %retval",
		"br label %return",
		"return:",
		"%0 = load i32, ptr %retval",
		"ret i32 %0",
		"}",
	})
}

func TestCallingVoidMain(t *testing.T) {
	body := functionBody(t, compile(t, "function main() {}\nfunction again() {\n    main();\n}"), "again")
	be.True(t, indexOf(body, "%0 = call i32 @main()") >= 0)
}

func TestStringLiteralsPerFunction(t *testing.T) {
	ir := compile(t, `function main() {
    print_str("one");
    print_str("two");
}`)
	be.True(t, strings.Contains(ir, `@.str.main.0 = private unnamed_addr constant [4 x i8] c"one\00"`))
	be.True(t, strings.Contains(ir, `@.str.main.1 = private unnamed_addr constant [4 x i8] c"two\00"`))
	be.True(t, strings.Contains(ir, "call void @print_str(ptr @.str.main.1)"))
}

func TestStringEscapesInConstants(t *testing.T) {
	ir := compile(t, `function main() {
    print_str("a\n\"b\"");
}`)
	be.True(t, strings.Contains(ir, `@.str.main.0 = private unnamed_addr constant [6 x i8] c"a\0A\22b\22\00"`))
}
