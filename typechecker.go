package main

// StructDef is a registered struct declaration. A field's position in
// Fields is its offset in every address computation.
type StructDef struct {
	Name   string
	Fields []Param
	Line   int
	index  map[string]int
}

// FieldIndex returns the declaration-order index of a field.
func (s *StructDef) FieldIndex(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// TypeChecker is the analysis context: global tables filled by
// RegisterDeclarations plus the scope stack used while checking bodies.
type TypeChecker struct {
	Symbols     *SymbolTable
	Funcs       map[string]*FuncSignature
	Structs     map[string]*StructDef
	StructOrder []string

	currentFunc *FuncSignature
}

func NewTypeChecker() *TypeChecker {
	return &TypeChecker{
		Symbols: NewSymbolTable(),
		Funcs:   newBuiltinTable(),
		Structs: make(map[string]*StructDef),
	}
}

// CheckProgram runs both analysis passes over program, annotating it in
// place. It stops at the first semantic error.
func CheckProgram(program *ASTNode) (*TypeChecker, error) {
	tc := NewTypeChecker()
	if err := RegisterDeclarations(program, tc); err != nil {
		return nil, err
	}
	for _, node := range program.Children {
		if err := CheckDefinition(node, tc); err != nil {
			return nil, err
		}
	}
	return tc, nil
}

// RegisterDeclarations is the first pass: it records every struct and
// function header so bodies may refer to them regardless of source order.
func RegisterDeclarations(program *ASTNode, tc *TypeChecker) error {
	for _, node := range program.Children {
		switch node.Kind {
		case NodeStruct:
			if err := registerStruct(node, tc); err != nil {
				return err
			}
		case NodeFunc, NodeFuncDecl:
			if err := registerFunction(node, tc); err != nil {
				return err
			}
		}
	}

	for _, name := range tc.StructOrder {
		def := tc.Structs[name]
		for _, field := range def.Fields {
			if field.Type.IsStruct() && field.Type.StructName == def.Name {
				return &SemanticError{Line: def.Line, Msg: "struct '" + def.Name + "' cannot contain itself"}
			}
			if err := validateType(field.Type, &ASTNode{Line: def.Line}, tc, false); err != nil {
				return err
			}
		}
	}
	if err := checkStructCycles(tc); err != nil {
		return err
	}

	for _, node := range program.Children {
		if node.Kind != NodeFunc && node.Kind != NodeFuncDecl {
			continue
		}
		for _, param := range node.Params {
			if err := validateType(param.Type, node, tc, false); err != nil {
				return err
			}
		}
		if err := validateType(node.DeclType, node, tc, true); err != nil {
			return err
		}
	}
	return nil
}

func registerStruct(node *ASTNode, tc *TypeChecker) error {
	if _, exists := tc.Structs[node.String]; exists {
		return semanticErrorf(node, "struct '%s' already declared", node.String)
	}
	def := &StructDef{Name: node.String, Fields: node.Params, Line: node.Line, index: make(map[string]int)}
	for i, field := range node.Params {
		if _, dup := def.index[field.Name]; dup {
			return semanticErrorf(node, "duplicate field '%s' in struct '%s'", field.Name, node.String)
		}
		def.index[field.Name] = i
	}
	tc.Structs[def.Name] = def
	tc.StructOrder = append(tc.StructOrder, def.Name)
	return nil
}

// reservedSymbols are C library functions that generated code or the C
// runtime links against. User functions and globals share their namespace.
var reservedSymbols = map[string]bool{
	"malloc": true,
	"calloc": true,
	"memcpy": true,
	"printf": true,
	"pow":    true,
}

func registerFunction(node *ASTNode, tc *TypeChecker) error {
	isDef := node.Kind == NodeFunc
	if reservedSymbols[node.String] {
		return semanticErrorf(node, "function name '%s' is reserved", node.String)
	}
	if existing, ok := tc.Funcs[node.String]; ok {
		if existing.Builtin || (isDef && existing.HasBody) || (!isDef && existing.HasDecl) {
			return semanticErrorf(node, "function '%s' already declared", node.String)
		}
		if !sameSignature(existing, node) {
			return semanticErrorf(node, "definition of '%s' does not match its declaration on line %d", node.String, existing.Line)
		}
		if isDef {
			existing.HasBody = true
			existing.Params = node.Params
		} else {
			existing.HasDecl = true
		}
		return nil
	}
	tc.Funcs[node.String] = &FuncSignature{
		Name:       node.String,
		Params:     node.Params,
		ReturnType: node.DeclType,
		Line:       node.Line,
		HasDecl:    !isDef,
		HasBody:    isDef,
	}
	return nil
}

func sameSignature(sig *FuncSignature, node *ASTNode) bool {
	if !TypesEqual(sig.ReturnType, node.DeclType) || len(sig.Params) != len(node.Params) {
		return false
	}
	for i, p := range sig.Params {
		if !TypesEqual(p.Type, node.Params[i].Type) {
			return false
		}
	}
	return true
}

// checkStructCycles rejects structs that contain themselves by value through
// any chain of fields. Arrays are references and do not count.
func checkStructCycles(tc *TypeChecker) error {
	const (
		visiting = iota + 1
		done
	)
	state := make(map[string]int)
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visiting:
			def := tc.Structs[name]
			return &SemanticError{Line: def.Line, Msg: "struct '" + name + "' recursively contains itself through '" + path[len(path)-1] + "'"}
		case done:
			return nil
		}
		state[name] = visiting
		for _, field := range tc.Structs[name].Fields {
			if field.Type.IsStruct() {
				if err := visit(field.Type.StructName, append(path, name)); err != nil {
					return err
				}
			}
		}
		state[name] = done
		return nil
	}
	for _, name := range tc.StructOrder {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// validateType checks that every struct a type names exists and that void
// only appears where allowVoid permits it.
func validateType(t *TypeNode, node *ASTNode, tc *TypeChecker, allowVoid bool) error {
	switch t.Kind {
	case KindVoid:
		if t.ArrayDepth > 0 {
			return semanticErrorf(node, "array of void is not a type")
		}
		if !allowVoid {
			return semanticErrorf(node, "void is not a value type")
		}
	case KindStruct:
		if _, ok := tc.Structs[t.StructName]; !ok {
			return semanticErrorf(node, "unknown struct '%s'", t.StructName)
		}
	}
	return nil
}

// CheckDefinition checks one top-level declaration or definition.
func CheckDefinition(node *ASTNode, tc *TypeChecker) error {
	switch node.Kind {
	case NodeStruct, NodeFuncDecl:
		return nil

	case NodeVar:
		if reservedSymbols[node.String] {
			return semanticErrorf(node, "global name '%s' is reserved", node.String)
		}
		if _, clash := tc.Funcs[node.String]; clash {
			return semanticErrorf(node, "global '%s' has the same name as a function", node.String)
		}
		if err := validateType(node.DeclType, node, tc, false); err != nil {
			return err
		}
		init := node.Children[0]
		if err := CheckExpression(init, tc); err != nil {
			return err
		}
		if !isConstantExpr(init) {
			return semanticErrorf(node, "initializer of global '%s' is not a compile-time constant", node.String)
		}
		if !TypesEqual(init.TypeAST, node.DeclType) {
			return semanticErrorf(node, "cannot initialize '%s' of type %s with value of type %s", node.String, node.DeclType, init.TypeAST)
		}
		symbol, err := tc.Symbols.DeclareVariable(node.String, node.DeclType, node.Mutability)
		if err != nil {
			return semanticErrorf(node, "%v", err)
		}
		node.IsGlobal = true
		node.ShadowDepth = symbol.ShadowDepth
		return nil

	case NodeFunc:
		tc.currentFunc = tc.Funcs[node.String]
		defer func() { tc.currentFunc = nil }()

		// Parameters and the top-level statements of the body share a frame.
		tc.Symbols.PushScope()
		defer tc.Symbols.PopScope()
		for i, param := range node.Params {
			symbol, err := tc.Symbols.DeclareVariable(param.Name, param.Type, param.Mutability)
			if err != nil {
				return semanticErrorf(node, "%v", err)
			}
			node.Params[i].ShadowDepth = symbol.ShadowDepth
		}
		for _, stmt := range node.Children[0].Children {
			if err := CheckStatement(stmt, tc); err != nil {
				return err
			}
		}
		// Scalar results start out as zero. Strings, arrays and structs have
		// no such value, so every path must return one.
		ret := tc.currentFunc.ReturnType
		if !ret.IsVoid() && !ret.isScalar() && !alwaysReturns(node.Children[0].Children) {
			return semanticErrorf(node, "function '%s' can end without returning a value of type %s", node.String, ret)
		}
		return nil
	}
	return semanticErrorf(node, "unexpected %s at top level", node.Kind)
}

// alwaysReturns reports whether every path through stmts reaches a return.
// Loops are assumed to exit.
func alwaysReturns(stmts []*ASTNode) bool {
	for _, stmt := range stmts {
		switch stmt.Kind {
		case NodeReturn:
			return true
		case NodeBlock:
			if alwaysReturns(stmt.Children) {
				return true
			}
		case NodeIf:
			if len(stmt.Children) > 2 &&
				alwaysReturns(stmt.Children[1].Children) && alwaysReturns(stmt.Children[2].Children) {
				return true
			}
		}
	}
	return false
}

// CheckStatement checks a statement and annotates the expressions inside it.
func CheckStatement(node *ASTNode, tc *TypeChecker) error {
	switch node.Kind {
	case NodeVar:
		if err := validateType(node.DeclType, node, tc, false); err != nil {
			return err
		}
		init := node.Children[0]
		if err := CheckExpression(init, tc); err != nil {
			return err
		}
		if !TypesEqual(init.TypeAST, node.DeclType) {
			return semanticErrorf(node, "cannot initialize '%s' of type %s with value of type %s", node.String, node.DeclType, init.TypeAST)
		}
		symbol, err := tc.Symbols.DeclareVariable(node.String, node.DeclType, node.Mutability)
		if err != nil {
			return semanticErrorf(node, "%v", err)
		}
		node.IsGlobal = false
		node.ShadowDepth = symbol.ShadowDepth
		return nil

	case NodeBlock:
		tc.Symbols.PushScope()
		defer tc.Symbols.PopScope()
		for _, stmt := range node.Children {
			if err := CheckStatement(stmt, tc); err != nil {
				return err
			}
		}
		return nil

	case NodeAssign:
		target, value := node.Children[0], node.Children[1]
		targetType, valName, err := checkAssignTarget(target, tc)
		if err != nil {
			return err
		}
		if valName != "" {
			return semanticErrorf(node, "cannot assign to val %s", valName)
		}
		if err := CheckExpression(value, tc); err != nil {
			return err
		}
		if !TypesEqual(targetType, value.TypeAST) {
			return semanticErrorf(node, "cannot assign value of type %s to target of type %s", value.TypeAST, targetType)
		}
		return nil

	case NodeIf:
		if err := checkCondition(node.Children[0], "if condition", tc); err != nil {
			return err
		}
		for _, block := range node.Children[1:] {
			if err := CheckStatement(block, tc); err != nil {
				return err
			}
		}
		return nil

	case NodeWhile:
		if err := checkCondition(node.Children[0], "while guard", tc); err != nil {
			return err
		}
		return CheckStatement(node.Children[1], tc)

	case NodeReturn:
		fn := tc.currentFunc
		if fn == nil {
			return semanticErrorf(node, "return outside of a function")
		}
		if len(node.Children) == 0 {
			if !fn.ReturnType.IsVoid() {
				return semanticErrorf(node, "function '%s' must return a value of type %s", fn.Name, fn.ReturnType)
			}
			return nil
		}
		value := node.Children[0]
		if err := CheckExpression(value, tc); err != nil {
			return err
		}
		if fn.ReturnType.IsVoid() {
			return semanticErrorf(node, "function '%s' does not return a value", fn.Name)
		}
		if !TypesEqual(value.TypeAST, fn.ReturnType) {
			return semanticErrorf(node, "function '%s' returns %s, not %s", fn.Name, fn.ReturnType, value.TypeAST)
		}
		return nil

	case NodeCall:
		return CheckExpression(node, tc)
	}
	return semanticErrorf(node, "unexpected %s in statement position", node.Kind)
}

func checkCondition(cond *ASTNode, what string, tc *TypeChecker) error {
	if err := CheckExpression(cond, tc); err != nil {
		return err
	}
	if !TypesEqual(cond.TypeAST, TypeBool) {
		return semanticErrorf(cond, "%s must be bool, not %s", what, cond.TypeAST)
	}
	return nil
}

// checkAssignTarget resolves an assignment target chain. It returns the
// target's type and, if any link of the chain is immutable, a description of
// that link.
func checkAssignTarget(node *ASTNode, tc *TypeChecker) (*TypeNode, string, error) {
	switch node.Kind {
	case NodeIdent:
		if err := CheckExpression(node, tc); err != nil {
			return nil, "", err
		}
		symbol := tc.Symbols.LookupVariable(node.String)
		if symbol.Mutability == MutVal {
			return node.TypeAST, "'" + node.String + "'", nil
		}
		return node.TypeAST, "", nil

	case NodeIndex:
		base, index := node.Children[0], node.Children[1]
		baseType, valName, err := checkAssignTarget(base, tc)
		if err != nil {
			return nil, "", err
		}
		if err := checkIndex(node, baseType, index, tc); err != nil {
			return nil, "", err
		}
		return node.TypeAST, valName, nil

	case NodeDot:
		baseType, valName, err := checkAssignTarget(node.Children[0], tc)
		if err != nil {
			return nil, "", err
		}
		field, err := checkField(node, baseType, tc)
		if err != nil {
			return nil, "", err
		}
		if valName == "" && field.Mutability == MutVal {
			valName = "field '" + field.Name + "' of " + TypeToString(baseType)
		}
		return node.TypeAST, valName, nil
	}
	return nil, "", semanticErrorf(node, "invalid assignment target")
}

func checkIndex(node *ASTNode, baseType *TypeNode, index *ASTNode, tc *TypeChecker) error {
	if !baseType.IsArray() {
		return semanticErrorf(node, "cannot index value of type %s", baseType)
	}
	if err := CheckExpression(index, tc); err != nil {
		return err
	}
	if !TypesEqual(index.TypeAST, TypeInt) {
		return semanticErrorf(node, "array index must be int, not %s", index.TypeAST)
	}
	node.TypeAST = ElementType(baseType)
	return nil
}

func checkField(node *ASTNode, baseType *TypeNode, tc *TypeChecker) (Param, error) {
	if !baseType.IsStruct() {
		return Param{}, semanticErrorf(node, "cannot access field '%s' of non-struct type %s", node.String, baseType)
	}
	def := tc.Structs[baseType.StructName]
	i, ok := def.FieldIndex(node.String)
	if !ok {
		return Param{}, semanticErrorf(node, "struct '%s' has no field '%s'", def.Name, node.String)
	}
	field := def.Fields[i]
	node.TypeAST = field.Type
	return field, nil
}

// CheckExpression type-checks an expression and records its type in
// node.TypeAST (and scope information on identifiers).
func CheckExpression(node *ASTNode, tc *TypeChecker) error {
	switch node.Kind {
	case NodeInteger:
		node.TypeAST = TypeInt
	case NodeFloat:
		node.TypeAST = TypeFloat
	case NodeString:
		node.TypeAST = TypeString
	case NodeChar:
		node.TypeAST = TypeChar
	case NodeBoolean:
		node.TypeAST = TypeBool

	case NodeIdent:
		symbol := tc.Symbols.LookupVariable(node.String)
		if symbol == nil {
			return semanticErrorf(node, "undefined variable '%s'", node.String)
		}
		node.TypeAST = symbol.Type
		node.IsGlobal = symbol.Global
		node.ShadowDepth = symbol.ShadowDepth

	case NodeCall:
		sig, ok := tc.Funcs[node.String]
		if !ok {
			return semanticErrorf(node, "undefined function '%s'", node.String)
		}
		if len(node.Children) != len(sig.Params) {
			return semanticErrorf(node, "function '%s' expects %d arguments, got %d", sig.Name, len(sig.Params), len(node.Children))
		}
		for i, arg := range node.Children {
			if err := CheckExpression(arg, tc); err != nil {
				return err
			}
			if !TypesEqual(arg.TypeAST, sig.Params[i].Type) {
				return semanticErrorf(arg, "argument %d of '%s' must be %s, not %s", i+1, sig.Name, sig.Params[i].Type, arg.TypeAST)
			}
		}
		node.TypeAST = sig.ReturnType

	case NodeStructInit:
		def, ok := tc.Structs[node.String]
		if !ok {
			return semanticErrorf(node, "unknown struct '%s'", node.String)
		}
		if len(node.Children) != len(def.Fields) {
			return semanticErrorf(node, "struct '%s' has %d fields, got %d values", def.Name, len(def.Fields), len(node.Children))
		}
		for i, value := range node.Children {
			if err := CheckExpression(value, tc); err != nil {
				return err
			}
			field := def.Fields[i]
			if !TypesEqual(value.TypeAST, field.Type) {
				return semanticErrorf(value, "field '%s' of struct '%s' must be %s, not %s", field.Name, def.Name, field.Type, value.TypeAST)
			}
		}
		node.TypeAST = StructType(def.Name)

	case NodeIndex:
		base, index := node.Children[0], node.Children[1]
		if err := CheckExpression(base, tc); err != nil {
			return err
		}
		return checkIndex(node, base.TypeAST, index, tc)

	case NodeDot:
		base := node.Children[0]
		if err := CheckExpression(base, tc); err != nil {
			return err
		}
		_, err := checkField(node, base.TypeAST, tc)
		return err

	case NodeBinary:
		return checkBinary(node, tc)

	case NodeUnary:
		operand := node.Children[0]
		if err := CheckExpression(operand, tc); err != nil {
			return err
		}
		switch node.Op {
		case "-":
			if !TypesEqual(operand.TypeAST, TypeInt) && !TypesEqual(operand.TypeAST, TypeFloat) {
				return semanticErrorf(node, "cannot negate value of type %s", operand.TypeAST)
			}
			node.TypeAST = operand.TypeAST
		case "!":
			if !TypesEqual(operand.TypeAST, TypeBool) {
				return semanticErrorf(node, "operand of '!' must be bool, not %s", operand.TypeAST)
			}
			node.TypeAST = TypeBool
		default:
			return semanticErrorf(node, "unknown unary operator '%s'", node.Op)
		}

	default:
		return semanticErrorf(node, "%s is not an expression", node.Kind)
	}
	return nil
}

func isArithmeticOp(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%", "^":
		return true
	}
	return false
}

func isComparisonOp(op string) bool {
	switch op {
	case "==", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

func checkBinary(node *ASTNode, tc *TypeChecker) error {
	left, right := node.Children[0], node.Children[1]
	if err := CheckExpression(left, tc); err != nil {
		return err
	}
	if err := CheckExpression(right, tc); err != nil {
		return err
	}
	lt, rt := left.TypeAST, right.TypeAST
	bothInt := TypesEqual(lt, TypeInt) && TypesEqual(rt, TypeInt)
	bothFloat := TypesEqual(lt, TypeFloat) && TypesEqual(rt, TypeFloat)

	switch {
	case isArithmeticOp(node.Op):
		if !bothInt && !bothFloat {
			return semanticErrorf(node, "operator '%s' needs two ints or two floats, got %s and %s", node.Op, lt, rt)
		}
		node.TypeAST = lt
	case isComparisonOp(node.Op):
		if !bothInt && !bothFloat {
			return semanticErrorf(node, "operator '%s' needs two ints or two floats, got %s and %s", node.Op, lt, rt)
		}
		node.TypeAST = TypeBool
	case node.Op == "&&" || node.Op == "||":
		if !TypesEqual(lt, TypeBool) || !TypesEqual(rt, TypeBool) {
			return semanticErrorf(node, "operator '%s' needs two bools, got %s and %s", node.Op, lt, rt)
		}
		node.TypeAST = TypeBool
	default:
		return semanticErrorf(node, "unknown binary operator '%s'", node.Op)
	}
	return nil
}

// isConstantExpr reports whether expr can be evaluated at compile time:
// literals are constant, identifiers and calls are not, and composite
// expressions are constant when all their operands are.
func isConstantExpr(expr *ASTNode) bool {
	switch expr.Kind {
	case NodeInteger, NodeFloat, NodeString, NodeChar, NodeBoolean:
		return true
	case NodeStructInit, NodeBinary, NodeUnary:
		for _, child := range expr.Children {
			if !isConstantExpr(child) {
				return false
			}
		}
		return true
	}
	return false
}
