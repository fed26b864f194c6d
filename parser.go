package main

import "fmt"

// Parser builds an AST from the lexer's token stream. Children lists are
// built in source order.
type Parser struct {
	l *Lexer
}

// ParseProgram parses a whole compilation unit. The lexer must not have
// been advanced yet.
func ParseProgram(l *Lexer) (program *ASTNode, err error) {
	p := &Parser{l: l}
	defer p.recoverSyntaxError(&err)
	l.NextToken()
	program = &ASTNode{Kind: NodeProgram, Line: l.CurrLine}
	for l.CurrTokenType != EOF {
		program.Children = append(program.Children, p.parseTopLevel())
	}
	return program, nil
}

// ParseExpression parses a single expression that spans the whole input.
func ParseExpression(l *Lexer) (expr *ASTNode, err error) {
	p := &Parser{l: l}
	defer p.recoverSyntaxError(&err)
	l.NextToken()
	expr = p.parseExpressionWithPrecedence(0)
	if l.CurrTokenType != EOF {
		p.fail("unexpected %q after expression", l.CurrLiteral)
	}
	return expr, nil
}

func (p *Parser) recoverSyntaxError(err *error) {
	if r := recover(); r != nil {
		if se, ok := r.(*SyntaxError); ok {
			*err = se
			return
		}
		panic(r)
	}
}

func (p *Parser) fail(format string, args ...any) {
	panic(&SyntaxError{Line: p.l.CurrLine, Msg: fmt.Sprintf(format, args...)})
}

// skipToken advances past the current token, asserting it matches the
// expected type.
func (p *Parser) skipToken(expected TokenType) {
	if p.l.CurrTokenType != expected {
		if p.l.CurrTokenType == ILLEGAL {
			p.fail("%s", p.l.CurrLiteral)
		}
		p.fail("expected %s but got %q", expected, p.l.CurrLiteral)
	}
	p.l.NextToken()
}

func (p *Parser) expectIdent() string {
	name := p.l.CurrLiteral
	p.skipToken(IDENT)
	return name
}

func (p *Parser) parseTopLevel() *ASTNode {
	switch p.l.CurrTokenType {
	case FUNCTION:
		return p.parseFunction()
	case STRUCT:
		return p.parseStruct()
	case VAR, VAL:
		return p.parseVarDef()
	}
	p.fail("expected declaration or definition but got %q", p.l.CurrLiteral)
	return nil
}

func (p *Parser) parseFunction() *ASTNode {
	node := &ASTNode{Kind: NodeFuncDecl, Line: p.l.CurrLine}
	p.skipToken(FUNCTION)
	node.String = p.expectIdent()
	p.skipToken(LPAREN)
	for p.l.CurrTokenType != RPAREN {
		node.Params = append(node.Params, p.parseParam())
		if p.l.CurrTokenType != COMMA {
			break
		}
		p.skipToken(COMMA)
	}
	p.skipToken(RPAREN)
	node.DeclType = TypeVoid
	if p.l.CurrTokenType == COLON {
		p.skipToken(COLON)
		node.DeclType = p.parseType()
	}
	if p.l.CurrTokenType == SEMICOLON {
		p.skipToken(SEMICOLON)
		return node
	}
	node.Kind = NodeFunc
	node.Children = []*ASTNode{p.parseBlock()}
	return node
}

func (p *Parser) parseParam() Param {
	var param Param
	switch p.l.CurrTokenType {
	case VAR:
		param.Mutability = MutVar
	case VAL:
		param.Mutability = MutVal
	default:
		p.fail("expected var or val but got %q", p.l.CurrLiteral)
	}
	p.l.NextToken()
	param.Name = p.expectIdent()
	p.skipToken(COLON)
	param.Type = p.parseType()
	return param
}

func (p *Parser) parseStruct() *ASTNode {
	node := &ASTNode{Kind: NodeStruct, Line: p.l.CurrLine}
	p.skipToken(STRUCT)
	node.String = p.expectIdent()
	p.skipToken(LBRACE)
	for p.l.CurrTokenType != RBRACE {
		node.Params = append(node.Params, p.parseParam())
		if p.l.CurrTokenType == COMMA || p.l.CurrTokenType == SEMICOLON {
			p.l.NextToken()
		} else {
			break
		}
	}
	p.skipToken(RBRACE)
	return node
}

func (p *Parser) parseType() *TypeNode {
	switch p.l.CurrTokenType {
	case INT:
		p.l.NextToken()
		return TypeInt
	case FLOAT:
		p.l.NextToken()
		return TypeFloat
	case STRING:
		p.l.NextToken()
		return TypeString
	case CHAR:
		p.l.NextToken()
		return TypeChar
	case BOOL:
		p.l.NextToken()
		return TypeBool
	case VOID:
		p.l.NextToken()
		return TypeVoid
	case STRUCT:
		p.l.NextToken()
		return StructType(p.expectIdent())
	case LBRACKET:
		p.l.NextToken()
		elem := p.parseType()
		p.skipToken(RBRACKET)
		return ArrayOf(elem)
	}
	p.fail("expected type but got %q", p.l.CurrLiteral)
	return nil
}

func (p *Parser) parseVarDef() *ASTNode {
	node := &ASTNode{Kind: NodeVar, Line: p.l.CurrLine}
	if p.l.CurrTokenType == VAL {
		node.Mutability = MutVal
	}
	p.l.NextToken()
	node.String = p.expectIdent()
	p.skipToken(COLON)
	node.DeclType = p.parseType()
	p.skipToken(DECLARE)
	node.Children = []*ASTNode{p.parseExpressionWithPrecedence(0)}
	p.skipToken(SEMICOLON)
	return node
}

func (p *Parser) parseBlock() *ASTNode {
	node := &ASTNode{Kind: NodeBlock, Line: p.l.CurrLine}
	p.skipToken(LBRACE)
	for p.l.CurrTokenType != RBRACE {
		if p.l.CurrTokenType == EOF {
			p.fail("unexpected end of input in block")
		}
		node.Children = append(node.Children, p.parseStatement())
	}
	p.skipToken(RBRACE)
	return node
}

// parseStatement parses a statement and returns an AST node
func (p *Parser) parseStatement() *ASTNode {
	line := p.l.CurrLine
	switch p.l.CurrTokenType {
	case VAR, VAL:
		return p.parseVarDef()

	case LBRACE:
		return p.parseBlock()

	case IF:
		p.skipToken(IF)
		node := &ASTNode{Kind: NodeIf, Line: line}
		cond := p.parseExpressionWithPrecedence(0)
		node.Children = []*ASTNode{cond, p.parseBlock()}
		if p.l.CurrTokenType == ELSE {
			p.skipToken(ELSE)
			node.Children = append(node.Children, p.parseBlock())
		}
		return node

	case WHILE:
		p.skipToken(WHILE)
		guard := p.parseExpressionWithPrecedence(0)
		return &ASTNode{Kind: NodeWhile, Line: line, Children: []*ASTNode{guard, p.parseBlock()}}

	case RETURN:
		p.skipToken(RETURN)
		node := &ASTNode{Kind: NodeReturn, Line: line}
		if p.l.CurrTokenType != SEMICOLON {
			node.Children = []*ASTNode{p.parseExpressionWithPrecedence(0)}
		}
		p.skipToken(SEMICOLON)
		return node

	case IDENT:
		target := p.parsePostfix()
		if p.l.CurrTokenType == DECLARE {
			switch target.Kind {
			case NodeIdent, NodeIndex, NodeDot:
			default:
				p.fail("cannot assign to %s", ToSExpr(target))
			}
			p.skipToken(DECLARE)
			value := p.parseExpressionWithPrecedence(0)
			p.skipToken(SEMICOLON)
			return &ASTNode{Kind: NodeAssign, Line: line, Children: []*ASTNode{target, value}}
		}
		if target.Kind != NodeCall {
			p.fail("expression statement must be a function call")
		}
		p.skipToken(SEMICOLON)
		return target
	}
	p.fail("expected statement but got %q", p.l.CurrLiteral)
	return nil
}

// precedence returns the precedence level for a given binary operator token
func precedence(tokenType TokenType) int {
	switch tokenType {
	case OR:
		return 1
	case AND:
		return 2
	case EQ, NOT_EQ:
		return 3
	case LT, GT, LE, GE:
		return 4
	case PLUS, MINUS:
		return 5
	case ASTERISK, SLASH, PERCENT:
		return 6
	case CARET:
		return 7
	default:
		return 0 // not a binary operator
	}
}

// parseExpressionWithPrecedence implements precedence climbing
func (p *Parser) parseExpressionWithPrecedence(minPrec int) *ASTNode {
	left := p.parseUnary()
	for {
		prec := precedence(p.l.CurrTokenType)
		if prec == 0 || prec < minPrec {
			return left
		}
		op := p.l.CurrLiteral
		line := p.l.CurrLine
		p.l.NextToken()
		var right *ASTNode
		if op == "^" {
			right = p.parseExpressionWithPrecedence(prec) // right-associative
		} else {
			right = p.parseExpressionWithPrecedence(prec + 1)
		}
		left = &ASTNode{Kind: NodeBinary, Op: op, Line: line, Children: []*ASTNode{left, right}}
	}
}

func (p *Parser) parseUnary() *ASTNode {
	if p.l.CurrTokenType == MINUS || p.l.CurrTokenType == BANG {
		op := p.l.CurrLiteral
		line := p.l.CurrLine
		p.l.NextToken()
		if op == "-" && p.l.CurrTokenType == INT_LIT && p.l.CurrIntValue == minIntMagnitude {
			operand := &ASTNode{Kind: NodeInteger, Line: p.l.CurrLine, Integer: p.l.CurrIntValue}
			p.l.NextToken()
			return &ASTNode{Kind: NodeUnary, Op: op, Line: line, Children: []*ASTNode{operand}}
		}
		operand := p.parseUnary()
		return &ASTNode{Kind: NodeUnary, Op: op, Line: line, Children: []*ASTNode{operand}}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *ASTNode {
	left := p.parsePrimary()
	for {
		line := p.l.CurrLine
		switch p.l.CurrTokenType {
		case LBRACKET:
			p.skipToken(LBRACKET)
			index := p.parseExpressionWithPrecedence(0)
			p.skipToken(RBRACKET)
			left = &ASTNode{Kind: NodeIndex, Line: line, Children: []*ASTNode{left, index}}
		case DOT:
			p.skipToken(DOT)
			field := p.expectIdent()
			left = &ASTNode{Kind: NodeDot, Line: line, String: field, Children: []*ASTNode{left}}
		default:
			return left
		}
	}
}

func (p *Parser) parseArguments() []*ASTNode {
	p.skipToken(LPAREN)
	var args []*ASTNode
	for p.l.CurrTokenType != RPAREN {
		args = append(args, p.parseExpressionWithPrecedence(0))
		if p.l.CurrTokenType != COMMA {
			break
		}
		p.skipToken(COMMA)
	}
	p.skipToken(RPAREN)
	return args
}

// parsePrimary handles literals, identifiers, calls, struct literals and
// parenthesized expressions.
func (p *Parser) parsePrimary() *ASTNode {
	line := p.l.CurrLine
	switch p.l.CurrTokenType {
	case INT_LIT:
		if p.l.CurrIntValue >= minIntMagnitude {
			p.fail("integer literal %d does not fit in int", p.l.CurrIntValue)
		}
		node := &ASTNode{Kind: NodeInteger, Line: line, Integer: p.l.CurrIntValue}
		p.l.NextToken()
		return node

	case FLOAT_LIT:
		node := &ASTNode{Kind: NodeFloat, Line: line, Float: p.l.CurrFloatValue}
		p.l.NextToken()
		return node

	case STRING_LIT:
		node := &ASTNode{Kind: NodeString, Line: line, String: p.l.CurrLiteral}
		p.l.NextToken()
		return node

	case CHAR_LIT:
		node := &ASTNode{Kind: NodeChar, Line: line, Char: byte(p.l.CurrIntValue)}
		p.l.NextToken()
		return node

	case TRUE, FALSE:
		node := &ASTNode{Kind: NodeBoolean, Line: line, Boolean: p.l.CurrTokenType == TRUE}
		p.l.NextToken()
		return node

	case IDENT:
		name := p.expectIdent()
		if p.l.CurrTokenType == LPAREN {
			return &ASTNode{Kind: NodeCall, Line: line, String: name, Children: p.parseArguments()}
		}
		return &ASTNode{Kind: NodeIdent, Line: line, String: name}

	case STRUCT:
		p.skipToken(STRUCT)
		name := p.expectIdent()
		return &ASTNode{Kind: NodeStructInit, Line: line, String: name, Children: p.parseArguments()}

	case LPAREN:
		p.skipToken(LPAREN)
		expr := p.parseExpressionWithPrecedence(0)
		p.skipToken(RPAREN)
		return expr

	case ILLEGAL:
		p.fail("%s", p.l.CurrLiteral)
	}
	p.fail("expected expression but got %q", p.l.CurrLiteral)
	return nil
}
