package main

import (
	"strconv"
	"strings"
)

// TokenType is the type of token (identifier, operator, literal, etc.).
type TokenType string

// Definition of token types
const (
	// Special tokens
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + literals
	IDENT      = "IDENT"
	INT_LIT    = "INT_LIT"
	FLOAT_LIT  = "FLOAT_LIT"
	STRING_LIT = "STRING_LIT"
	CHAR_LIT   = "CHAR_LIT"

	// Operators
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"
	CARET    = "^"
	BANG     = "!"

	LT     = "<"
	GT     = ">"
	EQ     = "=="
	NOT_EQ = "!="
	LE     = "<="
	GE     = ">="
	AND    = "&&"
	OR     = "||"

	DECLARE = ":="

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	DOT       = "."
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"

	// Keywords
	FUNCTION = "FUNCTION"
	VAR      = "VAR"
	VAL      = "VAL"
	STRUCT   = "STRUCT"
	IF       = "IF"
	ELSE     = "ELSE"
	WHILE    = "WHILE"
	RETURN   = "RETURN"
	TRUE     = "TRUE"
	FALSE    = "FALSE"
	INT      = "INT"
	FLOAT    = "FLOAT"
	STRING   = "STRING"
	CHAR     = "CHAR"
	BOOL     = "BOOL"
	VOID     = "VOID"
)

var keywords = map[string]TokenType{
	"function": FUNCTION,
	"var":      VAR,
	"val":      VAL,
	"struct":   STRUCT,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"return":   RETURN,
	"true":     TRUE,
	"false":    FALSE,
	"int":      INT,
	"float":    FLOAT,
	"string":   STRING,
	"char":     CHAR,
	"bool":     BOOL,
	"void":     VOID,
}

// Lexer scans a NUL-terminated source buffer one token at a time. The
// current token lives in the Curr* fields.
type Lexer struct {
	input []byte
	pos   int
	line  int

	CurrTokenType  TokenType
	CurrLiteral    string
	CurrIntValue   int64   // only meaningful when CurrTokenType == INT_LIT
	CurrFloatValue float64 // only meaningful when CurrTokenType == FLOAT_LIT
	CurrLine       int
}

// NewLexer creates a lexer over input. A terminating 0 byte is appended if
// the caller did not supply one.
func NewLexer(input []byte) *Lexer {
	if len(input) == 0 || input[len(input)-1] != 0 {
		input = append(append([]byte{}, input...), 0)
	}
	return &Lexer{input: input, line: 1}
}

func (l *Lexer) set(tokenType TokenType, literal string, width int) {
	l.CurrTokenType = tokenType
	l.CurrLiteral = literal
	l.pos += width
}

// twoChar picks between a two-character token (when the next byte is
// second) and a one-character fallback.
func (l *Lexer) twoChar(second byte, long, short TokenType) {
	switch {
	case l.input[l.pos+1] == second:
		l.set(long, string(l.input[l.pos:l.pos+2]), 2)
	case short == ILLEGAL:
		l.illegal()
	default:
		l.set(short, string(l.input[l.pos]), 1)
	}
}

// NextToken scans the next token and stores it in the lexer.
// Call repeatedly until CurrTokenType == EOF.
func (l *Lexer) NextToken() {
	l.skipWhitespaceAndComments()

	c := l.input[l.pos]
	l.CurrIntValue = 0
	l.CurrFloatValue = 0
	l.CurrLine = l.line

	switch c {
	case 0:
		l.set(EOF, "", 0)
	case '+':
		l.set(PLUS, "+", 1)
	case '-':
		l.set(MINUS, "-", 1)
	case '*':
		l.set(ASTERISK, "*", 1)
	case '/':
		l.set(SLASH, "/", 1)
	case '%':
		l.set(PERCENT, "%", 1)
	case '^':
		l.set(CARET, "^", 1)
	case '!':
		l.twoChar('=', NOT_EQ, BANG)
	case '<':
		l.twoChar('=', LE, LT)
	case '>':
		l.twoChar('=', GE, GT)
	case '=':
		l.twoChar('=', EQ, ILLEGAL)
	case ':':
		l.twoChar('=', DECLARE, COLON)
	case '&':
		l.twoChar('&', AND, ILLEGAL)
	case '|':
		l.twoChar('|', OR, ILLEGAL)
	case ',':
		l.set(COMMA, ",", 1)
	case ';':
		l.set(SEMICOLON, ";", 1)
	case '.':
		l.set(DOT, ".", 1)
	case '(':
		l.set(LPAREN, "(", 1)
	case ')':
		l.set(RPAREN, ")", 1)
	case '{':
		l.set(LBRACE, "{", 1)
	case '}':
		l.set(RBRACE, "}", 1)
	case '[':
		l.set(LBRACKET, "[", 1)
	case ']':
		l.set(RBRACKET, "]", 1)
	case '"':
		l.readString()
	case '\'':
		l.readChar()
	default:
		if isLetter(c) {
			lit := l.readIdentifier()
			if kw, ok := keywords[lit]; ok {
				l.CurrTokenType = kw
			} else {
				l.CurrTokenType = IDENT
			}
			l.CurrLiteral = lit
		} else if isDigit(c) {
			l.readNumber()
		} else {
			l.illegal()
		}
	}
}

func (l *Lexer) illegal() {
	l.set(ILLEGAL, strconv.Quote(string(l.input[l.pos]))+" is not a valid token", 1)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		c := l.input[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '#' || (c == '/' && l.input[l.pos+1] == '/'):
			for l.input[l.pos] != '\n' && l.input[l.pos] != 0 {
				l.pos++
			}
		default:
			return
		}
	}
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.input[l.pos]) || isDigit(l.input[l.pos]) {
		l.pos++
	}
	return string(l.input[start:l.pos])
}

func (l *Lexer) readNumber() {
	start := l.pos
	for isDigit(l.input[l.pos]) {
		l.pos++
	}
	isFloat := false
	if l.input[l.pos] == '.' && isDigit(l.input[l.pos+1]) {
		isFloat = true
		l.pos++
		for isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	lit := string(l.input[start:l.pos])
	l.CurrLiteral = lit
	if isFloat {
		val, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			l.CurrTokenType = ILLEGAL
			return
		}
		l.CurrTokenType = FLOAT_LIT
		l.CurrFloatValue = val
		return
	}
	val, err := strconv.ParseInt(lit, 10, 64)
	if err != nil || val > minIntMagnitude {
		l.CurrTokenType = ILLEGAL
		l.CurrLiteral = "integer literal " + lit + " does not fit in int"
		return
	}
	l.CurrTokenType = INT_LIT
	l.CurrIntValue = val
}

// minIntMagnitude is the largest integer literal the lexer accepts. It is
// only valid as the operand of unary minus.
const minIntMagnitude = 1 << 31

// unescape decodes the escape sequence starting at the backslash at l.pos
// and advances past it.
func (l *Lexer) unescape() (byte, bool) {
	l.pos++ // skip '\'
	c := l.input[l.pos]
	l.pos++
	switch c {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\', '\'', '"':
		return c, true
	}
	return c, false
}

func (l *Lexer) readString() {
	l.pos++ // skip opening "
	var sb strings.Builder
	for {
		c := l.input[l.pos]
		switch {
		case c == '"':
			l.pos++
			l.CurrTokenType = STRING_LIT
			l.CurrLiteral = sb.String()
			return
		case c == 0 || c == '\n':
			l.CurrTokenType = ILLEGAL
			l.CurrLiteral = "unterminated string literal"
			return
		case c == '\\':
			b, ok := l.unescape()
			if !ok {
				l.CurrTokenType = ILLEGAL
				l.CurrLiteral = "unknown escape sequence"
				return
			}
			sb.WriteByte(b)
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
}

func (l *Lexer) readChar() {
	l.pos++ // skip opening '
	c := l.input[l.pos]
	var value byte
	switch c {
	case 0, '\n', '\'':
		l.CurrTokenType = ILLEGAL
		l.CurrLiteral = "malformed character literal"
		return
	case '\\':
		b, ok := l.unescape()
		if !ok {
			l.CurrTokenType = ILLEGAL
			l.CurrLiteral = "unknown escape sequence"
			return
		}
		value = b
	default:
		value = c
		l.pos++
	}
	if l.input[l.pos] != '\'' {
		l.CurrTokenType = ILLEGAL
		l.CurrLiteral = "malformed character literal"
		return
	}
	l.pos++
	l.CurrTokenType = CHAR_LIT
	l.CurrLiteral = string(rune(value))
	l.CurrIntValue = int64(value)
}

// PeekToken returns the next token type without advancing the lexer.
func (l *Lexer) PeekToken() TokenType {
	saved := *l
	l.NextToken()
	next := l.CurrTokenType
	*l = saved
	return next
}
