// Package sexy reads the s-expression notation used by the compiler's
// debug dumps and by the patterns in markdown test suites.
package sexy

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	NodeFloat
	NodeEllipsis
	NodeList
	NodeMap
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeFloat:
		return "float"
	case NodeEllipsis:
		return "ellipsis"
	case NodeList:
		return "list"
	case NodeMap:
		return "map"
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Node is one datum. Atoms keep their text; numbers keep the spelling they
// were written with.
type Node struct {
	Type NodeType
	Text string // NodeSymbol, NodeString, NodeInteger, NodeFloat

	Items []*Node  // NodeList, NodeMap
	Keys  []string // NodeMap, parallel to Items
}

func NewSymbol(name string) *Node { return &Node{Type: NodeSymbol, Text: name} }
func NewString(value string) *Node { return &Node{Type: NodeString, Text: value} }
func NewInteger(text string) *Node { return &Node{Type: NodeInteger, Text: text} }
func NewFloat(text string) *Node { return &Node{Type: NodeFloat, Text: text} }
func NewEllipsis() *Node { return &Node{Type: NodeEllipsis} }
func NewList(items ...*Node) *Node { return &Node{Type: NodeList, Items: items} }

func NewMap(keys []string, items []*Node) *Node {
	return &Node{Type: NodeMap, Keys: keys, Items: items}
}

// Get returns the value of key in a map node.
func (n *Node) Get(key string) (*Node, bool) {
	for i, k := range n.Keys {
		if k == key {
			return n.Items[i], true
		}
	}
	return nil, false
}

func (n *Node) IsAtom() bool {
	return n.Type != NodeList && n.Type != NodeMap
}

func (n *Node) String() string {
	switch n.Type {
	case NodeString:
		return strconv.Quote(n.Text)
	case NodeEllipsis:
		return "..."
	case NodeList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	case NodeMap:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = n.Keys[i] + ": " + item.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return n.Text
}

// Parse reads exactly one datum from input.
func Parse(input string) (*Node, error) {
	p := &parser{l: &lexer{input: input}}
	p.advance()
	node, err := p.datum()
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.tok.kind != tokenEOF {
		return nil, fmt.Errorf("offset %d: expected end of input but got %s", p.tok.pos, p.tok.kind)
	}
	return node, nil
}

type parser struct {
	l   *lexer
	tok token
	err error
}

func (p *parser) advance() {
	p.tok, p.err = p.l.next()
}

func (p *parser) datum() (*Node, error) {
	if p.err != nil {
		return nil, p.err
	}
	tok := p.tok
	switch tok.kind {
	case tokenSymbol:
		p.advance()
		return NewSymbol(tok.text), nil
	case tokenString:
		p.advance()
		return NewString(tok.text), nil
	case tokenInteger:
		p.advance()
		return NewInteger(tok.text), nil
	case tokenFloat:
		p.advance()
		return NewFloat(tok.text), nil
	case tokenEllipsis:
		p.advance()
		return NewEllipsis(), nil
	case tokenLParen:
		return p.list()
	case tokenLBrace:
		return p.mapping()
	}
	return nil, fmt.Errorf("offset %d: unexpected %s", tok.pos, tok.kind)
}

func (p *parser) list() (*Node, error) {
	p.advance() // (
	list := NewList()
	for p.err == nil && p.tok.kind != tokenRParen {
		if p.tok.kind == tokenEOF {
			return nil, fmt.Errorf("offset %d: unterminated list", p.tok.pos)
		}
		item, err := p.datum()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}
	if p.err != nil {
		return nil, p.err
	}
	p.advance() // )
	return list, nil
}

// mapping reads {key: value, ...}. Keys are symbols; commas are optional.
func (p *parser) mapping() (*Node, error) {
	p.advance() // {
	m := NewMap(nil, nil)
	for p.err == nil && p.tok.kind != tokenRBrace {
		if p.tok.kind != tokenSymbol {
			return nil, fmt.Errorf("offset %d: expected map key but got %s", p.tok.pos, p.tok.kind)
		}
		key := p.tok.text
		p.advance()
		if p.err == nil && p.tok.kind != tokenColon {
			return nil, fmt.Errorf("offset %d: expected ':' after map key %q", p.tok.pos, key)
		}
		p.advance()
		value, err := p.datum()
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, key)
		m.Items = append(m.Items, value)
		if p.err == nil && p.tok.kind == tokenComma {
			p.advance()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	p.advance() // }
	return m, nil
}

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenSymbol
	tokenString
	tokenInteger
	tokenFloat
	tokenEllipsis
	tokenLParen
	tokenRParen
	tokenLBrace
	tokenRBrace
	tokenColon
	tokenComma
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of input"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenInteger:
		return "integer"
	case tokenFloat:
		return "float"
	case tokenEllipsis:
		return "'...'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBrace:
		return "'{'"
	case tokenRBrace:
		return "'}'"
	case tokenColon:
		return "':'"
	case tokenComma:
		return "','"
	}
	return fmt.Sprintf("tokenKind(%d)", int(k))
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

var punct = map[byte]tokenKind{
	'(': tokenLParen, ')': tokenRParen,
	'{': tokenLBrace, '}': tokenRBrace,
	':': tokenColon, ',': tokenComma,
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *lexer) next() (token, error) {
	// Whitespace and ; comments.
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == ';' {
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		if !unicode.IsSpace(rune(c)) {
			break
		}
		l.pos++
	}

	start := l.pos
	c := l.peek(0)
	switch {
	case l.pos >= len(l.input):
		return token{kind: tokenEOF, pos: start}, nil
	case punct[c] != tokenEOF:
		l.pos++
		return token{kind: punct[c], text: string(c), pos: start}, nil
	case c == '"':
		return l.readString()
	case c == '.':
		if strings.HasPrefix(l.input[l.pos:], "...") {
			l.pos += 3
			return token{kind: tokenEllipsis, text: "...", pos: start}, nil
		}
		return token{}, fmt.Errorf("offset %d: unexpected character '.'", start)
	case isDigit(c) || ((c == '-' || c == '+') && isDigit(l.peek(1))):
		return l.readNumber(), nil
	case isSymbolChar(c):
		for isSymbolChar(l.peek(0)) {
			l.pos++
		}
		return token{kind: tokenSymbol, text: l.input[start:l.pos], pos: start}, nil
	}
	return token{}, fmt.Errorf("offset %d: unexpected character %q", start, c)
}

// readString reads a Go-syntax quoted string.
func (l *lexer) readString() (token, error) {
	start := l.pos
	l.pos++
	for {
		switch l.peek(0) {
		case 0, '\n':
			return token{}, fmt.Errorf("offset %d: unterminated string", start)
		case '\\':
			l.pos += 2
		case '"':
			l.pos++
			text, err := strconv.Unquote(l.input[start:l.pos])
			if err != nil {
				return token{}, fmt.Errorf("offset %d: bad string literal: %w", start, err)
			}
			return token{kind: tokenString, text: text, pos: start}, nil
		default:
			l.pos++
		}
	}
}

func (l *lexer) readNumber() token {
	start := l.pos
	kind := tokenInteger
	if c := l.peek(0); c == '-' || c == '+' {
		l.pos++
	}
	for {
		c := l.peek(0)
		switch {
		case isDigit(c):
		case c == '.' && isDigit(l.peek(1)):
			kind = tokenFloat
		case (c == 'e' || c == 'E') && (isDigit(l.peek(1)) || ((l.peek(1) == '-' || l.peek(1) == '+') && isDigit(l.peek(2)))):
			kind = tokenFloat
			l.pos++
		default:
			return token{kind: kind, text: l.input[start:l.pos], pos: start}
		}
		l.pos++
	}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isSymbolChar(c byte) bool {
	return c != 0 && (unicode.IsLetter(rune(c)) || isDigit(c) || strings.IndexByte("-_+*/%<>=!&|^[]", c) >= 0)
}
