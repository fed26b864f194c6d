package main

import "fmt"

// Symbol is a variable binding: global, parameter or local.
type Symbol struct {
	Name        string
	Type        *TypeNode
	Mutability  Mutability
	Global      bool
	ShadowDepth int
}

// Scope is one lexical frame.
type Scope struct {
	symbols map[string]*Symbol
}

// SymbolTable is the scope stack used during type checking. Frame 0 is the
// global frame; the last frame is the innermost.
type SymbolTable struct {
	scopes []*Scope
}

func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{}
	st.PushScope()
	return st
}

func (st *SymbolTable) PushScope() {
	st.scopes = append(st.scopes, &Scope{symbols: make(map[string]*Symbol)})
}

func (st *SymbolTable) PopScope() {
	if len(st.scopes) == 1 {
		panic("PopScope: cannot pop the global frame")
	}
	st.scopes = st.scopes[:len(st.scopes)-1]
}

// Depth returns the number of frames, including the global frame.
func (st *SymbolTable) Depth() int {
	return len(st.scopes)
}

// DeclareVariable binds name in the innermost frame. Re-declaring a name in
// the same frame is an error; a declaration that hides outer bindings gets a
// shadow depth equal to the number of outer frames binding the name.
func (st *SymbolTable) DeclareVariable(name string, typ *TypeNode, mut Mutability) (*Symbol, error) {
	innermost := st.scopes[len(st.scopes)-1]
	if _, exists := innermost.symbols[name]; exists {
		return nil, fmt.Errorf("variable '%s' already declared in this scope", name)
	}
	depth := 0
	for _, scope := range st.scopes[:len(st.scopes)-1] {
		if _, ok := scope.symbols[name]; ok {
			depth++
		}
	}
	symbol := &Symbol{
		Name:        name,
		Type:        typ,
		Mutability:  mut,
		Global:      len(st.scopes) == 1,
		ShadowDepth: depth,
	}
	innermost.symbols[name] = symbol
	return symbol, nil
}

// LookupVariable resolves name from the innermost frame outwards. It returns
// nil if the name is unbound.
func (st *SymbolTable) LookupVariable(name string) *Symbol {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if symbol, ok := st.scopes[i].symbols[name]; ok {
			return symbol
		}
	}
	return nil
}
