package main

import (
	"fmt"
	"slices"
	"strings"
)

// Emitter accumulates IR text in three regions: top (struct layouts, globals
// and string constants), the function bodies, and trailing declarations.
//
// Top insertions go to the front of the region. The generator adds layouts
// and globals after lowering the bodies, in reverse declaration order, so
// the final text lists them in declaration order. String constants of
// function bodies follow them in the order they were generated.
type Emitter struct {
	top      []string
	strs     []string
	lines    []string
	decls    []string
	declSeen map[string]bool

	// Per-function counters, reset by BeginFunction.
	reg     int
	label   int
	literal int
	index   int
	temp    int

	// allocaAt is the position in lines where the next hoisted alloca goes.
	allocaAt int
}

func NewEmitter() *Emitter {
	return &Emitter{declSeen: make(map[string]bool)}
}

// BeginFunction resets the per-function counters. Registers, labels,
// literals and array indexes are only unique within one function body.
func (e *Emitter) BeginFunction() {
	e.reg = 0
	e.label = 0
	e.literal = 0
	e.index = 0
	e.temp = 0
	e.allocaAt = len(e.lines)
}

// MarkAllocaPoint makes subsequent Alloca calls insert at the current end of
// the body. Call it right after emitting the entry label.
func (e *Emitter) MarkAllocaPoint() {
	e.allocaAt = len(e.lines)
}

// Emit appends one indented instruction to the body region.
func (e *Emitter) Emit(format string, args ...any) {
	e.lines = append(e.lines, "  "+fmt.Sprintf(format, args...))
}

// EmitRaw appends a line to the body region without indentation.
func (e *Emitter) EmitRaw(line string) {
	e.lines = append(e.lines, line)
}

// EmitLabel starts a new basic block.
func (e *Emitter) EmitLabel(name string) {
	e.lines = append(e.lines, name+":")
}

// Alloca inserts an instruction at the entry block's hoist point, after
// every alloca emitted so far for the current function.
func (e *Emitter) Alloca(format string, args ...any) {
	e.lines = slices.Insert(e.lines, e.allocaAt, "  "+fmt.Sprintf(format, args...))
	e.allocaAt++
}

// EmitTop inserts a line at the front of the top region.
func (e *Emitter) EmitTop(line string) {
	e.top = slices.Insert(e.top, 0, line)
}

// EmitString appends a string constant used by a function body to the top
// region, after every layout and global.
func (e *Emitter) EmitString(line string) {
	e.strs = append(e.strs, line)
}

// EmitDecl appends a declaration unless an identical one was already added.
func (e *Emitter) EmitDecl(line string) {
	if e.declSeen[line] {
		return
	}
	e.declSeen[line] = true
	e.decls = append(e.decls, line)
}

// NextReg returns a fresh unnamed virtual register such as "%3".
func (e *Emitter) NextReg() string {
	r := fmt.Sprintf("%%%d", e.reg)
	e.reg++
	return r
}

// NextLabel returns a fresh suffix for a group of branch labels.
func (e *Emitter) NextLabel() int {
	e.label++
	return e.label
}

// NextLiteral returns a fresh string-literal number.
func (e *Emitter) NextLiteral() int {
	n := e.literal
	e.literal++
	return n
}

// NextIndex returns a fresh array-index number.
func (e *Emitter) NextIndex() int {
	n := e.index
	e.index++
	return n
}

// NextTemp returns a fresh number for an anonymous stack slot.
func (e *Emitter) NextTemp() int {
	n := e.temp
	e.temp++
	return n
}

func (e *Emitter) Lines() []string { return e.lines }
func (e *Emitter) Decls() []string { return e.decls }

// Top returns the whole top region as it will be rendered.
func (e *Emitter) Top() []string {
	return slices.Concat(e.top, e.strs)
}

// String renders the module: top region, bodies, then declarations.
func (e *Emitter) String() string {
	var sb strings.Builder
	for _, region := range [][]string{e.Top(), e.lines, e.decls} {
		if len(region) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		for _, line := range region {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
