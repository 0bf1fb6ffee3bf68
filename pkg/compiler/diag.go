package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorKind categorises a compile-time diagnostic.
type ErrorKind int

const (
	LexicalError ErrorKind = iota
	SyntaxError
	SemanticError
	TypeError
	NameResolutionError
)

var errorKindNames = [...]string{
	LexicalError:        "Lexical",
	SyntaxError:         "Syntax",
	SemanticError:       "Semantic",
	TypeError:           "Type",
	NameResolutionError: "Name Resolution",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Diagnostic is a single compile-time error tied to a source line.
type Diagnostic struct {
	Kind    ErrorKind
	Line    int // 1-based source line
	Column  int // 1-based column; 0 when not meaningful
	Message string
}

// Diagnostics collects errors across all compiler passes. The pipeline never
// aborts on the first error; each pass reports what it can and the caller
// inspects the sink when compilation finishes.
type Diagnostics struct {
	sourceLines []string
	items       []Diagnostic
}

func NewDiagnostics(source string) *Diagnostics {
	return &Diagnostics{sourceLines: strings.Split(source, "\n")}
}

func (d *Diagnostics) Errorf(kind ErrorKind, line int, format string, args ...any) {
	d.items = append(d.items, Diagnostic{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)})
}

func (d *Diagnostics) ErrorfAt(kind ErrorKind, line, column int, format string, args ...any) {
	d.items = append(d.items, Diagnostic{Kind: kind, Line: line, Column: column, Message: fmt.Sprintf(format, args...)})
}

func (d *Diagnostics) HasErrors() bool {
	return len(d.items) > 0
}

func (d *Diagnostics) Count() int {
	return len(d.items)
}

func (d *Diagnostics) sourceLine(line int) string {
	if line >= 1 && line <= len(d.sourceLines) {
		return strings.TrimRight(d.sourceLines[line-1], "\r")
	}
	return ""
}

// Messages renders every diagnostic in source order using the editor-facing
// format:
//
//	In Line <N>: <original source line>
//	<Kind> Error: <message>
func (d *Diagnostics) Messages() []string {
	order := make([]int, len(d.items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return d.items[order[a]].Line < d.items[order[b]].Line
	})

	out := make([]string, 0, len(d.items))
	for _, idx := range order {
		it := d.items[idx]
		out = append(out, fmt.Sprintf("In Line %d: %s\n%s Error: %s", it.Line, d.sourceLine(it.Line), it.Kind, it.Message))
	}
	return out
}

// String joins all diagnostics separated by blank lines.
func (d *Diagnostics) String() string {
	return strings.Join(d.Messages(), "\n\n")
}
