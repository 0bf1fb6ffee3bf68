package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// SymbolKind discriminates what a name is bound to.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymParameter
	SymFunction
)

// Symbol is one scope-table entry. Variables and parameters carry a slot
// index into their call frame (the global frame for top-level variables);
// functions carry their signature and are addressed by label.
type Symbol struct {
	Name   string
	Kind   SymbolKind
	Type   Type
	Sig    *FuncSig // functions only
	Slot   int      // variables and parameters
	Global bool     // true for top-level variables
	Line   int      // declaring line
}

// ScopeTable is a stack of scope frames. The root frame is the global
// scope, holding functions and top-level variables; a function body starts
// a second stack of frames, and each `{...}` block pushes a nested frame
// onto whichever stack is active.
//
// Slot indices are dense and assigned in declaration order; array elements
// occupy contiguous slots. Nested block frames continue their enclosing
// frame's counter, so each counter's high-water mark is the allocation the
// code generator emits with `oframe`.
type ScopeTable struct {
	globalFrames []map[string]*Symbol
	globalSlot   int // next free slot in the global call frame

	funcFrames []map[string]*Symbol
	nextSlot   int // next free slot in the current function call frame
}

func NewScopeTable() *ScopeTable {
	return &ScopeTable{globalFrames: []map[string]*Symbol{make(map[string]*Symbol)}}
}

// DeclareFunction registers a function signature in the root global frame.
func (s *ScopeTable) DeclareFunction(name string, sig *FuncSig, line int) error {
	root := s.globalFrames[0]
	if prev, ok := root[name]; ok {
		return fmt.Errorf("'%s' is already declared on line %d", name, prev.Line)
	}
	root[name] = &Symbol{Name: name, Kind: SymFunction, Sig: sig, Line: line}
	return nil
}

// EnterFunction starts a fresh frame stack for a function body and resets
// the slot counter.
func (s *ScopeTable) EnterFunction() {
	s.funcFrames = []map[string]*Symbol{make(map[string]*Symbol)}
	s.nextSlot = 0
}

// ExitFunction tears down the function frame stack and returns the dense
// slot count for the whole body (the `oframe` allocation).
func (s *ScopeTable) ExitFunction() int {
	s.funcFrames = nil
	count := s.nextSlot
	s.nextSlot = 0
	return count
}

// EnterBlock pushes a nested scope frame; its variables still take slots
// from the enclosing call frame.
func (s *ScopeTable) EnterBlock() {
	if s.funcFrames != nil {
		s.funcFrames = append(s.funcFrames, make(map[string]*Symbol))
	} else {
		s.globalFrames = append(s.globalFrames, make(map[string]*Symbol))
	}
}

func (s *ScopeTable) ExitBlock() {
	if s.funcFrames != nil {
		if len(s.funcFrames) > 1 {
			s.funcFrames = s.funcFrames[:len(s.funcFrames)-1]
		}
		return
	}
	if len(s.globalFrames) > 1 {
		s.globalFrames = s.globalFrames[:len(s.globalFrames)-1]
	}
}

// Declare binds a variable or parameter in the innermost frame and assigns
// its slot. Array types reserve Len contiguous slots. Redeclaring a name
// already bound in the same frame is an error; shadowing an outer frame is
// allowed.
func (s *ScopeTable) Declare(name string, kind SymbolKind, t Type, line int) (*Symbol, error) {
	width := 1
	if t.IsArray {
		width = t.Len
	}
	if width < 1 {
		width = 1
	}

	if s.funcFrames != nil {
		current := s.funcFrames[len(s.funcFrames)-1]
		if prev, ok := current[name]; ok {
			return nil, fmt.Errorf("'%s' is already declared in this scope on line %d", name, prev.Line)
		}
		sym := &Symbol{Name: name, Kind: kind, Type: t, Slot: s.nextSlot, Line: line}
		s.nextSlot += width
		current[name] = sym
		return sym, nil
	}

	current := s.globalFrames[len(s.globalFrames)-1]
	if prev, ok := current[name]; ok {
		return nil, fmt.Errorf("'%s' is already declared in this scope on line %d", name, prev.Line)
	}
	sym := &Symbol{Name: name, Kind: kind, Type: t, Slot: s.globalSlot, Global: true, Line: line}
	s.globalSlot += width
	current[name] = sym
	return sym, nil
}

// Lookup resolves a name from the innermost frame outwards, falling back to
// the global frames.
func (s *ScopeTable) Lookup(name string) (*Symbol, bool) {
	for i := len(s.funcFrames) - 1; i >= 0; i-- {
		if sym, ok := s.funcFrames[i][name]; ok {
			return sym, true
		}
	}
	for i := len(s.globalFrames) - 1; i >= 0; i-- {
		if sym, ok := s.globalFrames[i][name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// GlobalSlotCount is the size of the global frame (the top-level `oframe`).
func (s *ScopeTable) GlobalSlotCount() int {
	return s.globalSlot
}

// inFunction reports whether a function body is being analysed.
func (s *ScopeTable) inFunction() bool {
	return s.funcFrames != nil
}

// String returns a deterministically ordered dump of the table.
func (s *ScopeTable) String() string {
	var sb strings.Builder
	dump := func(title string, frames []map[string]*Symbol) {
		for i, frame := range frames {
			fmt.Fprintf(&sb, "%s %d:\n", title, i)
			names := make([]string, 0, len(frame))
			for name := range frame {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				sym := frame[name]
				if sym.Kind == SymFunction {
					fmt.Fprintf(&sb, "  %-20s  fun %s\n", name, sym.Sig)
				} else {
					fmt.Fprintf(&sb, "  %-20s  %s slot %d\n", name, sym.Type, sym.Slot)
				}
			}
		}
	}
	dump("Global frame", s.globalFrames)
	dump("Frame", s.funcFrames)
	return sb.String()
}
