package compiler

// Analyzer resolves names, checks types and annotates the tree with
// scope/slot information. It runs two passes: the first collects every
// function signature into the global scope so that forward references work
// within a compilation unit; the second walks bodies and top-level
// statements.
type Analyzer struct {
	scopes  *ScopeTable
	diag    *Diagnostics
	current *FunDecl // function being analysed; nil at top level
}

func NewAnalyzer(diag *Diagnostics) *Analyzer {
	return &Analyzer{scopes: NewScopeTable(), diag: diag}
}

// Analyze checks prog and annotates it in place. It returns the scope table
// so the code generator can size the global frame.
func Analyze(prog *Program, diag *Diagnostics) *ScopeTable {
	a := NewAnalyzer(diag)
	a.collectSignatures(prog)
	a.checkProgram(prog)
	return a.scopes
}

// collectSignatures registers every function before any body is checked.
func (a *Analyzer) collectSignatures(prog *Program) {
	for _, fn := range prog.Functions() {
		sig := &FuncSig{Ret: fn.Ret}
		for _, p := range fn.Params {
			sig.Params = append(sig.Params, p.Type)
		}
		if err := a.scopes.DeclareFunction(fn.Name, sig, fn.Line); err != nil {
			a.diag.Errorf(NameResolutionError, fn.Line, "%s", err)
		}
	}
}

func (a *Analyzer) checkProgram(prog *Program) {
	for _, s := range prog.Stmts {
		if fn, ok := s.(*FunDecl); ok {
			a.checkFunction(fn)
			continue
		}
		a.checkStmt(s)
	}
}

func (a *Analyzer) checkFunction(fn *FunDecl) {
	a.current = fn
	a.scopes.EnterFunction()

	for _, p := range fn.Params {
		if p.Type.IsArray {
			a.diag.Errorf(TypeError, p.Line, "parameter '%s' may not have array type", p.Name)
		}
		if _, err := a.scopes.Declare(p.Name, SymParameter, p.Type, p.Line); err != nil {
			a.diag.Errorf(NameResolutionError, p.Line, "%s", err)
		}
	}

	a.checkBlockStmts(fn.Body)

	if !allPathsReturn(fn.Body) {
		a.diag.Errorf(SemanticError, fn.Line, "function '%s' does not return a value on every path", fn.Name)
	}

	fn.LocalCount = a.scopes.ExitFunction()
	a.current = nil
}

// checkBlockStmts checks the statements of an already-entered block; the
// caller controls the scope frame so parameters share the body frame.
func (a *Analyzer) checkBlockStmts(b *Block) {
	for _, s := range b.Stmts {
		a.checkStmt(s)
	}
}

func (a *Analyzer) checkStmt(s Stmt) {
	switch n := s.(type) {
	case *VarDecl:
		a.checkVarDecl(n)

	case *Assign:
		a.checkAssign(n)

	case *IfStmt:
		t := a.checkExpr(n.Cond)
		if !t.Equal(Type{Kind: KindBool}) {
			a.diag.Errorf(TypeError, n.Cond.Pos(), "if condition must be bool, got %s", t)
		}
		a.scopes.EnterBlock()
		a.checkBlockStmts(n.Then)
		a.scopes.ExitBlock()
		if n.Else != nil {
			a.scopes.EnterBlock()
			a.checkBlockStmts(n.Else)
			a.scopes.ExitBlock()
		}

	case *WhileStmt:
		t := a.checkExpr(n.Cond)
		if !t.Equal(Type{Kind: KindBool}) {
			a.diag.Errorf(TypeError, n.Cond.Pos(), "while condition must be bool, got %s", t)
		}
		a.scopes.EnterBlock()
		a.checkBlockStmts(n.Body)
		a.scopes.ExitBlock()

	case *ForStmt:
		// The header declaration scopes to the loop.
		a.scopes.EnterBlock()
		if n.Init != nil {
			a.checkStmt(n.Init)
		}
		t := a.checkExpr(n.Cond)
		if !t.Equal(Type{Kind: KindBool}) {
			a.diag.Errorf(TypeError, n.Cond.Pos(), "for condition must be bool, got %s", t)
		}
		if n.Step != nil {
			a.checkStmt(n.Step)
		}
		a.scopes.EnterBlock()
		a.checkBlockStmts(n.Body)
		a.scopes.ExitBlock()
		a.scopes.ExitBlock()

	case *ReturnStmt:
		t := a.checkExpr(n.Value)
		if a.current == nil {
			a.diag.Errorf(SemanticError, n.Line, "return outside of a function")
			return
		}
		if !t.Equal(a.current.Ret) {
			a.diag.Errorf(TypeError, n.Line, "return type mismatch: function '%s' returns %s, got %s",
				a.current.Name, a.current.Ret, t)
		}

	case *Block:
		a.scopes.EnterBlock()
		a.checkBlockStmts(n)
		a.scopes.ExitBlock()

	case *ExprStmt:
		a.checkExpr(n.Expr)

	case *BuiltinStmt:
		a.checkBuiltinStmt(n)

	case *FunDecl:
		// The parser rejects nested functions; reaching one here means the
		// statement list was built by hand.
		a.diag.Errorf(SemanticError, n.Line, "function declarations are only permitted at the top level")
	}
}

func (a *Analyzer) checkVarDecl(n *VarDecl) {
	if n.DeclType.IsArray {
		if n.DeclType.Len == -1 {
			a.diag.Errorf(TypeError, n.Line, "array declaration requires an explicit size")
			n.DeclType.Len = len(n.InitList)
		}
		if len(n.InitList) != n.DeclType.Len {
			a.diag.Errorf(TypeError, n.Line, "array '%s' declares %d elements but initializes %d",
				n.Name, n.DeclType.Len, len(n.InitList))
		}
		elem := n.DeclType.Elem()
		for _, e := range n.InitList {
			t := a.checkExpr(e)
			if !t.Equal(elem) {
				a.diag.Errorf(TypeError, e.Pos(), "array element must be %s, got %s", elem, t)
			}
		}
	} else {
		t := a.checkExpr(n.Init)
		if !t.Equal(n.DeclType) {
			a.diag.Errorf(TypeError, n.Line, "cannot assign %s to '%s' of type %s (use 'as' to convert)",
				t, n.Name, n.DeclType)
		}
	}

	sym, err := a.scopes.Declare(n.Name, SymVariable, n.DeclType, n.Line)
	if err != nil {
		a.diag.Errorf(NameResolutionError, n.Line, "%s", err)
		return
	}
	n.Slot = sym.Slot
	n.Global = sym.Global
}

func (a *Analyzer) checkAssign(n *Assign) {
	sym, ok := a.scopes.Lookup(n.Name)
	if !ok {
		a.diag.Errorf(NameResolutionError, n.Line, "'%s' is not declared", n.Name)
		a.checkExpr(n.Value)
		return
	}
	if sym.Kind == SymFunction {
		a.diag.Errorf(SemanticError, n.Line, "cannot assign to function '%s'", n.Name)
		return
	}
	n.Slot = sym.Slot
	n.Global = sym.Global

	target := sym.Type
	if n.Index != nil {
		if !sym.Type.IsArray {
			a.diag.Errorf(TypeError, n.Line, "'%s' is not an array", n.Name)
		}
		it := a.checkExpr(n.Index)
		if !it.Equal(Type{Kind: KindInt}) {
			a.diag.Errorf(TypeError, n.Index.Pos(), "array index must be int, got %s", it)
		}
		target = sym.Type.Elem()
	} else if sym.Type.IsArray {
		a.diag.Errorf(TypeError, n.Line, "array '%s' must be assigned element-wise", n.Name)
		target = sym.Type.Elem()
	}

	vt := a.checkExpr(n.Value)
	if !vt.Equal(target) {
		a.diag.Errorf(TypeError, n.Line, "cannot assign %s to '%s' of type %s (use 'as' to convert)",
			vt, n.Name, target)
	}
}

func (a *Analyzer) checkBuiltinStmt(n *BuiltinStmt) {
	var want []Type
	intT := Type{Kind: KindInt}
	colourT := Type{Kind: KindColour}
	switch n.Name {
	case "__print":
		t := a.checkExpr(n.Args[0])
		if t.IsArray {
			a.diag.Errorf(TypeError, n.Line, "__print takes a scalar value, got %s", t)
		}
		return
	case "__delay":
		want = []Type{intT}
	case "__clear":
		want = []Type{colourT}
	case "__write":
		want = []Type{intT, intT, colourT}
	case "__write_box":
		want = []Type{intT, intT, intT, intT, colourT}
	case "__write_line":
		want = []Type{intT, intT, intT, intT, colourT}
	}
	for i, arg := range n.Args {
		t := a.checkExpr(arg)
		if i < len(want) && !t.Equal(want[i]) {
			a.diag.Errorf(TypeError, arg.Pos(), "%s argument %d must be %s, got %s", n.Name, i+1, want[i], t)
		}
	}
}

// checkExpr resolves and type-checks e, annotates it and returns its type.
// On error a best-guess type is recorded so analysis continues without
// cascading diagnostics.
func (a *Analyzer) checkExpr(e Expr) Type {
	switch n := e.(type) {
	case *IntLit:
		n.setType(Type{Kind: KindInt})

	case *FloatLit:
		n.setType(Type{Kind: KindFloat})

	case *BoolLit:
		n.setType(Type{Kind: KindBool})

	case *ColourLit:
		n.setType(Type{Kind: KindColour})

	case *VarRef:
		sym, ok := a.scopes.Lookup(n.Name)
		if !ok {
			a.diag.Errorf(NameResolutionError, n.Line, "'%s' is not declared", n.Name)
			n.setType(Type{Kind: KindInt})
			break
		}
		if sym.Kind == SymFunction {
			a.diag.Errorf(SemanticError, n.Line, "function '%s' must be called", n.Name)
			n.setType(Type{Kind: KindInt})
			break
		}
		if sym.Type.IsArray {
			a.diag.Errorf(TypeError, n.Line, "array '%s' must be indexed", n.Name)
			n.setType(sym.Type.Elem())
			break
		}
		n.Slot = sym.Slot
		n.Global = sym.Global
		n.setType(sym.Type)

	case *IndexExpr:
		sym, ok := a.scopes.Lookup(n.Name)
		if !ok {
			a.diag.Errorf(NameResolutionError, n.Line, "'%s' is not declared", n.Name)
			n.setType(Type{Kind: KindInt})
			a.checkExpr(n.Index)
			break
		}
		if !sym.Type.IsArray {
			a.diag.Errorf(TypeError, n.Line, "'%s' is not an array", n.Name)
			n.setType(sym.Type)
			a.checkExpr(n.Index)
			break
		}
		it := a.checkExpr(n.Index)
		if !it.Equal(Type{Kind: KindInt}) {
			a.diag.Errorf(TypeError, n.Index.Pos(), "array index must be int, got %s", it)
		}
		n.Slot = sym.Slot
		n.Global = sym.Global
		n.ArrLen = sym.Type.Len
		n.setType(sym.Type.Elem())

	case *CallExpr:
		sym, ok := a.scopes.Lookup(n.Name)
		if !ok || sym.Kind != SymFunction {
			a.diag.Errorf(NameResolutionError, n.Line, "function '%s' is not declared", n.Name)
			for _, arg := range n.Args {
				a.checkExpr(arg)
			}
			n.setType(Type{Kind: KindInt})
			break
		}
		if len(n.Args) != len(sym.Sig.Params) {
			a.diag.Errorf(TypeError, n.Line, "function '%s' takes %d arguments, got %d",
				n.Name, len(sym.Sig.Params), len(n.Args))
		}
		for i, arg := range n.Args {
			t := a.checkExpr(arg)
			if i < len(sym.Sig.Params) && !t.Equal(sym.Sig.Params[i]) {
				a.diag.Errorf(TypeError, arg.Pos(), "argument %d of '%s' must be %s, got %s",
					i+1, n.Name, sym.Sig.Params[i], t)
			}
		}
		n.setType(sym.Sig.Ret)

	case *BuiltinExpr:
		a.checkBuiltinExpr(n)

	case *UnaryExpr:
		t := a.checkExpr(n.Operand)
		switch n.Op {
		case MINUS:
			if !t.Numeric() {
				a.diag.Errorf(TypeError, n.Line, "unary '-' needs a numeric operand, got %s", t)
			}
			n.setType(t)
		case NOT:
			if !t.Equal(Type{Kind: KindBool}) {
				a.diag.Errorf(TypeError, n.Line, "'not' needs a bool operand, got %s", t)
			}
			n.setType(Type{Kind: KindBool})
		}

	case *BinaryExpr:
		a.checkBinary(n)

	case *CastExpr:
		from := a.checkExpr(n.Operand)
		if !castAllowed(from, n.Target) {
			a.diag.Errorf(TypeError, n.Line, "cannot cast %s to %s", from, n.Target)
		}
		n.setType(n.Target)
	}
	return e.ResultType()
}

func (a *Analyzer) checkBuiltinExpr(n *BuiltinExpr) {
	intT := Type{Kind: KindInt}
	switch n.Name {
	case "__read":
		for _, arg := range n.Args {
			t := a.checkExpr(arg)
			if !t.Equal(intT) {
				a.diag.Errorf(TypeError, arg.Pos(), "__read coordinates must be int, got %s", t)
			}
		}
		n.setType(Type{Kind: KindColour})
	case "__random_int":
		t := a.checkExpr(n.Args[0])
		if !t.Equal(intT) {
			a.diag.Errorf(TypeError, n.Args[0].Pos(), "__random_int bound must be int, got %s", t)
		}
		n.setType(intT)
	case "__width", "__height":
		n.setType(intT)
	}
}

func (a *Analyzer) checkBinary(n *BinaryExpr) {
	lt := a.checkExpr(n.Left)
	rt := a.checkExpr(n.Right)
	boolT := Type{Kind: KindBool}
	colourT := Type{Kind: KindColour}
	intT := Type{Kind: KindInt}

	switch n.Op {
	case PLUS, MINUS, STAR, SLASH, PERCENT:
		// colour arithmetic: + - * componentwise, colour * int scales.
		if lt.Equal(colourT) && rt.Equal(colourT) && (n.Op == PLUS || n.Op == MINUS || n.Op == STAR) {
			n.setType(colourT)
			return
		}
		if n.Op == STAR && lt.Equal(colourT) && rt.Equal(intT) {
			n.setType(colourT)
			return
		}
		if n.Op == PERCENT {
			if !lt.Equal(intT) || !rt.Equal(intT) {
				a.diag.Errorf(TypeError, n.Line, "'%%' needs int operands, got %s and %s", lt, rt)
			}
			n.setType(intT)
			return
		}
		if !lt.Numeric() || !rt.Numeric() || !lt.Equal(rt) {
			a.diag.Errorf(TypeError, n.Line, "operator '%s' needs matching numeric operands, got %s and %s",
				opText(n.Op), lt, rt)
			n.setType(lt)
			return
		}
		n.setType(lt)

	case LESS, LESS_EQ, GREATER, GREATER_EQ:
		if !lt.Numeric() || !rt.Numeric() || !lt.Equal(rt) {
			a.diag.Errorf(TypeError, n.Line, "comparison '%s' needs matching numeric operands, got %s and %s",
				opText(n.Op), lt, rt)
		}
		n.setType(boolT)

	case EQUALS, NOT_EQ:
		if !lt.Scalar() || !lt.Equal(rt) {
			a.diag.Errorf(TypeError, n.Line, "equality needs matching primitive operands, got %s and %s", lt, rt)
		}
		n.setType(boolT)

	case AND, OR:
		if !lt.Equal(boolT) || !rt.Equal(boolT) {
			a.diag.Errorf(TypeError, n.Line, "'%s' needs bool operands, got %s and %s", opText(n.Op), lt, rt)
		}
		n.setType(boolT)
	}
}

// allPathsReturn reports whether every execution path through the block ends
// in a return statement.
func allPathsReturn(b *Block) bool {
	for _, s := range b.Stmts {
		if stmtReturns(s) {
			return true
		}
	}
	return false
}

func stmtReturns(s Stmt) bool {
	switch n := s.(type) {
	case *ReturnStmt:
		return true
	case *Block:
		return allPathsReturn(n)
	case *IfStmt:
		return n.Else != nil && allPathsReturn(n.Then) && allPathsReturn(n.Else)
	}
	return false
}
