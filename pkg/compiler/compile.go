package compiler

// Result is the outcome of one compilation attempt. Assembly is non-empty
// only when Success is true; Errors carries every diagnostic, formatted for
// the editor, in source order.
type Result struct {
	Success  bool
	Assembly string
	Errors   []string
}

// Compile runs the full pipeline: lex, parse, analyse, eliminate dead
// functions, generate assembly. Diagnostics from every pass are collected
// together; no code is emitted if any error is present.
func Compile(source string) Result {
	diag := NewDiagnostics(source)

	tokens := Lex(source, diag)
	prog := Parse(tokens, diag)
	scopes := Analyze(prog, diag)

	if diag.HasErrors() {
		return Result{Success: false, Errors: diag.Messages()}
	}

	eliminateDeadFunctions(prog)
	assembly := Generate(prog, scopes)
	return Result{Success: true, Assembly: assembly}
}
