package analyzer

import (
	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/symbols"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// AnalyzeModule executes mod in a fresh module frame and then infers the
// body of every function it defines. It returns the module frame and the
// diagnostics collected so far.
func (s *Session) AnalyzeModule(mod *ast.Module) (*symbols.Scope, []*diagnostics.DiagnosticError) {
	scope := s.NewModuleScope(nil)
	s.Exec(scope, mod.Body)
	s.inferPending()
	return scope, s.Errors()
}

// NewModuleScope creates the frame of the analyzed module with body's
// bindings hoisted. body may be nil and extended later.
func (s *Session) NewModuleScope(body []ast.Statement) *symbols.Scope {
	return symbols.NewScope(symbols.ScopeModule, s.Module, body, s.Builtins)
}

// Exec runs more statements in scope, e.g. one REPL entry. Names they bind
// are hoisted into scope first.
func (s *Session) Exec(scope *symbols.Scope, body []ast.Statement) {
	scope.Extend(body)
	w := &walker{s: s, scope: scope}
	w.execBody(body)
}

// InferExpr infers a single expression against scope. Names it binds with
// := are stored in scope.
func (s *Session) InferExpr(e ast.Expression, scope *symbols.Scope) (typesystem.Type, error) {
	if scope == nil {
		scope = s.NewModuleScope(nil)
	}
	w := &walker{s: s, scope: scope}
	return w.infer(e)
}

// TypeOf returns the type recorded for a node during analysis.
func (s *Session) TypeOf(n ast.Node) (typesystem.Type, bool) {
	t, ok := s.TypeMap[n]
	return t, ok
}

// ReturnType infers the return type of a function defined in analyzed source.
func (s *Session) ReturnType(def *ast.FunctionDef) typesystem.Type {
	return s.inferReturn(def)
}
