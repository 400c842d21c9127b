package symbols

import (
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/funvibe/stubinfer/internal/ast"
)

// sniffBindings collects the names a body binds, independent of control flow.
// Nested function and class bodies are skipped; their own names are bound here.
// Walrus targets anywhere in the body's expressions, including nested
// comprehensions, bind here too.
func sniffBindings(body []ast.Statement, names *set.Set[string]) {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.Assign:
			for _, t := range s.Targets {
				collectTargets(t, names)
			}
			collectWalrus(s.Value, names)
		case *ast.AugAssign:
			collectTargets(s.Target, names)
			collectWalrus(s.Value, names)
		case *ast.AnnAssign:
			collectTargets(s.Target, names)
			collectWalrus(s.Value, names)
		case *ast.Delete:
			for _, t := range s.Targets {
				collectTargets(t, names)
			}
		case *ast.ExprStmt:
			collectWalrus(s.Value, names)
		case *ast.Return:
			collectWalrus(s.Value, names)
		case *ast.Raise:
			collectWalrus(s.Exc, names)
			collectWalrus(s.Cause, names)
		case *ast.Assert:
			collectWalrus(s.Test, names)
			collectWalrus(s.Msg, names)
		case *ast.If:
			collectWalrus(s.Test, names)
			sniffBindings(s.Body, names)
			sniffBindings(s.OrElse, names)
		case *ast.While:
			collectWalrus(s.Test, names)
			sniffBindings(s.Body, names)
			sniffBindings(s.OrElse, names)
		case *ast.For:
			collectTargets(s.Target, names)
			collectWalrus(s.Iter, names)
			sniffBindings(s.Body, names)
			sniffBindings(s.OrElse, names)
		case *ast.With:
			for _, item := range s.Items {
				collectWalrus(item.Context, names)
				if item.Vars != nil {
					collectTargets(item.Vars, names)
				}
			}
			sniffBindings(s.Body, names)
		case *ast.Try:
			sniffBindings(s.Body, names)
			for _, h := range s.Handlers {
				if h.Name != "" {
					names.Insert(h.Name)
				}
				sniffBindings(h.Body, names)
			}
			sniffBindings(s.OrElse, names)
			sniffBindings(s.Finally, names)
		case *ast.FunctionDef:
			names.Insert(s.Name)
		case *ast.ClassDef:
			names.Insert(s.Name)
		case *ast.Import:
			for _, a := range s.Names {
				names.Insert(BoundImportName(a))
			}
		case *ast.ImportFrom:
			for _, a := range s.Names {
				if a.Name != "*" {
					names.Insert(BoundImportName(a))
				}
			}
		}
	}
}

// BoundImportName is the local name an import alias binds:
// `import a.b` binds a, `import a.b as c` binds c.
func BoundImportName(a *ast.Alias) string {
	if a.AsName != "" {
		return a.AsName
	}
	if i := strings.IndexByte(a.Name, '.'); i >= 0 {
		return a.Name[:i]
	}
	return a.Name
}

// collectTargets adds the names bound by an assignment target.
func collectTargets(target ast.Expression, names *set.Set[string]) {
	switch t := target.(type) {
	case *ast.Name:
		names.Insert(t.Id)
	case *ast.TupleExpr:
		for _, e := range t.Elts {
			collectTargets(e, names)
		}
	case *ast.ListExpr:
		for _, e := range t.Elts {
			collectTargets(e, names)
		}
	case *ast.Starred:
		collectTargets(t.Value, names)
	case *ast.Attribute, *ast.Subscript:
		collectWalrus(t, names)
	}
}

// collectWalrus adds walrus targets found in expr. A lambda is its own frame.
func collectWalrus(expr ast.Expression, names *set.Set[string]) {
	if expr == nil {
		return
	}
	ast.Inspect(expr, func(n ast.Node) bool {
		switch e := n.(type) {
		case *ast.Lambda:
			return false
		case *ast.NamedExpr:
			names.Insert(e.Target.Id)
		}
		return true
	})
}

// sniffRedirections collects global and nonlocal declarations outside nested
// function and class bodies.
func sniffRedirections(body []ast.Statement, globals, nonlocals *set.Set[string]) {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.Global:
			globals.InsertSlice(s.Names)
		case *ast.Nonlocal:
			nonlocals.InsertSlice(s.Names)
		case *ast.If:
			sniffRedirections(s.Body, globals, nonlocals)
			sniffRedirections(s.OrElse, globals, nonlocals)
		case *ast.While:
			sniffRedirections(s.Body, globals, nonlocals)
			sniffRedirections(s.OrElse, globals, nonlocals)
		case *ast.For:
			sniffRedirections(s.Body, globals, nonlocals)
			sniffRedirections(s.OrElse, globals, nonlocals)
		case *ast.With:
			sniffRedirections(s.Body, globals, nonlocals)
		case *ast.Try:
			sniffRedirections(s.Body, globals, nonlocals)
			for _, h := range s.Handlers {
				sniffRedirections(h.Body, globals, nonlocals)
			}
			sniffRedirections(s.OrElse, globals, nonlocals)
			sniffRedirections(s.Finally, globals, nonlocals)
		}
	}
}
