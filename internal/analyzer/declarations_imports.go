package analyzer

import (
	"strings"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/stubs"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// importModules binds `import a.b` (the head module a) and `import a.b as c`
// (the module a.b itself). A module no stub declares is reported and bound to Any.
func (w *walker) importModules(st *ast.Import) {
	for _, alias := range st.Names {
		target := alias.AsName
		if target == "" {
			target = strings.Split(alias.Name, ".")[0]
		}
		d, err := stubs.Follow(w.s.Provider, alias.Name)
		if err != nil {
			w.s.addErrorAt(err, alias.Token)
			_ = w.scope.Store(target, typesystem.Any)
			continue
		}
		var t typesystem.Type = typesystem.TModule{Name: target}
		if alias.AsName != "" {
			if t, err = w.s.valueOfDecl(d); err != nil {
				w.s.addErrorAt(err, alias.Token)
				t = typesystem.Any
			}
		}
		if err := w.scope.Store(target, t); err != nil {
			w.s.addErrorAt(err, alias.Token)
		}
	}
}

// importFrom binds the names of `from m import a, b as c` and `from m import *`.
func (w *walker) importFrom(st *ast.ImportFrom) error {
	module, err := w.s.absoluteModule(st)
	if err != nil {
		return err
	}
	if len(st.Names) == 1 && st.Names[0].Name == "*" {
		return w.importStar(module, st)
	}
	for _, alias := range st.Names {
		target := alias.AsName
		if target == "" {
			target = alias.Name
		}
		t, err := w.s.moduleMember(module, alias.Name)
		if err != nil {
			w.s.addErrorAt(err, alias.Token)
			t = typesystem.Any
		}
		if err := w.scope.Store(target, t); err != nil {
			w.s.addErrorAt(err, alias.Token)
		}
	}
	return nil
}

func (w *walker) importStar(module string, st *ast.ImportFrom) error {
	d, err := stubs.Follow(w.s.Provider, module)
	if err != nil {
		return positionedAt(err, st.Token)
	}
	mod, ok := d.(*stubs.ModuleDecl)
	if !ok {
		return diagnostics.Errorf(diagnostics.ErrI008, st.Token, "%s is not a module", module)
	}
	for _, name := range mod.Names {
		if strings.HasPrefix(name, "_") {
			continue
		}
		t, err := w.s.moduleMember(mod.Name, name)
		if err != nil {
			w.s.logger.Printf("import %s.*: %s: %v", module, name, err)
			t = typesystem.Any
		}
		w.scope.Declare(name)
		if err := w.scope.Store(name, t); err != nil {
			return positionedAt(err, st.Token)
		}
	}
	return nil
}

// absoluteModule resolves the leading dots of a relative import against the
// analyzed module's name.
func (s *Session) absoluteModule(st *ast.ImportFrom) (string, error) {
	if st.Level == 0 {
		return st.Module, nil
	}
	parts := strings.Split(s.Module, ".")
	if st.Level > len(parts)-1 {
		return "", diagnostics.Errorf(diagnostics.ErrI008, st.Token, "attempted relative import beyond top-level package of %s", s.Module)
	}
	base := strings.Join(parts[:len(parts)-st.Level], ".")
	if st.Module == "" {
		return base, nil
	}
	return base + "." + st.Module, nil
}
