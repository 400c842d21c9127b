package symbols

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"golang.org/x/exp/slices"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/token"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

type ScopeKind int

const (
	ScopeBuiltins ScopeKind = iota // Built-in namespace, the root of every chain
	ScopeModule
	ScopeFunction
	ScopeClass
	ScopeComprehension
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeBuiltins:
		return "builtins"
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeClass:
		return "class"
	case ScopeComprehension:
		return "comprehension"
	}
	return "scope"
}

// Resolver produces the type of a builtin name on first load.
type Resolver func(name string) (typesystem.Type, error)

// Scope is one lexical frame.
// Names in Globals or Nonlocals never get a binding in this frame.
type Scope struct {
	Kind      ScopeKind
	Name      string
	Locals    *set.Set[string]
	Globals   *set.Set[string]
	Nonlocals *set.Set[string]

	bindings map[string]typesystem.Type
	parent   *Scope
	resolve  Resolver
}

func newFrame(kind ScopeKind, name string, parent *Scope) *Scope {
	return &Scope{
		Kind:      kind,
		Name:      name,
		Locals:    set.New[string](8),
		Globals:   set.New[string](0),
		Nonlocals: set.New[string](0),
		bindings:  make(map[string]typesystem.Type),
		parent:    parent,
	}
}

// NewBuiltinScope creates the outermost frame. Each name is resolved on its
// first load and memoized.
func NewBuiltinScope(names []string, resolve Resolver) *Scope {
	s := newFrame(ScopeBuiltins, "builtins", nil)
	s.Locals.InsertSlice(names)
	s.resolve = resolve
	return s
}

// NewScope creates a frame for body, hoisting every name the body binds.
func NewScope(kind ScopeKind, name string, body []ast.Statement, parent *Scope) *Scope {
	s := newFrame(kind, name, parent)
	s.Extend(body)
	return s
}

// NewComprehensionScope creates a comprehension frame. Only the generator
// targets are local to it; walrus targets escape to the enclosing frame.
func NewComprehensionScope(gens []*ast.Comprehension, parent *Scope) *Scope {
	s := newFrame(ScopeComprehension, "<comprehension>", parent)
	for _, g := range gens {
		collectTargets(g.Target, s.Locals)
	}
	return s
}

// Extend hoists the names bound by additional statements, e.g. one REPL line.
func (s *Scope) Extend(body []ast.Statement) {
	sniffBindings(body, s.Locals)
	sniffRedirections(body, s.Globals, s.Nonlocals)
	s.Locals.RemoveSet(s.Globals)
	s.Locals.RemoveSet(s.Nonlocals)
}

// Declare marks names as local to this frame, e.g. function parameters.
func (s *Scope) Declare(names ...string) {
	for _, n := range names {
		if !s.Globals.Contains(n) && !s.Nonlocals.Contains(n) {
			s.Locals.Insert(n)
		}
	}
}

// Parent returns the enclosing frame, nil for the builtins root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Module returns the frame `global` names are redirected to: the frame just
// below the builtins root.
func (s *Scope) Module() *Scope {
	a := s
	for a.parent != nil && a.parent.parent != nil {
		a = a.parent
	}
	return a
}

// EscapeTarget returns the nearest frame that is not a comprehension.
// Walrus targets written inside a comprehension bind there.
func (s *Scope) EscapeTarget() *Scope {
	a := s
	for a.Kind == ScopeComprehension && a.parent != nil {
		a = a.parent
	}
	return a
}

// Load returns the type bound to name.
func (s *Scope) Load(name string) (typesystem.Type, error) {
	switch {
	case s.Locals.Contains(name):
		if t, ok := s.bindings[name]; ok {
			return t, nil
		}
		if s.resolve != nil {
			t, err := s.resolve(name)
			if err != nil {
				return nil, err
			}
			s.bindings[name] = t
			return t, nil
		}
		return nil, s.unbound(name, "local variable %q referenced before assignment")
	case s.Nonlocals.Contains(name):
		return s.parent.Load(name)
	case s.Globals.Contains(name):
		return s.Module().loadGlobal(name)
	}
	for p := s.parent; p != nil; p = p.parent {
		if p.Kind == ScopeClass || !p.declares(name) {
			continue
		}
		t, err := p.Load(name)
		if de, ok := err.(*diagnostics.DiagnosticError); ok && de.Code == diagnostics.ErrI001 {
			de.Frames = s.Chain()
		}
		return t, err
	}
	return nil, s.unbound(name, "name %q is not defined")
}

func (s *Scope) declares(name string) bool {
	return s.Locals.Contains(name) || s.Globals.Contains(name) || s.Nonlocals.Contains(name)
}

// loadGlobal reads a module-level name, falling back to builtins.
func (s *Scope) loadGlobal(name string) (typesystem.Type, error) {
	if s.Locals.Contains(name) || s.parent == nil {
		return s.Load(name)
	}
	return s.parent.Load(name)
}

// Store binds name to t following the same routing as Load.
func (s *Scope) Store(name string, t typesystem.Type) error {
	switch {
	case s.Globals.Contains(name):
		m := s.Module()
		m.Locals.Insert(name)
		m.bindings[name] = t
		return nil
	case s.Nonlocals.Contains(name):
		if s.parent == nil || s.parent.Kind == ScopeBuiltins {
			return s.unbound(name, "no binding for nonlocal %q found")
		}
		return s.parent.Store(name, t)
	case s.Locals.Contains(name):
		s.bindings[name] = t
		return nil
	}
	if s.Kind == ScopeComprehension {
		return s.EscapeTarget().Store(name, t)
	}
	s.Locals.Insert(name)
	s.bindings[name] = t
	return nil
}

// Delete unbinds name. Deleting a declared but currently unbound name fails.
func (s *Scope) Delete(name string) error {
	switch {
	case s.Globals.Contains(name):
		return s.Module().Delete(name)
	case s.Nonlocals.Contains(name):
		return s.parent.Delete(name)
	case s.Locals.Contains(name):
		if _, ok := s.bindings[name]; !ok {
			return s.unbound(name, "cannot delete %q: it is not bound")
		}
		delete(s.bindings, name)
		return nil
	}
	return s.unbound(name, "name %q is not defined")
}

// Lookup returns the binding of name in this frame only.
func (s *Scope) Lookup(name string) (typesystem.Type, bool) {
	t, ok := s.bindings[name]
	return t, ok
}

// Bindings returns the names bound in this frame, sorted.
func (s *Scope) Bindings() []string {
	names := make([]string, 0, len(s.bindings))
	for k := range s.bindings {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Chain renders the frames from this one out to the root, innermost first.
func (s *Scope) Chain() []string {
	var out []string
	for a := s; a != nil; a = a.parent {
		out = append(out, a.String())
	}
	return out
}

func (s *Scope) String() string {
	if s.Kind == ScopeBuiltins {
		return "<builtins>"
	}
	locals := s.Locals.Slice()
	slices.Sort(locals)
	var b strings.Builder
	fmt.Fprintf(&b, "<%s %s locals=[%s]", s.Kind, s.Name, strings.Join(locals, ", "))
	if !s.Globals.Empty() {
		g := s.Globals.Slice()
		slices.Sort(g)
		fmt.Fprintf(&b, " global=[%s]", strings.Join(g, ", "))
	}
	if !s.Nonlocals.Empty() {
		n := s.Nonlocals.Slice()
		slices.Sort(n)
		fmt.Fprintf(&b, " nonlocal=[%s]", strings.Join(n, ", "))
	}
	b.WriteString(">")
	return b.String()
}

func (s *Scope) unbound(name, format string) *diagnostics.DiagnosticError {
	err := diagnostics.Errorf(diagnostics.ErrI001, token.Token{}, format, name)
	err.Frames = s.Chain()
	return err
}
