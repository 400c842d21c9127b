package analyzer

import (
	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/symbols"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// elements infers the items of a display. A starred item contributes the
// element type of what it unpacks.
func (w *walker) elements(elts []ast.Expression) ([]typesystem.Type, bool, error) {
	out := make([]typesystem.Type, 0, len(elts))
	starred := false
	for _, e := range elts {
		t, err := w.infer(e)
		if err != nil {
			return nil, false, err
		}
		if _, ok := e.(*ast.Starred); ok {
			starred = true
		}
		out = append(out, t)
	}
	return out, starred, nil
}

// display infers [a, b] and {a, b}: the container of the join of the items,
// Any for an empty display.
func (w *walker) display(container string, elts []ast.Expression) (typesystem.Type, error) {
	items, _, err := w.elements(elts)
	if err != nil {
		return nil, err
	}
	return containerOf(container, w.s.Lattice.JoinAll(items)), nil
}

// tuple infers (a, b) element-wise. Unpacking makes the length unknown.
func (w *walker) tuple(elts []ast.Expression) (typesystem.Type, error) {
	items, starred, err := w.elements(elts)
	if err != nil {
		return nil, err
	}
	if starred {
		return typesystem.TApp{Constructor: tupleCon, Args: []typesystem.Type{w.s.Lattice.JoinAll(items)}}, nil
	}
	return typesystem.TTuple{Elements: items}, nil
}

// dict infers a dict display. Keys and values are checked but the result
// stays the bare dict class.
func (w *walker) dict(e *ast.DictExpr) (typesystem.Type, error) {
	for i, v := range e.Values {
		if k := e.Keys[i]; k != nil {
			if _, err := w.infer(k); err != nil {
				return nil, err
			}
		}
		if _, err := w.infer(v); err != nil {
			return nil, err
		}
	}
	return dictCon, nil
}

// comprehension runs the generators of a comprehension in a fresh frame and
// calls elt there. The first iterable is evaluated in the enclosing frame.
func (w *walker) comprehension(gens []*ast.Comprehension, elt func(*walker) (typesystem.Type, error)) (typesystem.Type, error) {
	cw := w.enter(symbols.NewComprehensionScope(gens, w.scope))
	for i, g := range gens {
		src := cw
		if i == 0 {
			src = w
		}
		iter, err := src.infer(g.Iter)
		if err != nil {
			return nil, err
		}
		elem, err := w.s.ElementType(iter)
		if err != nil {
			return nil, positioned(err, g.Iter)
		}
		if err := cw.assign(g.Target, elem); err != nil {
			return nil, err
		}
		for _, cond := range g.Ifs {
			if _, err := cw.infer(cond); err != nil {
				return nil, err
			}
		}
	}
	return elt(cw)
}

// listOf is list[elem], the type a starred assignment target receives.
func listOf(elem typesystem.Type) typesystem.Type {
	return containerOf(config.ListTypeName, elem)
}
