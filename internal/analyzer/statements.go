package analyzer

import (
	"fmt"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/symbols"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// execBody executes stmts in order. A failing statement is reported and
// execution continues with the next one.
func (w *walker) execBody(stmts []ast.Statement) {
	for _, st := range stmts {
		if err := w.exec(st); err != nil {
			w.s.addError(err, st)
		}
	}
}

func (w *walker) exec(stmt ast.Statement) error {
	switch st := stmt.(type) {
	case *ast.ExprStmt:
		_, err := w.infer(st.Value)
		return err
	case *ast.Assign:
		v, err := w.infer(st.Value)
		if err != nil {
			for _, t := range st.Targets {
				w.bindAny(t)
			}
			return err
		}
		for _, t := range st.Targets {
			if err := w.assign(t, v); err != nil {
				return err
			}
		}
		return nil
	case *ast.AugAssign:
		return w.execAugAssign(st)
	case *ast.AnnAssign:
		return w.execAnnAssign(st)
	case *ast.Delete:
		for _, t := range st.Targets {
			if err := w.delete(t); err != nil {
				return err
			}
		}
		return nil
	case *ast.Pass, *ast.Break, *ast.Continue, *ast.Global, *ast.Nonlocal:
		return nil
	case *ast.Return:
		if w.fn == nil {
			return diagnostics.Errorf(diagnostics.ErrI009, st.Token, "'return' outside function")
		}
		t := typesystem.Type(noneType)
		if st.Value != nil {
			var err error
			if t, err = w.infer(st.Value); err != nil {
				w.fn.returns = append(w.fn.returns, typesystem.Any)
				return err
			}
		}
		w.fn.returns = append(w.fn.returns, t)
		return nil
	case *ast.Raise:
		return w.inferAll(st.Exc, st.Cause)
	case *ast.Assert:
		return w.inferAll(st.Test, st.Msg)
	case *ast.If:
		err := w.inferAll(st.Test)
		w.execBody(st.Body)
		w.execBody(st.OrElse)
		return err
	case *ast.While:
		err := w.inferAll(st.Test)
		w.execBody(st.Body)
		w.execBody(st.OrElse)
		return err
	case *ast.For:
		return w.execFor(st)
	case *ast.With:
		return w.execWith(st)
	case *ast.Try:
		w.execBody(st.Body)
		for _, h := range st.Handlers {
			if err := w.execHandler(h); err != nil {
				w.s.addErrorAt(err, h.Token)
			}
		}
		w.execBody(st.OrElse)
		w.execBody(st.Finally)
		return nil
	case *ast.FunctionDef:
		return w.defineFunction(st)
	case *ast.ClassDef:
		return w.defineClass(st)
	case *ast.Import:
		w.importModules(st)
		return nil
	case *ast.ImportFrom:
		return w.importFrom(st)
	}
	return diagnostics.Errorf(diagnostics.ErrI009, stmt.GetToken(), "unsupported statement %T", stmt)
}

// inferAll infers the non-nil expressions for their diagnostics.
func (w *walker) inferAll(exprs ...ast.Expression) error {
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if _, err := w.infer(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) execAugAssign(st *ast.AugAssign) error {
	cur, err := w.infer(asLoad(st.Target))
	if err != nil {
		return err
	}
	v, err := w.infer(st.Value)
	if err != nil {
		return err
	}
	t, err := w.s.inplace(st.Op, cur, v)
	if err != nil {
		return positioned(err, st)
	}
	return w.assign(st.Target, t)
}

// asLoad returns a copy of an assignment target that reads its current value.
func asLoad(target ast.Expression) ast.Expression {
	switch t := target.(type) {
	case *ast.Name:
		cp := *t
		cp.Ctx = ast.Load
		return &cp
	case *ast.Attribute:
		cp := *t
		cp.Ctx = ast.Load
		return &cp
	case *ast.Subscript:
		cp := *t
		cp.Ctx = ast.Load
		return &cp
	}
	return target
}

// execAnnAssign binds the declared type. A bare annotation only declares a
// member in a class body; elsewhere it binds nothing.
func (w *walker) execAnnAssign(st *ast.AnnAssign) error {
	declared, err := w.s.buildType(st.Annotation, scopeNames{w})
	if err != nil {
		w.s.addError(err, st.Annotation)
		declared = typesystem.Any
	}
	if st.Value != nil {
		if _, err := w.infer(st.Value); err != nil {
			w.bindAny(st.Target)
			return err
		}
	} else if w.scope.Kind != symbols.ScopeClass {
		return nil
	}
	return w.assign(st.Target, declared)
}

func (w *walker) execFor(st *ast.For) error {
	iter, err := w.infer(st.Iter)
	if err == nil {
		var elem typesystem.Type
		if elem, err = w.s.ElementType(iter); err == nil {
			err = w.assign(st.Target, elem)
		} else {
			err = positioned(err, st.Iter)
		}
	}
	if err != nil {
		w.bindAny(st.Target)
		w.s.addError(err, st)
	}
	w.execBody(st.Body)
	w.execBody(st.OrElse)
	return nil
}

func (w *walker) execWith(st *ast.With) error {
	for _, item := range st.Items {
		ctx, err := w.infer(item.Context)
		if err != nil {
			w.s.addError(err, item.Context)
			ctx = typesystem.Any
		}
		if item.Vars == nil {
			continue
		}
		entered, err := w.s.callMember(ctx, "__enter__", nil)
		if err != nil {
			w.s.addError(err, item.Context)
			entered = typesystem.Any
		}
		if err := w.assign(item.Vars, entered); err != nil {
			w.s.addError(err, item.Vars)
		}
	}
	w.execBody(st.Body)
	return nil
}

func (w *walker) execHandler(h *ast.ExceptHandler) error {
	exc := typesystem.Type(typesystem.Any)
	var err error
	if h.Type != nil {
		var t typesystem.Type
		if t, err = w.infer(h.Type); err == nil {
			exc = w.s.caught(t)
		}
	}
	if h.Name != "" {
		if serr := w.scope.Store(h.Name, exc); serr != nil && err == nil {
			err = serr
		}
	}
	w.execBody(h.Body)
	return err
}

// caught is the type an except clause binds for the class object(s) t.
func (s *Session) caught(t typesystem.Type) typesystem.Type {
	switch c := t.(type) {
	case typesystem.TType:
		return c.Type
	case typesystem.TTuple:
		parts := make([]typesystem.Type, len(c.Elements))
		for i, e := range c.Elements {
			parts[i] = s.caught(e)
		}
		return s.Lattice.JoinAll(parts)
	}
	return typesystem.Any
}

// assign binds target to a value of type v.
func (w *walker) assign(target ast.Expression, v typesystem.Type) error {
	switch t := target.(type) {
	case *ast.Name:
		return w.scope.Store(t.Id, v)
	case *ast.TupleExpr:
		return w.unpack(t.Elts, v)
	case *ast.ListExpr:
		return w.unpack(t.Elts, v)
	case *ast.Starred:
		return w.assign(t.Value, listOf(v))
	case *ast.Attribute:
		return w.assignAttribute(t, v)
	case *ast.Subscript:
		return w.assignItem(t, v)
	}
	return diagnostics.Errorf(diagnostics.ErrI002, target.GetToken(), "cannot assign to %T", target)
}

// unpack distributes v over a tuple or list target. A fixed-length tuple of
// the same length is unpacked element-wise; otherwise every sub-target
// receives the element type, and a starred one a list of it.
func (w *walker) unpack(elts []ast.Expression, v typesystem.Type) error {
	if tup, ok := v.(typesystem.TTuple); ok && len(tup.Elements) == len(elts) && !hasStarred(elts) {
		for i, e := range elts {
			if err := w.assign(e, tup.Elements[i]); err != nil {
				return err
			}
		}
		return nil
	}
	elem, err := w.s.unpackElement(v)
	if err != nil {
		for _, e := range elts {
			w.bindAny(e)
		}
		return err
	}
	for _, e := range elts {
		if err := w.assign(e, elem); err != nil {
			return err
		}
	}
	return nil
}

// unpackElement is the type each unpacked item gets. For a union this joins
// the first positional element of every arm, which is imprecise for tuples
// of different shapes.
func (s *Session) unpackElement(v typesystem.Type) (typesystem.Type, error) {
	u, ok := v.(typesystem.TUnion)
	if !ok {
		return s.ElementType(v)
	}
	parts := make([]typesystem.Type, 0, len(u.Types))
	for _, arm := range u.Types {
		switch a := arm.(type) {
		case typesystem.TTuple:
			if len(a.Elements) > 0 {
				parts = append(parts, a.Elements[0])
				continue
			}
		case typesystem.TApp:
			if len(a.Args) > 0 {
				parts = append(parts, a.Args[0])
				continue
			}
		}
		e, err := s.ElementType(arm)
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
	}
	return s.Lattice.JoinAll(parts), nil
}

func hasStarred(elts []ast.Expression) bool {
	for _, e := range elts {
		if _, ok := e.(*ast.Starred); ok {
			return true
		}
	}
	return false
}

// assignAttribute records obj.attr = v. Assignments through a method's
// receiver become instance attributes of its class; assignments to a local
// instance of an analyzed class are tracked on that value.
func (w *walker) assignAttribute(t *ast.Attribute, v typesystem.Type) error {
	if name, ok := t.Value.(*ast.Name); ok && w.fn != nil && w.fn.info != nil && w.fn.info.class != nil && w.fn.info.self == name.Id {
		w.s.recordInstance(w.fn.info.class, t.Attr, v)
		return nil
	}
	base, err := w.infer(asLoad(t.Value))
	if err != nil {
		return err
	}
	if err := w.s.Lattice.CheckMember(base, t.Attr, t.Token); err != nil {
		return err
	}
	if o, ok := base.(*typesystem.Object); ok {
		o.SetAttr(t.Attr, v)
		return nil
	}
	name, ok := t.Value.(*ast.Name)
	if !ok {
		return nil
	}
	if con, _, nominal := typesystem.Nominal(base); nominal && con.Module == w.s.Module {
		o := typesystem.NewObject(base)
		o.SetAttr(t.Attr, v)
		return w.scope.Store(name.Id, o)
	}
	return nil
}

// assignItem checks obj[index] = v through __setitem__. A target without
// __setitem__ is an error; argument mismatches are tolerated.
func (w *walker) assignItem(t *ast.Subscript, v typesystem.Type) error {
	base, err := w.infer(asLoad(t.Value))
	if err != nil {
		return err
	}
	index, err := w.infer(t.Slice)
	if err != nil {
		return err
	}
	_, err = w.s.callMember(base, config.SetItemMethod, []typesystem.Type{index, v})
	switch {
	case err == nil:
		return nil
	case missingAttribute(err):
		return diagnostics.Wrap(diagnostics.ErrI010, t.GetToken(), err,
			fmt.Sprintf("%s does not support item assignment", base))
	case diagnostics.HasCode(err, diagnostics.ErrI004), diagnostics.HasCode(err, diagnostics.ErrI006):
		return nil
	}
	return positioned(err, t)
}

// recordInstance joins v into the instance attribute attr of cls.
func (s *Session) recordInstance(cls *typesystem.Class, attr string, v typesystem.Type) {
	attrs, ok := s.instance[cls.QualName()]
	if !ok {
		attrs = make(map[string]typesystem.Type)
		s.instance[cls.QualName()] = attrs
	}
	attrs[attr] = s.Lattice.Join(attrs[attr], v)
}

// bindAny binds the names in a target whose value could not be inferred, so
// later reads do not report them unbound.
func (w *walker) bindAny(target ast.Expression) {
	switch t := target.(type) {
	case *ast.Name:
		_ = w.scope.Store(t.Id, typesystem.Any)
	case *ast.TupleExpr:
		for _, e := range t.Elts {
			w.bindAny(e)
		}
	case *ast.ListExpr:
		for _, e := range t.Elts {
			w.bindAny(e)
		}
	case *ast.Starred:
		w.bindAny(t.Value)
	}
}

func (w *walker) delete(target ast.Expression) error {
	switch t := target.(type) {
	case *ast.Name:
		if err := w.scope.Delete(t.Id); err != nil {
			return positioned(err, t)
		}
		return nil
	case *ast.TupleExpr:
		for _, e := range t.Elts {
			if err := w.delete(e); err != nil {
				return err
			}
		}
		return nil
	case *ast.ListExpr:
		for _, e := range t.Elts {
			if err := w.delete(e); err != nil {
				return err
			}
		}
		return nil
	case *ast.Attribute:
		base, err := w.infer(asLoad(t.Value))
		if err != nil {
			return err
		}
		if err := w.s.Lattice.CheckMember(base, t.Attr, t.Token); err != nil {
			return err
		}
		if o, ok := base.(*typesystem.Object); ok {
			o.DelAttr(t.Attr)
		}
		return nil
	case *ast.Subscript:
		base, err := w.infer(asLoad(t.Value))
		if err != nil {
			return err
		}
		index, err := w.infer(t.Slice)
		if err != nil {
			return err
		}
		if _, err := w.s.callMember(base, config.DelItemMethod, []typesystem.Type{index}); err != nil && !missingAttribute(err) {
			return positioned(err, t)
		}
		return nil
	}
	return diagnostics.Errorf(diagnostics.ErrI002, target.GetToken(), "cannot delete %T", target)
}
