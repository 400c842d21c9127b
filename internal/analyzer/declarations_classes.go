package analyzer

import (
	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/stubs"
	"github.com/funvibe/stubinfer/internal/symbols"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// defineClass registers a class statement, executes its body in a class
// frame and binds the class name to the class object.
func (w *walker) defineClass(cd *ast.ClassDef) error {
	name := cd.Name
	if n := len(w.classes); n > 0 {
		name = w.classes[n-1].Name + "." + cd.Name
	}
	cls := typesystem.NewClass(w.s.Module, name)
	for _, d := range cd.Decorators {
		if _, err := w.infer(d); err != nil {
			w.s.addError(err, d)
		}
		cls.Decorators = append(cls.Decorators, decoratorName(d))
	}

	var bases []typesystem.Type
	for _, b := range cd.Bases {
		t, err := w.s.buildType(b, scopeNames{w})
		if err != nil {
			w.s.addError(err, b)
			continue
		}
		bases = append(bases, t)
	}
	for _, kw := range cd.Keywords {
		if _, err := w.infer(kw.Value); err != nil {
			w.s.addError(err, kw.Value)
		}
	}
	setBases(cls, bases)
	w.s.Registry.Define(cls)

	scope := symbols.NewScope(symbols.ScopeClass, cd.Name, cd.Body, w.scope)
	classes := append(append([]*typesystem.Class(nil), w.classes...), cls)
	cw := &walker{s: w.s, scope: scope, fn: w.fn, class: cls, classes: classes, depth: w.depth}
	cw.execBody(cd.Body)
	for _, n := range scope.Bindings() {
		t, _ := scope.Lookup(n)
		cls.SetMember(n, t)
	}

	attrs := instanceAttributes(cd)
	if len(attrs) > 0 {
		names := make([]string, 0, len(attrs))
		for n := range attrs {
			if _, declared, _ := cls.OwnMember(n); !declared {
				names = append(names, n)
			}
		}
		cls.SetLoader(names, func(attr string) (typesystem.Type, bool, error) {
			for _, def := range attrs[attr] {
				w.s.inferReturn(def)
			}
			t, ok := w.s.instance[cls.QualName()][attr]
			if !ok {
				t = typesystem.Any
			}
			return t, true, nil
		})
	}
	w.s.logger.Printf("class %s: %d params, %d members", cls.QualName(), len(cls.Params), len(cls.MemberNames()))
	return w.scope.Store(cd.Name, typesystem.TType{Type: cls.Con()})
}

func decoratorName(d ast.Expression) string {
	if c, ok := d.(*ast.Call); ok {
		d = c.Func
	}
	return lastSegment(stubs.Dotted(d))
}

// instanceAttributes maps each attribute assigned through the receiver of a
// method (self.x = ...) to the methods assigning it.
func instanceAttributes(cd *ast.ClassDef) map[string][]*ast.FunctionDef {
	out := make(map[string][]*ast.FunctionDef)
	for _, st := range cd.Body {
		def, ok := st.(*ast.FunctionDef)
		if !ok {
			continue
		}
		decs := stubs.DecoratorNames(def)
		params := def.Args.Positional()
		if len(params) == 0 || hasDecorator(decs, config.StaticMethodDecorator) || hasDecorator(decs, config.ClassMethodDecorator) {
			continue
		}
		self := params[0].Name
		seen := make(map[string]bool)
		ast.Inspect(&ast.Module{Body: def.Body}, func(n ast.Node) bool {
			switch x := n.(type) {
			case *ast.FunctionDef, *ast.ClassDef, *ast.Lambda:
				return false
			case *ast.Attribute:
				if x.Ctx != ast.Store {
					return true
				}
				if base, ok := x.Value.(*ast.Name); ok && base.Id == self && !seen[x.Attr] {
					seen[x.Attr] = true
					out[x.Attr] = append(out[x.Attr], def)
				}
			}
			return true
		})
	}
	return out
}
