package stubs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"path"
	"strings"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/parser"
	"github.com/funvibe/stubinfer/internal/token"
)

// stubModule is one parsed stub file and the declarations it makes.
type stubModule struct {
	decl    *ModuleDecl
	members map[string]Decl
	names   *nameTable
}

// SourceProvider parses .pyi stub modules from a file system on demand.
// A module a.b lives at a/b.pyi or, for packages, a/b/__init__.pyi.
type SourceProvider struct {
	fsys       fs.FS
	modules    map[string]*stubModule
	missing    map[string]bool
	processing map[string]bool
	logger     *log.Logger
}

// NewSourceProvider serves the stubs found in fsys. logger may be nil.
func NewSourceProvider(fsys fs.FS, logger *log.Logger) *SourceProvider {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &SourceProvider{
		fsys:       fsys,
		modules:    make(map[string]*stubModule),
		missing:    make(map[string]bool),
		processing: make(map[string]bool),
		logger:     logger,
	}
}

// Resolve finds the longest module prefix of qualname and walks the rest
// through module members and class members.
func (p *SourceProvider) Resolve(qualname string) (Decl, error) {
	parts := strings.Split(qualname, ".")
	for i := len(parts); i >= 1; i-- {
		mod, err := p.module(strings.Join(parts[:i], "."))
		if err != nil {
			return nil, err
		}
		if mod == nil {
			continue
		}
		rest := parts[i:]
		if len(rest) == 0 {
			return mod.decl, nil
		}
		d, ok := mod.members[rest[0]]
		if !ok {
			return nil, NotFound(qualname)
		}
		for _, name := range rest[1:] {
			switch cd := d.(type) {
			case *ClassDecl:
				if d, ok = cd.Member(name); !ok {
					return nil, NotFound(qualname)
				}
			case *AliasDecl:
				return p.Resolve(cd.Target + "." + strings.Join(rest[1:], "."))
			default:
				return nil, NotFound(qualname)
			}
		}
		return d, nil
	}
	return nil, NotFound(qualname)
}

// module loads and indexes a stub module. It returns nil, nil when no file exists.
func (p *SourceProvider) module(name string) (*stubModule, error) {
	if m, ok := p.modules[name]; ok {
		return m, nil
	}
	if p.missing[name] {
		return nil, nil
	}
	if p.processing[name] {
		return nil, diagnostics.Errorf(diagnostics.ErrI008, token.Token{}, "cyclic stub load of %s", name)
	}
	p.processing[name] = true
	defer delete(p.processing, name)

	base := strings.ReplaceAll(name, ".", "/")
	candidates := []struct {
		file string
		pkg  bool
	}{
		{base + config.StubFileExt, false},
		{path.Join(base, config.PackageInitName+config.StubFileExt), true},
	}
	for _, c := range candidates {
		src, err := fs.ReadFile(p.fsys, c.file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading stub %s: %w", c.file, err)
		}
		mod, errs := parser.ParseFile(c.file, string(src))
		for _, e := range errs {
			p.logger.Printf("stubs: %s", e.Error())
		}
		m := indexModule(name, c.pkg, mod)
		p.modules[name] = m
		p.logger.Printf("stubs: loaded module %s from %s (%d names)", name, c.file, len(m.decl.Names))
		return m, nil
	}
	if p.isNamespaceDir(base) {
		m := &stubModule{
			decl:    &ModuleDecl{Name: name, Package: true},
			members: make(map[string]Decl),
			names:   newNameTable(name),
		}
		p.modules[name] = m
		return m, nil
	}
	p.missing[name] = true
	return nil, nil
}

// isNamespaceDir reports whether dir exists without an __init__.pyi.
func (p *SourceProvider) isNamespaceDir(dir string) bool {
	info, err := fs.Stat(p.fsys, dir)
	return err == nil && info.IsDir()
}

// indexModule records every top-level declaration of a stub module.
func indexModule(name string, pkg bool, mod *ast.Module) *stubModule {
	m := &stubModule{
		decl:    &ModuleDecl{Name: name, Package: pkg, Source: mod},
		members: make(map[string]Decl),
		names:   newNameTable(name),
	}
	pkgName := name
	if !pkg {
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			pkgName = name[:i]
		} else {
			pkgName = ""
		}
	}
	ix := &indexer{module: name, pkg: pkgName, names: m.names}
	ix.declare(mod.Body)
	ix.statements(mod.Body, func(n string, d Decl) {
		if _, ok := m.members[n]; ok {
			if f, isFunc := d.(*FuncDecl); isFunc {
				if prev, ok := m.members[n].(*FuncDecl); ok {
					prev.Defs = append(prev.Defs, f.Defs...)
				}
			}
			return
		}
		m.members[n] = d
		m.decl.Names = append(m.decl.Names, n)
	})
	return m
}

type indexer struct {
	module string
	pkg    string
	names  *nameTable
}

// declare records the module's own names and imports before indexing, so
// forward references qualify correctly.
func (ix *indexer) declare(body []ast.Statement) {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.ClassDef:
			ix.names.own[s.Name] = true
		case *ast.FunctionDef:
			ix.names.own[s.Name] = true
		case *ast.AnnAssign:
			if n, ok := s.Target.(*ast.Name); ok {
				ix.names.own[n.Id] = true
			}
		case *ast.Assign:
			if len(s.Targets) == 1 {
				if n, ok := s.Targets[0].(*ast.Name); ok {
					ix.names.own[n.Id] = true
				}
			}
		case *ast.Import:
			for _, a := range s.Names {
				if a.AsName != "" {
					ix.names.imports[a.AsName] = a.Name
					continue
				}
				head, _, _ := strings.Cut(a.Name, ".")
				ix.names.imports[head] = head
			}
		case *ast.ImportFrom:
			from := ix.resolveRelative(s.Module, s.Level)
			for _, a := range s.Names {
				if a.Name == "*" {
					continue
				}
				local := a.Name
				if a.AsName != "" {
					local = a.AsName
				}
				if from != "" {
					ix.names.imports[local] = from + "." + a.Name
				} else {
					ix.names.imports[local] = a.Name
				}
			}
		case *ast.If:
			ix.declare(s.Body)
			ix.declare(s.OrElse)
		case *ast.Try:
			ix.declare(s.Body)
		}
	}
}

// statements visits declarations in order; the first declaration of a name
// wins, except that function definitions accumulate as overloads.
func (ix *indexer) statements(body []ast.Statement, add func(string, Decl)) {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.ClassDef:
			add(s.Name, ix.class(s, ""))
		case *ast.FunctionDef:
			add(s.Name, &FuncDecl{Module: ix.module, Name: s.Name, Defs: []*ast.FunctionDef{s}, names: ix.names})
		case *ast.AnnAssign:
			if n, ok := s.Target.(*ast.Name); ok {
				add(n.Id, &VarDecl{Module: ix.module, Name: n.Id, Annotation: s.Annotation, Value: s.Value, names: ix.names})
			}
		case *ast.Assign:
			if len(s.Targets) != 1 {
				continue
			}
			n, ok := s.Targets[0].(*ast.Name)
			if !ok {
				continue
			}
			add(n.Id, ix.assignment(n.Id, s.Value))
		case *ast.Import:
			for _, a := range s.Names {
				if a.AsName != "" {
					add(a.AsName, &AliasDecl{Name: ix.module + "." + a.AsName, Target: a.Name})
				}
			}
		case *ast.ImportFrom:
			from := ix.resolveRelative(s.Module, s.Level)
			for _, a := range s.Names {
				if a.Name == "*" {
					continue
				}
				local := a.Name
				if a.AsName != "" {
					local = a.AsName
				}
				target := a.Name
				if from != "" {
					target = from + "." + a.Name
				}
				add(local, &AliasDecl{Name: ix.module + "." + local, Target: target})
			}
		case *ast.If:
			ix.statements(s.Body, add)
			ix.statements(s.OrElse, add)
		case *ast.Try:
			ix.statements(s.Body, add)
		}
	}
}

func (ix *indexer) resolveRelative(module string, level int) string {
	if level == 0 {
		return module
	}
	base := ix.pkg
	for i := 1; i < level && base != ""; i++ {
		if j := strings.LastIndexByte(base, '.'); j >= 0 {
			base = base[:j]
		} else {
			base = ""
		}
	}
	switch {
	case module == "":
		return base
	case base == "":
		return module
	}
	return base + "." + module
}

// assignment classifies `name = value` in a stub.
func (ix *indexer) assignment(name string, value ast.Expression) Decl {
	if call, ok := value.(*ast.Call); ok && dottedTail(call.Func) == config.TypeVarName {
		tv := &TypeVarDecl{Module: ix.module, Name: name, names: ix.names}
		for _, kw := range call.Keywords {
			if kw.Arg == "bound" {
				tv.Bound = kw.Value
			}
		}
		return tv
	}
	if dotted := Dotted(value); dotted != "" {
		return &AliasDecl{Name: ix.module + "." + name, Target: ix.names.qualify(dotted)}
	}
	return &VarDecl{Module: ix.module, Name: name, Value: value, names: ix.names}
}

func (ix *indexer) class(s *ast.ClassDef, outer string) *ClassDecl {
	name := s.Name
	if outer != "" {
		name = outer + "." + s.Name
	}
	cd := &ClassDecl{
		Module:  ix.module,
		Name:    name,
		Node:    s,
		Bases:   s.Bases,
		Members: make(map[string]Decl),
		names:   ix.names,
	}
	for _, d := range s.Decorators {
		cd.Decorators = append(cd.Decorators, dottedTail(d))
	}
	add := func(n string, d Decl) {
		if prev, ok := cd.Members[n]; ok {
			if f, isFunc := d.(*FuncDecl); isFunc {
				if pf, ok := prev.(*FuncDecl); ok {
					pf.Defs = append(pf.Defs, f.Defs...)
				}
			}
			return
		}
		cd.Members[n] = d
		cd.Order = append(cd.Order, n)
	}
	for _, stmt := range s.Body {
		switch m := stmt.(type) {
		case *ast.FunctionDef:
			add(m.Name, &FuncDecl{Module: ix.module, Class: name, Name: m.Name, Defs: []*ast.FunctionDef{m}, names: ix.names})
		case *ast.AnnAssign:
			if n, ok := m.Target.(*ast.Name); ok {
				add(n.Id, &VarDecl{Module: ix.module, Class: name, Name: n.Id, Annotation: m.Annotation, Value: m.Value, names: ix.names})
			}
		case *ast.Assign:
			if len(m.Targets) != 1 {
				continue
			}
			if n, ok := m.Targets[0].(*ast.Name); ok {
				if dotted := Dotted(m.Value); dotted != "" {
					if _, sibling := cd.Members[dotted]; sibling {
						add(n.Id, &AliasDecl{Name: cd.QualName() + "." + n.Id, Target: cd.QualName() + "." + dotted})
						continue
					}
				}
				add(n.Id, &VarDecl{Module: ix.module, Class: name, Name: n.Id, Value: m.Value, names: ix.names})
			}
		case *ast.ClassDef:
			add(m.Name, ix.class(m, name))
		case *ast.If:
			for _, inner := range m.Body {
				if f, ok := inner.(*ast.FunctionDef); ok {
					add(f.Name, &FuncDecl{Module: ix.module, Class: name, Name: f.Name, Defs: []*ast.FunctionDef{f}, names: ix.names})
				}
			}
		}
	}
	return cd
}

// Dotted renders a Name or Attribute chain as a dotted string, or "" for
// anything else.
func Dotted(e ast.Expression) string {
	switch x := e.(type) {
	case *ast.Name:
		return x.Id
	case *ast.Attribute:
		if head := Dotted(x.Value); head != "" {
			return head + "." + x.Attr
		}
	}
	return ""
}

func dottedTail(e ast.Expression) string {
	if c, ok := e.(*ast.Call); ok {
		e = c.Func
	}
	d := Dotted(e)
	if i := strings.LastIndexByte(d, '.'); i >= 0 {
		return d[i+1:]
	}
	return d
}

// DecoratorNames returns the final identifier of each decorator of fn.
func DecoratorNames(fn *ast.FunctionDef) []string {
	out := make([]string, 0, len(fn.Decorators))
	for _, d := range fn.Decorators {
		out = append(out, dottedTail(d))
	}
	return out
}
