package stubs

import (
	"github.com/funvibe/stubinfer/internal/ast"
)

// Decl is what a qualified name resolves to.
type Decl interface {
	QualName() string
	declNode()
}

// ModuleDecl marks a namespace. Package is true for directory-like modules
// (pkg/__init__.pyi), which is how `import a.b` is told apart from `from a import b`.
type ModuleDecl struct {
	Name    string
	Package bool
	Names   []string
	Source  *ast.Module
}

func (d *ModuleDecl) QualName() string { return d.Name }
func (*ModuleDecl) declNode()          {}

// ClassDecl is a class declaration. Bases are kept as expressions so they can
// name classes that are declared later or in other modules.
type ClassDecl struct {
	Module     string
	Name       string // dotted for nested classes
	Node       *ast.ClassDef
	Bases      []ast.Expression
	Decorators []string
	Members    map[string]Decl
	Order      []string

	names *nameTable
}

func (d *ClassDecl) QualName() string { return d.Module + "." + d.Name }
func (*ClassDecl) declNode()          {}

// Member returns a member declared directly on the class.
func (d *ClassDecl) Member(name string) (Decl, bool) {
	m, ok := d.Members[name]
	return m, ok
}

// Qualify turns a dotted name used inside the class's module into a
// qualified name, following the module's imports.
func (d *ClassDecl) Qualify(dotted string) string {
	return d.names.qualify(dotted)
}

// FuncDecl is a function with its overloads in declaration order.
// Class is empty for module-level functions.
type FuncDecl struct {
	Module string
	Class  string
	Name   string
	Defs   []*ast.FunctionDef

	names *nameTable
}

func (d *FuncDecl) QualName() string {
	if d.Class != "" {
		return d.Module + "." + d.Class + "." + d.Name
	}
	return d.Module + "." + d.Name
}
func (*FuncDecl) declNode() {}

// Qualify turns a dotted name used inside the function's module into a qualified name.
func (d *FuncDecl) Qualify(dotted string) string {
	return d.names.qualify(dotted)
}

// AliasDecl re-exports another qualified name.
type AliasDecl struct {
	Name   string
	Target string
}

func (d *AliasDecl) QualName() string { return d.Name }
func (*AliasDecl) declNode()          {}

// VarDecl is a module or class variable. Annotation is nil for `X = value`,
// which stubs use for type aliases and constants.
type VarDecl struct {
	Module     string
	Class      string
	Name       string
	Annotation ast.Expression
	Value      ast.Expression

	names *nameTable
}

func (d *VarDecl) QualName() string {
	if d.Class != "" {
		return d.Module + "." + d.Class + "." + d.Name
	}
	return d.Module + "." + d.Name
}
func (*VarDecl) declNode() {}

// Qualify turns a dotted name used inside the variable's module into a qualified name.
func (d *VarDecl) Qualify(dotted string) string {
	return d.names.qualify(dotted)
}

// TypeVarDecl is `_T = TypeVar("_T", bound=...)`.
type TypeVarDecl struct {
	Module string
	Name   string
	Bound  ast.Expression

	names *nameTable
}

func (d *TypeVarDecl) QualName() string { return d.Module + "." + d.Name }
func (*TypeVarDecl) declNode()          {}

// Qualify turns a dotted name used inside the declaring module into a qualified name.
func (d *TypeVarDecl) Qualify(dotted string) string {
	return d.names.qualify(dotted)
}
