package analyzer

import (
	"strings"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/token"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

var zeroTok token.Token

var (
	noneType  = typesystem.Builtin(config.NoneTypeName)
	boolType  = typesystem.Builtin(config.BoolTypeName)
	strType   = typesystem.Builtin(config.StrTypeName)
	sliceType = typesystem.Builtin(config.SliceTypeName)
	dictCon   = typesystem.Builtin(config.DictTypeName)
	tupleCon  = typesystem.Builtin(config.TupleTypeName)
)

// constantClasses maps a literal kind to its runtime class.
var constantClasses = map[ast.ConstantKind]typesystem.TCon{
	ast.IntConst:      typesystem.Builtin(config.IntTypeName),
	ast.FloatConst:    typesystem.Builtin(config.FloatTypeName),
	ast.ComplexConst:  typesystem.Builtin(config.ComplexTypeName),
	ast.StrConst:      strType,
	ast.BytesConst:    typesystem.Builtin(config.BytesTypeName),
	ast.BoolConst:     boolType,
	ast.NoneConst:     noneType,
	ast.EllipsisConst: typesystem.Builtin(config.EllipsisTypeName),
}

// containerOf builds a one-parameter builtin container type such as list[int].
func containerOf(name string, elem typesystem.Type) typesystem.Type {
	if elem == nil {
		elem = typesystem.Any
	}
	return typesystem.TApp{Constructor: typesystem.Builtin(name), Args: []typesystem.Type{elem}}
}

func dictOf(k, v typesystem.Type) typesystem.Type {
	return typesystem.TApp{Constructor: dictCon, Args: []typesystem.Type{k, v}}
}

// generatorOf is typing.Generator[elem, None, None], the type of a generator expression.
func generatorOf(elem typesystem.Type) typesystem.Type {
	return typesystem.TApp{
		Constructor: typesystem.TCon{Name: config.GeneratorName, Module: config.TypingModule},
		Args:        []typesystem.Type{elem, noneType, noneType},
	}
}

// initSpecialized lists the builtin classes whose construction is resolved
// from the argument's element type instead of __init__.
var initSpecialized = map[string]bool{
	config.ListTypeName:      true,
	config.TupleTypeName:     true,
	config.SetTypeName:       true,
	config.FrozenSetTypeName: true,
	config.DictTypeName:      true,
	config.EnumerateTypeName: true,
	config.ZipTypeName:       true,
}

func isBuiltinClass(t typesystem.Type, name string) bool {
	c, ok := t.(typesystem.TCon)
	return ok && c == typesystem.Builtin(name)
}

func isTypingClass(t typesystem.Type, name string) bool {
	c, ok := t.(typesystem.TCon)
	return ok && c.Module == config.TypingModule && c.Name == name
}

func lastSegment(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}

// unionArms returns the arms of a union, or t itself.
func unionArms(t typesystem.Type) []typesystem.Type {
	if u, ok := t.(typesystem.TUnion); ok {
		return u.Types
	}
	return []typesystem.Type{t}
}
