package config

import "strings"

// StubFileExt is the extension of interface-declaration (stub) files.
const StubFileExt = ".pyi"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".py", ".pyi"}

// PackageInitName is the file that turns a stub directory into a package.
const PackageInitName = "__init__"

// Module names
const (
	BuiltinsModule = "builtins"
	TypingModule   = "typing"
	MainModule     = "__main__"
)

// Built-in class names
const (
	ObjectTypeName    = "object"
	IntTypeName       = "int"
	FloatTypeName     = "float"
	ComplexTypeName   = "complex"
	BoolTypeName      = "bool"
	StrTypeName       = "str"
	BytesTypeName     = "bytes"
	NoneTypeName      = "NoneType"
	EllipsisTypeName  = "ellipsis"
	ListTypeName      = "list"
	TupleTypeName     = "tuple"
	SetTypeName       = "set"
	FrozenSetTypeName = "frozenset"
	DictTypeName      = "dict"
	EnumerateTypeName = "enumerate"
	ZipTypeName       = "zip"
	TypeTypeName      = "type"
	FunctionTypeName  = "function"
	ModuleTypeName    = "ModuleType"
	SliceTypeName     = "slice"
)

// typing names with special meaning in type expressions
const (
	AnyName       = "Any"
	GenericName   = "Generic"
	ProtocolName  = "Protocol"
	UnionName     = "Union"
	OptionalName  = "Optional"
	LiteralName   = "Literal"
	CallableName  = "Callable"
	TypeVarName   = "TypeVar"
	IteratorName  = "Iterator"
	GeneratorName = "Generator"
	SelfName      = "Self"
)

// Decorators recognized on function declarations
const (
	StaticMethodDecorator = "staticmethod"
	ClassMethodDecorator  = "classmethod"
	OverloadDecorator     = "overload"
	PropertyDecorator     = "property"
)

// Dunder method names used by inference
const (
	IterMethod     = "__iter__"
	NextMethod     = "__next__"
	InitMethod     = "__init__"
	NewMethod      = "__new__"
	GetItemMethod  = "__getitem__"
	SetItemMethod  = "__setitem__"
	DelItemMethod  = "__delitem__"
	CallMethod     = "__call__"
	ContainsMethod = "__contains__"
)

// BinaryDunders maps an operator to its method and reflected method.
var BinaryDunders = map[string][2]string{
	"+":  {"__add__", "__radd__"},
	"-":  {"__sub__", "__rsub__"},
	"*":  {"__mul__", "__rmul__"},
	"@":  {"__matmul__", "__rmatmul__"},
	"/":  {"__truediv__", "__rtruediv__"},
	"//": {"__floordiv__", "__rfloordiv__"},
	"%":  {"__mod__", "__rmod__"},
	"**": {"__pow__", "__rpow__"},
	"<<": {"__lshift__", "__rlshift__"},
	">>": {"__rshift__", "__rrshift__"},
	"&":  {"__and__", "__rand__"},
	"|":  {"__or__", "__ror__"},
	"^":  {"__xor__", "__rxor__"},
}

// CompareDunders maps a rich comparison operator to its method.
var CompareDunders = map[string]string{
	"<":  "__lt__",
	"<=": "__le__",
	">":  "__gt__",
	">=": "__ge__",
	"==": "__eq__",
	"!=": "__ne__",
}

// UnaryDunders maps a unary operator to its method.
var UnaryDunders = map[string]string{
	"-": "__neg__",
	"+": "__pos__",
	"~": "__invert__",
}

// Limits
const (
	// MaxUnifyDepth bounds recursion through nested generic instantiation.
	MaxUnifyDepth = 64
	// MaxBaseDepth bounds walks over the base-class graph.
	MaxBaseDepth = 128
	// MaxRecursionDepth bounds parser and inferencer recursion on deeply nested input.
	MaxRecursionDepth = 512
)

// HasSourceExt reports whether path ends in a recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// TrimSourceExt removes a recognized source extension from name.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
