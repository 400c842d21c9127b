package ast

import "github.com/funvibe/stubinfer/internal/token"

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	GetToken() token.Token
}

// Statement is a Node that represents a statement.
// The set of statements is closed: only types in this package implement it.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
// The set of expressions is closed: only types in this package implement it.
type Expression interface {
	Node
	expressionNode()
}

// ExprContext says whether a name-like expression is read, written or deleted.
type ExprContext int

const (
	Load ExprContext = iota
	Store
	Del
)

func (c ExprContext) String() string {
	switch c {
	case Store:
		return "Store"
	case Del:
		return "Del"
	default:
		return "Load"
	}
}

// Module is the root node of every AST the parser produces.
type Module struct {
	File string
	Body []Statement
}

func (m *Module) TokenLiteral() string {
	if len(m.Body) > 0 {
		return m.Body[0].TokenLiteral()
	}
	return ""
}

func (m *Module) GetToken() token.Token {
	if m == nil || len(m.Body) == 0 {
		return token.Token{}
	}
	return m.Body[0].GetToken()
}

// Arg is one formal parameter of a def or lambda.
type Arg struct {
	Token      token.Token
	Name       string
	Annotation Expression // nil when undeclared
}

// Arguments is the full formal parameter list of a def or lambda.
// Defaults are right-aligned against PosOnly ++ Args; KwDefaults is aligned
// with KwOnly and holds nil for keyword-only parameters without a default.
type Arguments struct {
	PosOnly    []*Arg
	Args       []*Arg
	Vararg     *Arg
	KwOnly     []*Arg
	Kwarg      *Arg
	Defaults   []Expression
	KwDefaults []Expression
}

// Positional returns PosOnly followed by Args.
func (a *Arguments) Positional() []*Arg {
	if a == nil {
		return nil
	}
	out := make([]*Arg, 0, len(a.PosOnly)+len(a.Args))
	out = append(out, a.PosOnly...)
	return append(out, a.Args...)
}

// Keyword is a keyword argument in a call or class header. Arg is "" for **value.
type Keyword struct {
	Token token.Token
	Arg   string
	Value Expression
}

// Comprehension is one `for target in iter if ...` clause.
type Comprehension struct {
	Token   token.Token // the 'for' token
	Target  Expression
	Iter    Expression
	Ifs     []Expression
	IsAsync bool
}

// Alias is one name in an import statement.
type Alias struct {
	Token  token.Token
	Name   string // dotted for `import a.b`
	AsName string
}

// WithItem is one `ctx as vars` item.
type WithItem struct {
	Context Expression
	Vars    Expression // nil without `as`
}

// ExceptHandler is one `except Type as name:` clause.
type ExceptHandler struct {
	Token token.Token
	Type  Expression // nil for bare except
	Name  string
	Body  []Statement
}
