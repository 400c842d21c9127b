package ast

import "github.com/funvibe/stubinfer/internal/token"

// ConstantKind classifies a literal constant.
type ConstantKind int

const (
	IntConst ConstantKind = iota
	FloatConst
	ComplexConst
	StrConst
	BytesConst
	BoolConst
	NoneConst
	EllipsisConst
)

// Name is an identifier in load, store or delete position.
type Name struct {
	Token token.Token
	Id    string
	Ctx   ExprContext
}

func (n *Name) expressionNode()       {}
func (n *Name) TokenLiteral() string  { return n.Token.Lexeme }
func (n *Name) GetToken() token.Token { return n.Token }

// Constant is a number, string, bytes, True/False, None or `...`.
type Constant struct {
	Token token.Token
	Kind  ConstantKind
	Value string // decoded value for strings, lexeme otherwise
}

func (c *Constant) expressionNode()       {}
func (c *Constant) TokenLiteral() string  { return c.Token.Lexeme }
func (c *Constant) GetToken() token.Token { return c.Token }

// FormattedString is an f-string. Its replacement fields are parsed
// into Values so walrus targets inside them are visible to scoping.
type FormattedString struct {
	Token  token.Token
	Values []Expression
}

func (f *FormattedString) expressionNode()       {}
func (f *FormattedString) TokenLiteral() string  { return f.Token.Lexeme }
func (f *FormattedString) GetToken() token.Token { return f.Token }

// ListExpr is a list display `[a, b]` or list target.
type ListExpr struct {
	Token token.Token // '['
	Elts  []Expression
	Ctx   ExprContext
}

func (l *ListExpr) expressionNode()       {}
func (l *ListExpr) TokenLiteral() string  { return l.Token.Lexeme }
func (l *ListExpr) GetToken() token.Token { return l.Token }

// TupleExpr is a tuple display `a, b` / `(a, b)` or tuple target.
type TupleExpr struct {
	Token token.Token
	Elts  []Expression
	Ctx   ExprContext
}

func (t *TupleExpr) expressionNode()       {}
func (t *TupleExpr) TokenLiteral() string  { return t.Token.Lexeme }
func (t *TupleExpr) GetToken() token.Token { return t.Token }

// SetExpr is a set display `{a, b}`.
type SetExpr struct {
	Token token.Token // '{'
	Elts  []Expression
}

func (s *SetExpr) expressionNode()       {}
func (s *SetExpr) TokenLiteral() string  { return s.Token.Lexeme }
func (s *SetExpr) GetToken() token.Token { return s.Token }

// DictExpr is a dict display. A nil key marks a `**mapping` entry.
type DictExpr struct {
	Token  token.Token // '{'
	Keys   []Expression
	Values []Expression
}

func (d *DictExpr) expressionNode()       {}
func (d *DictExpr) TokenLiteral() string  { return d.Token.Lexeme }
func (d *DictExpr) GetToken() token.Token { return d.Token }

// ListComp is `[elt for ...]`.
type ListComp struct {
	Token      token.Token // '['
	Elt        Expression
	Generators []*Comprehension
}

func (c *ListComp) expressionNode()       {}
func (c *ListComp) TokenLiteral() string  { return c.Token.Lexeme }
func (c *ListComp) GetToken() token.Token { return c.Token }

// SetComp is `{elt for ...}`.
type SetComp struct {
	Token      token.Token
	Elt        Expression
	Generators []*Comprehension
}

func (c *SetComp) expressionNode()       {}
func (c *SetComp) TokenLiteral() string  { return c.Token.Lexeme }
func (c *SetComp) GetToken() token.Token { return c.Token }

// GeneratorExp is `(elt for ...)`.
type GeneratorExp struct {
	Token      token.Token
	Elt        Expression
	Generators []*Comprehension
}

func (c *GeneratorExp) expressionNode()       {}
func (c *GeneratorExp) TokenLiteral() string  { return c.Token.Lexeme }
func (c *GeneratorExp) GetToken() token.Token { return c.Token }

// DictComp is `{key: value for ...}`.
type DictComp struct {
	Token      token.Token
	Key        Expression
	Value      Expression
	Generators []*Comprehension
}

func (c *DictComp) expressionNode()       {}
func (c *DictComp) TokenLiteral() string  { return c.Token.Lexeme }
func (c *DictComp) GetToken() token.Token { return c.Token }

// Starred is `*value` in a display, call or target.
type Starred struct {
	Token token.Token // '*'
	Value Expression
	Ctx   ExprContext
}

func (s *Starred) expressionNode()       {}
func (s *Starred) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Starred) GetToken() token.Token { return s.Token }

// NamedExpr is the walrus `target := value`.
type NamedExpr struct {
	Token  token.Token // ':='
	Target *Name
	Value  Expression
}

func (n *NamedExpr) expressionNode()       {}
func (n *NamedExpr) TokenLiteral() string  { return n.Token.Lexeme }
func (n *NamedExpr) GetToken() token.Token { return n.Token }

// BinOp is `left op right` for arithmetic and bitwise operators.
type BinOp struct {
	Token token.Token // operator
	Left  Expression
	Op    string
	Right Expression
}

func (b *BinOp) expressionNode()       {}
func (b *BinOp) TokenLiteral() string  { return b.Token.Lexeme }
func (b *BinOp) GetToken() token.Token { return b.Token }

// UnaryOp is `-x`, `+x`, `~x` or `not x`.
type UnaryOp struct {
	Token   token.Token
	Op      string
	Operand Expression
}

func (u *UnaryOp) expressionNode()       {}
func (u *UnaryOp) TokenLiteral() string  { return u.Token.Lexeme }
func (u *UnaryOp) GetToken() token.Token { return u.Token }

// BoolOp is a chain of `and` or `or`.
type BoolOp struct {
	Token  token.Token
	Op     string
	Values []Expression
}

func (b *BoolOp) expressionNode()       {}
func (b *BoolOp) TokenLiteral() string  { return b.Token.Lexeme }
func (b *BoolOp) GetToken() token.Token { return b.Token }

// Compare is a comparison chain `a < b <= c`.
type Compare struct {
	Token       token.Token
	Left        Expression
	Ops         []string
	Comparators []Expression
}

func (c *Compare) expressionNode()       {}
func (c *Compare) TokenLiteral() string  { return c.Token.Lexeme }
func (c *Compare) GetToken() token.Token { return c.Token }

// IfExp is `body if test else orelse`.
type IfExp struct {
	Token  token.Token // 'if'
	Test   Expression
	Body   Expression
	OrElse Expression
}

func (e *IfExp) expressionNode()       {}
func (e *IfExp) TokenLiteral() string  { return e.Token.Lexeme }
func (e *IfExp) GetToken() token.Token { return e.Token }

// Call is `func(args, kw=value)`.
type Call struct {
	Token    token.Token // '('
	Func     Expression
	Args     []Expression
	Keywords []*Keyword
}

func (c *Call) expressionNode()       {}
func (c *Call) TokenLiteral() string  { return c.Token.Lexeme }
func (c *Call) GetToken() token.Token { return c.Token }

// Attribute is `value.attr`.
type Attribute struct {
	Token token.Token // attribute name token
	Value Expression
	Attr  string
	Ctx   ExprContext
}

func (a *Attribute) expressionNode()       {}
func (a *Attribute) TokenLiteral() string  { return a.Token.Lexeme }
func (a *Attribute) GetToken() token.Token { return a.Token }

// Subscript is `value[slice]`.
type Subscript struct {
	Token token.Token // '['
	Value Expression
	Slice Expression
	Ctx   ExprContext
}

func (s *Subscript) expressionNode()       {}
func (s *Subscript) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Subscript) GetToken() token.Token { return s.Token }

// Slice is `lower:upper:step` inside a subscript.
type Slice struct {
	Token token.Token // ':'
	Lower Expression
	Upper Expression
	Step  Expression
}

func (s *Slice) expressionNode()       {}
func (s *Slice) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Slice) GetToken() token.Token { return s.Token }

// Lambda is `lambda args: body`.
type Lambda struct {
	Token token.Token
	Args  *Arguments
	Body  Expression
}

func (l *Lambda) expressionNode()       {}
func (l *Lambda) TokenLiteral() string  { return l.Token.Lexeme }
func (l *Lambda) GetToken() token.Token { return l.Token }

// Yield is `yield value` or `yield from value`.
type Yield struct {
	Token token.Token
	Value Expression // may be nil
	From  bool
}

func (y *Yield) expressionNode()       {}
func (y *Yield) TokenLiteral() string  { return y.Token.Lexeme }
func (y *Yield) GetToken() token.Token { return y.Token }

// Await is `await value`.
type Await struct {
	Token token.Token
	Value Expression
}

func (a *Await) expressionNode()       {}
func (a *Await) TokenLiteral() string  { return a.Token.Lexeme }
func (a *Await) GetToken() token.Token { return a.Token }
