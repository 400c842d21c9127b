package ast

import "github.com/funvibe/stubinfer/internal/token"

// ExprStmt is an expression evaluated for its effect.
type ExprStmt struct {
	Token token.Token
	Value Expression
}

func (s *ExprStmt) statementNode()        {}
func (s *ExprStmt) TokenLiteral() string  { return s.Token.Lexeme }
func (s *ExprStmt) GetToken() token.Token { return s.Token }

// Assign is `t1 = t2 = value`.
type Assign struct {
	Token   token.Token // first '='
	Targets []Expression
	Value   Expression
}

func (s *Assign) statementNode()        {}
func (s *Assign) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Assign) GetToken() token.Token { return s.Token }

// AugAssign is `target op= value`.
type AugAssign struct {
	Token  token.Token
	Target Expression
	Op     string // the binary operator, e.g. "+"
	Value  Expression
}

func (s *AugAssign) statementNode()        {}
func (s *AugAssign) TokenLiteral() string  { return s.Token.Lexeme }
func (s *AugAssign) GetToken() token.Token { return s.Token }

// AnnAssign is `target: annotation [= value]`.
type AnnAssign struct {
	Token      token.Token
	Target     Expression
	Annotation Expression
	Value      Expression // may be nil
}

func (s *AnnAssign) statementNode()        {}
func (s *AnnAssign) TokenLiteral() string  { return s.Token.Lexeme }
func (s *AnnAssign) GetToken() token.Token { return s.Token }

// Delete is `del a, b`.
type Delete struct {
	Token   token.Token
	Targets []Expression
}

func (s *Delete) statementNode()        {}
func (s *Delete) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Delete) GetToken() token.Token { return s.Token }

// Pass is `pass`.
type Pass struct{ Token token.Token }

func (s *Pass) statementNode()        {}
func (s *Pass) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Pass) GetToken() token.Token { return s.Token }

// Break is `break`.
type Break struct{ Token token.Token }

func (s *Break) statementNode()        {}
func (s *Break) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Break) GetToken() token.Token { return s.Token }

// Continue is `continue`.
type Continue struct{ Token token.Token }

func (s *Continue) statementNode()        {}
func (s *Continue) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Continue) GetToken() token.Token { return s.Token }

// Return is `return [value]`.
type Return struct {
	Token token.Token
	Value Expression
}

func (s *Return) statementNode()        {}
func (s *Return) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Return) GetToken() token.Token { return s.Token }

// Raise is `raise [exc [from cause]]`.
type Raise struct {
	Token token.Token
	Exc   Expression
	Cause Expression
}

func (s *Raise) statementNode()        {}
func (s *Raise) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Raise) GetToken() token.Token { return s.Token }

// Assert is `assert test[, msg]`.
type Assert struct {
	Token token.Token
	Test  Expression
	Msg   Expression
}

func (s *Assert) statementNode()        {}
func (s *Assert) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Assert) GetToken() token.Token { return s.Token }

// Global is `global a, b`.
type Global struct {
	Token token.Token
	Names []string
}

func (s *Global) statementNode()        {}
func (s *Global) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Global) GetToken() token.Token { return s.Token }

// Nonlocal is `nonlocal a, b`.
type Nonlocal struct {
	Token token.Token
	Names []string
}

func (s *Nonlocal) statementNode()        {}
func (s *Nonlocal) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Nonlocal) GetToken() token.Token { return s.Token }

// If is `if test: body elif/else: orelse`. An elif chain nests as a single If in OrElse.
type If struct {
	Token  token.Token
	Test   Expression
	Body   []Statement
	OrElse []Statement
}

func (s *If) statementNode()        {}
func (s *If) TokenLiteral() string  { return s.Token.Lexeme }
func (s *If) GetToken() token.Token { return s.Token }

// While is `while test: body else: orelse`.
type While struct {
	Token  token.Token
	Test   Expression
	Body   []Statement
	OrElse []Statement
}

func (s *While) statementNode()        {}
func (s *While) TokenLiteral() string  { return s.Token.Lexeme }
func (s *While) GetToken() token.Token { return s.Token }

// For is `for target in iter: body else: orelse`.
type For struct {
	Token   token.Token
	Target  Expression
	Iter    Expression
	Body    []Statement
	OrElse  []Statement
	IsAsync bool
}

func (s *For) statementNode()        {}
func (s *For) TokenLiteral() string  { return s.Token.Lexeme }
func (s *For) GetToken() token.Token { return s.Token }

// With is `with a as b, c: body`.
type With struct {
	Token   token.Token
	Items   []*WithItem
	Body    []Statement
	IsAsync bool
}

func (s *With) statementNode()        {}
func (s *With) TokenLiteral() string  { return s.Token.Lexeme }
func (s *With) GetToken() token.Token { return s.Token }

// Try is `try/except/else/finally`.
type Try struct {
	Token    token.Token
	Body     []Statement
	Handlers []*ExceptHandler
	OrElse   []Statement
	Finally  []Statement
}

func (s *Try) statementNode()        {}
func (s *Try) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Try) GetToken() token.Token { return s.Token }

// FunctionDef is a `def`, possibly decorated.
type FunctionDef struct {
	Token      token.Token // the name token
	Name       string
	Args       *Arguments
	Body       []Statement
	Decorators []Expression
	Returns    Expression // nil when undeclared
	IsAsync    bool
}

func (s *FunctionDef) statementNode()        {}
func (s *FunctionDef) TokenLiteral() string  { return s.Token.Lexeme }
func (s *FunctionDef) GetToken() token.Token { return s.Token }

// ClassDef is a `class`, possibly decorated.
type ClassDef struct {
	Token      token.Token // the name token
	Name       string
	Bases      []Expression
	Keywords   []*Keyword
	Body       []Statement
	Decorators []Expression
}

func (s *ClassDef) statementNode()        {}
func (s *ClassDef) TokenLiteral() string  { return s.Token.Lexeme }
func (s *ClassDef) GetToken() token.Token { return s.Token }

// Import is `import a.b as c, d`.
type Import struct {
	Token token.Token
	Names []*Alias
}

func (s *Import) statementNode()        {}
func (s *Import) TokenLiteral() string  { return s.Token.Lexeme }
func (s *Import) GetToken() token.Token { return s.Token }

// ImportFrom is `from [.]module import a as b`. A single "*" name means star import.
type ImportFrom struct {
	Token  token.Token
	Module string
	Names  []*Alias
	Level  int
}

func (s *ImportFrom) statementNode()        {}
func (s *ImportFrom) TokenLiteral() string  { return s.Token.Lexeme }
func (s *ImportFrom) GetToken() token.Token { return s.Token }
