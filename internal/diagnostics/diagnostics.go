package diagnostics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/stubinfer/internal/token"
)

type ErrorCode string

// Inference errors
const (
	ErrI001 ErrorCode = "I001" // unbound name
	ErrI002 ErrorCode = "I002" // load on a non-load identifier
	ErrI003 ErrorCode = "I003" // member access on a type variable
	ErrI004 ErrorCode = "I004" // no overload matched
	ErrI005 ErrorCode = "I005" // overload declaration has no candidates
	ErrI006 ErrorCode = "I006" // generic parameter never bound or bound twice
	ErrI007 ErrorCode = "I007" // dict() pair of wrong length
	ErrI008 ErrorCode = "I008" // stub not found
	ErrI009 ErrorCode = "I009" // construct not modeled
	ErrI010 ErrorCode = "I010" // attribute not certainly present
	ErrI011 ErrorCode = "I011" // call on a non-callable type
)

// Parse errors
const (
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // illegal character / bad literal
	ErrP003 ErrorCode = "P003" // inconsistent indentation
	ErrP004 ErrorCode = "P004" // invalid assignment target
	ErrP005 ErrorCode = "P005" // nesting too deep
)

// Configuration errors
const (
	ErrC001 ErrorCode = "C001"
)

var codeNames = map[ErrorCode]string{
	ErrI001: "UnboundName",
	ErrI002: "ScopeContractViolation",
	ErrI003: "TypeVarAccessViolation",
	ErrI004: "UnmatchedOverload",
	ErrI005: "MalformedOverload",
	ErrI006: "GenericUnificationFailure",
	ErrI007: "MalformedDictConstruction",
	ErrI008: "StubNotFound",
	ErrI009: "UnsupportedConstruct",
	ErrI010: "AttributeNotFound",
	ErrI011: "NotCallable",
	ErrP001: "UnexpectedToken",
	ErrP002: "IllegalCharacter",
	ErrP003: "IndentationError",
	ErrP004: "InvalidTarget",
	ErrP005: "NestingTooDeep",
	ErrC001: "ConfigError",
}

// Name returns the symbolic kind of the code (e.g. "UnboundName").
func (c ErrorCode) Name() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return string(c)
}

// DiagnosticError is a positioned, coded error.
type DiagnosticError struct {
	Code   ErrorCode
	Token  token.Token
	File   string
	Msg    string
	Node   string   // source rendering of the offending node, if known
	Frames []string // enclosing scope chain, innermost first
	Cause  error
}

func NewError(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Msg: msg}
}

// Errorf is NewError with a format string.
func Errorf(code ErrorCode, tok token.Token, format string, args ...interface{}) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a diagnostic that keeps cause reachable through errors.As / errors.Is.
func Wrap(code ErrorCode, tok token.Token, cause error, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Msg: msg, Cause: cause}
}

func (e *DiagnosticError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(":")
	}
	if e.Token.Line > 0 {
		b.WriteString(e.Token.Pos())
		b.WriteString(": ")
	} else if e.File != "" {
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "%s %s: %s", e.Code, e.Code.Name(), e.Msg)
	if e.Node != "" {
		fmt.Fprintf(&b, " (in `%s`)", e.Node)
	}
	for _, f := range e.Frames {
		b.WriteString("\n\t")
		b.WriteString(f)
	}
	return b.String()
}

func (e *DiagnosticError) Unwrap() error {
	return e.Cause
}

// Is matches another *DiagnosticError by code, so callers can test
// errors.Is(err, diagnostics.Kind(diagnostics.ErrI001)).
func (e *DiagnosticError) Is(target error) bool {
	t, ok := target.(*DiagnosticError)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Code == e.Code
}

// At fills in the position if the error does not have one yet.
func (e *DiagnosticError) At(tok token.Token) *DiagnosticError {
	if e.Token.Line == 0 {
		e.Token = tok
	}
	return e
}

// WithNode records the rendering of the offending node if none is set.
func (e *DiagnosticError) WithNode(src string) *DiagnosticError {
	if e.Node == "" {
		e.Node = src
	}
	return e
}

// Kind returns a bare sentinel for code, for use with errors.Is.
func Kind(code ErrorCode) error {
	return &DiagnosticError{Code: code}
}

// CodeOf extracts the code of the outermost DiagnosticError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// HasCode reports whether any DiagnosticError in err's chain has the given code.
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, Kind(code))
}

// DictArityError carries the details of a malformed dict() update sequence.
type DictArityError struct {
	Index int
	Arity int
}

func (e *DictArityError) Error() string {
	return fmt.Sprintf("dictionary update sequence element #%d has length %d; 2 is required", e.Index, e.Arity)
}

// UnboundParamsError lists generic parameters left without a binding.
type UnboundParamsError struct {
	Params []string
}

func (e *UnboundParamsError) Error() string {
	return fmt.Sprintf("unbound type parameters: %s", strings.Join(e.Params, ", "))
}
