package diagnostics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/stubinfer/internal/token"
)

func TestErrorRendering(t *testing.T) {
	tok := token.Token{Line: 3, Column: 7}
	tests := []struct {
		err      *DiagnosticError
		expected string
	}{
		{NewError(ErrI001, token.Token{}, "x"), "I001 UnboundName: x"},
		{NewError(ErrI010, tok, "no attribute"), "3:7: I010 AttributeNotFound: no attribute"},
		{&DiagnosticError{Code: ErrI004, File: "a.py", Token: tok, Msg: "m"}, "a.py:3:7: I004 UnmatchedOverload: m"},
		{&DiagnosticError{Code: ErrI009, File: "a.py", Msg: "m"}, "a.py: I009 UnsupportedConstruct: m"},
		{NewError(ErrI011, tok, "m").WithNode("x()"), "3:7: I011 NotCallable: m (in `x()`)"},
		{&DiagnosticError{Code: ErrI001, Msg: "m", Frames: []string{"<f>", "<m>"}}, "I001 UnboundName: m\n\t<f>\n\t<m>"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.err.Error())
	}
}

func TestCodesThroughWrapping(t *testing.T) {
	inner := Errorf(ErrI006, token.Token{}, "T unbound")
	wrapped := fmt.Errorf("resolving: %w", inner)

	assert.True(t, HasCode(wrapped, ErrI006))
	assert.False(t, HasCode(wrapped, ErrI001))
	code, ok := CodeOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrI006, code)

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := &DictArityError{Index: 1, Arity: 3}
	err := Wrap(ErrI007, token.Token{}, cause, cause.Error())

	var arity *DictArityError
	require.ErrorAs(t, err, &arity)
	assert.Equal(t, 1, arity.Index)
	assert.Contains(t, err.Error(), "element #1 has length 3")

	var unbound *UnboundParamsError
	assert.False(t, errors.As(err, &unbound))
}

func TestAtKeepsFirstPosition(t *testing.T) {
	err := NewError(ErrI010, token.Token{}, "m")
	err.At(token.Token{Line: 2, Column: 1}).At(token.Token{Line: 9, Column: 9})
	assert.Equal(t, 2, err.Token.Line)
}

func TestUnknownCodeName(t *testing.T) {
	assert.Equal(t, "X999", ErrorCode("X999").Name())
	assert.Equal(t, "GenericUnificationFailure", ErrI006.Name())
}
