package typesystem

import (
	"fmt"

	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/token"
)

// AttributeNotFoundError indicates an attribute is not certainly present on a type.
type AttributeNotFoundError struct {
	Type Type
	Name string
}

func (e *AttributeNotFoundError) Error() string {
	return fmt.Sprintf("%s has no attribute %q", typeString(e.Type), e.Name)
}

func errAttribute(t Type, name string) error {
	cause := &AttributeNotFoundError{Type: t, Name: name}
	return diagnostics.Wrap(diagnostics.ErrI010, token.Token{}, cause, cause.Error())
}

func errTypeVarAccess(tv TVar, name string) error {
	return diagnostics.Errorf(diagnostics.ErrI003, token.Token{},
		"cannot access attribute %q of unbound type parameter %s", name, tv.Name)
}

func errConflict(tv TVar, existing, t Type) error {
	return diagnostics.Errorf(diagnostics.ErrI006, token.Token{},
		"type parameter %s bound to %s, cannot rebind to %s", tv.Name, existing, t)
}

func errUnbound(names []string) error {
	cause := &diagnostics.UnboundParamsError{Params: names}
	return diagnostics.Wrap(diagnostics.ErrI006, token.Token{}, cause, cause.Error())
}

func errDepth(t1, t2 Type) error {
	return diagnostics.Errorf(diagnostics.ErrI006, token.Token{},
		"generic instantiation too deep while unifying %s with %s", typeString(t1), typeString(t2))
}
