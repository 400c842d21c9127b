package analyzer

import (
	"errors"
	"strings"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

func (w *walker) inferBinOp(e *ast.BinOp) (typesystem.Type, error) {
	l, err := w.infer(e.Left)
	if err != nil {
		return nil, err
	}
	r, err := w.infer(e.Right)
	if err != nil {
		return nil, err
	}
	return w.s.binary(e.Op, l, r)
}

// binary infers `l op r`. The left operand's method is used when it accepts
// r, otherwise the right operand's reflected method. Unions are split and
// the per-arm results joined.
func (s *Session) binary(op string, l, r typesystem.Type) (typesystem.Type, error) {
	if typesystem.IsAny(l) || typesystem.IsAny(r) {
		return typesystem.Any, nil
	}
	if u, ok := l.(typesystem.TUnion); ok {
		return s.joinEach(u.Types, func(arm typesystem.Type) (typesystem.Type, error) { return s.binary(op, arm, r) })
	}
	if u, ok := r.(typesystem.TUnion); ok {
		return s.joinEach(u.Types, func(arm typesystem.Type) (typesystem.Type, error) { return s.binary(op, l, arm) })
	}
	methods, ok := config.BinaryDunders[op]
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrI009, zeroTok, "unknown operator %q", op)
	}
	t, ok, ferr := s.operand(l, methods[0], r)
	if ok {
		return t, nil
	}
	t, ok, rerr := s.operand(r, methods[1], l)
	if ok {
		return t, nil
	}
	if rerr != nil && !missingAttribute(rerr) {
		return nil, rerr
	}
	if ferr != nil && !missingAttribute(ferr) {
		return nil, ferr
	}
	return nil, diagnostics.Errorf(diagnostics.ErrI010, zeroTok,
		"unsupported operand types for %s: %s and %s", op, l, r)
}

// operand calls recv.method(arg) when some signature of the method accepts
// arg. ok is false when the method is missing or rejects arg.
func (s *Session) operand(recv typesystem.Type, method string, arg typesystem.Type) (typesystem.Type, bool, error) {
	m, err := s.attribute(recv, method)
	if err != nil {
		return nil, false, err
	}
	if bound, isMethod := m.(typesystem.TMethod); isMethod && !s.accepts(bound, arg) {
		return nil, false, nil
	}
	t, err := s.call(m, []typesystem.Type{arg}, nil)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (s *Session) accepts(m typesystem.TMethod, arg typesystem.Type) bool {
	for _, sig := range m.Func.Overloads {
		if _, ok := s.matchSignature(m.Func, sig, &m, []typesystem.Type{arg}, nil); ok {
			return true
		}
	}
	return false
}

// inplace infers `l op= r`: __iop__ when l defines it, else the binary operator.
func (s *Session) inplace(op string, l, r typesystem.Type) (typesystem.Type, error) {
	if methods, ok := config.BinaryDunders[op]; ok && !typesystem.IsAny(l) {
		name := "__i" + strings.TrimPrefix(methods[0], "__")
		if t, err := s.callMember(l, name, []typesystem.Type{r}); err == nil {
			return t, nil
		} else if !missingAttribute(err) {
			s.logger.Printf("inplace %s on %s: %v", name, l, err)
		}
	}
	return s.binary(op, l, r)
}

func (s *Session) joinEach(arms []typesystem.Type, f func(typesystem.Type) (typesystem.Type, error)) (typesystem.Type, error) {
	parts := make([]typesystem.Type, 0, len(arms))
	for _, arm := range arms {
		t, err := f(arm)
		if err != nil {
			return nil, err
		}
		parts = append(parts, t)
	}
	return s.Lattice.JoinAll(parts), nil
}

func missingAttribute(err error) bool {
	var nf *typesystem.AttributeNotFoundError
	return errors.As(err, &nf)
}

func (w *walker) inferUnaryOp(e *ast.UnaryOp) (typesystem.Type, error) {
	t, err := w.infer(e.Operand)
	if err != nil {
		return nil, err
	}
	if e.Op == "not" {
		return boolType, nil
	}
	if typesystem.IsAny(t) {
		return typesystem.Any, nil
	}
	method, ok := config.UnaryDunders[e.Op]
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrI009, e.Token, "unknown unary operator %q", e.Op)
	}
	return w.s.joinEach(unionArms(t), func(arm typesystem.Type) (typesystem.Type, error) {
		r, err := w.s.callMember(arm, method, nil)
		if missingAttribute(err) {
			return nil, diagnostics.Wrap(diagnostics.ErrI010, zeroTok, err, "bad operand type for unary "+e.Op+": "+arm.String())
		}
		return r, err
	})
}

// inferBoolOp joins the operands: `a or b` evaluates to one of them.
func (w *walker) inferBoolOp(e *ast.BoolOp) (typesystem.Type, error) {
	parts := make([]typesystem.Type, 0, len(e.Values))
	for _, v := range e.Values {
		t, err := w.infer(v)
		if err != nil {
			return nil, err
		}
		parts = append(parts, t)
	}
	return w.s.Lattice.JoinAll(parts), nil
}

// inferCompare infers a comparison chain. Membership and identity tests are
// bool; rich comparisons use the declared result of the dunder, or bool when
// the left operand does not declare one.
func (w *walker) inferCompare(e *ast.Compare) (typesystem.Type, error) {
	left, err := w.infer(e.Left)
	if err != nil {
		return nil, err
	}
	parts := make([]typesystem.Type, 0, len(e.Ops))
	for i, op := range e.Ops {
		right, err := w.infer(e.Comparators[i])
		if err != nil {
			return nil, err
		}
		method, rich := config.CompareDunders[op]
		switch {
		case !rich:
			parts = append(parts, boolType)
		case typesystem.IsAny(left):
			parts = append(parts, typesystem.Any)
		default:
			t, err := w.s.callMember(left, method, []typesystem.Type{right})
			if err != nil {
				w.s.logger.Printf("compare %s %s %s: %v", left, op, right, err)
				t = boolType
			}
			parts = append(parts, t)
		}
		left = right
	}
	return w.s.Lattice.JoinAll(parts), nil
}
