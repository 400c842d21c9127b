package analyzer

import (
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// ResolveGenericFunc infers the result of calling method on recv with args.
// A return type without parameters is returned as declared; otherwise the
// formals are unified with the arguments and the bindings substituted into
// the return type, which fails if a parameter stays unbound. Methods with
// several signatures go through overload resolution.
func (s *Session) ResolveGenericFunc(recv typesystem.Type, method string, args []typesystem.Type) (typesystem.Type, error) {
	m, err := s.attribute(recv, method)
	if err != nil {
		return nil, err
	}
	return s.call(m, args, nil)
}

// ResolveGenericInit specializes a builtin container class from its
// constructor arguments: list/tuple/set/frozenset take the element type of
// their iterable, dict takes key and value types from pairs, a mapping or
// keywords, enumerate and zip wrap the element types of their sources.
func (s *Session) ResolveGenericInit(cls typesystem.TCon, args []typesystem.Type, kwargs []namedArg) (typesystem.Type, error) {
	switch cls.Name {
	case config.DictTypeName:
		return s.dictInit(args, kwargs)
	case config.EnumerateTypeName:
		elem := typesystem.Any
		if len(args) > 0 {
			var err error
			if elem, err = s.ElementType(args[0]); err != nil {
				return nil, err
			}
		}
		return containerOf(cls.Name, elem), nil
	case config.ZipTypeName:
		elems := make([]typesystem.Type, len(args))
		for i, a := range args {
			e, err := s.ElementType(a)
			if err != nil {
				return nil, err
			}
			elems[i] = e
		}
		return containerOf(cls.Name, typesystem.TTuple{Elements: elems}), nil
	}
	if len(args) == 0 {
		return containerOf(cls.Name, typesystem.Any), nil
	}
	if con, _, ok := typesystem.Nominal(args[0]); ok && con == cls {
		return args[0], nil
	}
	elem, err := s.ElementType(args[0])
	if err != nil {
		return nil, err
	}
	return containerOf(cls.Name, elem), nil
}

// dictInit builds dict[K, V] from dict(mapping), dict(pairs) and keywords.
func (s *Session) dictInit(args []typesystem.Type, kwargs []namedArg) (typesystem.Type, error) {
	var keys, values []typesystem.Type
	if len(args) > 0 {
		if kv, ok := s.mappingArgs(args[0]); ok {
			keys, values = append(keys, kv[0]), append(values, kv[1])
		} else {
			elem, err := s.ElementType(args[0])
			if err != nil {
				return nil, err
			}
			for i, arm := range unionArms(elem) {
				k, v, err := s.pairOf(arm, i)
				if err != nil {
					return nil, err
				}
				keys, values = append(keys, k), append(values, v)
			}
		}
	}
	for _, kw := range kwargs {
		if kw.Name != "" {
			keys, values = append(keys, strType), append(values, kw.Type)
			continue
		}
		if kv, ok := s.mappingArgs(kw.Type); ok {
			keys, values = append(keys, kv[0]), append(values, kv[1])
		}
	}
	if len(keys) == 0 {
		return dictOf(typesystem.Any, typesystem.Any), nil
	}
	return dictOf(s.Lattice.JoinAll(keys), s.Lattice.JoinAll(values)), nil
}

// mappingArgs views t as a Mapping and returns its key and value types.
func (s *Session) mappingArgs(t typesystem.Type) ([2]typesystem.Type, bool) {
	for _, target := range []typesystem.TCon{dictCon, {Name: "Mapping", Module: config.TypingModule}} {
		if args, ok := s.Lattice.Upcast(t, target); ok {
			return [2]typesystem.Type{argOr(args, 0), argOr(args, 1)}, true
		}
	}
	return [2]typesystem.Type{}, false
}

func argOr(args []typesystem.Type, i int) typesystem.Type {
	if i < len(args) && args[i] != nil {
		return args[i]
	}
	return typesystem.Any
}

// pairOf splits one element of a dict() update sequence into key and value.
// Arity 0 gives Any for both, arity 1 uses the one type for both, arity 2
// splits; any other arity is the runtime's "wrong length" failure. Elements
// of unknown arity use their own element type for both.
func (s *Session) pairOf(t typesystem.Type, index int) (typesystem.Type, typesystem.Type, error) {
	switch e := t.(type) {
	case typesystem.TAny:
		return typesystem.Any, typesystem.Any, nil
	case typesystem.TTuple:
		switch len(e.Elements) {
		case 0:
			return typesystem.Any, typesystem.Any, nil
		case 1:
			return e.Elements[0], e.Elements[0], nil
		case 2:
			return e.Elements[0], e.Elements[1], nil
		}
		cause := &diagnostics.DictArityError{Index: index, Arity: len(e.Elements)}
		return nil, nil, diagnostics.Wrap(diagnostics.ErrI007, zeroTok, cause, cause.Error())
	}
	elem, err := s.ElementType(t)
	if err != nil {
		return nil, nil, err
	}
	return elem, elem, nil
}

// ElementType is the type iteration over t yields: __iter__ resolved
// generically, then __next__ on the iterator.
func (s *Session) ElementType(t typesystem.Type) (typesystem.Type, error) {
	switch typ := t.(type) {
	case nil, typesystem.TAny:
		return typesystem.Any, nil
	case typesystem.TTuple:
		return s.Lattice.JoinAll(typ.Elements), nil
	case typesystem.TLiteral:
		return s.ElementType(s.Lattice.JoinAll(typ.Classes()))
	case typesystem.TUnion:
		parts := make([]typesystem.Type, 0, len(typ.Types))
		for _, arm := range typ.Types {
			e, err := s.ElementType(arm)
			if err != nil {
				return nil, err
			}
			parts = append(parts, e)
		}
		return s.Lattice.JoinAll(parts), nil
	}
	it, err := s.ResolveGenericFunc(t, config.IterMethod, nil)
	if err != nil {
		if diagnostics.HasCode(err, diagnostics.ErrI010) {
			return nil, diagnostics.Wrap(diagnostics.ErrI010, zeroTok, err, t.String()+" is not iterable")
		}
		return nil, err
	}
	if typesystem.IsAny(it) {
		return typesystem.Any, nil
	}
	return s.ResolveGenericFunc(it, config.NextMethod, nil)
}
