package typesystem

import "github.com/funvibe/stubinfer/internal/config"

// IsSelf reports whether t is the typing.Self placeholder.
func IsSelf(t Type) bool {
	c, ok := t.(TCon)
	return ok && c.Name == config.SelfName && c.Module == config.TypingModule
}

// ReplaceSelf replaces all occurrences of typing.Self with the given receiver type.
// Signatures declared as returning Self resolve to the instance they were called on.
func ReplaceSelf(t Type, replacement Type) Type {
	if t == nil {
		return nil
	}
	switch typ := t.(type) {
	case TCon:
		if IsSelf(typ) {
			return replacement
		}
		return typ
	case TApp:
		newArgs := make([]Type, len(typ.Args))
		for i, arg := range typ.Args {
			newArgs[i] = ReplaceSelf(arg, replacement)
		}
		return TApp{Constructor: typ.Constructor, Args: newArgs}
	case TTuple:
		newElements := make([]Type, len(typ.Elements))
		for i, e := range typ.Elements {
			newElements[i] = ReplaceSelf(e, replacement)
		}
		return TTuple{Elements: newElements}
	case TUnion:
		newTypes := make([]Type, len(typ.Types))
		for i, a := range typ.Types {
			newTypes[i] = ReplaceSelf(a, replacement)
		}
		return NormalizeUnion(newTypes)
	case TType:
		return TType{Type: ReplaceSelf(typ.Type, replacement)}
	case TFunc:
		out := TFunc{Name: typ.Name, Decorators: typ.Decorators, Overloads: make([]Signature, len(typ.Overloads))}
		for i, sig := range typ.Overloads {
			ns := Signature{Params: make([]Param, len(sig.Params)), Def: sig.Def}
			for j, p := range sig.Params {
				ns.Params[j] = p
				ns.Params[j].Type = ReplaceSelf(p.Type, replacement)
			}
			ns.Return = ReplaceSelf(sig.Return, replacement)
			out.Overloads[i] = ns
		}
		return out
	default:
		return t
	}
}
