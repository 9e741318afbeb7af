package pytd

import (
	"cmp"
	"strings"
)

// Compare orders two nodes. Nodes of different kinds are ordered by kind
// name; nodes of the same kind compare their fields in declaration order,
// lists lexicographically. A nil node sorts before any other node.
func Compare(a, b Node) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ka, kb := a.Kind(), b.Kind(); ka != kb {
		return strings.Compare(ka, kb)
	}
	fa, fb := fields(a), fields(b)
	for i := range fa {
		if c := compareValue(fa[i], fb[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Equal reports whether two trees are structurally identical.
func Equal(a, b Node) bool {
	return Compare(a, b) == 0
}

// slots distinguishes "no __slots__" from an empty __slots__ list.
type slots struct {
	present bool
	names   []string
}

func fields(n Node) []any {
	switch n := n.(type) {
	case *NamedType:
		return []any{n.Name}
	case *ClassType:
		return []any{n.Name}
	case *AnythingType, *NothingType:
		return nil
	case *TypeParameter:
		return []any{n.Name, list(n.Constraints), n.Bound, n.Scope}
	case *GenericType:
		return []any{n.Base, list(n.Params)}
	case *TupleType:
		return []any{n.Base, list(n.Params)}
	case *CallableType:
		return []any{n.Base, list(n.Params)}
	case *UnionType:
		return []any{list(n.Types)}
	case *IntersectionType:
		return []any{list(n.Types)}
	case *LiteralType:
		return []any{int64(n.Value.Kind), n.Value.Int, n.Value.Str, n.Value.Bool}
	case *Module:
		return []any{n.Name, list(n.Constants), list(n.TypeParams), list(n.Classes),
			list(n.Functions), list(n.Aliases)}
	case *Constant:
		return []any{n.Name, n.Type}
	case *Alias:
		return []any{n.Name, n.Type}
	case *ModuleRef:
		return []any{n.Name, n.ModuleName}
	case *TemplateItem:
		return []any{typeParamOrNil(n.Param)}
	case *Class:
		return []any{n.Name, n.Metaclass, list(n.Parents), list(n.Methods), list(n.Constants),
			list(n.Classes), list(n.Decorators), slots{n.Slots != nil, n.Slots}, list(n.Template)}
	case *Function:
		return []any{n.Name, list(n.Signatures), int64(n.MethodKind), n.IsAbstract, n.IsCoroutine}
	case *Signature:
		return []any{list(n.Params), paramOrNil(n.StarArgs), paramOrNil(n.StarStarArgs),
			n.ReturnType, list(n.Exceptions), list(n.Template)}
	case *Parameter:
		return []any{n.Name, n.Type, n.Optional, n.KwOnly, n.MutatedType}
	}
	return nil
}

func list[T Node](xs []T) []Node {
	out := make([]Node, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func paramOrNil(p *Parameter) Node {
	if p == nil {
		return nil
	}
	return p
}

func typeParamOrNil(p *TypeParameter) Node {
	if p == nil {
		return nil
	}
	return p
}

func compareValue(a, b any) int {
	switch x := a.(type) {
	case nil:
		if b == nil {
			return 0
		}
		return -1
	case string:
		return strings.Compare(x, b.(string))
	case int64:
		return cmp.Compare(x, b.(int64))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case []Node:
		y := b.([]Node)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := Compare(x[i], y[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(x), len(y))
	case slots:
		y := b.(slots)
		if x.present != y.present {
			if !x.present {
				return -1
			}
			return 1
		}
		for i := 0; i < len(x.names) && i < len(y.names); i++ {
			if c := strings.Compare(x.names[i], y.names[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(x.names), len(y.names))
	case Node:
		if b == nil {
			return 1
		}
		return Compare(x, b.(Node))
	}
	return 0
}
