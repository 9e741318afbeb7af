package transform

import (
	"github.com/leapstack-labs/stubkit/pkg/pytd"
	"github.com/leapstack-labs/stubkit/pkg/visit"
)

// CollectTypeParameters returns every type parameter under n in pre-order.
// When several share a name, the first one found wins.
func CollectTypeParameters(n pytd.Node) []*pytd.TypeParameter {
	var out []*pytd.TypeParameter
	seen := make(map[string]bool)
	visit.Inspect(n, func(n pytd.Node) bool {
		if tp, ok := n.(*pytd.TypeParameter); ok && !seen[tp.Name] {
			seen[tp.Name] = true
			out = append(out, tp)
		}
		return true
	})
	return out
}

// KeyFunc maps a class or a parent type to a key. Returning false leaves
// the node out of the result.
type KeyFunc[K comparable] func(n pytd.Node) (K, bool)

// ExtractSuperClasses maps each class of m, nested classes included, to the
// keys of its direct parents, in declaration order. Parents without a key
// are skipped.
func ExtractSuperClasses[K comparable](m *pytd.Module, key KeyFunc[K]) map[K][]K {
	out := make(map[K][]K, len(m.Classes))
	visit.Inspect(m, func(n pytd.Node) bool {
		cls, ok := n.(*pytd.Class)
		if !ok {
			return true
		}
		k, ok := key(cls)
		if !ok {
			return true
		}
		parents := make([]K, 0, len(cls.Parents))
		for _, p := range cls.Parents {
			if pk, ok := key(p); ok {
				parents = append(parents, pk)
			}
		}
		out[k] = parents
		return true
	})
	return out
}

// ExtractSuperClassNames is ExtractSuperClasses keyed by name. Generic
// parents are keyed by their base name.
func ExtractSuperClassNames(m *pytd.Module) map[string][]string {
	return ExtractSuperClasses[string](m, nameKey)
}

func nameKey(n pytd.Node) (string, bool) {
	switch n := n.(type) {
	case *pytd.Class:
		return n.Name, true
	case *pytd.NamedType:
		return n.Name, true
	case *pytd.ClassType:
		return n.Name, true
	case *pytd.GenericType, *pytd.TupleType, *pytd.CallableType:
		name := n.(pytd.Named).GetName()
		return name, name != ""
	}
	return "", false
}
