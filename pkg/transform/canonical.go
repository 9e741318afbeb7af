// Package transform implements whole-tree passes over pytd modules:
// canonical ordering, module renaming and the small queries the printer
// and the CLI need.
package transform

import (
	"slices"

	"github.com/leapstack-labs/stubkit/pkg/pytd"
	"github.com/leapstack-labs/stubkit/pkg/visit"
)

// CanonicalOrdering returns a copy of m with every unordered collection
// sorted, so that two equivalent trees print identically.
//
// Module members, class members, decorators, slots, signature exceptions
// and templates, and union members are sorted. Class parents keep their
// order since it determines method resolution. Overload order matters at
// call sites, so signatures are sorted only when sortSignatures is set.
//
// Applying the pass to its own output returns an equal tree.
func CanonicalOrdering(m *pytd.Module, sortSignatures bool) *pytd.Module {
	return visit.TransformModule(m, canonicalOrdering{sortSignatures: sortSignatures})
}

type canonicalOrdering struct {
	sortSignatures bool
}

func (c canonicalOrdering) Rewrite(_, n pytd.Node) pytd.Node {
	switch n := n.(type) {
	case *pytd.Module:
		if isSorted(n.Constants) && isSorted(n.TypeParams) && isSorted(n.Functions) &&
			isSorted(n.Classes) && isSorted(n.Aliases) {
			return n
		}
		cp := *n
		cp.Constants = sorted(n.Constants)
		cp.TypeParams = sorted(n.TypeParams)
		cp.Functions = sorted(n.Functions)
		cp.Classes = sorted(n.Classes)
		cp.Aliases = sorted(n.Aliases)
		return &cp

	case *pytd.Class:
		if isSorted(n.Methods) && isSorted(n.Constants) && isSorted(n.Classes) &&
			isSorted(n.Decorators) && slices.IsSorted(n.Slots) {
			return n
		}
		cp := *n
		cp.Methods = sorted(n.Methods)
		cp.Constants = sorted(n.Constants)
		cp.Classes = sorted(n.Classes)
		cp.Decorators = sorted(n.Decorators)
		if n.Slots != nil {
			cp.Slots = slices.Sorted(slices.Values(n.Slots))
		}
		return &cp

	case *pytd.Function:
		if !c.sortSignatures || isSorted(n.Signatures) {
			return n
		}
		cp := *n
		cp.Signatures = sorted(n.Signatures)
		return &cp

	case *pytd.Signature:
		if isSorted(n.Exceptions) && isSorted(n.Template) {
			return n
		}
		cp := *n
		cp.Exceptions = sorted(n.Exceptions)
		cp.Template = sorted(n.Template)
		return &cp

	case *pytd.UnionType:
		if isSorted(n.Types) {
			return n
		}
		return &pytd.UnionType{Types: sorted(n.Types)}
	}
	return n
}

func compareNodes[T pytd.Node](a, b T) int {
	return pytd.Compare(a, b)
}

func isSorted[T pytd.Node](xs []T) bool {
	return slices.IsSortedFunc(xs, compareNodes[T])
}

// sorted returns a sorted copy of xs. A nil slice stays nil.
func sorted[T pytd.Node](xs []T) []T {
	if xs == nil {
		return nil
	}
	out := slices.Clone(xs)
	slices.SortStableFunc(out, compareNodes[T])
	return out
}

// ClassTypeToNamedType replaces every ClassType in the tree with a
// NamedType of the same name.
func ClassTypeToNamedType(n pytd.Node) pytd.Node {
	return visit.Transform(n, visit.RewriteFunc(func(_, n pytd.Node) pytd.Node {
		if ct, ok := n.(*pytd.ClassType); ok {
			return &pytd.NamedType{Name: ct.Name}
		}
		return n
	}))
}
