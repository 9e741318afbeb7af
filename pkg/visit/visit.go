// Package visit provides traversal and rewriting of pytd trees.
package visit

import (
	"fmt"

	"github.com/leapstack-labs/stubkit/pkg/pytd"
)

// Hooks receives nodes during Walk. Enter is called before a node's
// children; returning false skips them and the matching Leave.
type Hooks interface {
	Enter(n pytd.Node) bool
	Leave(n pytd.Node)
}

// HookFuncs adapts a pair of functions to Hooks. Either may be nil.
type HookFuncs struct {
	OnEnter func(n pytd.Node) bool
	OnLeave func(n pytd.Node)
}

// Enter implements Hooks.
func (h HookFuncs) Enter(n pytd.Node) bool {
	if h.OnEnter == nil {
		return true
	}
	return h.OnEnter(n)
}

// Leave implements Hooks.
func (h HookFuncs) Leave(n pytd.Node) {
	if h.OnLeave != nil {
		h.OnLeave(n)
	}
}

// Walk traverses a tree depth-first, children in field declaration order.
func Walk(n pytd.Node, h Hooks) {
	if n == nil {
		return
	}
	if !h.Enter(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, h)
	}
	h.Leave(n)
}

// Inspect calls fn for every node in pre-order.
// If fn returns false, the node's children are skipped.
func Inspect(n pytd.Node, fn func(n pytd.Node) bool) {
	Walk(n, HookFuncs{OnEnter: fn})
}

// Children returns the direct children of n that are set, in the order
// Walk and Transform visit them.
func Children(n pytd.Node) []pytd.Node {
	var out []pytd.Node
	add := func(c pytd.Node) {
		if c != nil {
			out = append(out, c)
		}
	}

	switch n := n.(type) {
	case *pytd.Module:
		out = appendAll(out, n.Constants)
		out = appendAll(out, n.TypeParams)
		out = appendAll(out, n.Classes)
		out = appendAll(out, n.Functions)
		out = appendAll(out, n.Aliases)

	case *pytd.Class:
		if n.Metaclass != nil {
			add(n.Metaclass)
		}
		out = appendAll(out, n.Parents)
		out = appendAll(out, n.Methods)
		out = appendAll(out, n.Constants)
		out = appendAll(out, n.Classes)
		out = appendAll(out, n.Decorators)
		out = appendAll(out, n.Template)

	case *pytd.Function:
		out = appendAll(out, n.Signatures)

	case *pytd.Signature:
		out = appendAll(out, n.Params)
		if n.StarArgs != nil {
			add(n.StarArgs)
		}
		if n.StarStarArgs != nil {
			add(n.StarStarArgs)
		}
		if n.ReturnType != nil {
			add(n.ReturnType)
		}
		out = appendAll(out, n.Exceptions)
		out = appendAll(out, n.Template)

	case *pytd.Parameter:
		if n.Type != nil {
			add(n.Type)
		}
		if n.MutatedType != nil {
			add(n.MutatedType)
		}

	case *pytd.Constant:
		if n.Type != nil {
			add(n.Type)
		}

	case *pytd.Alias:
		if n.Type != nil {
			add(n.Type)
		}

	case *pytd.TemplateItem:
		if n.Param != nil {
			add(n.Param)
		}

	case *pytd.TypeParameter:
		out = appendAll(out, n.Constraints)
		if n.Bound != nil {
			add(n.Bound)
		}

	case *pytd.GenericType:
		add(n.Base)
		out = appendAll(out, n.Params)

	case *pytd.TupleType:
		add(n.Base)
		out = appendAll(out, n.Params)

	case *pytd.CallableType:
		add(n.Base)
		out = appendAll(out, n.Params)

	case *pytd.UnionType:
		out = appendAll(out, n.Types)

	case *pytd.IntersectionType:
		out = appendAll(out, n.Types)

	case *pytd.NamedType, *pytd.ClassType, *pytd.AnythingType, *pytd.NothingType,
		*pytd.LiteralType, *pytd.ModuleRef:
		// Leaf nodes
	}
	return out
}

func appendAll[T pytd.Node](out []pytd.Node, xs []T) []pytd.Node {
	for _, x := range xs {
		out = append(out, x)
	}
	return out
}

// Rewriter rewrites nodes bottom-up during Transform.
//
// Rewrite receives the node as it was before traversal (orig) and the node
// with its children already rewritten (n). When no child changed, n is orig.
// Returning n leaves the node as is.
//
// A Rewriter that also implements Hooks has Enter called before a node's
// children are rewritten and Leave after the node itself. When Enter
// returns false the node is kept unchanged and Rewrite is not called.
type Rewriter interface {
	Rewrite(orig, n pytd.Node) pytd.Node
}

// RewriteFunc adapts a function to Rewriter.
type RewriteFunc func(orig, n pytd.Node) pytd.Node

// Rewrite implements Rewriter.
func (f RewriteFunc) Rewrite(orig, n pytd.Node) pytd.Node { return f(orig, n) }

// Transform rewrites a tree in post-order and returns the new root.
// Subtrees the rewriter leaves alone are shared with the input; only nodes
// on a changed path are copied. The input is never modified.
//
// Transform panics when a rewrite puts a node of the wrong kind into a
// field, e.g. a Function into a class's Parents.
func Transform(n pytd.Node, r Rewriter) pytd.Node {
	if n == nil {
		return nil
	}
	hooks, _ := r.(Hooks)
	if hooks != nil && !hooks.Enter(n) {
		return n
	}
	out := r.Rewrite(n, rebuild(n, r))
	if hooks != nil {
		hooks.Leave(n)
	}
	return out
}

// TransformModule is Transform for a module root.
func TransformModule(m *pytd.Module, r Rewriter) *pytd.Module {
	return cast[*pytd.Module](Transform(m, r), "module")
}

// rebuild rewrites the children of n and returns n itself when none of
// them changed, or a shallow copy carrying the new children.
func rebuild(n pytd.Node, r Rewriter) pytd.Node {
	switch n := n.(type) {
	case *pytd.Module:
		constants, c1 := rewriteList(n.Constants, r, "Module.Constants")
		typeParams, c2 := rewriteList(n.TypeParams, r, "Module.TypeParams")
		classes, c3 := rewriteList(n.Classes, r, "Module.Classes")
		functions, c4 := rewriteList(n.Functions, r, "Module.Functions")
		aliases, c5 := rewriteList(n.Aliases, r, "Module.Aliases")
		if !(c1 || c2 || c3 || c4 || c5) {
			return n
		}
		cp := *n
		cp.Constants, cp.TypeParams, cp.Classes, cp.Functions, cp.Aliases =
			constants, typeParams, classes, functions, aliases
		return &cp

	case *pytd.Class:
		metaclass, c1 := rewriteOpt(n.Metaclass, r, "Class.Metaclass")
		parents, c2 := rewriteList(n.Parents, r, "Class.Parents")
		methods, c3 := rewriteList(n.Methods, r, "Class.Methods")
		constants, c4 := rewriteList(n.Constants, r, "Class.Constants")
		classes, c5 := rewriteList(n.Classes, r, "Class.Classes")
		decorators, c6 := rewriteList(n.Decorators, r, "Class.Decorators")
		template, c7 := rewriteList(n.Template, r, "Class.Template")
		if !(c1 || c2 || c3 || c4 || c5 || c6 || c7) {
			return n
		}
		cp := *n
		cp.Metaclass, cp.Parents, cp.Methods, cp.Constants = metaclass, parents, methods, constants
		cp.Classes, cp.Decorators, cp.Template = classes, decorators, template
		return &cp

	case *pytd.Function:
		signatures, changed := rewriteList(n.Signatures, r, "Function.Signatures")
		if !changed {
			return n
		}
		cp := *n
		cp.Signatures = signatures
		return &cp

	case *pytd.Signature:
		params, c1 := rewriteList(n.Params, r, "Signature.Params")
		starArgs, c2 := rewriteParam(n.StarArgs, r, "Signature.StarArgs")
		starStarArgs, c3 := rewriteParam(n.StarStarArgs, r, "Signature.StarStarArgs")
		ret, c4 := rewriteOpt(n.ReturnType, r, "Signature.ReturnType")
		exceptions, c5 := rewriteList(n.Exceptions, r, "Signature.Exceptions")
		template, c6 := rewriteList(n.Template, r, "Signature.Template")
		if !(c1 || c2 || c3 || c4 || c5 || c6) {
			return n
		}
		cp := *n
		cp.Params, cp.StarArgs, cp.StarStarArgs = params, starArgs, starStarArgs
		cp.ReturnType, cp.Exceptions, cp.Template = ret, exceptions, template
		return &cp

	case *pytd.Parameter:
		typ, c1 := rewriteOpt(n.Type, r, "Parameter.Type")
		mutated, c2 := rewriteOpt(n.MutatedType, r, "Parameter.MutatedType")
		if !c1 && !c2 {
			return n
		}
		cp := *n
		cp.Type, cp.MutatedType = typ, mutated
		return &cp

	case *pytd.Constant:
		typ, changed := rewriteOpt(n.Type, r, "Constant.Type")
		if !changed {
			return n
		}
		cp := *n
		cp.Type = typ
		return &cp

	case *pytd.Alias:
		typ, changed := rewriteOpt(n.Type, r, "Alias.Type")
		if !changed {
			return n
		}
		cp := *n
		cp.Type = typ
		return &cp

	case *pytd.TemplateItem:
		if n.Param == nil {
			return n
		}
		out := Transform(n.Param, r)
		if out == pytd.Node(n.Param) {
			return n
		}
		return &pytd.TemplateItem{Param: cast[*pytd.TypeParameter](out, "TemplateItem.Param")}

	case *pytd.TypeParameter:
		constraints, c1 := rewriteList(n.Constraints, r, "TypeParameter.Constraints")
		bound, c2 := rewriteOpt(n.Bound, r, "TypeParameter.Bound")
		if !c1 && !c2 {
			return n
		}
		cp := *n
		cp.Constraints, cp.Bound = constraints, bound
		return &cp

	case *pytd.GenericType:
		base, c1 := rewriteOpt(n.Base, r, "GenericType.Base")
		params, c2 := rewriteList(n.Params, r, "GenericType.Params")
		if !c1 && !c2 {
			return n
		}
		return &pytd.GenericType{Base: base, Params: params}

	case *pytd.TupleType:
		base, c1 := rewriteOpt(n.Base, r, "TupleType.Base")
		params, c2 := rewriteList(n.Params, r, "TupleType.Params")
		if !c1 && !c2 {
			return n
		}
		return &pytd.TupleType{Base: base, Params: params}

	case *pytd.CallableType:
		base, c1 := rewriteOpt(n.Base, r, "CallableType.Base")
		params, c2 := rewriteList(n.Params, r, "CallableType.Params")
		if !c1 && !c2 {
			return n
		}
		return &pytd.CallableType{Base: base, Params: params}

	case *pytd.UnionType:
		types, changed := rewriteList(n.Types, r, "UnionType.Types")
		if !changed {
			return n
		}
		return &pytd.UnionType{Types: types}

	case *pytd.IntersectionType:
		types, changed := rewriteList(n.Types, r, "IntersectionType.Types")
		if !changed {
			return n
		}
		return &pytd.IntersectionType{Types: types}
	}
	return n
}

// rewriteList transforms each element and returns the original slice when
// nothing changed.
func rewriteList[T pytd.Node](xs []T, r Rewriter, field string) ([]T, bool) {
	var out []T
	for i, x := range xs {
		y := Transform(x, r)
		if out == nil {
			if y == pytd.Node(x) {
				continue
			}
			out = make([]T, len(xs))
			copy(out, xs[:i])
		}
		out[i] = cast[T](y, field)
	}
	if out == nil {
		return xs, false
	}
	return out, true
}

// rewriteOpt transforms an optional interface-typed field. A nil field stays
// nil; a rewrite may clear the field by returning nil.
func rewriteOpt[T pytd.Node](x T, r Rewriter, field string) (T, bool) {
	var zero T
	if pytd.Node(x) == nil {
		return x, false
	}
	y := Transform(x, r)
	if y == pytd.Node(x) {
		return x, false
	}
	if y == nil {
		return zero, true
	}
	return cast[T](y, field), true
}

func rewriteParam(p *pytd.Parameter, r Rewriter, field string) (*pytd.Parameter, bool) {
	if p == nil {
		return nil, false
	}
	y := Transform(p, r)
	if y == pytd.Node(p) {
		return p, false
	}
	if y == nil {
		return nil, true
	}
	return cast[*pytd.Parameter](y, field), true
}

func cast[T pytd.Node](n pytd.Node, field string) T {
	t, ok := n.(T)
	if !ok {
		panic(fmt.Sprintf("visit: rewrite of %s produced %T", field, n))
	}
	return t
}
