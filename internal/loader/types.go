package loader

import (
	"strconv"

	"github.com/leapstack-labs/stubkit/pkg/pytd"
	"gopkg.in/yaml.v3"
)

// Type expressions are written compactly:
//
//	builtins.int                              named type
//	any, nothing                              Any and the bottom type
//	{named: any}                              named type whose name is a keyword
//	{class: m.A}                              resolved class reference
//	{generic: builtins.list, args: [...]}     parameterized type
//	{tuple: [...]}                            heterogeneous tuple
//	{callable: [...], returns: ...}           callable with argument list
//	{union: [...]}, {intersection: [...]}
//	{literal: 1}, {literal: {bytes: "x"}}     literal types
//	{typevar: T, bound: ..., constraints: [...], scope: m.f}
const (
	keyAny     = "any"
	keyNothing = "nothing"

	defaultTupleBase    = "builtins.tuple"
	defaultCallableBase = "typing.Callable"
)

// typeForms lists each mapping form with the keys it accepts besides its own.
var typeForms = map[string][]string{
	"named":        nil,
	"class":        nil,
	"generic":      {"args"},
	"tuple":        {"base"},
	"callable":     {"returns", "base"},
	"union":        nil,
	"intersection": nil,
	"literal":      nil,
	"typevar":      {"bound", "constraints", "scope"},
}

// typeExpr is a type expression field in a document.
type typeExpr struct {
	pytd.Type
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *typeExpr) UnmarshalYAML(n *yaml.Node) error {
	typ, err := decodeType(n)
	if err != nil {
		return err
	}
	t.Type = typ
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t typeExpr) MarshalYAML() (any, error) {
	return encodeType(t.Type)
}

// baseExpr is a class base. Besides types it admits {module: name}, which
// class construction rejects.
type baseExpr struct {
	pytd.Node
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *baseExpr) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		if m := mappingValues(n); m["module"] != nil {
			if len(n.Content) != 2 {
				return decodeErrorf(n.Line, "module base takes no other keys")
			}
			name := m["module"].Value
			b.Node = &pytd.ModuleRef{Name: name, ModuleName: name}
			return nil
		}
	}
	typ, err := decodeType(n)
	if err != nil {
		return err
	}
	b.Node = typ
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (b baseExpr) MarshalYAML() (any, error) {
	if ref, ok := b.Node.(*pytd.ModuleRef); ok {
		return mappingNode("module", scalarNode(ref.ModuleName)), nil
	}
	t, _ := b.Node.(pytd.Type)
	return encodeType(t)
}

// templateExpr is a template item: a type variable name or a typevar mapping.
type templateExpr struct {
	Param *pytd.TypeParameter
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *templateExpr) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		t.Param = &pytd.TypeParameter{Name: n.Value}
		return nil
	}
	typ, err := decodeType(n)
	if err != nil {
		return err
	}
	tp, ok := typ.(*pytd.TypeParameter)
	if !ok {
		return decodeErrorf(n.Line, "template item must be a type variable, got %s", typ.Kind())
	}
	t.Param = tp
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t templateExpr) MarshalYAML() (any, error) {
	if p := t.Param; p.Bound == nil && len(p.Constraints) == 0 && p.Scope == "" {
		return scalarNode(p.Name), nil
	}
	return encodeType(t.Param)
}

func decodeType(n *yaml.Node) (pytd.Type, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() != "!!str" {
			return nil, decodeErrorf(n.Line, "expected a type name, got %q", n.Value)
		}
		switch n.Value {
		case keyAny:
			return &pytd.AnythingType{}, nil
		case keyNothing:
			return &pytd.NothingType{}, nil
		case "":
			return nil, decodeErrorf(n.Line, "empty type name")
		}
		return &pytd.NamedType{Name: n.Value}, nil
	case yaml.MappingNode:
		return decodeTypeMapping(n)
	case yaml.AliasNode:
		return decodeType(n.Alias)
	}
	return nil, decodeErrorf(n.Line, "expected a type expression")
}

func decodeTypeMapping(n *yaml.Node) (pytd.Type, error) {
	fields := mappingValues(n)
	var form string
	for i := 0; i < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if _, ok := typeForms[key]; ok {
			if form != "" {
				return nil, decodeErrorf(n.Line, "type expression has both %q and %q", form, key)
			}
			form = key
		}
	}
	if form == "" {
		if len(n.Content) == 0 {
			return nil, decodeErrorf(n.Line, "empty type expression")
		}
		return nil, &UnknownFieldError{Line: n.Content[0].Line, Field: n.Content[0].Value}
	}
	allowed := map[string]bool{form: true}
	for _, k := range typeForms[form] {
		allowed[k] = true
	}
	for i := 0; i < len(n.Content); i += 2 {
		if key := n.Content[i]; !allowed[key.Value] {
			return nil, &UnknownFieldError{Line: key.Line, Field: key.Value}
		}
	}

	value := fields[form]
	switch form {
	case "named":
		return &pytd.NamedType{Name: value.Value}, nil

	case "class":
		return &pytd.ClassType{Name: value.Value}, nil

	case "generic":
		base, err := decodeType(value)
		if err != nil {
			return nil, err
		}
		args, err := decodeTypeList(fields["args"])
		if err != nil {
			return nil, err
		}
		return &pytd.GenericType{Base: base, Params: args}, nil

	case "tuple":
		base, err := decodeBase(fields["base"], defaultTupleBase)
		if err != nil {
			return nil, err
		}
		params, err := decodeTypeList(value)
		if err != nil {
			return nil, err
		}
		return &pytd.TupleType{Base: base, Params: params}, nil

	case "callable":
		base, err := decodeBase(fields["base"], defaultCallableBase)
		if err != nil {
			return nil, err
		}
		args, err := decodeTypeList(value)
		if err != nil {
			return nil, err
		}
		if fields["returns"] == nil {
			return nil, decodeErrorf(n.Line, "callable needs a returns type")
		}
		ret, err := decodeType(fields["returns"])
		if err != nil {
			return nil, err
		}
		return &pytd.CallableType{Base: base, Params: append(args, ret)}, nil

	case "union":
		types, err := decodeTypeList(value)
		if err != nil {
			return nil, err
		}
		return &pytd.UnionType{Types: types}, nil

	case "intersection":
		types, err := decodeTypeList(value)
		if err != nil {
			return nil, err
		}
		return &pytd.IntersectionType{Types: types}, nil

	case "literal":
		v, err := decodePyval(value)
		if err != nil {
			return nil, err
		}
		return v.ToLiteral()

	case "typevar":
		tp := &pytd.TypeParameter{Name: value.Value}
		if s := fields["scope"]; s != nil {
			tp.Scope = s.Value
		}
		if b := fields["bound"]; b != nil {
			bound, err := decodeType(b)
			if err != nil {
				return nil, err
			}
			tp.Bound = bound
		}
		constraints, err := decodeTypeList(fields["constraints"])
		if err != nil {
			return nil, err
		}
		tp.Constraints = constraints
		return tp, nil
	}
	return nil, decodeErrorf(n.Line, "unsupported type form %q", form)
}

func decodeBase(n *yaml.Node, def string) (pytd.Type, error) {
	if n == nil {
		return &pytd.NamedType{Name: def}, nil
	}
	return decodeType(n)
}

func decodeTypeList(n *yaml.Node) ([]pytd.Type, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, decodeErrorf(n.Line, "expected a list of types")
	}
	out := make([]pytd.Type, 0, len(n.Content))
	for _, item := range n.Content {
		t, err := decodeType(item)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// decodePyval reads a constant written in a type position.
func decodePyval(n *yaml.Node) (pytd.Pyval, error) {
	if n.Kind == yaml.MappingNode {
		m := mappingValues(n)
		if len(n.Content) != 2 || m["bytes"] == nil {
			return pytd.Pyval{}, decodeErrorf(n.Line, "literal mapping must be {bytes: ...}")
		}
		return pytd.Pyval{Kind: pytd.PyvalBytes, Str: m["bytes"].Value}, nil
	}
	if n.Kind != yaml.ScalarNode {
		return pytd.Pyval{}, decodeErrorf(n.Line, "expected a literal value")
	}
	switch n.ShortTag() {
	case "!!null":
		return pytd.Pyval{Kind: pytd.PyvalNone}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return pytd.Pyval{}, decodeErrorf(n.Line, "invalid bool %q", n.Value)
		}
		return pytd.Pyval{Kind: pytd.PyvalBool, Bool: b}, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return pytd.Pyval{}, decodeErrorf(n.Line, "invalid int %q", n.Value)
		}
		return pytd.Pyval{Kind: pytd.PyvalInt, Int: i}, nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return pytd.Pyval{}, decodeErrorf(n.Line, "invalid float %q", n.Value)
		}
		return pytd.Pyval{Kind: pytd.PyvalFloat, Float: f}, nil
	}
	return pytd.Pyval{Kind: pytd.PyvalStr, Str: n.Value}, nil
}

func encodeType(t pytd.Type) (*yaml.Node, error) {
	switch t := t.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *pytd.NamedType:
		if t.Name == keyAny || t.Name == keyNothing {
			return mappingNode("named", scalarNode(t.Name)), nil
		}
		return scalarNode(t.Name), nil
	case *pytd.ClassType:
		return mappingNode("class", scalarNode(t.Name)), nil
	case *pytd.AnythingType:
		return scalarNode(keyAny), nil
	case *pytd.NothingType:
		return scalarNode(keyNothing), nil
	case *pytd.GenericType:
		base, err := encodeType(t.Base)
		if err != nil {
			return nil, err
		}
		args, err := encodeTypeList(t.Params)
		if err != nil {
			return nil, err
		}
		return mappingNode("generic", base, "args", args), nil
	case *pytd.TupleType:
		params, err := encodeTypeList(t.Params)
		if err != nil {
			return nil, err
		}
		n := mappingNode("tuple", params)
		return withBase(n, t.Base, defaultTupleBase)
	case *pytd.CallableType:
		args, err := encodeTypeList(t.Args())
		if err != nil {
			return nil, err
		}
		ret, err := encodeType(t.Ret())
		if err != nil {
			return nil, err
		}
		n := mappingNode("callable", args, "returns", ret)
		return withBase(n, t.Base, defaultCallableBase)
	case *pytd.UnionType:
		types, err := encodeTypeList(t.Types)
		if err != nil {
			return nil, err
		}
		return mappingNode("union", types), nil
	case *pytd.IntersectionType:
		types, err := encodeTypeList(t.Types)
		if err != nil {
			return nil, err
		}
		return mappingNode("intersection", types), nil
	case *pytd.LiteralType:
		return mappingNode("literal", encodeLiteral(t.Value)), nil
	case *pytd.TypeParameter:
		n := mappingNode("typevar", scalarNode(t.Name))
		if t.Bound != nil {
			bound, err := encodeType(t.Bound)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, scalarNode("bound"), bound)
		}
		if len(t.Constraints) > 0 {
			constraints, err := encodeTypeList(t.Constraints)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, scalarNode("constraints"), constraints)
		}
		if t.Scope != "" {
			n.Content = append(n.Content, scalarNode("scope"), scalarNode(t.Scope))
		}
		return n, nil
	}
	return nil, &DecodeError{Message: "cannot encode " + t.Kind()}
}

func withBase(n *yaml.Node, base pytd.Type, def string) (*yaml.Node, error) {
	if named, ok := base.(*pytd.NamedType); ok && named.Name == def {
		return n, nil
	}
	b, err := encodeType(base)
	if err != nil {
		return nil, err
	}
	n.Content = append(n.Content, scalarNode("base"), b)
	return n, nil
}

func encodeTypeList(types []pytd.Type) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, t := range types {
		item, err := encodeType(t)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, item)
	}
	return n, nil
}

func encodeLiteral(v pytd.LiteralValue) *yaml.Node {
	switch v.Kind {
	case pytd.LiteralInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.Int, 10)}
	case pytd.LiteralBytes:
		return mappingNode("bytes", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Str, Style: yaml.DoubleQuotedStyle})
	case pytd.LiteralBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.Bool)}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Str, Style: yaml.DoubleQuotedStyle}
}

func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// mappingNode builds a mapping from alternating string keys and value nodes.
func mappingNode(kv ...any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Content = append(n.Content, scalarNode(kv[i].(string)), kv[i+1].(*yaml.Node))
	}
	return n
}

func mappingValues(n *yaml.Node) map[string]*yaml.Node {
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out[n.Content[i].Value] = n.Content[i+1]
	}
	return out
}
