package pytd

// ---------- Type Expressions ----------

// NamedType is a reference to a type by its dotted name, e.g. "builtins.int".
type NamedType struct {
	Name string
}

func (*NamedType) node()     {}
func (*NamedType) typeNode() {}

// Kind implements Node.
func (*NamedType) Kind() string { return "NamedType" }

// GetName returns the dotted name.
func (t *NamedType) GetName() string { return t.Name }

// ClassType is a reference to a class that has already been looked up.
// It prints exactly like a NamedType with the same name.
type ClassType struct {
	Name string
}

func (*ClassType) node()     {}
func (*ClassType) typeNode() {}

// Kind implements Node.
func (*ClassType) Kind() string { return "ClassType" }

// GetName returns the dotted name.
func (t *ClassType) GetName() string { return t.Name }

// AnythingType is the top type ("Any").
type AnythingType struct{}

func (*AnythingType) node()     {}
func (*AnythingType) typeNode() {}

// Kind implements Node.
func (*AnythingType) Kind() string { return "AnythingType" }

// NothingType is the bottom type.
type NothingType struct{}

func (*NothingType) node()     {}
func (*NothingType) typeNode() {}

// Kind implements Node.
func (*NothingType) Kind() string { return "NothingType" }

// TypeParameter is a type variable, e.g. T in "T = TypeVar('T')".
type TypeParameter struct {
	Name        string
	Constraints []Type
	Bound       Type   // optional
	Scope       string // dotted name of the owning class or function
}

func (*TypeParameter) node()     {}
func (*TypeParameter) typeNode() {}

// Kind implements Node.
func (*TypeParameter) Kind() string { return "TypeParameter" }

// GetName returns the type variable name.
func (t *TypeParameter) GetName() string { return t.Name }

// GenericType is a parameterized type such as list[int].
type GenericType struct {
	Base   Type // *NamedType or *ClassType
	Params []Type
}

func (*GenericType) node()     {}
func (*GenericType) typeNode() {}

// Kind implements Node.
func (*GenericType) Kind() string { return "GenericType" }

// GetName returns the name of the base type.
func (t *GenericType) GetName() string { return baseName(t.Base) }

// TupleType is a heterogeneous tuple, e.g. tuple[int, str].
// A GenericType over builtins.tuple is the homogeneous form tuple[int, ...].
type TupleType struct {
	Base   Type
	Params []Type
}

func (*TupleType) node()     {}
func (*TupleType) typeNode() {}

// Kind implements Node.
func (*TupleType) Kind() string { return "TupleType" }

// GetName returns the name of the base type.
func (t *TupleType) GetName() string { return baseName(t.Base) }

// CallableType is a callable with an explicit argument list.
// Params holds the argument types followed by the return type.
type CallableType struct {
	Base   Type
	Params []Type
}

func (*CallableType) node()     {}
func (*CallableType) typeNode() {}

// Kind implements Node.
func (*CallableType) Kind() string { return "CallableType" }

// GetName returns the name of the base type.
func (t *CallableType) GetName() string { return baseName(t.Base) }

// Args returns the argument types.
func (t *CallableType) Args() []Type {
	if len(t.Params) == 0 {
		return nil
	}
	return t.Params[:len(t.Params)-1]
}

// Ret returns the return type.
func (t *CallableType) Ret() Type {
	if len(t.Params) == 0 {
		return nil
	}
	return t.Params[len(t.Params)-1]
}

// UnionType is the union of its members.
type UnionType struct {
	Types []Type
}

func (*UnionType) node()     {}
func (*UnionType) typeNode() {}

// Kind implements Node.
func (*UnionType) Kind() string { return "UnionType" }

// IntersectionType is the intersection of its members.
type IntersectionType struct {
	Types []Type
}

func (*IntersectionType) node()     {}
func (*IntersectionType) typeNode() {}

// Kind implements Node.
func (*IntersectionType) Kind() string { return "IntersectionType" }

// LiteralType denotes a single constant value, e.g. Literal[1].
type LiteralType struct {
	Value LiteralValue
}

func (*LiteralType) node()     {}
func (*LiteralType) typeNode() {}

// Kind implements Node.
func (*LiteralType) Kind() string { return "LiteralType" }

func baseName(t Type) string {
	if n, ok := t.(Named); ok {
		return n.GetName()
	}
	return ""
}

// NewUnion builds a union of types. Nested unions are flattened and
// duplicates are collapsed, keeping the first occurrence.
func NewUnion(types ...Type) *UnionType {
	var out []Type
	var add func(t Type)
	add = func(t Type) {
		if u, ok := t.(*UnionType); ok {
			for _, m := range u.Types {
				add(m)
			}
			return
		}
		for _, seen := range out {
			if Equal(seen, t) {
				return
			}
		}
		out = append(out, t)
	}
	for _, t := range types {
		if t != nil {
			add(t)
		}
	}
	return &UnionType{Types: out}
}

// JoinTypes combines types into the simplest equivalent type: nothing for
// an empty list, the member itself for a single type, a union otherwise.
// NothingType members are dropped when other members exist.
func JoinTypes(types ...Type) Type {
	u := NewUnion(types...)
	var members []Type
	for _, t := range u.Types {
		if _, ok := t.(*NothingType); ok {
			continue
		}
		members = append(members, t)
	}
	switch len(members) {
	case 0:
		return &NothingType{}
	case 1:
		return members[0]
	}
	return &UnionType{Types: members}
}
