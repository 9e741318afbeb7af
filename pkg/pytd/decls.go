package pytd

// ---------- Declarations ----------

// Module is the root of a tree: everything declared in one stub file.
type Module struct {
	Name       string
	Constants  []*Constant
	TypeParams []*TypeParameter
	Functions  []*Function
	Classes    []*Class
	Aliases    []*Alias
}

func (*Module) node() {}

// Kind implements Node.
func (*Module) Kind() string { return "Module" }

// GetName returns the dotted module name.
func (m *Module) GetName() string { return m.Name }

// Constant is a module or class level variable declaration ("x: int").
type Constant struct {
	Name string
	Type Type
}

func (*Constant) node() {}

// Kind implements Node.
func (*Constant) Kind() string { return "Constant" }

// GetName returns the constant name.
func (c *Constant) GetName() string { return c.Name }

// Alias binds a name to a type, function, constant or imported module.
// It models both "from x import y as z" and local type aliases.
type Alias struct {
	Name string
	Type Node // Type, *Function, *Constant or *ModuleRef
}

func (*Alias) node() {}

// Kind implements Node.
func (*Alias) Kind() string { return "Alias" }

// GetName returns the alias name.
func (a *Alias) GetName() string { return a.Name }

// ModuleRef is an imported module ("import x" or "import x as y").
type ModuleRef struct {
	Name       string // local name
	ModuleName string // imported module
}

func (*ModuleRef) node() {}

// Kind implements Node.
func (*ModuleRef) Kind() string { return "ModuleRef" }

// GetName returns the local name.
func (m *ModuleRef) GetName() string { return m.Name }

// IsAliased reports whether the module is imported under a different name.
func (m *ModuleRef) IsAliased() bool { return m.Name != m.ModuleName }

// TemplateItem is one generic parameter of a class or signature.
type TemplateItem struct {
	Param *TypeParameter
}

func (*TemplateItem) node() {}

// Kind implements Node.
func (*TemplateItem) Kind() string { return "TemplateItem" }

// GetName returns the type parameter name.
func (t *TemplateItem) GetName() string {
	if t.Param == nil {
		return ""
	}
	return t.Param.Name
}

// Class is a class declaration.
type Class struct {
	Name       string
	Metaclass  Type // optional
	Parents    []Type
	Methods    []*Function
	Constants  []*Constant
	Classes    []*Class
	Decorators []*Alias
	Slots      []string // nil means the class declares no __slots__
	Template   []*TemplateItem
}

func (*Class) node() {}

// Kind implements Node.
func (*Class) Kind() string { return "Class" }

// GetName returns the class name.
func (c *Class) GetName() string { return c.Name }

// MethodKind distinguishes plain methods from static, class and property methods.
type MethodKind int

// MethodKind constants.
const (
	MethodKindMethod MethodKind = iota
	MethodKindStatic
	MethodKindClass
	MethodKindProperty
)

// String returns the kind's source keyword.
func (k MethodKind) String() string {
	switch k {
	case MethodKindStatic:
		return "staticmethod"
	case MethodKindClass:
		return "classmethod"
	case MethodKindProperty:
		return "property"
	}
	return "method"
}

// ParseMethodKind converts a source keyword back to a MethodKind.
func ParseMethodKind(s string) (MethodKind, bool) {
	switch s {
	case "", "method":
		return MethodKindMethod, true
	case "staticmethod":
		return MethodKindStatic, true
	case "classmethod":
		return MethodKindClass, true
	case "property":
		return MethodKindProperty, true
	}
	return MethodKindMethod, false
}

// Function is a function or method. Multiple signatures model overloads
// and are tried in order.
type Function struct {
	Name        string
	Signatures  []*Signature
	MethodKind  MethodKind
	IsAbstract  bool
	IsCoroutine bool
}

func (*Function) node() {}

// Kind implements Node.
func (*Function) Kind() string { return "Function" }

// GetName returns the function name.
func (f *Function) GetName() string { return f.Name }

// Signature is one overload of a function.
type Signature struct {
	Params       []*Parameter
	StarArgs     *Parameter // optional
	StarStarArgs *Parameter // optional
	ReturnType   Type
	Exceptions   []Type
	Template     []*TemplateItem
}

func (*Signature) node() {}

// Kind implements Node.
func (*Signature) Kind() string { return "Signature" }

// HasOptional reports whether the signature accepts extra arguments.
func (s *Signature) HasOptional() bool {
	return s.StarArgs != nil || s.StarStarArgs != nil
}

// Parameter is a function parameter.
type Parameter struct {
	Name        string
	Type        Type
	Optional    bool
	KwOnly      bool
	MutatedType Type // type after the call, or nil
}

func (*Parameter) node() {}

// Kind implements Node.
func (*Parameter) Kind() string { return "Parameter" }

// GetName returns the parameter name.
func (p *Parameter) GetName() string { return p.Name }

// Lookup returns the class with the given name, or nil.
func (m *Module) Lookup(name string) *Class {
	for _, c := range m.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}
