package pytd

// Node is the base interface for all tree nodes.
type Node interface {
	// Kind returns the node kind name, e.g. "NamedType" or "Class".
	Kind() string
	node()
}

// Type is a marker interface for type expression nodes.
type Type interface {
	Node
	typeNode() // Marker method to distinguish type expressions
}

// Named is implemented by nodes that carry a (possibly dotted) name.
type Named interface {
	Node
	GetName() string
}
