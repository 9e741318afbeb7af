// Package pytd defines the type declaration tree shared by every stubkit pass.
//
// This package contains:
//   - Declarations (Module, Class, Function, Signature, Parameter, Constant, Alias)
//   - Type expressions (NamedType, GenericType, UnionType, LiteralType, ...)
//   - A total order over nodes (Compare) used for canonical output
//   - The construction error type (ParseError)
//
// Nodes are immutable once built. A pass that needs a different tree copies
// the node it changes and shares everything else.
//
// The Golden Rule: pkg/pytd imports ONLY the standard library.
package pytd
