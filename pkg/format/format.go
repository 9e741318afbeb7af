package format

import (
	"log/slog"

	"github.com/leapstack-labs/stubkit/pkg/pytd"
)

// Options controls stub output.
type Options struct {
	// MultilineArgs puts every parameter of a signature on its own line.
	MultilineArgs bool
	// Logger receives warnings about malformed trees. Nil discards them.
	Logger *slog.Logger
}

// Print renders a module as stub source. The result has no trailing newline.
func Print(m *pytd.Module, opts Options) string {
	p := newPrinter(opts)
	p.formatModule(m)
	return p.String()
}

// PrintType renders a single type expression outside of any module scope.
func PrintType(t pytd.Type) string {
	return newPrinter(Options{}).formatType(t)
}

// PrintNode renders any node outside of a module scope. Classes end with a
// newline; other declarations do not.
func PrintNode(n pytd.Node, opts Options) string {
	p := newPrinter(opts)
	switch n := n.(type) {
	case *pytd.Module:
		p.formatModule(n)
		return p.String()
	case *pytd.Class:
		return p.formatClass(n)
	case *pytd.Function:
		return p.formatFunction(n)
	case *pytd.Signature:
		return p.formatSignature(n)
	case *pytd.Parameter:
		return p.formatParameter(n)
	case *pytd.Constant:
		return p.formatConstant(n)
	case *pytd.Alias:
		return p.formatAlias(n)
	case *pytd.ModuleRef:
		return formatModuleRef(n)
	case *pytd.TemplateItem:
		return p.formatType(n.Param)
	case pytd.Type:
		return p.formatType(n)
	}
	return ""
}
