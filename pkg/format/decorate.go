package format

import (
	"strings"

	"github.com/leapstack-labs/stubkit/pkg/pytd"
)

// classDecorators renders "@name" lines for a class. Each decorator is
// printed without scope, by its alias name.
func (p *Printer) classDecorators(c *pytd.Class) []string {
	lines := make([]string, 0, len(c.Decorators))
	for _, d := range c.Decorators {
		lines = append(lines, "@"+p.fresh().formatDecorator(d))
	}
	return lines
}

func (p *Printer) formatDecorator(d *pytd.Alias) string {
	switch target := d.Type.(type) {
	case *pytd.Function:
		renamed := *target
		renamed.Name = d.Name
		return p.formatFunction(&renamed)
	case *pytd.Constant:
		return p.formatConstant(&pytd.Constant{Name: d.Name, Type: target.Type})
	}
	return p.formatNamed(d.Name)
}

// functionDecorators returns the decorator lines that precede every
// signature of f, each ending in a newline.
func functionDecorators(f *pytd.Function) string {
	var sb strings.Builder
	switch {
	case f.MethodKind == pytd.MethodKindStatic && f.Name != "__new__":
		sb.WriteString("@staticmethod\n")
	case f.MethodKind == pytd.MethodKindClass && f.Name != "__init_subclass__":
		sb.WriteString("@classmethod\n")
	case f.MethodKind == pytd.MethodKindProperty:
		sb.WriteString("@property\n")
	}
	if f.IsAbstract {
		sb.WriteString("@abstractmethod\n")
	}
	if f.IsCoroutine {
		sb.WriteString("@coroutine\n")
	}
	if len(f.Signatures) > 1 {
		sb.WriteString("@overload\n")
	}
	return sb.String()
}
