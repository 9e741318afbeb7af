package format

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/stubkit/pkg/pytd"
)

// literalPattern matches a printed Literal[...] so union members can be merged.
var literalPattern = regexp.MustCompile(`^Literal\[(.*)\]$`)

// formatType renders a type expression. A missing type is Any.
func (p *Printer) formatType(t pytd.Type) string {
	switch t := t.(type) {
	case nil:
		return p.fromTyping("Any")
	case *pytd.NamedType:
		return p.formatNamed(t.Name)
	case *pytd.ClassType:
		return p.formatNamed(t.Name)
	case *pytd.AnythingType:
		return p.fromTyping("Any")
	case *pytd.NothingType:
		return "nothing"
	case *pytd.TypeParameter:
		return p.formatTypeParameter(t)
	case *pytd.GenericType:
		return p.formatGeneric(t, t.Base, t.Params, false)
	case *pytd.TupleType:
		return p.formatGeneric(t, t.Base, t.Params, true)
	case *pytd.CallableType:
		return p.formatCallable(t)
	case *pytd.UnionType:
		return p.buildUnion(p.typeSet(t.Types))
	case *pytd.IntersectionType:
		return buildIntersection(p.typeSet(t.Types))
	case *pytd.LiteralType:
		return p.formatLiteral(t)
	}
	return ""
}

func (p *Printer) formatTypes(types []pytd.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = p.formatType(t)
	}
	return out
}

// formatNamed spells a dotted name as the stub should write it and
// registers the import the spelling relies on.
func (p *Printer) formatNamed(name string) string {
	prefix, suffix := splitName(name)
	out := name
	switch {
	case prefix == "builtins" && !p.nameCollision(suffix):
		out = suffix
	case prefix == "typing":
		out = p.fromTyping(suffix)
	case prefix != "" && prefix != p.unitName && !p.localNames[prefix]:
		// Names qualified by the enclosing class are not imports.
		if prefix != p.classPrefix() {
			p.requireImport(prefix, "")
		}
	}
	if out == "NoneType" {
		return "None"
	}
	return out
}

// formatTypeParameter prints the name. Constraints and bound are printed
// only for the imports they need.
func (p *Printer) formatTypeParameter(t *pytd.TypeParameter) string {
	if t == nil {
		return ""
	}
	p.formatTypes(t.Constraints)
	if t.Bound != nil {
		p.formatType(t.Bound)
	}
	return t.Name
}

func (p *Printer) formatGeneric(t pytd.Named, base pytd.Type, params []pytd.Type, tuple bool) string {
	baseStr := p.formatType(base)
	printed := p.formatTypes(params)
	switch {
	case tuple && len(params) == 0:
		printed = []string{"()"}
	case !tuple && baseStr == "tuple":
		// Homogeneous tuple.
		printed = append(printed, "...")
	case !tuple && t.GetName() == "typing.Callable" && len(params) > 0 && isAnything(params[0]):
		p.typingCounts["Any"]--
		printed[0] = "..."
	}
	return p.maybeCapitalize(baseStr) + "[" + strings.Join(printed, ", ") + "]"
}

func (p *Printer) formatCallable(t *pytd.CallableType) string {
	base := p.formatType(t.Base)
	args := p.formatTypes(t.Args())
	ret := p.formatType(t.Ret())
	return p.maybeCapitalize(base) + "[[" + strings.Join(args, ", ") + "], " + ret + "]"
}

func (p *Printer) maybeCapitalize(name string) string {
	if capitalized, ok := pep484Capitalized[name]; ok {
		return p.fromTyping(capitalized)
	}
	return name
}

// typeSet prints the members of a union or intersection, dropping
// duplicates. Inside a parameter a member that a wider member accepts is
// dropped as well.
func (p *Printer) typeSet(types []pytd.Type) []string {
	seen := make(map[string]bool, len(types))
	var out []string
	for _, s := range p.formatTypes(types) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if !p.inParameter {
		return out
	}
	for _, item := range pep484Compat {
		if seen[item.narrow] && seen[item.wide] {
			seen[item.narrow] = false
			out = remove(out, item.narrow)
		}
	}
	return out
}

// buildUnion simplifies Union[X] to X and Union[X, None] to Optional[X],
// and merges literal members into a single trailing Literal[...].
func (p *Printer) buildUnion(types []string) string {
	var literals, members []string
	for _, t := range types {
		if m := literalPattern.FindStringSubmatch(t); m != nil {
			literals = append(literals, m[1])
		} else {
			members = append(members, t)
		}
	}
	if len(literals) > 0 {
		members = append(members, "Literal["+strings.Join(literals, ", ")+"]")
	}
	switch {
	case len(members) == 1:
		return members[0]
	case contains(members, "None"):
		return p.fromTyping("Optional") + "[" + p.buildUnion(remove(members, "None")) + "]"
	}
	return p.fromTyping("Union") + "[" + strings.Join(members, ", ") + "]"
}

func buildIntersection(types []string) string {
	return strings.Join(types, " and ")
}

func (p *Printer) formatLiteral(t *pytd.LiteralType) string {
	base := "Literal"
	if !p.localNames[base] {
		base = p.fromTyping(base)
	}
	return base + "[" + t.Value.String() + "]"
}

func isAnything(t pytd.Type) bool {
	_, ok := t.(*pytd.AnythingType)
	return ok
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func remove(xs []string, s string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}
