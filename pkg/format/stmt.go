package format

import (
	"slices"
	"strings"
	"unicode"

	"github.com/leapstack-labs/stubkit/pkg/pytd"
)

// ---------- Module ----------

func (p *Printer) formatModule(m *pytd.Module) {
	p.unitName = m.Name
	p.localNames = moduleNames(m)
	defer func() {
		p.unitName = ""
		p.localNames = make(map[string]bool)
	}()

	constants := make([]string, len(m.Constants))
	for i, c := range m.Constants {
		constants[i] = p.formatConstant(c)
	}
	for _, tp := range m.TypeParams {
		p.formatTypeParameter(tp)
	}
	classes := make([]string, len(m.Classes))
	for i, c := range m.Classes {
		classes[i] = p.formatClass(c)
	}
	functions := make([]string, len(m.Functions))
	for i, f := range m.Functions {
		functions[i] = p.formatFunction(f)
	}
	aliases := make([]string, len(m.Aliases))
	for i, a := range m.Aliases {
		aliases[i] = p.formatAlias(a)
	}
	if len(m.TypeParams) > 0 {
		p.fromTyping("TypeVar")
	}

	sections := [][]string{
		p.importLines(),
		aliases,
		constants,
		p.formatTypeVars(m.TypeParams),
		classes,
		functions,
	}
	first := true
	for _, section := range sections {
		if len(section) == 0 {
			continue
		}
		if !first {
			p.writeln()
			p.writeln()
		}
		first = false
		// Classes end in a newline; the blank line goes between sections.
		p.write(strings.TrimRightFunc(strings.Join(section, "\n"), unicode.IsSpace))
	}
}

func moduleNames(m *pytd.Module) map[string]bool {
	names := make(map[string]bool)
	for _, c := range m.Classes {
		names[c.Name] = true
	}
	for _, f := range m.Functions {
		names[f.Name] = true
	}
	for _, c := range m.Constants {
		names[c.Name] = true
	}
	for _, tp := range m.TypeParams {
		names[tp.Name] = true
	}
	for _, a := range m.Aliases {
		names[a.Name] = true
	}
	return names
}

// formatTypeVars renders "T = TypeVar('T', ...)" lines, sorted.
func (p *Printer) formatTypeVars(params []*pytd.TypeParameter) []string {
	lines := make([]string, 0, len(params))
	for _, tp := range params {
		args := []string{"'" + tp.Name + "'"}
		for _, c := range tp.Constraints {
			args = append(args, p.fresh().formatType(c))
		}
		if tp.Bound != nil {
			args = append(args, "bound="+p.fresh().formatType(tp.Bound))
		}
		lines = append(lines, tp.Name+" = TypeVar("+strings.Join(args, ", ")+")")
	}
	slices.Sort(lines)
	return lines
}

// ---------- Constants and aliases ----------

func (p *Printer) formatConstant(c *pytd.Constant) string {
	return c.Name + ": " + p.formatType(c.Type)
}

// formatAlias renders an import or a local alias.
func (p *Printer) formatAlias(a *pytd.Alias) string {
	saved := p.snapshotImports()
	switch target := a.Type.(type) {
	case *pytd.NamedType:
		printed := p.formatType(target)
		module, name := splitName(target.Name)
		if module == "" {
			return a.Name + " = " + printed
		}
		// The import line itself brings the name in.
		p.imports = saved
		line := "from " + module + " import " + name
		if name != "*" && name != a.Name {
			line += " as " + a.Name
		}
		return line
	case *pytd.Constant:
		p.formatConstant(target)
		return p.fresh().formatConstant(&pytd.Constant{Name: a.Name, Type: target.Type})
	case *pytd.Function:
		p.formatFunction(target)
		renamed := *target
		renamed.Name = a.Name
		return p.fresh().formatFunction(&renamed)
	case *pytd.ModuleRef:
		return formatModuleRef(target)
	case pytd.Type:
		return a.Name + " = " + p.formatType(target)
	}
	return a.Name + " = " + p.formatType(nil)
}

func formatModuleRef(m *pytd.ModuleRef) string {
	if m.IsAliased() {
		return "import " + m.ModuleName + " as " + m.Name
	}
	return "import " + m.ModuleName
}

// ---------- Classes ----------

func (p *Printer) formatClass(c *pytd.Class) string {
	scope := c.Name
	if len(c.Template) > 0 {
		fp := p.fresh()
		scope += "[" + formatList(len(c.Template), func(i int) string {
			return fp.formatType(c.Template[i].Param)
		}, ", ") + "]"
	}
	members := make([]string, 0, len(c.Methods)+len(c.Constants))
	for _, m := range c.Methods {
		members = append(members, m.Name)
	}
	for _, k := range c.Constants {
		members = append(members, k.Name)
	}
	leave := p.pushClass(scope, members)
	defer leave()

	var metaclass string
	if c.Metaclass != nil {
		metaclass = p.formatType(c.Metaclass)
	}
	parents := p.formatTypes(c.Parents)
	methods := make([]string, len(c.Methods))
	for i, m := range c.Methods {
		methods[i] = p.formatFunction(m)
	}
	constants := make([]string, len(c.Constants))
	for i, k := range c.Constants {
		constants[i] = p.formatConstant(k)
	}
	classes := make([]string, len(c.Classes))
	for i, nested := range c.Classes {
		classes[i] = p.formatClass(nested)
	}
	for _, d := range c.Decorators {
		p.formatAlias(d)
	}
	for _, t := range c.Template {
		p.formatType(t.Param)
	}

	if len(parents) == 1 && parents[0] == "object" {
		parents = nil
	}
	if metaclass != "" {
		parents = append(parents, "metaclass="+metaclass)
	}
	header := "class " + c.Name
	if len(parents) > 0 {
		header += "(" + strings.Join(parents, ", ") + ")"
	}
	header += ":"

	var slots []string
	if c.Slots != nil {
		quoted := make([]string, len(c.Slots))
		for i, s := range c.Slots {
			quoted[i] = `"` + s + `"`
		}
		slots = []string{indent + "__slots__ = [" + strings.Join(quoted, ", ") + "]"}
	}

	lines := p.classDecorators(c)
	if len(c.Classes) == 0 && len(c.Methods) == 0 && len(c.Constants) == 0 && len(slots) == 0 {
		lines = append(lines, header+" ...")
	} else {
		lines = append(lines, header)
		lines = append(lines, slots...)
		for _, nested := range classes {
			lines = append(lines, indentLines(splitLines(nested))...)
		}
		lines = append(lines, indentLines(constants)...)
		for _, m := range methods {
			lines = append(lines, indentLines(splitLines(m))...)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// ---------- Functions ----------

func (p *Printer) formatFunction(f *pytd.Function) string {
	decorators := functionDecorators(f)
	sigs := make([]string, len(f.Signatures))
	for i, s := range f.Signatures {
		sigs[i] = decorators + "def " + f.Name + p.formatSignature(s)
	}
	return strings.Join(sigs, "\n")
}

// formatSignature renders "(params) -> ret:" followed by the body.
func (p *Printer) formatSignature(s *pytd.Signature) string {
	params := make([]string, len(s.Params))
	for i, prm := range s.Params {
		params[i] = p.formatParameter(prm)
	}
	if s.StarArgs != nil {
		p.formatParameter(s.StarArgs)
	}
	if s.StarStarArgs != nil {
		p.formatParameter(s.StarStarArgs)
	}
	ret := p.formatType(s.ReturnType)
	if ret == "nothing" {
		ret = "NoReturn"
		p.fromTyping(ret)
	}
	exceptions := p.formatTypes(s.Exceptions)
	for _, t := range s.Template {
		p.formatType(t.Param)
	}

	var starArgs string
	if s.StarArgs != nil {
		starArgs = p.containerContents(s.StarArgs)
	}
	kwOnly := slices.IndexFunc(s.Params, func(prm *pytd.Parameter) bool { return prm.KwOnly })
	switch {
	case kwOnly >= 0:
		params = slices.Insert(params, kwOnly, "*"+starArgs)
	case starArgs != "":
		params = append(params, "*"+starArgs)
	}
	if s.StarStarArgs != nil {
		params = append(params, "**"+p.containerContents(s.StarStarArgs))
	}

	var body strings.Builder
	for _, prm := range s.Params {
		if prm.MutatedType != nil {
			body.WriteString("\n" + indent + prm.Name + " = " + p.fresh().formatType(prm.MutatedType))
		}
	}
	for _, exc := range exceptions {
		body.WriteString("\n" + indent + "raise " + exc + "()")
	}
	if body.Len() == 0 {
		body.WriteString(" ...")
	}

	if p.multilineArgs {
		var sb strings.Builder
		for i, prm := range params {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("\n" + indent + prm)
		}
		return "(" + sb.String() + "\n) -> " + ret + ":" + body.String()
	}
	return "(" + strings.Join(params, ", ") + ") -> " + ret + ":" + body.String()
}

// containerContents prints *args or **kwargs by the element type of its
// tuple or dict annotation, releasing the container's typing import.
func (p *Printer) containerContents(prm *pytd.Parameter) string {
	var params []pytd.Type
	var container string
	switch t := prm.Type.(type) {
	case *pytd.GenericType:
		params, container = t.Params, t.GetName()
	case *pytd.TupleType:
		params, container = t.Params, t.GetName()
	}
	elem := pytd.Type(&pytd.AnythingType{})
	if len(params) > 0 {
		_, name := splitName(container)
		p.typingCounts[capitalize(name)]--
		elem = params[len(params)-1]
		if isAnything(elem) {
			p.typingCounts["Any"]--
		}
	}
	return p.fresh().formatParameter(&pytd.Parameter{Name: prm.Name, Type: elem})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// formatParameter renders "name: type", eliding annotations a reader can
// infer: Any, self of the enclosing class and cls of its Type.
func (p *Printer) formatParameter(prm *pytd.Parameter) string {
	if prm.Type == nil {
		p.logger.Warn("parameter has no type", "name", prm.Name)
		return prm.Name
	}
	suffix := ""
	if prm.Optional {
		suffix = " = ..."
	}

	p.inParameter = true
	typ := p.formatType(prm.Type)
	if prm.MutatedType != nil {
		p.formatType(prm.MutatedType)
	}
	p.inParameter = false

	switch {
	case typ == "Any":
		p.typingCounts["Any"]--
		return prm.Name + suffix
	case prm.Name == "self" && len(p.classNames) > 0 &&
		beforeBracket(p.classNames[len(p.classNames)-1]) == beforeBracket(typ):
		return prm.Name + suffix
	case prm.Name == "cls" && len(p.classNames) > 0 &&
		typ == "Type["+p.classNames[len(p.classNames)-1]+"]":
		p.typingCounts["Type"]--
		return prm.Name + suffix
	}
	return prm.Name + ": " + typ + suffix
}

func beforeBracket(s string) string {
	name, _, _ := strings.Cut(s, "[")
	return name
}
