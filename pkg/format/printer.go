// Package format renders pytd trees as stub source text.
package format

import (
	"bytes"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

const indent = "    "

// Printer holds the state of one Print call: the imports the output needs
// and the scope it is currently printing in.
//
// Some output is produced by a fresh Printer (see fresh) so that it does not
// see the enclosing scope. Imports those printers register are dropped.
type Printer struct {
	output        *bytes.Buffer
	logger        *slog.Logger
	multilineArgs bool

	unitName     string
	localNames   map[string]bool
	classMembers map[string]bool
	classNames   []string // enclosing classes, innermost last, with template
	inParameter  bool

	// imports maps a module to the names imported from it. The empty name
	// stands for "import module".
	imports map[string]map[string]bool
	// typingCounts counts references to each typing name. A name whose
	// references were all elided again is not imported.
	typingCounts map[string]int
}

func newPrinter(opts Options) *Printer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Printer{
		output:        &bytes.Buffer{},
		logger:        logger,
		multilineArgs: opts.MultilineArgs,
		localNames:    make(map[string]bool),
		classMembers:  make(map[string]bool),
		imports:       make(map[string]map[string]bool),
		typingCounts:  make(map[string]int),
	}
}

// fresh returns a printer with no scope and no imports.
func (p *Printer) fresh() *Printer {
	return newPrinter(Options{Logger: p.logger})
}

// String returns the formatted output.
func (p *Printer) String() string {
	return p.output.String()
}

func (p *Printer) write(s string) {
	p.output.WriteString(s)
}

func (p *Printer) writeln() {
	p.output.WriteByte('\n')
}

func (p *Printer) requireImport(module, name string) {
	names, ok := p.imports[module]
	if !ok {
		names = make(map[string]bool)
		p.imports[module] = names
	}
	names[name] = true
}

func (p *Printer) nameCollision(name string) bool {
	return p.classMembers[name] || p.localNames[name]
}

// fromTyping returns how to spell a typing name, registering the import.
// When the bare name would be shadowed, the name is qualified instead.
func (p *Printer) fromTyping(name string) string {
	p.typingCounts[name]++
	if p.nameCollision(name) {
		p.requireImport("typing", "")
		return "typing." + name
	}
	p.requireImport("typing", name)
	return name
}

func (p *Printer) snapshotImports() map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(p.imports))
	for module, names := range p.imports {
		out[module] = maps.Clone(names)
	}
	return out
}

// importLines renders the import section. Modules are sorted; "import m"
// precedes "from m import ...".
func (p *Printer) importLines() []string {
	var lines []string
	for _, module := range slices.Sorted(maps.Keys(p.imports)) {
		names := maps.Clone(p.imports[module])
		if module == "typing" {
			for name, count := range p.typingCounts {
				if count == 0 {
					delete(names, name)
				}
			}
		}
		if names[""] {
			lines = append(lines, "import "+module)
			delete(names, "")
		}
		if len(names) > 0 {
			lines = append(lines, "from "+module+" import "+strings.Join(slices.Sorted(maps.Keys(names)), ", "))
		}
	}
	return lines
}

// pushClass enters a class scope. The returned func restores the
// enclosing scope.
func (p *Printer) pushClass(name string, members []string) func() {
	saved := maps.Clone(p.classMembers)
	for _, m := range members {
		p.classMembers[m] = true
	}
	p.classNames = append(p.classNames, name)
	return func() {
		p.classNames = p.classNames[:len(p.classNames)-1]
		p.classMembers = saved
	}
}

// classPrefix is the dotted scope of the innermost class.
func (p *Printer) classPrefix() string {
	if n := len(p.classNames); n > 0 && strings.Contains(p.classNames[n-1], ".") {
		return p.classNames[n-1]
	}
	return strings.Join(p.classNames, ".")
}

// formatList joins count formatted items with sep.
func formatList(count int, format func(i int) string, sep string) string {
	var sb strings.Builder
	for i := 0; i < count; i++ {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(format(i))
	}
	return sb.String()
}

func indentLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = indent + l
	}
	return out
}

func splitName(name string) (prefix, suffix string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
