// Package loader reads and writes pytd trees as YAML documents.
//
// A document describes one module:
//
//	name: m
//	constants:
//	  - {name: x, type: builtins.int}
//	classes:
//	  - name: A
//	    bases: [typing.Protocol]
//	    methods:
//	      - name: f
//	        signatures:
//	          - params: [{name: self, type: A}]
//	            returns: builtins.str
//
// Classes are assembled through classdef.Build, so every class read from a
// document satisfies the construction rules for bases, keywords and
// decorators.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/leapstack-labs/stubkit/pkg/classdef"
	"github.com/leapstack-labs/stubkit/pkg/pytd"
	"gopkg.in/yaml.v3"
)

type moduleDoc struct {
	Name       string        `yaml:"name"`
	Constants  []constantDoc `yaml:"constants,omitempty"`
	TypeParams []typeExpr    `yaml:"type_params,omitempty"`
	Aliases    []aliasDoc    `yaml:"aliases,omitempty"`
	Classes    []classDoc    `yaml:"classes,omitempty"`
	Functions  []functionDoc `yaml:"functions,omitempty"`
}

type constantDoc struct {
	Name string   `yaml:"name"`
	Type typeExpr `yaml:"type"`
}

type aliasDoc struct {
	Name     string       `yaml:"name"`
	Type     *typeExpr    `yaml:"type,omitempty"`
	Function *functionDoc `yaml:"function,omitempty"`
	Constant *typeExpr    `yaml:"constant,omitempty"`
	Module   string       `yaml:"module,omitempty"`
}

type classDoc struct {
	Name       string         `yaml:"name"`
	Bases      []baseExpr     `yaml:"bases,omitempty"`
	Keywords   keywordList    `yaml:"keywords,omitempty"`
	Decorators []string       `yaml:"decorators,omitempty"`
	Slots      *[]string      `yaml:"slots,omitempty"`
	Template   []templateExpr `yaml:"template,omitempty"`
	Constants  []constantDoc  `yaml:"constants,omitempty"`
	Methods    []functionDoc  `yaml:"methods,omitempty"`
	Classes    []classDoc     `yaml:"classes,omitempty"`
}

type functionDoc struct {
	Name       string         `yaml:"name"`
	Kind       methodKind     `yaml:"kind,omitempty"`
	Abstract   bool           `yaml:"abstract,omitempty"`
	Coroutine  bool           `yaml:"coroutine,omitempty"`
	Signatures []signatureDoc `yaml:"signatures"`
}

type signatureDoc struct {
	Params       []paramDoc     `yaml:"params,omitempty"`
	StarArgs     *paramDoc      `yaml:"starargs,omitempty"`
	StarStarArgs *paramDoc      `yaml:"starstarargs,omitempty"`
	Returns      *typeExpr      `yaml:"returns,omitempty"`
	Exceptions   []typeExpr     `yaml:"exceptions,omitempty"`
	Template     []templateExpr `yaml:"template,omitempty"`
}

type paramDoc struct {
	Name     string    `yaml:"name"`
	Type     *typeExpr `yaml:"type,omitempty"`
	Optional bool      `yaml:"optional,omitempty"`
	KwOnly   bool      `yaml:"kwonly,omitempty"`
	Mutated  *typeExpr `yaml:"mutated,omitempty"`
}

type methodKind pytd.MethodKind

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *methodKind) UnmarshalYAML(n *yaml.Node) error {
	kind, ok := pytd.ParseMethodKind(n.Value)
	if !ok || n.Kind != yaml.ScalarNode {
		return decodeErrorf(n.Line, "invalid method kind %q", n.Value)
	}
	*k = methodKind(kind)
	return nil
}

// IsZero lets omitempty drop plain methods.
func (k methodKind) IsZero() bool { return pytd.MethodKind(k) == pytd.MethodKindMethod }

// MarshalYAML implements yaml.Marshaler.
func (k methodKind) MarshalYAML() (any, error) {
	return pytd.MethodKind(k).String(), nil
}

// keywordList holds class header keywords in source order. Booleans,
// numbers and null are constants; {value: x} forces a string constant;
// anything else is a type expression.
type keywordList []classdef.Keyword

// UnmarshalYAML implements yaml.Unmarshaler.
func (kl *keywordList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return decodeErrorf(n.Line, "keywords must be a mapping")
	}
	out := make(keywordList, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, value := n.Content[i].Value, n.Content[i+1]
		kw, err := decodeKeyword(name, value)
		if err != nil {
			return err
		}
		out = append(out, kw)
	}
	*kl = out
	return nil
}

func decodeKeyword(name string, n *yaml.Node) (classdef.Keyword, error) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() != "!!str" {
		v, err := decodePyval(n)
		if err != nil {
			return classdef.Keyword{}, err
		}
		return classdef.Keyword{Name: name, Value: &v}, nil
	}
	if n.Kind == yaml.MappingNode {
		if m := mappingValues(n); m["value"] != nil && len(n.Content) == 2 {
			v, err := decodePyval(m["value"])
			if err != nil {
				return classdef.Keyword{}, err
			}
			return classdef.Keyword{Name: name, Value: &v}, nil
		}
	}
	t, err := decodeType(n)
	if err != nil {
		return classdef.Keyword{}, err
	}
	return classdef.Keyword{Name: name, Type: t}, nil
}

// MarshalYAML implements yaml.Marshaler.
func (kl keywordList) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, kw := range kl {
		value, err := encodeType(kw.Type)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, scalarNode(kw.Name), value)
	}
	return n, nil
}

// IsZero lets omitempty drop an empty keyword list.
func (kl keywordList) IsZero() bool { return len(kl) == 0 }

// Decode parses a YAML document into a module.
func Decode(data []byte) (*pytd.Module, error) {
	var doc moduleDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DecodeError{Message: "empty document"}
		}
		return nil, convertYAMLError(err)
	}
	if doc.Name == "" {
		return nil, &DecodeError{Message: "module name is required"}
	}
	return doc.build()
}

// LoadFile reads and decodes a document from disk. The raw bytes are
// returned alongside the module for content hashing.
func LoadFile(path string) (*pytd.Module, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	m, err := DecodeFile(path, data)
	return m, data, err
}

// DecodeFile is Decode with errors attributed to path.
func DecodeFile(path string, data []byte) (*pytd.Module, error) {
	m, err := Decode(data)
	if err == nil {
		return m, nil
	}
	var de *DecodeError
	var ue *UnknownFieldError
	switch {
	case errors.As(err, &de):
		de.File = path
	case errors.As(err, &ue):
		ue.File = path
	default:
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nil, err
}

// Encode writes a module as a YAML document that Decode reads back into an
// equal tree.
func Encode(m *pytd.Module) ([]byte, error) {
	doc, err := moduleToDoc(m)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	unknownFieldRe = regexp.MustCompile(`^line (\d+): field (\S+) not found in type`)
	lineRe         = regexp.MustCompile(`^(?:yaml: )?line (\d+): (.*)$`)
)

// convertYAMLError maps yaml.v3 errors onto the loader's error types.
func convertYAMLError(err error) error {
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		first := te.Errors[0]
		if m := unknownFieldRe.FindStringSubmatch(first); m != nil {
			line, _ := strconv.Atoi(m[1])
			return &UnknownFieldError{Line: line, Field: m[2]}
		}
		return lineError(first)
	}
	var de *DecodeError
	var ue *UnknownFieldError
	if errors.As(err, &de) || errors.As(err, &ue) {
		return err
	}
	return lineError(err.Error())
}

func lineError(msg string) *DecodeError {
	if m := lineRe.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &DecodeError{Line: line, Message: m[2]}
	}
	return &DecodeError{Message: msg}
}

// ---------- document -> tree ----------

func (d *moduleDoc) build() (*pytd.Module, error) {
	m := &pytd.Module{Name: d.Name}

	for _, tp := range d.TypeParams {
		p, ok := tp.Type.(*pytd.TypeParameter)
		if !ok {
			return nil, &DecodeError{Message: "type_params entries must be typevars"}
		}
		m.TypeParams = append(m.TypeParams, p)
	}
	for _, c := range d.Constants {
		m.Constants = append(m.Constants, c.build())
	}

	lookup := make(map[string]pytd.Node, len(d.Aliases))
	for _, a := range d.Aliases {
		alias, err := a.build()
		if err != nil {
			return nil, err
		}
		m.Aliases = append(m.Aliases, alias)
		lookup[alias.Name] = alias.Type
	}
	for _, f := range d.Functions {
		fn, err := f.build()
		if err != nil {
			return nil, err
		}
		m.Functions = append(m.Functions, fn)
	}
	for i := range d.Classes {
		c, err := d.Classes[i].build(lookup)
		if err != nil {
			return nil, err
		}
		m.Classes = append(m.Classes, c)
	}
	return m, nil
}

func (c constantDoc) build() *pytd.Constant {
	return &pytd.Constant{Name: c.Name, Type: c.Type.Type}
}

func (a aliasDoc) build() (*pytd.Alias, error) {
	set := 0
	for _, present := range []bool{a.Type != nil, a.Function != nil, a.Constant != nil, a.Module != ""} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, &DecodeError{Message: fmt.Sprintf("alias %q needs exactly one of type, function, constant or module", a.Name)}
	}

	alias := &pytd.Alias{Name: a.Name}
	switch {
	case a.Type != nil:
		alias.Type = a.Type.Type
	case a.Function != nil:
		fn, err := a.Function.build()
		if err != nil {
			return nil, err
		}
		alias.Type = fn
	case a.Constant != nil:
		alias.Type = &pytd.Constant{Name: a.Name, Type: a.Constant.Type}
	default:
		alias.Type = &pytd.ModuleRef{Name: a.Name, ModuleName: a.Module}
	}
	return alias, nil
}

func (c *classDoc) build(lookup map[string]pytd.Node) (*pytd.Class, error) {
	def := classdef.ClassDef{
		Name:            c.Name,
		Keywords:        c.Keywords,
		Decorators:      c.Decorators,
		DecoratorLookup: lookup,
		Template:        buildTemplate(c.Template),
	}
	for _, b := range c.Bases {
		def.Bases = append(def.Bases, b.Node)
	}
	if c.Slots != nil {
		def.Slots = append([]string{}, *c.Slots...)
	}
	for _, k := range c.Constants {
		def.Constants = append(def.Constants, k.build())
	}
	for _, f := range c.Methods {
		fn, err := f.build()
		if err != nil {
			return nil, fmt.Errorf("class %q: %w", c.Name, err)
		}
		def.Methods = append(def.Methods, fn)
	}
	for i := range c.Classes {
		nested, err := c.Classes[i].build(lookup)
		if err != nil {
			return nil, fmt.Errorf("class %q: %w", c.Name, err)
		}
		def.Classes = append(def.Classes, nested)
	}

	cls, err := classdef.Build(def, nil)
	if err != nil {
		return nil, fmt.Errorf("class %q: %w", c.Name, err)
	}
	return cls, nil
}

func (f functionDoc) build() (*pytd.Function, error) {
	if len(f.Signatures) == 0 {
		return nil, &DecodeError{Message: fmt.Sprintf("function %q has no signatures", f.Name)}
	}
	fn := &pytd.Function{
		Name:        f.Name,
		MethodKind:  pytd.MethodKind(f.Kind),
		IsAbstract:  f.Abstract,
		IsCoroutine: f.Coroutine,
	}
	for _, s := range f.Signatures {
		fn.Signatures = append(fn.Signatures, s.build())
	}
	return fn, nil
}

func (s signatureDoc) build() *pytd.Signature {
	sig := &pytd.Signature{
		ReturnType: s.Returns.get(),
		Template:   buildTemplate(s.Template),
	}
	for _, p := range s.Params {
		sig.Params = append(sig.Params, p.build())
	}
	if s.StarArgs != nil {
		sig.StarArgs = s.StarArgs.build()
	}
	if s.StarStarArgs != nil {
		sig.StarStarArgs = s.StarStarArgs.build()
	}
	for _, e := range s.Exceptions {
		sig.Exceptions = append(sig.Exceptions, e.Type)
	}
	return sig
}

func (p paramDoc) build() *pytd.Parameter {
	return &pytd.Parameter{
		Name:        p.Name,
		Type:        p.Type.get(),
		Optional:    p.Optional,
		KwOnly:      p.KwOnly,
		MutatedType: p.Mutated.get(),
	}
}

func (t *typeExpr) get() pytd.Type {
	if t == nil {
		return nil
	}
	return t.Type
}

func buildTemplate(items []templateExpr) []*pytd.TemplateItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]*pytd.TemplateItem, 0, len(items))
	for _, it := range items {
		out = append(out, &pytd.TemplateItem{Param: it.Param})
	}
	return out
}

// ---------- tree -> document ----------

func moduleToDoc(m *pytd.Module) (*moduleDoc, error) {
	doc := &moduleDoc{Name: m.Name}
	for _, tp := range m.TypeParams {
		doc.TypeParams = append(doc.TypeParams, typeExpr{tp})
	}
	for _, c := range m.Constants {
		doc.Constants = append(doc.Constants, constantToDoc(c))
	}
	for _, a := range m.Aliases {
		ad, err := aliasToDoc(a)
		if err != nil {
			return nil, err
		}
		doc.Aliases = append(doc.Aliases, ad)
	}
	for _, c := range m.Classes {
		doc.Classes = append(doc.Classes, classToDoc(c))
	}
	for _, f := range m.Functions {
		doc.Functions = append(doc.Functions, functionToDoc(f))
	}
	return doc, nil
}

func constantToDoc(c *pytd.Constant) constantDoc {
	return constantDoc{Name: c.Name, Type: typeExpr{c.Type}}
}

func aliasToDoc(a *pytd.Alias) (aliasDoc, error) {
	doc := aliasDoc{Name: a.Name}
	switch t := a.Type.(type) {
	case *pytd.Function:
		fd := functionToDoc(t)
		doc.Function = &fd
	case *pytd.Constant:
		doc.Constant = &typeExpr{t.Type}
	case *pytd.ModuleRef:
		doc.Module = t.ModuleName
	case pytd.Type:
		doc.Type = &typeExpr{t}
	default:
		return doc, &DecodeError{Message: fmt.Sprintf("alias %q has unsupported target", a.Name)}
	}
	return doc, nil
}

func classToDoc(c *pytd.Class) classDoc {
	doc := classDoc{Name: c.Name}
	for _, p := range c.Parents {
		doc.Bases = append(doc.Bases, baseExpr{p})
	}
	if c.Metaclass != nil {
		doc.Keywords = keywordList{{Name: "metaclass", Type: c.Metaclass}}
	}
	for _, d := range c.Decorators {
		doc.Decorators = append(doc.Decorators, d.Name)
	}
	if c.Slots != nil {
		slots := append([]string{}, c.Slots...)
		doc.Slots = &slots
	}
	doc.Template = templateToDoc(c.Template)
	for _, k := range c.Constants {
		doc.Constants = append(doc.Constants, constantToDoc(k))
	}
	for _, f := range c.Methods {
		doc.Methods = append(doc.Methods, functionToDoc(f))
	}
	for _, nested := range c.Classes {
		doc.Classes = append(doc.Classes, classToDoc(nested))
	}
	return doc
}

func functionToDoc(f *pytd.Function) functionDoc {
	doc := functionDoc{
		Name:      f.Name,
		Kind:      methodKind(f.MethodKind),
		Abstract:  f.IsAbstract,
		Coroutine: f.IsCoroutine,
	}
	for _, s := range f.Signatures {
		sd := signatureDoc{
			Returns:  optType(s.ReturnType),
			Template: templateToDoc(s.Template),
		}
		for _, p := range s.Params {
			sd.Params = append(sd.Params, paramToDoc(p))
		}
		if s.StarArgs != nil {
			pd := paramToDoc(s.StarArgs)
			sd.StarArgs = &pd
		}
		if s.StarStarArgs != nil {
			pd := paramToDoc(s.StarStarArgs)
			sd.StarStarArgs = &pd
		}
		for _, e := range s.Exceptions {
			sd.Exceptions = append(sd.Exceptions, typeExpr{e})
		}
		doc.Signatures = append(doc.Signatures, sd)
	}
	return doc
}

func paramToDoc(p *pytd.Parameter) paramDoc {
	return paramDoc{
		Name:     p.Name,
		Type:     optType(p.Type),
		Optional: p.Optional,
		KwOnly:   p.KwOnly,
		Mutated:  optType(p.MutatedType),
	}
}

func templateToDoc(items []*pytd.TemplateItem) []templateExpr {
	var out []templateExpr
	for _, it := range items {
		out = append(out, templateExpr{Param: it.Param})
	}
	return out
}

func optType(t pytd.Type) *typeExpr {
	if t == nil {
		return nil
	}
	return &typeExpr{t}
}
