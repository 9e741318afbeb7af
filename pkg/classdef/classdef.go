// Package classdef applies the construction rules for class definitions:
// which bases, header keywords and decorators a class may carry.
//
// Every producer of pytd trees builds classes through this package so that
// the printer and the transforms can rely on the invariants it enforces.
package classdef

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/stubkit/pkg/pytd"
)

const (
	protocolName   = "typing.Protocol"
	genericName    = "typing.Generic"
	namedTupleName = "typing.NamedTuple"

	// typeCheckOnly is dropped from class decorators before they reach the tree.
	typeCheckOnly = "type_check_only"
)

// methodOnlyDecorators may decorate functions but never classes.
var methodOnlyDecorators = map[string]bool{
	"property":     true,
	"classmethod":  true,
	"staticmethod": true,
	"overload":     true,
}

// NameMatcher reports whether a name written in source refers to the fully
// qualified target name, e.g. whether "Protocol" means "typing.Protocol".
type NameMatcher func(name, target string) bool

// MatchTypingName matches a name against a typing target either exactly or
// by its last segment when the name is bare or comes from typing or
// typing_extensions.
func MatchTypingName(name, target string) bool {
	if name == target {
		return true
	}
	_, targetSuffix := splitName(target)
	prefix, suffix := splitName(name)
	if suffix != targetSuffix {
		return false
	}
	return prefix == "" || prefix == "typing" || prefix == "typing_extensions"
}

// GetBases validates and rewrites the parent list of a class.
//
// Protocol[T, ...] expands to Generic[T, ...] followed by a bare Protocol.
// A bare NamedTuple may appear at most once. Anything that is not a type
// expression is rejected.
func GetBases(bases []pytd.Node, match NameMatcher) ([]pytd.Type, error) {
	if match == nil {
		match = MatchTypingName
	}
	out := make([]pytd.Type, 0, len(bases))
	namedTupleIndex := -1
	for i, base := range bases {
		if named, ok := base.(pytd.Named); ok && isType(base) && named.GetName() != "" && match(named.GetName(), protocolName) {
			if g, ok := base.(*pytd.GenericType); ok {
				out = append(out, &pytd.GenericType{
					Base:   &pytd.NamedType{Name: genericName},
					Params: g.Params,
				})
			}
			out = append(out, &pytd.NamedType{Name: protocolName})
			continue
		}
		if n, ok := base.(*pytd.NamedType); ok && n.Name == namedTupleName {
			if namedTupleIndex >= 0 {
				return nil, pytd.Errorf("cannot inherit from bare NamedTuple more than once")
			}
			namedTupleIndex = i
			out = append(out, n)
			continue
		}
		t, ok := base.(pytd.Type)
		if !ok {
			return nil, pytd.Errorf("Unexpected class base: %s", describe(base))
		}
		out = append(out, t)
	}
	return out, nil
}

// Keyword is a "name=value" pair from a class header.
// Exactly one of Type and Value is set.
type Keyword struct {
	Name  string
	Type  pytd.Type
	Value *pytd.Pyval
}

// ValidKeyword is a checked class header keyword.
type ValidKeyword struct {
	Name  string
	Value pytd.Type
}

// GetKeywords checks class header keywords. Only metaclass and total are
// accepted; constant values are converted to literal types.
func GetKeywords(keywords []Keyword) ([]ValidKeyword, error) {
	out := make([]ValidKeyword, 0, len(keywords))
	for _, k := range keywords {
		if k.Name != "metaclass" && k.Name != "total" {
			return nil, pytd.Errorf("Unexpected classdef kwarg %q", k.Name)
		}
		var value pytd.Type
		if k.Value != nil {
			lit, err := k.Value.ToLiteral()
			if err != nil {
				return nil, err
			}
			value = lit
		} else {
			value = k.Type
		}
		out = append(out, ValidKeyword{Name: k.Name, Value: value})
	}
	return out, nil
}

// GetDecorators validates class decorators and wraps each as an alias.
// Decorators are aliases because functions cannot otherwise be referenced
// as types. The lookup supplies already resolved targets; other names
// become named types.
func GetDecorators(names []string, lookup map[string]pytd.Node) ([]*pytd.Alias, error) {
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if name != typeCheckOnly {
			kept = append(kept, name)
		}
	}

	var unsupported []string
	seen := make(map[string]bool)
	for _, name := range kept {
		if methodOnlyDecorators[name] && !seen[name] {
			seen[name] = true
			unsupported = append(unsupported, name)
		}
	}
	if len(unsupported) > 0 {
		sort.Strings(unsupported)
		return nil, pytd.Errorf("Unsupported class decorators: %s", strings.Join(unsupported, ", "))
	}

	out := make([]*pytd.Alias, 0, len(kept))
	for _, name := range kept {
		var target pytd.Node
		if t, ok := lookup[name]; ok && t != nil {
			target = t
		} else {
			target = &pytd.NamedType{Name: name}
		}
		out = append(out, &pytd.Alias{Name: name, Type: target})
	}
	return out, nil
}

func isType(n pytd.Node) bool {
	_, ok := n.(pytd.Type)
	return ok
}

func splitName(name string) (prefix, suffix string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func describe(n pytd.Node) string {
	switch n := n.(type) {
	case nil:
		return "None"
	case *pytd.ModuleRef:
		return fmt.Sprintf("import %s", n.ModuleName)
	case pytd.Named:
		return fmt.Sprintf("%s(%s)", n.Kind(), n.GetName())
	}
	return n.Kind()
}

// ClassDef is the raw material of a class declaration before validation.
type ClassDef struct {
	Name            string
	Bases           []pytd.Node
	Keywords        []Keyword
	Decorators      []string
	DecoratorLookup map[string]pytd.Node
	Methods         []*pytd.Function
	Constants       []*pytd.Constant
	Classes         []*pytd.Class
	Slots           []string
	Template        []*pytd.TemplateItem
}

// Build validates a class definition and assembles the class node.
// The metaclass keyword, when present, becomes the class metaclass; total
// is accepted but not stored.
func Build(def ClassDef, match NameMatcher) (*pytd.Class, error) {
	parents, err := GetBases(def.Bases, match)
	if err != nil {
		return nil, err
	}
	keywords, err := GetKeywords(def.Keywords)
	if err != nil {
		return nil, err
	}
	decorators, err := GetDecorators(def.Decorators, def.DecoratorLookup)
	if err != nil {
		return nil, err
	}

	var metaclass pytd.Type
	for _, k := range keywords {
		if k.Name == "metaclass" {
			metaclass = k.Value
		}
	}

	return &pytd.Class{
		Name:       def.Name,
		Metaclass:  metaclass,
		Parents:    parents,
		Methods:    def.Methods,
		Constants:  def.Constants,
		Classes:    def.Classes,
		Decorators: decorators,
		Slots:      def.Slots,
		Template:   def.Template,
	}, nil
}
