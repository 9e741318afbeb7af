package transform

import (
	"strings"

	"github.com/leapstack-labs/stubkit/pkg/pytd"
	"github.com/leapstack-labs/stubkit/pkg/visit"
)

// RenameModule renames module oldName to newName throughout m.
//
// A name is rewritten only when oldName is its whole leading part: with
// oldName "foo", "foo.Bar" becomes "<newName>.Bar", while "foo.Bar.Baz" (a nested name)
// and "foobar.Baz" are left alone. An empty newName strips the prefix.
func RenameModule(m *pytd.Module, oldName, newName string) (*pytd.Module, error) {
	if oldName == "" {
		return nil, pytd.Errorf("cannot rename module with an empty name")
	}
	r := renamer{old: oldName + "."}
	if newName != "" {
		r.new = newName + "."
	}
	out := visit.TransformModule(m, r)
	if out.Name != newName {
		cp := *out
		cp.Name = newName
		out = &cp
	}
	return out, nil
}

type renamer struct {
	old, new string
}

func (r renamer) rename(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, r.old)
	if !ok || strings.Contains(rest, ".") {
		return name, false
	}
	return r.new + rest, true
}

func (r renamer) Rewrite(_, n pytd.Node) pytd.Node {
	switch n := n.(type) {
	case *pytd.NamedType:
		if name, ok := r.rename(n.Name); ok {
			return &pytd.NamedType{Name: name}
		}
	case *pytd.ClassType:
		if name, ok := r.rename(n.Name); ok {
			return &pytd.ClassType{Name: name}
		}
	case *pytd.Constant:
		if name, ok := r.rename(n.Name); ok {
			cp := *n
			cp.Name = name
			return &cp
		}
	case *pytd.Alias:
		if name, ok := r.rename(n.Name); ok {
			cp := *n
			cp.Name = name
			return &cp
		}
	case *pytd.Function:
		if name, ok := r.rename(n.Name); ok {
			cp := *n
			cp.Name = name
			return &cp
		}
	case *pytd.Class:
		if name, ok := r.rename(n.Name); ok {
			cp := *n
			cp.Name = name
			return &cp
		}
	case *pytd.TypeParameter:
		if scope, ok := r.rename(n.Scope); ok {
			cp := *n
			cp.Scope = scope
			return &cp
		}
	}
	return n
}
