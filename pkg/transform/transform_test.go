package transform

import (
	"testing"

	"github.com/leapstack-labs/stubkit/pkg/pytd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(name string) *pytd.NamedType { return &pytd.NamedType{Name: name} }

func sig(ret string) *pytd.Signature {
	return &pytd.Signature{ReturnType: named(ret)}
}

func unsortedModule() *pytd.Module {
	return &pytd.Module{
		Name: "m",
		Constants: []*pytd.Constant{
			{Name: "z", Type: named("builtins.int")},
			{Name: "a", Type: &pytd.UnionType{Types: []pytd.Type{named("builtins.str"), named("builtins.bytes")}}},
		},
		Functions: []*pytd.Function{
			{Name: "g", Signatures: []*pytd.Signature{sig("builtins.str"), sig("builtins.int")}},
			{Name: "f", Signatures: []*pytd.Signature{sig("builtins.int")}},
		},
		Classes: []*pytd.Class{
			{
				Name:    "B",
				Parents: []pytd.Type{named("m.Z"), named("m.A")},
				Methods: []*pytd.Function{{Name: "y"}, {Name: "x"}},
				Slots:   []string{"q", "p"},
			},
			{Name: "A"},
		},
		Aliases: []*pytd.Alias{
			{Name: "Y", Type: named("builtins.int")},
			{Name: "X", Type: named("builtins.int")},
		},
	}
}

func TestCanonicalOrdering(t *testing.T) {
	m := unsortedModule()
	out := CanonicalOrdering(m, false)

	assert.Equal(t, "a", out.Constants[0].Name)
	assert.Equal(t, "f", out.Functions[0].Name)
	assert.Equal(t, "A", out.Classes[0].Name)
	assert.Equal(t, "X", out.Aliases[0].Name)

	b := out.Classes[1]
	assert.Equal(t, "x", b.Methods[0].Name)
	assert.Equal(t, []string{"p", "q"}, b.Slots)
	assert.Equal(t, "m.Z", b.Parents[0].(*pytd.NamedType).Name, "parents keep their order")

	union := out.Constants[0].Type.(*pytd.UnionType)
	assert.Equal(t, "builtins.bytes", union.Types[0].(*pytd.NamedType).Name)

	g := out.Functions[1]
	assert.Equal(t, "builtins.str", g.Signatures[0].ReturnType.(*pytd.NamedType).Name,
		"signatures keep their order unless requested")

	assert.Equal(t, "z", m.Constants[0].Name, "input must not change")
}

func TestCanonicalOrdering_SortSignatures(t *testing.T) {
	out := CanonicalOrdering(unsortedModule(), true)
	g := out.Functions[1]
	require.Equal(t, "g", g.Name)
	assert.Equal(t, "builtins.int", g.Signatures[0].ReturnType.(*pytd.NamedType).Name)
}

func TestCanonicalOrdering_Idempotent(t *testing.T) {
	for _, sortSigs := range []bool{false, true} {
		once := CanonicalOrdering(unsortedModule(), sortSigs)
		twice := CanonicalOrdering(once, sortSigs)
		assert.True(t, pytd.Equal(once, twice))
		assert.Same(t, once, twice, "sorted input is returned as is")
	}
}

func TestCollectTypeParameters(t *testing.T) {
	t1 := &pytd.TypeParameter{Name: "T", Scope: "m.f"}
	t2 := &pytd.TypeParameter{Name: "T", Scope: "m.g"}
	s := &pytd.TypeParameter{Name: "S"}
	m := &pytd.Module{
		Name: "m",
		Functions: []*pytd.Function{
			{Name: "f", Signatures: []*pytd.Signature{{
				Params:     []*pytd.Parameter{{Name: "x", Type: t1}},
				ReturnType: &pytd.GenericType{Base: named("builtins.list"), Params: []pytd.Type{s}},
			}}},
			{Name: "g", Signatures: []*pytd.Signature{{ReturnType: t2}}},
		},
	}

	got := CollectTypeParameters(m)
	require.Len(t, got, 2)
	assert.Same(t, t1, got[0])
	assert.Same(t, s, got[1])
}

func TestExtractSuperClassNames(t *testing.T) {
	m := &pytd.Module{
		Name: "m",
		Classes: []*pytd.Class{
			{Name: "m.A", Parents: []pytd.Type{named("builtins.object")}},
			{Name: "m.B", Parents: []pytd.Type{
				&pytd.ClassType{Name: "m.A"},
				&pytd.GenericType{Base: named("typing.Generic"), Params: []pytd.Type{&pytd.TypeParameter{Name: "T"}}},
				&pytd.AnythingType{},
			}},
		},
	}

	assert.Equal(t, map[string][]string{
		"m.A": {"builtins.object"},
		"m.B": {"m.A", "typing.Generic"},
	}, ExtractSuperClassNames(m))
}

func TestExtractSuperClassNames_NestedClasses(t *testing.T) {
	inner := &pytd.Class{Name: "Inner", Parents: []pytd.Type{named("m.Base")}}
	deepest := &pytd.Class{Name: "Deepest", Parents: []pytd.Type{named("m.Inner")}}
	inner.Classes = []*pytd.Class{deepest}
	m := &pytd.Module{
		Name: "m",
		Classes: []*pytd.Class{{
			Name:    "Outer",
			Parents: []pytd.Type{named("builtins.object")},
			Classes: []*pytd.Class{inner},
		}},
	}

	assert.Equal(t, map[string][]string{
		"Outer":   {"builtins.object"},
		"Inner":   {"m.Base"},
		"Deepest": {"m.Inner"},
	}, ExtractSuperClassNames(m))
}

func TestExtractSuperClasses_CustomKey(t *testing.T) {
	a := &pytd.Class{Name: "A", Parents: []pytd.Type{named("X"), named("Y")}}
	m := &pytd.Module{Classes: []*pytd.Class{a}}

	byLen := ExtractSuperClasses(m, KeyFunc[int](func(n pytd.Node) (int, bool) {
		named, ok := n.(pytd.Named)
		if !ok {
			return 0, false
		}
		return len(named.GetName()), true
	}))
	assert.Equal(t, map[int][]int{1: {1, 1}}, byLen)
}

func TestRenameModule(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"leading segment", "foo.Bar", "baz.Bar"},
		{"nested name untouched", "foo.Bar.Baz", "foo.Bar.Baz"},
		{"similar prefix untouched", "foobar.Baz", "foobar.Baz"},
		{"other module", "os.path", "os.path"},
		{"bare module name", "foo", "foo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &pytd.Module{
				Name:      "foo",
				Constants: []*pytd.Constant{{Name: "foo.x", Type: named(tt.in)}},
			}
			out, err := RenameModule(m, "foo", "baz")
			require.NoError(t, err)
			assert.Equal(t, "baz", out.Name)
			assert.Equal(t, "baz.x", out.Constants[0].Name)
			assert.Equal(t, tt.want, out.Constants[0].Type.(*pytd.NamedType).Name)
		})
	}
}

func TestRenameModule_AllNameKinds(t *testing.T) {
	m := &pytd.Module{
		Name:       "foo",
		TypeParams: []*pytd.TypeParameter{{Name: "T", Scope: "foo.f"}},
		Classes: []*pytd.Class{{
			Name:    "foo.C",
			Parents: []pytd.Type{&pytd.ClassType{Name: "foo.Base"}},
		}},
		Functions: []*pytd.Function{{Name: "foo.f"}},
		Aliases:   []*pytd.Alias{{Name: "foo.A", Type: named("foo.C")}},
	}
	out, err := RenameModule(m, "foo", "bar")
	require.NoError(t, err)

	assert.Equal(t, "bar.f", out.TypeParams[0].Scope)
	assert.Equal(t, "bar.C", out.Classes[0].Name)
	assert.Equal(t, "bar.Base", out.Classes[0].Parents[0].(*pytd.ClassType).Name)
	assert.Equal(t, "bar.f", out.Functions[0].Name)
	assert.Equal(t, "bar.A", out.Aliases[0].Name)
	assert.Equal(t, "bar.C", out.Aliases[0].Type.(*pytd.NamedType).Name)
	assert.Equal(t, "foo.C", m.Classes[0].Name)
}

func TestRenameModule_EmptyNewName(t *testing.T) {
	m := &pytd.Module{
		Name:      "foo",
		Constants: []*pytd.Constant{{Name: "foo.x", Type: named("foo.Bar")}},
	}
	out, err := RenameModule(m, "foo", "")
	require.NoError(t, err)

	assert.Equal(t, "", out.Name)
	assert.Equal(t, "x", out.Constants[0].Name)
	assert.Equal(t, "Bar", out.Constants[0].Type.(*pytd.NamedType).Name)
}

func TestRenameModule_EmptyName(t *testing.T) {
	_, err := RenameModule(&pytd.Module{Name: "m"}, "", "x")
	var pe *pytd.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestClassTypeToNamedType(t *testing.T) {
	c := &pytd.Constant{Name: "x", Type: &pytd.UnionType{Types: []pytd.Type{
		&pytd.ClassType{Name: "m.A"}, named("builtins.int"),
	}}}
	out := ClassTypeToNamedType(c).(*pytd.Constant)
	u := out.Type.(*pytd.UnionType)
	assert.Equal(t, named("m.A"), u.Types[0])
	assert.IsType(t, &pytd.ClassType{}, c.Type.(*pytd.UnionType).Types[0])
}
