package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/stubkit/pkg/format"
	"github.com/leapstack-labs/stubkit/pkg/pytd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
name: m
type_params:
  - {typevar: T, bound: builtins.int}
constants:
  - {name: x, type: builtins.int}
  - name: y
    type: {union: [builtins.str, {literal: 1}, {literal: {bytes: "ab"}}, {literal: null}]}
aliases:
  - {name: os, module: os}
  - {name: Alias, type: {generic: builtins.list, args: [builtins.str]}}
  - name: dataclass
    function:
      name: dataclasses.dataclass
      signatures:
        - returns: any
classes:
  - name: A
    bases: [{generic: typing.Protocol, args: [{typevar: T}]}]
    keywords: {metaclass: abc.ABCMeta}
    decorators: [dataclass, type_check_only]
    slots: [b, a]
    template: [T]
    constants:
      - {name: attr, type: {tuple: [builtins.int, builtins.str]}}
    methods:
      - name: f
        kind: staticmethod
        abstract: true
        signatures:
          - params:
              - {name: a, type: {callable: [builtins.int], returns: nothing}, optional: true}
              - {name: k, type: builtins.bool, kwonly: true, mutated: builtins.str}
            starargs: {name: args, type: any}
            returns: {intersection: [m.A, m.B]}
            exceptions: [builtins.ValueError]
functions:
  - name: g
    coroutine: true
    signatures:
      - returns: {class: m.A}
        template: [{typevar: S, constraints: [builtins.int, builtins.str], scope: m.g}]
`

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "m", m.Name)
	require.Len(t, m.TypeParams, 1)
	assert.Equal(t, "T", m.TypeParams[0].Name)
	assert.Equal(t, &pytd.NamedType{Name: "builtins.int"}, m.TypeParams[0].Bound)

	require.Len(t, m.Constants, 2)
	u, ok := m.Constants[1].Type.(*pytd.UnionType)
	require.True(t, ok)
	require.Len(t, u.Types, 4)
	assert.Equal(t, pytd.IntLiteral(1), u.Types[1])
	assert.Equal(t, pytd.BytesLiteral("ab"), u.Types[2])
	assert.Equal(t, &pytd.NamedType{Name: "NoneType"}, u.Types[3])

	require.Len(t, m.Aliases, 3)
	assert.Equal(t, &pytd.ModuleRef{Name: "os", ModuleName: "os"}, m.Aliases[0].Type)

	cls := m.Lookup("A")
	require.NotNil(t, cls)
	// Protocol[T] expands to Generic[T], Protocol.
	require.Len(t, cls.Parents, 2)
	assert.Equal(t, "typing.Generic", cls.Parents[0].(*pytd.GenericType).Base.(*pytd.NamedType).Name)
	assert.Equal(t, &pytd.NamedType{Name: "typing.Protocol"}, cls.Parents[1])
	assert.Equal(t, &pytd.NamedType{Name: "abc.ABCMeta"}, cls.Metaclass)
	require.Len(t, cls.Decorators, 1)
	assert.IsType(t, &pytd.Function{}, cls.Decorators[0].Type)
	assert.Equal(t, []string{"b", "a"}, cls.Slots)
	require.Len(t, cls.Template, 1)
	assert.Equal(t, "T", cls.Template[0].GetName())

	f := cls.Methods[0]
	assert.Equal(t, pytd.MethodKindStatic, f.MethodKind)
	assert.True(t, f.IsAbstract)
	sig := f.Signatures[0]
	require.Len(t, sig.Params, 2)
	callable, ok := sig.Params[0].Type.(*pytd.CallableType)
	require.True(t, ok)
	assert.Equal(t, "typing.Callable", callable.Base.(*pytd.NamedType).Name)
	assert.Equal(t, &pytd.NothingType{}, callable.Ret())
	assert.True(t, sig.Params[0].Optional)
	assert.True(t, sig.Params[1].KwOnly)
	assert.NotNil(t, sig.Params[1].MutatedType)
	assert.Equal(t, "args", sig.StarArgs.Name)
	assert.Nil(t, sig.StarStarArgs)

	g := m.Functions[0]
	assert.True(t, g.IsCoroutine)
	assert.Equal(t, &pytd.ClassType{Name: "m.A"}, g.Signatures[0].ReturnType)
	assert.Equal(t, "m.g", g.Signatures[0].Template[0].Param.Scope)
}

func TestEncode_RoundTrip(t *testing.T) {
	m, err := Decode([]byte(sampleDoc))
	require.NoError(t, err)

	data, err := Encode(m)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err, string(data))
	assert.True(t, pytd.Equal(m, back), string(data))

	// Encoding is stable.
	again, err := Encode(back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestEncode_KeywordNames(t *testing.T) {
	m := &pytd.Module{
		Name: "m",
		Constants: []*pytd.Constant{
			{Name: "a", Type: &pytd.NamedType{Name: "any"}},
			{Name: "b", Type: &pytd.AnythingType{}},
			{Name: "c", Type: pytd.StrLiteral("1")},
		},
	}
	data, err := Encode(m)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, &pytd.NamedType{Name: "any"}, back.Constants[0].Type)
	assert.Equal(t, &pytd.AnythingType{}, back.Constants[1].Type)
	assert.Equal(t, pytd.StrLiteral("1"), back.Constants[2].Type)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		errMsg  string
		unknown string
	}{
		{
			name:   "empty",
			doc:    "",
			errMsg: "empty document",
		},
		{
			name:   "missing name",
			doc:    "constants: []\n",
			errMsg: "module name is required",
		},
		{
			name:    "unknown module field",
			doc:     "name: m\nmacros: []\n",
			unknown: "macros",
		},
		{
			name:    "unknown type key",
			doc:     "name: m\nconstants:\n  - {name: x, type: {generic: a, params: [b]}}\n",
			unknown: "params",
		},
		{
			name:   "two type forms",
			doc:    "name: m\nconstants:\n  - {name: x, type: {union: [], intersection: []}}\n",
			errMsg: "both",
		},
		{
			name:   "float literal",
			doc:    "name: m\nconstants:\n  - {name: x, type: {literal: 1.5}}\n",
			errMsg: "Invalid type `float` in Literal[1.5].",
		},
		{
			name:   "callable without return",
			doc:    "name: m\nconstants:\n  - {name: x, type: {callable: []}}\n",
			errMsg: "callable needs a returns type",
		},
		{
			name:   "bad method kind",
			doc:    "name: m\nfunctions:\n  - {name: f, kind: lambda, signatures: [{}]}\n",
			errMsg: `invalid method kind "lambda"`,
		},
		{
			name:   "function without signatures",
			doc:    "name: m\nfunctions:\n  - {name: f, signatures: []}\n",
			errMsg: `function "f" has no signatures`,
		},
		{
			name:   "alias with two targets",
			doc:    "name: m\naliases:\n  - {name: a, type: int, module: os}\n",
			errMsg: "exactly one of",
		},
		{
			name:   "module base",
			doc:    "name: m\nclasses:\n  - {name: A, bases: [{module: os}]}\n",
			errMsg: `class "A": parse error: Unexpected class base: import os`,
		},
		{
			name:   "bad keyword",
			doc:    "name: m\nclasses:\n  - {name: A, keywords: {foo: 1}}\n",
			errMsg: `Unexpected classdef kwarg "foo"`,
		},
		{
			name:   "method decorator on class",
			doc:    "name: m\nclasses:\n  - {name: A, decorators: [property]}\n",
			errMsg: "Unsupported class decorators: property",
		},
		{
			name:   "nested class error carries path",
			doc:    "name: m\nclasses:\n  - name: A\n    classes:\n      - {name: B, keywords: {foo: 1}}\n",
			errMsg: `class "A": class "B"`,
		},
		{
			name:   "malformed yaml",
			doc:    "name: m\nconstants: [\n",
			errMsg: "line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			require.Error(t, err)
			if tt.unknown != "" {
				var ue *UnknownFieldError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, tt.unknown, ue.Field)
				assert.Positive(t, ue.Line)
				return
			}
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDecode_ClassErrorsAreParseErrors(t *testing.T) {
	_, err := Decode([]byte("name: m\nclasses:\n  - {name: A, keywords: {total: 1.0}}\n"))
	var pe *pytd.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "Invalid type `float`")
}

func TestDecode_KeywordForms(t *testing.T) {
	doc := `
name: m
classes:
  - {name: A, keywords: {metaclass: {value: abc}, total: false}}
  - {name: B, keywords: {metaclass: 3}}
`
	m, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, pytd.StrLiteral("abc"), m.Classes[0].Metaclass)
	assert.Equal(t, pytd.IntLiteral(3), m.Classes[1].Metaclass)
}

func TestDecode_SlotsNilVersusEmpty(t *testing.T) {
	m, err := Decode([]byte("name: m\nclasses:\n  - {name: A}\n  - {name: B, slots: []}\n"))
	require.NoError(t, err)
	assert.Nil(t, m.Classes[0].Slots)
	assert.NotNil(t, m.Classes[1].Slots)
	assert.Empty(t, m.Classes[1].Slots)

	data, err := Encode(m)
	require.NoError(t, err)
	back, err := Decode(data)
	require.NoError(t, err)
	assert.Nil(t, back.Classes[0].Slots)
	assert.NotNil(t, back.Classes[1].Slots)
}

func TestDecode_SelfAnnotationForms(t *testing.T) {
	doc := func(selfType string) string {
		return `name: m
classes:
  - name: A
    methods:
      - name: f
        signatures:
          - params: [{name: self, type: ` + selfType + `}]
            returns: builtins.str
`
	}

	tests := []struct {
		selfType string
		expected string
	}{
		{"A", "class A:\n    def f(self) -> str: ..."},
		{"m.A", "class A:\n    def f(self: m.A) -> str: ..."},
	}
	for _, tt := range tests {
		t.Run(tt.selfType, func(t *testing.T) {
			m, err := Decode([]byte(doc(tt.selfType)))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format.Print(m, format.Options{}))
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "m.yaml")
	require.NoError(t, os.WriteFile(good, []byte("name: m\n"), 0o600))
	m, data, err := LoadFile(good)
	require.NoError(t, err)
	assert.Equal(t, "m", m.Name)
	assert.Equal(t, "name: m\n", string(data))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: m\nextra: 1\n"), 0o600))
	_, _, err = LoadFile(bad)
	var ue *UnknownFieldError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, bad, ue.File)
	assert.Equal(t, 2, ue.Line)
	assert.Contains(t, err.Error(), bad+": line 2: unknown field \"extra\"")

	_, _, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read")
}
