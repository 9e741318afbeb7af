package visit

import (
	"testing"

	"github.com/leapstack-labs/stubkit/pkg/pytd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModule() *pytd.Module {
	intT := &pytd.NamedType{Name: "builtins.int"}
	return &pytd.Module{
		Name:      "m",
		Constants: []*pytd.Constant{{Name: "x", Type: intT}},
		Classes: []*pytd.Class{{
			Name:    "A",
			Parents: []pytd.Type{&pytd.NamedType{Name: "builtins.object"}},
			Methods: []*pytd.Function{{
				Name: "f",
				Signatures: []*pytd.Signature{{
					Params:     []*pytd.Parameter{{Name: "self", Type: &pytd.ClassType{Name: "m.A"}}},
					ReturnType: &pytd.NamedType{Name: "builtins.str"},
				}},
			}},
		}},
	}
}

type recorder struct {
	events []string
	skip   string
}

func (r *recorder) Enter(n pytd.Node) bool {
	r.events = append(r.events, "enter "+n.Kind())
	return n.Kind() != r.skip
}

func (r *recorder) Leave(n pytd.Node) {
	r.events = append(r.events, "leave "+n.Kind())
}

func TestWalk_Order(t *testing.T) {
	rec := &recorder{}
	Walk(sampleModule(), rec)

	assert.Equal(t, []string{
		"enter Module",
		"enter Constant", "enter NamedType", "leave NamedType", "leave Constant",
		"enter Class",
		"enter NamedType", "leave NamedType",
		"enter Function", "enter Signature",
		"enter Parameter", "enter ClassType", "leave ClassType", "leave Parameter",
		"enter NamedType", "leave NamedType",
		"leave Signature", "leave Function",
		"leave Class",
		"leave Module",
	}, rec.events)
}

func TestWalk_SkipSubtree(t *testing.T) {
	rec := &recorder{skip: "Class"}
	Walk(sampleModule(), rec)

	assert.Contains(t, rec.events, "enter Class")
	assert.NotContains(t, rec.events, "leave Class")
	assert.NotContains(t, rec.events, "enter Function")
}

func TestInspect(t *testing.T) {
	var names []string
	Inspect(sampleModule(), func(n pytd.Node) bool {
		if nt, ok := n.(*pytd.NamedType); ok {
			names = append(names, nt.Name)
		}
		return true
	})
	assert.Equal(t, []string{"builtins.int", "builtins.object", "builtins.str"}, names)
}

func TestChildren_SkipsUnset(t *testing.T) {
	sig := &pytd.Signature{ReturnType: &pytd.AnythingType{}}
	children := Children(sig)
	require.Len(t, children, 1)
	assert.Equal(t, "AnythingType", children[0].Kind())

	assert.Empty(t, Children(&pytd.NamedType{Name: "x"}))
}

func TestTransform_Identity(t *testing.T) {
	m := sampleModule()
	out := TransformModule(m, RewriteFunc(func(_, n pytd.Node) pytd.Node { return n }))
	assert.Same(t, m, out)
}

func TestTransform_SharesUnchangedSubtrees(t *testing.T) {
	m := sampleModule()
	out := TransformModule(m, RewriteFunc(func(_, n pytd.Node) pytd.Node {
		if nt, ok := n.(*pytd.NamedType); ok && nt.Name == "builtins.int" {
			return &pytd.NamedType{Name: "builtins.float"}
		}
		return n
	}))

	require.NotSame(t, m, out)
	assert.Equal(t, "builtins.float", out.Constants[0].Type.(*pytd.NamedType).Name)
	assert.Equal(t, "builtins.int", m.Constants[0].Type.(*pytd.NamedType).Name, "input must not change")
	assert.Same(t, m.Classes[0], out.Classes[0])
}

func TestTransform_ReceivesOriginal(t *testing.T) {
	m := sampleModule()
	var sawChangedChild bool
	TransformModule(m, RewriteFunc(func(orig, n pytd.Node) pytd.Node {
		switch n := n.(type) {
		case *pytd.ClassType:
			return &pytd.NamedType{Name: n.Name}
		case *pytd.Parameter:
			_, wasClassType := orig.(*pytd.Parameter).Type.(*pytd.ClassType)
			_, isNamed := n.Type.(*pytd.NamedType)
			sawChangedChild = wasClassType && isNamed && orig != pytd.Node(n)
		}
		return n
	}))
	assert.True(t, sawChangedChild)
}

type enterSkipper struct {
	rewritten []string
	left      []string
}

func (e *enterSkipper) Enter(n pytd.Node) bool { return n.Kind() != "Class" }
func (e *enterSkipper) Leave(n pytd.Node)      { e.left = append(e.left, n.Kind()) }
func (e *enterSkipper) Rewrite(_, n pytd.Node) pytd.Node {
	e.rewritten = append(e.rewritten, n.Kind())
	return n
}

func TestTransform_CallsHooks(t *testing.T) {
	e := &enterSkipper{}
	Transform(sampleModule(), e)

	assert.Equal(t, []string{"NamedType", "Constant", "Module"}, e.rewritten)
	assert.Equal(t, e.rewritten, e.left)
}

func TestTransform_WrongKindPanics(t *testing.T) {
	m := sampleModule()
	assert.Panics(t, func() {
		TransformModule(m, RewriteFunc(func(_, n pytd.Node) pytd.Node {
			if _, ok := n.(*pytd.Constant); ok {
				return &pytd.NamedType{Name: "oops"}
			}
			return n
		}))
	})
}

func TestTransform_ClearsOptionalField(t *testing.T) {
	p := &pytd.Parameter{Name: "x", Type: &pytd.AnythingType{}, MutatedType: &pytd.NothingType{}}
	out := Transform(p, RewriteFunc(func(_, n pytd.Node) pytd.Node {
		if _, ok := n.(*pytd.NothingType); ok {
			return nil
		}
		return n
	})).(*pytd.Parameter)
	assert.Nil(t, out.MutatedType)
	assert.NotNil(t, p.MutatedType)
}
