package traversal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecutor struct {
	submitted []*Action
	noReturn  []bool
	results   []any
}

func (e *recordingExecutor) Submit(_ context.Context, a *Action, noReturn bool) ([]any, error) {
	e.submitted = append(e.submitted, a)
	e.noReturn = append(e.noReturn, noReturn)
	return e.results, nil
}

func TestAction_Chaining(t *testing.T) {
	g := NewSource().G()

	configuration := g.StepWithParams("withSideEffect", map[string]any{"a": 1}, "a")
	assert.Equal(t, "withSideEffect", configuration.Name())
	assert.Equal(t, []any{"a"}, configuration.Args())
	assert.Equal(t, map[string]any{"a": 1}, configuration.Params())
	assert.Same(t, g, configuration.Previous())

	start := configuration.V()
	assert.Equal(t, "V", start.Name())
	assert.Empty(t, start.Args())
	assert.Empty(t, start.Params())

	regular := start.Has("property", "value")
	assert.Equal(t, "has", regular.Name())
	assert.Equal(t, []any{"property", "value"}, regular.Args())
	assert.Same(t, start, regular.Previous())
	assert.Same(t, configuration, regular.Previous().Previous())
	assert.True(t, regular.Previous().Previous().Previous().IsRoot())
}

func TestAction_ChainingDoesNotMutateReceiver(t *testing.T) {
	base := Anon().V()
	a := base.Out("knows")
	b := base.In("created")

	assert.Same(t, base, a.Previous())
	assert.Same(t, base, b.Previous())
	assert.Equal(t, "out", a.Name())
	assert.Equal(t, "in", b.Name())
}

func TestAction_StepCopiesArguments(t *testing.T) {
	args := []any{"name", "x"}
	a := Anon().V().Step("has", args...)
	args[0] = "mutated"

	assert.Equal(t, []any{"name", "x"}, a.Args())
}

func TestAction_GenericStep(t *testing.T) {
	root := Anon()
	a := root.StepWithParams("step", map[string]any{"param1": 1, "param2": 2}, "arg1", "arg2")

	assert.Equal(t, "step", a.Name())
	assert.Equal(t, []any{"arg1", "arg2"}, a.Args())
	assert.Equal(t, map[string]any{"param1": 1, "param2": 2}, a.Params())
	assert.Same(t, root, a.Previous())
	assert.False(t, a.IsSupportedStep())
}

func TestAction_StepClassification(t *testing.T) {
	root := Anon()

	tests := []struct {
		name          string
		start         bool
		configuration bool
		regular       bool
		supported     bool
	}{
		{name: "V", start: true, regular: true, supported: true},
		{name: "withSideEffect", configuration: true, supported: true},
		{name: "has", regular: true, supported: true},
		{name: "some_step"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := root.Step(tt.name)
			assert.Equal(t, tt.start, a.IsStartStep())
			assert.Equal(t, tt.configuration, a.IsConfigurationStep())
			assert.Equal(t, tt.regular, a.IsRegularStep())
			assert.Equal(t, tt.supported, a.IsSupportedStep())
		})
	}
}

func TestAction_Shortcut(t *testing.T) {
	sc := NewShortcuts(Shortcut{Name: "cut", Build: func(t *Action, _ []any, _ map[string]any) *Action { return nil }})
	root := NewSource(WithShortcuts(sc)).G()

	t.Run("returns the shortcut", func(t *testing.T) {
		got := root.Step("cut").Shortcut()
		require.NotNil(t, got)
		assert.Equal(t, "cut", got.Name)
	})

	t.Run("returns nil for a real step", func(t *testing.T) {
		assert.Nil(t, root.V().Shortcut())
	})

	t.Run("shortcut calls keep args and params", func(t *testing.T) {
		a := root.V().StepWithParams("cut", map[string]any{"param1": 1}, "arg1")
		assert.Equal(t, []any{"arg1"}, a.Args())
		assert.Equal(t, map[string]any{"param1": 1}, a.Params())
	})
}

func TestAction_Equal(t *testing.T) {
	build := func(nested *Action) *Action {
		return Anon().V().Has("property", "value").Where(nested)
	}

	t.Run("equal when every step matches", func(t *testing.T) {
		a := build(Anon().Has("property", "value"))
		b := build(Anon().Has("property", "value"))
		assert.True(t, a.Equal(b))
	})

	t.Run("differs in a nested traversal", func(t *testing.T) {
		a := build(Anon().Has("property", "value"))
		b := build(Anon().V("id"))
		assert.False(t, a.Equal(b))
	})

	t.Run("differs in a middle step", func(t *testing.T) {
		a := Anon().V().Has("a", 1).Count()
		b := Anon().V().Has("a", 2).Count()
		assert.False(t, a.Equal(b))
	})

	t.Run("differs in length", func(t *testing.T) {
		assert.False(t, Anon().V().Equal(Anon().V().Count()))
		assert.False(t, Anon().V().Count().Equal(Anon().V()))
	})

	t.Run("differs in params", func(t *testing.T) {
		a := Anon().StepWithParams("V", map[string]any{"x": 1})
		b := Anon().StepWithParams("V", map[string]any{"x": 2})
		assert.False(t, a.Equal(b))
	})

	t.Run("predicates and typed values", func(t *testing.T) {
		a := Anon().V().Has("age", P.Gt(Typed("Int64", 30)))
		b := Anon().V().Has("age", P.Gt(Typed("Int64", 30)))
		c := Anon().V().Has("age", P.Gt(Typed("Int32", 30)))
		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(c))
	})
}

func TestAction_Terminals(t *testing.T) {
	t.Run("anonymous traversal has no executor", func(t *testing.T) {
		_, err := Anon().V().ToList(context.Background())
		assert.ErrorIs(t, err, ErrNoExecutor)
		assert.ErrorIs(t, Anon().V().Iterate(context.Background()), ErrNoExecutor)
	})

	t.Run("ToList and Next submit with results", func(t *testing.T) {
		exec := &recordingExecutor{results: []any{"a", "b"}}
		g := NewSource(WithExecutor(exec)).G()

		list, err := g.V().ToList(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b"}, list)

		first, err := g.V().Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a", first)
		assert.Equal(t, []bool{false, false}, exec.noReturn)
	})

	t.Run("Next on empty result", func(t *testing.T) {
		g := NewSource(WithExecutor(&recordingExecutor{})).G()
		first, err := g.V().Next(context.Background())
		require.NoError(t, err)
		assert.Nil(t, first)
	})

	t.Run("Iterate asks for no result", func(t *testing.T) {
		exec := &recordingExecutor{}
		g := NewSource(WithExecutor(exec)).G()
		require.NoError(t, g.AddV("person").Iterate(context.Background()))
		assert.Equal(t, []bool{true}, exec.noReturn)
	})
}

func TestAction_SessionBinding(t *testing.T) {
	exec := &recordingExecutor{}
	src := NewSource(WithExecutor(exec))
	bound := src.WithSession("529962d2-374b-4470-915f-cf452bead1be", exec)

	assert.Empty(t, src.G().V().SessionID())
	assert.Equal(t, "529962d2-374b-4470-915f-cf452bead1be", bound.G().V().Has("a", 1).SessionID())
	assert.Empty(t, bound.Anon().V().SessionID())
}

func TestAction_String(t *testing.T) {
	g := NewSource(WithExecutor(&recordingExecutor{})).G()
	a := g.V().Has("person", "name", P.Within("a", "b")).Where(Anon().Out("knows")).Values(T.ID)

	assert.Equal(t, `g.V().has("person", "name", P.within(["a", "b"])).where(__.out("knows")).values(T.id)`, a.String())
}
