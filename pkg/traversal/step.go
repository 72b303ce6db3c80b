package traversal

import (
	"maps"
	"reflect"
	"slices"
)

// Step is a single named operation with its positional arguments and named parameters.
// Steps are never modified after construction.
type Step struct {
	Name   string
	Args   []any
	Params map[string]any
}

// NewStep copies args and params so later changes by the caller do not leak into the step.
func NewStep(name string, args []any, params map[string]any) Step {
	s := Step{Name: name, Args: slices.Clone(args)}
	if len(params) > 0 {
		s.Params = maps.Clone(params)
	}
	return s
}

// Equal reports whether both steps have the same name, arguments and parameters.
// Nested traversals and programs are compared structurally.
func (s Step) Equal(other Step) bool {
	if s.Name != other.Name || len(s.Args) != len(other.Args) || len(s.Params) != len(other.Params) {
		return false
	}
	for i := range s.Args {
		if !valuesEqual(s.Args[i], other.Args[i]) {
			return false
		}
	}
	for k, v := range s.Params {
		ov, ok := other.Params[k]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case *Action:
		bv, ok := b.(*Action)
		return ok && av.Equal(bv)
	case *Program:
		bv, ok := b.(*Program)
		return ok && av.Equal(bv)
	case Predicate:
		bv, ok := b.(Predicate)
		return ok && av.Namespace == bv.Namespace && av.Name == bv.Name &&
			av.Type == bv.Type && valuesEqual(av.Value, bv.Value)
	case TypedValue:
		bv, ok := b.(TypedValue)
		return ok && av.Type == bv.Type && valuesEqual(av.Value, bv.Value)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}
