// Package bytecode turns flattened traversals into the GraphSON bytecode document
// sent in the gremlin argument of a request.
package bytecode

import (
	"fmt"

	"github.com/aixgo-dev/gremlin/pkg/traversal"
)

// noneStep asks the server to discard the traversal result.
const noneStep = "none"

// Document is the serialized form of a program. Each instruction is
// [name, arg..., params?].
type Document struct {
	Step   [][]any `json:"step,omitempty"`
	Source [][]any `json:"source,omitempty"`
}

// Empty reports whether the document holds no instruction.
func (d Document) Empty() bool {
	return len(d.Step) == 0 && len(d.Source) == 0
}

// Tagged is a GraphSON typed value.
type Tagged struct {
	Type  string `json:"@type"`
	Value any    `json:"@value"`
}

// PredicateValue is the payload of a serialized predicate.
type PredicateValue struct {
	Predicate string `json:"predicate"`
	Value     any    `json:"value"`
}

// Tag wraps a document so it can be sent as the gremlin argument of a request
// or nested inside another document.
func Tag(doc Document) Tagged {
	return Tagged{Type: "g:Bytecode", Value: doc}
}

type options struct {
	noReturn bool
}

// Option configures serialization.
type Option func(*options)

// WithNoReturn appends a terminal none step so the server returns no result.
func WithNoReturn() Option {
	return func(o *options) { o.noReturn = true }
}

// Serialize expands the program's shortcuts and encodes it. The output only depends
// on the program and the options.
func Serialize(p *traversal.Program, opts ...Option) (Document, error) {
	if p == nil {
		return Document{}, traversal.ErrNotTraversal
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	expanded, err := p.ApplyShortcuts()
	if err != nil {
		return Document{}, fmt.Errorf("apply shortcuts: %w", err)
	}

	var doc Document
	if steps := expanded.Steps(); len(steps) > 0 {
		if doc.Step, err = serializeSteps(steps); err != nil {
			return Document{}, err
		}
		if o.noReturn {
			doc.Step = append(doc.Step, []any{noneStep})
		}
	}
	if cfg := expanded.ConfigurationSteps(); len(cfg) > 0 {
		if doc.Source, err = serializeSteps(cfg); err != nil {
			return Document{}, err
		}
	}
	return doc, nil
}

// FromAction flattens a and serializes the resulting program.
func FromAction(a *traversal.Action, opts ...Option) (Document, error) {
	p, err := a.Program()
	if err != nil {
		return Document{}, err
	}
	return Serialize(p, opts...)
}

func serializeSteps(steps []traversal.Step) ([][]any, error) {
	out := make([][]any, len(steps))
	for i, s := range steps {
		instr, err := serializeStep(s)
		if err != nil {
			return nil, fmt.Errorf("serialize step %s: %w", s.Name, err)
		}
		out[i] = instr
	}
	return out, nil
}

func serializeStep(s traversal.Step) ([]any, error) {
	instr := make([]any, 0, len(s.Args)+2)
	instr = append(instr, s.Name)
	for _, arg := range s.Args {
		v, err := serializeArg(arg)
		if err != nil {
			return nil, err
		}
		instr = append(instr, v)
	}
	if len(s.Params) > 0 {
		params := make(map[string]any, len(s.Params))
		for k, arg := range s.Params {
			v, err := serializeArg(arg)
			if err != nil {
				return nil, err
			}
			params[k] = v
		}
		instr = append(instr, params)
	}
	return instr, nil
}

func serializeArg(arg any) (any, error) {
	switch v := arg.(type) {
	case traversal.TypedValue:
		return typed(v.Type, v.Value), nil
	case traversal.Predicate:
		value, err := serializeArg(v.Value)
		if err != nil {
			return nil, err
		}
		return Tagged{
			Type:  "g:" + v.Namespace,
			Value: PredicateValue{Predicate: v.Name, Value: typed(v.Type, value)},
		}, nil
	case traversal.WithOptions:
		return v.Value, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			s, err := serializeArg(item)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			s, err := serializeArg(item)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
		return out, nil
	case *traversal.Action:
		p, err := v.Program()
		if err != nil {
			return nil, err
		}
		return serializeArg(p)
	case *traversal.Program:
		// Nested traversals never carry the terminal none step.
		doc, err := Serialize(v)
		if err != nil {
			return nil, err
		}
		return Tag(doc), nil
	default:
		return arg, nil
	}
}

func typed(typ string, value any) any {
	if typ == "" {
		return value
	}
	return Tagged{Type: "g:" + typ, Value: value}
}
