package traversal

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotTraversal is returned when flattening something that was not built from a traversal root.
	ErrNotTraversal = errors.New("not a traversal")

	// ErrConfigurationAfterStart is returned when a configuration step follows a regular step.
	ErrConfigurationAfterStart = errors.New("cannot use configuration steps after start step was used")

	// ErrNoExecutor is returned when a terminal step runs on an anonymous traversal.
	ErrNoExecutor = errors.New("traversal is not bound to an executor")
)

// Executor runs a traversal and returns its decoded results.
// noReturn asks the server to drop the traversal's natural result.
type Executor interface {
	Submit(ctx context.Context, a *Action, noReturn bool) ([]any, error)
}

// source is shared by every node of a chain. It is immutable once built.
type source struct {
	defs      *Definitions
	shortcuts *Shortcuts
	executor  Executor
	sessionID string
}

// Action is one node of a traversal. Each step call returns a new node pointing at
// its receiver, so a chain is an immutable, backward-linked list ending at a root.
// Nodes may be shared between chains and used from several goroutines.
type Action struct {
	step     Step
	previous *Action
	src      *source
	root     bool

	once       sync.Once
	program    *Program
	programErr error
}

// Source creates traversal roots bound to one executor, shortcut registry and session.
type Source struct {
	src source
}

// SourceOption configures a Source.
type SourceOption func(*source)

// WithExecutor binds terminal steps to e.
func WithExecutor(e Executor) SourceOption {
	return func(s *source) { s.executor = e }
}

// WithShortcuts makes the registry's shortcuts callable through Step.
func WithShortcuts(sc *Shortcuts) SourceOption {
	return func(s *source) { s.shortcuts = sc }
}

// WithSessionID binds traversals to a server session.
func WithSessionID(id string) SourceOption {
	return func(s *source) { s.sessionID = id }
}

// WithDefinitions replaces the embedded step definitions table.
func WithDefinitions(d *Definitions) SourceOption {
	return func(s *source) { s.defs = d }
}

// NewSource creates a traversal source.
func NewSource(opts ...SourceOption) *Source {
	s := &Source{}
	for _, opt := range opts {
		opt(&s.src)
	}
	if s.src.defs == nil {
		s.src.defs = DefaultDefinitions()
	}
	if s.src.shortcuts == nil {
		s.src.shortcuts = NewShortcuts()
	}
	return s
}

// G returns a traversal root ("g").
func (s *Source) G() *Action {
	src := s.src
	return &Action{src: &src, root: true}
}

// Anon returns an anonymous traversal root ("__") sharing the source's shortcuts.
// Anonymous traversals are meant to be passed as step arguments.
func (s *Source) Anon() *Action {
	src := s.src
	src.executor = nil
	src.sessionID = ""
	return &Action{src: &src, root: true}
}

// WithSession returns a copy of the source bound to sessionID and executor.
func (s *Source) WithSession(sessionID string, executor Executor) *Source {
	cp := &Source{src: s.src}
	cp.src.sessionID = sessionID
	cp.src.executor = executor
	return cp
}

// Shortcuts returns the source's shortcut registry.
func (s *Source) Shortcuts() *Shortcuts {
	return s.src.shortcuts
}

// SessionID returns the session the source is bound to, if any.
func (s *Source) SessionID() string {
	return s.src.sessionID
}

// Anon returns an anonymous traversal root without shortcuts.
func Anon() *Action {
	return NewSource().Anon()
}

// Step appends a step by name. It is the entry point used by all typed step helpers
// and allows calling steps that are missing from the definitions table.
func (a *Action) Step(name string, args ...any) *Action {
	return a.StepWithParams(name, nil, args...)
}

// StepWithParams appends a step with named parameters.
func (a *Action) StepWithParams(name string, params map[string]any, args ...any) *Action {
	return &Action{
		step:     NewStep(name, args, params),
		previous: a,
		src:      a.src,
	}
}

// Name returns the step name. Roots have no name.
func (a *Action) Name() string { return a.step.Name }

// Args returns the step's positional arguments.
func (a *Action) Args() []any { return a.step.Args }

// Params returns the step's named parameters.
func (a *Action) Params() map[string]any { return a.step.Params }

// StepRecord returns the step captured by this node.
func (a *Action) StepRecord() Step { return a.step }

// Previous returns the node this one was chained from, or nil for a root.
func (a *Action) Previous() *Action { return a.previous }

// IsRoot reports whether the node is a traversal start.
func (a *Action) IsRoot() bool { return a.root }

// SessionID returns the session the traversal is bound to, if any.
func (a *Action) SessionID() string {
	if a.src == nil {
		return ""
	}
	return a.src.sessionID
}

// Shortcuts returns the registry consulted when the traversal is compiled.
func (a *Action) Shortcuts() *Shortcuts {
	if a.src == nil {
		return NewShortcuts()
	}
	return a.src.shortcuts
}

func (a *Action) definitions() *Definitions {
	if a.src == nil || a.src.defs == nil {
		return DefaultDefinitions()
	}
	return a.src.defs
}

// IsStartStep reports whether the node's step may begin a traversal.
func (a *Action) IsStartStep() bool { return a.definitions().IsStart(a.step.Name) }

// IsConfigurationStep reports whether the node's step is a configuration step.
func (a *Action) IsConfigurationStep() bool { return a.definitions().IsConfiguration(a.step.Name) }

// IsRegularStep reports whether the node's step is a regular step.
func (a *Action) IsRegularStep() bool { return a.definitions().IsRegular(a.step.Name) }

// IsSupportedStep reports whether the node's step is known to the definitions table.
func (a *Action) IsSupportedStep() bool { return a.definitions().IsSupported(a.step.Name) }

// Shortcut returns the shortcut registered under the step name, or nil.
func (a *Action) Shortcut() *Shortcut {
	sc, ok := a.Shortcuts().Get(a.step.Name)
	if !ok {
		return nil
	}
	return &sc
}

// Equal reports whether both chains hold equal steps from tip to root.
func (a *Action) Equal(other *Action) bool {
	for x, y := a, other; ; x, y = x.previous, y.previous {
		if x == nil || y == nil {
			return x == nil && y == nil
		}
		if x == y {
			return true
		}
		if x.root != y.root || !x.step.Equal(y.step) {
			return false
		}
	}
}

// Program flattens the chain. The result is computed once per node.
func (a *Action) Program() (*Program, error) {
	a.once.Do(func() {
		a.program, a.programErr = Flatten(a)
	})
	return a.program, a.programErr
}

func (a *Action) executor() (Executor, error) {
	if a.src == nil || a.src.executor == nil {
		return nil, ErrNoExecutor
	}
	return a.src.executor, nil
}

// ToList runs the traversal and returns all results.
func (a *Action) ToList(ctx context.Context) ([]any, error) {
	exec, err := a.executor()
	if err != nil {
		return nil, err
	}
	return exec.Submit(ctx, a, false)
}

// Next runs the traversal and returns its first result, or nil when there is none.
func (a *Action) Next(ctx context.Context) (any, error) {
	results, err := a.ToList(ctx)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return results[0], nil
}

// Iterate runs the traversal for its side effects; the server returns no results.
func (a *Action) Iterate(ctx context.Context) error {
	exec, err := a.executor()
	if err != nil {
		return err
	}
	_, err = exec.Submit(ctx, a, true)
	return err
}
