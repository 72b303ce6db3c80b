package traversal

import (
	"fmt"
	"maps"
	"slices"
)

// maxShortcutDepth bounds nested shortcut expansion.
const maxShortcutDepth = 32

// Program is a flattened traversal: configuration steps followed by regular steps.
// Configuration steps can only be added while no regular step exists.
type Program struct {
	shortcuts     *Shortcuts
	defs          *Definitions
	configuration []Step
	steps         []Step
}

// NewProgram returns an empty program that resolves shortcuts through sc.
func NewProgram(sc *Shortcuts) *Program {
	if sc == nil {
		sc = NewShortcuts()
	}
	return &Program{shortcuts: sc, defs: DefaultDefinitions()}
}

// Flatten walks a chain back to its root and returns the steps in call order.
// Step arguments that are traversals become nested programs.
func Flatten(a *Action) (*Program, error) {
	if a == nil || a.src == nil {
		return nil, ErrNotTraversal
	}

	var chain []*Action
	for n := a; !n.root; n = n.previous {
		if n.previous == nil {
			return nil, ErrNotTraversal
		}
		chain = append(chain, n)
	}
	slices.Reverse(chain)

	p := &Program{shortcuts: a.Shortcuts(), defs: a.definitions()}
	for _, n := range chain {
		if err := p.Add(n.step); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add appends a step, routing tx and configuration steps to the configuration list.
func (p *Program) Add(s Step) error {
	args, err := castArgs(s.Args)
	if err != nil {
		return fmt.Errorf("step %s: %w", s.Name, err)
	}
	params, err := castParams(s.Params)
	if err != nil {
		return fmt.Errorf("step %s: %w", s.Name, err)
	}
	return p.add(Step{Name: s.Name, Args: args, Params: params})
}

func (p *Program) add(s Step) error {
	if s.Name == "tx" || p.defs.IsConfiguration(s.Name) {
		if len(p.steps) > 0 {
			return fmt.Errorf("%w: %s", ErrConfigurationAfterStart, s.Name)
		}
		p.configuration = append(p.configuration, s)
		return nil
	}
	p.steps = append(p.steps, s)
	return nil
}

func castArgs(args []any) ([]any, error) {
	if !slices.ContainsFunc(args, holdsAction) {
		return args, nil
	}
	out := make([]any, len(args))
	for i, arg := range args {
		v, err := castValue(arg)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func castParams(params map[string]any) (map[string]any, error) {
	if !slices.ContainsFunc(slices.Collect(maps.Values(params)), holdsAction) {
		return params, nil
	}
	out := make(map[string]any, len(params))
	for k, param := range params {
		v, err := castValue(param)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// castValue flattens a nested traversal, also inside lists, into a Program.
func castValue(v any) (any, error) {
	switch val := v.(type) {
	case *Action:
		return val.Program()
	case []any:
		return castArgs(val)
	default:
		return v, nil
	}
}

func holdsAction(v any) bool {
	switch val := v.(type) {
	case *Action:
		return true
	case []any:
		return slices.ContainsFunc(val, holdsAction)
	default:
		return false
	}
}

// ConfigurationSteps returns the configuration steps. The slice must not be modified.
func (p *Program) ConfigurationSteps() []Step { return p.configuration }

// Steps returns the regular steps. The slice must not be modified.
func (p *Program) Steps() []Step { return p.steps }

// Shortcuts returns the registry the program resolves shortcuts with.
func (p *Program) Shortcuts() *Shortcuts { return p.shortcuts }

// Empty reports whether the program holds no step at all.
func (p *Program) Empty() bool {
	return len(p.configuration) == 0 && len(p.steps) == 0
}

// Equal compares both step lists structurally.
func (p *Program) Equal(other *Program) bool {
	if p == nil || other == nil {
		return p == other
	}
	return slices.EqualFunc(p.configuration, other.configuration, Step.Equal) &&
		slices.EqualFunc(p.steps, other.steps, Step.Equal)
}

// UsesShortcuts reports whether the program, or a program nested in its arguments,
// calls a registered shortcut.
func (p *Program) UsesShortcuts() bool {
	return p.stepsUseShortcuts(p.configuration) || p.stepsUseShortcuts(p.steps)
}

func (p *Program) stepsUseShortcuts(steps []Step) bool {
	for _, s := range steps {
		if p.shortcuts.Known(s.Name) {
			return true
		}
		if slices.ContainsFunc(s.Args, usesShortcuts) ||
			slices.ContainsFunc(slices.Collect(maps.Values(s.Params)), usesShortcuts) {
			return true
		}
	}
	return false
}

func usesShortcuts(v any) bool {
	switch val := v.(type) {
	case *Program:
		return val.UsesShortcuts()
	case []any:
		return slices.ContainsFunc(val, usesShortcuts)
	default:
		return false
	}
}

// ApplyShortcuts returns a program in which every shortcut step is replaced by the
// steps its builder produces. Programs without shortcuts are returned unchanged.
func (p *Program) ApplyShortcuts() (*Program, error) {
	return p.applyShortcuts(0)
}

func (p *Program) applyShortcuts(depth int) (*Program, error) {
	if !p.UsesShortcuts() {
		return p, nil
	}
	if depth >= maxShortcutDepth {
		return nil, fmt.Errorf("shortcut expansion deeper than %d levels", maxShortcutDepth)
	}

	out := &Program{shortcuts: p.shortcuts, defs: p.defs}
	for _, s := range slices.Concat(p.configuration, p.steps) {
		sc, ok := p.shortcuts.Get(s.Name)
		if !ok {
			args, err := expandArgs(s.Args, depth)
			if err != nil {
				return nil, err
			}
			params, err := expandParams(s.Params, depth)
			if err != nil {
				return nil, err
			}
			if err := out.add(Step{Name: s.Name, Args: args, Params: params}); err != nil {
				return nil, err
			}
			continue
		}

		expanded, err := p.expand(sc, s, depth)
		if err != nil {
			return nil, err
		}
		if expanded == nil {
			continue
		}
		for _, es := range slices.Concat(expanded.configuration, expanded.steps) {
			if err := out.add(es); err != nil {
				return nil, fmt.Errorf("shortcut %s: %w", sc.Name, err)
			}
		}
	}
	return out, nil
}

func (p *Program) expand(sc Shortcut, s Step, depth int) (*Program, error) {
	root := &Action{src: &source{defs: p.defs, shortcuts: p.shortcuts}, root: true}
	built := sc.Build(root, s.Args, s.Params)
	if built == nil || built.root {
		return nil, nil
	}
	sub, err := Flatten(built)
	if err != nil {
		return nil, fmt.Errorf("shortcut %s: %w", sc.Name, err)
	}
	return sub.applyShortcuts(depth + 1)
}

func expandArgs(args []any, depth int) ([]any, error) {
	if !slices.ContainsFunc(args, usesShortcuts) {
		return args, nil
	}
	out := make([]any, len(args))
	for i, arg := range args {
		v, err := expandValue(arg, depth)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func expandParams(params map[string]any, depth int) (map[string]any, error) {
	if !slices.ContainsFunc(slices.Collect(maps.Values(params)), usesShortcuts) {
		return params, nil
	}
	out := make(map[string]any, len(params))
	for k, param := range params {
		v, err := expandValue(param, depth)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func expandValue(v any, depth int) (any, error) {
	switch val := v.(type) {
	case *Program:
		return val.applyShortcuts(depth + 1)
	case []any:
		return expandArgs(val, depth)
	default:
		return v, nil
	}
}
