package traversal

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrShortcutConflict is returned when registering a name that is already taken.
var ErrShortcutConflict = errors.New("shortcut name conflict")

// BuildFunc expands a shortcut. It receives an anonymous root plus the arguments the
// shortcut was called with and returns the chain that replaces the call. Returning
// nil or the root itself expands to nothing.
type BuildFunc func(t *Action, args []any, params map[string]any) *Action

// Shortcut is a user-defined step that expands into real steps at compile time.
type Shortcut struct {
	Name  string
	Build BuildFunc
}

// Shortcuts is a registry of shortcuts. It is safe for concurrent use.
type Shortcuts struct {
	items map[string]Shortcut
	mu    sync.RWMutex
}

// NewShortcuts creates a registry; later entries replace earlier ones with the same name.
func NewShortcuts(list ...Shortcut) *Shortcuts {
	s := &Shortcuts{items: make(map[string]Shortcut, len(list))}
	s.RegisterWithOverride(list...)
	return s
}

// Register adds shortcuts, rejecting names that are already registered or that shadow
// a step from the definitions table. Nothing is registered when a conflict is found.
func (s *Shortcuts) Register(list ...Shortcut) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs := DefaultDefinitions()
	conflicts := []string{}
	for _, sc := range list {
		if _, exists := s.items[sc.Name]; exists {
			conflicts = append(conflicts, sc.Name+" (already registered)")
		} else if defs.IsSupported(sc.Name) {
			conflicts = append(conflicts, sc.Name+" (standard step)")
		}
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: %s", ErrShortcutConflict, strings.Join(conflicts, ", "))
	}

	for _, sc := range list {
		s.items[sc.Name] = sc
	}
	return nil
}

// RegisterWithOverride adds shortcuts, replacing existing ones and allowing standard step names.
func (s *Shortcuts) RegisterWithOverride(list ...Shortcut) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range list {
		s.items[sc.Name] = sc
	}
}

// Known reports whether name refers to a shortcut rather than a real step.
func (s *Shortcuts) Known(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.items[name]
	return ok
}

// Get returns the shortcut registered under name.
func (s *Shortcuts) Get(name string) (Shortcut, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.items[name]
	return sc, ok
}

// Names returns the registered names in sorted order.
func (s *Shortcuts) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.items))
}

// Merge returns a new registry holding both sets; other wins on conflicts.
func (s *Shortcuts) Merge(other *Shortcuts) *Shortcuts {
	merged := NewShortcuts()

	s.mu.RLock()
	maps.Copy(merged.items, s.items)
	s.mu.RUnlock()

	other.mu.RLock()
	maps.Copy(merged.items, other.items)
	other.mu.RUnlock()

	return merged
}
