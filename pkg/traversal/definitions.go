package traversal

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed definitions.yaml
var definitionsYAML []byte

// Definitions is the static table of step names the server understands,
// partitioned by the role a step plays in a traversal.
type Definitions struct {
	Steps struct {
		Start         []string `yaml:"start"`
		Configuration []string `yaml:"configuration"`
		Regular       []string `yaml:"regular"`
	} `yaml:"steps"`
	Expressions map[string][]string `yaml:"expressions"`
}

var (
	definitions     *Definitions
	definitionsErr  error
	definitionsOnce sync.Once
)

// LoadDefinitions parses a definitions document.
func LoadDefinitions(data []byte) (*Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse step definitions: %w", err)
	}
	if len(defs.Steps.Start) == 0 || len(defs.Steps.Regular) == 0 {
		return nil, fmt.Errorf("step definitions: start and regular step lists are required")
	}
	slices.Sort(defs.Steps.Start)
	slices.Sort(defs.Steps.Configuration)
	slices.Sort(defs.Steps.Regular)
	return &defs, nil
}

// DefaultDefinitions returns the embedded definitions table. It panics if the table is malformed.
func DefaultDefinitions() *Definitions {
	definitionsOnce.Do(func() {
		definitions, definitionsErr = LoadDefinitions(definitionsYAML)
	})
	if definitionsErr != nil {
		panic(definitionsErr)
	}
	return definitions
}

// IsStart reports whether name may begin a traversal.
func (d *Definitions) IsStart(name string) bool {
	_, ok := slices.BinarySearch(d.Steps.Start, name)
	return ok
}

// IsConfiguration reports whether name is a traversal-source configuration step.
func (d *Definitions) IsConfiguration(name string) bool {
	_, ok := slices.BinarySearch(d.Steps.Configuration, name)
	return ok
}

// IsRegular reports whether name is a regular step.
func (d *Definitions) IsRegular(name string) bool {
	_, ok := slices.BinarySearch(d.Steps.Regular, name)
	return ok
}

// IsSupported reports whether name appears in any step list.
func (d *Definitions) IsSupported(name string) bool {
	return d.IsStart(name) || d.IsConfiguration(name) || d.IsRegular(name)
}
