// Package features describes which optional capabilities each supported backend has.
// The server offers no way to query them, so the table is fixed.
package features

import (
	"fmt"
	"maps"
	"slices"
)

// Features lists the optional capabilities of a backend.
type Features struct {
	Provider string `json:"provider"`
	// UserSuppliedIDs is true when elements may be created with caller chosen ids.
	UserSuppliedIDs bool `json:"user_supplied_ids"`
	// Transactions is true when the backend supports session scoped transactions.
	Transactions bool `json:"transactions"`
}

var table = map[string]Features{
	"neptune": {
		Provider:        "neptune",
		UserSuppliedIDs: true,
		Transactions:    true,
	},
	"tinkergraph": {
		Provider:        "tinkergraph",
		UserSuppliedIDs: true,
	},
}

// For returns the features of provider.
func For(provider string) (Features, error) {
	f, ok := table[provider]
	if !ok {
		return Features{}, fmt.Errorf("unknown provider %q, known providers: %v", provider, Providers())
	}
	return f, nil
}

// Providers returns the known provider names in sorted order.
func Providers() []string {
	return slices.Sorted(maps.Keys(table))
}
