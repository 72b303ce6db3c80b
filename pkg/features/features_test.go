package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	tests := []struct {
		provider     string
		transactions bool
	}{
		{provider: "neptune", transactions: true},
		{provider: "tinkergraph", transactions: false},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			f, err := For(tt.provider)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, f.Provider)
			assert.Equal(t, tt.transactions, f.Transactions)
			assert.True(t, f.UserSuppliedIDs)
		})
	}

	t.Run("unknown provider", func(t *testing.T) {
		_, err := For("janusgraph")
		assert.ErrorContains(t, err, "unknown provider")
	})
}

func TestProviders(t *testing.T) {
	assert.Equal(t, []string{"neptune", "tinkergraph"}, Providers())
}
