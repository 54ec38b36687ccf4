package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCoversAllSources(t *testing.T) {
	reg := New(nil).Registry()
	require.Len(t, reg, 10)

	seen := map[string]bool{}
	for _, src := range reg {
		assert.NotEmpty(t, src.Name)
		assert.NotNil(t, src.Fetch)
		assert.False(t, seen[src.Name], "duplicate source %s", src.Name)
		seen[src.Name] = true
	}

	// raw payload keys are stable; stored snapshots are read back by name
	assert.Equal(t, SourceWorkInProgress, reg[0].Name)
	assert.Equal(t, SourceBatchExpiry, reg[9].Name)
}
