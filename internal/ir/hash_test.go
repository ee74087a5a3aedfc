package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashCanonicalDeterminism(t *testing.T) {
	a := map[string]any{"source": "variants", "fields": []any{"chr", "pos"}}
	b := map[string]any{"fields": []any{"chr", "pos"}, "source": "variants"}

	h1, err := HashCanonical(DomainCount, a)
	require.NoError(t, err)
	h2, err := HashCanonical(DomainCount, b)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "map ordering must not change the hash")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestHashCanonicalChangesWithInput(t *testing.T) {
	h1, err := HashCanonical(DomainCount, map[string]any{"source": "variants"})
	require.NoError(t, err)
	h2, err := HashCanonical(DomainCount, map[string]any{"source": "denovo"})
	require.NoError(t, err)
	h3, err := HashCanonical("vql/other/v1", map[string]any{"source": "variants"})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, h1, h3, "domain separation")
}

func TestHashCanonicalError(t *testing.T) {
	_, err := HashCanonical(DomainCount, map[string]any{"bad": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainCount)
}
