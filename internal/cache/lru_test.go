package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/flowschema/pkg/schema"
)

func TestTypeCache_Classify(t *testing.T) {
	c, err := NewTypeCache(2)
	require.NoError(t, err)

	assert.Equal(t, schema.Integer, c.Classify("5"))
	assert.Equal(t, schema.Integer, c.Classify("5"))
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, schema.Float, c.Classify("1.5"))
	assert.Equal(t, schema.Boolean, c.Classify("true"))
	assert.Equal(t, 2, c.Len(), "oldest entry evicted")
}

func TestTypeCache_Disabled(t *testing.T) {
	c, err := NewTypeCache(0)
	require.NoError(t, err)
	assert.Nil(t, c)

	assert.Equal(t, schema.DateTime, c.Classify("2024-01-02T03:04:05"))
	assert.Equal(t, schema.String, c.Classify("abc"))
	assert.Equal(t, 0, c.Len())
}

func TestTypeCache_MatchesClassifier(t *testing.T) {
	c, err := NewTypeCache(16)
	require.NoError(t, err)

	for _, v := range []string{"", "0", "-3", "1e3", "0x1F", "False", "x", " 7 ", "2024-13-01T00:00:00"} {
		assert.Equal(t, schema.Classify(v), c.Classify(v), "value %q", v)
	}
}
