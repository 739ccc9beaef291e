package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryArea_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryArea()

	require.NoError(t, m.Set(ctx, map[string][]byte{"a": []byte(`1`), "b": []byte(`"x"`)}))

	got, err := m.Get(ctx, "a", "b", "missing")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte(`1`), "b": []byte(`"x"`)}, got)

	require.NoError(t, m.Remove(ctx, "a", "missing"))
	got, err = m.Get(ctx, "a", "b")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "b")
}

func TestMemoryArea_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryArea()

	v := []byte("abc")
	require.NoError(t, m.Set(ctx, map[string][]byte{"k": v}))
	v[0] = 'X'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	got["k"][1] = 'Y'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again["k"])
}
