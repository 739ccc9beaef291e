package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/autofill/internal/common"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingArea struct{ err error }

func (f failingArea) Get(context.Context, ...string) (map[string][]byte, error) { return nil, f.err }
func (f failingArea) Set(context.Context, map[string][]byte) error              { return f.err }
func (f failingArea) Remove(context.Context, ...string) error                   { return f.err }

func TestGuarded_PassesThroughWhileValid(t *testing.T) {
	ctx := context.Background()
	g := Guarded(NewMemoryArea(), lifecycle.New())

	require.NoError(t, g.Set(ctx, map[string][]byte{"k": []byte("v")}))
	got, err := g.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got["k"])
	require.NoError(t, g.Remove(ctx, "k"))
}

func TestGuarded_RefusesAfterInvalidation(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryArea()
	rt := lifecycle.New()
	g := Guarded(mem, rt)

	require.NoError(t, g.Set(ctx, map[string][]byte{"k": []byte("v")}))
	rt.Invalidate()

	_, err := g.Get(ctx, "k")
	require.ErrorIs(t, err, common.ErrContextInvalidated)
	require.ErrorIs(t, g.Set(ctx, map[string][]byte{"k": []byte("x")}), common.ErrContextInvalidated)
	require.ErrorIs(t, g.Remove(ctx, "k"), common.ErrContextInvalidated)

	raw, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), raw["k"], "nothing written after invalidation")
}

func TestGuarded_SurfacesBackendErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("quota exceeded")
	g := Guarded(failingArea{err: boom}, lifecycle.New())

	_, err := g.Get(ctx, "k")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "storage get")

	require.ErrorIs(t, g.Set(ctx, map[string][]byte{"k": nil}), boom)
	require.ErrorIs(t, g.Remove(ctx, "k"), boom)
}
