package storage

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/autofill/internal/lifecycle"
)

// GuardedArea refuses every call once the extension runtime is gone and
// wraps backend failures with the operation that hit them.
type GuardedArea struct {
	area Area
	rt   lifecycle.Checker
}

func Guarded(area Area, rt lifecycle.Checker) *GuardedArea {
	return &GuardedArea{area: area, rt: rt}
}

func (g *GuardedArea) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := lifecycle.Check(g.rt); err != nil {
		return nil, err
	}
	m, err := g.area.Get(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("storage get: %w", err)
	}
	return m, nil
}

func (g *GuardedArea) Set(ctx context.Context, items map[string][]byte) error {
	if err := lifecycle.Check(g.rt); err != nil {
		return err
	}
	if err := g.area.Set(ctx, items); err != nil {
		return fmt.Errorf("storage set: %w", err)
	}
	return nil
}

func (g *GuardedArea) Remove(ctx context.Context, keys ...string) error {
	if err := lifecycle.Check(g.rt); err != nil {
		return err
	}
	if err := g.area.Remove(ctx, keys...); err != nil {
		return fmt.Errorf("storage remove: %w", err)
	}
	return nil
}
