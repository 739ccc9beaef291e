package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/autofill/internal/dispatch"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/dmitrijs2005/autofill/internal/relay"
)

const defaultRelayTimeout = 10 * time.Second

// Serve runs the relay on the configured address until ctx ends. Remote
// frames live outside this process, so the relay's dispatcher never sees
// the local runtime invalidated.
func (a *App) Serve(ctx context.Context, timeout time.Duration) error {
	hub := relay.NewHub(timeout, a.config.RelayExtensionIDs, a.logger)
	d := dispatch.New(hub, hub, lifecycle.AlwaysValid{},
		dispatch.Policy{MaxAttempts: a.config.DispatchAttempts, Delay: a.config.DispatchDelay}, a.logger)
	return relay.NewServer(a.config.RelayAddr, hub, d, a.logger).Run(ctx)
}
