// Package cli is the autofill command line: a host browser with the
// background service and popup controller wired to the configured storage.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/autofill/internal/background"
	"github.com/dmitrijs2005/autofill/internal/config"
	"github.com/dmitrijs2005/autofill/internal/content"
	"github.com/dmitrijs2005/autofill/internal/dispatch"
	"github.com/dmitrijs2005/autofill/internal/filex"
	"github.com/dmitrijs2005/autofill/internal/host"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/dmitrijs2005/autofill/internal/logging"
	"github.com/dmitrijs2005/autofill/internal/popup"
	"github.com/dmitrijs2005/autofill/internal/profiles"
	"github.com/dmitrijs2005/autofill/internal/repositories/storage"
)

// App holds one extension runtime for the lifetime of a command.
type App struct {
	config  *config.Config
	logger  logging.Logger
	runtime *lifecycle.Context

	store      profiles.Store
	browser    *host.Browser
	dispatcher *dispatch.Dispatcher
	background *background.Service
	popup      *popup.Controller

	out    io.Writer
	close  func() error
	closed bool
}

// openArea is a test seam for the storage backend.
var openArea = func(ctx context.Context, c *config.Config) (storage.Area, func() error, error) {
	noop := func() error { return nil }

	switch c.StorageBackend {
	case config.BackendMemory:
		return storage.NewMemoryArea(), noop, nil
	case config.BackendSQLite:
		if _, err := filex.EnsureParentDir(c.StoragePath); err != nil {
			return nil, nil, err
		}
		a, err := storage.OpenSQLite(ctx, c.StoragePath)
		if err != nil {
			return nil, nil, err
		}
		return a, a.DB().Close, nil
	case config.BackendPostgres:
		a, err := storage.OpenPostgres(ctx, c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return a, a.DB().Close, nil
	case config.BackendS3:
		client, err := storage.NewS3Client(ctx, storage.S3Options{
			Bucket:       c.S3Bucket,
			Prefix:       c.S3Prefix,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return storage.NewS3Area(client, c.S3Bucket, c.S3Prefix), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func NewApp(ctx context.Context, c *config.Config, out, logOut io.Writer) (*App, error) {
	logger, err := logging.New(logOut, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, err
	}

	area, closeArea, err := openArea(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	rt := lifecycle.New()
	store := profiles.NewStore(storage.Guarded(area, rt))

	opts := content.DefaultOptions()
	opts.FillAttempts = c.FillAttempts
	opts.FillDelay = c.FillDelay

	b := host.NewBrowser(store, rt, host.NewLoader(c.FetchTimeout, c.FetchRetries), opts, logger)
	d := dispatch.New(b, b, rt, dispatch.Policy{MaxAttempts: c.DispatchAttempts, Delay: c.DispatchDelay}, logger)

	bg := background.New(store, b, b.Menus(), d, b.RuntimeFrom("background"), rt, logger)
	b.AddRuntimeListener("background", bg)

	p := popup.New(store, b, d, b.RuntimeFrom("popup"), rt, c.StatusTTL, c.ErrorTTL, logger)
	b.AddRuntimeListener("popup", p)

	if err := bg.Install(ctx); err != nil {
		_ = closeArea()
		return nil, fmt.Errorf("install error: %w", err)
	}

	return &App{
		config:     c,
		logger:     logger,
		runtime:    rt,
		store:      store,
		browser:    b,
		dispatcher: d,
		background: bg,
		popup:      p,
		out:        out,
		close:      closeArea,
	}, nil
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// open loads target into a new active tab.
func (a *App) open(ctx context.Context, target string) (*host.Tab, error) {
	tab, err := a.browser.Open(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", target, err)
	}
	a.logger.Debug(ctx, "tab opened", "tab", tab.ID, "url", target, "frames", len(tab.Frames()))
	return tab, nil
}

// Close invalidates the runtime and releases storage.
func (a *App) Close() error {
	if a == nil || a.closed {
		return nil
	}
	a.closed = true
	a.runtime.Invalidate()
	return a.close()
}
