package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/folio/internal/blobstore"
	"github.com/starford/folio/internal/engine"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/recordservice"
	"github.com/starford/folio/internal/restore"
	"github.com/starford/folio/internal/settings"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/textstore"
	"github.com/starford/folio/internal/vault"
)

// components holds everything a command needs, already wired.
type components struct {
	logger   *slog.Logger
	settings *settings.Store
	engine   *engine.Engine
	protocol *restore.Protocol
	service  *recordservice.Service

	closers []func() error
}

// open creates the data directory, opens the fallback stores and the vault,
// loads the storage settings and runs the startup restoration. broker may be
// nil when nothing listens for events.
func open(ctx context.Context, cfg *Config, logger *slog.Logger, broker *sse.Broker) (_ *components, err error) {
	c := &components{logger: logger}
	defer func() {
		if err != nil {
			_ = c.close()
		}
	}()

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	text, err := textstore.Open(cfg.Storage.TextDBPath())
	if err != nil {
		return nil, fmt.Errorf("init text store: %w", err)
	}
	c.closers = append(c.closers, text.Close)

	blobs, err := blobstore.Open(cfg.Storage.BlobDBPath())
	if err != nil {
		return nil, fmt.Errorf("init blob store: %w", err)
	}
	c.closers = append(c.closers, blobs.Close)

	var v vault.Vault
	if cfg.Storage.VaultMode == VaultModeSession {
		v = vault.NewSession()
	} else {
		bv, err := vault.OpenBolt(cfg.Storage.VaultDBPath())
		if err != nil {
			return nil, fmt.Errorf("init vault: %w", err)
		}
		c.closers = append(c.closers, bv.Close)
		v = bv
	}

	c.settings = settings.New(cfg.Storage.SettingsPath(), logger)
	c.settings.Load()

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if broker != nil {
		watching := cfg.Storage.Watch
		engineOpts = append(engineOpts, engine.WithObserver(func(ev models.RecordEvent) {
			// The watcher already reports writes that land on disk.
			if watching && ev.Backend == storage.KindFile {
				return
			}
			broker.PublishRecordEvent(ev)
		}))
	}
	c.engine = engine.New(c.settings, storage.NewFallback(text, blobs), engineOpts...)
	c.closers = append(c.closers, func() error {
		if dir := c.engine.Unbind(); dir != nil {
			return dir.Revoke()
		}
		return nil
	})

	var onEvent func(restore.Event)
	if broker != nil {
		onEvent = func(ev restore.Event) { broker.PublishRestoration(ev) }
	}
	c.protocol = restore.New(c.settings, v, c.engine, logger, onEvent)
	c.service = recordservice.NewService(c.engine, c.settings, c.protocol)

	state := c.protocol.Restore(ctx, false)
	logger.Info("Storage ready",
		slog.String("restoration", state.String()),
		slog.String("backend", c.engine.Backend().Kind()))

	return c, nil
}

// close releases resources in reverse order of acquisition.
func (c *components) close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
