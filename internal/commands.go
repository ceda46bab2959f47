package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/recordservice"
)

// withService opens the storage stack, runs fn and closes everything again.
func withService(ctx context.Context, opts []Option, fn func(*application, *recordservice.Service) error) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	logger := NewLogger(app.config.App, app.logOutput)

	c, err := open(ctx, app.config, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.close(); err != nil {
			logger.Error("close storage", slog.String("error", err.Error()))
		}
	}()
	return fn(app, c.service)
}

// Status reports the storage state after the startup restoration.
func Status(ctx context.Context, opts ...Option) (models.Status, error) {
	var st models.Status
	err := withService(ctx, opts, func(_ *application, svc *recordservice.Service) error {
		st = svc.Status()
		return nil
	})
	return st, err
}

// Grant selects path as the storage directory, enabling file-backed storage
// and remembering the directory for later sessions.
func Grant(ctx context.Context, path string, opts ...Option) (models.Status, error) {
	var st models.Status
	err := withService(ctx, opts, func(_ *application, svc *recordservice.Service) error {
		var err error
		st, err = svc.SelectDirectory(ctx, path)
		return err
	})
	return st, err
}

// Restore forces a restoration attempt and reports the result.
func Restore(ctx context.Context, opts ...Option) (models.Status, error) {
	var st models.Status
	err := withService(ctx, opts, func(_ *application, svc *recordservice.Service) error {
		st = svc.Restore(ctx)
		return nil
	})
	return st, err
}

// ServeMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they
// do not corrupt the protocol stream.
func ServeMCP(ctx context.Context, opts ...Option) error {
	opts = append(opts, WithLogOutput(os.Stderr))
	return withService(ctx, opts, func(app *application, svc *recordservice.Service) error {
		return mcpserver.New(svc, app.version).ServeStdio()
	})
}
