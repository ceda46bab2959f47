// Package restore decides at startup, and again on request, whether the
// previously granted directory can be bound again.
//
// The protocol never trusts a capability it did not probe, and a capability
// that fails the probe is cleared from the vault so it is not retried.
package restore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/capability"
	"github.com/starford/folio/internal/settings"
	"github.com/starford/folio/internal/vault"
)

// State is the position of the protocol's state machine.
type State int

const (
	Idle State = iota
	Skipped
	Fetching
	Probing
	Bound
	Unavailable
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Skipped:
		return "skipped"
	case Fetching:
		return "fetching"
	case Probing:
		return "probing"
	case Bound:
		return "bound"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event reports the outcome of a restoration attempt.
type Event struct {
	Outcome  State     `json:"outcome"`
	BasePath string    `json:"base_path,omitempty"`
	At       time.Time `json:"at"`
}

// Binder receives the capability once it is trusted.
type Binder interface {
	Bind(dir *capability.Dir)
	Unbind() *capability.Dir
	Binding() *capability.Dir
}

// Settings is the configuration the protocol reads and, on rebind, writes.
type Settings interface {
	Current() settings.StorageConfig
	Save(p settings.Patch) error
}

// Protocol runs the restoration state machine. Methods are serialized.
type Protocol struct {
	settings Settings
	vault    vault.Vault
	binder   Binder
	logger   *slog.Logger
	onEvent  func(Event)
	now      func() time.Time

	mu        sync.Mutex
	state     State
	attempted bool
}

// New creates a Protocol in the Idle state. onEvent may be nil.
func New(cfg Settings, v vault.Vault, b Binder, logger *slog.Logger, onEvent func(Event)) *Protocol {
	if logger == nil {
		logger = slog.Default()
	}
	return &Protocol{
		settings: cfg,
		vault:    v,
		binder:   b,
		logger:   logger,
		onEvent:  onEvent,
		now:      time.Now,
	}
}

// State returns the current state.
func (p *Protocol) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Restore tries to bind the stored capability. Without force, it runs at most
// once per process and returns the current state on later calls.
func (p *Protocol) Restore(ctx context.Context, force bool) State {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Bound && !force {
		return p.state
	}
	cfg := p.settings.Current()
	if !cfg.ShouldRestore() {
		p.state = Skipped
		p.logger.Debug("restore: skipped", slog.Bool("use_local_storage", cfg.UseLocalStorage))
		return p.state
	}
	if p.attempted && !force {
		return p.state
	}
	p.attempted = true

	p.state = Fetching
	dir, err := p.vault.Fetch(ctx)
	if err != nil {
		p.logger.Warn("restore: vault fetch failed", slog.String("error", err.Error()))
		return p.settle(ctx, cfg)
	}
	if dir == nil {
		p.logger.Info("restore: no stored directory")
		return p.settle(ctx, cfg)
	}

	p.state = Probing
	if err := capability.Probe(dir); err != nil {
		p.logger.Warn("restore: stored directory is not usable",
			slog.String("path", dir.Path()),
			slog.String("error", err.Error()))
		p.purge(ctx, dir)
		return p.settle(ctx, cfg)
	}

	p.binder.Bind(dir)
	p.state = Bound
	p.logger.Info("restore: directory bound", slog.String("path", dir.Path()))
	p.emit(Bound, dir.Path())
	return p.state
}

// ForceRebind records a freshly granted capability as the chosen directory,
// stores it in the vault and binds it. It neither fetches nor probes. When the
// settings cannot be saved nothing else changes.
func (p *Protocol) ForceRebind(ctx context.Context, dir *capability.Dir) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.settings.Save(settings.Patch{
		UseLocalStorage:  settings.Bool(true),
		BasePath:         settings.String(dir.Name()),
		LastSelectedPath: settings.String(dir.Path()),
	})
	if err != nil {
		return err
	}
	// The vault only learns about directories the settings already name.
	if err := p.vault.Store(ctx, dir); err != nil {
		p.logger.Warn("restore: vault store failed", slog.String("error", err.Error()))
	}

	p.binder.Bind(dir)
	p.attempted = true
	p.state = Bound
	p.logger.Info("restore: directory selected", slog.String("path", dir.Path()))
	p.emit(Bound, dir.Path())
	return nil
}

// Verify re-probes the bound capability. A dead binding is dropped, the vault
// cleared, and Unavailable reported.
func (p *Protocol) Verify(ctx context.Context) State {
	p.mu.Lock()
	defer p.mu.Unlock()

	dir := p.binder.Binding()
	if dir == nil {
		return p.state
	}
	err := capability.Probe(dir)
	if err == nil {
		return p.state
	}
	p.logger.Warn("restore: bound directory lost",
		slog.String("path", dir.Path()),
		slog.String("error", err.Error()))
	p.purge(ctx, dir)
	return p.unavailable(p.settings.Current())
}

// purge forgets a dead capability: it is unbound if bound, cleared from the
// vault and revoked.
func (p *Protocol) purge(ctx context.Context, dir *capability.Dir) {
	if p.binder.Binding() == dir {
		p.binder.Unbind()
	}
	if err := p.vault.Clear(ctx); err != nil {
		var verr *apperr.VaultError
		if !errors.As(err, &verr) {
			err = &apperr.VaultError{Op: "clear", Err: err}
		}
		p.logger.Warn("restore: vault clear failed", slog.String("error", err.Error()))
	}
	_ = dir.Revoke()
}

// settle ends an attempt that found nothing usable in the vault. A binding
// that still probes survives a forced retry and is written back to the vault;
// any other binding is dropped so that Unavailable always means unbound.
func (p *Protocol) settle(ctx context.Context, cfg settings.StorageConfig) State {
	cur := p.binder.Binding()
	if cur == nil {
		return p.unavailable(cfg)
	}
	if err := capability.Probe(cur); err != nil {
		p.logger.Warn("restore: bound directory lost",
			slog.String("path", cur.Path()),
			slog.String("error", err.Error()))
		p.binder.Unbind()
		_ = cur.Revoke()
		return p.unavailable(cfg)
	}
	if err := p.vault.Store(ctx, cur); err != nil {
		p.logger.Warn("restore: vault store failed", slog.String("error", err.Error()))
	}
	p.state = Bound
	p.logger.Info("restore: kept current directory", slog.String("path", cur.Path()))
	p.emit(Bound, cur.Path())
	return p.state
}

func (p *Protocol) unavailable(cfg settings.StorageConfig) State {
	p.state = Unavailable
	var base string
	if cfg.LastSelectedPath != nil {
		base = *cfg.LastSelectedPath
	}
	p.emit(Unavailable, base)
	return p.state
}

func (p *Protocol) emit(outcome State, basePath string) {
	if p.onEvent == nil {
		return
	}
	p.onEvent(Event{Outcome: outcome, BasePath: basePath, At: p.now()})
}
