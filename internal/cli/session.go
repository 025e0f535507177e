package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ags/internal/config"
	"github.com/roach88/ags/internal/engine"
	"github.com/roach88/ags/internal/kvstore"
	"github.com/roach88/ags/internal/snapshot"
	"github.com/roach88/ags/internal/store"
	"github.com/roach88/ags/internal/visibility"
	"github.com/roach88/ags/internal/world"
)

// openBackend opens the configured storage backend.
func openBackend(opts *RootOptions) (snapshot.Backend, error) {
	backend := opts.Backend
	if backend == "" {
		backend = config.BackendSQLite
	}
	if backend != config.BackendMemory && opts.DB == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}

	var (
		b   snapshot.Backend
		err error
	)
	switch backend {
	case config.BackendSQLite:
		b, err = store.Open(opts.DB)
	case config.BackendPebble:
		b, err = kvstore.Open(opts.DB)
	case config.BackendMemory:
		b = snapshot.NewMemoryBackend()
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown backend %q", backend))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return b, nil
}

// session is an engine over the stored world with turns and snapshots
// persisted through the backend.
type session struct {
	policy  config.Policy
	logger  *slog.Logger
	backend snapshot.Backend
	engine  *engine.Engine
	snaps   *snapshot.Store
}

// openSession loads the stored world. A missing world is a command error.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	policy, err := opts.policy()
	if err != nil {
		return nil, err
	}
	b, err := openBackend(opts)
	if err != nil {
		return nil, err
	}
	w, err := b.LoadWorld(ctx)
	if err != nil {
		_ = b.Close()
		if errors.Is(err, snapshot.ErrNotFound) {
			return nil, WrapExitError(ExitCommandError, "no world stored (run ags init first)", err)
		}
		return nil, WrapExitError(ExitCommandError, "failed to load world", err)
	}
	return startSession(ctx, opts, cmd, policy, b, w)
}

// startSession builds the engine and snapshot store over w. It takes
// ownership of b.
func startSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command, policy config.Policy, b snapshot.Backend, w *world.World) (*session, error) {
	logger := opts.logger(cmd.ErrOrStderr())
	eng, err := engine.New(w, append(policy.EngineOptions(), engine.WithLogger(logger))...)
	if err != nil {
		_ = b.Close()
		return nil, WrapExitError(ExitCommandError, "failed to start engine", err)
	}
	snaps, err := snapshot.New(ctx, eng, b, snapshot.WithLogger(logger))
	if err != nil {
		_ = b.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open snapshots", err)
	}
	eng.OnTurn(snaps.RecordTurn)
	return &session{
		policy:  policy,
		logger:  logger,
		backend: b,
		engine:  eng,
		snaps:   snaps,
	}, nil
}

// stateService returns a cached read service kept current by the engine's
// event bus.
func (s *session) stateService() *visibility.Service {
	svc := visibility.NewService(s.engine, s.policy.Redaction(), visibility.NewCache())
	s.engine.SubscribeInvalidator(svc)
	return svc
}

// close flushes pending writes and closes the backend.
func (s *session) close(ctx context.Context) error {
	flushErr := s.snaps.Flush(ctx)
	closeErr := s.snaps.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		return WrapExitError(ExitCommandError, "failed to persist state", err)
	}
	return nil
}
