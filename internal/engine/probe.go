package engine

import (
	"context"

	"github.com/cfilipov/cachewise/internal/dockercli"
)

// Service is the container-engine inventory and cleanup engine. It is
// constructed once at startup and shared; all state lives in per-call value
// objects, so methods are safe for concurrent use. The caller is responsible
// for not issuing concurrent cleanups against the same resource set.
type Service struct {
	run dockercli.Runner
}

// NewService returns an engine backed by the given CLI runner.
func NewService(run dockercli.Runner) *Service {
	return &Service{run: run}
}

// Installed reports whether the CLI binary exists and responds to a version
// query. Never returns an error — a missing binary is an expected state.
func (s *Service) Installed(ctx context.Context) bool {
	return s.run.Run(ctx, "--version").OK()
}

// DaemonRunning reports whether the engine's background service is
// reachable. All scan and cleanup entry points consult this first; a stopped
// daemon yields well-formed empty results, not errors.
func (s *Service) DaemonRunning(ctx context.Context) bool {
	return s.run.Run(ctx, "info").OK()
}
