// Package gate decides whether destructive cleanup operations may run. Every
// handler that removes or prunes anything consults the gate first.
package gate

import (
	"errors"
	"fmt"
	"log/slog"
)

// Op names a destructive operation class.
type Op string

const (
	OpRemoveContainers Op = "remove_containers"
	OpRemoveImages     Op = "remove_images"
	OpRemoveVolumes    Op = "remove_volumes"
	OpRemoveNetworks   Op = "remove_networks"
	OpPrune            Op = "prune"
	OpCleanSuggestions Op = "clean_suggestions"
	OpCleanScanner     Op = "clean_scanner"
)

// ErrLocked is returned while the maintenance lock is engaged.
var ErrLocked = errors.New("cleanup is locked")

// Gate reports whether an operation may proceed. A nil error means allowed.
type Gate interface {
	Allow(op Op) error
}

// Settings is the subset of the setting store the gate reads.
type Settings interface {
	Get(key string) (string, error)
}

// settingsGate denies everything while the "cleanupLocked" setting is truthy.
// Default open: a missing or unreadable setting never blocks cleanup.
type settingsGate struct {
	settings Settings
}

func New(settings Settings) Gate {
	return &settingsGate{settings: settings}
}

func (g *settingsGate) Allow(op Op) error {
	val, err := g.settings.Get("cleanupLocked")
	if err != nil {
		slog.Warn("gate setting read failed, allowing", "op", op, "err", err)
		return nil
	}
	if val == "1" || val == "true" {
		return fmt.Errorf("%s: %w", op, ErrLocked)
	}
	return nil
}

// Open is a Gate that allows everything. Used when auth is disabled and in
// tests.
type Open struct{}

func (Open) Allow(Op) error { return nil }
