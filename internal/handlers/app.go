// Package handlers wires the WebSocket event protocol to the engine, the
// scanner registry, and the stores.
package handlers

import (
	"github.com/cfilipov/cachewise/internal/engine"
	"github.com/cfilipov/cachewise/internal/gate"
	"github.com/cfilipov/cachewise/internal/models"
	"github.com/cfilipov/cachewise/internal/scanner"
	"github.com/cfilipov/cachewise/internal/ws"
)

// App holds shared dependencies for all handlers.
type App struct {
	Users    *models.UserStore
	Settings *models.SettingStore
	Scanners *models.ScannerStore
	Registry *scanner.Registry
	WS       *ws.Server
	Engine   *engine.Service
	Gate     gate.Gate

	JWTSecret string
	NeedSetup bool
	Version   string
	NoAuth    bool
	Dev       bool
}

// RegisterAll registers every handler group.
func RegisterAll(app *App) {
	RegisterAuthHandlers(app)
	RegisterSettingsHandlers(app)
	RegisterDockerHandlers(app)
	RegisterScannerHandlers(app)
}
