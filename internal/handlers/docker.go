package handlers

import (
	"context"
	"time"

	"github.com/cfilipov/cachewise/internal/engine"
	"github.com/cfilipov/cachewise/internal/gate"
	"github.com/cfilipov/cachewise/internal/ws"
)

const (
	scanTimeout  = 60 * time.Second
	cleanTimeout = 5 * time.Minute
)

func RegisterDockerHandlers(app *App) {
	app.WS.Handle("dockerStatus", app.handleDockerStatus)
	app.WS.Handle("dockerScan", app.handleDockerScan)
	app.WS.Handle("dockerSuggestions", app.handleDockerSuggestions)

	app.WS.Handle("removeDockerContainers", app.handleRemoveContainers)
	app.WS.Handle("removeDockerImages", app.handleRemoveImages)
	app.WS.Handle("removeDockerVolumes", app.handleRemoveVolumes)
	app.WS.Handle("removeDockerNetworks", app.handleRemoveNetworks)

	app.WS.Handle("dockerSystemPrune", app.handleSystemPrune)
	app.WS.Handle("dockerBuilderPrune", app.handleBuilderPrune)
	app.WS.Handle("dockerPruneContainers", app.handlePruneContainers)
	app.WS.Handle("dockerPruneImages", app.handlePruneImages)
	app.WS.Handle("dockerPruneVolumes", app.handlePruneVolumes)
	app.WS.Handle("dockerPruneNetworks", app.handlePruneNetworks)

	app.WS.Handle("cleanDockerSuggestions", app.handleCleanSuggestions)
}

// allowed checks the cleanup gate, acking an error when the operation is
// blocked.
func (app *App) allowed(c *ws.Conn, msg *ws.ClientMessage, op gate.Op) bool {
	if err := app.Gate.Allow(op); err != nil {
		ackError(c, msg, err.Error())
		return false
	}
	return true
}

func (app *App) handleDockerStatus(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || msg.ID == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	ws.SendAck(c, *msg.ID, map[string]interface{}{
		"ok":             true,
		"installed":      app.Engine.Installed(ctx),
		"daemon_running": app.Engine.DaemonRunning(ctx),
	})
}

// Handlers run on their own goroutine per message, so blocking on the engine
// here never stalls the connection's read pump.
func (app *App) handleDockerScan(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || msg.ID == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	type scanAck struct {
		OK   bool              `json:"ok"`
		Scan engine.ScanResult `json:"scan"`
	}
	ws.SendAck(c, *msg.ID, scanAck{OK: true, Scan: app.Engine.Scan(ctx)})
}

func (app *App) handleDockerSuggestions(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || msg.ID == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	type suggestionsAck struct {
		OK          bool                `json:"ok"`
		Suggestions []engine.Suggestion `json:"suggestions"`
	}
	ws.SendAck(c, *msg.ID, suggestionsAck{OK: true, Suggestions: app.Engine.Suggestions(ctx)})
}

// cleanAck wraps an engine CleanResult for the wire.
type cleanAck struct {
	OK     bool               `json:"ok"`
	Result engine.CleanResult `json:"result"`
}

// ackCleanResult acks the result and pushes it to every other session so
// dashboards refresh.
func (app *App) ackCleanResult(c *ws.Conn, msg *ws.ClientMessage, result engine.CleanResult) {
	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, cleanAck{OK: result.Success, Result: result})
	}
	ws.Broadcast(app.WS, "cleanComplete", result)
}

func (app *App) handleRemoveContainers(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpRemoveContainers) {
		return
	}
	args := parseArgs(msg)
	ids := argStrings(args, 0)
	force := argBool(args, 1)

	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()
	app.ackCleanResult(c, msg, app.Engine.RemoveContainers(ctx, ids, force))
}

func (app *App) handleRemoveImages(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpRemoveImages) {
		return
	}
	args := parseArgs(msg)
	ids := argStrings(args, 0)
	force := argBool(args, 1)

	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()
	app.ackCleanResult(c, msg, app.Engine.RemoveImages(ctx, ids, force))
}

func (app *App) handleRemoveVolumes(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpRemoveVolumes) {
		return
	}
	names := argStrings(parseArgs(msg), 0)

	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()
	app.ackCleanResult(c, msg, app.Engine.RemoveVolumes(ctx, names))
}

func (app *App) handleRemoveNetworks(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpRemoveNetworks) {
		return
	}
	ids := argStrings(parseArgs(msg), 0)

	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()
	app.ackCleanResult(c, msg, app.Engine.RemoveNetworks(ctx, ids))
}

func (app *App) handleSystemPrune(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpPrune) {
		return
	}
	args := parseArgs(msg)
	all := argBool(args, 0)
	volumes := argBool(args, 1)

	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()
	app.ackCleanResult(c, msg, app.Engine.SystemPrune(ctx, all, volumes))
}

func (app *App) handleBuilderPrune(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpPrune) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()
	app.ackCleanResult(c, msg, app.Engine.BuilderPrune(ctx))
}

func (app *App) handlePruneContainers(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpPrune) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()
	app.ackCleanResult(c, msg, app.Engine.PruneContainers(ctx))
}

func (app *App) handlePruneImages(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpPrune) {
		return
	}
	all := argBool(parseArgs(msg), 0)

	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()
	app.ackCleanResult(c, msg, app.Engine.PruneImages(ctx, all))
}

func (app *App) handlePruneVolumes(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpPrune) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()
	app.ackCleanResult(c, msg, app.Engine.PruneVolumes(ctx))
}

func (app *App) handlePruneNetworks(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpPrune) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()
	app.ackCleanResult(c, msg, app.Engine.PruneNetworks(ctx))
}

func (app *App) handleCleanSuggestions(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpCleanSuggestions) {
		return
	}
	var suggestions []engine.Suggestion
	if !argObject(parseArgs(msg), 0, &suggestions) {
		ackError(c, msg, "Invalid arguments")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cleanTimeout)
	defer cancel()
	app.ackCleanResult(c, msg, app.Engine.CleanSuggestions(ctx, suggestions))
}
