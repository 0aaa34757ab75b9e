package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/cfilipov/cachewise/internal/gate"
	"github.com/cfilipov/cachewise/internal/models"
	"github.com/cfilipov/cachewise/internal/scanner"
	"github.com/cfilipov/cachewise/internal/ws"
)

const dirScanTimeout = 2 * time.Minute

func RegisterScannerHandlers(app *App) {
	app.WS.Handle("listScanners", app.handleListScanners)
	app.WS.Handle("addScanner", app.handleAddScanner)
	app.WS.Handle("removeScanner", app.handleRemoveScanner)
	app.WS.Handle("scanCaches", app.handleScanCaches)
	app.WS.Handle("cleanCache", app.handleCleanCache)
}

func (app *App) handleListScanners(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || msg.ID == nil {
		return
	}
	type listAck struct {
		OK       bool                   `json:"ok"`
		Scanners []models.ScannerConfig `json:"scanners"`
	}
	ws.SendAck(c, *msg.ID, listAck{OK: true, Scanners: app.Registry.List()})
}

func (app *App) handleAddScanner(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 {
		return
	}
	var cfg models.ScannerConfig
	if !argObject(parseArgs(msg), 0, &cfg) || cfg.ID == "" || cfg.Path == "" {
		ackError(c, msg, "Scanner id and path required")
		return
	}
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}

	if err := app.Registry.Register(cfg); err != nil {
		ackError(c, msg, err.Error())
		return
	}
	if err := app.Scanners.Save(cfg); err != nil {
		slog.Error("persist scanner", "id", cfg.ID, "err", err)
		ackError(c, msg, "Failed to save scanner")
		return
	}

	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, ws.OkResponse{OK: true, Msg: "Scanner added"})
	}
}

func (app *App) handleRemoveScanner(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 {
		return
	}
	id := argString(parseArgs(msg), 0)
	if id == "" {
		ackError(c, msg, "Scanner id required")
		return
	}

	app.Registry.Unregister(id)
	if err := app.Scanners.Delete(id); err != nil {
		slog.Error("delete scanner", "id", id, "err", err)
		ackError(c, msg, "Failed to delete scanner")
		return
	}

	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, ws.OkResponse{OK: true, Msg: "Scanner removed"})
	}
}

func (app *App) handleScanCaches(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || msg.ID == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dirScanTimeout)
	defer cancel()

	type scanAck struct {
		OK      bool                 `json:"ok"`
		Results []scanner.ScanResult `json:"results"`
	}
	ws.SendAck(c, *msg.ID, scanAck{OK: true, Results: app.Registry.ScanAll(ctx)})
}

func (app *App) handleCleanCache(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || !app.allowed(c, msg, gate.OpCleanScanner) {
		return
	}
	args := parseArgs(msg)
	id := argString(args, 0)
	dryRun := argBool(args, 1)
	if id == "" {
		ackError(c, msg, "Scanner id required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dirScanTimeout)
	defer cancel()

	result, err := app.Registry.Clean(ctx, id, dryRun)
	if err != nil {
		ackError(c, msg, err.Error())
		return
	}

	type cleanCacheAck struct {
		OK     bool               `json:"ok"`
		Result scanner.CleanResult `json:"result"`
	}
	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, cleanCacheAck{OK: result.Success, Result: result})
	}
	if !dryRun {
		ws.Broadcast(app.WS, "cacheCleaned", result)
	}
}
