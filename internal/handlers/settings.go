package handlers

import (
	"log/slog"

	"github.com/cfilipov/cachewise/internal/ws"
)

func RegisterSettingsHandlers(app *App) {
	app.WS.Handle("getSettings", app.handleGetSettings)
	app.WS.Handle("setSettings", app.handleSetSettings)
}

func (app *App) handleGetSettings(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 || msg.ID == nil {
		return
	}

	all, err := app.Settings.GetAll()
	if err != nil {
		slog.Error("get settings", "err", err)
		ackError(c, msg, "Internal error")
		return
	}
	// The JWT secret lives in the same bucket but never leaves the server.
	delete(all, "jwtSecret")

	type settingsAck struct {
		OK       bool              `json:"ok"`
		Settings map[string]string `json:"settings"`
	}
	ws.SendAck(c, *msg.ID, settingsAck{OK: true, Settings: all})
}

func (app *App) handleSetSettings(c *ws.Conn, msg *ws.ClientMessage) {
	if checkLogin(c, msg) == 0 {
		return
	}

	var settings map[string]string
	if !argObject(parseArgs(msg), 0, &settings) {
		ackError(c, msg, "Invalid arguments")
		return
	}
	delete(settings, "jwtSecret")

	for key, value := range settings {
		if err := app.Settings.Set(key, value); err != nil {
			slog.Error("set setting", "key", key, "err", err)
			ackError(c, msg, "Failed to save settings")
			return
		}
	}

	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, ws.OkResponse{OK: true, Msg: "Settings saved"})
	}
}
