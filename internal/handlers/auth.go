package handlers

import (
	"log/slog"

	"github.com/cfilipov/cachewise/internal/models"
	"github.com/cfilipov/cachewise/internal/ws"
)

func RegisterAuthHandlers(app *App) {
	app.WS.Handle("login", app.handleLogin)
	app.WS.Handle("loginByToken", app.handleLoginByToken)
	app.WS.Handle("logout", app.handleLogout)
	app.WS.Handle("setup", app.handleSetup)
	app.WS.Handle("needSetup", app.handleNeedSetup)
	app.WS.Handle("changePassword", app.handleChangePassword)

	app.WS.HandleConnect(func(c *ws.Conn) {
		// With --no-auth every connection is authenticated as user 1.
		if app.NoAuth {
			c.SetUser(1)
		}
		ws.SendEvent(c, "info", map[string]interface{}{
			"version": app.Version,
		})
		if app.NeedSetup {
			ws.SendEvent(c, "setup", true)
		}
	})
}

func (app *App) handleLogin(c *ws.Conn, msg *ws.ClientMessage) {
	args := parseArgs(msg)

	var login struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !argObject(args, 0, &login) || login.Username == "" {
		// Positional fallback [username, password]
		login.Username = argString(args, 0)
		login.Password = argString(args, 1)
	}
	if login.Username == "" || login.Password == "" {
		ackError(c, msg, "Incorrect username or password")
		return
	}

	user, err := app.Users.FindByUsername(login.Username)
	if err != nil {
		slog.Error("login lookup", "err", err)
		ackError(c, msg, "Internal error")
		return
	}
	if user == nil || !models.VerifyPassword(login.Password, user.Password) {
		ackError(c, msg, "Incorrect username or password")
		return
	}

	token, err := models.CreateJWT(user, app.JWTSecret)
	if err != nil {
		slog.Error("create jwt", "err", err)
		ackError(c, msg, "Internal error")
		return
	}

	c.SetUser(user.ID)

	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, ws.OkResponse{OK: true, Token: token})
	}

	slog.Info("user logged in", "username", login.Username)
}

func (app *App) handleLoginByToken(c *ws.Conn, msg *ws.ClientMessage) {
	args := parseArgs(msg)
	token := argString(args, 0)
	if token == "" {
		ackError(c, msg, "Invalid token")
		return
	}

	claims, err := models.VerifyJWT(token, app.JWTSecret)
	if err != nil {
		slog.Debug("token verify failed", "err", err)
		ackError(c, msg, "Invalid token")
		return
	}

	user, err := app.Users.FindByUsername(claims.Username)
	if err != nil {
		slog.Error("token user lookup", "err", err)
		ackError(c, msg, "Internal error")
		return
	}
	if user == nil {
		ackError(c, msg, "User inactive or deleted")
		return
	}

	// Password change invalidates old tokens.
	if claims.H != models.Shake256Hex(user.Password, 16) {
		ackError(c, msg, "Invalid token")
		return
	}

	c.SetUser(user.ID)

	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, ws.OkResponse{OK: true})
	}
}

func (app *App) handleSetup(c *ws.Conn, msg *ws.ClientMessage) {
	args := parseArgs(msg)
	username := argString(args, 0)
	password := argString(args, 1)

	if username == "" || password == "" {
		ackError(c, msg, "Username and password required")
		return
	}
	if len(password) < 6 {
		ackError(c, msg, "Password is too weak. It should be at least 6 characters.")
		return
	}

	count, err := app.Users.Count()
	if err != nil {
		slog.Error("setup count", "err", err)
		ackError(c, msg, "Internal error")
		return
	}
	if count > 0 {
		ackError(c, msg, "cachewise has already been set up")
		return
	}

	if _, err := app.Users.Create(username, password); err != nil {
		slog.Error("setup create user", "err", err)
		ackError(c, msg, "Failed to create user")
		return
	}

	app.NeedSetup = false

	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, ws.OkResponse{OK: true, Msg: "Setup complete"})
	}

	slog.Info("setup complete", "username", username)
}

func (app *App) handleNeedSetup(c *ws.Conn, msg *ws.ClientMessage) {
	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, map[string]interface{}{
			"ok":         true,
			"need_setup": app.NeedSetup,
		})
	}
}

func (app *App) handleChangePassword(c *ws.Conn, msg *ws.ClientMessage) {
	uid := checkLogin(c, msg)
	if uid == 0 {
		return
	}

	args := parseArgs(msg)
	var data struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !argObject(args, 0, &data) {
		ackError(c, msg, "Invalid arguments")
		return
	}

	user, err := app.Users.FindByID(uid)
	if err != nil || user == nil {
		slog.Error("change password lookup", "err", err, "uid", uid)
		ackError(c, msg, "Internal error")
		return
	}
	if !models.VerifyPassword(data.CurrentPassword, user.Password) {
		ackError(c, msg, "Incorrect username or password")
		return
	}
	if len(data.NewPassword) < 6 {
		ackError(c, msg, "Password too weak")
		return
	}

	if err := app.Users.ChangePassword(uid, data.NewPassword); err != nil {
		slog.Error("change password", "err", err)
		ackError(c, msg, "Failed to change password")
		return
	}

	// Old tokens carry the old password hash and stop verifying; force every
	// other session to re-authenticate.
	app.WS.DisconnectOthers(c)

	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, ws.OkResponse{OK: true, Msg: "Password changed"})
	}
}

func (app *App) handleLogout(c *ws.Conn, msg *ws.ClientMessage) {
	c.SetUser(0)
	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, ws.OkResponse{OK: true})
	}
}
