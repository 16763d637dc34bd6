package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"duochat/internal/app/relay"
	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/logx"
	"duochat/internal/pkg/resp"
)

// HandleWebSocket upgrades the connection and starts the session pumps.
//
// Browsers cannot set headers on websocket requests, so the bearer token
// arrives as a `token` query parameter instead. A valid token pins the
// session's identity: later join events must claim the same one. Outside
// development the token is mandatory.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pinnedIdentity := ""

		tokenString := r.URL.Query().Get("token")
		if tokenString != "" {
			payload, err := jwt.ParseToken(tokenString, deps.Config.JWTSecret)
			if err != nil {
				logx.Warn("WebSocket connection rejected: invalid token.", "error", err)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}
			pinnedIdentity = payload.Identity
		} else if !deps.Config.IsDevelopment() {
			logx.Warn("WebSocket connection rejected: missing token.", "remote_addr", r.RemoteAddr)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied to the client.
			logx.Error(err, "Failed to upgrade WebSocket connection")
			return
		}

		client := relay.NewClient(deps.Gateway, wsConn, pinnedIdentity)

		go client.WritePump()
		go client.ReadPump()
	}
}
