package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the REST routes; tokens gate this one
	},
}

// HandleLedgerWebSocket streams ledger events for the caller's account. The
// token travels in ?token= because browsers cannot set headers on upgrades.
func (ctl *Controller) HandleLedgerWebSocket(c *gin.Context) {
	if ctl.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live updates are not enabled"})
		return
	}
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token", "kind": "unauthorized"})
		return
	}
	claims, err := ctl.Tokens.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "kind": "unauthorized"})
		return
	}
	if claims.Account != ctl.Store.ActiveAccount() {
		c.JSON(http.StatusConflict, gin.H{"error": "Token account is not the active account", "kind": "no_active_account"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed.")
		return
	}
	logrus.WithFields(logrus.Fields{
		"account": claims.Account,
		"actor":   claims.Actor,
		"role":    claims.Role,
	}).Info("Ledger WebSocket connected.")

	ctl.Hub.Serve(conn, claims.Account, claims.Role, claims.UserID)
}
