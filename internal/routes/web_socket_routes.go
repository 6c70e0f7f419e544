package routes

import (
	"github.com/gin-gonic/gin"

	"krypto_store/internal/controllers"
)

func WebSocketRoutes(r *gin.Engine, ctl *controllers.Controller) {
	ws := r.Group("/ws")
	{
		ws.GET("/ledger", ctl.HandleLedgerWebSocket)
	}
}
