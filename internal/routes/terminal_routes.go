package routes

import (
	"github.com/gin-gonic/gin"

	"krypto_store/internal/controllers"
	"krypto_store/internal/middleware"
	"krypto_store/internal/models"
)

// TerminalRoutes serve the sales terminal, run by admins or workers.
func TerminalRoutes(r *gin.Engine, ctl *controllers.Controller) {
	terminal := r.Group("/terminal")
	terminal.Use(middleware.RequireAuthWithRole(ctl.Tokens, ctl.Store, models.RoleAdmin, models.RoleWorker))
	{
		terminal.GET("/products", ctl.ListProducts)
		terminal.GET("/students/lookup", ctl.LookupStudent)
		terminal.POST("/purchase", ctl.Purchase)
		terminal.POST("/checkout", ctl.Checkout)
		terminal.POST("/transfer", ctl.Transfer)
		terminal.GET("/exchange-rate", ctl.GetExchangeRate)
		terminal.GET("/convert", ctl.Convert)
	}
}
