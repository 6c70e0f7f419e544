package routes

import (
	"github.com/gin-gonic/gin"

	"krypto_store/internal/controllers"
	"krypto_store/internal/middleware"
	"krypto_store/internal/models"
)

func StudentRoutes(r *gin.Engine, ctl *controllers.Controller) {
	student := r.Group("/student")
	student.Use(middleware.RequireAuthWithRole(ctl.Tokens, ctl.Store, models.RoleStudent))
	{
		student.GET("/me", ctl.Me)
		student.GET("/transactions", ctl.MyTransactions)
		student.POST("/transfer", ctl.StudentTransfer)
		student.GET("/receipts", ctl.MyReceipts)
	}
}
