package routes

import (
	"github.com/gin-gonic/gin"

	"krypto_store/internal/controllers"
	"krypto_store/internal/middleware"
	"krypto_store/internal/models"
)

func AdminRoutes(r *gin.Engine, ctl *controllers.Controller) {
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAuthWithRole(ctl.Tokens, ctl.Store, models.RoleAdmin))
	{
		admin.GET("/status", ctl.Status)
		admin.GET("/stats", ctl.Stats)

		admin.GET("/users", ctl.ListUsers)
		admin.POST("/users", ctl.CreateUser)
		admin.GET("/users/:id", ctl.GetUser)
		admin.PATCH("/users/:id", ctl.UpdateUser)
		admin.DELETE("/users/:id", ctl.DeleteUser)
		admin.POST("/users/:id/deposit", ctl.Deposit)
		admin.POST("/users/:id/deduct", ctl.Deduct)

		admin.GET("/products", ctl.ListProducts)
		admin.POST("/products", ctl.CreateProduct)
		admin.PATCH("/products/:id", ctl.UpdateProduct)
		admin.POST("/products/:id/restock", ctl.RestockProduct)
		admin.DELETE("/products/:id", ctl.DeleteProduct)

		for _, roster := range []models.Roster{models.RosterWorkers, models.RosterEmployees} {
			path := "/" + string(roster)
			admin.GET(path, ctl.ListStaff(roster))
			admin.POST(path, ctl.CreateStaff(roster))
			admin.PATCH(path+"/:id", ctl.UpdateStaff(roster))
			admin.DELETE(path+"/:id", ctl.DeleteStaff(roster))
		}

		admin.PUT("/exchange-rate", ctl.UpdateExchangeRate)
		admin.GET("/transactions", ctl.ListTransactions)
		admin.DELETE("/transactions", ctl.ClearHistory)

		admin.POST("/reset", ctl.FactoryReset)
		admin.GET("/backup", ctl.Backup)
		admin.POST("/restore", ctl.Restore)

		admin.GET("/students/:id/receipts", ctl.StudentReceipts)
		admin.DELETE("/receipts/:id", ctl.DeleteReceipt)
	}
}
