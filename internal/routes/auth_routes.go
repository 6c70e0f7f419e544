package routes

import (
	"github.com/gin-gonic/gin"

	"krypto_store/internal/controllers"
)

func AuthRoutes(r *gin.Engine, ctl *controllers.Controller) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", ctl.Signup)
		auth.POST("/login", ctl.Login)
		auth.POST("/worker-login", ctl.WorkerLogin)
		auth.POST("/student-login", ctl.StudentLogin)
	}
}
