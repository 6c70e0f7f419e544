package routes

import (
	"io"
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"krypto_store/internal/controllers"
	"krypto_store/internal/logger"
)

// SetupRouter builds the engine with every route group. accessLog receives
// one line per request; nil disables the access log.
func SetupRouter(ctl *controllers.Controller, accessLog io.Writer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if accessLog != nil {
		r.Use(ginlog.SetLogger(
			ginlog.WithUTC(true),
			ginlog.WithSkipPath([]string{"/healthz"}),
			ginlog.WithLogger(func(_ *gin.Context, _ zerolog.Logger) zerolog.Logger {
				return logger.AccessLogger(accessLog)
			}),
		))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "account": ctl.Store.ActiveAccount()})
	})

	AuthRoutes(r, ctl)
	AdminRoutes(r, ctl)
	TerminalRoutes(r, ctl)
	StudentRoutes(r, ctl)
	WebSocketRoutes(r, ctl)

	return r
}
