package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portfolio-api/internal/bootstrap"
	"portfolio-api/internal/logging"
	"portfolio-api/internal/metrics"
	"portfolio-api/internal/transport/http/handler"
	"portfolio-api/internal/transport/http/middleware"
	"portfolio-api/internal/transport/http/response"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		logging.GinLogger(app.Logger),
		metrics.Middleware(),
	)

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(app.AuthService, handler.CookieConfig{
		Name:   app.Config.Auth.CookieName,
		Secure: app.Config.IsProduction(),
	})
	chatHandler := handler.NewChatHandler(app.ChatService)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", middleware.AuthJWT(app.AuthService, app.Config.Auth.CookieName), authHandler.Me)

	api.POST("/sendMessage", chatHandler.SendMessage)
	api.GET("/getMessages", chatHandler.ListMessages)

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "route not found")
	})

	return router
}
