package router

import (
	"net/http"
	"os"
	"strings"

	"airdrop-backend/internal/config"
	"airdrop-backend/internal/handlers"
	"airdrop-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware applies the CORS policy.
// Priority: environment variable > yaml config > default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowedOrigins := []string{"*"}
		if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
			allowedOrigins = nil
			for _, o := range strings.Split(envOrigins, ",") {
				if trimmed := strings.TrimSpace(o); trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowed := range allowedOrigins {
				if strings.TrimSpace(allowed) == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Access-Control-Allow-Credentials", "true")
					break
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Handlers bundles everything the router wires up
type Handlers struct {
	Claim     *handlers.ClaimHandler
	Admin     *handlers.AdminHandler
	AdminAuth *handlers.AdminAuthHandler
	EventHub  *handlers.EventHub
}

// SetupRouter builds the gin engine with all routes
func SetupRouter(h *Handlers, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", handlers.HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", h.EventHub.ServeWS)

	api := r.Group("/api")
	{
		api.POST("/claim", h.Claim.SubmitClaim)
		api.GET("/nullifier/:nullifier", h.Claim.GetNullifierStatus)
		api.GET("/epoch", h.Claim.GetEpochStatus)
		api.GET("/balance/:address", h.Claim.GetBalance)

		admin := api.Group("/admin")
		{
			admin.POST("/login", h.AdminAuth.AdminLoginHandler)
			admin.POST("/totp/generate", h.AdminAuth.GenerateTOTPSecretHandler)

			authed := admin.Group("")
			authed.Use(middleware.NewAdminAuthMiddleware(logger).RequireAdminAuth())
			{
				authed.POST("/epoch/rotate", h.Admin.RotateEpoch)
				authed.POST("/reward", h.Admin.SetReward)
				authed.POST("/pause", h.Admin.SetPaused)
				authed.POST("/pause/toggle", h.Admin.TogglePause)
				authed.POST("/withdraw-residual", h.Admin.WithdrawResidual)
			}
		}
	}

	return r
}
