// Package routes assembles the HTTP API.
package routes

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/config"
	"github.com/saeed-rahimi/ss/controllers"
	"github.com/saeed-rahimi/ss/middleware"
	"github.com/saeed-rahimi/ss/models"
	"github.com/saeed-rahimi/ss/realtime"
	"github.com/saeed-rahimi/ss/services"
	"github.com/saeed-rahimi/ss/utils"
)

// Options carries what the router needs beyond the process-wide globals
type Options struct {
	Config *config.Config
	Tokens *services.TokenService
	Hub    *realtime.Hub
	Logger *slog.Logger
}

// SetupRouter builds the gin engine with every route mounted under /api
// plus the /ws websocket endpoint.
func SetupRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	utils.RegisterBindingValidators()

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(corsConfig(opts.Config)))

	router.NoRoute(func(c *gin.Context) {
		utils.RespondError(c, apperrors.NotFound("Can't find "+c.Request.URL.Path+" on this server"))
	})

	auth := middleware.EnsureValidToken(opts.Tokens)
	employer := middleware.RequireRole(models.RoleEmployer)
	specialist := middleware.RequireRole(models.RoleSpecialist)

	api := router.Group("/api")
	{
		api.GET("/health", controllers.HealthCheck)
		api.GET("/database/status", controllers.DatabaseStatus)
		api.GET("/uploads/:filename", controllers.GetUploadedImage)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", controllers.Register)
			authRoutes.POST("/login", controllers.Login)
			authRoutes.GET("/me", auth, controllers.GetMe)
			authRoutes.PATCH("/updateMe", auth, controllers.UpdateMe)
			authRoutes.PATCH("/updatePassword", auth, controllers.UpdatePassword)
		}

		jobs := api.Group("/jobs", auth)
		{
			jobs.GET("", controllers.ListJobs)
			jobs.GET("/available/list", specialist, controllers.ListAvailableJobs)
			jobs.GET("/:id", controllers.GetJob)
			jobs.POST("", employer, controllers.CreateJob)
			jobs.PATCH("/:id", employer, controllers.UpdateJob)
			jobs.DELETE("/:id", employer, controllers.DeleteJob)
			jobs.POST("/:id/apply", specialist, controllers.ApplyForJob)
			jobs.POST("/:id/accept-specialist/:specialistId", employer, controllers.AcceptSpecialist)
			jobs.PATCH("/:id/complete", employer, controllers.CompleteJob)
			jobs.PATCH("/:id/cancel", employer, controllers.CancelJob)
			jobs.POST("/:id/image", employer, controllers.UploadJobImage)
			jobs.POST("/:id/review", employer, controllers.ReviewJob)
		}

		api.GET("/employers/my-jobs", auth, employer, controllers.GetMyJobs)

		specialists := api.Group("/specialists", auth, specialist)
		{
			specialists.GET("/my-applications", controllers.GetMyApplications)
			specialists.GET("/my-jobs", controllers.GetAssignedJobs)
			specialists.GET("/search", controllers.SearchSpecialists)
		}

		messages := api.Group("/messages", auth)
		{
			messages.POST("", controllers.SendMessage)
			messages.GET("/unread-count", controllers.GetUnreadCount)
			messages.GET("/conversations", controllers.GetConversations)
			messages.GET("/conversation/:userId", controllers.GetConversation)
		}
	}

	var ws *realtime.Handler
	if opts.Hub != nil {
		ws = realtime.NewHandler(opts.Hub, opts.Tokens, allowedOrigins(opts.Config))
	}
	router.GET("/ws", ws.ServeWS)

	return router
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg == nil || cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if origins := allowedOrigins(cfg); origins[0] == "*" {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}
