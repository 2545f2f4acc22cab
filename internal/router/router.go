// Package router registers the HTTP surface of the API.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/mkravets/contacts-api/internal/handler"
	"github.com/mkravets/contacts-api/internal/middleware"
	"github.com/mkravets/contacts-api/internal/repository"
	"github.com/mkravets/contacts-api/internal/service"
	"github.com/mkravets/contacts-api/pkg/config"
	"github.com/mkravets/contacts-api/pkg/logger"
	corsmiddleware "github.com/mkravets/contacts-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mkravets/contacts-api/pkg/middleware/requestid"
)

// Deps carries everything the router needs to assemble the API.
type Deps struct {
	Config          *config.Config
	Logger          *zap.Logger
	Redis           *redis.Client
	UserRepo        *repository.UserRepository
	Auth            *service.AuthService
	Profile         *service.UserService
	Contacts        *service.ContactService
	Channels        *service.ChannelService
	ContactChannels *service.ContactChannelService
	Metrics         *service.MetricsService
	Ready           func() error
}

// New builds the gin engine with all middleware and routes attached.
func New(d Deps) *gin.Engine {
	if d.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(corsmiddleware.New(d.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	if d.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Profile)
	contactHandler := handler.NewContactHandler(d.Contacts)
	channelHandler := handler.NewChannelHandler(d.Channels)
	assocHandler := handler.NewContactChannelHandler(d.ContactChannels)

	limiter := middleware.RateLimit(d.Config.RateLimit, d.Redis, d.Logger)
	authorized := middleware.JWT(d.Auth)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.Use(limiter)
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/confirm/:token", authHandler.ConfirmEmail)
			auth.POST("/resend-confirmation", authHandler.ResendConfirmation)
		}

		users := api.Group("/users")
		{
			users.GET("/avatar/:token", userHandler.Avatar)

			me := users.Group("")
			me.Use(authorized)
			{
				me.GET("/me", userHandler.Me)
				me.PATCH("/me/avatar", userHandler.UploadAvatar)
				me.DELETE("/me", userHandler.DeleteMe)
			}
		}

		contacts := api.Group("/contacts")
		contacts.Use(authorized, limiter)
		{
			contacts.GET("", contactHandler.List)
			contacts.POST("", middleware.Audit(d.UserRepo, "create", "contact"), contactHandler.Create)
			contacts.GET("/birthdays", contactHandler.Birthdays)
			contacts.GET("/export", contactHandler.Export)
			contacts.GET("/:id", contactHandler.Get)
			contacts.PUT("/:id", middleware.Audit(d.UserRepo, "update", "contact"), contactHandler.Update)
			contacts.DELETE("/:id", middleware.Audit(d.UserRepo, "delete", "contact"), contactHandler.Delete)
			contacts.GET("/:id/channels", assocHandler.ListByContact)
		}

		channels := api.Group("/channels")
		channels.Use(authorized)
		{
			channels.GET("", channelHandler.List)
			channels.GET("/:id", channelHandler.Get)
			channels.POST("", channelHandler.Create)
			channels.PUT("/:id", channelHandler.Update)
			channels.DELETE("/:id", channelHandler.Delete)
		}

		assocs := api.Group("/contact-channels")
		assocs.Use(authorized, limiter)
		{
			assocs.POST("", assocHandler.Create)
			assocs.PUT("/:id", assocHandler.Update)
			assocs.DELETE("/:id", assocHandler.Delete)
		}
	}

	return r
}
