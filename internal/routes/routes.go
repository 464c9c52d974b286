package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crm-gateway/internal/common/logger"
	"crm-gateway/internal/handlers"
	"crm-gateway/internal/middleware"
)

type Dependencies struct {
	Auth         *handlers.AuthHandler
	CRM          *handlers.CRMHandler
	Health       *handlers.HealthHandler
	Authenticate gin.HandlerFunc
	Logger       logger.Logger
}

// NewRouter builds an engine with the standard middleware chain and every route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(deps.Logger),
		middleware.Metrics(),
		middleware.RequestLogger(deps.Logger),
	)
	Setup(router, deps)
	return router
}

// Setup configures all HTTP routes.
func Setup(router *gin.Engine, deps Dependencies) {
	router.GET("/health", deps.Health.Health)
	router.GET("/ready", deps.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", deps.Auth.Register)
		authRoutes.POST("/login", deps.Auth.Login)
		authRoutes.PUT("/password", deps.Authenticate, deps.Auth.ChangePassword)
		authRoutes.DELETE("/user", deps.Authenticate, deps.Auth.DeleteUser)
	}

	crm := api.Group("", deps.Authenticate)
	{
		crm.POST("/create_contact", deps.CRM.CreateContact)
		crm.POST("/create_deal", deps.CRM.CreateDeal)
		crm.POST("/create_ticket", deps.CRM.CreateTicket)
		crm.GET("/new_crm_objects", deps.CRM.NewObjects)
	}
}
