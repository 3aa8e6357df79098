package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shiptrack/tracking-system/internal/api/handler"
	"github.com/shiptrack/tracking-system/internal/api/middleware"
	"github.com/shiptrack/tracking-system/internal/core/domain"
	"github.com/shiptrack/tracking-system/internal/core/ports"
	"github.com/shiptrack/tracking-system/internal/realtime"
	"github.com/shiptrack/tracking-system/pkg/logger"
)

// Deps carries everything the router needs. The caller owns construction and
// lifecycle of all of it; the router only binds routes.
type Deps struct {
	Mongo    *mongo.Database
	Redis    *redis.Client
	Hub      *realtime.Hub
	Reports  handler.ReportQueue
	Auth     ports.AuthService
	Shipment ports.ShipmentService
	Driver   ports.DriverService

	JWTSecret string
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger.Get())

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("shiptrack"))

	authHandler := handler.NewAuthHandler(deps.Auth)
	shipmentHandler := handler.NewShipmentHandler(deps.Shipment)
	driverHandler := handler.NewDriverHandler(deps.Driver)
	locationHandler := handler.NewLocationHandler(deps.Reports)
	wsHandler := handler.NewWebSocketHandler(deps.Hub, deps.Reports)

	requireAuth := middleware.Auth(deps.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)
	canReport := middleware.RBAC(domain.RoleAdmin, domain.RoleDriver)

	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(deps.Mongo, deps.Redis).Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	v1 := e.Group("/api/v1")

	// Public tracking lookup, no auth: recipients follow a link with the
	// tracking number in it.
	v1.GET("/shipments/:trackingNumber", shipmentHandler.Get)

	v1.POST("/shipments", shipmentHandler.Create, requireAuth, adminOnly)
	v1.GET("/shipments", shipmentHandler.List, requireAuth, adminOnly)
	v1.POST("/shipments/:trackingNumber/driver", shipmentHandler.AssignDriver, requireAuth, adminOnly)
	v1.GET("/drivers", driverHandler.List, requireAuth, adminOnly)

	v1.POST("/locations", locationHandler.Report, requireAuth, canReport)

	// Realtime tracking socket. Auth runs on the upgrade request; the token
	// may arrive via the access_token query parameter.
	e.GET("/ws", wsHandler.Serve, requireAuth)

	return e
}
