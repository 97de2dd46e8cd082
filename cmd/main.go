package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"customer-service/internal/customer"
	"customer-service/internal/handler"
	mid "customer-service/internal/middleware"
	"customer-service/internal/model"
	"customer-service/pkg/config"
	"customer-service/pkg/database"
	"customer-service/pkg/jwtutil"
	"customer-service/pkg/logger"
	"customer-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "customer-service"

func main() {
	// Load configuration
	appConfig, err := config.Load(serviceName)
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: serviceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting customer-service", appConfig.LogConfig()...)
	if !appConfig.EnvFileLoaded {
		log.Warn(".env file not found, using environment variables")
	}

	// Initialize database
	db, err := database.InitDB(&appConfig.DB, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close(db)

	if appConfig.DB.AutoMigrate {
		if err := database.MigrateModels(db, &model.Customer{}); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		log.Info("Database migrations completed")
	}

	e := newServer(appConfig, db, log)

	go func() {
		port := appConfig.Server.Port
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("Shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}

// newServer wires middleware and routes
func newServer(appConfig *config.Config, db *gorm.DB, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	tokens := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      appConfig.JWT.SigningKey,
		ExpirationHours: appConfig.JWT.ExpirationHours,
	})

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: appConfig.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, mid.HeaderRequestID,
			appConfig.Identity.UserHeader, appConfig.Identity.OrgHeader},
	}))
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Metrics endpoint
	e.GET(appConfig.Metrics.Path, echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Health check endpoint
	e.GET("/health", handler.NewHealthHandler(serviceName, db).Health)

	// Customer routes, also mounted under /api
	service := customer.NewService(customer.NewGormRepository(db), log, time.Now)
	customers := handler.NewCustomerHandler(service)
	session := mid.SessionMiddleware(appConfig.Identity, tokens)
	customers.Register(e.Group("/customers", session))
	customers.Register(e.Group("/api/customers", session))

	return e
}
