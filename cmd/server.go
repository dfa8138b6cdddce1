package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/config"
	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam/auth"
	"github.com/alebhayan/King-Laminaat/pkg/idx"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Invalid configuration: %v", err)
	}

	logx.Info("🚀 Starting King Laminaat auth API...")

	// 2. Dependency container
	container := NewContainer(cfg)
	defer container.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	container.StartBackgroundServices(ctx)

	// 3. HTTP
	app := newApp(container.DB, container.Metrics, cfg.Server, container.IAM)

	// 4. Serve until signalled, then stop background work
	startServer(app, cfg.Server.Port)
	cancel()

	stopCtx, stop := context.WithTimeout(context.Background(), container.ShutdownTimeout())
	defer stop()
	container.StopBackgroundServices(stopCtx)
}

// routeRegistrar is satisfied by bounded-context containers.
type routeRegistrar interface {
	RegisterRoutes(router fiber.Router)
}

func newApp(db *sqlx.DB, metrics *prometheus.Registry, sc config.ServerConfig, modules ...routeRegistrar) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "King Laminaat Auth API",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler(sc.Debug),
		BodyLimit:             1 * 1024 * 1024,
		IdleTimeout:           120 * time.Second,
	})

	// Global middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: sc.Debug,
	}))

	app.Use(requestid.New(requestid.Config{
		Header:    auth.HeaderRequestID,
		Generator: idx.New,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  sc.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Tenant-ID, X-Correlation-ID, X-Request-ID",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "X-Request-ID, X-Correlation-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Tenant-ID} | ${respHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	app.Use(auth.RequestContextMiddleware())

	// Health and metrics
	app.Get("/health", healthCheckHandler(db, sc.AppVersion))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))

	// Module routes
	for _, m := range modules {
		m.RegisterRoutes(app)
	}
	logx.Info("✓ Auth routes registered")

	app.Use(notFoundHandler)

	return app
}

// ============================================================================
// Handler Functions
// ============================================================================

func healthCheckHandler(db *sqlx.DB, version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "auth-api",
			"version": version,
		}

		if err := db.PingContext(c.UserContext()); err != nil {
			health["db"] = "unhealthy"
			health["status"] = "degraded"
			logx.WithError(err).Warn("Health check: database ping failed")
		} else {
			health["db"] = "healthy"
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"message":    "The requested endpoint does not exist",
		"request_id": requestID(c),
	})
}

// ============================================================================
// Error Handler
// ============================================================================

// globalErrorHandler converts errors returned by handlers into the errx
// response body. Auth failures never reach it; handlers answer them with the
// generic 401 themselves.
func globalErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		entry := logx.WithFields(logx.Fields{
			"path":       c.Path(),
			"method":     c.Method(),
			"ip":         c.IP(),
			"request_id": requestID(c),
		}).WithFields(auth.RequestContextFrom(c).LogFields())

		var fe *fiber.Error
		if errors.As(err, &fe) {
			entry.Warnf("Request error: %v", err)
			return c.Status(fe.Code).JSON(errx.HTTPErrorResponse{
				Code:       "FIBER_ERROR",
				Message:    fe.Message,
				StatusCode: fe.Code,
				RequestID:  requestID(c),
			})
		}

		resp := errx.ResponseFor(err)
		resp.RequestID = requestID(c)
		if resp.StatusCode >= fiber.StatusInternalServerError {
			entry.WithError(err).Error("Request failed")
		} else {
			entry.WithError(err).Info("Request rejected")
		}

		var e *errx.Error
		if debug && errors.As(err, &e) && e.Err != nil {
			if resp.Details == nil {
				resp.Details = map[string]interface{}{}
			}
			resp.Details["underlying_error"] = e.Err.Error()
		}

		return c.Status(resp.StatusCode).JSON(resp)
	}
}

func requestID(c *fiber.Ctx) string {
	if id := c.GetRespHeader(auth.HeaderRequestID); id != "" {
		return id
	}
	return c.Get(auth.HeaderRequestID)
}

// ============================================================================
// Server lifecycle
// ============================================================================

// startServer blocks until SIGINT or SIGTERM, then shuts the app down.
func startServer(app *fiber.App, port string) {
	go func() {
		logx.Info("=" + repeatString("=", 60))
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)
		logx.Info("=" + repeatString("=", 60))

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(app)
}

func gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("✅ Server exited successfully")
}
