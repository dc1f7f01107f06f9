package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/asyncx"
	"github.com/Abraxas-365/jobgrid/pkg/config"
	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"github.com/Abraxas-365/jobgrid/pkg/errx/errxfiber"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
	"github.com/Abraxas-365/jobgrid/pkg/metrics"
	"github.com/Abraxas-365/jobgrid/pkg/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// 1. Configuration (logx reads LOG_* on its own)
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Invalid configuration: %v", err)
	}

	logx.Info("🚀 Starting JobGrid API Server...")

	// 2. Dependency container
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := NewContainer(ctx, cfg)
	cancel()
	if err != nil {
		logx.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Cleanup()

	app := newApp(container)

	// 3. Start server with graceful shutdown
	startServer(app, cfg.Server.Port)
}

// newApp builds the fiber application with every route mounted.
func newApp(container *Container) *fiber.App {
	cfg := container.Config

	app := fiber.New(fiber.Config{
		AppName:               "JobGrid API",
		DisableStartupMessage: true,
		ErrorHandler:          errxfiber.ErrorHandler,
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		IdleTimeout:           120 * time.Second,
	})

	// Global middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.Server.Debug,
	}))

	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(requestContext)

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, X-Request-ID",
		AllowMethods:     "GET, POST, HEAD, OPTIONS",
		AllowCredentials: cfg.Server.CORSOrigins != "*",
		ExposeHeaders:    "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${locals:requestid}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// Health & metrics
	app.Get("/health", healthCheckHandler(container))
	metrics.RegisterRoutes(app, container.Registry)

	if container.localStore != nil {
		app.Static("/files", container.localStore.BasePath())
	}

	// Routes: /auth/*
	container.IAM.RegisterRoutes(app)
	logx.Info("✓ Auth routes registered")

	// Routes: /companies
	container.CompanyHandlers.RegisterRoutes(app, container.IAM.SessionMiddleware)
	logx.Info("✓ Company routes registered")

	// Routes: /upload
	container.UploadHandler.RegisterRoutes(app,
		ratelimit.Middleware(container.UploadLimiter, ratelimit.IPKey,
			ratelimit.WithName("upload"),
			ratelimit.WithDeniedHook(container.Metrics.RateLimitDenied)))
	logx.Info("✓ Upload routes registered")

	app.Use(notFoundHandler)
	return app
}

// requestContext copies the request id into the user context so every
// logx.WithContext entry carries it.
func requestContext(c *fiber.Ctx) error {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		c.SetUserContext(kernel.WithRequestID(c.UserContext(), id))
	}
	return c.Next()
}

// healthCheckHandler pings every configured dependency concurrently.
func healthCheckHandler(container *Container) fiber.Handler {
	type check struct {
		name string
		ping func(context.Context) error
	}

	var checks []check
	if container.DB != nil {
		checks = append(checks, check{"db", container.DB.PingContext})
	}
	if container.Redis != nil {
		checks = append(checks, check{"redis", func(ctx context.Context) error {
			return container.Redis.Ping(ctx).Err()
		}})
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		fns := make([]func(context.Context) (struct{}, error), len(checks))
		for i, ch := range checks {
			fns[i] = func(ctx context.Context) (struct{}, error) {
				return struct{}{}, ch.ping(ctx)
			}
		}
		results := asyncx.AllSettled(ctx, fns...)

		health := fiber.Map{
			"status":  "healthy",
			"service": "jobgrid-api",
			"version": container.Config.Server.AppVersion,
		}
		for i, r := range results {
			if r.OK() {
				health[checks[i].name] = "healthy"
				continue
			}
			health[checks[i].name] = "unhealthy"
			health["status"] = "degraded"
			logx.WithContext(ctx).WithField("dependency", checks[i].name).
				WithError(r.Err).Warn("health check failed")
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}

func notFoundHandler(c *fiber.Ctx) error {
	return errx.NotFound("Route not found").
		WithDetail("path", c.Path()).
		WithDetail("method", c.Method())
}

// startServer starts the server and blocks until a shutdown signal.
func startServer(app *fiber.App, port string) {
	go func() {
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)

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

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("✅ Server exited successfully")
}
