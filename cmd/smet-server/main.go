package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/mesowest-smet/internal/api/http"
	"github.com/i474232898/mesowest-smet/internal/app"
	"github.com/i474232898/mesowest-smet/internal/config"
	"github.com/i474232898/mesowest-smet/internal/logging"
	"github.com/i474232898/mesowest-smet/internal/scheduler"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr := logging.New(cfg, "smet-server")

	service, closer, err := app.NewService(cfg, logr)
	if err != nil {
		logr.Error("failed to build service", "err", err)
		os.Exit(1)
	}
	defer closer.Close()

	// Scheduler that periodically rebuilds station files.
	sched := scheduler.New(cfg.Stations, cfg.ScheduleInterval, cfg.ForecastSource != config.ForecastNone, service, logr)
	if err := sched.Start(); err != nil {
		logr.Error("failed to start scheduler", "err", err)
		os.Exit(1)
	}
	defer sched.Stop()

	server := fiber.New(fiber.Config{
		AppName:               "smet-server",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	server.Use(logger.New())
	server.Use(recover.New())

	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "smet-server",
		})
	})

	httpapi.RegisterRoutes(server, service, 2*time.Minute)

	go func() {
		if err := server.Listen(":" + cfg.Port); err != nil {
			logr.Warn("fiber server stopped", "err", err)
		}
	}()
	logr.Info("listening", "port", cfg.Port, "stations", cfg.Stations)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logr.Error("error during shutdown", "err", err)
	}
}
