package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"mailscout/config"
	"mailscout/discovery"
	"mailscout/middleware"
	"mailscout/routes"
	"mailscout/utils"
	"mailscout/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "MAILSCOUT: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Build the discovery engine from config
	probeCfg := config.AppConfig.Probe
	resolver := discovery.NewNetResolver(probeCfg.Timeout)
	prober := discovery.NewSMTPProber(probeCfg.Timeout)
	prober.Port = probeCfg.Port
	prober.HelloDomain = probeCfg.HelloDomain
	prober.FromAddress = probeCfg.FromAddress

	policy := discovery.DefaultPolicy()
	policy.DisconnectedScore = probeCfg.DisconnectedScore
	policy.ProbeErrorScore = probeCfg.ProbeErrorScore
	policy.DefensiveAsPositive = probeCfg.DefensiveAsPositive

	service := discovery.NewService(resolver, prober, policy,
		log.New(os.Stdout, "ENGINE: ", log.LstdFlags), probeCfg.Concurrency)

	// Initialize and start the bulk discovery worker
	notifier := utils.NewNotifier(config.AppConfig.SMTP)
	discoveryWorker := worker.NewDiscoveryWorker(config.DB, service, notifier,
		log.New(os.Stdout, "WORKER: ", log.LstdFlags))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go discoveryWorker.Start(ctx)

	// Status endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Setup routes (registers the trailing 404 handler)
	routes.SetupRoutes(app, config.DB, service, resolver)

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
