package routes

import (
	"log"
	"os"

	controller "mailscout/controllers"
	"mailscout/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"mailscout/discovery"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, service *discovery.Service, resolver discovery.MXResolver) {
	discoveryController := controller.NewDiscoveryController(db, service, log.New(os.Stdout, "DISCOVERY: ", log.Ldate|log.Ltime|log.Lshortfile))
	domainController := controller.NewDomainController(resolver, log.New(os.Stdout, "DOMAIN: ", log.LstdFlags))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "email_discovery"})
	})

	// API group with request logging
	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Discovery routes with rate limiting: every call may probe third-party
	// mail servers
	discover := api.Group("/discover", middleware.DiscoverRateLimiter())
	discover.Post("/", discoveryController.Discover)
	discover.Post("/bulk", discoveryController.BulkDiscover)
	api.Get("/discover/jobs/:id", discoveryController.GetJob)

	// WebSocket route for bulk job progress
	app.Get("/api/v1/discover/progress", websocket.New(func(c *websocket.Conn) {
		controller.HandleJobProgressWS(c)
	}))

	// Contact routes
	api.Get("/contacts", discoveryController.GetContacts)

	// Domain intel routes
	api.Get("/domains/check", domainController.CheckDomain)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Println("API routes initialized successfully")
}
