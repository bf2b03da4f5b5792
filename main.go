package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/database"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/handlers"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/jobs"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/routes"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/services"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, using environment variables")
	}

	store := buildStore()
	storage.SetStore(store)

	messenger, err := services.NewMessengerFromEnv()
	if err != nil {
		log.Fatalf("❌ Messenger setup failed: %v", err)
	}

	adminPhone := os.Getenv("ADMIN_PHONE_NUMBER")
	if adminPhone == "" {
		log.Println("⚠️ ADMIN_PHONE_NUMBER not set, admin notifications disabled")
	}

	flow := services.NewFlow(store, store, messenger, adminPhone)
	adminFlow := services.NewAdminFlow(store, messenger, adminPhone)

	location := loadTimezone()
	reminderJob := jobs.NewReminderJob(store, messenger, adminFlow, location)
	reminderJob.Start()
	defer reminderJob.Stop()

	app := fiber.New(fiber.Config{
		AppName: "Shivas Eye Care Appointment Bot",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	whatsappHandler := handlers.NewWhatsAppHandler(
		flow,
		adminFlow,
		adminPhone,
		os.Getenv("WEBHOOK_VERIFY_TOKEN"),
		os.Getenv("URL_TOKEN"),
	)
	adminHandler := handlers.NewAdminHandler(store)

	enableTestRoutes := os.Getenv("ENABLE_TEST_ROUTES") == "true"
	routes.Setup(app, whatsappHandler, adminHandler, os.Getenv("WHATSAPP_APP_SECRET"), enableTestRoutes)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	go func() {
		log.Printf("🚀 Server starting on port %s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	reminderJob.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("❌ Shutdown error: %v", err)
	}
	log.Println("👋 Server stopped")
}

// buildStore selects the persistence backends. USE_MEMORY_STORE=true keeps
// everything in process memory; otherwise appointments live in the
// database, with sessions either alongside them or in Redis when
// REDIS_URL is set.
func buildStore() storage.Store {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("💾 Using in-memory store")
		return storage.NewMemoryStore()
	}

	if err := database.Connect(); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Database migration failed: %v", err)
	}
	dbStore := storage.NewDatabaseStore(database.DB)

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return dbStore
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("❌ Invalid REDIS_URL: %v", err)
	}
	sessionStore := storage.NewRedisSessionStore(redis.NewClient(opts))
	log.Println("✅ Using Redis for sessions")
	return storage.Compose(sessionStore, dbStore)
}

func loadTimezone() *time.Location {
	name := os.Getenv("TIMEZONE")
	if name == "" {
		name = "Asia/Kolkata"
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("⚠️ Invalid TIMEZONE %q, falling back to UTC: %v", name, err)
		return time.UTC
	}
	return location
}
