package database

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
)

var DB *gorm.DB

// Connect opens the database. DATABASE_URL (or the DB_* variables) selects
// Postgres; with neither set a local SQLite file is used so the bot runs
// without any infrastructure.
func Connect() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" && os.Getenv("DB_HOST") != "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_SSLMODE", "require"),
		)
	}

	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var err error
	if dsn != "" {
		DB, err = gorm.Open(postgres.Open(dsn), config)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Println("✅ Connected to PostgreSQL")
	} else {
		path := getEnv("SQLITE_PATH", "appointments.db")
		DB, err = gorm.Open(sqlite.Open(path), config)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		log.Printf("✅ Using SQLite database at %s", path)
	}

	return nil
}

// Migrate creates or updates the schema.
func Migrate() error {
	if err := DB.AutoMigrate(&models.Appointment{}, &models.SessionRecord{}); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	log.Println("✅ Database migrated")
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
