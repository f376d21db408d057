package database

import (
	"fmt"
	"lms/models"
	"lms/models/learning"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// ConnectDb establishes a connection to PostgreSQL
func ConnectDb() {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	// TranslateError lets callers detect duplicate-key violations as
	// gorm.ErrDuplicatedKey; badge and certificate awarding relies on it.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		os.Exit(2)
	}

	// Set up connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(0)

	// Run database migrations
	runMigrations(db)

	// Save database instance globally
	Database = DbInstance{Db: db}
}

// runMigrations performs database migrations
func runMigrations(db *gorm.DB) {
	log.Println("Running Migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&learning.Course{},
		&learning.Path{},
		&learning.Module{},
		&learning.Lesson{},
		&learning.AssessmentQuestion{},
		&learning.Project{},
		&learning.Enrollment{},
		&learning.Bootcamp{},
		&learning.BootcampSeat{},
		&learning.ModuleAvailability{},
		&learning.AssessmentSubmission{},
		&learning.ProjectSubmission{},
		&learning.LessonCompletion{},
		&learning.ModuleProgress{},
		&learning.GamificationSummary{},
		&learning.DailyActivityLog{},
		&learning.Badge{},
		&learning.Certificate{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully.")
}
