package database

import (
	"log"
	"os"

	"dtbase_go_backend/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB opens the model database at DB_PATH (a single sqlite file) and
// migrates the schema.
func InitDB() {
	path := os.Getenv("DB_PATH")
	if path == "" {
		path = "dtbase.db"
	}

	var err error
	DB, err = Open(path)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
}

// Open opens and migrates a model database at the given path. Tests use
// it with ":memory:".
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.Node{}, &models.Link{}, &models.Reference{}); err != nil {
		return nil, err
	}
	return db, nil
}
