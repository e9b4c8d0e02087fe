package main

import (
	"log"

	"whatsapp-flow-editor/internal/config"
	"whatsapp-flow-editor/internal/database"

	"gorm.io/gorm/logger"
)

// Copies the development sqlite database at DB_PATH into the postgres
// database described by the DB_* variables.
func main() {
	cfg := config.LoadConfig()

	source := *cfg
	source.DBDriver = "sqlite"
	sqliteDB, err := database.Open(&source, logger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to SQLite: %v", err)
	}
	log.Printf("Connected to SQLite at %s", cfg.DBPath)

	dest := *cfg
	dest.DBDriver = "postgres"
	database.InitGorm(&dest)

	log.Println("Starting data migration...")
	if err := database.CopyAll(sqliteDB, database.GormDB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := database.SyncSequences(database.GormDB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed!")
}
