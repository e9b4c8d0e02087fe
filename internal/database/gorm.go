package database

import (
	"fmt"
	"log"

	"whatsapp-flow-editor/internal/config"
	"whatsapp-flow-editor/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var GormDB *gorm.DB

// Tables lists every migrated model in dependency order.
var Tables = []any{
	&models.Flow{},
	&models.FlowNode{},
	&models.FlowEdge{},
	&models.Reference{},
	&models.Upload{},
}

func InitGorm(cfg *config.Config) {
	db, err := Open(cfg, logger.Info)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", cfg.DBDriver, err)
	}
	log.Printf("Connected to %s successfully", cfg.DBDriver)

	if err := Migrate(db); err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}
	log.Println("Database migration completed")

	GormDB = db
}

// Open connects with the driver named by cfg.DBDriver.
func Open(cfg *config.Config, level logger.LogLevel) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(level)}
	switch cfg.DBDriver {
	case "postgres":
		return gorm.Open(postgres.Open(PostgresDSN(cfg)), gcfg)
	case "sqlite", "":
		return gorm.Open(sqlite.Open(cfg.DBPath), gcfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func PostgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Tables...)
}
