package main

import (
	"log"

	"whatsapp-flow-editor/internal/config"
	"whatsapp-flow-editor/internal/database"
)

func main() {
	cfg := config.LoadConfig()
	database.InitGorm(cfg)

	log.Println("Syncing PostgreSQL sequences...")
	if err := database.SyncSequences(database.GormDB); err != nil {
		log.Fatal(err)
	}
	log.Println("DONE!")
}
