package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whatsapp-flow-editor/internal/api"
	"whatsapp-flow-editor/internal/config"
	"whatsapp-flow-editor/internal/database"
	"whatsapp-flow-editor/internal/store"
	"whatsapp-flow-editor/internal/ws"
)

func main() {
	cfg := config.LoadConfig()
	database.InitGorm(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	router := api.NewRouter(api.RouterConfig{
		Store:     store.New(database.GormDB),
		Events:    hub,
		UploadDir: cfg.UploadDir,
		WebSocket: hub.ServeWs,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to run server: %v", err)
	}
	log.Println("Server stopped")
}
