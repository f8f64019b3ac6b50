package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/guileen/planlite/api"
	"github.com/guileen/planlite/catalog"
	"github.com/guileen/planlite/logger"
)

func main() {
	startTime := time.Now()
	logger.Info("Starting planlite server", "startup_time", startTime.Format(time.RFC3339))

	stats := catalog.NewStore()
	restHandler := api.NewRESTHandler(stats)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	restHandler.RegisterRoutes(r)

	port := ":8080"
	if p := os.Getenv("PORT"); p != "" {
		port = ":" + p
	}

	server := &http.Server{
		Addr:    port,
		Handler: r,
	}

	go func() {
		logger.Info("HTTP server listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed to start", "error", err, "port", port)
			log.Fatalf("HTTP server failed to start: %v", err)
		}
	}()
	logger.Info("HTTP server initialization complete", "init_duration", time.Since(startTime).String())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
		log.Fatalf("HTTP server shutdown failed: %v", err)
	}
	logger.Info("HTTP server shutdown complete", "shutdown_duration", time.Since(startTime).String())
}
