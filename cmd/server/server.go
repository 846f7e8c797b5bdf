package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"

	"github.com/simverse/riversim/internal/api"
	"github.com/simverse/riversim/internal/config"
	"github.com/simverse/riversim/internal/integration"
	"github.com/simverse/riversim/internal/integration/openai"
	"github.com/simverse/riversim/internal/repository"
	"github.com/simverse/riversim/internal/usecases"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting River Basin Simulator server...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on the environment")
	}

	configPath := flag.String("config-path", "", "server config path")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize repository
	repo, err := repository.NewSQLiteSessionRepository(conf.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	// Initialize scraper
	scraper := integration.NewObservationScraper(conf.ObservationURL)

	// Initialize advisor; the REST surface works without it
	advisor, err := openai.NewAdvisorService()
	if err != nil {
		log.Printf("Basin advisor disabled: %v", err)
		advisor = nil
	}

	// Initialize use case
	useCase := usecases.NewSimulationUseCase(repo, scraper, advisor, conf.CampaignDays)

	// Refresh observations immediately on startup
	if err := useCase.RefreshObservations(); err != nil {
		log.Printf("Initial observation refresh failed: %v", err)
	}

	// Schedule background jobs
	c := cron.New()
	if _, err := c.AddFunc(conf.ObservationSchedule, func() {
		if err := useCase.RefreshObservations(); err != nil {
			log.Printf("Scheduled observation refresh failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to set up observation cron job: %v", err)
	}
	sessionTTL := time.Duration(conf.SessionTTLHours) * time.Hour
	if _, err := c.AddFunc(conf.PurgeSchedule, func() {
		if err := useCase.PurgeStaleSessions(sessionTTL); err != nil {
			log.Printf("Scheduled session purge failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to set up purge cron job: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Set up the HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	api.Register(e, useCase)

	go func() {
		if err := e.Start(":" + conf.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server stopped: %v", err)
		}
	}()
	log.Printf("Server listening on port %s", conf.ServerPort)

	// Wait for a termination signal, then drain in-flight requests
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(graceful); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
