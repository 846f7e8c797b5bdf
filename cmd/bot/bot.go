package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

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
	log.Println("Starting River Basin Simulator bot...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on the environment")
	}

	configPath := flag.String("config-path", "", "bot config path")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize advisor; the bot degrades gracefully without it
	advisor, err := openai.NewAdvisorService()
	if err != nil {
		log.Printf("Basin advisor disabled: %v", err)
		advisor = nil
	}

	// Initialize repository
	repo, err := repository.NewSQLiteSessionRepository(conf.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	// Initialize scraper
	scraper := integration.NewObservationScraper(conf.ObservationURL)

	// Initialize use case with the advisor
	useCase := usecases.NewSimulationUseCase(repo, scraper, advisor, conf.CampaignDays)

	// Get the bot token from environment variable
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	// Initialize Telegram bot
	telegramBot, err := api.NewTelegramBot(botToken, useCase)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	// Start the bot
	telegramBot.Start()
}
