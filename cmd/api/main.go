package main

import (
	"log"

	"github.com/GimhanaMahela/BusWatch/config"
	"github.com/GimhanaMahela/BusWatch/internal/api/routes"
	"github.com/GimhanaMahela/BusWatch/internal/auth"
	"github.com/GimhanaMahela/BusWatch/internal/database"
	"github.com/GimhanaMahela/BusWatch/internal/mailer"
	"github.com/GimhanaMahela/BusWatch/internal/media"
	"github.com/GimhanaMahela/BusWatch/internal/receipt"
	"github.com/GimhanaMahela/BusWatch/internal/s3"
	"github.com/GimhanaMahela/BusWatch/internal/service"
	"github.com/GimhanaMahela/BusWatch/internal/socket"
	"github.com/GimhanaMahela/BusWatch/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	// Local development reads credentials from .env; deployments set real
	// environment variables.
	godotenv.Load()

	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	auth.Init(cfg.JWT.Secret, cfg.JWT.Expiration)

	db, err := database.Connect(cfg.Mongo)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	if err := database.EnsureIndexes(db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	if err := database.SeedInitialAdmin(db, cfg.Admin); err != nil {
		log.Fatalf("Failed to seed initial admin: %v", err)
	}

	s3Uploader, err := s3.NewUploader(cfg.S3)
	if err != nil {
		log.Fatalf("Failed to create S3 uploader: %v", err)
	}

	reportStore := store.NewMongoReportStore(db)
	wsHub := socket.NewHub()

	submissions := &service.SubmissionService{
		Store:          reportStore,
		Ingestor:       media.NewIngestor(s3Uploader, cfg.Media.MaxImages, cfg.Media.MaxVideos),
		Renderer:       receipt.NewRenderer(nil),
		Mailer:         mailer.NewMailer(cfg.SMTP),
		Storage:        s3Uploader,
		Hub:            wsHub,
		DeliveryPolicy: cfg.Receipt.Delivery,
	}

	router := routes.SetupRouter(db, reportStore, submissions, wsHub)

	log.Printf("Starting API server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
