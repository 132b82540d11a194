package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"jpestate/server/config"
	"jpestate/server/internal/agent"
	"jpestate/server/internal/api"
	"jpestate/server/internal/database"
	"jpestate/server/internal/geocoding"
	"jpestate/server/internal/geometry"
	"jpestate/server/internal/models"
	"jpestate/server/internal/processor"
	"jpestate/server/internal/queue"
	"jpestate/server/internal/scheduler"
	"jpestate/server/internal/scraping"
	"jpestate/server/internal/table"
	"jpestate/server/internal/telegram"
	"jpestate/server/internal/updater"
)

func newStore(cfg *config.Config, logger *logrus.Logger) (database.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		logger.Info("Using postgres store")
		return database.NewPostgresStore(cfg.Database.DSN)
	default:
		logger.Infof("Using sqlite store at: %s", cfg.Database.Path)
		return database.NewSQLiteStore(cfg.Database.Path)
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// A missing .env is fine; the environment may be set elsewhere
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	store, err := newStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize store")
	}
	defer store.Close()

	if err := store.CreateSchema(); err != nil {
		logger.WithError(err).Fatal("Failed to create schema")
	}

	seeds := config.NewSeedList(cfg.Scraper.SeedsPath)
	if err := seeds.Load(); err != nil {
		logger.WithError(err).Fatal("Failed to load seed URLs")
	}
	logger.Infof("Loaded %d seed URLs", seeds.Len())

	// Ingestion pipeline: scraper -> queue -> processor -> store
	listingQueue := queue.NewListingQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(store, listingQueue, cfg, logger)

	if cfg.Telegram.Enabled {
		notifier := telegram.NewService(&models.TelegramConfig{
			BotToken:  cfg.Telegram.BotToken,
			ChatID:    cfg.Telegram.ChatID,
			IsEnabled: true,
		}, logger)
		batchProcessor.SetNotifier(notifier)
	}

	batchProcessor.Start()
	listingQueue.Start()
	defer listingQueue.Close()

	scraper := scraping.NewManager(listingQueue, scraping.ManagerOptions{
		Headless:  cfg.Scraper.Headless,
		Timeout:   time.Duration(cfg.Scraper.PageTimeout) * time.Second,
		BatchSize: cfg.BatchProcessing.MaxBatchSize,
		RateLimit: time.Duration(cfg.Scraper.RateLimitMs) * time.Millisecond,
	}, logger)

	statusUpdater := updater.NewUpdater(store, cfg.Scraper.RevalidateConcurrency, logger)
	geocoder := geocoding.NewGeocoder(logger, cfg.Geocoding.CachePath)
	wards := geometry.NewWardManager(store, logger)

	llm := agent.NewChatClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	extractor := agent.NewFilterExtractor(llm, logger)

	handler := api.NewHandler(api.Deps{
		Store:        store,
		Materializer: table.NewMaterializer(store, logger),
		Extractor:    extractor,
		Scraper:      scraper,
		Updater:      statusUpdater,
		Wards:        wards,
		Seeds:        seeds,
		Logger:       logger,
	})

	if err := handler.ReloadTable(); err != nil {
		logger.WithError(err).Fatal("Failed to materialize listings table")
	}

	// Backfill coordinates for listings geocoded runs haven't reached
	go func() {
		if _, err := geocoder.BackfillCoordinates(store); err != nil {
			logger.WithError(err).Error("Coordinate backfill failed")
		}
	}()

	sched := scheduler.NewScheduler(scheduler.Jobs{
		Scrape: func() error {
			urls := seeds.URLs()
			if len(urls) == 0 {
				return nil
			}
			return scraper.ScrapeURLs(context.Background(), urls)
		},
		Revalidate: func() error {
			browserCtx, cancel := scraper.NewBrowserContext(context.Background())
			defer cancel()
			_, err := statusUpdater.Revalidate(browserCtx, scraper.Extractor())
			return err
		},
		Reload: handler.ReloadTable,
	}, logger)
	sched.Start()
	defer sched.Stop()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	api.SetupRoutes(router, handler)

	logger.Infof("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
