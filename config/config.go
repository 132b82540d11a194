package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		Port string `env:"PORT" envDefault:"8080"`
	}

	// Database configuration
	Database struct {
		// Driver selects the store backend: "sqlite3" or "postgres"
		Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`

		// Path to the SQLite database file
		Path string `env:"DB_PATH" envDefault:"listings.db"`

		// DSN for the postgres driver
		DSN string `env:"DB_DSN"`
	}

	// Scraper configuration
	Scraper struct {
		// Source label recorded with each persisted listing
		Source string `env:"SCRAPER_SOURCE" envDefault:"japan-real-estate"`

		// Path to the JSON file listing seed detail-page URLs
		SeedsPath string `env:"SCRAPER_SEEDS_PATH" envDefault:"config/seeds.json"`

		Headless bool `env:"SCRAPER_HEADLESS" envDefault:"true"`

		// Per-page timeout in seconds
		PageTimeout int `env:"SCRAPER_PAGE_TIMEOUT" envDefault:"60"`

		// Delay between page loads in milliseconds
		RateLimitMs int `env:"SCRAPER_RATE_LIMIT_MS" envDefault:"1000"`

		// Concurrent pages during revalidation runs
		RevalidateConcurrency int `env:"SCRAPER_REVALIDATE_CONCURRENCY" envDefault:"4"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of listings to accumulate before processing
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Queue buffer size in batches
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"100"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	// LLM configuration for the agent search endpoint
	LLM struct {
		BaseURL string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
		APIKey  string `env:"LLM_API_KEY"`
		Model   string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	}

	// Telegram notification configuration
	Telegram struct {
		BotToken string `env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `env:"TELEGRAM_CHAT_ID"`
		Enabled  bool   `env:"TELEGRAM_ENABLED" envDefault:"false"`
	}

	// Geocoding configuration
	Geocoding struct {
		CachePath string `env:"GEOCODING_CACHE_PATH" envDefault:"geocoding_cache.json"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
