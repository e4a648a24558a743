package config

import (
	"flag"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultServerAddress = ":8080"
	defaultDatabaseDSN   = ""
	defaultLogLevel      = "debug"
	defaultMPBaseURL     = "https://api.mercadopago.com"
	defaultPollInterval  = 30 * time.Second
)

type Config struct {
	ServerAddr      string
	DatabaseDSN     string
	LogLevel        string
	MPBaseURL       string
	MPAccessToken   string
	MPPublicKey     string
	MPWebhookSecret string
	AuthTokenKey    string
	PollInterval    time.Duration
}

var (
	once      sync.Once
	singleton *Config
)

// New returns new Config. It parses command line and environment variables only once.
func New() (*Config, error) {
	once.Do(func() {
		// optional .env for local development
		_ = godotenv.Load()

		cfg := Config{}

		// initialize flags
		flag.StringVar(&cfg.ServerAddr, "a", defaultServerAddress, "server address")
		flag.StringVar(&cfg.DatabaseDSN, "d", defaultDatabaseDSN, "database DSN")
		flag.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")
		flag.DurationVar(&cfg.PollInterval, "p", defaultPollInterval, "pending payment poll interval")

		flag.Parse()

		// if environment variable is set, then using it
		if runAddrEnv := os.Getenv("RUN_ADDRESS"); runAddrEnv != "" {
			cfg.ServerAddr = runAddrEnv
		}
		if databaseURIEnv := os.Getenv("DATABASE_URI"); databaseURIEnv != "" {
			cfg.DatabaseDSN = databaseURIEnv
		}
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			cfg.LogLevel = logLevelEnv
		}
		if pollEnv := os.Getenv("PAYMENT_POLL_INTERVAL"); pollEnv != "" {
			if d, err := time.ParseDuration(pollEnv); err == nil {
				cfg.PollInterval = d
			}
		}

		cfg.MPBaseURL = getEnv("MP_BASE_URL", defaultMPBaseURL)
		cfg.MPAccessToken = os.Getenv("MP_ACCESS_TOKEN")
		cfg.MPPublicKey = os.Getenv("MP_PUBLIC_KEY")
		cfg.MPWebhookSecret = os.Getenv("MP_WEBHOOK_SECRET")
		cfg.AuthTokenKey = os.Getenv("AUTH_TOKEN_KEY")

		singleton = &cfg
	})

	return singleton, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
