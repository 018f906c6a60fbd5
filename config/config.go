package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pricetracker/models"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	Port        string
	Environment string
	Version     string

	LogLevel  string
	LogPretty bool

	DBDriver   string // postgres or sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	RedisAddr string // empty disables redis; cache falls back to in-process

	CryptoCacheTTL time.Duration
	StockCacheTTL  time.Duration
	ForexCacheTTL  time.Duration
	CryptoTopLimit int

	CoinGeckoBaseURL    string
	ExchangeRateBaseURL string
	AlphaVantageBaseURL string
	AlphaVantageAPIKey  string
	UpstreamTimeout     time.Duration

	CryptoIDs    []string // CoinGecko coin ids
	ForexTargets []string // quoted against USD
	StockSymbols []string

	CryptoUpdateCron string
	StockUpdateCron  string
	ForexUpdateCron  string
	AlertCheckCron   string

	RateLimitPerMinute int
}

// Load reads configuration from the environment, consulting a .env file
// when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Version:     getEnv("VERSION", "1.0.0"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "pricetracker"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "pricetracker.db"),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		CryptoCacheTTL: time.Duration(getEnvInt("CACHE_CRYPTO_TTL_MINUTES", 5)) * time.Minute,
		StockCacheTTL:  time.Duration(getEnvInt("CACHE_STOCK_TTL_MINUTES", 15)) * time.Minute,
		ForexCacheTTL:  time.Duration(getEnvInt("CACHE_FOREX_TTL_MINUTES", 60)) * time.Minute,
		CryptoTopLimit: getEnvInt("CRYPTO_TOP_LIMIT", 20),

		CoinGeckoBaseURL:    getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		ExchangeRateBaseURL: getEnv("EXCHANGERATE_BASE_URL", "https://api.exchangerate-api.com/v4"),
		AlphaVantageBaseURL: getEnv("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co"),
		AlphaVantageAPIKey:  getEnv("ALPHAVANTAGE_API_KEY", ""),
		UpstreamTimeout:     time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,

		CryptoIDs: getEnvList("CRYPTO_IDS",
			"bitcoin,ethereum,binancecoin,cardano,solana,ripple,polkadot,dogecoin,avalanche-2,polygon"),
		ForexTargets: getEnvList("FOREX_TARGETS", "EUR,GBP,JPY,CHF,CAD,AUD,NZD,CNY,INR,BRL"),
		StockSymbols: getEnvList("STOCK_SYMBOLS", "AAPL,MSFT,GOOGL,AMZN,TSLA"),

		CryptoUpdateCron: getEnv("CRYPTO_UPDATE_CRON", "*/5 * * * *"),
		StockUpdateCron:  getEnv("STOCK_UPDATE_CRON", "*/10 * * * *"),
		ForexUpdateCron:  getEnv("FOREX_UPDATE_CRON", "0 * * * *"),
		AlertCheckCron:   getEnv("ALERT_CHECK_CRON", "*/2 * * * *"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}
}

// OpenDB connects to the configured database, verifies the connection and
// runs migrations. DB_DRIVER=sqlite gives a file-backed store for local
// development without Postgres.
func OpenDB(cfg *Config, log zerolog.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.Environment == "production" {
		logLevel = gormlogger.Error
	}
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
	default:
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
		)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping: %w", err)
	}

	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Info().Str("driver", cfg.DBDriver).Msg("database connection verified")
	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
