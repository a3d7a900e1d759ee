package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
// Values are immutable after Load.
type Config struct {
	// Market data feed
	FeedURL        string
	FeedAPIKey     string
	FeedTOTPSecret string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	APIAddr       string

	// Notification sinks (optional; empty disables)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	Signal     SignalConfig
	Volatility VolatilityConfig
}

// SignalConfig controls signal generation and scheduling.
type SignalConfig struct {
	MinConfidence     int // reject decisions below this confidence [0,100]
	PreCloseSeconds   int // emit this many seconds before candle close
	SendSignalSeconds int // delivery window inside the pre-close lead
	HistoryCandles    int // candles fetched when priming a session
	ChartCandles      int // candles handed to chart renderers
	WindowCapacity    int // closed-candle buffer capacity per window
}

// VolatilityConfig controls the volatility abstention rules.
type VolatilityConfig struct {
	ATRThreshold            float64 // ATR14 / close ratio
	TickVolatilityThreshold float64 // (max-min)/mid over the tick window
	TickVolatilityWindow    int     // recent ticks of the forming candle
	MinCandlesForSignal     int     // closed candles required before voting
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		FeedURL:        getEnv("FEED_WS_URL", "wss://feed.example.com/stream"),
		FeedAPIKey:     mustEnv("FEED_API_KEY"),
		FeedTOTPSecret: getEnv("FEED_TOTP_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/signals.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		APIAddr:       getEnv("API_ADDR", ":8080"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		Signal:     LoadSignalConfig(),
		Volatility: LoadVolatilityConfig(),
	}
}

// LoadSignalConfig reads the SIGNAL_* env group.
func LoadSignalConfig() SignalConfig {
	return SignalConfig{
		MinConfidence:     getEnvInt("SIGNAL_MIN_CONFIDENCE", 60),
		PreCloseSeconds:   getEnvInt("SIGNAL_PRE_CLOSE_SECONDS", 4),
		SendSignalSeconds: getEnvInt("SIGNAL_SEND_SECONDS", 3),
		HistoryCandles:    getEnvInt("SIGNAL_HISTORY_CANDLES", 300),
		ChartCandles:      getEnvInt("SIGNAL_CHART_CANDLES", 100),
		WindowCapacity:    getEnvInt("SIGNAL_WINDOW_CAPACITY", 500),
	}
}

// LoadVolatilityConfig reads the VOLATILITY_* env group.
func LoadVolatilityConfig() VolatilityConfig {
	return VolatilityConfig{
		ATRThreshold:            getEnvFloat("VOLATILITY_ATR_THRESHOLD", 0.005),
		TickVolatilityThreshold: getEnvFloat("VOLATILITY_TICK_THRESHOLD", 0.003),
		TickVolatilityWindow:    getEnvInt("VOLATILITY_TICK_WINDOW", 10),
		MinCandlesForSignal:     getEnvInt("VOLATILITY_MIN_CANDLES", 50),
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s: %q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
