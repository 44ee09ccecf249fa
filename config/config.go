package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// MongoDB holds the turn log.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis holds conversation context and busy flags.
	RedisAddr         string `mapstructure:"REDIS_ADDR"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
	RedisContextDB    int    `mapstructure:"REDIS_CONTEXT_DB"`
	ContextTTLMinutes int    `mapstructure:"CONTEXT_TTL_MINUTES"`
	BusyTTLSeconds    int    `mapstructure:"BUSY_TTL_SECONDS"`

	// Google APIs: reverse geocoding, speech and Gemini.
	GoogleAPIKey             string `mapstructure:"GOOGLE_API_KEY"`
	GoogleServiceAccountFile string `mapstructure:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GeminiAPIKey             string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel              string `mapstructure:"GEMINI_MODEL"`

	// Search backend: "http" or "gemini".
	SearchBackend        string `mapstructure:"SEARCH_BACKEND"`
	SearchURL            string `mapstructure:"SEARCH_URL"`
	SearchTimeoutSeconds int    `mapstructure:"SEARCH_TIMEOUT_SECONDS"`
	ResultCount          int    `mapstructure:"RESULT_COUNT"`

	PhaseSearchingMs  int `mapstructure:"PHASE_SEARCHING_MS"`
	PhaseOrganizingMs int `mapstructure:"PHASE_ORGANIZING_MS"`

	// Comma separated additions to the built-in gazetteers.
	ExtraServiceNouns string `mapstructure:"EXTRA_SERVICE_NOUNS"`
	ExtraCities       string `mapstructure:"EXTRA_CITIES"`
}

var AppConfig Config

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "servicefinder")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CONTEXT_DB", 0)
	viper.SetDefault("CONTEXT_TTL_MINUTES", 60)
	viper.SetDefault("BUSY_TTL_SECONDS", 30)
	viper.SetDefault("GOOGLE_API_KEY", "")
	viper.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("SEARCH_BACKEND", "http")
	viper.SetDefault("SEARCH_URL", "http://localhost:9000")
	viper.SetDefault("SEARCH_TIMEOUT_SECONDS", 20)
	viper.SetDefault("RESULT_COUNT", 5)
	viper.SetDefault("PHASE_SEARCHING_MS", 800)
	viper.SetDefault("PHASE_ORGANIZING_MS", 2500)
	viper.SetDefault("EXTRA_SERVICE_NOUNS", "")
	viper.SetDefault("EXTRA_CITIES", "")
}

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

func (c Config) ContextTTL() time.Duration {
	return time.Duration(c.ContextTTLMinutes) * time.Minute
}

func (c Config) BusyTTL() time.Duration {
	return time.Duration(c.BusyTTLSeconds) * time.Second
}

func (c Config) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutSeconds) * time.Second
}

// ServiceNouns returns EXTRA_SERVICE_NOUNS as a lower-cased list.
func (c Config) ServiceNouns() []string {
	return splitList(c.ExtraServiceNouns)
}

// Cities returns EXTRA_CITIES as a lower-cased list.
func (c Config) Cities() []string {
	return splitList(c.ExtraCities)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
