package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Forecast ForecastConfig
	Source   SourceConfig
	Cache    CacheConfig
	Export   ExportConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ForecastConfig carries the tunables of the forecasting pipeline that are
// deployment-wide rather than per-store (per-store values live in
// calibration_params).
type ForecastConfig struct {
	AnalysisDays     int     // lookback window for the daily average
	FloorRatio       float64 // minimum fraction of base prediction after coefficients
	OutputDir        string  // directory for exported order CSVs
	StoreParallelism int     // max concurrent store runs
}

// SourceConfig describes the live externally-managed item query.
type SourceConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	SnapshotTTLSeconds int
}

// ExportConfig describes the optional S3-compatible bucket for order lists.
type ExportConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "autoorder")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("FORECAST_ANALYSIS_DAYS", 30)
		viper.SetDefault("FORECAST_FLOOR_RATIO", 0.15)
		viper.SetDefault("FORECAST_OUTPUT_DIR", "./data/orders")
		viper.SetDefault("FORECAST_STORE_PARALLELISM", 4)
		viper.SetDefault("SOURCE_BASE_URL", "")
		viper.SetDefault("SOURCE_TIMEOUT_SECONDS", 20)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_SNAPSHOT_TTL_SECONDS", 300)
		viper.SetDefault("EXPORT_ENABLED", false)
		viper.SetDefault("EXPORT_ENDPOINT", "")
		viper.SetDefault("EXPORT_ACCESS_KEY", "")
		viper.SetDefault("EXPORT_SECRET_KEY", "")
		viper.SetDefault("EXPORT_BUCKET", "")
		viper.SetDefault("EXPORT_REGION", "")
		viper.SetDefault("EXPORT_USE_SSL", true)

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("FORECAST_OUTPUT_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Forecast: ForecastConfig{
				AnalysisDays:     viper.GetInt("FORECAST_ANALYSIS_DAYS"),
				FloorRatio:       viper.GetFloat64("FORECAST_FLOOR_RATIO"),
				OutputDir:        viper.GetString("FORECAST_OUTPUT_DIR"),
				StoreParallelism: viper.GetInt("FORECAST_STORE_PARALLELISM"),
			},
			Source: SourceConfig{
				BaseURL:        viper.GetString("SOURCE_BASE_URL"),
				TimeoutSeconds: viper.GetInt("SOURCE_TIMEOUT_SECONDS"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				SnapshotTTLSeconds: viper.GetInt("CACHE_SNAPSHOT_TTL_SECONDS"),
			},
			Export: ExportConfig{
				Enabled:   viper.GetBool("EXPORT_ENABLED"),
				Endpoint:  viper.GetString("EXPORT_ENDPOINT"),
				AccessKey: viper.GetString("EXPORT_ACCESS_KEY"),
				SecretKey: viper.GetString("EXPORT_SECRET_KEY"),
				Bucket:    viper.GetString("EXPORT_BUCKET"),
				Region:    viper.GetString("EXPORT_REGION"),
				UseSSL:    viper.GetBool("EXPORT_USE_SSL"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
