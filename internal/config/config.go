package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Data backends accepted in DATA_BACKEND
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
)

// Backends lists every supported data backend
var Backends = []string{BackendFile, BackendMemory, BackendPostgres, BackendSQLite, BackendMongo}

type Config struct {
	// Listeners
	Port        string
	GRPCPort    string
	MetricsPort string
	// APIToken guards the gRPC API when set
	APIToken string

	// Storage
	DataBackend  string
	DataFile     string
	DBConnStr    string
	SQLiteDBPath string
	MongoURI     string
	MongoDB      string

	// Uploads and static frontend
	UploadsDir     string
	StaticDir      string
	MaxUploadBytes int64

	// Events
	AMQPURL      string
	AMQPExchange string

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// Jobs
	AutoSnapshotCron string
	ImportFile       string

	// Presentation
	DefaultCurrency string
	LogLevel        string
}

// Load reads .env (if present) and the environment
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "3001"),
		GRPCPort:    getEnv("GRPC_PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),
		APIToken:    getEnv("API_TOKEN", ""),

		DataBackend:  strings.ToLower(getEnv("DATA_BACKEND", BackendFile)),
		DataFile:     getEnv("DATA_FILE", "./finance_data.json"),
		DBConnStr:    dbConnString(),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/networth.db"),
		MongoURI:     getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGODB_DB", "networth"),

		UploadsDir:     getEnv("UPLOADS_DIR", "./uploads"),
		StaticDir:      getEnv("STATIC_DIR", ""),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 5<<20),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "networth"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "NetWorth"),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		AutoSnapshotCron: getEnv("AUTO_SNAPSHOT_CRON", ""),
		ImportFile:       getEnv("IMPORT_FILE", ""),

		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "EUR")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error listing every problem
func (c *Config) Validate() error {
	var errors []string

	// Validate ports
	for name, port := range map[string]string{"PORT": c.Port, "GRPC_PORT": c.GRPCPort, "METRICS_PORT": c.MetricsPort} {
		if port == "" && name != "PORT" {
			// Optional listeners are disabled with an empty value
			continue
		}
		if p, err := strconv.Atoi(port); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be a number", name, port))
		} else if p < 1 || p > 65535 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, p))
		}
	}

	// Validate data backend
	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}
	switch c.DataBackend {
	case BackendFile:
		if c.DataFile == "" {
			errors = append(errors, "DATA_FILE cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLITE_DB_PATH cannot be empty when using sqlite backend")
		}
	case BackendMongo:
		if !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
			errors = append(errors, fmt.Sprintf("invalid MONGODB_URI '%s': must start with mongodb:// or mongodb+srv://", c.MongoURI))
		}
		if c.MongoDB == "" {
			errors = append(errors, "MONGODB_DB cannot be empty when using mongo backend")
		}
	}

	// Validate uploads
	if c.UploadsDir == "" {
		errors = append(errors, "UPLOADS_DIR cannot be empty")
	}
	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid MAX_UPLOAD_BYTES %d: must be positive", c.MaxUploadBytes))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate cron spec if provided
	if c.AutoSnapshotCron != "" {
		if _, err := cron.ParseStandard(c.AutoSnapshotCron); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AUTO_SNAPSHOT_CRON '%s': %v", c.AutoSnapshotCron, err))
		}
	}

	// Validate currency code shape
	if len(c.DefaultCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid DEFAULT_CURRENCY '%s': must be a 3-letter ISO 4217 code", c.DefaultCurrency))
	}

	if len(errors) > 0 {
		slices.Sort(errors)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// dbConnString returns DB_CONN_STR, or builds it from individual vars (Docker friendly)
func dbConnString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "networth"),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
