package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Plant     PlantConfig
	Store     StoreConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	WhatsApp  WhatsAppConfig
	MongoDB   MongoDBConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// PlantConfig describes the line the service logs for.
type PlantConfig struct {
	Timezone string
	Machines []models.Machine
}

// Location resolves the plant time zone.
func (p PlantConfig) Location() (*time.Location, error) {
	return time.LoadLocation(p.Timezone)
}

// StoreConfig selects where the production tables live.
type StoreConfig struct {
	Backend    string
	DataDir    string
	SQLitePath string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// ReportingConfig holds scheduler-related settings. An empty CronSchedule
// turns the shift close report off.
type ReportingConfig struct {
	CronSchedule string
}

// WhatsAppConfig contains credentials for the Meta WhatsApp Cloud API used to
// push shift reports. Notifications are off unless Enabled reports true.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	ReportTo      string
}

// Enabled reports whether enough is configured to send messages.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != "" && w.PhoneNumberID != "" && w.ReportTo != ""
}

// MongoDBConfig holds settings for the shift report archive. An empty URI
// turns the archive off.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when the environment carries the settings.
		_ = godotenv.Load()
	}

	machines := models.DefaultMachines
	if raw := os.Getenv("MACHINES"); raw != "" {
		parsed, err := models.ParseMachines(raw)
		if err != nil {
			return nil, fmt.Errorf("MACHINES: %w", err)
		}
		machines = parsed
	}

	cronSchedule := "0 8,20 * * *"
	if v, ok := os.LookupEnv("REPORT_CRON_SCHEDULE"); ok {
		cronSchedule = strings.TrimSpace(v)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Plant: PlantConfig{
			Timezone: getenvWithDefault("TIMEZONE", "Asia/Kolkata"),
			Machines: machines,
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(getenvWithDefault("STORE_BACKEND", BackendCSV)),
			DataDir:    getenvWithDefault("DATA_DIR", "./data"),
			SQLitePath: getenvWithDefault("SQLITE_PATH", "./data/shiftlog.db"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Reporting: ReportingConfig{
			CronSchedule: cronSchedule,
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ReportTo:      os.Getenv("WHATSAPP_REPORT_TO"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "shiftlog"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if _, err := c.Plant.Location(); err != nil {
		return fmt.Errorf("TIMEZONE %q is invalid: %w", c.Plant.Timezone, err)
	}

	if len(c.Plant.Machines) == 0 {
		return errors.New("MACHINES must list at least one machine")
	}

	switch c.Store.Backend {
	case BackendCSV:
		if c.Store.DataDir == "" {
			return errors.New("DATA_DIR must not be empty")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH must not be empty")
		}
	case BackendSheets:
		switch {
		case c.Sheets.CredentialsPath == "":
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
		case c.Sheets.SpreadsheetID == "":
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
		}
	default:
		return fmt.Errorf("STORE_BACKEND %q is not one of csv, sqlite, sheets", c.Store.Backend)
	}

	if c.WhatsApp.AccessToken != "" {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if c.MongoDB.URI != "" && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must not be empty when MONGODB_URI is set")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
