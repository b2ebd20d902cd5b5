package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/digitalka/monthly-sales/consts"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

const (
	portFlag         = "p"
	portEnv          = "PORT"
	dataFolderFlag   = "data"
	dataFolderEnv    = "DATA_FOLDER"
	databaseURIFlag  = "d"
	databaseURIEnv   = "DATABASE_URI"
	storeDriverFlag  = "store"
	storeDriverEnv   = "STORE_DRIVER"
	uploadsDirEnv    = "UPLOADS_DIR"
	uploadsURLEnv    = "UPLOADS_BASE_URL"
	exportCronEnv    = "EXPORT_CRON"
	sessionSecretEnv = "SESSION_SECRET"
	sessionTTLEnv    = "SESSION_TTL"
	currencyEnv      = "CURRENCY"
	localeEnv        = "LOCALE"
	logLevelEnv      = "LOG_LEVEL"
	shutdownEnv      = "SHUTDOWN_TIMEOUT"
)

var validDrivers = []string{"memory", "postgres", "sqlite"}

type Config struct {
	Port            string
	DataFolder      string
	StoreDriver     string
	DatabaseURI     string
	UploadsDir      string
	UploadsBaseURL  string
	ExportCron      string
	SessionSecret   string
	SessionTTL      time.Duration
	Currency        string
	Locale          string
	LogLevel        string
	ShutdownTimeout time.Duration

	loadProblems []string
}

// Load reads an optional .env file, then command line flags, then the
// environment. Environment values win over flags.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	fset := flag.NewFlagSet("monthly-sales", flag.ContinueOnError)
	port := fset.String(portFlag, consts.DefaultPort, "HTTP port")
	dataFolder := fset.String(dataFolderFlag, ".", "Folder holding the database and uploads")
	databaseURI := fset.String(databaseURIFlag, "", "Database connection string (default: $DATA_FOLDER/orders.db for sqlite)")
	storeDriver := fset.String(storeDriverFlag, consts.DefaultStoreDriver, "Order store driver: "+strings.Join(validDrivers, ", "))
	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if v, ok := os.LookupEnv(portEnv); ok {
		*port = v
	}
	if v, ok := os.LookupEnv(dataFolderEnv); ok {
		*dataFolder = v
	}
	if v, ok := os.LookupEnv(databaseURIEnv); ok {
		*databaseURI = v
	}
	if v, ok := os.LookupEnv(storeDriverEnv); ok {
		*storeDriver = v
	}

	cfg := &Config{
		Port:           *port,
		DataFolder:     *dataFolder,
		StoreDriver:    *storeDriver,
		DatabaseURI:    *databaseURI,
		UploadsDir:     getEnv(uploadsDirEnv, filepath.Join(*dataFolder, consts.UploadsDir)),
		UploadsBaseURL: getEnv(uploadsURLEnv, consts.UploadsRoutePath),
		ExportCron:     getEnv(exportCronEnv, consts.CronDailyExport),
		SessionSecret:  getEnv(sessionSecretEnv, ""),
		Currency:       getEnv(currencyEnv, consts.DefaultCurrency),
		Locale:         getEnv(localeEnv, consts.DefaultLocale),
		LogLevel:       getEnv(logLevelEnv, consts.DefaultLogLevel),
	}
	cfg.SessionTTL = cfg.getEnvDuration(sessionTTLEnv, consts.DefaultSessionTTL)
	cfg.ShutdownTimeout = cfg.getEnvDuration(shutdownEnv, consts.ShutdownTimeout)
	if cfg.StoreDriver == "sqlite" && cfg.DatabaseURI == "" {
		cfg.DatabaseURI = filepath.Join(cfg.DataFolder, consts.DefaultDatabaseFile)
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error listing every problem found
func (c *Config) Validate() error {
	problems := slices.Clone(c.loadProblems)

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validDrivers, c.StoreDriver) {
		problems = append(problems, fmt.Sprintf("invalid store driver '%s': must be one of %v", c.StoreDriver, validDrivers))
	}
	if c.StoreDriver == "postgres" && c.DatabaseURI == "" {
		problems = append(problems, "database URI is required when using postgres store")
	}

	if c.UploadsDir == "" {
		problems = append(problems, "uploads directory cannot be empty")
	}

	if _, err := cron.ParseStandard(c.ExportCron); err != nil {
		problems = append(problems, fmt.Sprintf("invalid export cron spec '%s': %v", c.ExportCron, err))
	}

	if len(c.SessionSecret) < 32 {
		problems = append(problems, "session secret must be at least 32 characters")
	}
	if c.SessionTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.ShutdownTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout))
	}

	// Order totals are stored in cents
	if unit, err := currency.ParseISO(c.Currency); err != nil {
		problems = append(problems, fmt.Sprintf("invalid currency '%s': %v", c.Currency, err))
	} else if scale, _ := currency.Standard.Rounding(unit); scale > 2 {
		problems = append(problems, fmt.Sprintf("unsupported currency '%s': %d decimal places, at most 2 are stored", c.Currency, scale))
	}
	if _, err := language.Parse(c.Locale); err != nil {
		problems = append(problems, fmt.Sprintf("invalid locale '%s': %v", c.Locale, err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration keeps the default for a malformed value and reports it from Validate.
func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.loadProblems = append(c.loadProblems, fmt.Sprintf("invalid %s '%s': %v", key, value, err))
		return defaultValue
	}
	return d
}
