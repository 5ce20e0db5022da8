package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage and calendar backends selectable through the environment.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"

	CalendarGoogle = "google"
	CalendarMemory = "memory"

	BufferBlockStart = "block_start"
	BufferAroundBusy = "around_busy"
)

// DefaultEnvFiles are read, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config captures environment driven configuration values for the meeting finder service.
type Config struct {
	HTTPPort    int      `env:"SCHEDULER_HTTP_PORT" envDefault:"8080"`
	LogLevel    string   `env:"SCHEDULER_LOG_LEVEL" envDefault:"info"`
	MetricsPath string   `env:"SCHEDULER_METRICS_PATH" envDefault:"/metrics"`
	CORSOrigins []string `env:"SCHEDULER_CORS_ORIGINS" envSeparator:","`

	Store     string `env:"SCHEDULER_STORE" envDefault:"sqlite"`
	SQLiteDSN string `env:"SCHEDULER_SQLITE_DSN" envDefault:"file:scheduler.db"`
	RedisURL  string `env:"SCHEDULER_REDIS_URL"`
	RedisKey  string `env:"SCHEDULER_REDIS_KEY" envDefault:"cases"`

	Calendar           string `env:"SCHEDULER_CALENDAR" envDefault:"google"`
	GoogleClientID     string `env:"SCHEDULER_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"SCHEDULER_GOOGLE_CLIENT_SECRET"`
	GoogleRefreshToken string `env:"SCHEDULER_GOOGLE_REFRESH_TOKEN"`
	GoogleCalendarID   string `env:"SCHEDULER_GOOGLE_CALENDAR_ID" envDefault:"primary"`
	GoogleEndpoint     string `env:"SCHEDULER_GOOGLE_ENDPOINT"`

	TimeZone          string        `env:"SCHEDULER_TIMEZONE" envDefault:"Asia/Tokyo"`
	WorkingHourStart  int           `env:"SCHEDULER_WORKING_HOUR_START" envDefault:"10"`
	WorkingHourEnd    int           `env:"SCHEDULER_WORKING_HOUR_END" envDefault:"19"`
	LunchStart        int           `env:"SCHEDULER_LUNCH_START" envDefault:"12"`
	LunchEnd          int           `env:"SCHEDULER_LUNCH_END" envDefault:"13"`
	PerDayCap         int           `env:"SCHEDULER_PER_DAY_CAP" envDefault:"2"`
	DefaultSearchDays int           `env:"SCHEDULER_DEFAULT_SEARCH_DAYS" envDefault:"5"`
	MaxSearchDays     int           `env:"SCHEDULER_MAX_SEARCH_DAYS" envDefault:"30"`
	BufferPolicy      string        `env:"SCHEDULER_BUFFER_POLICY" envDefault:"block_start"`
	FreeBusyCacheTTL  time.Duration `env:"SCHEDULER_FREEBUSY_CACHE_TTL" envDefault:"30s"`

	// APIKeys holds "owner=argon2id-hash" entries separated by semicolons.
	APIKeys       []string `env:"SCHEDULER_API_KEYS" envSeparator:";"`
	AllowedDomain string   `env:"SCHEDULER_ALLOWED_DOMAIN"`

	ShutdownTimeout time.Duration `env:"SCHEDULER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads the default .env files and parses the process environment.
func Load() (Config, error) {
	return LoadWithFiles(DefaultEnvFiles...)
}

// LoadWithFiles loads the given .env files that exist, then parses and
// validates the environment. Variables already set in the process win over
// values from the files.
//
// Missing and malformed entries are reported together with localized messages.
func LoadWithFiles(files ...string) (Config, error) {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return Config{}, fmt.Errorf("failed to load env files: %w", err)
		}
	}

	var cfg Config
	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if err := env.Parse(&cfg); err != nil {
		var agg env.AggregateError
		if !errors.As(err, &agg) {
			return Config{}, fmt.Errorf("環境変数の値が不正です: %w", err)
		}
		for _, fieldErr := range agg.Errors {
			var notSet env.EnvVarIsNotSetError
			if errors.As(fieldErr, &notSet) {
				missing = append(missing, notSet.Key)
				continue
			}
			invalid = append(invalid, fieldErr.Error())
		}
	}

	invalid = append(invalid, cfg.validate()...)
	if cfg.Store == StoreRedis && strings.TrimSpace(cfg.RedisURL) == "" {
		missing = append(missing, "SCHEDULER_REDIS_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func (c Config) validate() []string {
	invalid := make([]string, 0)
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, "SCHEDULER_HTTP_PORT")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		invalid = append(invalid, "SCHEDULER_LOG_LEVEL")
	}
	switch c.Store {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		invalid = append(invalid, "SCHEDULER_STORE")
	}
	switch c.Calendar {
	case CalendarGoogle, CalendarMemory:
	default:
		invalid = append(invalid, "SCHEDULER_CALENDAR")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		invalid = append(invalid, "SCHEDULER_TIMEZONE")
	}
	if !validHour(c.WorkingHourStart) || !validHour(c.WorkingHourEnd) || c.WorkingHourEnd <= c.WorkingHourStart {
		invalid = append(invalid, "SCHEDULER_WORKING_HOUR_START", "SCHEDULER_WORKING_HOUR_END")
	}
	if !validHour(c.LunchStart) || !validHour(c.LunchEnd) || c.LunchEnd <= c.LunchStart {
		invalid = append(invalid, "SCHEDULER_LUNCH_START", "SCHEDULER_LUNCH_END")
	}
	if c.PerDayCap <= 0 {
		invalid = append(invalid, "SCHEDULER_PER_DAY_CAP")
	}
	if c.DefaultSearchDays <= 0 {
		invalid = append(invalid, "SCHEDULER_DEFAULT_SEARCH_DAYS")
	}
	if c.MaxSearchDays < c.DefaultSearchDays {
		invalid = append(invalid, "SCHEDULER_MAX_SEARCH_DAYS")
	}
	switch c.BufferPolicy {
	case BufferBlockStart, BufferAroundBusy:
	default:
		invalid = append(invalid, "SCHEDULER_BUFFER_POLICY")
	}
	if c.FreeBusyCacheTTL < 0 {
		invalid = append(invalid, "SCHEDULER_FREEBUSY_CACHE_TTL")
	}
	if _, err := c.APIKeyHashes(); err != nil {
		invalid = append(invalid, "SCHEDULER_API_KEYS")
	}
	return invalid
}

func validHour(hour int) bool {
	return hour >= 0 && hour <= 24
}

// Location returns the organisational time zone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.TrimSpace(value)))
	return level, err
}

// APIKeyHashes returns the configured owner to hash map.
func (c Config) APIKeyHashes() (map[string]string, error) {
	hashes := make(map[string]string, len(c.APIKeys))
	for _, entry := range c.APIKeys {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		owner, hash, ok := strings.Cut(entry, "=")
		owner = strings.TrimSpace(owner)
		hash = strings.TrimSpace(hash)
		if !ok || owner == "" || hash == "" {
			return nil, fmt.Errorf("malformed api key entry %q", owner)
		}
		hashes[owner] = hash
	}
	return hashes, nil
}

// RequireAPIKeys reports a localized error when no API keys are configured.
func (c Config) RequireAPIKeys() error {
	hashes, err := c.APIKeyHashes()
	if err != nil {
		return fmt.Errorf("環境変数の値が不正です: SCHEDULER_API_KEYS")
	}
	if len(hashes) == 0 {
		return fmt.Errorf("必須の環境変数が設定されていません: SCHEDULER_API_KEYS")
	}
	return nil
}

// RequireGoogleCredentials reports OAuth client settings missing for the
// refresh-token fallback of the Google calendar backend.
func (c Config) RequireGoogleCredentials() error {
	if c.Calendar != CalendarGoogle || strings.TrimSpace(c.GoogleRefreshToken) == "" {
		return nil
	}
	missing := make([]string, 0, 2)
	if strings.TrimSpace(c.GoogleClientID) == "" {
		missing = append(missing, "SCHEDULER_GOOGLE_CLIENT_ID")
	}
	if strings.TrimSpace(c.GoogleClientSecret) == "" {
		missing = append(missing, "SCHEDULER_GOOGLE_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	return nil
}
