package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var managedKeys = []string{
	"SCHEDULER_HTTP_PORT",
	"SCHEDULER_LOG_LEVEL",
	"SCHEDULER_STORE",
	"SCHEDULER_SQLITE_DSN",
	"SCHEDULER_REDIS_URL",
	"SCHEDULER_CALENDAR",
	"SCHEDULER_GOOGLE_CLIENT_ID",
	"SCHEDULER_GOOGLE_CLIENT_SECRET",
	"SCHEDULER_GOOGLE_REFRESH_TOKEN",
	"SCHEDULER_TIMEZONE",
	"SCHEDULER_WORKING_HOUR_START",
	"SCHEDULER_WORKING_HOUR_END",
	"SCHEDULER_LUNCH_START",
	"SCHEDULER_LUNCH_END",
	"SCHEDULER_PER_DAY_CAP",
	"SCHEDULER_DEFAULT_SEARCH_DAYS",
	"SCHEDULER_MAX_SEARCH_DAYS",
	"SCHEDULER_BUFFER_POLICY",
	"SCHEDULER_FREEBUSY_CACHE_TTL",
	"SCHEDULER_API_KEYS",
	"SCHEDULER_ALLOWED_DOMAIN",
	"SCHEDULER_CORS_ORIGINS",
}

// clearEnv unsets every managed key and restores the previous values when the test ends.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadWithFiles()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.Store != StoreSQLite || cfg.SQLiteDSN != "file:scheduler.db" {
			t.Fatalf("unexpected default store: %q %q", cfg.Store, cfg.SQLiteDSN)
		}
		if cfg.WorkingHourStart != 10 || cfg.WorkingHourEnd != 19 || cfg.LunchStart != 12 || cfg.LunchEnd != 13 {
			t.Fatalf("unexpected default hours: %+v", cfg)
		}
		if cfg.PerDayCap != 2 || cfg.DefaultSearchDays != 5 || cfg.MaxSearchDays != 30 {
			t.Fatalf("unexpected default search settings: %+v", cfg)
		}
		if cfg.Location().String() != "Asia/Tokyo" {
			t.Fatalf("expected Asia/Tokyo, got %s", cfg.Location())
		}
		if cfg.FreeBusyCacheTTL != 30*time.Second {
			t.Fatalf("expected 30s cache TTL, got %s", cfg.FreeBusyCacheTTL)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SCHEDULER_STORE", StoreRedis)

		_, err := LoadWithFiles()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "必須の環境変数が設定されていません: SCHEDULER_REDIS_URL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses duration, numeric and list fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SCHEDULER_HTTP_PORT", "9090")
		t.Setenv("SCHEDULER_FREEBUSY_CACHE_TTL", "2m")
		t.Setenv("SCHEDULER_PER_DAY_CAP", "3")
		t.Setenv("SCHEDULER_CORS_ORIGINS", "https://a.example.com,https://b.example.com")
		t.Setenv("SCHEDULER_API_KEYS", "alice@example.com=$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA; bob@example.com=$argon2id$x")

		cfg, err := LoadWithFiles()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || cfg.PerDayCap != 3 {
			t.Fatalf("unexpected numeric values: %+v", cfg)
		}
		if cfg.FreeBusyCacheTTL != 2*time.Minute {
			t.Fatalf("expected 2m TTL, got %s", cfg.FreeBusyCacheTTL)
		}
		if len(cfg.CORSOrigins) != 2 {
			t.Fatalf("expected two CORS origins, got %v", cfg.CORSOrigins)
		}
		hashes, err := cfg.APIKeyHashes()
		if err != nil {
			t.Fatalf("APIKeyHashes returned error: %v", err)
		}
		if hashes["alice@example.com"] != "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA" {
			t.Fatalf("unexpected hash for alice: %q", hashes["alice@example.com"])
		}
		if _, ok := hashes["bob@example.com"]; !ok {
			t.Fatalf("expected bob entry, got %v", hashes)
		}
		if err := cfg.RequireAPIKeys(); err != nil {
			t.Fatalf("RequireAPIKeys returned error: %v", err)
		}
	})

	t.Run("reports invalid values together", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SCHEDULER_STORE", "postgres")
		t.Setenv("SCHEDULER_LUNCH_START", "14")
		t.Setenv("SCHEDULER_LUNCH_END", "13")
		t.Setenv("SCHEDULER_BUFFER_POLICY", "sometimes")

		_, err := LoadWithFiles()
		if err == nil {
			t.Fatalf("expected validation error")
		}
		msg := err.Error()
		if !strings.HasPrefix(msg, "環境変数の値が不正です: ") {
			t.Fatalf("unexpected error prefix: %q", msg)
		}
		for _, key := range []string{"SCHEDULER_STORE", "SCHEDULER_LUNCH_START", "SCHEDULER_BUFFER_POLICY"} {
			if !strings.Contains(msg, key) {
				t.Fatalf("expected %s in error %q", key, msg)
			}
		}
	})

	t.Run("reports unparsable numbers", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SCHEDULER_HTTP_PORT", "abc")

		_, err := LoadWithFiles()
		if err == nil || !strings.Contains(err.Error(), "SCHEDULER_HTTP_PORT") {
			t.Fatalf("expected port error, got %v", err)
		}
	})

	t.Run("reads env files without overriding the process environment", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), ".env")
		content := "SCHEDULER_HTTP_PORT=7070\nSCHEDULER_CALENDAR=memory\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("SCHEDULER_CALENDAR", CalendarGoogle)

		cfg, err := LoadWithFiles(path, filepath.Join(t.TempDir(), "missing.env"))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 7070 {
			t.Fatalf("expected port from env file, got %d", cfg.HTTPPort)
		}
		if cfg.Calendar != CalendarGoogle {
			t.Fatalf("expected process value to win, got %q", cfg.Calendar)
		}
	})
}

func TestConfigRequirements(t *testing.T) {
	cfg := Config{Calendar: CalendarGoogle}
	if err := cfg.RequireGoogleCredentials(); err != nil {
		t.Fatalf("expected no error without refresh token, got %v", err)
	}

	cfg.GoogleRefreshToken = "refresh"
	err := cfg.RequireGoogleCredentials()
	expected := "必須の環境変数が設定されていません: SCHEDULER_GOOGLE_CLIENT_ID, SCHEDULER_GOOGLE_CLIENT_SECRET"
	if err == nil || err.Error() != expected {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := (Config{}).RequireAPIKeys(); err == nil {
		t.Fatalf("expected missing api keys error")
	}
	if err := (Config{APIKeys: []string{"no-separator"}}).RequireAPIKeys(); err == nil {
		t.Fatalf("expected malformed api keys error")
	}
}
