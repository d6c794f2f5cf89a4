package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	defaultDatabasePath = "data/shiftledger.db"
	defaultCalendarTag  = "[バイト]"
	defaultTimezone     = "Asia/Tokyo"
	defaultSyncSchedule = "0 20 * * *"
	defaultHTTPAddr     = ":8080"
)

// Config captures environment driven configuration values for the shift ledger.
type Config struct {
	DatabasePath string

	CalendarURL   string
	CalendarToken string
	CalendarTag   string

	AttendanceEmail      string
	AttendancePassword   string
	AttendanceEmployeeID string
	AttendanceLoginURL   string
	AttendanceBaseURL    string
	AutoFillEmployer     string
	ChromePath           string

	Location     *time.Location
	SyncSchedule string
	SyncOnStart  bool
	SyncTimeout  time.Duration

	HTTPAddr     string
	APITokenHash string
	LogLevel     slog.Level
}

// AttendanceConfigured reports whether every portal credential is present.
func (c Config) AttendanceConfigured() bool {
	return c.AttendanceEmail != "" && c.AttendancePassword != "" && c.AttendanceEmployeeID != ""
}

// LoadDotEnv loads variables from the given files, ".env" when none are
// given. Missing files are ignored and variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf(".env ファイルを読み込めません (%s): %w", path, err)
		}
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Malformed values are collected and
// reported together in a localized error.
func Load() (Config, error) {
	cfg := Config{
		DatabasePath: defaultDatabasePath,
		CalendarTag:  defaultCalendarTag,
		SyncSchedule: defaultSyncSchedule,
		SyncOnStart:  true,
		SyncTimeout:  10 * time.Minute,
		HTTPAddr:     defaultHTTPAddr,
		LogLevel:     slog.LevelInfo,
	}

	invalid := make([]string, 0, 4)

	if dsn := env("DATABASE_URL"); dsn != "" {
		if path := databasePath(dsn); path != "" {
			cfg.DatabasePath = path
		} else {
			invalid = append(invalid, "DATABASE_URL")
		}
	}

	cfg.CalendarURL = env("GAS_API_URL")
	cfg.CalendarToken = env("CALENDAR_TOKEN")
	if tag := env("CALENDAR_TAG"); tag != "" {
		cfg.CalendarTag = tag
	}

	cfg.AttendanceEmail = env("FREEE_EMAIL")
	cfg.AttendancePassword = env("FREEE_PASSWORD")
	cfg.AttendanceEmployeeID = env("FREEE_EMPLOYEE_ID")
	cfg.AttendanceLoginURL = env("FREEE_LOGIN_URL")
	cfg.AttendanceBaseURL = env("FREEE_BASE_URL")
	cfg.AutoFillEmployer = env("FREEE_JOB_NAME")
	cfg.ChromePath = env("CHROME_PATH")

	tz := defaultTimezone
	if value := env("LEDGER_TIMEZONE"); value != "" {
		tz = value
	}
	if loc, err := time.LoadLocation(tz); err != nil {
		invalid = append(invalid, "LEDGER_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if spec := env("SYNC_CRON"); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			invalid = append(invalid, "SYNC_CRON")
		} else {
			cfg.SyncSchedule = spec
		}
	}

	if value := env("SYNC_ON_START"); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "SYNC_ON_START")
		} else {
			cfg.SyncOnStart = enabled
		}
	}

	if value := env("SYNC_TIMEOUT"); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "SYNC_TIMEOUT")
		} else {
			cfg.SyncTimeout = timeout
		}
	}

	if addr := env("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}

	if hash := env("API_TOKEN_HASH"); hash != "" {
		if !strings.HasPrefix(hash, "$argon2id$") {
			invalid = append(invalid, "API_TOKEN_HASH")
		} else {
			cfg.APITokenHash = hash
		}
	}

	if value := env("LOG_LEVEL"); value != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err != nil {
			invalid = append(invalid, "LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// databasePath accepts a bare path or a "file:" URL and strips the scheme
// and query parameters.
func databasePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return strings.TrimSpace(path)
}
