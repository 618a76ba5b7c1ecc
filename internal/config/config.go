package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSheetLink is the PAT Jacareí report the dashboard was built for.
const DefaultSheetLink = "https://docs.google.com/spreadsheets/d/1u2AbsJ-iiZLtHul2jv6yf1TEnYu8kOwe/edit?gid=479008521#gid=479008521"

type Config struct {
	// HTTP Server
	Port string

	// Source spreadsheet
	SheetLink     string
	SourceFormat  string
	SourceFile    string
	SourceCharset string
	SheetName     string
	SheetRange    string

	// Google Sheets API (sheets format only)
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Extraction
	LayoutProfile string
	LayoutFile    string

	// Timing
	CacheTTL        time.Duration
	FetchTimeout    time.Duration
	RefreshInterval time.Duration

	// Logging
	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		SheetLink:     getEnv("SHEET_LINK", DefaultSheetLink),
		SourceFormat:  strings.ToLower(getEnv("SOURCE_FORMAT", "csv")),
		SourceFile:    getEnv("SOURCE_FILE", ""),
		SourceCharset: strings.ToLower(getEnv("SOURCE_CHARSET", "utf-8")),
		SheetName:     getEnv("SHEET_NAME", ""),
		SheetRange:    getEnv("SHEET_RANGE", "A:Z"),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LayoutProfile: getEnv("LAYOUT_PROFILE", "quinzena"),
		LayoutFile:    getEnv("LAYOUT_FILE", ""),

		CacheTTL:        getEnvDuration("CACHE_TTL", 90*time.Second),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 20*time.Second),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 120*time.Second),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validFormats := []string{"csv", "xlsx", "sheets", "file"}
	if !oneOf(validFormats, c.SourceFormat) {
		errors = append(errors, fmt.Sprintf("invalid source format '%s': must be one of %v", c.SourceFormat, validFormats))
	}

	switch c.SourceFormat {
	case "file":
		if c.SourceFile == "" {
			errors = append(errors, "SOURCE_FILE is required when using file source")
		} else if _, err := os.Stat(c.SourceFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("source file does not exist: %s", c.SourceFile))
		}
	default:
		if strings.TrimSpace(c.SheetLink) == "" {
			errors = append(errors, "SHEET_LINK cannot be empty")
		}
	}

	if c.SourceFormat == "sheets" && c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	validCharsets := []string{"utf-8", "utf8", "latin1", "iso-8859-1", "windows-1252", "cp1252"}
	if !oneOf(validCharsets, c.SourceCharset) {
		errors = append(errors, fmt.Sprintf("invalid source charset '%s': must be one of %v", c.SourceCharset, validCharsets))
	}

	if strings.TrimSpace(c.LayoutProfile) == "" {
		errors = append(errors, "LAYOUT_PROFILE cannot be empty")
	}
	if c.LayoutFile != "" {
		if _, err := os.Stat(c.LayoutFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("layout file does not exist: %s", c.LayoutFile))
		}
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	} else if c.CacheTTL > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 1 hour", c.CacheTTL))
	}

	if c.FetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 1 second", c.FetchTimeout))
	}

	if c.RefreshInterval < 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 10 seconds", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	if _, ok := parseLevel(c.LogLevel); !ok {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SlogLevel returns the configured log level, info when unknown.
func (c *Config) SlogLevel() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(s string) (slog.Level, bool) {
	switch s {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

func oneOf(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
