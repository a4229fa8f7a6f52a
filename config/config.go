package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Attribution modes decide who is recorded as the author of new posts and comments.
const (
	AttributionSessionOrDefault = "session_or_default"
	AttributionRequireSession   = "require_session"
	AttributionFirstUser        = "first_user"
)

// Store drivers select the system of record.
const (
	StoreDriverDatabase = "database"
	StoreDriverMemory   = "memory"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort        string
	JWTSecret      string
	TokenTTLHours  int
	AllowedOrigins []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Relational database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// System of record and read fallback
	StoreDriver     string
	StoreFallback   bool
	AttributionMode string
	// Redis for the token blacklist
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Blog
	Categories       []string
	DefaultUserEmail string
	DefaultUserName  string
}

// Load loads the server configuration from config/config.json, defaults and the
// environment. A missing JWT secret is fatal.
func Load() AppConfig {
	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}
	return c
}

// LoadFrom builds a configuration from the JSON file at path (optional), defaults and
// environment variables, in that order of precedence from lowest to highest.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects option values the service cannot run with.
func (c AppConfig) Validate() error {
	switch c.StoreDriver {
	case StoreDriverDatabase, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	switch c.AttributionMode {
	case AttributionSessionOrDefault, AttributionRequireSession, AttributionFirstUser:
	default:
		return fmt.Errorf("unknown attribution mode %q", c.AttributionMode)
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.DBDriver)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	out.StoreFallback = true
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			if f, ok := v.(float64); ok {
				return int(f)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) (bool, bool) {
		if v, ok := m[key]; ok {
			b, ok := v.(bool)
			return b, ok
		}
		return false, false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.TokenTTLHours = getInt(app, "TokenTTLHours")
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if st, ok := raw["store"].(map[string]any); ok {
		out.StoreDriver = getString(st, "Driver")
		if b, ok := getBool(st, "Fallback"); ok {
			out.StoreFallback = b
		}
		out.AttributionMode = getString(st, "AttributionMode")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.GinMode = getString(lg, "GinMode")
		out.GinPath = getString(lg, "GinPath")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress, _ = getBool(lg, "Compress")
	}

	if bl, ok := raw["blog"].(map[string]any); ok {
		out.Categories = getStringSlice(bl, "Categories")
		out.DefaultUserEmail = getString(bl, "DefaultUserEmail")
		out.DefaultUserName = getString(bl, "DefaultUserName")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = defaultPort(c.DBDriver)
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "madickblog"
	}
	if c.StoreDriver == "" {
		c.StoreDriver = StoreDriverDatabase
	}
	if c.AttributionMode == "" {
		c.AttributionMode = AttributionSessionOrDefault
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if len(c.Categories) == 0 {
		c.Categories = []string{"General", "Technology", "Lifestyle", "Travel"}
	}
	if c.DefaultUserEmail == "" {
		c.DefaultUserEmail = "anonymous@example.com"
	}
	if c.DefaultUserName == "" {
		c.DefaultUserName = "Anonymous User"
	}
}

func defaultPort(driver string) string {
	if driver == "postgres" {
		return "5432"
	}
	return "3306"
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	var errs []string
	intVar := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not an integer", key, v))
				return
			}
			*dst = i
		}
	}
	boolVar := func(key string, dst *bool) {
		if v := getEnv(key, ""); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}
	strVar := func(key string, dst *string) {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	strVar("APP_PORT", &c.AppPort)
	strVar("JWT_SECRET", &c.JWTSecret)
	intVar("TOKEN_TTL_HOURS", &c.TokenTTLHours)
	c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	strVar("GIN_MODE", &c.GinMode)
	strVar("GIN_PATH", &c.GinPath)

	strVar("DB_DRIVER", &c.DBDriver)
	strVar("DATABASE_URI", &c.DatabaseURI)
	strVar("DB_HOST", &c.DBHost)
	strVar("DB_PORT", &c.DBPort)
	strVar("DB_USER", &c.DBUser)
	strVar("DB_PASSWORD", &c.DBPassword)
	strVar("DB_NAME", &c.DBName)

	strVar("STORE_DRIVER", &c.StoreDriver)
	boolVar("STORE_FALLBACK", &c.StoreFallback)
	strVar("ATTRIBUTION_MODE", &c.AttributionMode)

	strVar("REDIS_HOST", &c.RedisHost)
	intVar("REDIS_PORT", &c.RedisPort)
	intVar("REDIS_DB", &c.RedisDB)
	strVar("REDIS_PASSWORD", &c.RedisPassword)

	strVar("LOG_LEVEL", &c.LogLevel)
	strVar("LOG_PATH", &c.LogPath)
	intVar("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	intVar("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	intVar("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	boolVar("LOG_COMPRESS", &c.LogCompress)

	c.Categories = readListEnv("BLOG_CATEGORIES", c.Categories)
	strVar("DEFAULT_USER_EMAIL", &c.DefaultUserEmail)
	strVar("DEFAULT_USER_NAME", &c.DefaultUserName)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
