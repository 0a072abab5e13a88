package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"
)

// MinBucketWidthSec is the narrowest timeline bucket accepted
const MinBucketWidthSec = 60

// Config holds the configuration for the dashboard services
type Config struct {
	// Service configuration
	ServiceName string
	HTTPPort    int
	LogLevel    string

	// Preference persistence: memory, redis or postgres
	PrefsBackend string

	// Redis configuration
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Postgres configuration
	PostgresHost               string
	PostgresPort               int
	PostgresUser               string
	PostgresPassword           string
	PostgresDB                 string
	PostgresSSLMode            string
	PostgresMaxConnections     int
	PostgresMaxIdleConnections int
	PostgresConnMaxLifetime    time.Duration

	// MQTT configuration (playback frame publishing)
	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string
	FrameTopic   string

	// Data sources; empty means the bundled sample
	TimeSeriesFile string
	LayoutFile     string

	// Presentation defaults
	LocaleCatalogFile  string
	DefaultLocale      string
	BucketWidthSec     int
	PlaybackIntervalMs int

	// Facility coordinates for timeline daylight shading. Record times are
	// wall clock in FacilityTimezone.
	Latitude         float64
	Longitude        float64
	FacilityTimezone string

	QueryCacheSize       int
	ConnectRetryAttempts int
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		ServiceName:  "floorplan-dashboard",
		HTTPPort:     8080,
		LogLevel:     "info",
		PrefsBackend: "memory",

		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		PostgresHost:               "localhost",
		PostgresPort:               5432,
		PostgresUser:               "dashboard",
		PostgresPassword:           "",
		PostgresDB:                 "dashboard",
		PostgresSSLMode:            "disable",
		PostgresMaxConnections:     5,
		PostgresMaxIdleConnections: 2,
		PostgresConnMaxLifetime:    30 * time.Minute,

		MQTTEnabled:  false,
		MQTTBroker:   "localhost",
		MQTTPort:     1883,
		MQTTClientID: "",
		FrameTopic:   "dashboard/occupancy/frame",

		DefaultLocale:      "en",
		BucketWidthSec:     3600,
		PlaybackIntervalMs: 1000,

		// Helsinki
		Latitude:         60.1695,
		Longitude:        24.9354,
		FacilityTimezone: "Europe/Helsinki",

		QueryCacheSize:       10_000,
		ConnectRetryAttempts: 5,
	}
}

// LoadFromEnv loads configuration from environment variables with DASHBOARD_ prefix
func (c *Config) LoadFromEnv() {
	// Service configuration
	if v := os.Getenv("DASHBOARD_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("DASHBOARD_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HTTPPort = port
		}
	}
	if v := os.Getenv("DASHBOARD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DASHBOARD_PREFS_BACKEND"); v != "" {
		c.PrefsBackend = v
	}

	// Redis configuration
	if v := os.Getenv("DASHBOARD_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("DASHBOARD_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("DASHBOARD_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("DASHBOARD_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// Postgres configuration
	if v := os.Getenv("DASHBOARD_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("DASHBOARD_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.PostgresPort = port
		}
	}
	if v := os.Getenv("DASHBOARD_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("DASHBOARD_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("DASHBOARD_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}
	if v := os.Getenv("DASHBOARD_POSTGRES_SSLMODE"); v != "" {
		c.PostgresSSLMode = v
	}

	// MQTT configuration
	if v := os.Getenv("DASHBOARD_MQTT_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.MQTTEnabled = enabled
		}
	}
	if v := os.Getenv("DASHBOARD_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("DASHBOARD_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MQTTPort = port
		}
	}
	if v := os.Getenv("DASHBOARD_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("DASHBOARD_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("DASHBOARD_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}
	if v := os.Getenv("DASHBOARD_FRAME_TOPIC"); v != "" {
		c.FrameTopic = v
	}

	// Data sources
	if v := os.Getenv("DASHBOARD_TIME_SERIES_FILE"); v != "" {
		c.TimeSeriesFile = v
	}
	if v := os.Getenv("DASHBOARD_LAYOUT_FILE"); v != "" {
		c.LayoutFile = v
	}

	// Presentation defaults
	if v := os.Getenv("DASHBOARD_LOCALE_CATALOG_FILE"); v != "" {
		c.LocaleCatalogFile = v
	}
	if v := os.Getenv("DASHBOARD_DEFAULT_LOCALE"); v != "" {
		c.DefaultLocale = v
	}
	if v := os.Getenv("DASHBOARD_BUCKET_WIDTH_SEC"); v != "" {
		if width, err := strconv.Atoi(v); err == nil {
			c.BucketWidthSec = width
		}
	}
	if v := os.Getenv("DASHBOARD_PLAYBACK_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.PlaybackIntervalMs = ms
		}
	}
	if v := os.Getenv("DASHBOARD_LATITUDE"); v != "" {
		if lat, err := strconv.ParseFloat(v, 64); err == nil {
			c.Latitude = lat
		}
	}
	if v := os.Getenv("DASHBOARD_LONGITUDE"); v != "" {
		if lon, err := strconv.ParseFloat(v, 64); err == nil {
			c.Longitude = lon
		}
	}
	if v := os.Getenv("DASHBOARD_FACILITY_TIMEZONE"); v != "" {
		c.FacilityTimezone = v
	}
	if v := os.Getenv("DASHBOARD_QUERY_CACHE_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			c.QueryCacheSize = size
		}
	}
	if v := os.Getenv("DASHBOARD_CONNECT_RETRY_ATTEMPTS"); v != "" {
		if attempts, err := strconv.Atoi(v); err == nil {
			c.ConnectRetryAttempts = attempts
		}
	}
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	c.RegisterFlags(pflag.CommandLine)
	pflag.Parse()
}

// RegisterFlags binds every config value to a flag on fs
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	// Service flags
	fs.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	fs.IntVar(&c.HTTPPort, "http-port", c.HTTPPort, "HTTP API port")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.PrefsBackend, "prefs-backend", c.PrefsBackend, "Preference store (memory, redis, postgres)")

	// Redis flags
	fs.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	fs.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// Postgres flags
	fs.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	fs.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	fs.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres user")
	fs.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	fs.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database")
	fs.StringVar(&c.PostgresSSLMode, "postgres-sslmode", c.PostgresSSLMode, "Postgres sslmode")

	// MQTT flags
	fs.BoolVar(&c.MQTTEnabled, "mqtt-enabled", c.MQTTEnabled, "Publish playback frames over MQTT")
	fs.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	fs.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	fs.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	fs.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	fs.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")
	fs.StringVar(&c.FrameTopic, "frame-topic", c.FrameTopic, "MQTT topic for playback frames")

	// Data flags
	fs.StringVar(&c.TimeSeriesFile, "time-series-file", c.TimeSeriesFile, "Time-series JSON to load at startup (empty: bundled sample)")
	fs.StringVar(&c.LayoutFile, "layout-file", c.LayoutFile, "Layout JSON to load at startup (empty: bundled sample)")

	// Presentation flags
	fs.StringVar(&c.LocaleCatalogFile, "locale-catalog", c.LocaleCatalogFile, "YAML locale catalog overriding the bundled strings")
	fs.StringVar(&c.DefaultLocale, "default-locale", c.DefaultLocale, "Default locale")
	fs.IntVar(&c.BucketWidthSec, "bucket-width", c.BucketWidthSec, "Default timeline bucket width in seconds")
	fs.IntVar(&c.PlaybackIntervalMs, "playback-interval-ms", c.PlaybackIntervalMs, "Playback frame interval at 1x speed (ms)")
	fs.Float64Var(&c.Latitude, "latitude", c.Latitude, "Facility latitude for daylight shading")
	fs.Float64Var(&c.Longitude, "longitude", c.Longitude, "Facility longitude for daylight shading")
	fs.StringVar(&c.FacilityTimezone, "timezone", c.FacilityTimezone, "IANA timezone of the facility wall clock used in record times")

	fs.IntVar(&c.QueryCacheSize, "query-cache-size", c.QueryCacheSize, "Maximum cached query results")
	fs.IntVar(&c.ConnectRetryAttempts, "connect-retry-attempts", c.ConnectRetryAttempts, "Attempts when connecting to Redis/Postgres/MQTT")
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	switch c.PrefsBackend {
	case "memory":
	case "redis":
		if c.RedisHost == "" {
			return fmt.Errorf("Redis host is required for the redis prefs backend")
		}
		if c.RedisPort <= 0 || c.RedisPort > 65535 {
			return fmt.Errorf("Redis port must be between 1 and 65535")
		}
	case "postgres":
		if c.PostgresHost == "" || c.PostgresDB == "" {
			return fmt.Errorf("Postgres host and database are required for the postgres prefs backend")
		}
		if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
			return fmt.Errorf("Postgres port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("invalid prefs backend: %s (must be memory, redis, or postgres)", c.PrefsBackend)
	}

	if c.MQTTEnabled {
		if c.MQTTBroker == "" {
			return fmt.Errorf("MQTT broker is required when MQTT is enabled")
		}
		if c.MQTTPort <= 0 || c.MQTTPort > 65535 {
			return fmt.Errorf("MQTT port must be between 1 and 65535")
		}
		if c.FrameTopic == "" {
			return fmt.Errorf("frame topic is required when MQTT is enabled")
		}
	}

	if c.BucketWidthSec < MinBucketWidthSec {
		return fmt.Errorf("bucket width must be at least %d seconds", MinBucketWidthSec)
	}
	if _, err := time.LoadLocation(c.FacilityTimezone); err != nil {
		return fmt.Errorf("invalid facility timezone %q: %w", c.FacilityTimezone, err)
	}
	if c.PlaybackIntervalMs <= 0 {
		return fmt.Errorf("playback interval must be positive")
	}
	if c.QueryCacheSize <= 0 {
		return fmt.Errorf("query cache size must be positive")
	}
	if c.ConnectRetryAttempts <= 0 {
		c.ConnectRetryAttempts = 1
	}

	return nil
}

// Location returns the facility timezone, falling back to UTC when it
// cannot be loaded
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.FacilityTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PlaybackInterval returns the 1x playback frame interval
func (c *Config) PlaybackInterval() time.Duration {
	return time.Duration(c.PlaybackIntervalMs) * time.Millisecond
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns the lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}
