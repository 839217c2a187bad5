package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Log       LogConfig
	BGG       BGGConfig
	Snapshot  SnapshotConfig
	Lock      LockConfig
	Database  DatabaseConfig
	SyncDB    SyncDBConfig
	Trello    TrelloConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"5000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"1800s"` // refresh runs are slow
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string   `envconfig:"APP_NAME" default:"bgshelf-api"`
	Environment string   `envconfig:"APP_ENV" default:"development"`
	Version     string   `envconfig:"APP_VERSION" default:"1.0.0"`
	APIKeys     []string `envconfig:"API_KEYS"` // guards refresh routes; empty disables the guard
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// BGGConfig holds the remote board-game database endpoints.
type BGGConfig struct {
	CollectionURL string        `envconfig:"BGG_COLLECTION_URL" default:"https://boardgamegeek.com/xmlapi2/collection"`
	DetailURL     string        `envconfig:"BGG_DETAIL_URL" default:"https://boardgamegeek.com/api/collections"`
	ThingURL      string        `envconfig:"BGG_THING_URL" default:"https://boardgamegeek.com/xmlapi2/thing"`
	VideoURL      string        `envconfig:"BGG_VIDEO_URL" default:"https://api.geekdo.com/api/videos/overview"`
	HTTPTimeout   time.Duration `envconfig:"BGG_HTTP_TIMEOUT" default:"30s"`
}

// SnapshotConfig holds snapshot store and refresh policy settings.
type SnapshotConfig struct {
	Dir           string        `envconfig:"SNAPSHOT_DIR" default:"./public/gameCache"`
	GameTTL       time.Duration `envconfig:"GAME_CACHE_TTL" default:"720h"`
	RetryMax      int           `envconfig:"RETRY_MAX" default:"2"`
	RetryDelay    time.Duration `envconfig:"RETRY_DELAY" default:"5s"`
	ThrottleDelay time.Duration `envconfig:"THROTTLE_DELAY" default:"3s"`
	UsersFile     string        `envconfig:"BGG_USERS_FILE" default:"./config/bggUsers.json"`
	DefaultUser   string        `envconfig:"BGG_USER_ID" default:""`
}

// LockConfig selects the backend serializing refresh runs per user.
type LockConfig struct {
	Type string        `envconfig:"LOCK_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"LOCK_TTL" default:"30m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// DatabaseConfig holds MySQL connection settings (for the users table).
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:""`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"gamelib"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// SyncDBConfig holds the relational mirror of the snapshots.
type SyncDBConfig struct {
	Type string `envconfig:"SYNC_DB_TYPE" default:"sqlite"` // sqlite, postgres, or none
	Path string `envconfig:"SYNC_DB_PATH" default:"./data/gamelib.db"`
	// PostgreSQL settings
	Host     string `envconfig:"SYNC_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"SYNC_DB_PORT" default:"5432"`
	Name     string `envconfig:"SYNC_DB_NAME" default:"gamelib"`
	User     string `envconfig:"SYNC_DB_USER" default:"postgres"`
	Password string `envconfig:"SYNC_DB_PASS" default:""`
	SSLMode  string `envconfig:"SYNC_DB_SSLMODE" default:"disable"`
}

// TrelloConfig holds Trello API settings.
type TrelloConfig struct {
	Key        string `envconfig:"TRELLO_KEY" default:""`
	BoardID    string `envconfig:"TRELLO_BOARD_ID" default:""`
	BaseURL    string `envconfig:"TRELLO_BASE_URL" default:"https://api.trello.com/1"`
	ListPrefix string `envconfig:"TRELLO_LIST_PREFIX" default:"Want"`
	ExtraList  string `envconfig:"TRELLO_EXTRA_LIST" default:"Dreamland"`
}

// SchedulerConfig holds the periodic refresh settings.
type SchedulerConfig struct {
	Interval time.Duration `envconfig:"REFRESH_INTERVAL" default:"0s"` // 0 disables
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *SyncDBConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Name, s.SSLMode)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (l *LockConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", l.RedisHost, l.RedisPort)
}

// DSN returns the MySQL data source name.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Enabled reports whether a MySQL host was configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	var errs []error

	required := map[string]string{
		"BGG_COLLECTION_URL": c.BGG.CollectionURL,
		"BGG_DETAIL_URL":     c.BGG.DetailURL,
		"BGG_THING_URL":      c.BGG.ThingURL,
		"SNAPSHOT_DIR":       c.Snapshot.Dir,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	if c.Snapshot.GameTTL <= 0 {
		errs = append(errs, errors.New("GAME_CACHE_TTL must be positive"))
	}
	if c.Snapshot.RetryMax < 0 {
		errs = append(errs, errors.New("RETRY_MAX must not be negative"))
	}
	if c.Snapshot.RetryDelay < 0 || c.Snapshot.ThrottleDelay < 0 {
		errs = append(errs, errors.New("RETRY_DELAY and THROTTLE_DELAY must not be negative"))
	}

	switch c.Lock.Type {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown LOCK_TYPE %q", c.Lock.Type))
	}

	switch c.SyncDB.Type {
	case "sqlite", "postgres", "postgresql", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown SYNC_DB_TYPE %q", c.SyncDB.Type))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_LEVEL %q", c.Log.Level))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
