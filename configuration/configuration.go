package configuration

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"fleetdesk/backend/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c, err := Load([]string{".env", ".env.local"})
	if err != nil {
		panic(err)
	}
	return c
})

// Use returns the process-wide configuration, loading it on first use.
func Use() *Configuration {
	return singleton()
}

// LoadEnv loads whichever of the given env files exist and reports how many were read.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

type DatabaseOptions struct {
	Driver   string `env:"DB_DRIVER" envDefault:"sqlite3"`
	Path     string `env:"DB_PATH" envDefault:"./database.db"`
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"fleetdesk"`
	SSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"`
}

// ConnectionString returns the DSN for the configured driver.
func (d DatabaseOptions) ConnectionString() string {
	if d.Driver != "postgres" {
		return d.Path + "?_journal=WAL&_timeout=10000&_busy_timeout=10000&_foreign_keys=on"
	}
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// Redacted is the connection string with the password masked, for logs.
func (d DatabaseOptions) Redacted() string {
	dsn := d.ConnectionString()
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}

type FirebaseOptions struct {
	ProjectID         string `env:"FIREBASE_PROJECT_ID"`
	CredentialsJSON   string `env:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	CredentialsBase64 string `env:"FIREBASE_SERVICE_ACCOUNT_BASE64"`
}

func (f FirebaseOptions) Configured() bool {
	return f.CredentialsJSON != "" || f.CredentialsBase64 != ""
}

// DevUserOptions is the identity injected when Firebase is not configured.
type DevUserOptions struct {
	ID             string `env:"DEV_USER_ID" envDefault:"admin-user-1"`
	OrganizationID string `env:"DEV_ORGANIZATION_ID" envDefault:"demo-org"`
	Role           string `env:"DEV_USER_ROLE" envDefault:"admin"`
	DisplayName    string `env:"DEV_USER_NAME" envDefault:"Dev Dispatcher"`
	Email          string `env:"DEV_USER_EMAIL" envDefault:"dispatch@localhost"`
}

type RedisOptions struct {
	URL     string `env:"REDIS_URL"`
	Channel string `env:"REDIS_INVALIDATION_CHANNEL" envDefault:"fleetdesk:invalidate"`
}

type StorageOptions struct {
	Endpoint      string `env:"STORAGE_ENDPOINT"`
	AccessKey     string `env:"STORAGE_ACCESS_KEY"`
	SecretKey     string `env:"STORAGE_SECRET_KEY"`
	Bucket        string `env:"STORAGE_BUCKET" envDefault:"fleetdesk-uploads"`
	UseSSL        bool   `env:"STORAGE_USE_SSL" envDefault:"true"`
	PublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"20971520"`
}

type GeocoderOptions struct {
	URL   string `env:"GEOCODER_URL" envDefault:"https://api.mapbox.com/geocoding/v5/mapbox.places"`
	Token string `env:"GEOCODER_TOKEN"`
}

type ReportOptions struct {
	FunctionURL string        `env:"REPORT_FUNCTION_URL"`
	APIKey      string        `env:"REPORT_FUNCTION_KEY"`
	Timeout     time.Duration `env:"REPORT_FUNCTION_TIMEOUT" envDefault:"60s"`
}

type DispatchOptions struct {
	PollInterval time.Duration `env:"DISPATCH_POLL_INTERVAL" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"DISPATCH_IDLE_TIMEOUT" envDefault:"30m"`
	FeedSize     int           `env:"DISPATCH_FEED_SIZE" envDefault:"50"`
}

type MetricsOptions struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH" envDefault:"/metrics"`
}

type Configuration struct {
	Database DatabaseOptions
	Firebase FirebaseOptions
	DevUser  DevUserOptions
	Redis    RedisOptions
	Storage  StorageOptions
	Geocoder GeocoderOptions
	Reports  ReportOptions
	Dispatch DispatchOptions
	Metrics  MetricsOptions

	Environment    string   `env:"APP_ENV" envDefault:"development"`
	Port           int      `env:"PORT" envDefault:"8080"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string   `env:"LOG_FORMAT" envDefault:"text"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
	EncryptionKey  string   `env:"ENCRYPTION_KEY"`
	SeedDemoData   bool     `env:"SEED_DEMO_DATA" envDefault:"false"`
	StaticDir      string   `env:"STATIC_DIR" envDefault:"./dist"`

	logger *logrus.Logger
}

// Load reads env files, parses the environment and validates the result.
func Load(envFiles []string) (*Configuration, error) {
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, err
	}
	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.logger = logging.New(c.LogLevel, c.LogFormat)
	return c, nil
}

func (c *Configuration) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be 'sqlite3' or 'postgres', got '%s'", c.Database.Driver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.Dispatch.PollInterval <= 0 {
		return fmt.Errorf("DISPATCH_POLL_INTERVAL must be positive")
	}
	if c.Dispatch.FeedSize <= 0 {
		return fmt.Errorf("DISPATCH_FEED_SIZE must be positive")
	}
	if c.IsProduction() && c.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required in production")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("METRICS_PATH must start with '/', got '%s'", c.Metrics.Path)
	}
	return nil
}

func (c *Configuration) IsProduction() bool {
	return c.Environment == Production
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) Address() string {
	if c.IsProduction() {
		return fmt.Sprintf(":%d", c.Port)
	}
	return fmt.Sprintf("localhost:%d", c.Port)
}
