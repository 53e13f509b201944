package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	Data          DataConfig          `envconfig:"DATA"`
	Logger        LoggerConfig        `envconfig:"LOG"`
	Security      SecurityConfig      `envconfig:"SECURITY"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
}

type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            int           `envconfig:"PORT" default:"8084"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// DataConfig locates the three source tables and controls how they are
// aggregated.
type DataConfig struct {
	TransactionsFile string `envconfig:"TRANSACTIONS_FILE" default:"datatransaksi2023.csv"`
	UsersFile        string `envconfig:"USERS_FILE" default:"datauser2023.csv"`
	ProductsFile     string `envconfig:"PRODUCTS_FILE" default:"dataproduk2023.csv"`
	MonthWindow      string `envconfig:"MONTH_WINDOW" default:"January,February,March,April"`
	MonthPolicy      string `envconfig:"MONTH_POLICY" default:"reject"`
	AgeBinWidth      int    `envconfig:"AGE_BIN_WIDTH" default:"5"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS    int      `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8084"`
	TrustedProxies  []string `envconfig:"TRUSTED_PROXIES" default:"127.0.0.1"`
}

type ObservabilityConfig struct {
	ServiceName    string `envconfig:"SERVICE_NAME" default:"ecommerce-dashboard"`
	TraceExporter  string `envconfig:"TRACE_EXPORTER" default:"none"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from the environment. Variables in envFiles (".env"
// when none are given) are applied first without overriding the process
// environment; missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Data.TransactionsFile == "" || c.Data.UsersFile == "" || c.Data.ProductsFile == "" {
		return fmt.Errorf("transactions, users and products file paths cannot be empty")
	}

	validPolicies := []string{"reject", "exclude"}
	if !slices.Contains(validPolicies, c.Data.MonthPolicy) {
		return fmt.Errorf("invalid month policy %q, must be one of: %s", c.Data.MonthPolicy, strings.Join(validPolicies, ", "))
	}

	if c.Data.AgeBinWidth < 1 {
		return fmt.Errorf("age bin width must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	validExporters := []string{"stdout", "none"}
	if !slices.Contains(validExporters, c.Observability.TraceExporter) {
		return fmt.Errorf("invalid trace exporter %q, must be one of: %s", c.Observability.TraceExporter, strings.Join(validExporters, ", "))
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
