package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer    string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience  string   `mapstructure:"AUTH_AUDIENCE"`
	AuthSecret    string   `mapstructure:"AUTH_SECRET"`
	DefaultTenant string   `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	Scheduling Scheduling `mapstructure:",squash"`
}

// Scheduling holds the defaults seeded into a new organization's settings
// row. Existing tenants keep whatever their settings row says; these only
// matter at creation time.
type Scheduling struct {
	DefaultTimezone      string `mapstructure:"SCHED_DEFAULT_TIMEZONE"`
	DefaultBufferMinutes int    `mapstructure:"SCHED_DEFAULT_BUFFER_MINUTES"`
	RoundRobinDefault    bool   `mapstructure:"SCHED_ROUND_ROBIN_DEFAULT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("SCHED_DEFAULT_TIMEZONE", "America/Mexico_City")
	v.SetDefault("SCHED_DEFAULT_BUFFER_MINUTES", 0)
	v.SetDefault("SCHED_ROUND_ROBIN_DEFAULT", true)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("DEFAULT_TENANT")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("SCHED_DEFAULT_TIMEZONE")
	v.BindEnv("SCHED_DEFAULT_BUFFER_MINUTES")
	v.BindEnv("SCHED_ROUND_ROBIN_DEFAULT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active; all requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development,
// either AUTH_ISSUER or AUTH_SECRET must be set so real JWT verification is
// enforced, and the scheduling defaults must be internally coherent.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSecret == "" {
		return fmt.Errorf(
			"AUTH_ISSUER or AUTH_SECRET must be set when ENV=%q; refusing to start without authentication configuration", c.Env)
	}

	s := c.Scheduling
	if _, err := time.LoadLocation(s.DefaultTimezone); err != nil {
		return fmt.Errorf("SCHED_DEFAULT_TIMEZONE %q is not a valid IANA zone: %w", s.DefaultTimezone, err)
	}
	if s.DefaultBufferMinutes < 0 {
		return fmt.Errorf("SCHED_DEFAULT_BUFFER_MINUTES must not be negative, got %d", s.DefaultBufferMinutes)
	}

	return nil
}
