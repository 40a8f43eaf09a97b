// Package config loads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// MinJWTSecretLength matches the minimum HMAC key accepted by the token codec.
const MinJWTSecretLength = 32

type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`

	DatabaseURL      string `mapstructure:"database_url"`
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     string `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	JWTSecret       string        `mapstructure:"jwt_secret"`
	JWTIssuer       string        `mapstructure:"jwt_issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`

	RedisAddr        string        `mapstructure:"redis_addr"`
	RedisPassword    string        `mapstructure:"redis_password"`
	RedisDB          int           `mapstructure:"redis_db"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
	LoginCooldown    time.Duration `mapstructure:"login_cooldown"`

	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	CookieSecure       bool          `mapstructure:"cookie_secure"`
	CookieSameSite     string        `mapstructure:"cookie_samesite"`

	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepTimeout  time.Duration `mapstructure:"sweep_timeout"`

	LogLevel        string        `mapstructure:"log_level"`
	LogFile         string        `mapstructure:"log_file"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")

	v.SetDefault("database_url", "")
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_user", "postgres")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db", "accounts")
	v.SetDefault("postgres_sslmode", "disable")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "accounts")
	v.SetDefault("access_token_ttl", 15*time.Minute)
	v.SetDefault("refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("bcrypt_cost", 10)

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("login_max_attempts", 5)
	v.SetDefault("login_cooldown", 15*time.Minute)

	v.SetDefault("rate_limit_per_minute", 120)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("cors_allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cookie_secure", true)
	v.SetDefault("cookie_samesite", "lax")

	v.SetDefault("sweep_interval", time.Hour)
	v.SetDefault("sweep_timeout", time.Minute)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("shutdown_timeout", 30*time.Second)
}

// Load reads an optional .env file, then the environment, over the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from defaults and environment variables only.
func FromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.CORSAllowedOrigins = splitList(cfg.CORSAllowedOrigins)
	return &cfg, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.LoginMaxAttempts <= 0 || c.LoginCooldown <= 0 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS and LOGIN_COOLDOWN must be positive"))
	}
	if c.RateLimitPerMinute <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be positive"))
	}
	if c.SweepInterval <= 0 || c.SweepTimeout <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL and SWEEP_TIMEOUT must be positive"))
	}
	if _, err := c.SameSite(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DSN returns DATABASE_URL, or a URL assembled from the POSTGRES_* settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     c.PostgresHost + ":" + c.PostgresPort,
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=" + url.QueryEscape(c.PostgresSSLMode),
	}
	return u.String()
}

func (c *Config) SameSite() (http.SameSite, error) {
	switch strings.ToLower(c.CookieSameSite) {
	case "lax", "":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("COOKIE_SAMESITE must be one of lax, strict, none; got %q", c.CookieSameSite)
	}
}
