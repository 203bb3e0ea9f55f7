package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	TokenSecret    string   `mapstructure:"TOKEN_SECRET"`
	BaseURL        string   `mapstructure:"BASE_URL"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	// Mercado Pago checkout integration.
	MPAccessToken string `mapstructure:"MP_ACCESS_TOKEN"`

	// PDF renderer and image host collaborators.
	RendererURL  string `mapstructure:"RENDERER_URL"`
	ImageHostURL string `mapstructure:"IMAGE_HOST_URL"`
	ImageHostKey string `mapstructure:"IMAGE_HOST_KEY"`

	// Seed data for the bootstrap command.
	AdminCPF      string `mapstructure:"ADMIN_CPF"`
	AdminName     string `mapstructure:"ADMIN_NAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("BASE_URL", "http://localhost:8000")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("ADMIN_NAME", "Administrador")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("TOKEN_SECRET")
	v.BindEnv("BASE_URL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("MP_ACCESS_TOKEN")
	v.BindEnv("RENDERER_URL")
	v.BindEnv("IMAGE_HOST_URL")
	v.BindEnv("IMAGE_HOST_KEY")
	v.BindEnv("ADMIN_CPF")
	v.BindEnv("ADMIN_NAME")
	v.BindEnv("ADMIN_PASSWORD")

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

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. TOKEN_SECRET is
// always required since every session token is signed with it. The Mercado
// Pago token is only enforced in production; without it the payment endpoints
// cannot reach the gateway.
func (c *Config) Validate() error {
	if c.TokenSecret == "" {
		return fmt.Errorf("TOKEN_SECRET is required")
	}
	if c.IsProduction() && len(c.TokenSecret) < 32 {
		return fmt.Errorf("TOKEN_SECRET must be at least 32 characters in production, got %d", len(c.TokenSecret))
	}
	if c.IsProduction() && c.MPAccessToken == "" {
		return fmt.Errorf("MP_ACCESS_TOKEN is required in production")
	}
	return nil
}
