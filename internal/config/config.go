package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	StoreBackend   string   `mapstructure:"STORE_BACKEND"`
	DataDir        string   `mapstructure:"DATA_DIR"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string   `mapstructure:"REDIS_URL"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	AIAPIURL       string   `mapstructure:"AI_API_URL"`
	AIAPIKey       string   `mapstructure:"AI_API_KEY"`
	AIModel        string   `mapstructure:"AI_MODEL"`
	SeedDemoData   bool     `mapstructure:"SEED_DEMO_DATA"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_BACKEND", "file")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("AI_API_URL", "https://openrouter.ai/api/v1/chat/completions")
	v.SetDefault("AI_MODEL", "openai/gpt-oss-120b:free")
	v.SetDefault("SEED_DEMO_DATA", false)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("STORE_BACKEND")
	v.BindEnv("DATA_DIR")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("AI_API_URL")
	v.BindEnv("AI_API_KEY")
	v.BindEnv("AI_MODEL")
	v.BindEnv("SEED_DEMO_DATA")

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

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. The snapshot
// backend determines which connection settings are required, and
// production refuses to start without a real JWT secret.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "memory":
		// nothing to check; state is lost on restart
	case "file":
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required when STORE_BACKEND is \"file\"")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is \"postgres\"")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND is \"redis\"")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be \"memory\", \"file\", \"postgres\", or \"redis\", got %q", c.StoreBackend)
	}

	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.IsProduction() && c.AIAPIKey == "" {
		return fmt.Errorf("AI_API_KEY is required in production")
	}
	return nil
}
