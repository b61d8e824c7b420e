package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	JSONDir     string `mapstructure:"JSON_DIR"`
	FileSuffix  string `mapstructure:"FILE_SUFFIX"`
	OutputDir   string `mapstructure:"OUTPUT_DIR"`
	AuthSecret  string `mapstructure:"AUTH_SECRET"`
	AuthIssuer  string `mapstructure:"AUTH_ISSUER"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("JSON_DIR", "json")
	v.SetDefault("FILE_SUFFIX", "_ngs.json")
	v.SetDefault("OUTPUT_DIR", "output")
	v.SetDefault("AUTH_ISSUER", "mtb-harmonizer")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JSON_DIR")
	v.BindEnv("FILE_SUFFIX")
	v.BindEnv("OUTPUT_DIR")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("AUTH_ISSUER")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: the API accepts unauthenticated requests in this mode.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ValidateServer checks the settings the HTTP server and the run
// registry need. The file-processing commands work without a database,
// so Load itself stays lenient; serve and migrate call this before
// touching Postgres.
func (c *Config) ValidateServer() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !c.IsDev() && c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required when ENV=%q. "+
			"Refusing to serve the API without authentication", c.Env)
	}
	if c.DBMaxConns < c.DBMinConns {
		return fmt.Errorf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.DBMaxConns, c.DBMinConns)
	}
	return nil
}
