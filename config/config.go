// Package config holds the process configuration. It is populated once
// at startup and injected into the components that need it; nothing
// else reads the environment ad hoc.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the server configuration, read from the environment.
type Config struct {
	// JWTSecret signs the global-keyed session token. The dev default
	// matches local WordPress plugin setups; production deployments
	// must set their own.
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret"`
	// Environment toggles cookie security attributes: "production"
	// marks session cookies Secure.
	Environment string `env:"TRUSTHIVE_ENV" envDefault:"development"`
	// HMACMaxAgeSeconds bounds the replay window for HMAC triples.
	HMACMaxAgeSeconds int `env:"HMAC_MAX_AGE" envDefault:"300"`

	Port    int    `env:"PORT" envDefault:"8080"`
	DataDir string `env:"DATA_DIR" envDefault:"./data"`
}

// Load reads the configuration from the environment, preloading a
// .env file if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Production reports whether production cookie attributes apply.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// HMACMaxAge returns the replay window as a duration.
func (c *Config) HMACMaxAge() time.Duration {
	return time.Duration(c.HMACMaxAgeSeconds) * time.Second
}
