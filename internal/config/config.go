// Package config loads keeld's runtime configuration through a single
// viper instance: environment variables prefixed KEEL_ override a config
// file (if present), which overrides built-in defaults. cmd/keeld binds
// no command-line flags on top of this.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved set of values keeld needs to wire a
// Connector, a Token issuer, and an httpapi.Server.
type Config struct {
	// Database selects the sqlconn dialect ("sqlite" or "postgres") and
	// the DSN to open it with.
	DatabaseDialect string
	DatabaseDSN     string
	// MaxConns bounds the Connector's semaphore-throttled pool size.
	MaxConns int64

	// JWTSecret signs identity tokens; JWTTTL is how long a signed token
	// stays valid.
	JWTSecret []byte
	JWTTTL    time.Duration

	// ListenAddr is the address http.ListenAndServe binds to.
	ListenAddr string
	// Prefix is the path prefix httpapi.Server mounts its routes under.
	Prefix string

	// TestMode enables the purge-and-reseed dispatcher hook from
	// package testmode; never set in a production deployment.
	TestMode bool
}

// Load reads config.yaml (if found in the working directory) and
// environment variables prefixed KEEL_ (e.g. KEEL_DATABASE_DSN), falling
// back to the defaults below, and returns the resolved Config.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("KEEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.dialect", "sqlite")
	v.SetDefault("database.dsn", "file:keel.db?cache=shared&_pragma=foreign_keys(1)")
	v.SetDefault("database.max-conns", 10)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("http.listen-addr", ":8080")
	v.SetDefault("http.prefix", "")
	v.SetDefault("test-mode", false)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: reading config.yaml: %w", err)
		}
	}

	ttl, err := time.ParseDuration(v.GetString("jwt.ttl"))
	if err != nil {
		return nil, fmt.Errorf("config: parsing jwt.ttl: %w", err)
	}

	secret := v.GetString("jwt.secret")
	if secret == "" {
		return nil, fmt.Errorf("config: jwt.secret (env KEEL_JWT_SECRET) is required")
	}

	return &Config{
		DatabaseDialect: v.GetString("database.dialect"),
		DatabaseDSN:     v.GetString("database.dsn"),
		MaxConns:        int64(v.GetInt("database.max-conns")),
		JWTSecret:       []byte(secret),
		JWTTTL:          ttl,
		ListenAddr:      v.GetString("http.listen-addr"),
		Prefix:          v.GetString("http.prefix"),
		TestMode:        v.GetBool("test-mode"),
	}, nil
}
