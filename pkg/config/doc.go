// Package config loads configuration structs from environment variables,
// optionally seeded from a .env file during local development.
//
// Fields are declared with env tags from github.com/caarlos0/env:
//
//	type Config struct {
//	    DBURL     string `env:"AUDIT_DB_URL,required"`
//	    EnableGeo bool   `env:"AUDIT_ENABLE_GEO" envDefault:"true"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
package config
