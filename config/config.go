// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath       = pflag.String("config", ".", "Directory containing config.toml")
	seed             = pflag.Bool("seed", false, "Enables the PUT /api/v1/seed/:count route")
	validLogLevels   = []string{"debug", "info", "warn", "error", "fatal"}
	validDBTypes     = []string{"sqlite", "postgres"}
	ErrMissingSecret = errors.New("jwt.secret is not set")
)

// GenSecret returns a random secret suitable for jwt.secret
func GenSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func bindEnvs() {
	v.BindEnv("app.log_level", "app_log_level")
	v.BindEnv("app.seed_enabled", "app_seed_enabled")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.client_url", "client_url")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("jwt.secret", "jwt_token")

	v.BindEnv("database.type", "database_type")
	v.BindEnv("database.dsn", "database_url")

	v.BindEnv("rabbitmq.endpoint", "rabbitmq_endpoint")

	v.BindEnv("elasticsearch.url", "elastic_search_url")
	v.BindEnv("elasticsearch.username", "elastic_search_username")
	v.BindEnv("elasticsearch.password", "elastic_search_password")
	v.BindEnv("elasticsearch.index", "elastic_search_index")

	v.BindEnv("redis.addr", "redis_host")
	v.BindEnv("redis.password", "redis_password")

	v.BindEnv("storage.enabled", "storage_enabled")
	v.BindEnv("storage.account_id", "storage_account_id")
	v.BindEnv("storage.access_key_id", "storage_access_key_id")
	v.BindEnv("storage.secret_access_key", "storage_secret_access_key")
	v.BindEnv("storage.bucket", "storage_bucket")
	v.BindEnv("storage.public_url", "storage_public_url")
	v.BindEnv("storage.region", "storage_region")

	v.BindEnv("upload.max_size", "upload_max_size")
	v.BindEnv("security.rate_limit", "security_rate_limit")
	v.BindEnv("cleanup.interval", "cleanup_interval")
}

func setDefaults() {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.seed_enabled", false)

	v.SetDefault("host.port", 4002)
	v.SetDefault("host.client_url", "http://localhost:3000")
	v.SetDefault("host.cors", []string{"http://localhost:3000"})

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "./data/auth.db")

	v.SetDefault("elasticsearch.url", "http://localhost:9200")
	v.SetDefault("elasticsearch.index", "gigs")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.region", "auto")

	v.SetDefault("upload.max_size", 5)
	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("cleanup.interval", "1h")
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that. A missing config.toml is fine, env variables alone are enough.
func Setup() error {
	if !pflag.Parsed() {
		pflag.Parse()
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()
	bindEnvs()
	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if *seed {
		v.Set("app.seed_enabled", true)
	}

	return Validate()
}

// Validate checks the loaded values and normalizes the ones that need it
func Validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetString("jwt.secret") == "" {
		return ErrMissingSecret
	}

	if !slices.Contains(validDBTypes, v.GetString("database.type")) {
		return errors.New("invalid database type provided")
	}

	if v.GetString("database.dsn") == "" {
		return errors.New("database.dsn can't be empty")
	}

	if v.GetString("rabbitmq.endpoint") == "" {
		return errors.New("rabbitmq.endpoint can't be empty")
	}

	if v.GetString("elasticsearch.index") == "" {
		return errors.New("elasticsearch.index can't be empty")
	}

	if v.GetBool("storage.enabled") {
		if v.GetString("storage.access_key_id") == "" {
			return errors.New("storage access key id can't be empty")
		}
		if v.GetString("storage.secret_access_key") == "" {
			return errors.New("storage secret access key can't be empty")
		}
		if v.GetString("storage.bucket") == "" {
			return errors.New("storage bucket can't be empty")
		}
		if v.GetString("storage.public_url") == "" {
			return errors.New("storage public url can't be empty")
		}
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if v.GetInt("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if v.GetDuration("cleanup.interval") <= 0 {
		return errors.New("cleanup.interval must be a positive duration")
	}

	// upload.max_size is configured in megabytes
	if !v.GetBool("upload.normalized") {
		v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
		v.Set("upload.normalized", true)
	}

	return nil
}
