// Package config loads application configuration via viper: environment
// variables first, with an optional taptrail.yaml for local development, so
// main stays lean.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Addr string

	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string
	AuditTopic   string

	JWTSigningKey  string
	TokenTTL       time.Duration
	BootstrapEmail string
	// BootstrapPassword seeds the first admin account. Ignored once any user
	// exists.
	BootstrapPassword string

	BounceWindow  time.Duration
	LockWait      time.Duration
	StatsCacheTTL time.Duration
	// WarmSchedule is a cron expression for the stats cache warmer; empty
	// disables warming.
	WarmSchedule string
}

// Load reads configuration from TAPTRAIL_* env vars and, when present, a
// taptrail.yaml in the working directory.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("taptrail")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("audit_topic", "taptrail.audit")
	v.SetDefault("jwt_signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("token_ttl", 30*time.Minute)
	v.SetDefault("bootstrap_email", "admin@taptrail.local")
	v.SetDefault("bootstrap_password", "changeme123")
	v.SetDefault("bounce_window", 2*time.Second)
	v.SetDefault("lock_wait", 3*time.Second)
	v.SetDefault("stats_cache_ttl", 15*time.Second)
	v.SetDefault("warm_schedule", "@every 1m")

	v.SetConfigName("taptrail")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	cfg := Config{
		Addr:              v.GetString("addr"),
		DatabaseURL:       v.GetString("database_url"),
		RedisURL:          v.GetString("redis_url"),
		AuditTopic:        v.GetString("audit_topic"),
		JWTSigningKey:     v.GetString("jwt_signing_key"),
		TokenTTL:          v.GetDuration("token_ttl"),
		BootstrapEmail:    v.GetString("bootstrap_email"),
		BootstrapPassword: v.GetString("bootstrap_password"),
		BounceWindow:      v.GetDuration("bounce_window"),
		LockWait:          v.GetDuration("lock_wait"),
		StatsCacheTTL:     v.GetDuration("stats_cache_ttl"),
		WarmSchedule:      v.GetString("warm_schedule"),
	}

	if brokers := v.GetString("kafka_brokers"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg, nil
}
