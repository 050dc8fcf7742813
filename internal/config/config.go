package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                    = "TALENTBRIDGE"
	defaultHTTPAddress           = "0.0.0.0:8080"
	defaultDatabasePath          = "talentbridge.db"
	defaultLogLevel              = "info"
	defaultRemoteEndpoint        = "https://api.jsonbin.io/v3"
	defaultRemoteTimeoutSeconds  = 8
	defaultRemoteCacheTTLSeconds = 30
	defaultTokenTTLMinutes       = 720
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	DatabasePath   string
	LogLevel       string
	SigningSecret  string
	TokenTTL       time.Duration
	RemoteEndpoint string
	RemoteBinID    string
	RemoteAPIKey   string
	RemoteTimeout  time.Duration
	RemoteCacheTTL time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("local.database_path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("remote.endpoint", defaultRemoteEndpoint)
	configViper.SetDefault("remote.timeout_seconds", defaultRemoteTimeoutSeconds)
	configViper.SetDefault("remote.cache_ttl_seconds", defaultRemoteCacheTTLSeconds)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMinutes)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		DatabasePath:   configViper.GetString("local.database_path"),
		LogLevel:       configViper.GetString("log.level"),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		TokenTTL:       time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		RemoteEndpoint: configViper.GetString("remote.endpoint"),
		RemoteBinID:    configViper.GetString("remote.bin_id"),
		RemoteAPIKey:   configViper.GetString("remote.api_key"),
		RemoteTimeout:  time.Duration(configViper.GetInt("remote.timeout_seconds")) * time.Second,
		RemoteCacheTTL: time.Duration(configViper.GetInt("remote.cache_ttl_seconds")) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("local.database_path is required")
	}
	if c.RemoteBinID != "" && strings.TrimSpace(c.RemoteEndpoint) == "" {
		return fmt.Errorf("remote.endpoint is required when remote.bin_id is set")
	}
	return nil
}
