package config

import (
	"fmt"
	"time"

	"github.com/rpattn/datagov/internal/db"
	"github.com/spf13/viper"
)

// AuthMode selects how actors are resolved from requests.
type AuthMode string

const (
	// AuthModeReal resolves actors from workspace memberships.
	AuthModeReal AuthMode = "real"
	// AuthModeDevFallback resolves every request to a fixed local actor.
	// Never use this outside local development.
	AuthModeDevFallback AuthMode = "dev_fallback"
)

// Config holds the full server configuration.
type Config struct {
	Database db.Config
	Server   ServerConfig
	Auth     AuthConfig
	Guards   GuardConfig
	Schema   SchemaConfig
}

type ServerConfig struct {
	Addr           string
	MigrationsPath string
}

type AuthConfig struct {
	Mode AuthMode
	// Fallback actor fields, used only in dev_fallback mode.
	FallbackUserID      string
	FallbackWorkspaceID string
	FallbackRole        string
}

type GuardConfig struct {
	CacheTTL time.Duration
}

type SchemaConfig struct {
	// OverridesPath points at a YAML file of dataset schema overrides.
	// Empty means builtin schemas only.
	OverridesPath string
}

// Load reads config.yaml from configPath, with env overrides under the
// DATAGOV prefix (e.g. DATAGOV_DATABASE_HOST).
func Load(configPath string) (Config, error) {
	cfg := Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			MigrationsPath: "migrations",
		},
		Auth: AuthConfig{
			Mode:         AuthModeReal,
			FallbackRole: "admin",
		},
		Guards: GuardConfig{CacheTTL: 15 * time.Second},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("DATAGOV")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("server.migrations_path")
	v.BindEnv("auth.mode")
	v.BindEnv("auth.fallback_user_id")
	v.BindEnv("auth.fallback_workspace_id")
	v.BindEnv("auth.fallback_role")
	v.BindEnv("guards.cache_ttl_seconds")
	v.BindEnv("schema.overrides_path")

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.migrations_path") {
		cfg.Server.MigrationsPath = v.GetString("server.migrations_path")
	}
	if v.IsSet("auth.mode") {
		cfg.Auth.Mode = AuthMode(v.GetString("auth.mode"))
	}
	if v.IsSet("auth.fallback_user_id") {
		cfg.Auth.FallbackUserID = v.GetString("auth.fallback_user_id")
	}
	if v.IsSet("auth.fallback_workspace_id") {
		cfg.Auth.FallbackWorkspaceID = v.GetString("auth.fallback_workspace_id")
	}
	if v.IsSet("auth.fallback_role") {
		cfg.Auth.FallbackRole = v.GetString("auth.fallback_role")
	}
	if v.IsSet("guards.cache_ttl_seconds") {
		cfg.Guards.CacheTTL = time.Duration(v.GetInt("guards.cache_ttl_seconds")) * time.Second
	}
	if v.IsSet("schema.overrides_path") {
		cfg.Schema.OverridesPath = v.GetString("schema.overrides_path")
	}

	switch cfg.Auth.Mode {
	case AuthModeReal, AuthModeDevFallback:
	default:
		return Config{}, fmt.Errorf("invalid auth mode %q", cfg.Auth.Mode)
	}

	return cfg, nil
}
