package config

import (
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileEnv names the environment variable pointing at an optional YAML file.
const FileEnv = "NASELIGA_CONFIG"

// envKeys maps the supported environment variables onto koanf paths.
var envKeys = map[string]string{
	"DB_NAME":                     "db_name",
	"MIGRATIONS_DIR":              "migrations_dir",
	"PORT":                        "port",
	"ADMIN_TOKEN":                 "admin_token",
	"PUSH_TOKEN":                  "push_token",
	"GCP_PROJECT":                 "gcp_project",
	"TURSO_PRIMARY_URL":           "turso.primary_url",
	"TURSO_AUTH_TOKEN":            "turso.auth_token",
	"SLACK_SIGNING_SECRET":        "slack.signing_secret",
	"LEADERBOARD_ACTIVITY_MONTHS": "leaderboard.activity_months",
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		MigrationsDir: "./migrations",
		Port:          "8080",
		Leaderboard: LeaderboardConfig{
			ActivityMonths: 3,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, the .env
// file and environment variables, in increasing order of precedence.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	k := koanf.New(".")
	if path := os.Getenv(FileEnv); path != "" {
		log.Info("Loading configuration file", "path", path)
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, err
		}
	}

	envProvider := env.Provider("", ".", func(s string) string {
		// Unknown variables are skipped.
		return envKeys[strings.ToUpper(s)]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first required setting that is missing or out of range.
func (c Config) Validate() error {
	if c.DBName == "" && c.Turso.PrimaryURL == "" {
		return errors.New("DB_NAME must be set")
	}
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.Leaderboard.ActivityMonths <= 0 {
		return errors.New("LEADERBOARD_ACTIVITY_MONTHS must be positive")
	}
	return nil
}
