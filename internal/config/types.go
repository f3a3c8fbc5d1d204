package config

// Config holds all configuration for the application.
type Config struct {
	DBName        string `koanf:"db_name"`
	MigrationsDir string `koanf:"migrations_dir"`
	Port          string `koanf:"port"`
	// AdminToken identifies privileged callers (recompute, admin writes).
	AdminToken string `koanf:"admin_token"`
	// PushToken must be present on Pub/Sub push deliveries.
	PushToken   string            `koanf:"push_token"`
	ProjectID   string            `koanf:"gcp_project"`
	Turso       TursoConfig       `koanf:"turso"`
	Slack       SlackConfig       `koanf:"slack"`
	Leaderboard LeaderboardConfig `koanf:"leaderboard"`
}

type TursoConfig struct {
	PrimaryURL string `koanf:"primary_url"`
	AuthToken  string `koanf:"auth_token"`
}

type SlackConfig struct {
	SigningSecret string `koanf:"signing_secret"`
}

type LeaderboardConfig struct {
	// ActivityMonths is the length of the trailing activity window.
	ActivityMonths int `koanf:"activity_months"`
}
