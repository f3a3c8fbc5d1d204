package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mauv0809/naseliga/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnv(t)

		convey.Convey("When DB_NAME is missing", func() {
			_, err := config.Load()

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When only DB_NAME is set", func() {
			t.Setenv("DB_NAME", "league.db")

			cfg, err := config.Load()

			convey.Convey("Then defaults fill the rest", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DBName, convey.ShouldEqual, "league.db")
				convey.So(cfg.Port, convey.ShouldEqual, "8080")
				convey.So(cfg.MigrationsDir, convey.ShouldEqual, "./migrations")
				convey.So(cfg.Leaderboard.ActivityMonths, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When nested settings come from the environment", func() {
			t.Setenv("DB_NAME", "league.db")
			t.Setenv("TURSO_PRIMARY_URL", "libsql://league.turso.io")
			t.Setenv("SLACK_SIGNING_SECRET", "secret")
			t.Setenv("LEADERBOARD_ACTIVITY_MONTHS", "6")

			cfg, err := config.Load()

			convey.Convey("Then they land in their sections", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Turso.PrimaryURL, convey.ShouldEqual, "libsql://league.turso.io")
				convey.So(cfg.Slack.SigningSecret, convey.ShouldEqual, "secret")
				convey.So(cfg.Leaderboard.ActivityMonths, convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When a YAML file is provided", func() {
			path := filepath.Join(t.TempDir(), "naseliga.yaml")
			yaml := "db_name: from-file.db\nport: \"9090\"\nleaderboard:\n  activity_months: 2\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			t.Setenv(config.FileEnv, path)
			t.Setenv("PORT", "7070")

			cfg, err := config.Load()

			convey.Convey("Then the environment wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DBName, convey.ShouldEqual, "from-file.db")
				convey.So(cfg.Port, convey.ShouldEqual, "7070")
				convey.So(cfg.Leaderboard.ActivityMonths, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the activity window is not positive", func() {
			t.Setenv("DB_NAME", "league.db")
			t.Setenv("LEADERBOARD_ACTIVITY_MONTHS", "0")

			_, err := config.Load()

			convey.Convey("Then validation rejects it", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_NAME", "MIGRATIONS_DIR", "PORT", "ADMIN_TOKEN", "PUSH_TOKEN", "GCP_PROJECT",
		"TURSO_PRIMARY_URL", "TURSO_AUTH_TOKEN", "SLACK_SIGNING_SECRET",
		"LEADERBOARD_ACTIVITY_MONTHS", config.FileEnv,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
