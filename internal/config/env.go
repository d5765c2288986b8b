package config

import (
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/logfields"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads the first readable .env file. Variables already present
// in the process environment are not overridden.
func loadEnvFile() {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err == nil {
			slog.Debug("Loaded environment variables", logfields.Path(path))
			return
		}
	}
}
