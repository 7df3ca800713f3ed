package ledger

// Configuration loading, grounded on the pack's godotenv usage
// (jeremyistyping-CMSProject, signalmachine-accounting-agent): read once
// at process startup into a plain struct. No ambient global config — every
// collaborator that needs configuration receives a *Config explicitly.

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every value a bok process needs at startup.
type Config struct {
	StorePath  string
	SeedPath   string
	LogLevel   string
	LockTimeoutSeconds int
}

// LoadConfig reads a .env file if present (a missing file is not an
// error: the not-exist error godotenv.Load returns is ignored), then overlays process
// environment variables, finally applying defaults for anything unset.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("ledger: loading %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		StorePath:          getenv("BOK_STORE_PATH", "bokforing.db"),
		SeedPath:           getenv("BOK_SEED_PATH", ""),
		LogLevel:           getenv("BOK_LOG_LEVEL", "info"),
		LockTimeoutSeconds: 10,
	}
	if v := os.Getenv("BOK_LOCK_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ledger: invalid BOK_LOCK_TIMEOUT_SECONDS %q: %w", v, err)
		}
		cfg.LockTimeoutSeconds = n
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
