package ledger

// Structured logging, grounded on the pack's logrus usage
// (jeremyistyping-CMSProject). A single entry point configures the
// formatter and level; callers hold a *logrus.Logger, never the global
// logrus singleton, so tests can substitute their own.

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus.Logger writing JSON-formatted entries to
// stderr at the given level ("debug", "info", "warn", "error"). An
// unrecognized level falls back to "info".
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.JSONFormatter{})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}
