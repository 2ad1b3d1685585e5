package shared

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger for a given process
// (the search core is embedded in a CLI, a TUI, and a desktop GUI host, so
// each names itself here for log correlation).
func InitLogger(serviceName string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if os.Getenv("ENV") == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	log.Logger = log.With().Caller().Str("service", serviceName).Logger()
}
