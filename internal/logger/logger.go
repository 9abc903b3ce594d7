package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/rajivgeraev/skillswap-api/internal/config"
)

// Setup настраивает глобальный zerolog-логгер.
// В development пишем человекочитаемый вывод, иначе JSON.
func Setup(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var logger zerolog.Logger
	if cfg.AppEnv == "development" {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	return logger
}
