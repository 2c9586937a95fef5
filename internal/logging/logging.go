package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init initializes the global logger with dual sinks: os.Stderr and a rotating file.
func Init(logDir string, verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal,
	}

	var sink io.Writer = consoleWriter
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory, logging to stderr only")
	} else {
		fileWriter := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "profiflow.log"),
			MaxSize:    16, // megabytes
			MaxBackups: 16,
			MaxAge:     180, // days
			Compress:   true,
		}
		sink = zerolog.MultiLevelWriter(consoleWriter, fileWriter)
	}

	log.Logger = zerolog.New(sink).
		With().
		Timestamp().
		Logger()
}
