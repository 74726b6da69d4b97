package killsrp

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelWriter implements zerolog.LevelWriter, sending warnings and errors to
// Err and everything below to Out.
type LevelWriter struct {
	Out io.Writer
	Err io.Writer
}

// Write should not be called
func (l LevelWriter) Write(p []byte) (n int, err error) {
	return l.Out.Write(p)
}

// WriteLevel write to the appropriate output
func (l LevelWriter) WriteLevel(level zerolog.Level, p []byte) (n int, err error) {
	if level < zerolog.WarnLevel {
		return l.Out.Write(p)
	}
	return l.Err.Write(p)
}

// SetupLogging points the global logger at stdout/stderr and applies level.
func SetupLogging(level zerolog.Level) {
	log.Logger = log.Output(LevelWriter{Out: os.Stdout, Err: os.Stderr}).With().Str("version", Version).Logger()
	zerolog.SetGlobalLevel(level)
	zerolog.DefaultContextLogger = &log.Logger
}
