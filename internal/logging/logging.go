// Package logging builds the *log.Logger instances used across the
// pipeline, in the same "log.New(w, "[prefix] ", log.LstdFlags)" idiom the
// rest of this codebase's ancestry uses. Verbosity is controlled by a
// repeatable -v flag (spec §6); when --log-file is set, output is written
// through a rotating lumberjack.Logger instead of directly to stderr.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the coarse verbosity selected by repeated -v flags.
type Level int

const (
	LevelQuiet Level = iota // no per-event chatter, only fatal errors
	LevelInfo               // default: restarts, spawns, filter-level summaries
	LevelDebug               // per-stage filter decisions, queue/debounce internals
	LevelTrace               // every tag on every event
)

// LevelFromCount maps a repeatable -v flag's count to a Level, saturating
// at LevelTrace (spec §6: "-v increases verbosity, repeatable").
func LevelFromCount(count int) Level {
	switch {
	case count <= 0:
		return LevelInfo
	case count == 1:
		return LevelDebug
	default:
		return LevelTrace
	}
}

// rotateMaxSizeMB, rotateMaxAgeDays and rotateMaxBackups configure the
// lumberjack.Logger used when a --log-file path is given. These mirror
// lumberjack's own conservative defaults for a long-lived CLI process.
const (
	rotateMaxSizeMB  = 20
	rotateMaxAgeDays = 14
	rotateMaxBackups = 5
)

// Config selects where log output goes and how verbose it is.
type Config struct {
	// LogFile is a path to a rotating log file; empty means stderr only.
	LogFile string
	Level   Level
	// Quiet suppresses output at every level, LevelQuiet included,
	// independent of Level (spec §6 "--quiet suppresses routine output").
	Quiet bool
}

// New builds the root *log.Logger for Config, writing to a rotating file
// when one is configured, and to stderr otherwise (or in addition, when
// Quiet is false and a file is set — operators still want a terminal echo).
func New(prefix string, cfg Config) *log.Logger {
	return log.New(writerFor(cfg), "["+prefix+"] ", log.LstdFlags)
}

// writerFor resolves Config into the io.Writer New logs through.
func writerFor(cfg Config) io.Writer {
	if cfg.Quiet && cfg.LogFile == "" {
		return io.Discard
	}
	if cfg.LogFile == "" {
		return os.Stderr
	}
	rotating := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    rotateMaxSizeMB,
		MaxAge:     rotateMaxAgeDays,
		MaxBackups: rotateMaxBackups,
		Compress:   true,
	}
	if cfg.Quiet {
		return rotating
	}
	return io.MultiWriter(rotating, os.Stderr)
}

// Sub creates a child logger sharing cfg's destination but with its own
// bracketed component prefix (e.g. "[orchestrator]", "[supervisor]"),
// matching the one-prefix-per-subsystem texture used throughout this
// codebase's logging call sites.
func Sub(parent *log.Logger, component string) *log.Logger {
	return log.New(parent.Writer(), "["+component+"] ", parent.Flags())
}

// Enabled reports whether lvl should be logged given the Config's Level,
// honouring Quiet as an absolute floor.
func (c Config) Enabled(lvl Level) bool {
	if c.Quiet {
		return false
	}
	return lvl <= c.Level
}
