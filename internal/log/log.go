// Package log provides the process-wide logging backend. Each subsystem that
// logs (chain, node, peer, miner) pulls its own
// subsystem-tagged Logger from it, following the dcrd family's convention
// of one slog.Logger per package rather than a single shared logger.
package log

import (
	"io"
	"os"

	"github.com/decred/slog"
)

// Backend is the process-wide log sink. Callers normally use the package
// backend; a custom one (e.g. writing to a file) can be installed with
// InitBackend before any subsystem logger is created.
var Backend = slog.NewBackend(os.Stdout)

// Disabled is a logger that discards everything, the default for any
// subsystem that hasn't called UseLogger yet.
var Disabled = slog.Disabled

// InitBackend redirects all future subsystem loggers to w. Call it before
// NewSubsystem, ideally at process startup.
func InitBackend(w io.Writer) {
	Backend = slog.NewBackend(w)
}

// NewSubsystem returns a tagged logger at the given level, e.g.
// NewSubsystem("CHAN", slog.LevelInfo) for the chain package.
func NewSubsystem(tag string, level slog.Level) slog.Logger {
	l := Backend.Logger(tag)
	l.SetLevel(level)
	return l
}

// ParseLevel maps a config string ("trace"|"debug"|"info"|"warn"|"error"|
// "critical"|"off") to a slog.Level, defaulting to LevelInfo on an
// unrecognized string.
func ParseLevel(s string) slog.Level {
	lvl, ok := slog.LevelFromString(s)
	if !ok {
		return slog.LevelInfo
	}
	return lvl
}
