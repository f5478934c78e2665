// Package sanelog provides the backend's one logging entry point. Every
// package that needs to report something non-fatal (a calibration
// convergence miss, a FIFO stall, a homing retry) logs through here instead
// of rolling its own text_color_set/dw_printf-style sink (spec.md §9's
// "signal-driven lamp-off timer" note and the Non-goals line excluding
// "logging sinks" as a frontend concern still leave the backend's own
// internal diagnostics needing a library, per the ambient-stack rule).
// Verbosity is controlled the way SANE backends conventionally read it:
// the SANE_DEBUG_<BACKEND> environment variable (spec.md §6.4), mapped onto
// github.com/charmbracelet/log's leveled logger.
package sanelog

import (
	"os"
	"strconv"

	"github.com/charmbracelet/log"
)

// Logger wraps *log.Logger with the backend's fixed field conventions
// (device, session) so call sites don't repeat them.
type Logger struct {
	l *log.Logger
}

// New builds a Logger writing to stderr at a level derived from the
// SANE_DEBUG_<BACKEND> verbosity integer (spec.md §6.4): 0 disables
// anything below warnings, 1 is Info, 2+ is Debug.
func New(backendName string) *Logger {
	level := log.WarnLevel
	if v, ok := verbosityFromEnv(backendName); ok {
		switch {
		case v >= 2:
			level = log.DebugLevel
		case v == 1:
			level = log.InfoLevel
		default:
			level = log.WarnLevel
		}
	}
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "sane",
	})
	return &Logger{l: l}
}

func verbosityFromEnv(backendName string) (int, bool) {
	raw := os.Getenv("SANE_DEBUG_" + backendName)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// With returns a child Logger carrying the given key/value pairs on every
// subsequent call (e.g. device name, session id).
func (lg *Logger) With(keyvals ...any) *Logger {
	return &Logger{l: lg.l.With(keyvals...)}
}

func (lg *Logger) Debug(msg string, keyvals ...any) { lg.l.Debug(msg, keyvals...) }
func (lg *Logger) Info(msg string, keyvals ...any)  { lg.l.Info(msg, keyvals...) }
func (lg *Logger) Warn(msg string, keyvals ...any)  { lg.l.Warn(msg, keyvals...) }
func (lg *Logger) Error(msg string, keyvals ...any) { lg.l.Error(msg, keyvals...) }

// Nop is a Logger that discards everything, used by tests and callers that
// don't want to wire a destination.
func Nop() *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel + 1})
	return &Logger{l: l}
}
