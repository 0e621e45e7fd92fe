// control/logger.go
// Author: momentics <momentics@gmail.com>
//
// api.Logger implementation over the standard library's log.Logger, with a
// WithPrefix decorator mirroring the C++ original's PrefixWrapper: each
// connection gets its own logger that tags every line with its peer
// address without the connection needing to format that tag itself.
//
// SPEC_FULL.md §10.1 records why this is stdlib log rather than a
// third-party structured logger: none of the retrieved examples import
// one.

package control

import (
	"fmt"
	"log"
	"os"

	"github.com/lattice-systems/seaengine/api"
)

type stdLogger struct {
	base   *log.Logger
	prefix string
}

// NewLogger returns an api.Logger writing to os.Stderr with the standard
// date/time/microsecond flags, unprefixed.
func NewLogger() api.Logger {
	return &stdLogger{base: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)}
}

func (l *stdLogger) logf(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		l.base.Printf("%s [%s] %s%s", level, l.prefix, msg, "")
		return
	}
	l.base.Printf("%s %s", level, msg)
}

func (l *stdLogger) Debug(format string, args ...any) { l.logf("DEBUG", format, args...) }
func (l *stdLogger) Info(format string, args ...any)  { l.logf("INFO", format, args...) }
func (l *stdLogger) Warn(format string, args ...any)  { l.logf("WARN", format, args...) }
func (l *stdLogger) Error(format string, args ...any) { l.logf("ERROR", format, args...) }

// WithPrefix returns a Logger sharing the same underlying *log.Logger but
// tagging every line with prefix, composing with any prefix already set so
// nested WithPrefix calls accumulate rather than overwrite.
func (l *stdLogger) WithPrefix(prefix string) api.Logger {
	next := prefix
	if l.prefix != "" {
		next = l.prefix + " " + prefix
	}
	return &stdLogger{base: l.base, prefix: next}
}
