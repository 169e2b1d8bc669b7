// Package querylog records executed statements.
package querylog

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Logger receives one call per statement execution. Errors returned by a
// Logger are ignored by the executor.
type Logger interface {
	Log(start time.Time, sql, binds string) error
}

// Func adapts a function to the Logger interface.
type Func func(start time.Time, sql, binds string) error

// Log calls f.
func (f Func) Log(start time.Time, sql, binds string) error {
	return f(start, sql, binds)
}

// Logrus writes query log entries to a logrus logger.
type Logrus struct {
	log   logrus.FieldLogger
	slow  time.Duration
	clock func() time.Time
}

// NewLogrus creates a Logrus sink. Queries slower than slow are logged at
// warning level; a zero slow disables the distinction.
func NewLogrus(l logrus.FieldLogger, slow time.Duration) *Logrus {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Logrus{log: l, slow: slow, clock: time.Now}
}

// Log implements Logger.
func (l *Logrus) Log(start time.Time, sql, binds string) error {
	elapsed := l.clock().Sub(start)
	entry := l.log.WithFields(logrus.Fields{
		"elapsed": elapsed.String(),
		"sql":     sql,
		"binds":   binds,
	})
	if l.slow > 0 && elapsed >= l.slow {
		entry.Warn("slow query")
		return nil
	}
	entry.Info("query executed")
	return nil
}
