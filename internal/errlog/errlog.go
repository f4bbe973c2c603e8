// Package errlog collects the operator-facing error log for a corpus run.
package errlog

import (
	"fmt"

	"npdetector/pkg/logger"
)

// Log is an append-only list of free-text entries. It is owned by a single
// processing loop and is not safe for concurrent writers.
type Log struct {
	entries []string
	logger  *logger.Logger
}

// New returns an empty log. A nil logger disables mirroring to the process log.
func New(l *logger.Logger) *Log { return &Log{logger: l} }

// Addf appends an entry naming the failing operation and the site it concerns.
func (g *Log) Addf(op, site, format string, args ...any) {
	entry := fmt.Sprintf("%s(%s): %s", op, site, fmt.Sprintf(format, args...))
	g.entries = append(g.entries, entry)
	if g.logger != nil {
		g.logger.Errorf("%s", entry)
	}
}

// Note appends a progress marker without the operation prefix.
func (g *Log) Note(msg string) {
	g.entries = append(g.entries, msg)
	if g.logger != nil {
		g.logger.Debugf("%s", msg)
	}
}

// Entries returns a copy of the accumulated entries.
func (g *Log) Entries() []string {
	out := make([]string, len(g.entries))
	copy(out, g.entries)
	return out
}

func (g *Log) Len() int { return len(g.entries) }
