// Package auditlog is the append-only diary of broken extreme records,
// one timestamped line per break, rotated by size.
package auditlog

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 5
)

// Logger appends record-break lines to a rotating file.  It satisfies the
// aggregator's AuditLogger.
type Logger struct {
	mu  sync.Mutex
	out *lumberjack.Logger
}

// New creates the diary at path.  Zero size or backup limits select the
// defaults.
func New(path string, maxSizeMB, maxBackups int) *Logger {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	return &Logger{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			Compress:   true,
		},
	}
}

// Logf appends one formatted line with a timestamp prefix.  Write errors
// are swallowed: the diary must never interfere with ingestion.
func (l *Logger) Logf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := time.Now().Format("2006-01-02 15:04:05") + " " + fmt.Sprintf(format, args...) + "\n"
	l.out.Write([]byte(line))
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}
