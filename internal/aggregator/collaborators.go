package aggregator

import (
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
)

// RecordStore is the named-value persistence contract for extreme records
// and rain bookkeeping.  Sections and keys map 1:1 to record scopes and
// state fields (e.g. section "Today.Temp", keys "High" and "HighTime").
// Implementations provide their own durability; routine writes are
// fire-and-forget from the aggregator's perspective, but Archive is
// synchronous so a rollover cannot advance past a failed archival.
type RecordStore interface {
	GetFloat(section, key string, def float64) float64
	GetInt(section, key string, def int) int
	GetTime(section, key string, def time.Time) time.Time

	SetFloat(section, key string, v float64)
	SetInt(section, key string, v int)
	SetTime(section, key string, v time.Time)

	Flush() error

	// Archive persists a dated copy of one scope's sections under the
	// given suffix (e.g. "2026-07" at month rollover) before they reset.
	Archive(scope string, suffix string) error
}

// DayfileWriter receives the per-day summary row at day rollover.
type DayfileWriter interface {
	WriteDayRecord(rec *types.DayRecord) error
}

// AuditLogger is the append-only collaborator that receives a
// human-readable line whenever an extreme record is broken.
type AuditLogger interface {
	Logf(format string, args ...interface{})
}

// Snapshotter persists opaque state checkpoints between restarts.
type Snapshotter interface {
	Save(data []byte) error
	Load() ([]byte, error)
}
