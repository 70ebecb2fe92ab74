// Package history stores completed interview analyses in SQLite.
package history

import (
	"time"

	"github.com/rbright/rehearse/internal/analysis"
)

// Record is one analyzed answer.
type Record struct {
	ID         string
	Question   string
	Notes      string
	MimeType   string
	Bytes      int
	StartedAt  time.Time
	AnalyzedAt time.Time
	Result     analysis.Result
}
