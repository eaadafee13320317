package mirror

import (
	"context"
	"time"
)

// Entry is one {name, status} pair of a report snapshot.
type Entry struct {
	ParameterName string `json:"parameter_name"`
	Status        string `json:"status"`
}

// Snapshot is the denormalized per-report document. It is rewritten whole on
// every successful reconciliation pass.
type Snapshot struct {
	ReportID   string    `json:"report_id"`
	Parameters []Entry   `json:"parameters"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is the read-optimized mirror. Nothing in the reconciliation path
// reads from it.
type Store interface {
	Upsert(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, reportID string) (*Snapshot, error)
	// ListByStatus returns every snapshot entry currently in status, tagged
	// with its report id.
	ListByStatus(ctx context.Context, status string) ([]StatusEntry, error)
}

type StatusEntry struct {
	ReportID string `json:"report_id"`
	Entry
}
