package reconcile

import (
	"github.com/yungbote/labreport-backend/internal/platform/envutil"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

type Policy struct {
	// RehomeRejected lets a pass take over a rejected record that lives on
	// another report instead of inserting a fresh one. The record's report
	// association moves; callers that pin measurements to reports should turn
	// this off.
	RehomeRejected bool
	// ConflictRetries bounds how often a pass is re-run after losing a
	// uniqueness race to a concurrent pass.
	ConflictRetries int
}

func DefaultPolicy() Policy {
	return Policy{RehomeRejected: true, ConflictRetries: 3}
}

func PolicyFromEnv(log *logger.Logger) Policy {
	def := DefaultPolicy()
	return Policy{
		RehomeRejected:  envutil.Bool("RECONCILE_REHOME_REJECTED", def.RehomeRejected, log),
		ConflictRetries: envutil.Int("RECONCILE_CONFLICT_RETRIES", def.ConflictRetries, log),
	}
}
