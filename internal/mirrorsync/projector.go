package mirrorsync

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/labreport-backend/internal/data/mirror"
	"github.com/yungbote/labreport-backend/internal/observability"
	"github.com/yungbote/labreport-backend/internal/platform/envutil"
	"github.com/yungbote/labreport-backend/internal/platform/httpx"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
	"github.com/yungbote/labreport-backend/internal/reconcile"
)

type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		MaxAttempts: envutil.Int("MIRROR_MAX_ATTEMPTS", 4, log),
		BaseBackoff: envutil.Duration("MIRROR_RETRY_BASE_MS", 200*time.Millisecond, time.Millisecond, log),
	}
}

// Projector writes reconciled snapshots to the mirror. It only ever writes;
// the mirror is never consulted when deciding what to store.
type Projector struct {
	store mirror.Store
	cfg   Config
	log   *logger.Logger
	now   func() time.Time
}

func NewProjector(store mirror.Store, cfg Config, baseLog *logger.Logger) *Projector {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	return &Projector{
		store: store,
		cfg:   cfg,
		log:   baseLog.With("component", "MirrorProjector"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func Snapshot(externalID string, entries []reconcile.Entry, at time.Time) mirror.Snapshot {
	params := make([]mirror.Entry, 0, len(entries))
	for _, e := range entries {
		params = append(params, mirror.Entry{ParameterName: e.ParameterName, Status: e.Status})
	}
	return mirror.Snapshot{ReportID: externalID, Parameters: params, UpdatedAt: at}
}

// Project overwrites the report's mirror document, retrying with backoff.
// The write is a full upsert, so repeating it is harmless.
func (p *Projector) Project(ctx context.Context, externalID string, entries []reconcile.Entry) (err error) {
	ctx, span := observability.StartSpan(ctx, "mirror.project",
		attribute.String("report_external_id", externalID),
		attribute.Int("entries", len(entries)),
	)
	defer func() { observability.EndSpan(span, err) }()

	snap := Snapshot(externalID, entries, p.now())
	backoff := p.cfg.BaseBackoff
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		lastErr = p.store.Upsert(ctx, snap)
		if lastErr == nil {
			span.SetAttributes(attribute.Int("attempts", attempt))
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		p.log.Warn("mirror upsert failed",
			"report_external_id", externalID,
			"attempt", attempt,
			"error", lastErr,
		)
		if attempt == p.cfg.MaxAttempts {
			break
		}
		if err := httpx.Sleep(ctx, httpx.JitterSleep(backoff)); err != nil {
			break
		}
		backoff *= 2
	}
	return fmt.Errorf("mirror project %s: %w", externalID, lastErr)
}
