package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/yungbote/labreport-backend/internal/data/repos"
	types "github.com/yungbote/labreport-backend/internal/domain"
	domain "github.com/yungbote/labreport-backend/internal/domain/reports"
	"github.com/yungbote/labreport-backend/internal/ingestion/extractor"
	"github.com/yungbote/labreport-backend/internal/ingestion/oracle"
	"github.com/yungbote/labreport-backend/internal/ingestion/scanner"
	"github.com/yungbote/labreport-backend/internal/observability"
	"github.com/yungbote/labreport-backend/internal/platform/ctxutil"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
	"github.com/yungbote/labreport-backend/internal/reconcile"
)

type BlobOpener interface {
	OpenObject(ctx context.Context, key string) (io.ReadCloser, error)
}

type TextExtractor interface {
	ExtractPages(ctx context.Context, r io.Reader) ([]string, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, reportID uuid.UUID, validated reconcile.Validated) (*reconcile.Result, error)
}

type Projector interface {
	Project(ctx context.Context, externalID string, entries []reconcile.Entry) error
}

// Notifier hears about finished passes. Delivery is best effort.
type Notifier interface {
	ReportProcessed(ctx context.Context, externalID string, res *Result)
	ReportFailed(ctx context.Context, externalID string, perr *Error)
}

type Deps struct {
	Reports    repos.ReportRepo
	Blobs      BlobOpener
	Extractor  TextExtractor
	Scanner    *scanner.Scanner
	Validator  oracle.Validator
	Reconciler Reconciler
	Projector  Projector
	// Notifier is optional.
	Notifier Notifier
	// PassTimeout bounds a shared pass, which outlives any single caller.
	PassTimeout time.Duration
}

const defaultPassTimeout = 10 * time.Minute

type Result struct {
	ApprovedParameterNames []string `json:"approved_parameters"`
	PendingParameterNames  []string `json:"pending_parameters"`
	// MirrorStale is set when the durable store committed but the mirror
	// could not be updated within its retry budget.
	MirrorStale bool `json:"mirror_stale"`

	Diagnostics domain.ExtractionDiagnostics `json:"-"`
}

type Pipeline struct {
	deps   Deps
	log    *logger.Logger
	flight singleflight.Group
	now    func() time.Time
}

func New(deps Deps, baseLog *logger.Logger) *Pipeline {
	if deps.Scanner == nil {
		deps.Scanner = scanner.New(scanner.DefaultConfig())
	}
	if deps.PassTimeout <= 0 {
		deps.PassTimeout = defaultPassTimeout
	}
	return &Pipeline{
		deps: deps,
		log:  baseLog.With("component", "ExtractionPipeline"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// ExtractAndReconcile runs one reconciliation pass for the report. Callers
// racing on the same report share a single pass. The pass runs detached from
// the caller that started it; a caller whose ctx ends stops waiting but the
// pass finishes for everyone else.
func (p *Pipeline) ExtractAndReconcile(ctx context.Context, externalID string) (*Result, error) {
	ch := p.flight.DoChan(externalID, func() (interface{}, error) {
		passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.deps.PassTimeout)
		defer cancel()
		return p.run(passCtx, externalID)
	})
	var out singleflight.Result
	select {
	case <-ctx.Done():
		return nil, newError(KindInternal, "await pass", ctx.Err())
	case out = <-ch:
	}
	if out.Err != nil {
		return nil, out.Err
	}
	res := *(out.Val.(*Result))
	res.ApprovedParameterNames = append([]string{}, res.ApprovedParameterNames...)
	res.PendingParameterNames = append([]string{}, res.PendingParameterNames...)
	if out.Shared {
		p.log.Debug("joined in-flight extraction", "report_external_id", externalID)
	}
	return &res, nil
}

func (p *Pipeline) run(ctx context.Context, externalID string) (result *Result, err error) {
	ctx, span := observability.StartSpan(ctx, "report.reconcile_pass",
		attribute.String("report_external_id", externalID),
	)
	defer func() { observability.EndSpan(span, err) }()

	log := p.log.With(append(ctxutil.LogFields(ctx), "report_external_id", externalID)...)

	report, err := p.deps.Reports.GetByExternalID(dbctx.Context{Ctx: ctx}, externalID)
	if err != nil {
		return nil, newError(KindInternal, "load report", err)
	}
	if report == nil {
		return nil, newError(KindNotFound, "load report", fmt.Errorf("report %q", externalID))
	}

	diag := domain.ExtractionDiagnostics{}
	fail := func(perr *Error) (*Result, error) {
		diag.ErrorKind = string(perr.Kind)
		p.markFailed(ctx, log, report, diag, perr)
		if p.deps.Notifier != nil {
			p.deps.Notifier.ReportFailed(ctx, report.ExternalID, perr)
		}
		return nil, perr
	}

	pages, perr := p.extract(ctx, report)
	if perr != nil {
		return fail(perr)
	}

	candidates := p.scan(ctx, pages)
	diag.Candidates = len(candidates)
	if len(candidates) == 0 {
		return fail(newError(KindNoCandidates, "scan", errors.New("no measurements found in document")))
	}

	validated, perr := p.validate(ctx, candidates)
	if perr != nil {
		return fail(perr)
	}
	diag.Validated = len(validated)

	rec, err := p.deps.Reconciler.Reconcile(ctx, report.ID, validated)
	if err != nil {
		return fail(newError(KindInternal, "reconcile", err))
	}
	diag.Inserted = rec.Outcome.Inserted
	diag.Reopened = rec.Outcome.Reopened
	diag.Rehomed = rec.Outcome.Rehomed
	diag.Conflicts = rec.Outcome.Conflicts
	diag.FastPath = rec.Outcome.FastPath

	result = &Result{
		ApprovedParameterNames: rec.Approved,
		PendingParameterNames:  rec.Pending,
	}
	if err := p.deps.Projector.Project(ctx, report.ExternalID, rec.Entries); err != nil {
		result.MirrorStale = true
		log.Error("mirror projection exhausted retries; durable store is authoritative", "error", err)
	}
	diag.MirrorOK = !result.MirrorStale
	result.Diagnostics = diag

	if rec.Outcome.Writes() > 0 || report.ProcessingStatus != domain.ProcessingStatusSuccess || result.MirrorStale {
		p.markSucceeded(ctx, log, report, diag)
	}
	if p.deps.Notifier != nil {
		p.deps.Notifier.ReportProcessed(ctx, report.ExternalID, result)
	}
	return result, nil
}

func (p *Pipeline) extract(ctx context.Context, report *types.Report) (pages []string, perr *Error) {
	ctx, span := observability.StartSpan(ctx, "report.extract",
		attribute.String("storage_key", report.StorageKey),
	)
	var spanErr error
	defer func() { observability.EndSpan(span, spanErr) }()

	rc, err := p.deps.Blobs.OpenObject(ctx, report.StorageKey)
	if err != nil {
		spanErr = err
		return nil, newError(KindUpstreamUnavailable, "fetch document", err)
	}
	defer rc.Close()

	pages, err = p.deps.Extractor.ExtractPages(ctx, rc)
	if err != nil {
		spanErr = err
		// A document with no usable text is an empty result, not an outage.
		if errors.Is(err, extractor.ErrEmptyDocument) ||
			errors.Is(err, extractor.ErrNotPDF) ||
			errors.Is(err, extractor.ErrTooLarge) ||
			errors.Is(err, extractor.ErrUnreadable) {
			return nil, newError(KindNoCandidates, "extract text", err)
		}
		return nil, newError(KindUpstreamUnavailable, "extract text", err)
	}
	span.SetAttributes(attribute.Int("pages", len(pages)))
	return pages, nil
}

func (p *Pipeline) scan(ctx context.Context, pages []string) []scanner.Candidate {
	_, span := observability.StartSpan(ctx, "report.scan")
	candidates := p.deps.Scanner.ScanPages(pages)
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	observability.EndSpan(span, nil)
	return candidates
}

// validate asks the oracle and joins its verdicts back onto the scanned
// measurements. The result is keyed by the oracle's display name.
func (p *Pipeline) validate(ctx context.Context, candidates []scanner.Candidate) (reconcile.Validated, *Error) {
	ctx, span := observability.StartSpan(ctx, "oracle.validate",
		attribute.Int("candidates", len(candidates)),
	)
	verdicts, err := p.deps.Validator.Validate(ctx, candidates)
	observability.EndSpan(span, err)
	if err != nil {
		if errors.Is(err, oracle.ErrMalformedResponse) {
			return nil, newError(KindMalformedOracle, "validate", err)
		}
		return nil, newError(KindUpstreamUnavailable, "validate", err)
	}

	out := make(reconcile.Validated, len(verdicts))
	for _, c := range candidates {
		name, ok := verdicts[c.Key]
		if !ok {
			continue
		}
		if _, dup := out[name]; dup {
			continue
		}
		out[name] = reconcile.Measurement{Value: c.Value, Unit: c.Unit}
	}
	return out, nil
}

func (p *Pipeline) markSucceeded(ctx context.Context, log *logger.Logger, report *types.Report, diag domain.ExtractionDiagnostics) {
	now := p.now()
	updates := map[string]interface{}{
		"processing_status":      domain.ProcessingStatusSuccess,
		"last_extracted_at":      now,
		"last_error":             "",
		"extraction_diagnostics": encodeDiagnostics(diag),
	}
	if err := p.deps.Reports.UpdateFields(dbctx.Context{Ctx: ctx}, report.ID, updates); err != nil {
		log.Warn("failed to record extraction success", "error", err)
	}
}

func (p *Pipeline) markFailed(ctx context.Context, log *logger.Logger, report *types.Report, diag domain.ExtractionDiagnostics, perr *Error) {
	log.Warn("extraction pass failed", "kind", string(perr.Kind), "op", perr.Op, "error", perr.Err)
	now := p.now()
	updates := map[string]interface{}{
		"processing_status":      domain.ProcessingStatusFailure,
		"last_extracted_at":      now,
		"last_error":             perr.Error(),
		"extraction_diagnostics": encodeDiagnostics(diag),
	}
	// The request context may already be cancelled (oracle timeout); the
	// bookkeeping write still has to land.
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.deps.Reports.UpdateFields(dbctx.Context{Ctx: bctx}, report.ID, updates); err != nil {
		log.Warn("failed to record extraction failure", "error", err)
	}
}

func encodeDiagnostics(diag domain.ExtractionDiagnostics) datatypes.JSON {
	raw, err := json.Marshal(diag)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
