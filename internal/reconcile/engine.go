package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/labreport-backend/internal/data/repos"
	types "github.com/yungbote/labreport-backend/internal/domain"
	domain "github.com/yungbote/labreport-backend/internal/domain/reports"
	"github.com/yungbote/labreport-backend/internal/normalization"
	"github.com/yungbote/labreport-backend/internal/observability"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

// Measurement is what the scanner observed for one validated parameter.
type Measurement struct {
	Value string
	Unit  string
}

// Validated maps oracle-canonical display names to their measurements.
type Validated map[string]Measurement

type Outcome struct {
	Inserted  int
	Reopened  int
	Rehomed   int
	Conflicts int
	Skipped   int
	FastPath  bool
}

// Writes counts rows created or modified by the pass.
func (o Outcome) Writes() int {
	return o.Inserted + o.Reopened + o.Rehomed
}

type Entry struct {
	ID            uuid.UUID
	ParameterName string
	Status        string
}

type Result struct {
	Approved []string
	Pending  []string
	// Entries holds this report's approved and pending records for the
	// validated keys, sorted by parameter name.
	Entries []Entry
	Outcome Outcome
}

type Engine struct {
	db     *gorm.DB
	params repos.HealthParameterRepo
	locker NameLocker
	policy Policy
	log    *logger.Logger
	now    func() time.Time
}

func NewEngine(db *gorm.DB, params repos.HealthParameterRepo, locker NameLocker, policy Policy, baseLog *logger.Logger) *Engine {
	if locker == nil {
		locker = NoopLocker{}
	}
	if policy.ConflictRetries < 0 {
		policy.ConflictRetries = 0
	}
	return &Engine{
		db:     db,
		params: params,
		locker: locker,
		policy: policy,
		log:    baseLog.With("component", "ReconcileEngine"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type item struct {
	key  string
	name string
	m    Measurement
}

// collapse keys the validated set by normalized name. Display names that
// normalize to the same key are folded; the lexicographically smallest wins.
func collapse(validated Validated) []item {
	byKey := make(map[string]item, len(validated))
	for name, m := range validated {
		key := normalization.NormalizeParameterName(name)
		if key == "" {
			continue
		}
		if cur, ok := byKey[key]; ok && cur.name <= name {
			continue
		}
		byKey[key] = item{key: key, name: name, m: m}
	}
	out := make([]item, 0, len(byKey))
	for _, it := range byKey {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// Reconcile merges the validated set for one report into the durable
// parameter store and reports which of the report's parameters are approved
// and which await review.
func (e *Engine) Reconcile(ctx context.Context, reportID uuid.UUID, validated Validated) (result *Result, err error) {
	ctx, span := observability.StartSpan(ctx, "reconcile.commit",
		attribute.String("report_id", reportID.String()),
		attribute.Int("validated", len(validated)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if reportID == uuid.Nil {
		return nil, fmt.Errorf("reconcile: missing report id")
	}
	items := collapse(validated)
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.key)
	}

	out := Outcome{}
	if len(items) > 0 {
		unlock, lerr := e.locker.Lock(ctx, keys)
		if lerr != nil {
			return nil, lerr
		}
		defer unlock()

		for attempt := 0; ; attempt++ {
			pass := Outcome{}
			err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return e.apply(dbctx.Context{Ctx: ctx, Tx: tx}, reportID, items, &pass)
			})
			if err == nil {
				pass.Conflicts += out.Conflicts
				out = pass
				break
			}
			if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < e.policy.ConflictRetries {
				out.Conflicts++
				e.log.Warn("reconcile lost a uniqueness race, retrying",
					"report_id", reportID,
					"attempt", attempt+1,
				)
				continue
			}
			return nil, fmt.Errorf("reconcile report %s: %w", reportID, err)
		}
	}

	current, err := e.params.ListByReportID(dbctx.Context{Ctx: ctx}, reportID)
	if err != nil {
		return nil, fmt.Errorf("reload parameters: %w", err)
	}
	result = partition(items, current)
	result.Outcome = out

	span.SetAttributes(
		attribute.Int("inserted", out.Inserted),
		attribute.Int("reopened", out.Reopened),
		attribute.Int("rehomed", out.Rehomed),
		attribute.Int("conflicts", out.Conflicts),
		attribute.Bool("fast_path", out.FastPath),
	)
	e.log.Debug("reconcile complete",
		"report_id", reportID,
		"approved", len(result.Approved),
		"pending", len(result.Pending),
		"writes", out.Writes(),
		"fast_path", out.FastPath,
	)
	return result, nil
}

func (e *Engine) apply(dbc dbctx.Context, reportID uuid.UUID, items []item, out *Outcome) error {
	own, err := e.params.ListByReportID(dbc, reportID)
	if err != nil {
		return err
	}
	ownByKey := make(map[string]*types.HealthParameter, len(own))
	for _, p := range own {
		ownByKey[p.NormalizedName] = p
	}

	settled := true
	for _, it := range items {
		if p, ok := ownByKey[it.key]; !ok || p.IsRejected() {
			settled = false
			break
		}
	}
	if settled {
		out.FastPath = true
		return nil
	}

	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.key)
	}
	all, err := e.params.ListByNormalizedNames(dbc, keys)
	if err != nil {
		return err
	}
	active := make(map[string]*types.HealthParameter, len(all))
	rejectedElsewhere := make(map[string]*types.HealthParameter)
	for _, p := range all {
		if !p.IsRejected() {
			active[p.NormalizedName] = p
			continue
		}
		if p.ReportID == reportID {
			continue
		}
		// Newest rejected record is the one a reviewer saw last.
		if cur, ok := rejectedElsewhere[p.NormalizedName]; !ok || p.UpdatedAt.After(cur.UpdatedAt) {
			rejectedElsewhere[p.NormalizedName] = p
		}
	}

	now := e.now()
	for _, it := range items {
		refresh := repos.ParameterRefresh{
			ParameterName: it.name,
			Value:         it.m.Value,
			Unit:          it.m.Unit,
			At:            now,
		}

		if p, ok := ownByKey[it.key]; ok {
			if !p.IsRejected() {
				continue
			}
			if _, taken := active[it.key]; taken {
				out.Skipped++
				continue
			}
			ok, err := e.params.Reopen(dbc, p.ID, reportID, refresh)
			if err != nil {
				return err
			}
			if ok {
				out.Reopened++
			} else {
				out.Skipped++
			}
			continue
		}

		if _, taken := active[it.key]; taken {
			continue
		}

		if p, ok := rejectedElsewhere[it.key]; ok && e.policy.RehomeRejected {
			ok, err := e.params.Reopen(dbc, p.ID, reportID, refresh)
			if err != nil {
				return err
			}
			if ok {
				out.Rehomed++
			} else {
				out.Skipped++
			}
			continue
		}

		inserted, err := e.params.InsertPendingIfAbsent(dbc, &types.HealthParameter{
			ReportID:        reportID,
			ParameterName:   it.name,
			NormalizedName:  it.key,
			Value:           it.m.Value,
			Unit:            it.m.Unit,
			ActionTimestamp: now,
		})
		if err != nil {
			return err
		}
		if inserted {
			out.Inserted++
		} else {
			out.Conflicts++
		}
	}
	return nil
}

func partition(items []item, current []*types.HealthParameter) *Result {
	wanted := make(map[string]struct{}, len(items))
	for _, it := range items {
		wanted[it.key] = struct{}{}
	}
	res := &Result{Approved: []string{}, Pending: []string{}, Entries: []Entry{}}
	for _, p := range current {
		if _, ok := wanted[p.NormalizedName]; !ok {
			continue
		}
		switch p.Status {
		case domain.ParameterStatusApproved:
			res.Approved = append(res.Approved, p.ParameterName)
		case domain.ParameterStatusPending:
			res.Pending = append(res.Pending, p.ParameterName)
		default:
			continue
		}
		res.Entries = append(res.Entries, Entry{ID: p.ID, ParameterName: p.ParameterName, Status: p.Status})
	}
	sort.Strings(res.Approved)
	sort.Strings(res.Pending)
	sort.Slice(res.Entries, func(i, j int) bool { return res.Entries[i].ParameterName < res.Entries[j].ParameterName })
	return res
}
