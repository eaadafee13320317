package reports

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/labreport-backend/internal/domain"
	domain "github.com/yungbote/labreport-backend/internal/domain/reports"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

// activeKeyGuard is the predicate of idx_health_parameter_normalized_active.
// It is inlined as a literal because Postgres only infers a partial index for
// ON CONFLICT when the predicates match syntactically.
const activeKeyGuard = "status <> 'rejected'"

type HealthParameterRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.HealthParameter, error)
	ListByReportID(dbc dbctx.Context, reportID uuid.UUID) ([]*types.HealthParameter, error)
	ListByNormalizedNames(dbc dbctx.Context, keys []string) ([]*types.HealthParameter, error)
	ListByStatus(dbc dbctx.Context, statuses []string, limit int) ([]*types.HealthParameter, error)

	// InsertPendingIfAbsent inserts p unless a non-rejected row for the same
	// normalized name already exists anywhere. Returns false on conflict.
	InsertPendingIfAbsent(dbc dbctx.Context, p *types.HealthParameter) (bool, error)
	// Reopen moves a rejected row to pending and attaches it to reportID. It
	// is a no-op (false) when the row is no longer rejected or another
	// non-rejected row for the same key exists.
	Reopen(dbc dbctx.Context, id uuid.UUID, reportID uuid.UUID, refresh ParameterRefresh) (bool, error)
	// TransitionStatus applies updates only while the row is in fromStatus.
	TransitionStatus(dbc dbctx.Context, id uuid.UUID, fromStatus string, updates map[string]interface{}) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

// ParameterRefresh carries the values observed by the extraction pass that
// reopened a record.
type ParameterRefresh struct {
	ParameterName string
	Value         string
	Unit          string
	At            time.Time
}

type healthParameterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHealthParameterRepo(db *gorm.DB, baseLog *logger.Logger) HealthParameterRepo {
	return &healthParameterRepo{
		db:  db,
		log: baseLog.With("repo", "HealthParameterRepo"),
	}
}

func (r *healthParameterRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.HealthParameter, error) {
	transaction := dbc.Or(r.db)
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.HealthParameter
	if err := transaction.WithContext(dbc.Context()).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *healthParameterRepo) ListByReportID(dbc dbctx.Context, reportID uuid.UUID) ([]*types.HealthParameter, error) {
	transaction := dbc.Or(r.db)
	var out []*types.HealthParameter
	if reportID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Context()).
		Where("report_id = ?", reportID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *healthParameterRepo) ListByNormalizedNames(dbc dbctx.Context, keys []string) ([]*types.HealthParameter, error) {
	transaction := dbc.Or(r.db)
	var out []*types.HealthParameter
	if len(keys) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Context()).
		Where("normalized_name IN ?", keys).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *healthParameterRepo) ListByStatus(dbc dbctx.Context, statuses []string, limit int) ([]*types.HealthParameter, error) {
	transaction := dbc.Or(r.db)
	var out []*types.HealthParameter
	if len(statuses) == 0 {
		return out, nil
	}
	q := transaction.WithContext(dbc.Context()).
		Where("status IN ?", statuses).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *healthParameterRepo) InsertPendingIfAbsent(dbc dbctx.Context, p *types.HealthParameter) (bool, error) {
	transaction := dbc.Or(r.db)
	if p == nil {
		return false, nil
	}
	p.Status = domain.ParameterStatusPending
	res := transaction.WithContext(dbc.Context()).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "normalized_name"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: activeKeyGuard}}},
			DoNothing:   true,
		}).
		Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *healthParameterRepo) Reopen(dbc dbctx.Context, id uuid.UUID, reportID uuid.UUID, refresh ParameterRefresh) (bool, error) {
	transaction := dbc.Or(r.db)
	if id == uuid.Nil || reportID == uuid.Nil {
		return false, nil
	}
	at := refresh.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	updates := map[string]interface{}{
		"status":           domain.ParameterStatusPending,
		"report_id":        reportID,
		"action_timestamp": at,
		"updated_at":       at,
	}
	if refresh.ParameterName != "" {
		updates["parameter_name"] = refresh.ParameterName
	}
	if refresh.Value != "" {
		updates["value"] = refresh.Value
		updates["unit"] = refresh.Unit
	}
	res := transaction.WithContext(dbc.Context()).
		Model(&types.HealthParameter{}).
		Where("id = ? AND status = ?", id, domain.ParameterStatusRejected).
		Where(`NOT EXISTS (
			SELECT 1 FROM health_parameter hp2
			WHERE hp2.normalized_name = health_parameter.normalized_name
			  AND hp2.status <> ?
			  AND hp2.id <> health_parameter.id
		)`, domain.ParameterStatusRejected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *healthParameterRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, fromStatus string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Or(r.db)
	if id == uuid.Nil || len(updates) == 0 {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Context()).
		Model(&types.HealthParameter{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *healthParameterRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Or(r.db)
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Context()).
		Model(&types.HealthParameter{}).
		Where("id = ?", id).
		Updates(updates).Error
}
