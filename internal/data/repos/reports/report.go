package reports

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/labreport-backend/internal/domain"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

type ReportRepo interface {
	Create(dbc dbctx.Context, report *types.Report) (*types.Report, error)
	GetByExternalID(dbc dbctx.Context, externalID string) (*types.Report, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Report, error)
	ListByClient(dbc dbctx.Context, clientID string, limit int) ([]*types.Report, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{
		db:  db,
		log: baseLog.With("repo", "ReportRepo"),
	}
}

func (r *reportRepo) Create(dbc dbctx.Context, report *types.Report) (*types.Report, error) {
	transaction := dbc.Or(r.db)
	if report == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Context()).Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

// GetByExternalID returns (nil, nil) when no report carries the id.
func (r *reportRepo) GetByExternalID(dbc dbctx.Context, externalID string) (*types.Report, error) {
	transaction := dbc.Or(r.db)
	if externalID == "" {
		return nil, nil
	}
	var out []*types.Report
	if err := transaction.WithContext(dbc.Context()).
		Where("external_id = ?", externalID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *reportRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Report, error) {
	transaction := dbc.Or(r.db)
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Report
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

func (r *reportRepo) ListByClient(dbc dbctx.Context, clientID string, limit int) ([]*types.Report, error) {
	transaction := dbc.Or(r.db)
	var out []*types.Report
	if clientID == "" {
		return out, nil
	}
	q := transaction.WithContext(dbc.Context()).
		Where("client_id = ?", clientID).
		Order("uploaded_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reportRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Or(r.db)
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Context()).
		Model(&types.Report{}).
		Where("id = ?", id).
		Updates(updates).Error
}
