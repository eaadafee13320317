package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labreport-backend/internal/data/mirror"
	"github.com/yungbote/labreport-backend/internal/data/repos"
	types "github.com/yungbote/labreport-backend/internal/domain"
	"github.com/yungbote/labreport-backend/internal/domain/reports"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	perrors "github.com/yungbote/labreport-backend/internal/platform/errors"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

// ParameterService carries the reviewer side of the status machine:
// pending → approved and pending → rejected. The automatic rejected →
// pending edge belongs to the reconcile engine.
type ParameterService interface {
	Approve(dbc dbctx.Context, id uuid.UUID, approverID string, remarks string) (*types.HealthParameter, error)
	Reject(dbc dbctx.Context, id uuid.UUID, approverID string, remarks string) (*types.HealthParameter, error)
	MapToExisting(dbc dbctx.Context, id uuid.UUID, canonicalName string) (*types.HealthParameter, error)
	ListByStatus(dbc dbctx.Context, statuses []string, limit int) ([]*types.HealthParameter, error)
	ListPendingMirror(ctx context.Context) ([]mirror.StatusEntry, error)
}

type parameterService struct {
	db     *gorm.DB
	log    *logger.Logger
	params repos.HealthParameterRepo
	mirror mirror.Store
	now    func() time.Time
}

func NewParameterService(db *gorm.DB, baseLog *logger.Logger, params repos.HealthParameterRepo, store mirror.Store) ParameterService {
	return &parameterService{
		db:     db,
		log:    baseLog.With("service", "ParameterService"),
		params: params,
		mirror: store,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *parameterService) Approve(dbc dbctx.Context, id uuid.UUID, approverID string, remarks string) (*types.HealthParameter, error) {
	return s.review(dbc, id, reports.ParameterStatusApproved, approverID, remarks)
}

func (s *parameterService) Reject(dbc dbctx.Context, id uuid.UUID, approverID string, remarks string) (*types.HealthParameter, error) {
	return s.review(dbc, id, reports.ParameterStatusRejected, approverID, remarks)
}

func (s *parameterService) review(dbc dbctx.Context, id uuid.UUID, to string, approverID string, remarks string) (*types.HealthParameter, error) {
	approverID = strings.TrimSpace(approverID)
	if approverID == "" {
		return nil, fmt.Errorf("%w: missing approver", perrors.ErrInvalidArgument)
	}
	c := dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}
	updates := map[string]interface{}{
		"status":           to,
		"action_timestamp": s.now(),
		"approved_by":      approverID,
		"remarks":          optional(remarks),
	}
	ok, err := s.params.TransitionStatus(c, id, reports.ParameterStatusPending, updates)
	if err != nil {
		return nil, err
	}
	current, err := s.params.GetByID(c, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("parameter %s: %w", id, perrors.ErrNotFound)
	}
	if !ok {
		return nil, fmt.Errorf("parameter %s is %s, cannot move to %s: %w", id, current.Status, to, perrors.ErrInvalidTransition)
	}
	s.log.Info("parameter reviewed", "parameter_id", id, "status", to, "approver_id", approverID)
	return current, nil
}

func (s *parameterService) MapToExisting(dbc dbctx.Context, id uuid.UUID, canonicalName string) (*types.HealthParameter, error) {
	canonicalName = strings.TrimSpace(canonicalName)
	if canonicalName == "" {
		return nil, fmt.Errorf("%w: missing mapping target", perrors.ErrInvalidArgument)
	}
	c := dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}
	current, err := s.params.GetByID(c, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("parameter %s: %w", id, perrors.ErrNotFound)
	}
	if err := s.params.UpdateFields(c, id, map[string]interface{}{"map_to_existing": canonicalName}); err != nil {
		return nil, err
	}
	current.MapToExisting = &canonicalName
	return current, nil
}

func (s *parameterService) ListByStatus(dbc dbctx.Context, statuses []string, limit int) ([]*types.HealthParameter, error) {
	for _, st := range statuses {
		switch st {
		case reports.ParameterStatusPending, reports.ParameterStatusApproved, reports.ParameterStatusRejected:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", perrors.ErrInvalidArgument, st)
		}
	}
	return s.params.ListByStatus(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, statuses, limit)
}

// ListPendingMirror reads the admin listing from the mirror, not the
// durable store.
func (s *parameterService) ListPendingMirror(ctx context.Context) ([]mirror.StatusEntry, error) {
	if s.mirror == nil {
		return []mirror.StatusEntry{}, nil
	}
	return s.mirror.ListByStatus(ctx, reports.ParameterStatusPending)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
