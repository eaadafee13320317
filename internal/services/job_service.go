package services

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/labreport-backend/internal/data/repos"
	types "github.com/yungbote/labreport-backend/internal/domain"
	jobsdomain "github.com/yungbote/labreport-backend/internal/domain/jobs"
	"github.com/yungbote/labreport-backend/internal/platform/ctxutil"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, ownerID string, jobType string, entityType string, entityID string, payload map[string]any) (*types.JobRun, error)
	// EnqueueIfIdle skips enqueueing when a queued or running job already
	// covers the entity. The bool reports whether a new job was created.
	EnqueueIfIdle(dbc dbctx.Context, ownerID string, jobType string, entityType string, entityID string, payload map[string]any) (*types.JobRun, bool, error)
	GetLatestForEntity(dbc dbctx.Context, entityType string, entityID string, jobType string) (*types.JobRun, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerID string, jobType string, entityType string, entityID string, payload map[string]any) (*types.JobRun, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("missing owner_id")
	}
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	now := time.Now().UTC()
	job := &types.JobRun{
		OwnerID:    ownerID,
		JobType:    jobType,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     jobsdomain.StatusQueued,
		Stage:      jobsdomain.StatusQueued,
		Payload:    datatypes.JSON(b),
		Result:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.repo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.log.Debug("job enqueued", "job_id", job.ID, "job_type", jobType, "entity_id", entityID)
	return job, nil
}

func (s *jobService) EnqueueIfIdle(dbc dbctx.Context, ownerID string, jobType string, entityType string, entityID string, payload map[string]any) (*types.JobRun, bool, error) {
	busy, err := s.repo.HasRunnableForEntity(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, entityType, entityID, jobType)
	if err != nil {
		return nil, false, err
	}
	if busy {
		existing, err := s.repo.GetLatestByEntity(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, entityType, entityID, jobType)
		return existing, false, err
	}
	job, err := s.Enqueue(dbc, ownerID, jobType, entityType, entityID, payload)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *jobService) GetLatestForEntity(dbc dbctx.Context, entityType string, entityID string, jobType string) (*types.JobRun, error) {
	return s.repo.GetLatestByEntity(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, entityType, entityID, jobType)
}
