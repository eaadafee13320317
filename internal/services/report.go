package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labreport-backend/internal/data/repos"
	types "github.com/yungbote/labreport-backend/internal/domain"
	jobsdomain "github.com/yungbote/labreport-backend/internal/domain/jobs"
	"github.com/yungbote/labreport-backend/internal/domain/reports"
	"github.com/yungbote/labreport-backend/internal/ingestion/extractor"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	perrors "github.com/yungbote/labreport-backend/internal/platform/errors"
	"github.com/yungbote/labreport-backend/internal/platform/gcp"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

const pdfContentType = "application/pdf"

type UploadInput struct {
	OwnerID     string
	ReportName  string
	ContentType string
	Body        io.Reader
}

type ReportService interface {
	// Upload stores the document, records the report as pending and queues
	// its extraction.
	Upload(ctx context.Context, in UploadInput) (*types.Report, *types.JobRun, error)
	GetByExternalID(dbc dbctx.Context, externalID string) (*types.Report, error)
	ListByClient(dbc dbctx.Context, clientID string, limit int) ([]*types.Report, error)
	ListParameters(dbc dbctx.Context, externalID string) ([]*types.HealthParameter, error)
}

type reportService struct {
	db      *gorm.DB
	log     *logger.Logger
	bucket  gcp.BucketService
	reports repos.ReportRepo
	params  repos.HealthParameterRepo
	jobs    JobService
	now     func() time.Time
}

func NewReportService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	reportRepo repos.ReportRepo,
	paramRepo repos.HealthParameterRepo,
	jobs JobService,
) ReportService {
	return &reportService{
		db:      db,
		log:     baseLog.With("service", "ReportService"),
		bucket:  bucket,
		reports: reportRepo,
		params:  paramRepo,
		jobs:    jobs,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// StorageKey lays out uploads as {owner}/{timestamp}/{externalId}/{name}.pdf.
func StorageKey(ownerID string, at time.Time, externalID, reportName string) string {
	return fmt.Sprintf("%s/%s/%s/%s.pdf", ownerID, at.UTC().Format("20060102150405"), externalID, reportName)
}

func cleanReportName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if strings.EqualFold(path.Ext(name), ".pdf") {
		name = name[:len(name)-len(".pdf")]
	}
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func (s *reportService) Upload(ctx context.Context, in UploadInput) (*types.Report, *types.JobRun, error) {
	owner := strings.TrimSpace(in.OwnerID)
	if owner == "" {
		return nil, nil, fmt.Errorf("%w: missing owner", perrors.ErrInvalidArgument)
	}
	name := cleanReportName(in.ReportName)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: missing report name", perrors.ErrInvalidArgument)
	}
	mediaType, _, err := mime.ParseMediaType(in.ContentType)
	if err != nil || mediaType != pdfContentType {
		return nil, nil, fmt.Errorf("%w: only PDF uploads are accepted", perrors.ErrInvalidArgument)
	}
	if in.Body == nil {
		return nil, nil, fmt.Errorf("%w: empty upload", perrors.ErrInvalidArgument)
	}
	body := bufio.NewReader(in.Body)
	head, _ := body.Peek(5)
	if !extractor.IsPDF(head) {
		return nil, nil, fmt.Errorf("%w: file is not a PDF document", perrors.ErrInvalidArgument)
	}

	now := s.now()
	externalID := uuid.NewString()
	key := StorageKey(owner, now, externalID, name)
	if err := s.bucket.PutObject(ctx, key, pdfContentType, body); err != nil {
		return nil, nil, fmt.Errorf("store report: %w", err)
	}

	report := &types.Report{
		ExternalID:       externalID,
		ClientID:         owner,
		ReportName:       name,
		ContentType:      pdfContentType,
		StorageKey:       key,
		StorageURI:       s.bucket.ObjectURI(key),
		ProcessingStatus: reports.ProcessingStatusPending,
		UploadedAt:       now,
	}
	var job *types.JobRun
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.reports.Create(dbc, report); err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		var err error
		job, err = s.jobs.Enqueue(dbc, owner, jobsdomain.TypeReportExtract, jobsdomain.EntityTypeReport, externalID, map[string]any{
			"report_external_id": externalID,
		})
		return err
	})
	if err != nil {
		if derr := s.bucket.DeleteObject(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Warn("failed to remove orphaned upload", "storage_key", key, "error", derr)
		}
		return nil, nil, err
	}
	s.log.Info("report uploaded", "report_external_id", externalID, "owner_id", owner, "job_id", job.ID)
	return report, job, nil
}

func (s *reportService) GetByExternalID(dbc dbctx.Context, externalID string) (*types.Report, error) {
	r, err := s.reports.GetByExternalID(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, externalID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("report %q: %w", externalID, perrors.ErrNotFound)
	}
	return r, nil
}

func (s *reportService) ListByClient(dbc dbctx.Context, clientID string, limit int) ([]*types.Report, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("%w: missing client", perrors.ErrInvalidArgument)
	}
	return s.reports.ListByClient(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, clientID, limit)
}

func (s *reportService) ListParameters(dbc dbctx.Context, externalID string) ([]*types.HealthParameter, error) {
	r, err := s.GetByExternalID(dbc, externalID)
	if err != nil {
		return nil, err
	}
	return s.params.ListByReportID(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, r.ID)
}
