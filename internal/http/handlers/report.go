package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	jobsdomain "github.com/yungbote/labreport-backend/internal/domain/jobs"
	"github.com/yungbote/labreport-backend/internal/http/middleware"
	"github.com/yungbote/labreport-backend/internal/http/response"
	"github.com/yungbote/labreport-backend/internal/pipeline"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	perrors "github.com/yungbote/labreport-backend/internal/platform/errors"
	"github.com/yungbote/labreport-backend/internal/services"
)

type Extractor interface {
	ExtractAndReconcile(ctx context.Context, externalID string) (*pipeline.Result, error)
}

type ReportHandler struct {
	reports services.ReportService
	jobs    services.JobService
	pipe    Extractor
}

func NewReportHandler(reports services.ReportService, jobs services.JobService, pipe Extractor) *ReportHandler {
	return &ReportHandler{reports: reports, jobs: jobs, pipe: pipe}
}

// POST /api/reports
func (h *ReportHandler) Upload(c *gin.Context) {
	owner := middleware.ClientID(c)
	if owner == "" {
		response.RespondErr(c, fmt.Errorf("%w: missing X-Client-Id", perrors.ErrInvalidArgument))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondErr(c, fmt.Errorf("%w: file is required", perrors.ErrInvalidArgument))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondErr(c, fmt.Errorf("%w: unreadable upload", perrors.ErrInvalidArgument))
		return
	}
	defer f.Close()

	name := c.PostForm("report_name")
	if name == "" {
		name = fh.Filename
	}
	report, job, err := h.reports.Upload(c.Request.Context(), services.UploadInput{
		OwnerID:     owner,
		ReportName:  name,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Report uploaded successfully",
		"report_id": report.ExternalID,
		"report":    report,
		"job_id":    job.ID,
	})
}

// GET /api/reports
func (h *ReportHandler) ListMine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	out, err := h.reports.ListByClient(dbctx.Context{Ctx: c.Request.Context()}, middleware.ClientID(c), limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"reports": out})
}

// GET /api/reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.GetByExternalID(dbctx.Context{Ctx: c.Request.Context()}, c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}

// GET /api/reports/:id/parameters
func (h *ReportHandler) ListParameters(c *gin.Context) {
	params, err := h.reports.ListParameters(dbctx.Context{Ctx: c.Request.Context()}, c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"parameters": params})
}

// GET /api/reports/:id/job
func (h *ReportHandler) LatestJob(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	report, err := h.reports.GetByExternalID(dbc, c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	job, err := h.jobs.GetLatestForEntity(dbc, jobsdomain.EntityTypeReport, report.ExternalID, jobsdomain.TypeReportExtract)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if job == nil {
		response.RespondErr(c, fmt.Errorf("extraction job for %s: %w", report.ExternalID, perrors.ErrNotFound))
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/reports/:id/extract
//
// With ?async=1 the pass is queued on the job worker instead of run inline.
// A report that already has a queued or running extraction gets that job back.
func (h *ReportHandler) Extract(c *gin.Context) {
	if async, _ := strconv.ParseBool(c.Query("async")); async {
		h.queueExtract(c)
		return
	}
	res, err := h.pipe.ExtractAndReconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"message":             "Extraction and validation complete",
		"approved_parameters": res.ApprovedParameterNames,
		"pending_parameters":  res.PendingParameterNames,
		"mirror_stale":        res.MirrorStale,
	})
}

func (h *ReportHandler) queueExtract(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	report, err := h.reports.GetByExternalID(dbc, c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	job, created, err := h.jobs.EnqueueIfIdle(dbc, report.ClientID, jobsdomain.TypeReportExtract,
		jobsdomain.EntityTypeReport, report.ExternalID, map[string]any{
			"report_external_id": report.ExternalID,
		})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	msg := "Extraction queued"
	if !created {
		msg = "Extraction already in progress"
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": msg,
		"job_id":  job.ID,
		"queued":  created,
	})
}
