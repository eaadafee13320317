package report_extract

import (
	"context"
	"fmt"

	jobsdomain "github.com/yungbote/labreport-backend/internal/domain/jobs"
	"github.com/yungbote/labreport-backend/internal/jobs/runtime"
	"github.com/yungbote/labreport-backend/internal/pipeline"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

type Extractor interface {
	ExtractAndReconcile(ctx context.Context, externalID string) (*pipeline.Result, error)
}

type Handler struct {
	log  *logger.Logger
	pipe Extractor
}

func New(log *logger.Logger, pipe Extractor) *Handler {
	return &Handler{log: log.With("job", jobsdomain.TypeReportExtract), pipe: pipe}
}

func (h *Handler) Type() string { return jobsdomain.TypeReportExtract }

func (h *Handler) Run(jc *runtime.Context) error {
	externalID, ok := jc.PayloadString("report_external_id")
	if !ok {
		externalID = jc.Job.EntityID
	}
	if externalID == "" {
		err := fmt.Errorf("missing report_external_id")
		jc.Fail("validate", err, false)
		return err
	}

	jc.Stage("extract")
	res, err := h.pipe.ExtractAndReconcile(jc.Ctx, externalID)
	if err != nil {
		retry := pipeline.IsRetryable(err)
		h.log.Warn("report extraction failed",
			"report_external_id", externalID,
			"job_id", jc.Job.ID,
			"kind", string(pipeline.KindOf(err)),
			"retry", retry,
			"error", err,
		)
		jc.Fail("extract", err, retry)
		return err
	}
	jc.Succeed("done", res)
	return nil
}
