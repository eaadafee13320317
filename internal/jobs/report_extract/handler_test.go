package report_extract

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/labreport-backend/internal/data/repos"
	"github.com/yungbote/labreport-backend/internal/data/repos/testutil"
	types "github.com/yungbote/labreport-backend/internal/domain"
	jobsdomain "github.com/yungbote/labreport-backend/internal/domain/jobs"
	"github.com/yungbote/labreport-backend/internal/jobs/runtime"
	"github.com/yungbote/labreport-backend/internal/jobs/worker"
	"github.com/yungbote/labreport-backend/internal/pipeline"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	"github.com/yungbote/labreport-backend/internal/services"
)

type stubPipeline struct {
	calls []string
	res   *pipeline.Result
	err   error
}

func (s *stubPipeline) ExtractAndReconcile(_ context.Context, externalID string) (*pipeline.Result, error) {
	s.calls = append(s.calls, externalID)
	return s.res, s.err
}

func runJob(t *testing.T, stub *stubPipeline) *types.JobRun {
	t.Helper()
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewJobRunRepo(db, log)
	jobs := services.NewJobService(db, log, jobRepo)

	job, err := jobs.Enqueue(dbctx.Context{Ctx: ctx}, "owner-1", jobsdomain.TypeReportExtract, jobsdomain.EntityTypeReport, "ext-1",
		map[string]any{"report_external_id": "ext-1"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	reg := runtime.NewRegistry()
	if err := reg.Register(New(log, stub)); err != nil {
		t.Fatalf("register: %v", err)
	}
	w := worker.NewWorker(log, jobRepo, reg, worker.Config{})
	ran, err := w.RunOnce(ctx)
	if err != nil || !ran {
		t.Fatalf("run once: ran=%v err=%v", ran, err)
	}
	rows, err := jobRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{job.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("reload job: %v %v", rows, err)
	}
	return rows[0]
}

func TestReportExtractSucceeds(t *testing.T) {
	stub := &stubPipeline{res: &pipeline.Result{
		ApprovedParameterNames: []string{},
		PendingParameterNames:  []string{"Hemoglobin"},
	}}
	job := runJob(t, stub)
	if len(stub.calls) != 1 || stub.calls[0] != "ext-1" {
		t.Fatalf("pipeline calls: %v", stub.calls)
	}
	if job.Status != jobsdomain.StatusSucceeded || job.Attempts != 1 {
		t.Fatalf("job: status=%s attempts=%d", job.Status, job.Attempts)
	}
	if string(job.Result) == "" || string(job.Result) == "{}" {
		t.Fatalf("result not stored")
	}
}

func TestReportExtractRetryableFailureStaysRunnable(t *testing.T) {
	stub := &stubPipeline{err: &pipeline.Error{Kind: pipeline.KindUpstreamUnavailable, Op: "validate"}}
	job := runJob(t, stub)
	if job.Status != jobsdomain.StatusFailed {
		t.Fatalf("status: want failed got=%s", job.Status)
	}
	if job.Error == "" || job.LastErrorAt == nil {
		t.Fatalf("error bookkeeping missing: %+v", job)
	}
}

func TestReportExtractPermanentFailureIsDead(t *testing.T) {
	for _, kind := range []pipeline.Kind{pipeline.KindNotFound, pipeline.KindNoCandidates, pipeline.KindMalformedOracle} {
		t.Run(string(kind), func(t *testing.T) {
			job := runJob(t, &stubPipeline{err: &pipeline.Error{Kind: kind, Op: "x"}})
			if job.Status != jobsdomain.StatusDead {
				t.Fatalf("status: want dead got=%s", job.Status)
			}
		})
	}
}
