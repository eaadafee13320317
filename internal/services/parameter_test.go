package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/labreport-backend/internal/data/mirror"
	"github.com/yungbote/labreport-backend/internal/data/repos"
	"github.com/yungbote/labreport-backend/internal/data/repos/testutil"
	"github.com/yungbote/labreport-backend/internal/domain/reports"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
	perrors "github.com/yungbote/labreport-backend/internal/platform/errors"
)

func TestParameterReviewTransitions(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewParameterService(db, log, repos.NewHealthParameterRepo(db, log), nil)
	dbc := dbctx.Context{Ctx: ctx}

	r := testutil.SeedReport(t, ctx, db, "client-1")
	hb := testutil.SeedParameter(t, ctx, db, r.ID, "Hemoglobin", reports.ParameterStatusPending)
	na := testutil.SeedParameter(t, ctx, db, r.ID, "Serum Sodium", reports.ParameterStatusPending)

	approved, err := svc.Approve(dbc, hb.ID, "admin-1", "looks right")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != reports.ParameterStatusApproved || approved.ApprovedBy == nil || *approved.ApprovedBy != "admin-1" {
		t.Fatalf("approved record: %+v", approved)
	}
	if approved.Remarks == nil || *approved.Remarks != "looks right" {
		t.Fatalf("remarks not stored")
	}

	if _, err := svc.Reject(dbc, hb.ID, "admin-2", ""); !errors.Is(err, perrors.ErrInvalidTransition) {
		t.Fatalf("approved is terminal, got %v", err)
	}

	rejected, err := svc.Reject(dbc, na.ID, "admin-1", "")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != reports.ParameterStatusRejected || rejected.Remarks != nil {
		t.Fatalf("rejected record: %+v", rejected)
	}
	if _, err := svc.Approve(dbc, na.ID, "admin-1", ""); !errors.Is(err, perrors.ErrInvalidTransition) {
		t.Fatalf("rejected cannot be approved directly, got %v", err)
	}

	if _, err := svc.Approve(dbc, uuid.New(), "admin-1", ""); !errors.Is(err, perrors.ErrNotFound) {
		t.Fatalf("unknown id: got %v", err)
	}
	if _, err := svc.Approve(dbc, hb.ID, " ", ""); !errors.Is(err, perrors.ErrInvalidArgument) {
		t.Fatalf("missing approver: got %v", err)
	}
}

func TestParameterMapToExisting(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	paramRepo := repos.NewHealthParameterRepo(db, log)
	svc := NewParameterService(db, log, paramRepo, nil)
	dbc := dbctx.Context{Ctx: ctx}

	r := testutil.SeedReport(t, ctx, db, "client-1")
	p := testutil.SeedParameter(t, ctx, db, r.ID, "Hb", reports.ParameterStatusPending)

	if _, err := svc.MapToExisting(dbc, p.ID, "Hemoglobin"); err != nil {
		t.Fatalf("map: %v", err)
	}
	got, err := paramRepo.GetByID(dbc, p.ID)
	if err != nil || got.MapToExisting == nil || *got.MapToExisting != "Hemoglobin" {
		t.Fatalf("mapping not stored: %+v %v", got, err)
	}
	if got.Status != reports.ParameterStatusPending {
		t.Fatalf("mapping changed status to %s", got.Status)
	}
	if _, err := svc.MapToExisting(dbc, p.ID, ""); !errors.Is(err, perrors.ErrInvalidArgument) {
		t.Fatalf("empty target: got %v", err)
	}
}

func TestListPendingMirrorReadsMirror(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	store := mirror.NewMemoryStore()
	_ = store.Upsert(ctx, mirror.Snapshot{ReportID: "ext-1", Parameters: []mirror.Entry{
		{ParameterName: "Hemoglobin", Status: "pending"},
		{ParameterName: "Glucose", Status: "approved"},
	}})
	svc := NewParameterService(db, log, repos.NewHealthParameterRepo(db, log), store)

	got, err := svc.ListPendingMirror(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ReportID != "ext-1" || got[0].ParameterName != "Hemoglobin" {
		t.Fatalf("unexpected listing: %+v", got)
	}
	if _, err := svc.ListByStatus(dbctx.Context{Ctx: ctx}, []string{"bogus"}, 10); !errors.Is(err, perrors.ErrInvalidArgument) {
		t.Fatalf("bogus status: got %v", err)
	}
}
