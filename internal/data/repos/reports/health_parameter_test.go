package reports

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/labreport-backend/internal/data/repos/testutil"
	types "github.com/yungbote/labreport-backend/internal/domain"
	domain "github.com/yungbote/labreport-backend/internal/domain/reports"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
)

func newParam(reportID types.Report, name, key string) *types.HealthParameter {
	return &types.HealthParameter{
		ReportID:       reportID.ID,
		ParameterName:  name,
		NormalizedName: key,
		Value:          "140",
		Unit:           "mmol/L",
	}
}

func TestInsertPendingIfAbsentDedupsAcrossReports(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewHealthParameterRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	r1 := testutil.SeedReport(t, ctx, db, "client-1")
	r2 := testutil.SeedReport(t, ctx, db, "client-2")

	ok, err := repo.InsertPendingIfAbsent(dbc, newParam(*r1, "Serum Sodium", "serumsodium"))
	if err != nil || !ok {
		t.Fatalf("first insert: ok=%v err=%v", ok, err)
	}
	ok, err = repo.InsertPendingIfAbsent(dbc, newParam(*r2, "SERUM SODIUM", "serumsodium"))
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if ok {
		t.Fatalf("second insert for the same key should be a no-op")
	}

	rows, err := repo.ListByNormalizedNames(dbc, []string{"serumsodium"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ReportID != r1.ID || rows[0].Status != domain.ParameterStatusPending {
		t.Fatalf("rows: %+v", rows)
	}
}

func TestActiveIndexIgnoresRejectedRows(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewHealthParameterRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	r1 := testutil.SeedReport(t, ctx, db, "client-1")
	r2 := testutil.SeedReport(t, ctx, db, "client-2")
	testutil.SeedParameter(t, ctx, db, r1.ID, "Serum Sodium", domain.ParameterStatusRejected)

	ok, err := repo.InsertPendingIfAbsent(dbc, newParam(*r2, "Serum Sodium", "serumsodium"))
	if err != nil || !ok {
		t.Fatalf("insert beside rejected row: ok=%v err=%v", ok, err)
	}

	// A second active row must be refused by the store itself.
	dup := newParam(*r1, "Serum Sodium", "serumsodium")
	dup.Status = domain.ParameterStatusApproved
	err = db.WithContext(ctx).Create(dup).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("want ErrDuplicatedKey, got %v", err)
	}
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewHealthParameterRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	r1 := testutil.SeedReport(t, ctx, db, "client-1")
	r2 := testutil.SeedReport(t, ctx, db, "client-2")
	rej := testutil.SeedParameter(t, ctx, db, r1.ID, "Hemoglobin", domain.ParameterStatusRejected)

	ok, err := repo.Reopen(dbc, rej.ID, r2.ID, ParameterRefresh{ParameterName: "Haemoglobin", Value: "13.5", Unit: "g/dL"})
	if err != nil || !ok {
		t.Fatalf("reopen: ok=%v err=%v", ok, err)
	}
	got, err := repo.GetByID(dbc, rej.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.ParameterStatusPending || got.ReportID != r2.ID || got.Value != "13.5" || got.ParameterName != "Haemoglobin" {
		t.Fatalf("reopened row: %+v", got)
	}

	// Already pending: nothing to reopen.
	ok, err = repo.Reopen(dbc, rej.ID, r1.ID, ParameterRefresh{})
	if err != nil || ok {
		t.Fatalf("second reopen: ok=%v err=%v", ok, err)
	}
}

func TestReopenRefusedWhileKeyActiveElsewhere(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewHealthParameterRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	r1 := testutil.SeedReport(t, ctx, db, "client-1")
	r2 := testutil.SeedReport(t, ctx, db, "client-2")
	rej := testutil.SeedParameter(t, ctx, db, r1.ID, "Hemoglobin", domain.ParameterStatusRejected)
	testutil.SeedParameter(t, ctx, db, r2.ID, "Hemoglobin", domain.ParameterStatusApproved)

	ok, err := repo.Reopen(dbc, rej.ID, r1.ID, ParameterRefresh{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if ok {
		t.Fatalf("reopen must not create a second active row")
	}
}

func TestTransitionStatusOnlyFromExpected(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewHealthParameterRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	r := testutil.SeedReport(t, ctx, db, "client-1")
	p := testutil.SeedParameter(t, ctx, db, r.ID, "Hemoglobin", domain.ParameterStatusPending)

	ok, err := repo.TransitionStatus(dbc, p.ID, domain.ParameterStatusPending, map[string]interface{}{"status": domain.ParameterStatusApproved})
	if err != nil || !ok {
		t.Fatalf("pending->approved: ok=%v err=%v", ok, err)
	}
	ok, err = repo.TransitionStatus(dbc, p.ID, domain.ParameterStatusPending, map[string]interface{}{"status": domain.ParameterStatusRejected})
	if err != nil || ok {
		t.Fatalf("approved row moved again: ok=%v err=%v", ok, err)
	}

	list, err := repo.ListByStatus(dbc, []string{domain.ParameterStatusApproved}, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("list approved: %v %v", list, err)
	}
}

func TestGetByIDMissing(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewHealthParameterRepo(db, testutil.Logger(t))
	r := testutil.SeedReport(t, ctx, db, "client-1")
	got, err := repo.GetByID(dbctx.Context{Ctx: ctx}, r.ID)
	if err != nil || got != nil {
		t.Fatalf("want (nil, nil), got (%v, %v)", got, err)
	}
}
