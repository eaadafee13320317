package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/labreport-backend/internal/domain"
	"github.com/yungbote/labreport-backend/internal/domain/reports"
	"github.com/yungbote/labreport-backend/internal/normalization"
)

func SeedReport(tb testing.TB, ctx context.Context, tx *gorm.DB, clientID string) *types.Report {
	tb.Helper()
	ext := uuid.NewString()
	r := &types.Report{
		ExternalID:       ext,
		ClientID:         clientID,
		ReportName:       "report",
		ContentType:      "application/pdf",
		StorageKey:       fmt.Sprintf("%s/%s/%s/report.pdf", clientID, time.Now().UTC().Format("20060102150405"), ext),
		ProcessingStatus: reports.ProcessingStatusPending,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed report: %v", err)
	}
	return r
}

func SeedParameter(tb testing.TB, ctx context.Context, tx *gorm.DB, reportID uuid.UUID, name, status string) *types.HealthParameter {
	tb.Helper()
	p := &types.HealthParameter{
		ReportID:       reportID,
		ParameterName:  name,
		NormalizedName: normalization.NormalizeParameterName(name),
		Value:          "1",
		Unit:           "mg/dL",
		Status:         status,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed parameter: %v", err)
	}
	return p
}
