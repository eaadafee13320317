package domain

import (
	"github.com/yungbote/labreport-backend/internal/domain/jobs"
	"github.com/yungbote/labreport-backend/internal/domain/reports"
)

type (
	Report                = reports.Report
	HealthParameter       = reports.HealthParameter
	ExtractionDiagnostics = reports.ExtractionDiagnostics
	JobRun                = jobs.JobRun
)
