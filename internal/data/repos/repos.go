package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/labreport-backend/internal/data/repos/jobs"
	"github.com/yungbote/labreport-backend/internal/data/repos/reports"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

type ReportRepo = reports.ReportRepo
type HealthParameterRepo = reports.HealthParameterRepo
type ParameterRefresh = reports.ParameterRefresh

type JobRunRepo = jobs.JobRunRepo

func NewReportRepo(db *gorm.DB, log *logger.Logger) ReportRepo {
	return reports.NewReportRepo(db, log)
}

func NewHealthParameterRepo(db *gorm.DB, log *logger.Logger) HealthParameterRepo {
	return reports.NewHealthParameterRepo(db, log)
}

func NewJobRunRepo(db *gorm.DB, log *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, log)
}
