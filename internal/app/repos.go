package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/labreport-backend/internal/data/repos"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

type Repos struct {
	Report          repos.ReportRepo
	HealthParameter repos.HealthParameterRepo
	JobRun          repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Report:          repos.NewReportRepo(db, log),
		HealthParameter: repos.NewHealthParameterRepo(db, log),
		JobRun:          repos.NewJobRunRepo(db, log),
	}
}
