package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/labreport-backend/internal/data/mirror"
	"github.com/yungbote/labreport-backend/internal/ingestion/extractor"
	"github.com/yungbote/labreport-backend/internal/ingestion/oracle"
	"github.com/yungbote/labreport-backend/internal/ingestion/scanner"
	"github.com/yungbote/labreport-backend/internal/jobs/report_extract"
	jobruntime "github.com/yungbote/labreport-backend/internal/jobs/runtime"
	"github.com/yungbote/labreport-backend/internal/jobs/worker"
	"github.com/yungbote/labreport-backend/internal/mirrorsync"
	"github.com/yungbote/labreport-backend/internal/pipeline"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
	"github.com/yungbote/labreport-backend/internal/realtime"
	"github.com/yungbote/labreport-backend/internal/realtime/bus"
	"github.com/yungbote/labreport-backend/internal/reconcile"
	"github.com/yungbote/labreport-backend/internal/services"
)

type Services struct {
	Jobs       services.JobService
	Reports    services.ReportService
	Parameters services.ParameterService

	Mirror    mirror.Store
	Engine    *reconcile.Engine
	Projector *mirrorsync.Projector
	Pipeline  *pipeline.Pipeline

	EventHub *realtime.Hub
	Events   *realtime.Publisher

	JobRegistry *jobruntime.Registry
	JobWorker   *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	var store mirror.Store
	var locker reconcile.NameLocker = reconcile.NoopLocker{}
	var eventBus realtime.Bus
	if clients.Redis != nil {
		store = mirror.NewRedisStore(clients.Redis, cfg.MirrorKeyPrefix, log)
		eventBus = bus.NewRedisBus(clients.Redis, cfg.EventChannel, log)
		if cfg.NameLocks {
			locker = reconcile.NewRedisNameLocker(clients.Redis, cfg.MirrorKeyPrefix, cfg.NameLockTTL, cfg.NameLockWait)
		}
	} else {
		log.Warn("REDIS_ADDR not set; mirror kept in process memory")
		store = mirror.NewMemoryStore()
	}

	scanCfg, err := scanner.LoadConfig(cfg.ScannerConfigPath)
	if err != nil {
		return Services{}, fmt.Errorf("load scanner config: %w", err)
	}

	hub := realtime.NewHub(log)
	events := realtime.NewPublisher(hub, eventBus, log)

	engine := reconcile.NewEngine(db, reposet.HealthParameter, locker, reconcile.PolicyFromEnv(log), log)
	projector := mirrorsync.NewProjector(store, mirrorsync.ConfigFromEnv(log), log)
	pipe := pipeline.New(pipeline.Deps{
		Reports:     reposet.Report,
		Blobs:       clients.Bucket,
		Extractor:   extractor.NewPDFTextExtractor(log, cfg.MaxPDFBytes),
		Scanner:     scanner.New(scanCfg),
		Validator:   oracle.NewOpenAIValidator(clients.OpenAI, log, cfg.OracleTimeout),
		Reconciler:  engine,
		Projector:   projector,
		Notifier:    events,
		PassTimeout: cfg.PassTimeout,
	}, log)

	jobSvc := services.NewJobService(db, log, reposet.JobRun)
	reportSvc := services.NewReportService(db, log, clients.Bucket, reposet.Report, reposet.HealthParameter, jobSvc)
	paramSvc := services.NewParameterService(db, log, reposet.HealthParameter, store)

	registry := jobruntime.NewRegistry()
	if err := registry.Register(report_extract.New(log, pipe)); err != nil {
		return Services{}, fmt.Errorf("register report_extract: %w", err)
	}
	var jobWorker *worker.Worker
	if cfg.WorkerEnabled {
		jobWorker = worker.NewWorker(log, reposet.JobRun, registry, worker.ConfigFromEnv(log))
	}

	return Services{
		Jobs:        jobSvc,
		Reports:     reportSvc,
		Parameters:  paramSvc,
		Mirror:      store,
		Engine:      engine,
		Projector:   projector,
		Pipeline:    pipe,
		EventHub:    hub,
		Events:      events,
		JobRegistry: registry,
		JobWorker:   jobWorker,
	}, nil
}
