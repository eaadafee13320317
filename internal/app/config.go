package app

import (
	"strings"
	"time"

	"github.com/yungbote/labreport-backend/internal/platform/envutil"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	CORSOrigins []string

	ScannerConfigPath string
	MaxPDFBytes       int64
	OracleTimeout     time.Duration
	PassTimeout       time.Duration

	MirrorKeyPrefix string
	NameLocks       bool
	NameLockTTL     time.Duration
	NameLockWait    time.Duration

	EventChannel string

	WorkerEnabled bool
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:              envutil.String("PORT", "8080", log),
		ServiceName:       envutil.String("OTEL_SERVICE_NAME", "labreport-backend", log),
		Environment:       envutil.String("APP_ENV", "development", log),
		CORSOrigins:       splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),
		ScannerConfigPath: envutil.String("SCANNER_CONFIG_PATH", "", log),
		MaxPDFBytes:       int64(envutil.Int("MAX_PDF_MB", 25, log)) << 20,
		OracleTimeout:     envutil.Duration("ORACLE_CALL_TIMEOUT_SECONDS", 2*time.Minute, time.Second, log),
		PassTimeout:       envutil.Duration("PIPELINE_PASS_TIMEOUT_SECONDS", 10*time.Minute, time.Second, log),
		MirrorKeyPrefix:   envutil.String("MIRROR_KEY_PREFIX", "labreport:", log),
		NameLocks:         envutil.Bool("RECONCILE_NAME_LOCKS", false, log),
		NameLockTTL:       envutil.Duration("RECONCILE_LOCK_TTL_SECONDS", 30*time.Second, time.Second, log),
		NameLockWait:      envutil.Duration("RECONCILE_LOCK_WAIT_SECONDS", 10*time.Second, time.Second, log),
		EventChannel:      envutil.String("REDIS_CHANNEL", "sse", log),
		WorkerEnabled:     envutil.Bool("WORKER_ENABLED", true, log),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
