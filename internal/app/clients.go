package app

import (
	"fmt"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/labreport-backend/internal/data/mirror"
	"github.com/yungbote/labreport-backend/internal/platform/gcp"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
	"github.com/yungbote/labreport-backend/internal/platform/openai"
)

type Clients struct {
	Redis  *goredis.Client
	Bucket gcp.BucketService
	OpenAI openai.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis is optional; without it the mirror lives in process memory and
	// name locks fall back to the store's unique index alone.
	var rdb *goredis.Client
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		c, err := mirror.NewRedisClientFromEnv(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis client: %w", err)
		}
		rdb = c
	}

	// Gcs
	bucket, err := resolveBucketService(log)
	if err != nil {
		closeRedis(rdb)
		return Clients{}, err
	}

	// Openai
	oa, err := openai.NewClient(log, openai.ConfigFromEnv(log))
	if err != nil {
		closeRedis(rdb)
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	return Clients{
		Redis:  rdb,
		Bucket: bucket,
		OpenAI: oa,
	}, nil
}

func closeRedis(rdb *goredis.Client) {
	if rdb != nil {
		_ = rdb.Close()
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	closeRedis(c.Redis)
}
