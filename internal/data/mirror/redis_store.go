package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/labreport-backend/internal/platform/envutil"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

const scanBatch = 200

type RedisStore struct {
	rdb    goredis.UniversalClient
	prefix string
	log    *logger.Logger
}

func NewRedisStore(rdb goredis.UniversalClient, prefix string, baseLog *logger.Logger) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		log:    baseLog.With("store", "MirrorRedisStore"),
	}
}

// NewRedisClientFromEnv dials REDIS_ADDR and verifies the connection.
func NewRedisClientFromEnv(log *logger.Logger) (*goredis.Client, error) {
	addr := envutil.String("REDIS_ADDR", "", log)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.Secret("REDIS_PASSWORD", log),
		DB:          envutil.Int("REDIS_DB", 0, log),
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) key(reportID string) string {
	return s.prefix + "mirror:report:" + reportID
}

func (s *RedisStore) Upsert(ctx context.Context, snap Snapshot) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("mirror store not initialized")
	}
	if strings.TrimSpace(snap.ReportID) == "" {
		return fmt.Errorf("mirror upsert: missing report id")
	}
	if snap.Parameters == nil {
		snap.Parameters = []Entry{}
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(snap.ReportID), raw, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, reportID string) (*Snapshot, error) {
	if s == nil || s.rdb == nil {
		return nil, fmt.Errorf("mirror store not initialized")
	}
	raw, err := s.rdb.Get(ctx, s.key(reportID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode mirror %s: %w", reportID, err)
	}
	return &snap, nil
}

func (s *RedisStore) ListByStatus(ctx context.Context, status string) ([]StatusEntry, error) {
	if s == nil || s.rdb == nil {
		return nil, fmt.Errorf("mirror store not initialized")
	}
	out := []StatusEntry{}
	match := s.prefix + "mirror:report:*"
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		if len(keys) > 0 {
			vals, err := s.rdb.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, err
			}
			for i, v := range vals {
				raw, ok := v.(string)
				if !ok {
					continue
				}
				var snap Snapshot
				if err := json.Unmarshal([]byte(raw), &snap); err != nil {
					s.log.Warn("skipping undecodable mirror document", "key", keys[i], "error", err)
					continue
				}
				for _, e := range snap.Parameters {
					if e.Status == status {
						out = append(out, StatusEntry{ReportID: snap.ReportID, Entry: e})
					}
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}
