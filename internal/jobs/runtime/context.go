package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/labreport-backend/internal/data/repos"
	types "github.com/yungbote/labreport-backend/internal/domain"
	jobsdomain "github.com/yungbote/labreport-backend/internal/domain/jobs"
	"github.com/yungbote/labreport-backend/internal/platform/ctxutil"
	"github.com/yungbote/labreport-backend/internal/platform/dbctx"
)

/*
Context is the execution handle for one claimed job run. Handlers never
write job_run themselves; they finish through Succeed or Fail.
*/
type Context struct {
	Ctx     context.Context
	Job     *types.JobRun
	Repo    repos.JobRunRepo
	payload map[string]any
}

func NewContext(ctx context.Context, job *types.JobRun, repo repos.JobRunRepo) *Context {
	c := &Context{Ctx: ctx, Job: job, Repo: repo}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

// decodePayload leaves an empty map behind on malformed JSON; handlers
// validate their own required fields.
func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	if c.Ctx == nil {
		c.Ctx = context.Background()
	}
	payload := c.Payload()
	td := &ctxutil.TraceData{}
	if v, ok := payload["trace_id"]; ok && v != nil {
		td.TraceID = strings.TrimSpace(fmt.Sprint(v))
	}
	if v, ok := payload["request_id"]; ok && v != nil {
		td.RequestID = strings.TrimSpace(fmt.Sprint(v))
	}
	if c.Job != nil {
		td.ClientID = c.Job.OwnerID
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, td)
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadString(key string) (string, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return "", false
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	return s, s != ""
}

func (c *Context) bgCtx() context.Context {
	// Terminal writes must land even when the run context was cancelled.
	return context.WithoutCancel(c.Ctx)
}

func (c *Context) Stage(stage string) {
	if c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	now := time.Now().UTC()
	_ = c.Repo.UpdateFields(dbctx.Context{Ctx: c.bgCtx()}, c.Job.ID, map[string]interface{}{
		"stage":        stage,
		"heartbeat_at": now,
	})
	c.Job.Stage = stage
	c.Job.HeartbeatAt = &now
}

/*
Fail records err on the run. A retryable failure leaves the run in
"failed" so the worker picks it up again after its retry delay while
attempts remain; otherwise the run goes to "dead".
*/
func (c *Context) Fail(stage string, err error, retryable bool) {
	if c.Job == nil {
		return
	}
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	status := jobsdomain.StatusFailed
	if !retryable || c.Job.Attempts >= c.Job.MaxAttempts {
		status = jobsdomain.StatusDead
	}
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		_ = c.Repo.UpdateFields(dbctx.Context{Ctx: c.bgCtx()}, c.Job.ID, map[string]interface{}{
			"status":        status,
			"stage":         stage,
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
		})
	}
	c.Job.Status = status
	c.Job.Stage = stage
	c.Job.Error = msg
	c.Job.LastErrorAt = &now
	c.Job.LockedAt = nil
}

func (c *Context) Succeed(finalStage string, result any) {
	if c.Job == nil {
		return
	}
	now := time.Now().UTC()
	res := datatypes.JSON([]byte(`{}`))
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = datatypes.JSON(b)
		}
	}
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		_ = c.Repo.UpdateFields(dbctx.Context{Ctx: c.bgCtx()}, c.Job.ID, map[string]interface{}{
			"status":       jobsdomain.StatusSucceeded,
			"stage":        finalStage,
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
		})
	}
	c.Job.Status = jobsdomain.StatusSucceeded
	c.Job.Stage = finalStage
	c.Job.Error = ""
	c.Job.Result = res
	c.Job.LockedAt = nil
	c.Job.HeartbeatAt = &now
}
