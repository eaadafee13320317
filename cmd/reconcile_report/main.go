// Command reconcile_report runs one extraction pass for a stored report and
// prints the approved and pending names as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/yungbote/labreport-backend/internal/app"
	"github.com/yungbote/labreport-backend/internal/data/mirror"
	"github.com/yungbote/labreport-backend/internal/pipeline"
)

func main() {
	reportID := flag.String("report", "", "external id of the report to reconcile")
	flag.Parse()
	if strings.TrimSpace(*reportID) == "" {
		fmt.Fprintln(os.Stderr, "usage: reconcile_report -report <external-id>")
		os.Exit(2)
	}

	// The job worker stays off; this process only runs the one pass.
	_ = os.Setenv("WORKER_ENABLED", "false")
	a, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.Services.Pipeline.ExtractAndReconcile(ctx, strings.TrimSpace(*reportID))
	if err != nil {
		a.Log.Error("Reconcile pass failed", "report_external_id", *reportID, "error", err)
		a.Close()
		os.Exit(1)
	}
	localMirror := mirror.IsLocal(a.Services.Mirror)
	if localMirror {
		a.Log.Warn("REDIS_ADDR not set; shared mirror was not updated", "report_external_id", *reportID)
	}
	res = withMirrorScope(res, localMirror)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		a.Log.Error("Encode result failed", "error", err)
	}
}

// withMirrorScope marks the result stale when the pass only reached an
// in-process mirror that dies with this command.
func withMirrorScope(res *pipeline.Result, localMirror bool) *pipeline.Result {
	if res != nil && localMirror {
		res.MirrorStale = true
	}
	return res
}
