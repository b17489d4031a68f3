// Package extract runs the external summarizer tool over one work item at a
// time. The tool is opaque: it receives a repository URL and emits a markdown
// summary on stdout. Failures are reported, never retried, because reruns are
// expensive and a failing repository usually keeps failing.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/ingest"
)

// urlPlaceholder is replaced with the item's URL in configured args.
const urlPlaceholder = "{{url}}"

// stderrTailLimit bounds how much tool stderr is carried into error reasons.
const stderrTailLimit = 2048

// defaultTimeout is the hard per-item budget. A repository the tool cannot
// summarize inside it is treated as failed, not slow.
const defaultTimeout = 5 * time.Minute

// Config describes the summarizer invocation.
type Config struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// Runner executes the summarizer as a subprocess. It implements
// ingest.Extractor.
type Runner struct {
	cfg    Config
	logger *zap.Logger
}

// NewRunner constructs a Runner, applying the default timeout when none is
// configured.
func NewRunner(cfg Config, logger *zap.Logger) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Extract runs the tool against item's URL and returns the summary read from
// stdout. Every failure mode, nonzero exit, timeout, empty output, comes back
// as a *ingest.ProcessingError carrying the stderr tail.
func (r *Runner) Extract(ctx context.Context, item ingest.WorkItem) (ingest.Extraction, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.cfg.Command, r.renderArgs(item.URL)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		var reason string
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			reason = fmt.Sprintf("tool timed out after %s", r.cfg.Timeout)
		case errors.Is(runCtx.Err(), context.Canceled):
			reason = "tool interrupted"
		default:
			reason = "tool failed"
		}
		return ingest.Extraction{}, &ingest.ProcessingError{
			Item:   item.FullName(),
			Reason: withStderr(reason, stderr.Bytes()),
			Err:    err,
		}
	}
	if stdout.Len() == 0 {
		return ingest.Extraction{}, &ingest.ProcessingError{
			Item:   item.FullName(),
			Reason: withStderr("tool produced no output", stderr.Bytes()),
		}
	}

	r.logger.Debug("extraction complete",
		zap.String("item", item.FullName()),
		zap.Int("bytes", stdout.Len()),
		zap.Duration("duration", duration),
	)
	return ingest.Extraction{Content: stdout.Bytes(), Duration: duration}, nil
}

func (r *Runner) renderArgs(url string) []string {
	args := make([]string, len(r.cfg.Args))
	for i, a := range r.cfg.Args {
		args[i] = strings.ReplaceAll(a, urlPlaceholder, url)
	}
	return args
}

func withStderr(reason string, stderr []byte) string {
	tail := strings.TrimSpace(string(stderr))
	if tail == "" {
		return reason
	}
	if len(tail) > stderrTailLimit {
		tail = tail[len(tail)-stderrTailLimit:]
	}
	return reason + ": " + tail
}
