package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/govreposcrape/ingestor/internal/ingest"
)

var testItem = ingest.WorkItem{
	URL:      "https://github.com/alphagov/frontend",
	Owner:    "alphagov",
	Name:     "frontend",
	PushedAt: "2026-01-02T03:04:05Z",
}

func TestRunner_Extract_ReturnsStdout(t *testing.T) {
	t.Parallel()

	r := NewRunner(Config{
		Command: "sh",
		Args:    []string{"-c", "printf 'summary body'"},
	}, nil)

	got, err := r.Extract(context.Background(), testItem)
	require.NoError(t, err)
	require.Equal(t, []byte("summary body"), got.Content)
	require.Greater(t, got.Duration, time.Duration(0))
}

func TestRunner_Extract_SubstitutesURLPlaceholder(t *testing.T) {
	t.Parallel()

	r := NewRunner(Config{
		Command: "sh",
		Args:    []string{"-c", "printf '%s' {{url}}"},
	}, nil)

	got, err := r.Extract(context.Background(), testItem)
	require.NoError(t, err)
	require.Equal(t, testItem.URL, string(got.Content))
}

func TestRunner_Extract_NonzeroExit(t *testing.T) {
	t.Parallel()

	r := NewRunner(Config{
		Command: "sh",
		Args:    []string{"-c", "echo 'clone failed' >&2; exit 1"},
	}, nil)

	_, err := r.Extract(context.Background(), testItem)
	require.Error(t, err)

	var perr *ingest.ProcessingError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "alphagov/frontend", perr.Item)
	require.Contains(t, perr.Reason, "tool failed")
	require.Contains(t, perr.Reason, "clone failed")
}

func TestRunner_Extract_EmptyOutput(t *testing.T) {
	t.Parallel()

	r := NewRunner(Config{
		Command: "sh",
		Args:    []string{"-c", "exit 0"},
	}, nil)

	_, err := r.Extract(context.Background(), testItem)

	var perr *ingest.ProcessingError
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Reason, "no output")
}

func TestRunner_Extract_Timeout(t *testing.T) {
	t.Parallel()

	r := NewRunner(Config{
		Command: "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 50 * time.Millisecond,
	}, nil)

	start := time.Now()
	_, err := r.Extract(context.Background(), testItem)
	require.Less(t, time.Since(start), 2*time.Second)

	var perr *ingest.ProcessingError
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Reason, "timed out")
}

func TestRunner_Extract_DoesNotRetry(t *testing.T) {
	t.Parallel()

	counter := filepath.Join(t.TempDir(), "invocations")
	r := NewRunner(Config{
		Command: "sh",
		Args:    []string{"-c", fmt.Sprintf("echo run >> %s; exit 1", counter)},
	}, nil)

	_, err := r.Extract(context.Background(), testItem)
	require.Error(t, err)

	data, readErr := os.ReadFile(counter)
	require.NoError(t, readErr)
	require.Equal(t, 1, strings.Count(string(data), "run"))
}

func TestRunner_Extract_StderrTailBounded(t *testing.T) {
	t.Parallel()

	r := NewRunner(Config{
		Command: "sh",
		Args:    []string{"-c", "head -c 10000 /dev/zero | tr '\\0' 'x' >&2; exit 1"},
	}, nil)

	_, err := r.Extract(context.Background(), testItem)

	var perr *ingest.ProcessingError
	require.ErrorAs(t, err, &perr)
	require.LessOrEqual(t, len(perr.Reason), stderrTailLimit+64)
}
