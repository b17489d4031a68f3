package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/config"
	"github.com/govreposcrape/ingestor/internal/ingest"
	"github.com/govreposcrape/ingestor/internal/kv"
	memorypublisher "github.com/govreposcrape/ingestor/internal/publisher/memory"
	memorystorage "github.com/govreposcrape/ingestor/internal/storage/memory"
)

// stubApp satisfies the App interface without touching any real backend.
type stubApp struct {
	cfg        config.Config
	blobCalls  int
	kvCalls    int
	closeCalls int
}

func (s *stubApp) Close(context.Context) { s.closeCalls++ }

func (s *stubApp) Config() config.Config { return s.cfg }

func (s *stubApp) Logger() *zap.Logger { return zap.NewNop() }

func (s *stubApp) BlobStore(context.Context) (ingest.BlobStore, error) {
	s.blobCalls++
	return memorystorage.NewBlobStore(), nil
}

func (s *stubApp) Publisher(context.Context) (ingest.Publisher, error) {
	return memorypublisher.New(), nil
}

func (s *stubApp) KVStore(context.Context) (kv.Store, error) {
	s.kvCalls++
	return kv.NewMemoryStore(), nil
}

// withStubApp swaps the application factory for the test's stub and restores
// it afterwards.
func withStubApp(t *testing.T, stub *stubApp) {
	t.Helper()
	orig := newApp
	newApp = func(context.Context) (App, error) { return stub, nil }
	t.Cleanup(func() { newApp = orig })
}

func execute(root *cobra.Command, args ...string) error {
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	return root.Execute()
}

func TestIngest_BadPartitionFailsBeforeBackends(t *testing.T) {
	stub := &stubApp{}
	withStubApp(t, stub)

	err := execute(newRootCmd(), "ingest", "--batch-size", "2", "--offset", "5")
	require.Error(t, err)

	var verr *ingest.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Zero(t, stub.blobCalls)
}

func TestIngest_FactoryErrorSurfaces(t *testing.T) {
	orig := newApp
	newApp = func(context.Context) (App, error) {
		return nil, context.DeadlineExceeded
	}
	t.Cleanup(func() { newApp = orig })

	err := execute(newRootCmd(), "ingest")
	require.ErrorContains(t, err, "failed to initialize application services")
}

func TestResolveApp_MissingFromContext(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.ErrorContains(t, err, "application services not initialized")
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	require.True(t, names["ingest"])
	require.True(t, names["cacheproxy"])
}
