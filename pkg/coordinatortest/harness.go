// Package coordinatortest provides a small in-process cluster harness so
// pkg/coordinator's tests (and any future package that drives a
// coordinator) can spin up a deterministic, fast cluster backed by
// t.TempDir() rather than a real deployment.
package coordinatortest

import (
	"context"
	"testing"

	"github.com/blockmesh/blockmesh/pkg/coordinator"

	// Every built-in allocation policy must be registered before New runs.
	_ "github.com/blockmesh/blockmesh/pkg/policy"
)

// Options overrides the harness's cluster defaults.
type Options struct {
	Nodes         int
	CapacityBytes int64
	Policy        string
}

// New spawns a cluster for the lifetime of the test, registering a cleanup
// that calls Exit(true) so temporary blobs are removed when t finishes.
func New(t *testing.T, opts Options) *coordinator.Coordinator {
	t.Helper()

	if opts.Nodes == 0 {
		opts.Nodes = 3
	}
	if opts.CapacityBytes == 0 {
		opts.CapacityBytes = 64 * 4096 // 64 blocks at the default block size
	}
	if opts.Policy == "" {
		opts.Policy = "roundrobin"
	}

	cfg := coordinator.Config{
		Nodes:         opts.Nodes,
		CapacityBytes: opts.CapacityBytes,
		Policy:        opts.Policy,
		BaseDir:       t.TempDir(),
	}

	c, err := coordinator.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("coordinatortest: New: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Exit(true)
	})
	return c
}
