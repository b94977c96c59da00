// Package coordinator implements the metadata node: it owns the global
// block bitmap, the block-to-worker map, the file list, and the per-worker
// free-block accounting, and decomposes file-level operations into
// per-block requests routed to workers over framed IPC channels.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blockmesh/blockmesh/internal/logger"
	"github.com/blockmesh/blockmesh/pkg/bitmap"
	"github.com/blockmesh/blockmesh/pkg/ipc"
	"github.com/blockmesh/blockmesh/pkg/metrics"
	"github.com/blockmesh/blockmesh/pkg/policy"
	"github.com/blockmesh/blockmesh/pkg/protocol"
	"github.com/blockmesh/blockmesh/pkg/worker"
)

// Config configures a cluster at Init time.
type Config struct {
	// Nodes is the number of workers to spawn.
	Nodes int

	// CapacityBytes is the total address-space capacity across all
	// workers; B = ceil(CapacityBytes/BlockSize) blocks are carved up
	// between them.
	CapacityBytes int64

	// Policy is the name of the registered allocation policy to use.
	Policy string

	// BaseDir is the filesystem root under which each worker creates its
	// own durable directory.
	BaseDir string
}

// workerHandle is the coordinator's view of one spawned worker: its
// channel, its identity, and its live free-block count.
type workerHandle struct {
	id            int32
	ch            *ipc.Channel
	blocksPerNode int64
	blocksFree    int64
	dead          bool
	done          chan error
}

// Coordinator is the metadata node. At most one logical operation is
// active at a time; Coordinator.mu enforces this directly rather than
// leaving it to caller discipline.
type Coordinator struct {
	mu sync.Mutex

	blockSize   int64
	totalBlocks int64
	freeBlocks  int64

	bm          *bitmap.Bitmap
	blockOwner  []int32 // block ID -> worker index, -1 if unallocated
	workers     []*workerHandle
	files       []*File
	allocPolicy policy.Policy

	metrics metrics.CoordinatorMetrics
	log     *slog.Logger
}

// New spawns a cluster of Config.Nodes workers, hands each its share of the
// address space via INIT, and initializes the named allocation policy.
// Any failure during spawn or INIT aborts startup; partially spawned
// workers are torn down before the error is returned. m may be nil, in
// which case every metrics call below is a no-op.
func New(ctx context.Context, cfg Config, m metrics.CoordinatorMetrics) (*Coordinator, error) {
	if cfg.Nodes <= 0 {
		return nil, fmt.Errorf("coordinator: nodes must be > 0")
	}

	blockSize := int64(protocol.BlockSize)
	total := (cfg.CapacityBytes + blockSize - 1) / blockSize

	c := &Coordinator{
		blockSize:   blockSize,
		totalBlocks: total,
		freeBlocks:  total,
		bm:          bitmap.New(total),
		blockOwner:  make([]int32, total),
		metrics:     m,
		log:         logger.With(logger.KeyComponent, "Coordinator"),
	}
	for i := range c.blockOwner {
		c.blockOwner[i] = -1
	}

	if err := c.spawnWorkers(ctx, cfg); err != nil {
		return nil, err
	}

	p, err := policy.New(cfg.Policy)
	if err != nil {
		c.teardownWorkers(true)
		return nil, fmt.Errorf("coordinator: %w", err)
	}
	if err := p.Init(c); err != nil {
		c.teardownWorkers(true)
		return nil, fmt.Errorf("coordinator: init policy %q: %w", cfg.Policy, err)
	}
	c.allocPolicy = p

	metrics.SetTotalBlocksFree(c.metrics, c.freeBlocks)
	for _, h := range c.workers {
		metrics.SetBlocksFree(c.metrics, h.id, h.blocksFree)
	}

	c.log.Info("coordinator initialized",
		logger.KeyTotalBlocks, total,
		"nodes", cfg.Nodes,
		"policy", cfg.Policy)
	return c, nil
}

func (c *Coordinator) spawnWorkers(ctx context.Context, cfg Config) error {
	n := cfg.Nodes
	base := c.totalBlocks / int64(n)
	rem := c.totalBlocks % int64(n)

	c.workers = make([]*workerHandle, 0, n)
	for i := 0; i < n; i++ {
		blocksForNode := base
		if int64(i) < rem {
			blocksForNode++
		}

		coordSide, workerSide := ipc.NewPipe()
		w := worker.New(workerSide, cfg.BaseDir)

		done := make(chan error, 1)
		go func() {
			done <- w.Serve(ctx)
		}()

		handle := &workerHandle{
			id:            int32(i),
			ch:            coordSide,
			blocksPerNode: blocksForNode,
			blocksFree:    blocksForNode,
			done:          done,
		}
		c.workers = append(c.workers, handle)

		if err := c.initWorker(handle); err != nil {
			c.teardownWorkers(true)
			return fmt.Errorf("coordinator: spawn worker %d: %w", i, err)
		}
	}
	return nil
}

func (c *Coordinator) initWorker(h *workerHandle) error {
	req := protocol.InitRequest{NodeID: h.id, Capacity: uint64(h.blocksPerNode * c.blockSize)}
	if err := h.ch.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdInit, PayloadSize: 12}); err != nil {
		return err
	}
	if err := req.Encode(h.ch); err != nil {
		return err
	}
	resp, err := h.ch.RecvResponse()
	if err != nil {
		return err
	}
	if resp.Status != protocol.StatusSuccess {
		return fmt.Errorf("worker %d rejected INIT: %s", h.id, resp.Status)
	}
	return nil
}

// teardownWorkers closes every channel without the EXIT handshake; used
// only when startup itself fails partway through.
func (c *Coordinator) teardownWorkers(cleanup bool) {
	for _, h := range c.workers {
		if cleanup {
			_ = h.ch.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdExit, PayloadSize: 4})
			_ = protocol.ExitRequest{Cleanup: true}.Encode(h.ch)
		}
		_ = h.ch.Close()
		<-h.done
	}
}
