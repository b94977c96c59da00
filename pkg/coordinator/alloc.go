package coordinator

import (
	"github.com/blockmesh/blockmesh/pkg/metrics"
	"github.com/blockmesh/blockmesh/pkg/policy"
)

// allocBlock reserves a global block ID and a worker to host it, purely in
// coordinator-side bookkeeping. It does not itself tell the worker: the
// caller issues ALLOC_BLOCK once it intends to persist the reservation,
// and must roll back via the returned (gid, worker) if that request fails.
func (c *Coordinator) allocBlock(expectedBlocks int64) (gid int64, w int, err error) {
	gid, err = c.bm.Alloc()
	if err != nil {
		metrics.IncAllocFailures(c.metrics)
		return 0, 0, ErrNoSpace
	}
	c.freeBlocks--

	idx, err := c.allocPolicy.Allocate(policy.Context{ExpectedBlocks: expectedBlocks})
	if err != nil {
		c.bm.Free(gid)
		c.freeBlocks++
		metrics.IncAllocFailures(c.metrics)
		return 0, 0, ErrNoSpace
	}

	c.workers[idx].blocksFree--
	c.blockOwner[gid] = int32(idx)
	metrics.SetBlocksFree(c.metrics, c.workers[idx].id, c.workers[idx].blocksFree)
	metrics.SetTotalBlocksFree(c.metrics, c.freeBlocks)
	return gid, idx, nil
}

// undoAllocBlock reverses a successful allocBlock call whose subsequent
// worker-side commit (ALLOC_BLOCK) failed. It only ever touches coordinator
// bookkeeping — the worker either never received the request or answered
// it with a non-success status, and no FREE_BLOCK is sent to it.
func (c *Coordinator) undoAllocBlock(gid int64, w int) {
	c.bm.Free(gid)
	c.freeBlocks++
	c.workers[w].blocksFree++
	c.blockOwner[gid] = -1
	metrics.SetBlocksFree(c.metrics, c.workers[w].id, c.workers[w].blocksFree)
	metrics.SetTotalBlocksFree(c.metrics, c.freeBlocks)
}

// deallocBlock frees a block that the worker has already committed: it
// updates the bitmap and free counters and tells the owning worker to
// destroy the blob.
func (c *Coordinator) deallocBlock(gid int64) error {
	w := int(c.blockOwner[gid])
	if err := c.rpcFreeBlock(c.workers[w], gid); err != nil {
		return c.wrapFail("dealloc_block", err, "global_block", gid)
	}
	c.bm.Free(gid)
	c.freeBlocks++
	c.workers[w].blocksFree++
	c.blockOwner[gid] = -1
	metrics.IncDeallocs(c.metrics)
	metrics.SetBlocksFree(c.metrics, c.workers[w].id, c.workers[w].blocksFree)
	metrics.SetTotalBlocksFree(c.metrics, c.freeBlocks)
	return nil
}

// commitNewBlock allocates a block and durably persists it on the owning
// worker via ALLOC_BLOCK, rolling the allocation back on any failure. On
// success it also records the (worker, gid, idx) mapping in file.
func (c *Coordinator) commitNewBlock(file *File, idx int64) (gid int64, w int, err error) {
	gid, w, err = c.allocBlock(file.L)
	if err != nil {
		return 0, 0, err
	}
	if err := c.rpcAllocBlock(c.workers[w], gid); err != nil {
		c.undoAllocBlock(gid, w)
		return 0, 0, c.wrapFail("alloc_block", err, "global_block", gid, "worker", w)
	}
	file.addEntry(w, gid, idx)
	return gid, w, nil
}
