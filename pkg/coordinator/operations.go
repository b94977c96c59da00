package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/blockmesh/blockmesh/pkg/metrics"
)

// validFile returns the file at fid, or ErrFail if fid is out of range.
// An unknown fid is a caller bug rather than an expected runtime
// condition, but we still surface it as a plain error instead of panicking.
func (c *Coordinator) validFile(fid int64) (*File, error) {
	if fid < 0 || fid >= int64(len(c.files)) || c.files[fid] == nil {
		return nil, fmt.Errorf("%w: unknown file id %d", ErrFail, fid)
	}
	return c.files[fid], nil
}

// CreateFile registers a new file of the given byte size and returns its
// file ID. No blocks are allocated: the mapping starts entirely sparse and
// blocks are created lazily on first write.
func (c *Coordinator) CreateFile(ctx context.Context, name string, size int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func(start time.Time) { metrics.ObserveOperation(c.metrics, "create_file", time.Since(start)) }(time.Now())

	l := (size + c.blockSize - 1) / c.blockSize
	f := newFile(name, l, len(c.workers))
	c.files = append(c.files, f)
	fid := int64(len(c.files) - 1)

	c.log.Info("file created", "file_id", fid, "name", name, "logical_blocks", l)
	return fid, nil
}

// FindFile looks up a file by exact name. Names are not required to be
// unique; the first match (earliest created, lowest ID) wins.
func (c *Coordinator) FindFile(ctx context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func(start time.Time) { metrics.ObserveOperation(c.metrics, "find_file", time.Since(start)) }(time.Now())

	for fid, f := range c.files {
		if f != nil && f.Name == name {
			return int64(fid), nil
		}
	}
	return 0, ErrFileNotFound
}

// TruncateFile changes a file's logical length. Growing only changes L;
// shrinking frees every block whose file-relative index falls at or past
// the new length. Each entry leaves the file's mapping as soon as its block
// is freed, so the mapping never names a freed block; L changes only once
// every dropped block has been freed. If a free fails partway, the error is
// returned with L unchanged: blocks freed so far are gone from both the
// mapping and the bitmap, and the remaining ones stay mapped and allocated.
func (c *Coordinator) TruncateFile(ctx context.Context, fid int64, newSize int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func(start time.Time) { metrics.ObserveOperation(c.metrics, "truncate_file", time.Since(start)) }(time.Now())

	f, err := c.validFile(fid)
	if err != nil {
		return err
	}

	newL := (newSize + c.blockSize - 1) / c.blockSize
	if newL >= f.L {
		f.L = newL
		return nil
	}

	kept, dropped := f.partitionBelow(newL)
	for w, entries := range dropped {
		for _, e := range entries {
			if err := c.deallocBlock(e.GlobalID); err != nil {
				return err
			}
			f.removeEntry(w, e.GlobalID)
		}
	}
	f.applyKept(kept)
	f.L = newL
	return nil
}

// ReadBlock returns the contents of file-relative block i. A sparse (never
// written) index returns a zero-filled block rather than an error.
func (c *Coordinator) ReadBlock(ctx context.Context, fid int64, i int64) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func(start time.Time) { metrics.ObserveOperation(c.metrics, "read_block", time.Since(start)) }(time.Now())

	f, err := c.validFile(fid)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= f.L {
		return nil, ErrInvalidBlock
	}

	w, gid, found := f.find(i)
	if !found {
		return make([]byte, c.blockSize), nil
	}
	data, err := c.rpcReadBlock(c.workers[w], gid)
	if err != nil {
		return nil, c.wrapFail("read_block", err, "file_id", fid, "index", i)
	}
	return data, nil
}

// WriteBlock writes buf, which must be exactly BlockSize bytes, to
// file-relative block i. The first write to a sparse index allocates a new
// global block; allocation failure leaves the file unchanged.
func (c *Coordinator) WriteBlock(ctx context.Context, fid int64, i int64, buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func(start time.Time) { metrics.ObserveOperation(c.metrics, "write_block", time.Since(start)) }(time.Now())

	f, err := c.validFile(fid)
	if err != nil {
		return err
	}
	if i < 0 || i >= f.L {
		return ErrInvalidBlock
	}
	if int64(len(buf)) != c.blockSize {
		return fmt.Errorf("%w: buffer is %d bytes, want %d", ErrInvalidBlock, len(buf), c.blockSize)
	}

	w, gid, found := f.find(i)
	if !found {
		gid, w, err = c.commitNewBlock(f, i)
		if err != nil {
			return err
		}
	}
	if err := c.rpcWriteBlock(c.workers[w], gid, buf); err != nil {
		return c.wrapFail("write_block", err, "file_id", fid, "index", i)
	}
	return nil
}

// ReadFile returns the full logical contents of a file as one contiguous
// buffer, gathering each worker's blocks with a single BATCH_READ.
func (c *Coordinator) ReadFile(ctx context.Context, fid int64) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func(start time.Time) { metrics.ObserveOperation(c.metrics, "read_file", time.Since(start)) }(time.Now())

	f, err := c.validFile(fid)
	if err != nil {
		return nil, err
	}

	out := make([]byte, f.L*c.blockSize)
	for w, entries := range f.nodes {
		if len(entries) == 0 {
			continue
		}
		gids := make([]int64, len(entries))
		for k, e := range entries {
			gids[k] = e.GlobalID
		}
		data, err := c.rpcBatchRead(c.workers[w], gids)
		if err != nil {
			return nil, c.wrapFail("read_file", err, "file_id", fid, "worker", w)
		}
		for k, e := range entries {
			start := e.FileIndex * c.blockSize
			copy(out[start:start+c.blockSize], data[int64(k)*c.blockSize:int64(k+1)*c.blockSize])
		}
	}
	return out, nil
}

// WriteFile overwrites a file's entire logical contents from data, growing
// L if data spans more blocks than the file currently has. Every block
// newly allocated during this call is tracked in an undo log: if
// allocation fails partway through, every block this call itself created
// is rolled back before the error is returned, leaving the file exactly as
// it was on entry.
func (c *Coordinator) WriteFile(ctx context.Context, fid int64, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func(start time.Time) { metrics.ObserveOperation(c.metrics, "write_file", time.Since(start)) }(time.Now())

	f, err := c.validFile(fid)
	if err != nil {
		return err
	}

	r := (int64(len(data)) + c.blockSize - 1) / c.blockSize

	type committed struct {
		w   int
		gid int64
	}
	var undo []committed

	rollback := func() {
		for _, cm := range undo {
			if derr := c.deallocBlock(cm.gid); derr != nil {
				c.log.Error("rollback failed to free block", "global_block", cm.gid, "cause", derr)
				continue
			}
			f.removeEntry(cm.w, cm.gid)
		}
	}

	for i := int64(0); i < r; i++ {
		if _, _, found := f.find(i); found {
			continue
		}
		gid, w, err := c.commitNewBlock(f, i)
		if err != nil {
			rollback()
			return err
		}
		undo = append(undo, committed{w: w, gid: gid})
	}

	for w, entries := range f.nodes {
		var inRange []blockEntry
		for _, e := range entries {
			if e.FileIndex < r {
				inRange = append(inRange, e)
			}
		}
		if len(inRange) == 0 {
			continue
		}

		gids := make([]int64, len(inRange))
		payload := make([]byte, int64(len(inRange))*c.blockSize)
		for k, e := range inRange {
			gids[k] = e.GlobalID
			start := e.FileIndex * c.blockSize
			end := start + c.blockSize
			if end > int64(len(data)) {
				end = int64(len(data))
			}
			if start < int64(len(data)) {
				copy(payload[int64(k)*c.blockSize:], data[start:end])
			}
		}
		if err := c.rpcBatchWrite(c.workers[w], gids, payload); err != nil {
			return c.wrapFail("write_file", err, "file_id", fid, "worker", w)
		}
	}

	if r > f.L {
		f.L = r
	}
	return nil
}
