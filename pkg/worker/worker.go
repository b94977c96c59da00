// Package worker implements the data-node side of the cluster: a
// single-threaded serve loop that owns a disjoint slice of the global block
// address space and the durable blobs backing it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/blockmesh/blockmesh/internal/logger"
	"github.com/blockmesh/blockmesh/pkg/ipc"
	"github.com/blockmesh/blockmesh/pkg/protocol"
)

// Worker is a data node: it owns a capacity in blocks and serves one
// request at a time over its channel. All state is local; nothing is
// shared with the coordinator except via framed messages.
type Worker struct {
	ch      *ipc.Channel
	baseDir string

	id       int32
	capacity uint64 // bytes
	used     uint64 // bytes
	store    *blobStore

	initialized bool
}

// New creates a worker bound to ch, rooted at baseDir. The worker is not
// usable for block operations until it has processed an INIT request.
func New(ch *ipc.Channel, baseDir string) *Worker {
	return &Worker{ch: ch, baseDir: baseDir}
}

// Serve runs the single-threaded request loop: read one request, dispatch,
// send one response, repeat until EXIT or a framing error. A framing error
// is returned to the caller so the process (or goroutine) can terminate
// with a non-success outcome; the worker never retries internally.
func (w *Worker) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		header, err := w.ch.RecvRequest()
		if err != nil {
			if errors.Is(err, ipc.ErrChannelClosed) && w.initialized {
				return nil
			}
			return fmt.Errorf("worker %d: framing error: %w", w.id, err)
		}

		exit, err := w.dispatch(header)
		if err != nil {
			return fmt.Errorf("worker %d: framing error: %w", w.id, err)
		}
		if exit {
			return nil
		}
	}
}

// dispatch handles exactly one request/response round trip. The bool
// return reports whether the worker should terminate its loop after this
// response (EXIT).
func (w *Worker) dispatch(header protocol.RequestHeader) (bool, error) {
	switch header.Cmd {
	case protocol.CmdInit:
		return false, w.handleInit()
	case protocol.CmdAllocBlock:
		return false, w.handleAllocBlock()
	case protocol.CmdFreeBlock:
		return false, w.handleFreeBlock()
	case protocol.CmdReadBlock:
		return false, w.handleReadBlock()
	case protocol.CmdWriteBlock:
		return false, w.handleWriteBlock()
	case protocol.CmdBatchRead:
		return false, w.handleBatchRead()
	case protocol.CmdBatchWrite:
		return false, w.handleBatchWrite()
	case protocol.CmdExit:
		return w.handleExit()
	default:
		return false, w.respond(protocol.StatusFail, nil)
	}
}

func (w *Worker) handleInit() error {
	req, err := protocol.DecodeInitRequest(w.ch)
	if err != nil {
		return err
	}

	w.id = req.NodeID
	w.capacity = req.Capacity
	w.used = 0

	store, err := newBlobStore(filepath.Join(w.baseDir, fmt.Sprintf("worker-%d", w.id)))
	if err != nil {
		logger.Error("worker init failed", logger.KeyNodeID, w.id, logger.KeyError, err)
		return w.respond(protocol.StatusFail, nil)
	}
	w.store = store
	w.initialized = true

	logger.Info("worker initialized", logger.KeyNodeID, w.id, logger.KeyTotalBlocks, req.Capacity/protocol.BlockSize)
	return w.respond(protocol.StatusSuccess, nil)
}

func (w *Worker) handleAllocBlock() error {
	req, err := protocol.DecodeBlockIndexRequest(w.ch)
	if err != nil {
		return err
	}

	if w.used+protocol.BlockSize > w.capacity {
		logger.Debug("worker out of space", logger.KeyNodeID, w.id, logger.KeyGlobalBlock, req.BlockIndex)
		return w.respond(protocol.StatusNoSpace, nil)
	}

	if err := w.store.alloc(req.BlockIndex); err != nil {
		logger.Error("alloc block failed", logger.KeyNodeID, w.id, logger.KeyGlobalBlock, req.BlockIndex, logger.KeyError, err)
		return w.respond(protocol.StatusFail, nil)
	}
	w.used += protocol.BlockSize
	return w.respond(protocol.StatusSuccess, nil)
}

func (w *Worker) handleFreeBlock() error {
	req, err := protocol.DecodeBlockIndexRequest(w.ch)
	if err != nil {
		return err
	}

	if err := w.store.free(req.BlockIndex); err != nil {
		logger.Error("free block failed", logger.KeyNodeID, w.id, logger.KeyGlobalBlock, req.BlockIndex, logger.KeyError, err)
		return w.respond(protocol.StatusFail, nil)
	}
	w.used -= protocol.BlockSize
	return w.respond(protocol.StatusSuccess, nil)
}

func (w *Worker) handleReadBlock() error {
	req, err := protocol.DecodeBlockIndexRequest(w.ch)
	if err != nil {
		return err
	}

	data, err := w.store.read(req.BlockIndex)
	if err != nil {
		logger.Error("read block failed", logger.KeyNodeID, w.id, logger.KeyGlobalBlock, req.BlockIndex, logger.KeyError, err)
		return w.respond(protocol.StatusFail, nil)
	}
	return w.respond(protocol.StatusSuccess, data)
}

func (w *Worker) handleWriteBlock() error {
	req, err := protocol.DecodeWriteBlockRequest(w.ch)
	if err != nil {
		return err
	}

	if err := w.store.write(req.BlockIndex, req.Buffer); err != nil {
		logger.Error("write block failed", logger.KeyNodeID, w.id, logger.KeyGlobalBlock, req.BlockIndex, logger.KeyError, err)
		return w.respond(protocol.StatusFail, nil)
	}
	return w.respond(protocol.StatusSuccess, nil)
}

func (w *Worker) handleBatchRead() error {
	req, err := protocol.DecodeBatchRequest(w.ch)
	if err != nil {
		return err
	}

	out := make([]byte, 0, len(req.BlockIDs)*protocol.BlockSize)
	for _, id := range req.BlockIDs {
		data, err := w.store.read(id)
		if err != nil {
			logger.Error("batch read failed", logger.KeyNodeID, w.id, logger.KeyGlobalBlock, id, logger.KeyError, err)
			return w.respond(protocol.StatusFail, nil)
		}
		out = append(out, data...)
	}
	return w.respond(protocol.StatusSuccess, out)
}

func (w *Worker) handleBatchWrite() error {
	req, err := protocol.DecodeBatchRequest(w.ch)
	if err != nil {
		return err
	}

	// Second stream write: the raw concatenated block payload follows the
	// control frame directly, with no header of its own.
	raw := make([]byte, len(req.BlockIDs)*protocol.BlockSize)
	if _, err := io.ReadFull(w.ch, raw); err != nil {
		return fmt.Errorf("batch write payload: %w", err)
	}

	for i, id := range req.BlockIDs {
		chunk := raw[i*protocol.BlockSize : (i+1)*protocol.BlockSize]
		if err := w.store.write(id, chunk); err != nil {
			logger.Error("batch write failed", logger.KeyNodeID, w.id, logger.KeyGlobalBlock, id, logger.KeyError, err)
			return w.respond(protocol.StatusFail, nil)
		}
	}
	return w.respond(protocol.StatusSuccess, nil)
}

// handleExit returns (shouldTerminateLoop, error).
func (w *Worker) handleExit() (bool, error) {
	req, err := protocol.DecodeExitRequest(w.ch)
	if err != nil {
		return false, err
	}

	if req.Cleanup && w.store != nil {
		if err := w.store.removeAll(); err != nil {
			logger.Error("cleanup failed", logger.KeyNodeID, w.id, logger.KeyError, err)
		}
	}

	if err := w.respond(protocol.StatusSuccess, nil); err != nil {
		return false, err
	}
	logger.Info("worker exiting", logger.KeyNodeID, w.id, "cleanup", req.Cleanup)
	return true, nil
}

func (w *Worker) respond(status protocol.Status, payload []byte) error {
	if err := w.ch.SendResponse(protocol.ResponseHeader{Status: status, PayloadSize: uint64(len(payload))}); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.ch.Write(payload)
	return err
}
