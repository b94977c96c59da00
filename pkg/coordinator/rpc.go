package coordinator

import (
	"errors"
	"fmt"
	"io"

	"github.com/blockmesh/blockmesh/pkg/protocol"
)

// errWorkerDead is a local sentinel distinguishing "we already knew this
// worker was unreachable" from a fresh I/O failure, so markDead logs only
// once per worker.
var errWorkerDead = errors.New("coordinator: worker is dead")

// markDead flags a worker as unusable after a channel error. Per the
// specification, a channel error is fatal to that worker for the lifetime
// of the coordinator: every subsequent request against it fails fast
// without attempting contact.
func (c *Coordinator) markDead(h *workerHandle, cause error) {
	if h.dead {
		return
	}
	h.dead = true
	c.log.Error("worker channel failed, marking dead", "worker", h.id, "cause", cause)
	_ = h.ch.Close()
}

func (c *Coordinator) checkAlive(h *workerHandle) error {
	if h.dead {
		return errWorkerDead
	}
	return nil
}

func (c *Coordinator) rpcAllocBlock(h *workerHandle, gid int64) error {
	if err := c.checkAlive(h); err != nil {
		return err
	}
	if err := h.ch.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdAllocBlock, PayloadSize: 4}); err != nil {
		c.markDead(h, err)
		return err
	}
	if err := (protocol.BlockIndexRequest{BlockIndex: int32(gid)}).Encode(h.ch); err != nil {
		c.markDead(h, err)
		return err
	}
	resp, err := h.ch.RecvResponse()
	if err != nil {
		c.markDead(h, err)
		return err
	}
	return statusToErr(resp.Status)
}

func (c *Coordinator) rpcFreeBlock(h *workerHandle, gid int64) error {
	if err := c.checkAlive(h); err != nil {
		return err
	}
	if err := h.ch.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdFreeBlock, PayloadSize: 4}); err != nil {
		c.markDead(h, err)
		return err
	}
	if err := (protocol.BlockIndexRequest{BlockIndex: int32(gid)}).Encode(h.ch); err != nil {
		c.markDead(h, err)
		return err
	}
	resp, err := h.ch.RecvResponse()
	if err != nil {
		c.markDead(h, err)
		return err
	}
	return statusToErr(resp.Status)
}

func (c *Coordinator) rpcReadBlock(h *workerHandle, gid int64) ([]byte, error) {
	if err := c.checkAlive(h); err != nil {
		return nil, err
	}
	if err := h.ch.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdReadBlock, PayloadSize: 4}); err != nil {
		c.markDead(h, err)
		return nil, err
	}
	if err := (protocol.BlockIndexRequest{BlockIndex: int32(gid)}).Encode(h.ch); err != nil {
		c.markDead(h, err)
		return nil, err
	}
	resp, err := h.ch.RecvResponse()
	if err != nil {
		c.markDead(h, err)
		return nil, err
	}
	if resp.Status != protocol.StatusSuccess {
		return nil, statusToErr(resp.Status)
	}
	buf := make([]byte, resp.PayloadSize)
	if _, err := io.ReadFull(h.ch, buf); err != nil {
		c.markDead(h, err)
		return nil, err
	}
	return buf, nil
}

func (c *Coordinator) rpcWriteBlock(h *workerHandle, gid int64, data []byte) error {
	if err := c.checkAlive(h); err != nil {
		return err
	}
	if err := h.ch.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdWriteBlock, PayloadSize: uint64(4 + len(data))}); err != nil {
		c.markDead(h, err)
		return err
	}
	if err := (protocol.WriteBlockRequest{BlockIndex: int32(gid), Buffer: data}).Encode(h.ch); err != nil {
		c.markDead(h, err)
		return err
	}
	resp, err := h.ch.RecvResponse()
	if err != nil {
		c.markDead(h, err)
		return err
	}
	return statusToErr(resp.Status)
}

func (c *Coordinator) rpcBatchRead(h *workerHandle, gids []int64) ([]byte, error) {
	if err := c.checkAlive(h); err != nil {
		return nil, err
	}
	ids := toInt32s(gids)
	if err := h.ch.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdBatchRead, PayloadSize: uint64(4 + 4*len(ids))}); err != nil {
		c.markDead(h, err)
		return nil, err
	}
	if err := (protocol.BatchRequest{BlockIDs: ids}).Encode(h.ch); err != nil {
		c.markDead(h, err)
		return nil, err
	}
	resp, err := h.ch.RecvResponse()
	if err != nil {
		c.markDead(h, err)
		return nil, err
	}
	if resp.Status != protocol.StatusSuccess {
		return nil, statusToErr(resp.Status)
	}
	buf := make([]byte, resp.PayloadSize)
	if _, err := io.ReadFull(h.ch, buf); err != nil {
		c.markDead(h, err)
		return nil, err
	}
	return buf, nil
}

func (c *Coordinator) rpcBatchWrite(h *workerHandle, gids []int64, payload []byte) error {
	if err := c.checkAlive(h); err != nil {
		return err
	}
	ids := toInt32s(gids)
	if err := h.ch.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdBatchWrite, PayloadSize: uint64(4 + 4*len(ids))}); err != nil {
		c.markDead(h, err)
		return err
	}
	if err := (protocol.BatchRequest{BlockIDs: ids}).Encode(h.ch); err != nil {
		c.markDead(h, err)
		return err
	}
	// Second stream write: the concatenated block payload, no header.
	if _, err := h.ch.Write(payload); err != nil {
		c.markDead(h, err)
		return err
	}
	resp, err := h.ch.RecvResponse()
	if err != nil {
		c.markDead(h, err)
		return err
	}
	return statusToErr(resp.Status)
}

func (c *Coordinator) rpcExit(h *workerHandle, cleanup bool) error {
	if h.dead {
		return nil
	}
	if err := h.ch.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdExit, PayloadSize: 4}); err != nil {
		c.markDead(h, err)
		return err
	}
	if err := (protocol.ExitRequest{Cleanup: cleanup}).Encode(h.ch); err != nil {
		c.markDead(h, err)
		return err
	}
	resp, err := h.ch.RecvResponse()
	if err != nil {
		c.markDead(h, err)
		return err
	}
	return statusToErr(resp.Status)
}

func statusToErr(s protocol.Status) error {
	switch s {
	case protocol.StatusSuccess:
		return nil
	case protocol.StatusNoSpace:
		return ErrNoSpace
	case protocol.StatusInvalidBlock:
		return ErrInvalidBlock
	default:
		return fmt.Errorf("%w: worker returned %s", ErrFail, s)
	}
}

func toInt32s(in []int64) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}
