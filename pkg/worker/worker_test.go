package worker

import (
	"context"
	"testing"

	"github.com/blockmesh/blockmesh/pkg/ipc"
	"github.com/blockmesh/blockmesh/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestWorker(t *testing.T, nodeID int32, capacityBlocks int64) *ipc.Channel {
	t.Helper()
	coord, workerSide := ipc.NewPipe()
	w := New(workerSide, t.TempDir())

	go func() {
		_ = w.Serve(context.Background())
	}()

	require.NoError(t, coord.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdInit, PayloadSize: 12}))
	require.NoError(t, protocol.InitRequest{NodeID: nodeID, Capacity: uint64(capacityBlocks * protocol.BlockSize)}.Encode(coord))
	resp, err := coord.RecvResponse()
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	return coord
}

func allocBlock(t *testing.T, coord *ipc.Channel, id int32) protocol.Status {
	t.Helper()
	require.NoError(t, coord.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdAllocBlock, PayloadSize: 4}))
	require.NoError(t, protocol.BlockIndexRequest{BlockIndex: id}.Encode(coord))
	resp, err := coord.RecvResponse()
	require.NoError(t, err)
	return resp.Status
}

func writeBlock(t *testing.T, coord *ipc.Channel, id int32, data []byte) protocol.Status {
	t.Helper()
	require.NoError(t, coord.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdWriteBlock, PayloadSize: uint64(4 + len(data))}))
	require.NoError(t, protocol.WriteBlockRequest{BlockIndex: id, Buffer: data}.Encode(coord))
	resp, err := coord.RecvResponse()
	require.NoError(t, err)
	return resp.Status
}

func readBlock(t *testing.T, coord *ipc.Channel, id int32) ([]byte, protocol.Status) {
	t.Helper()
	require.NoError(t, coord.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdReadBlock, PayloadSize: 4}))
	require.NoError(t, protocol.BlockIndexRequest{BlockIndex: id}.Encode(coord))
	resp, err := coord.RecvResponse()
	require.NoError(t, err)
	if resp.PayloadSize == 0 {
		return nil, resp.Status
	}
	buf := make([]byte, resp.PayloadSize)
	_, err = coord.Read(buf)
	require.NoError(t, err)
	return buf, resp.Status
}

func TestAllocReadIsZeroFilled(t *testing.T) {
	coord := startTestWorker(t, 0, 4)
	defer coord.Close()

	assert.Equal(t, protocol.StatusSuccess, allocBlock(t, coord, 0))

	data, status := readBlock(t, coord, 0)
	assert.Equal(t, protocol.StatusSuccess, status)
	assert.Equal(t, make([]byte, protocol.BlockSize), data)
}

func TestWriteReadRoundTrip(t *testing.T) {
	coord := startTestWorker(t, 0, 4)
	defer coord.Close()

	require.Equal(t, protocol.StatusSuccess, allocBlock(t, coord, 2))

	payload := make([]byte, protocol.BlockSize)
	copy(payload, []byte("hello world"))
	require.Equal(t, protocol.StatusSuccess, writeBlock(t, coord, 2, payload))

	data, status := readBlock(t, coord, 2)
	require.Equal(t, protocol.StatusSuccess, status)
	assert.Equal(t, payload, data)
}

func TestAllocBeyondCapacityIsNoSpace(t *testing.T) {
	coord := startTestWorker(t, 0, 1)
	defer coord.Close()

	require.Equal(t, protocol.StatusSuccess, allocBlock(t, coord, 0))
	assert.Equal(t, protocol.StatusNoSpace, allocBlock(t, coord, 1))
}

func TestFreeThenReadFails(t *testing.T) {
	coord := startTestWorker(t, 0, 4)
	defer coord.Close()

	require.Equal(t, protocol.StatusSuccess, allocBlock(t, coord, 0))

	require.NoError(t, coord.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdFreeBlock, PayloadSize: 4}))
	require.NoError(t, protocol.BlockIndexRequest{BlockIndex: 0}.Encode(coord))
	resp, err := coord.RecvResponse()
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusSuccess, resp.Status)

	_, status := readBlock(t, coord, 0)
	assert.Equal(t, protocol.StatusFail, status)
}

func TestBatchReadWriteRoundTrip(t *testing.T) {
	coord := startTestWorker(t, 0, 4)
	defer coord.Close()

	for _, id := range []int32{0, 1, 2} {
		require.Equal(t, protocol.StatusSuccess, allocBlock(t, coord, id))
	}

	block0 := make([]byte, protocol.BlockSize)
	copy(block0, []byte("AAAA"))
	block1 := make([]byte, protocol.BlockSize)
	copy(block1, []byte("BBBB"))

	require.NoError(t, coord.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdBatchWrite, PayloadSize: 8}))
	require.NoError(t, protocol.BatchRequest{BlockIDs: []int32{0, 1}}.Encode(coord))
	require.NoError(t, writeRaw(coord, block0, block1))
	resp, err := coord.RecvResponse()
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	require.NoError(t, coord.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdBatchRead, PayloadSize: 8}))
	require.NoError(t, protocol.BatchRequest{BlockIDs: []int32{1, 0}}.Encode(coord))
	resp, err = coord.RecvResponse()
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	buf := make([]byte, resp.PayloadSize)
	_, err = coord.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, block1, buf[:protocol.BlockSize])
	assert.Equal(t, block0, buf[protocol.BlockSize:])
}

func writeRaw(coord *ipc.Channel, blocks ...[]byte) error {
	for _, b := range blocks {
		if _, err := coord.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func TestExitWithCleanupReturnsSuccess(t *testing.T) {
	coord := startTestWorker(t, 0, 2)
	defer coord.Close()

	require.Equal(t, protocol.StatusSuccess, allocBlock(t, coord, 0))

	require.NoError(t, coord.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdExit, PayloadSize: 4}))
	require.NoError(t, protocol.ExitRequest{Cleanup: true}.Encode(coord))
	resp, err := coord.RecvResponse()
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusSuccess, resp.Status)
}
