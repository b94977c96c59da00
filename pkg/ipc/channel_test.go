package ipc

import (
	"testing"

	"github.com/blockmesh/blockmesh/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestResponseRoundTrip(t *testing.T) {
	coord, worker := NewPipe()
	defer coord.Close()
	defer worker.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h, err := worker.RecvRequest()
		require.NoError(t, err)
		assert.Equal(t, protocol.CmdAllocBlock, h.Cmd)

		req, err := protocol.DecodeBlockIndexRequest(worker)
		require.NoError(t, err)
		assert.Equal(t, int32(7), req.BlockIndex)

		require.NoError(t, worker.SendResponse(protocol.ResponseHeader{Status: protocol.StatusSuccess}))
	}()

	req := protocol.BlockIndexRequest{BlockIndex: 7}
	require.NoError(t, coord.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdAllocBlock, PayloadSize: 4}))
	require.NoError(t, req.Encode(coord))

	resp, err := coord.RecvResponse()
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusSuccess, resp.Status)

	<-done
}

func TestClosedChannelErrors(t *testing.T) {
	coord, worker := NewPipe()
	worker.Close()
	coord.Close()

	_, err := coord.RecvRequest()
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestBrokenConnectionIsFatal(t *testing.T) {
	coord, worker := NewPipe()
	worker.Close()

	err := coord.SendRequest(protocol.RequestHeader{Cmd: protocol.CmdExit})
	assert.Error(t, err)

	// Subsequent use of the same channel must also fail.
	_, err = coord.RecvResponse()
	assert.ErrorIs(t, err, ErrChannelClosed)
}
