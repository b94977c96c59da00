package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := RequestHeader{Cmd: CmdWriteBlock, PayloadSize: 4100}
	require.NoError(t, WriteRequestHeader(&buf, in))

	out, err := ReadRequestHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResponseHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := ResponseHeader{Status: StatusNoSpace, PayloadSize: 0}
	require.NoError(t, WriteResponseHeader(&buf, in))

	out, err := ReadResponseHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBatchRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := BatchRequest{BlockIDs: []int32{3, 1, 4, 1, 5}}
	require.NoError(t, in.Encode(&buf))

	out, err := DecodeBatchRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, in.BlockIDs, out.BlockIDs)
}

func TestWriteBlockRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := bytes.Repeat([]byte{0xAB}, BlockSize)
	in := WriteBlockRequest{BlockIndex: 7, Buffer: payload}
	require.NoError(t, in.Encode(&buf))

	out, err := DecodeWriteBlockRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, in.BlockIndex, out.BlockIndex)
	assert.Equal(t, in.Buffer, out.Buffer)
}

func TestShortReadIsFatal(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 2, 3})
	_, err := ReadRequestHeader(&buf)
	assert.Error(t, err)
}

func TestCommandAndStatusStrings(t *testing.T) {
	assert.Equal(t, "WRITE_BLOCK", CmdWriteBlock.String())
	assert.Equal(t, "NO_SPACE", StatusNoSpace.String())
	assert.Equal(t, "UNKNOWN_COMMAND", Command(99).String())
	assert.Equal(t, "UNKNOWN_STATUS", Status(99).String())
}
