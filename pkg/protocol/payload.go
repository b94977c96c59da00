package protocol

import "io"

// InitRequest is the INIT command payload: {node_id: i32, capacity: u64}.
type InitRequest struct {
	NodeID   int32
	Capacity uint64
}

func (p InitRequest) Encode(w io.Writer) error {
	var buf [12]byte
	nativeOrder.PutUint32(buf[0:4], uint32(p.NodeID))
	nativeOrder.PutUint64(buf[4:12], p.Capacity)
	return writeFull(w, buf[:])
}

func DecodeInitRequest(r io.Reader) (InitRequest, error) {
	var buf [12]byte
	if err := readFull(r, buf[:]); err != nil {
		return InitRequest{}, err
	}
	return InitRequest{
		NodeID:   int32(nativeOrder.Uint32(buf[0:4])),
		Capacity: nativeOrder.Uint64(buf[4:12]),
	}, nil
}

// BlockIndexRequest is the ALLOC_BLOCK / FREE_BLOCK / READ_BLOCK payload
// shape: {block_index: i32}.
type BlockIndexRequest struct {
	BlockIndex int32
}

func (p BlockIndexRequest) Encode(w io.Writer) error {
	var buf [4]byte
	nativeOrder.PutUint32(buf[0:4], uint32(p.BlockIndex))
	return writeFull(w, buf[:])
}

func DecodeBlockIndexRequest(r io.Reader) (BlockIndexRequest, error) {
	var buf [4]byte
	if err := readFull(r, buf[:]); err != nil {
		return BlockIndexRequest{}, err
	}
	return BlockIndexRequest{BlockIndex: int32(nativeOrder.Uint32(buf[0:4]))}, nil
}

// WriteBlockRequest is the WRITE_BLOCK payload: {block_index: i32, buffer:
// [BlockSize]byte}.
type WriteBlockRequest struct {
	BlockIndex int32
	Buffer     []byte // must be exactly BlockSize
}

func (p WriteBlockRequest) Encode(w io.Writer) error {
	var hdr [4]byte
	nativeOrder.PutUint32(hdr[0:4], uint32(p.BlockIndex))
	if err := writeFull(w, hdr[:]); err != nil {
		return err
	}
	return writeFull(w, p.Buffer)
}

func DecodeWriteBlockRequest(r io.Reader) (WriteBlockRequest, error) {
	var hdr [4]byte
	if err := readFull(r, hdr[:]); err != nil {
		return WriteBlockRequest{}, err
	}
	buf := make([]byte, BlockSize)
	if err := readFull(r, buf); err != nil {
		return WriteBlockRequest{}, err
	}
	return WriteBlockRequest{
		BlockIndex: int32(nativeOrder.Uint32(hdr[0:4])),
		Buffer:     buf,
	}, nil
}

// BatchRequest is the BATCH_READ / BATCH_WRITE control payload:
// {num_blocks: i32, block_ids: [i32; num_blocks]}.
type BatchRequest struct {
	BlockIDs []int32
}

func (p BatchRequest) Encode(w io.Writer) error {
	var hdr [4]byte
	nativeOrder.PutUint32(hdr[0:4], uint32(len(p.BlockIDs)))
	if err := writeFull(w, hdr[:]); err != nil {
		return err
	}
	buf := make([]byte, 4*len(p.BlockIDs))
	for i, id := range p.BlockIDs {
		nativeOrder.PutUint32(buf[i*4:i*4+4], uint32(id))
	}
	return writeFull(w, buf)
}

func DecodeBatchRequest(r io.Reader) (BatchRequest, error) {
	var hdr [4]byte
	if err := readFull(r, hdr[:]); err != nil {
		return BatchRequest{}, err
	}
	num := nativeOrder.Uint32(hdr[0:4])
	buf := make([]byte, 4*num)
	if err := readFull(r, buf); err != nil {
		return BatchRequest{}, err
	}
	ids := make([]int32, num)
	for i := range ids {
		ids[i] = int32(nativeOrder.Uint32(buf[i*4 : i*4+4]))
	}
	return BatchRequest{BlockIDs: ids}, nil
}

// ExitRequest is the EXIT payload: {cleanup: i32}.
type ExitRequest struct {
	Cleanup bool
}

func (p ExitRequest) Encode(w io.Writer) error {
	var buf [4]byte
	if p.Cleanup {
		nativeOrder.PutUint32(buf[0:4], 1)
	}
	return writeFull(w, buf[:])
}

func DecodeExitRequest(r io.Reader) (ExitRequest, error) {
	var buf [4]byte
	if err := readFull(r, buf[:]); err != nil {
		return ExitRequest{}, err
	}
	return ExitRequest{Cleanup: nativeOrder.Uint32(buf[0:4]) != 0}, nil
}
