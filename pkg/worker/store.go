package worker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blockmesh/blockmesh/pkg/protocol"
)

// blobStore is a filesystem-backed store of fixed-size block blobs, one
// regular file per allocated block ID, rooted at a per-worker directory.
// Writes go through a temp-file-then-rename sequence for atomicity, the
// same pattern used by filesystem-backed block stores elsewhere in this
// codebase's lineage.
type blobStore struct {
	dir string
}

func newBlobStore(dir string) (*blobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create worker directory %q: %w", dir, err)
	}
	return &blobStore{dir: dir}, nil
}

func (s *blobStore) path(blockID int32) string {
	return filepath.Join(s.dir, fmt.Sprintf("block-%d.blk", blockID))
}

// alloc creates a zero-filled blob of exactly protocol.BlockSize bytes.
func (s *blobStore) alloc(blockID int32) error {
	f, err := os.Create(s.path(blockID))
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Truncate(protocol.BlockSize)
}

// free destroys the blob. Returns an error if the blob was absent.
func (s *blobStore) free(blockID int32) error {
	return os.Remove(s.path(blockID))
}

// read reads exactly BlockSize bytes. Any short read is an error.
func (s *blobStore) read(blockID int32) ([]byte, error) {
	data, err := os.ReadFile(s.path(blockID))
	if err != nil {
		return nil, err
	}
	if len(data) != protocol.BlockSize {
		return nil, fmt.Errorf("short blob for block %d: got %d bytes, want %d", blockID, len(data), protocol.BlockSize)
	}
	return data, nil
}

// write overwrites the blob with exactly BlockSize bytes, atomically.
func (s *blobStore) write(blockID int32, data []byte) error {
	if len(data) != protocol.BlockSize {
		return fmt.Errorf("write block %d: buffer is %d bytes, want %d", blockID, len(data), protocol.BlockSize)
	}

	path := s.path(blockID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// removeAll recursively deletes the worker's durable directory.
func (s *blobStore) removeAll() error {
	return os.RemoveAll(s.dir)
}
