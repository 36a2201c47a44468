package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/statefork/statefork/state"
)

// Snapshots compress well (repeated key prefixes, JSON structure), so the
// file backend stores them zstd-compressed. EncodeAll/DecodeAll operate on
// whole documents; the stateless encoder/decoder pair is shared.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	zstdEncoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic("persist: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("persist: zstd decoder initialization failed: " + err.Error())
	}
}

// FileBackend is a Backend storing each key as a zstd-compressed JSON file
// under a root directory. Keys map 1:1 to relative file paths. Writes go
// through a temp file and rename, so a crash never leaves a torn snapshot.
type FileBackend struct {
	root string
}

// NewFileBackend creates a Backend rooted at the given directory.
func NewFileBackend(root string) *FileBackend {
	return &FileBackend{root: root}
}

func (b *FileBackend) Load(_ context.Context, key string) (state.Snapshot, error) {
	path := filepath.Join(b.root, filepath.FromSlash(key))

	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}

	data, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}

	snap, err := state.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}
	return snap, nil
}

func (b *FileBackend) Store(_ context.Context, key string, snap state.Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, key, err)
	}
	compressed := zstdEncoder.EncodeAll(data, nil)

	path := filepath.Join(b.root, filepath.FromSlash(key))
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, key, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, key, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, key, err)
	}
	return nil
}
