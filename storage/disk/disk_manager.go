// Package disk implements the on-disk file layout (a flat sequence of
// fixed-size pages) and the single-writer disk scheduler that serializes
// access to it, following the teacher's disk.Manager but dropping the WAL
// coupling: this engine's Non-goals exclude durability and crash recovery.
package disk

import (
	"fmt"
	"io"
	"os"
	"sync"

	"corundb/storage/page"
)

// Manager owns the database file and allocates page ids. Page 0 is reserved
// as the metadata page: Open writes only its type tag, and on reopen the
// allocator watermark is recomputed from the file size. No catalog root is
// stored there.
type Manager struct {
	mu         sync.Mutex
	file       *os.File
	lastPageID page.ID
}

// Open opens (creating if necessary) the database file at path.
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}

	m := &Manager{file: f}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("disk: stat %s: %w", path, err)
	}

	if info.Size() == 0 {
		m.lastPageID = 0
		buf := make([]byte, page.Size)
		buf[0] = byte(page.TypeMeta)
		if _, err := m.file.WriteAt(buf, 0); err != nil {
			return nil, fmt.Errorf("disk: init metadata page: %w", err)
		}
	} else {
		m.lastPageID = page.ID(info.Size()/int64(page.Size)) - 1
	}

	return m, nil
}

// AllocatePage returns the next monotonically increasing page id. It does
// not itself write anything to disk; the caller (the buffer pool) formats
// and eventually flushes the page.
func (m *Manager) AllocatePage() page.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPageID++
	return m.lastPageID
}

// ReadPage reads the page at id into dst, which must be exactly page.Size
// bytes.
func (m *Manager) ReadPage(id page.ID, dst []byte) error {
	if len(dst) != page.Size {
		return fmt.Errorf("disk: destination buffer is %d bytes, want %d", len(dst), page.Size)
	}
	n, err := m.file.ReadAt(dst, int64(id)*int64(page.Size))
	if err != nil && err != io.EOF {
		return fmt.Errorf("disk: read page %d: %w", id, err)
	}
	// A page never written yet (e.g. just allocated) reads back as zeros.
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// WritePage writes src (exactly page.Size bytes) to the page at id.
func (m *Manager) WritePage(id page.ID, src []byte) error {
	if len(src) != page.Size {
		return fmt.Errorf("disk: source buffer is %d bytes, want %d", len(src), page.Size)
	}
	if _, err := m.file.WriteAt(src, int64(id)*int64(page.Size)); err != nil {
		return fmt.Errorf("disk: write page %d: %w", id, err)
	}
	return nil
}

// Sync flushes OS buffers to stable storage.
func (m *Manager) Sync() error {
	return m.file.Sync()
}

func (m *Manager) Close() error {
	return m.file.Close()
}
