package output

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Progress receives the number of bytes committed by each write.
type Progress interface {
	Add64(n int64) error
}

// SharedFile is the single output file of a download. It is shared by every range worker and
// WriteAt is its only mutation entry point.
type SharedFile struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	progress Progress
}

// Open creates or truncates path for writing.
func Open(path string) (*SharedFile, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &SharedFile{path: path, file: file}, nil
}

// SetProgress must be called before the first WriteAt.
func (s *SharedFile) SetProgress(p Progress) {
	s.progress = p
}

func (s *SharedFile) Name() string {
	return s.path
}

// WriteAt positions the file at offset and writes p, returning the number of bytes committed.
// The seek and the write happen under one lock so no other call can move the position between
// them. The lock is never held across anything but this pair.
func (s *SharedFile) WriteAt(offset int64, p []byte) (int, error) {
	s.mu.Lock()
	n, err := s.seekAndWrite(offset, p)
	s.mu.Unlock()

	if n > 0 && s.progress != nil {
		_ = s.progress.Add64(int64(n))
	}
	return n, err
}

func (s *SharedFile) seekAndWrite(offset int64, p []byte) (int, error) {
	if s.file == nil {
		return 0, os.ErrClosed
	}
	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek to %d: %w", offset, err)
	}
	n, err := s.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("write at %d: %w", offset, err)
	}
	return n, nil
}

// Close closes the underlying file. Later writes fail with os.ErrClosed.
func (s *SharedFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return os.ErrClosed
	}
	err := s.file.Close()
	s.file = nil
	return err
}
