package sink

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/pkg/errors"
)

// File appends records as delimited text lines. Each batch is written with a single
// write call under a mutex, so batches of agents sharing a file never interleave.
type File struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// OpenFile opens path for appending, creating it and its directory when absent
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("empty log path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "Can't create directory for '%s'", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open log file '%s'", path)
	}
	return &File{path: path, f: f}, nil
}

// Path returns file location
func (file *File) Path() string {
	return file.path
}

// Append implements Sink
func (file *File) Append(ctx context.Context, records []fovlog.LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	data := fovlog.FormatBatch(records)
	file.mu.Lock()
	defer file.mu.Unlock()
	if file.f == nil {
		return errors.Wrap(fovlog.ErrLogWrite, "file is closed")
	}
	if _, err := file.f.Write(data); err != nil {
		return errors.Wrapf(fovlog.ErrLogWrite, "append to '%s': %v", file.path, err)
	}
	return nil
}

// Close implements Sink
func (file *File) Close() error {
	file.mu.Lock()
	defer file.mu.Unlock()
	if file.f == nil {
		return nil
	}
	err := file.f.Close()
	file.f = nil
	return err
}
