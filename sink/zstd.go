package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

const hourLayout = "2006-01-02-15"

// ZstdArchive writes records as compressed JSON lines, one file per hour of record time
type ZstdArchive struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewZstdArchive creates archive rooted at baseDir. Files are opened lazily.
func NewZstdArchive(baseDir, prefix string) *ZstdArchive {
	if prefix == "" {
		prefix = "records"
	}
	return &ZstdArchive{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

// Append implements Sink
func (archive *ZstdArchive) Append(ctx context.Context, records []fovlog.LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	archive.mu.Lock()
	defer archive.mu.Unlock()
	for _, record := range records {
		hour := record.Time.UTC().Format(hourLayout)
		if hour != archive.curHour {
			if err := archive.rotateLocked(hour); err != nil {
				return errors.Wrapf(fovlog.ErrLogWrite, "rotate archive: %v", err)
			}
		}
		b, err := json.Marshal(record)
		if err != nil {
			return errors.Wrap(err, "Can't marshal record")
		}
		if _, err := archive.w.Write(b); err != nil {
			return errors.Wrapf(fovlog.ErrLogWrite, "archive write: %v", err)
		}
		if err := archive.w.WriteByte('\n'); err != nil {
			return errors.Wrapf(fovlog.ErrLogWrite, "archive write: %v", err)
		}
	}
	if err := archive.w.Flush(); err != nil {
		return errors.Wrapf(fovlog.ErrLogWrite, "archive flush: %v", err)
	}
	return nil
}

// Close implements Sink
func (archive *ZstdArchive) Close() error {
	archive.mu.Lock()
	defer archive.mu.Unlock()
	return archive.closeLocked()
}

// PathForHour returns archive file holding records of the given hour
func (archive *ZstdArchive) PathForHour(t time.Time) string {
	return archive.pathForHour(t.UTC().Format(hourLayout))
}

func (archive *ZstdArchive) pathForHour(hour string) string {
	return filepath.Join(archive.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", archive.prefix, hour))
}

func (archive *ZstdArchive) rotateLocked(hour string) error {
	if err := archive.closeLocked(); err != nil {
		return err
	}
	path := archive.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	archive.f = f
	archive.enc = enc
	archive.w = bufio.NewWriterSize(enc, 64*1024)
	archive.curHour = hour
	return nil
}

func (archive *ZstdArchive) closeLocked() error {
	var err error
	if archive.w != nil {
		_ = archive.w.Flush()
	}
	if archive.enc != nil {
		err = archive.enc.Close()
		archive.enc = nil
	}
	if archive.f != nil {
		_ = archive.f.Close()
		archive.f = nil
	}
	archive.w = nil
	archive.curHour = ""
	return err
}

// ReadArchive decodes every record stored in a single archive file.
// Files appended to after reopening hold several zstd frames, which the decoder reads in sequence.
func ReadArchive(path string) ([]fovlog.LogRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open archive '%s'", path)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create zstd reader")
	}
	defer dec.Close()
	records := make([]fovlog.LogRecord, 0)
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record fovlog.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, errors.Wrapf(err, "Can't decode archive line %d", len(records)+1)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't read archive")
	}
	return records, nil
}
