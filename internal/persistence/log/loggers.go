package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"skyticket.ai/internal/sim/world"
)

const (
	TickPrefix  = "events"
	EventPrefix = "audit"

	hourLayout = "2006-01-02-15"
	bufSize    = 64 * 1024
)

func TickDir(dataDir string) string  { return filepath.Join(dataDir, "events") }
func EventDir(dataDir string) string { return filepath.Join(dataDir, "audit") }

// segment is one open hourly file. Appending a fresh zstd frame to an
// existing file keeps it readable as a single stream.
type segment struct {
	hour string
	f    *os.File
	enc  *zstd.Encoder
	buf  *bufio.Writer
}

func openSegment(path, hour string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{hour: hour, f: f, enc: enc, buf: bufio.NewWriterSize(enc, bufSize)}, nil
}

func (s *segment) close() error {
	ferr := s.buf.Flush()
	if err := s.enc.Close(); err != nil && ferr == nil {
		ferr = err
	}
	if err := s.f.Close(); err != nil && ferr == nil {
		ferr = err
	}
	return ferr
}

// JSONLZstdWriter appends JSON lines to <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst,
// rolling to a new file on each UTC hour.
type JSONLZstdWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu  sync.Mutex
	cur *segment
}

func NewJSONLZstdWriter(dir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{dir: dir, prefix: prefix, now: time.Now}
}

func (w *JSONLZstdWriter) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	hour := w.now().UTC().Format(hourLayout)
	if w.cur == nil || w.cur.hour != hour {
		if err := w.roll(hour); err != nil {
			return fmt.Errorf("roll %s: %w", hour, err)
		}
	}
	if _, err := w.cur.buf.Write(line); err != nil {
		return err
	}
	return w.cur.buf.Flush()
}

func (w *JSONLZstdWriter) roll(hour string) error {
	if w.cur != nil {
		err := w.cur.close()
		w.cur = nil
		if err != nil {
			return err
		}
	}
	seg, err := openSegment(filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour)), hour)
	if err != nil {
		return err
	}
	w.cur = seg
	return nil
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == nil {
		return nil
	}
	err := w.cur.close()
	w.cur = nil
	return err
}

// TickLogger records one entry per simulation step.
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(dataDir string) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(TickDir(dataDir), TickPrefix)}
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error { return l.w.Write(e) }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// EventLogger records notices and mode transitions.
type EventLogger struct{ w *JSONLZstdWriter }

func NewEventLogger(dataDir string) *EventLogger {
	return &EventLogger{w: NewJSONLZstdWriter(EventDir(dataDir), EventPrefix)}
}

func (l *EventLogger) WriteEvent(e world.EventEntry) error { return l.w.Write(e) }
func (l *EventLogger) Close() error                        { return l.w.Close() }
