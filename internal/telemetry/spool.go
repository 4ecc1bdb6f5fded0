package telemetry

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// SpoolConfig configures the local JSONL record of reported data.
type SpoolConfig struct {
	// OutputPath is the file samples and alerts are appended to. Empty
	// disables spooling.
	OutputPath string

	// BufferSize is the write buffer size in bytes.
	BufferSize int

	// SyncOnWrite forces a sync after each record.
	SyncOnWrite bool
}

// DefaultSpoolConfig returns sensible defaults for the spool.
func DefaultSpoolConfig() *SpoolConfig {
	return &SpoolConfig{
		BufferSize:  64 * 1024,
		SyncOnWrite: false,
	}
}

// Spool appends every reported sample and alert to a local JSONL file so
// operators can inspect what the agent sent without server access.
type Spool struct {
	config *SpoolConfig
	writer *bufio.Writer
	file   *os.File
	mu     sync.Mutex

	totalWritten atomic.Int64
	writeErrors  atomic.Int64
}

// NewSpool opens (or creates) the spool file in append mode. A nil or
// pathless config produces a disabled spool whose writes are no-ops.
func NewSpool(config *SpoolConfig) (*Spool, error) {
	if config == nil {
		config = DefaultSpoolConfig()
	}

	s := &Spool{config: config}

	if config.OutputPath != "" {
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		s.file = f
		s.writer = bufio.NewWriterSize(f, config.BufferSize)
	}

	return s, nil
}

// NewSpoolWithWriter creates a spool over an arbitrary writer, for tests.
func NewSpoolWithWriter(w io.Writer, config *SpoolConfig) *Spool {
	if config == nil {
		config = DefaultSpoolConfig()
	}
	return &Spool{
		config: config,
		writer: bufio.NewWriterSize(w, config.BufferSize),
	}
}

// Write appends one record as a JSONL line.
func (s *Spool) Write(record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		s.writeErrors.Add(1)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil {
		return nil
	}

	if _, err := s.writer.Write(data); err != nil {
		s.writeErrors.Add(1)
		return err
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		s.writeErrors.Add(1)
		return err
	}

	s.totalWritten.Add(1)

	if s.config.SyncOnWrite {
		return s.flushLocked()
	}
	return nil
}

func (s *Spool) flushLocked() error {
	if s.writer == nil {
		return nil
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if s.file != nil {
		return s.file.Sync()
	}
	return nil
}

// Flush forces buffered lines to disk.
func (s *Spool) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// Close flushes and closes the spool file.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// SpoolStats reports spool activity.
type SpoolStats struct {
	TotalWritten int64
	WriteErrors  int64
}

// Stats returns current spool statistics.
func (s *Spool) Stats() SpoolStats {
	return SpoolStats{
		TotalWritten: s.totalWritten.Load(),
		WriteErrors:  s.writeErrors.Load(),
	}
}
