package recorder

import (
	"fmt"
	"time"
)

// maxRecordPayload bounds a single record's payload. Every event payload
// the engine produces is a fixed-size codec encoding well under 128
// bytes; anything larger is corruption, not data.
const maxRecordPayload = 256

const (
	defaultSegmentMaxBytes int64 = 128 << 20
	defaultQueueSize             = 8192
	defaultBufferSize            = 64 * 1024
	defaultFilePrefix            = "journal"
)

// Config controls the journal writer. Segments rotate by size only;
// records are small and fixed-size, so time-based rotation buys nothing.
type Config struct {
	Dir             string
	FilePrefix      string
	SegmentMaxBytes int64
	QueueSize       int
	BufferSize      int
	FlushInterval   time.Duration
	SyncInterval    time.Duration
}

// DefaultConfig returns a baseline configuration for the journal writer.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:             dir,
		FilePrefix:      defaultFilePrefix,
		SegmentMaxBytes: defaultSegmentMaxBytes,
		QueueSize:       defaultQueueSize,
		BufferSize:      defaultBufferSize,
	}
}

func (c Config) withDefaults() Config {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("invalid journal config: Dir is empty")
	}
	if c.FilePrefix == "" {
		return fmt.Errorf("invalid journal config: FilePrefix is empty")
	}
	if c.SegmentMaxBytes <= 0 {
		return fmt.Errorf("invalid journal config: SegmentMaxBytes must be > 0")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("invalid journal config: QueueSize must be > 0")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid journal config: BufferSize must be > 0")
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("invalid journal config: FlushInterval must be >= 0")
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("invalid journal config: SyncInterval must be >= 0")
	}
	return nil
}
