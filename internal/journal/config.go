package journal

import (
	"time"

	"hftexec/internal/errors"
	"hftexec/pkg/exception"
)

const (
	defaultSegmentMaxBytes int64 = 256 << 20
	defaultQueueSize             = 4096
	defaultBufferSize            = 64 * 1024
	defaultFilePrefix            = "journal"
	fileSuffix                   = ".jnl"
)

var defaultSegmentMaxDuration = time.Hour

// Config controls journal writer behavior.
type Config struct {
	Dir                string
	FilePrefix         string
	SegmentMaxBytes    int64
	SegmentMaxDuration time.Duration
	QueueSize          int
	BufferSize         int
	FlushInterval      time.Duration
	// Topics limits what is journaled. Empty journals every topic.
	Topics []string
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:                dir,
		FilePrefix:         defaultFilePrefix,
		SegmentMaxBytes:    defaultSegmentMaxBytes,
		SegmentMaxDuration: defaultSegmentMaxDuration,
		QueueSize:          defaultQueueSize,
		BufferSize:         defaultBufferSize,
		FlushInterval:      time.Second,
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

func (c Config) Validate() error {
	switch {
	case c.Dir == "":
		return errors.Wrap(exception.ErrInvalidArgument, "journal dir is empty")
	case c.SegmentMaxBytes <= 0:
		return errors.Wrap(exception.ErrInvalidArgument, "journal segment_max_bytes must be > 0")
	case c.SegmentMaxDuration < 0:
		return errors.Wrap(exception.ErrInvalidArgument, "journal segment_max_duration must be >= 0")
	case c.QueueSize <= 0:
		return errors.Wrap(exception.ErrInvalidArgument, "journal queue_size must be > 0")
	case c.BufferSize <= 0:
		return errors.Wrap(exception.ErrInvalidArgument, "journal buffer_size must be > 0")
	case c.FlushInterval < 0:
		return errors.Wrap(exception.ErrInvalidArgument, "journal flush_interval must be >= 0")
	}
	return nil
}
