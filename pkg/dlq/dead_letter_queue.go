// Package dlq persists output elements that could not be published, one
// JSON line per entry, so operators can inspect or replay them.
package dlq

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"streamteam/internal/metrics"
)

// Config tunes the dead-letter sink.
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	Directory   string `yaml:"directory"`
	MaxFileSize int64  `yaml:"maxFileSize"`
}

// Entry is one dead-lettered publish.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	StreamName string    `json:"streamName"`
	Key        string    `json:"key"`
	Payload    []byte    `json:"payload"`
	Error      string    `json:"error"`
	Reason     string    `json:"reason"`
}

// DeadLetterQueue appends entries to a size-rotated file.
type DeadLetterQueue struct {
	config Config
	logger *logrus.Logger

	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	written int64
}

// New builds the sink; the directory is created on first write.
func New(config Config, logger *logrus.Logger) *DeadLetterQueue {
	if config.Directory == "" {
		config.Directory = "dlq"
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = 64 << 20
	}
	return &DeadLetterQueue{config: config, logger: logger}
}

// Add appends one failed publish. Failures to persist are logged; the
// entry is lost but the caller keeps running.
func (q *DeadLetterQueue) Add(streamName, key string, payload []byte, reason string, cause error) {
	if !q.config.Enabled {
		return
	}
	entry := Entry{
		Timestamp:  time.Now(),
		StreamName: streamName,
		Key:        key,
		Payload:    payload,
		Reason:     reason,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.write(entry); err != nil {
		if q.logger != nil {
			q.logger.WithError(err).Warn("dead-letter write failed")
		}
		return
	}
	metrics.DLQEntriesTotal.WithLabelValues(streamName, reason).Inc()
}

func (q *DeadLetterQueue) write(entry Entry) error {
	if q.file == nil || q.written >= q.config.MaxFileSize {
		if err := q.rotate(); err != nil {
			return err
		}
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	n, err := q.writer.Write(append(line, '\n'))
	q.written += int64(n)
	if err != nil {
		return err
	}
	return q.writer.Flush()
}

func (q *DeadLetterQueue) rotate() error {
	if q.file != nil {
		q.writer.Flush()
		q.file.Close()
	}
	if err := os.MkdirAll(q.config.Directory, 0o755); err != nil {
		return err
	}
	name := filepath.Join(q.config.Directory, fmt.Sprintf("dlq-%d.jsonl", time.Now().UnixMilli()))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	q.file = f
	q.writer = bufio.NewWriter(f)
	q.written = 0
	return nil
}

// Close flushes and closes the current file.
func (q *DeadLetterQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.file == nil {
		return nil
	}
	q.writer.Flush()
	err := q.file.Close()
	q.file = nil
	return err
}
