// Package compression compresses egress payload bytes before they are
// handed to the transport, with pooled writers per algorithm.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/sirupsen/logrus"
)

// Algorithm selects the codec applied to a payload.
type Algorithm string

const (
	AlgorithmNone   Algorithm = "none"
	AlgorithmGzip   Algorithm = "gzip"
	AlgorithmSnappy Algorithm = "snappy"
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmZstd   Algorithm = "zstd"
)

// Config tunes the compressor.
type Config struct {
	Algorithm Algorithm `yaml:"algorithm"`
	MinBytes  int       `yaml:"minBytes"` // payloads below this size skip compression
	Level     int       `yaml:"level"`
}

// Result carries a compressed payload and what was done to it.
type Result struct {
	Data           []byte
	Algorithm      Algorithm
	OriginalSize   int
	CompressedSize int
}

// Compressor compresses payloads with the configured algorithm.
type Compressor struct {
	config Config
	logger *logrus.Logger

	gzipPool sync.Pool
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdErr  error
}

// NewCompressor builds a Compressor, defaulting to snappy above 512 bytes.
func NewCompressor(config Config, logger *logrus.Logger) *Compressor {
	if config.Algorithm == "" {
		config.Algorithm = AlgorithmSnappy
	}
	if config.MinBytes == 0 {
		config.MinBytes = 512
	}
	if config.Level == 0 {
		config.Level = 6
	}
	return &Compressor{config: config, logger: logger}
}

// Compress applies the configured algorithm. Payloads below the minimum
// size, and any codec failure, fall back to the uncompressed bytes.
func (c *Compressor) Compress(data []byte) Result {
	if c.config.Algorithm == AlgorithmNone || len(data) < c.config.MinBytes {
		return Result{Data: data, Algorithm: AlgorithmNone, OriginalSize: len(data), CompressedSize: len(data)}
	}
	out, err := c.compress(data)
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).WithField("algorithm", c.config.Algorithm).Warn("compression failed, sending uncompressed")
		}
		return Result{Data: data, Algorithm: AlgorithmNone, OriginalSize: len(data), CompressedSize: len(data)}
	}
	return Result{Data: out, Algorithm: c.config.Algorithm, OriginalSize: len(data), CompressedSize: len(out)}
}

func (c *Compressor) compress(data []byte) ([]byte, error) {
	switch c.config.Algorithm {
	case AlgorithmGzip:
		return c.gzipCompress(data)
	case AlgorithmSnappy:
		return snappy.Encode(nil, data), nil
	case AlgorithmLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("lz4: incompressible payload")
		}
		return buf[:n], nil
	case AlgorithmZstd:
		c.zstdOnce.Do(func() {
			c.zstdEnc, c.zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.config.Level)))
		})
		if c.zstdErr != nil {
			return nil, c.zstdErr
		}
		return c.zstdEnc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unknown compression algorithm %q", c.config.Algorithm)
	}
}

func (c *Compressor) gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, _ := c.gzipPool.Get().(*gzip.Writer)
	if w == nil {
		var err error
		w, err = gzip.NewWriterLevel(&buf, c.config.Level)
		if err != nil {
			return nil, err
		}
	} else {
		w.Reset(&buf)
	}
	defer c.gzipPool.Put(w)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
