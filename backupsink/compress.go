package backupsink

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the compression algorithm CompressingSink applies before
// writing to the wrapped sink.
type Codec int

const (
	Zstd Codec = iota
	LZ4
)

// CompressingSink wraps another io.WriteCloser, compressing every byte
// written to it before passing the compressed stream through. Close closes
// the compressor (flushing its final frame) and then the wrapped sink, in
// that order, so the wrapped sink never sees a truncated stream.
type CompressingSink struct {
	inner   io.WriteCloser
	encoder io.WriteCloser
}

// NewCompressingSink wraps inner with the given codec.
func NewCompressingSink(inner io.WriteCloser, codec Codec) (*CompressingSink, error) {
	switch codec {
	case Zstd:
		enc, err := zstd.NewWriter(inner)
		if err != nil {
			return nil, fmt.Errorf("backupsink: creating zstd encoder: %w", err)
		}
		return &CompressingSink{inner: inner, encoder: enc}, nil
	case LZ4:
		enc := lz4.NewWriter(inner)
		return &CompressingSink{inner: inner, encoder: enc}, nil
	default:
		return nil, fmt.Errorf("backupsink: unknown codec %d", codec)
	}
}

func (s *CompressingSink) Write(p []byte) (int, error) { return s.encoder.Write(p) }

func (s *CompressingSink) Close() error {
	if err := s.encoder.Close(); err != nil {
		return fmt.Errorf("backupsink: closing encoder: %w", err)
	}
	return s.inner.Close()
}
