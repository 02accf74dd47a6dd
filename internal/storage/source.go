// Package storage opens session logs from local files and object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"

	"github.com/ConfabulousDev/aist/internal/transcript"
)

// Source is one session log the pipeline can read.
type Source interface {
	Ref() transcript.Ref
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Compression is the encoding of a stored log, derived from its name.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionBrotli
)

// CompressionOf returns the compression implied by a file or key name.
func CompressionOf(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".zst"):
		return CompressionZstd
	case strings.HasSuffix(name, ".br"):
		return CompressionBrotli
	}
	return CompressionNone
}

// IsLogName reports whether name looks like a session log, compressed or not.
func IsLogName(name string) bool {
	base := strings.TrimSuffix(strings.TrimSuffix(path.Base(name), ".zst"), ".br")
	return strings.HasSuffix(base, ".jsonl")
}

// NewRef builds the ref for a log name, recognising sub-agent logs.
func NewRef(name string) transcript.Ref {
	return transcript.Ref{Name: name, AgentID: transcript.ExtractAgentID(name)}
}

// FileSource is a log on the local filesystem.
type FileSource struct {
	Path string
}

func (f FileSource) Ref() transcript.Ref {
	return NewRef(f.Path)
}

// Open opens the file, decompressing by extension.
func (f FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	rc, err := Decompress(file, CompressionOf(f.Path))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return rc, nil
}

// Decompress wraps rc in a decoder for c. Closing the result closes rc.
func Decompress(rc io.ReadCloser, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionZstd:
		decoder, err := zstd.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return &decodingReader{Reader: decoder, closeDecoder: decoder.Close, underlying: rc}, nil
	case CompressionBrotli:
		return &decodingReader{Reader: brotli.NewReader(rc), underlying: rc}, nil
	}
	return rc, nil
}

type decodingReader struct {
	io.Reader
	closeDecoder func()
	underlying   io.Closer
}

func (d *decodingReader) Close() error {
	if d.closeDecoder != nil {
		d.closeDecoder()
	}
	return d.underlying.Close()
}
