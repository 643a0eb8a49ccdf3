// I/O abstractions for media byte sources.
package transcode

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Source is a media byte source: files, in-memory buffers, or streams.
// It combines ReadSeeker with runtime seekability detection so the same
// API handles both seekable (files) and non-seekable (stdin, network)
// inputs. Formats that need random access check Seekable and Size up
// front and reject sources that cannot provide them.
type Source interface {
	io.ReadSeeker

	// Seekable reports whether Seek actually works on this source.
	Seekable() bool

	// Size returns the total length in bytes, or -1 if unknown.
	Size() int64
}

// FileSource adapts an *os.File to Source.
type FileSource struct {
	*os.File
}

// NewFileSource wraps an open file.
func NewFileSource(f *os.File) FileSource { return FileSource{File: f} }

func (f FileSource) Seekable() bool { return true }

func (f FileSource) Size() int64 {
	info, err := f.Stat()
	if err != nil {
		return -1
	}
	return info.Size()
}

// BytesSource adapts an in-memory byte slice to Source.
type BytesSource struct {
	*bytes.Reader
}

// NewBytesSource wraps a byte slice.
func NewBytesSource(data []byte) *BytesSource {
	return &BytesSource{Reader: bytes.NewReader(data)}
}

func (b *BytesSource) Seekable() bool { return true }

func (b *BytesSource) Size() int64 { return b.Reader.Size() }

// StreamSource wraps a non-seekable reader (stdin, a network stream) so it
// satisfies Source. Seek always fails and Size is unknown.
type StreamSource struct {
	r io.Reader
}

// NewStreamSource wraps a plain reader.
func NewStreamSource(r io.Reader) *StreamSource { return &StreamSource{r: r} }

func (s *StreamSource) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *StreamSource) Seek(offset int64, whence int) (int64, error) {
	return 0, fmt.Errorf("%w: source does not support seeking", ErrInvalidInput)
}

func (s *StreamSource) Seekable() bool { return false }

func (s *StreamSource) Size() int64 { return -1 }
