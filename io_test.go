package transcode

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesSource(t *testing.T) {
	src := NewBytesSource([]byte("hello world"))

	assert.True(t, src.Seekable())
	assert.Equal(t, int64(11), src.Size())

	buf := make([]byte, 5)
	_, err := io.ReadFull(src, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	_, err = src.Seek(6, io.SeekStart)
	require.NoError(t, err)
	_, err = io.ReadFull(src, buf)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf))
}

func TestStreamSource(t *testing.T) {
	src := NewStreamSource(strings.NewReader("data"))

	assert.False(t, src.Seekable())
	assert.Equal(t, int64(-1), src.Size())

	_, err := src.Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, ErrInvalidInput)

	buf := make([]byte, 4)
	_, err = io.ReadFull(src, buf)
	require.NoError(t, err)
	assert.Equal(t, "data", string(buf))
}
