package transcode

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// y4mStream builds a Y4M byte stream with the given header line and
// 4x4 yuv420 frames filled with the frame index.
func y4mStream(header string, frames int) []byte {
	var buf bytes.Buffer
	buf.WriteString(header)
	buf.WriteByte('\n')
	for i := 0; i < frames; i++ {
		buf.WriteString("FRAME\n")
		buf.Write(bytes.Repeat([]byte{byte(i)}, 16)) // Y 4x4
		buf.Write(bytes.Repeat([]byte{byte(i)}, 4))  // U 2x2
		buf.Write(bytes.Repeat([]byte{byte(i)}, 4))  // V 2x2
	}
	return buf.Bytes()
}

func TestY4MHeaderParsing(t *testing.T) {
	d, err := NewY4MDemuxer(bytes.NewReader(y4mStream("YUV4MPEG2 W4 H4 F30000:1001 C420 Ip A1:1", 0)))
	require.NoError(t, err)

	assert.Equal(t, 4, d.Width())
	assert.Equal(t, 4, d.Height())
	num, den := d.Framerate()
	assert.Equal(t, uint32(30000), num)
	assert.Equal(t, uint32(1001), den)
	assert.Equal(t, PixelFormatYUV420, d.Format())
}

func TestY4MHeaderDefaults(t *testing.T) {
	// Frame rate and colorspace tags are optional.
	d, err := NewY4MDemuxer(bytes.NewReader(y4mStream("YUV4MPEG2 W4 H4", 0)))
	require.NoError(t, err)

	num, den := d.Framerate()
	assert.Equal(t, uint32(25), num)
	assert.Equal(t, uint32(1), den)
	assert.Equal(t, PixelFormatYUV420, d.Format())
}

func TestY4MColorspaces(t *testing.T) {
	tests := []struct {
		tag    string
		format PixelFormat
	}{
		{"C420", PixelFormatYUV420},
		{"C420jpeg", PixelFormatYUV420},
		{"C420mpeg2", PixelFormatYUV420},
		{"C420paldv", PixelFormatYUV420},
		{"C422", PixelFormatYUV422},
		{"C444", PixelFormatYUV444},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			d, err := NewY4MDemuxer(bytes.NewReader(y4mStream("YUV4MPEG2 W4 H4 "+tt.tag, 0)))
			require.NoError(t, err)
			assert.Equal(t, tt.format, d.Format())
		})
	}
}

func TestY4MHeaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"bad magic", "JUNKMAGIC W4 H4", ErrContainerParse},
		{"missing dimensions", "YUV4MPEG2 F25:1", ErrContainerParse},
		{"unsupported colorspace", "YUV4MPEG2 W4 H4 Cmono", ErrInvalidInput},
		{"bad frame rate", "YUV4MPEG2 W4 H4 F25", ErrContainerParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewY4MDemuxer(bytes.NewReader(y4mStream(tt.header, 0)))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestY4MReadFrames(t *testing.T) {
	d, err := NewY4MDemuxer(bytes.NewReader(y4mStream("YUV4MPEG2 W4 H4 F30:1 C420", 3)))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		f, err := d.ReadFrame()
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, 4, f.Width())
		assert.Equal(t, 4, f.Height())
		assert.Equal(t, byte(i), f.Y().Row(0)[0])
		assert.Equal(t, byte(i), f.U().Row(1)[1])
	}
	assert.Equal(t, uint64(3), d.FrameCount())

	_, err = d.ReadFrame()
	assert.Equal(t, io.EOF, err)
}

func TestY4MFrameMarkerParams(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("YUV4MPEG2 W4 H4 C420\n")
	buf.WriteString("FRAME Ip X=1\n")
	buf.Write(make([]byte, 24))

	d, err := NewY4MDemuxer(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	_, err = d.ReadFrame()
	require.NoError(t, err)
}

func TestY4MTruncatedFrame(t *testing.T) {
	full := y4mStream("YUV4MPEG2 W4 H4 C420", 1)
	d, err := NewY4MDemuxer(bytes.NewReader(full[:len(full)-5]))
	require.NoError(t, err)

	_, err = d.ReadFrame()
	assert.ErrorIs(t, err, ErrContainerParse)
}

func TestY4MBadFrameMarker(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("YUV4MPEG2 W4 H4 C420\n")
	buf.WriteString("NOTAFRAME\n")

	d, err := NewY4MDemuxer(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	_, err = d.ReadFrame()
	assert.ErrorIs(t, err, ErrContainerParse)
}
