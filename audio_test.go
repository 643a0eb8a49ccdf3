package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpusDecoderEmptyPacket(t *testing.T) {
	d := NewOpusDecoder()
	defer d.Close()

	_, err := d.Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOpusDecoderGarbage(t *testing.T) {
	d := NewOpusDecoder()
	defer d.Close()

	// A packet the bitstream parser cannot make sense of is a codec
	// failure, not a panic.
	_, err := d.Decode([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	if err != nil {
		assert.ErrorIs(t, err, ErrCodec)
	}
}

func TestOpusDecoderClose(t *testing.T) {
	d := NewOpusDecoder()
	require.NoError(t, d.Close())
}

func TestAACDecoderUnsupported(t *testing.T) {
	_, err := NewAACDecoder()
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
