// Audio decoding collaborators for demuxed audio tracks.
package transcode

import (
	"fmt"

	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// PCMBlock is one block of decoded audio: interleaved signed 16-bit
// little-endian samples.
type PCMBlock struct {
	Samples    []int16
	SampleRate uint32
	Stereo     bool
}

// AudioDecoder decodes compressed audio packet data into PCM blocks.
type AudioDecoder interface {
	Decode(data []byte) (*PCMBlock, error)
	Close() error
}

// OpusDecoder decodes Opus packets using a pure Go decoder, so audio
// tracks need no native library.
type OpusDecoder struct {
	dec *opus.Decoder
	out []byte
}

var _ AudioDecoder = (*OpusDecoder)(nil)

// NewOpusDecoder creates a decoder sized for frames up to 40ms at 48kHz.
func NewOpusDecoder() *OpusDecoder {
	dec := opus.NewDecoder()
	return &OpusDecoder{
		dec: &dec,
		out: make([]byte, 1920*2*2), // samples * stereo * int16
	}
}

// Decode decodes one Opus packet. The sample rate is derived from the
// bandwidth signaled in the packet itself.
func (d *OpusDecoder) Decode(data []byte) (*PCMBlock, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty opus packet", ErrInvalidInput)
	}

	bandwidth, isStereo, err := d.dec.Decode(data, d.out)
	if err != nil {
		return nil, fmt.Errorf("%w: opus decode: %v", ErrCodec, err)
	}

	sampleCount := len(d.out) / 2
	samples := make([]int16, sampleCount)
	for i := 0; i < sampleCount; i++ {
		samples[i] = int16(d.out[i*2]) | int16(d.out[i*2+1])<<8
	}

	logrus.WithFields(logrus.Fields{
		"bandwidth": bandwidth.String(),
		"stereo":    isStereo,
		"samples":   sampleCount,
	}).Debug("decoded opus packet")

	return &PCMBlock{
		Samples:    samples,
		SampleRate: uint32(bandwidth.SampleRate()),
		Stereo:     isStereo,
	}, nil
}

// Close releases decoder state. The pure Go decoder holds no foreign
// resources, so this never fails.
func (d *OpusDecoder) Close() error {
	d.dec = nil
	return nil
}

// NewAACDecoder reports AAC as unsupported. AAC tracks can be enumerated
// and demuxed, but there is no decode path yet.
//
// TODO: wire an AAC decoder once a maintained pure Go implementation or
// wrapper library is settled on.
func NewAACDecoder() (AudioDecoder, error) {
	return nil, fmt.Errorf("%w: AAC decoding not implemented", ErrUnsupportedFormat)
}
