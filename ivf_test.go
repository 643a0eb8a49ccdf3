package transcode

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIVFHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewIVFMuxer(&buf, 1920, 1080, 30000, 1001)
	require.NoError(t, err)

	hdr := buf.Bytes()
	require.Len(t, hdr, ivfFileHeaderSize)

	assert.Equal(t, "DKIF", string(hdr[0:4]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(hdr[4:6]), "version")
	assert.Equal(t, uint16(32), binary.LittleEndian.Uint16(hdr[6:8]), "header size")
	assert.Equal(t, "AV01", string(hdr[8:12]))
	assert.Equal(t, uint16(1920), binary.LittleEndian.Uint16(hdr[12:14]))
	assert.Equal(t, uint16(1080), binary.LittleEndian.Uint16(hdr[14:16]))
	// Timebase denominator sits before numerator in the file.
	assert.Equal(t, uint32(1001), binary.LittleEndian.Uint32(hdr[16:20]))
	assert.Equal(t, uint32(30000), binary.LittleEndian.Uint32(hdr[20:24]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(hdr[24:28]), "frame count")
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(hdr[28:32]), "reserved")
}

func TestIVFRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	mux, err := NewIVFMuxer(&buf, 320, 240, 30, 1)
	require.NoError(t, err)

	frames := [][]byte{
		{0x0A, 0x0B, 0x0C},
		{0x01},
		{0xFF, 0xFE, 0xFD, 0xFC, 0xFB},
	}
	for i, data := range frames {
		pkt := NewPacket(0, data)
		pkt.PTS = int64(i * 100)
		require.NoError(t, mux.WritePacket(pkt))
	}
	require.NoError(t, mux.Finalize())
	assert.Equal(t, uint32(3), mux.FrameCount())

	demux, err := NewIVFDemuxer(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	w, h := demux.Dimensions()
	assert.Equal(t, uint16(320), w)
	assert.Equal(t, uint16(240), h)
	num, den := demux.Timebase()
	assert.Equal(t, uint32(30), num)
	assert.Equal(t, uint32(1), den)

	for i, want := range frames {
		pkt, err := demux.ReadPacket()
		require.NoError(t, err)
		assert.Equal(t, want, pkt.Data)
		assert.Equal(t, int64(i*100), pkt.PTS)
		assert.Equal(t, 0, pkt.StreamIndex)
		assert.Equal(t, i == 0, pkt.Keyframe)
	}
	_, err = demux.ReadPacket()
	assert.Equal(t, io.EOF, err)
}

func TestIVFMuxerTimestampFallback(t *testing.T) {
	var buf bytes.Buffer
	mux, err := NewIVFMuxer(&buf, 64, 64, 25, 1)
	require.NoError(t, err)

	// Packets without a PTS get consecutive frame indexes.
	require.NoError(t, mux.WritePacket(NewPacket(0, []byte{1})))
	require.NoError(t, mux.WritePacket(NewPacket(0, []byte{2})))
	require.NoError(t, mux.Finalize())

	demux, err := NewIVFDemuxer(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	pkt, err := demux.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pkt.PTS)
	pkt, err = demux.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pkt.PTS)
}

func TestIVFMuxerRejectsOtherStreams(t *testing.T) {
	var buf bytes.Buffer
	mux, err := NewIVFMuxer(&buf, 64, 64, 25, 1)
	require.NoError(t, err)

	err = mux.WritePacket(NewPacket(1, []byte{1}))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIVFMuxerFinalizeOnce(t *testing.T) {
	var buf bytes.Buffer
	mux, err := NewIVFMuxer(&buf, 64, 64, 25, 1)
	require.NoError(t, err)

	require.NoError(t, mux.Finalize())

	assert.ErrorIs(t, mux.Finalize(), ErrInvalidInput)
	assert.ErrorIs(t, mux.WritePacket(NewPacket(0, []byte{1})), ErrInvalidInput)
}

func TestIVFDemuxerBadInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte("DKIF")},
		{"bad signature", bytes.Repeat([]byte{0xAA}, ivfFileHeaderSize)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIVFDemuxer(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrContainerParse)
		})
	}
}

func TestIVFDemuxerTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	mux, err := NewIVFMuxer(&buf, 64, 64, 25, 1)
	require.NoError(t, err)
	require.NoError(t, mux.WritePacket(NewPacket(0, []byte{1, 2, 3, 4})))

	// Cut inside the frame payload: a parse failure, not a clean EOF.
	cut := buf.Bytes()[:buf.Len()-2]
	demux, err := NewIVFDemuxer(bytes.NewReader(cut))
	require.NoError(t, err)

	_, err = demux.ReadPacket()
	assert.ErrorIs(t, err, ErrContainerParse)
	assert.NotEqual(t, io.EOF, err)
}

func TestIVFDemuxerMetadata(t *testing.T) {
	var buf bytes.Buffer
	mux, err := NewIVFMuxer(&buf, 64, 64, 25, 1)
	require.NoError(t, err)
	require.NoError(t, mux.Finalize())

	demux, err := NewIVFDemuxer(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	meta := demux.Metadata()
	assert.Equal(t, 1, meta.StreamCount)
	assert.Equal(t, "IVF", meta.Format)
	assert.False(t, meta.HasDuration)
}
