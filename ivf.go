// IVF container support for AV1 elementary streams.
//
// IVF is a simple container designed for AV1/VP9/VP8 video and is widely
// supported by players (VLC, ffmpeg). Layout: a 32-byte file header, then
// for each frame a 12-byte frame header followed by the raw payload.
package transcode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

const (
	ivfSignature       = "DKIF"
	ivfFourccAV1       = "AV01"
	ivfFileHeaderSize  = 32
	ivfFrameHeaderSize = 12
)

// ivfHeader is the 32-byte IVF file header (little-endian).
//
// The timebase pair is written denominator first, then numerator. That is
// the opposite of the usual (num, den) framerate convention but it is what
// existing readers expect at these byte offsets; do not reorder without
// verifying against a real consumer.
type ivfHeader struct {
	width       uint16
	height      uint16
	timebaseDen uint32
	timebaseNum uint32
	frameCount  uint32 // advisory, may remain 0
}

func (h *ivfHeader) marshal() []byte {
	buf := make([]byte, ivfFileHeaderSize)
	copy(buf[0:4], ivfSignature)
	binary.LittleEndian.PutUint16(buf[4:6], 0)  // version
	binary.LittleEndian.PutUint16(buf[6:8], 32) // header size
	copy(buf[8:12], ivfFourccAV1)
	binary.LittleEndian.PutUint16(buf[12:14], h.width)
	binary.LittleEndian.PutUint16(buf[14:16], h.height)
	binary.LittleEndian.PutUint32(buf[16:20], h.timebaseDen)
	binary.LittleEndian.PutUint32(buf[20:24], h.timebaseNum)
	binary.LittleEndian.PutUint32(buf[24:28], h.frameCount)
	binary.LittleEndian.PutUint32(buf[28:32], 0) // reserved
	return buf
}

// IVFMuxer writes a single AV1 video stream to an IVF container.
type IVFMuxer struct {
	w          io.Writer
	width      uint16
	height     uint16
	frameCount uint32
	finalized  bool
}

var _ Muxer = (*IVFMuxer)(nil)

// NewIVFMuxer writes the file header immediately and returns a muxer ready
// for packets. fpsNum/fpsDen are the frame rate fraction (30/1 for 30fps,
// 30000/1001 for 29.97fps).
func NewIVFMuxer(w io.Writer, width, height uint16, fpsNum, fpsDen uint32) (*IVFMuxer, error) {
	logrus.WithFields(logrus.Fields{
		"width":  width,
		"height": height,
		"fps":    fmt.Sprintf("%d/%d", fpsNum, fpsDen),
	}).Info("creating IVF muxer")

	h := ivfHeader{
		width:       width,
		height:      height,
		timebaseDen: fpsDen,
		timebaseNum: fpsNum,
	}
	if _, err := w.Write(h.marshal()); err != nil {
		return nil, fmt.Errorf("write IVF header: %w", err)
	}
	return &IVFMuxer{w: w, width: width, height: height}, nil
}

// FrameCount returns the number of packets written so far.
func (m *IVFMuxer) FrameCount() uint32 { return m.frameCount }

// Dimensions returns the video width and height.
func (m *IVFMuxer) Dimensions() (uint16, uint16) { return m.width, m.height }

// WritePacket appends one frame. Only stream index 0 is accepted: IVF
// carries a single video stream. The frame timestamp is the packet's PTS
// if present, otherwise a monotonically increasing counter.
func (m *IVFMuxer) WritePacket(pkt *Packet) error {
	if m.finalized {
		return fmt.Errorf("%w: write after finalize", ErrInvalidInput)
	}
	if pkt.StreamIndex != 0 {
		return fmt.Errorf("%w: IVF only supports stream index 0, got %d", ErrInvalidInput, pkt.StreamIndex)
	}

	timestamp := uint64(m.frameCount)
	if pkt.PTS != NoTimestamp {
		timestamp = uint64(pkt.PTS)
	}

	var hdr [ivfFrameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(pkt.Data)))
	binary.LittleEndian.PutUint64(hdr[4:12], timestamp)
	if _, err := m.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write IVF frame header: %w", err)
	}
	if _, err := m.w.Write(pkt.Data); err != nil {
		return fmt.Errorf("write IVF frame data: %w", err)
	}

	m.frameCount++
	if m.frameCount%100 == 0 {
		logrus.WithField("frames", m.frameCount).Debug("wrote IVF frames")
	}
	return nil
}

// Finalize flushes the sink. The frame-count field in the file header is
// optional per format and is not rewritten (the sink may not be seekable).
// Finalize may be called once; any further write or Finalize fails with
// ErrInvalidInput.
func (m *IVFMuxer) Finalize() error {
	if m.finalized {
		return fmt.Errorf("%w: muxer already finalized", ErrInvalidInput)
	}
	m.finalized = true

	logrus.WithField("frames", m.frameCount).Info("finalizing IVF file")

	if f, ok := m.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush IVF output: %w", err)
		}
	}
	return nil
}

// IVFDemuxer reads the single video stream back out of an IVF container.
type IVFDemuxer struct {
	r           io.Reader
	width       uint16
	height      uint16
	timebaseNum uint32
	timebaseDen uint32
	headerCount uint32 // frame count from the header; advisory, often 0
	frameIndex  uint32
}

var _ Demuxer = (*IVFDemuxer)(nil)

// NewIVFDemuxer parses the 32-byte file header and returns a demuxer
// positioned at the first frame.
func NewIVFDemuxer(r io.Reader) (*IVFDemuxer, error) {
	var buf [ivfFileHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("%w: short IVF header: %v", ErrContainerParse, err)
	}
	if string(buf[0:4]) != ivfSignature {
		return nil, fmt.Errorf("%w: bad IVF signature", ErrContainerParse)
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != 0 {
		return nil, fmt.Errorf("%w: unsupported IVF version %d", ErrContainerParse, v)
	}
	if hs := binary.LittleEndian.Uint16(buf[6:8]); hs != ivfFileHeaderSize {
		return nil, fmt.Errorf("%w: unexpected IVF header size %d", ErrContainerParse, hs)
	}
	return &IVFDemuxer{
		r:           r,
		width:       binary.LittleEndian.Uint16(buf[12:14]),
		height:      binary.LittleEndian.Uint16(buf[14:16]),
		timebaseDen: binary.LittleEndian.Uint32(buf[16:20]),
		timebaseNum: binary.LittleEndian.Uint32(buf[20:24]),
		headerCount: binary.LittleEndian.Uint32(buf[24:28]),
	}, nil
}

// Dimensions returns the video width and height from the file header.
func (d *IVFDemuxer) Dimensions() (uint16, uint16) { return d.width, d.height }

// Timebase returns the frame rate fraction as (numerator, denominator).
func (d *IVFDemuxer) Timebase() (uint32, uint32) { return d.timebaseNum, d.timebaseDen }

// ReadPacket returns the next frame, or io.EOF at a clean end of file.
// Truncation inside a frame is a parse failure, not EOF.
func (d *IVFDemuxer) ReadPacket() (*Packet, error) {
	var hdr [ivfFrameHeaderSize]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: truncated IVF frame header: %v", ErrContainerParse, err)
	}
	size := binary.LittleEndian.Uint32(hdr[0:4])
	timestamp := binary.LittleEndian.Uint64(hdr[4:12])

	data := make([]byte, size)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return nil, fmt.Errorf("%w: truncated IVF frame data: %v", ErrContainerParse, err)
	}

	d.frameIndex++
	return &Packet{
		StreamIndex: 0,
		Data:        data,
		PTS:         int64(timestamp),
		DTS:         NoTimestamp,
		Keyframe:    d.frameIndex == 1, // IVF carries no per-frame sync flag
	}, nil
}

// Metadata reports the container description. IVF cannot report a
// duration without scanning the whole file.
func (d *IVFDemuxer) Metadata() Metadata {
	return Metadata{
		StreamCount: 1,
		Format:      "IVF",
	}
}
