// Codec contracts and the encoder send/receive state machine.
package transcode

import (
	"fmt"
	"io"
)

// VideoEncoder encodes raw frames into compressed packets through a
// buffering state machine:
//
//	Open      frames may be submitted via SendFrame
//	Draining  after SendFrame(nil): only packet retrieval is permitted
//	Closed    after ReceivePacket has returned io.EOF, or after Close
//
// Encoders may hold several frames before emitting the first packet
// (lookahead, rate control), so callers poll ReceivePacket in a loop and
// never assume one packet per frame. Emission order is stable but not
// guaranteed 1:1 with submission order; timestamps must be taken from the
// packet, never inferred from submission sequence.
//
// The send/receive protocol is not reentrant: exactly one logical caller
// drives a given encoder instance at a time.
type VideoEncoder interface {
	// SendFrame submits a frame, or signals end-of-stream when f is nil.
	// Valid only in the Open state; a frame whose dimensions or format
	// don't match the encoder configuration fails with ErrInvalidInput.
	SendFrame(f *SharedFrame) error

	// ReceivePacket returns the next packet, ErrAgain while the encoder is
	// still buffering, or io.EOF once draining has fully flushed.
	ReceivePacket() (*Packet, error)

	// Finish signals end-of-stream and drains all remaining packets in
	// emission order.
	Finish() ([]*Packet, error)

	// Close releases all owned resources (buffers, worker threads, any
	// foreign handle). Safe to call more than once and on a partially
	// initialized encoder.
	Close() error
}

// VideoDecoder decodes compressed packet data into frames. Returns
// (nil, nil) while the decoder is buffering.
type VideoDecoder interface {
	Decode(data []byte) (*Frame, error)
	Close() error
}

// Backend selects a video encoder implementation. Backends are a closed
// set; each carries its own configuration and all implement the same
// send/receive protocol, so the pipeline is backend-agnostic.
type Backend int

const (
	// BackendSVT is the SVT-AV1 encoder loaded from a native library.
	BackendSVT Backend = iota
)

func (b Backend) String() string {
	switch b {
	case BackendSVT:
		return "svt-av1"
	default:
		return "unknown"
	}
}

// BackendFromString parses a backend name.
func BackendFromString(s string) (Backend, bool) {
	switch s {
	case "svt-av1", "svtav1":
		return BackendSVT, true
	}
	return 0, false
}

// EncoderConfig selects and configures an encoder backend.
type EncoderConfig struct {
	Backend Backend
	SVT     SVTConfig
}

// NewVideoEncoder creates an encoder for the configured backend.
func NewVideoEncoder(cfg EncoderConfig) (VideoEncoder, error) {
	switch cfg.Backend {
	case BackendSVT:
		return NewSVTEncoder(cfg.SVT)
	default:
		return nil, fmt.Errorf("%w: unknown encoder backend %d", ErrInvalidInput, cfg.Backend)
	}
}

// encoderBackend is the narrow surface a concrete backend exposes to the
// state machine: push a frame or end-of-stream, pull one packet.
type encoderBackend interface {
	// push hands one validated frame to the backend. pts is the timestamp
	// the backend should stamp on the eventual packet.
	push(f *SharedFrame, pts int64) error

	// pushEOS signals end-of-stream so buffered frames can be flushed.
	pushEOS() error

	// pull returns one packet, ErrAgain if none is ready, or io.EOF once
	// the backend has flushed everything after pushEOS.
	pull() (*Packet, error)

	close() error
}

type encoderState int

const (
	stateOpen encoderState = iota
	stateDraining
	stateClosed
)

// videoEncoder runs the Open -> Draining -> Closed protocol over a
// backend, handling frame validation and PTS fallback in one place.
type videoEncoder struct {
	backend    encoderBackend
	width      int
	height     int
	format     PixelFormat
	state      encoderState
	frameCount int64
}

var _ VideoEncoder = (*videoEncoder)(nil)

func newVideoEncoder(backend encoderBackend, width, height int, format PixelFormat) *videoEncoder {
	return &videoEncoder{
		backend: backend,
		width:   width,
		height:  height,
		format:  format,
	}
}

func (e *videoEncoder) SendFrame(f *SharedFrame) error {
	if e.state != stateOpen {
		return fmt.Errorf("%w: send after end-of-stream", ErrInvalidInput)
	}
	if f == nil {
		e.state = stateDraining
		return e.backend.pushEOS()
	}
	if f.Width() != e.width || f.Height() != e.height {
		return fmt.Errorf("%w: frame size %dx%d doesn't match encoder config %dx%d",
			ErrInvalidInput, f.Width(), f.Height(), e.width, e.height)
	}
	if f.Format() != e.format {
		return fmt.Errorf("%w: encoder requires %s frames, got %s",
			ErrInvalidInput, e.format, f.Format())
	}

	pts := f.PTS()
	if pts == NoTimestamp {
		pts = e.frameCount
	}
	if err := e.backend.push(f, pts); err != nil {
		return err
	}
	e.frameCount++
	return nil
}

func (e *videoEncoder) ReceivePacket() (*Packet, error) {
	if e.state == stateClosed {
		return nil, io.EOF
	}
	pkt, err := e.backend.pull()
	if err == io.EOF {
		e.state = stateClosed
		return nil, io.EOF
	}
	return pkt, err
}

func (e *videoEncoder) Finish() ([]*Packet, error) {
	if e.state == stateOpen {
		if err := e.SendFrame(nil); err != nil {
			return nil, err
		}
	}
	var packets []*Packet
	for {
		pkt, err := e.ReceivePacket()
		switch {
		case err == io.EOF:
			return packets, nil
		case err == ErrAgain:
			continue
		case err != nil:
			return packets, err
		default:
			packets = append(packets, pkt)
		}
	}
}

func (e *videoEncoder) Close() error {
	e.state = stateClosed
	return e.backend.close()
}
