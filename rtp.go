// RTP payloading for encoded AV1 packets, for callers that forward
// encoder output onto a network path instead of a container.
package transcode

import (
	"fmt"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

const (
	av1ClockRate  = 90000
	rtpHeaderSize = 12
	defaultMTU    = 1200
)

// AV1Packetizer splits encoded AV1 packets (sequences of OBUs) into RTP
// packets using the RFC 9000 aggregation format.
type AV1Packetizer struct {
	mu          sync.Mutex
	ssrc        uint32
	payloadType uint8
	mtu         int
	sequencer   rtp.Sequencer
	payloader   *codecs.AV1Payloader
}

// NewAV1Packetizer creates a packetizer with the given SSRC and payload
// type. mtu <= 0 selects the default of 1200 bytes.
func NewAV1Packetizer(ssrc uint32, payloadType uint8, mtu int) *AV1Packetizer {
	if mtu <= 0 {
		mtu = defaultMTU
	}
	return &AV1Packetizer{
		ssrc:        ssrc,
		payloadType: payloadType,
		mtu:         mtu,
		sequencer:   rtp.NewRandomSequencer(),
		payloader:   &codecs.AV1Payloader{},
	}
}

// Packetize converts one encoded packet into RTP packets. The marker bit
// is set on the last packet of the frame. The packet PTS is interpreted
// as frame index free-running at the 90kHz AV1 RTP clock unless the
// caller rescales it beforehand.
func (p *AV1Packetizer) Packetize(pkt *Packet) ([]*rtp.Packet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pkt == nil || len(pkt.Data) == 0 {
		return nil, nil
	}
	if pkt.PTS == NoTimestamp {
		return nil, fmt.Errorf("%w: packet has no timestamp", ErrInvalidInput)
	}

	payloads := p.payloader.Payload(uint16(p.mtu-rtpHeaderSize), pkt.Data)
	if len(payloads) == 0 {
		return nil, nil
	}

	packets := make([]*rtp.Packet, len(payloads))
	for i, payload := range payloads {
		packets[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         i == len(payloads)-1,
				PayloadType:    p.payloadType,
				SequenceNumber: p.sequencer.NextSequenceNumber(),
				Timestamp:      uint32(pkt.PTS),
				SSRC:           p.ssrc,
			},
			Payload: payload,
		}
	}
	return packets, nil
}

// PacketizeToBytes converts one encoded packet into marshaled RTP packet
// bytes ready to hand to a transport.
func (p *AV1Packetizer) PacketizeToBytes(pkt *Packet) ([][]byte, error) {
	packets, err := p.Packetize(pkt)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(packets))
	for i, rp := range packets {
		out[i], err = rp.Marshal()
		if err != nil {
			return nil, fmt.Errorf("marshal RTP packet: %w", err)
		}
	}
	return out, nil
}

// SSRC returns the stream's synchronization source identifier.
func (p *AV1Packetizer) SSRC() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ssrc
}

// MTU returns the configured maximum transmission unit.
func (p *AV1Packetizer) MTU() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mtu
}

// SetMTU changes the maximum transmission unit for subsequent frames.
func (p *AV1Packetizer) SetMTU(mtu int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mtu > rtpHeaderSize {
		p.mtu = mtu
	}
}
