package transcode

import "math"

// NoTimestamp marks an absent PTS or DTS value. Some containers cannot
// report timestamps for every packet.
const NoTimestamp int64 = math.MinInt64

// Packet is an encoded, opaque chunk of bitstream data with timing
// metadata. It is fully owned and independently movable between the
// demux/mux and codec layers.
type Packet struct {
	StreamIndex int    // stream or track the packet belongs to
	Data        []byte // owned payload bytes
	PTS         int64  // presentation timestamp, NoTimestamp if absent
	DTS         int64  // decode timestamp, NoTimestamp if absent
	Keyframe    bool   // decodable without prior reference frames
}

// NewPacket returns a packet with both timestamps unset.
func NewPacket(streamIndex int, data []byte) *Packet {
	return &Packet{
		StreamIndex: streamIndex,
		Data:        data,
		PTS:         NoTimestamp,
		DTS:         NoTimestamp,
	}
}

// Metadata describes an open container. Computed once at open time,
// immutable thereafter.
type Metadata struct {
	DurationMS  uint64 // duration in milliseconds, valid if HasDuration
	HasDuration bool   // some containers cannot report a duration
	StreamCount int
	Format      string
}

// Demuxer reads packets from a container. ReadPacket returns io.EOF when
// the active stream is exhausted; any other error is a parse or I/O
// failure.
type Demuxer interface {
	ReadPacket() (*Packet, error)
	Metadata() Metadata
}

// Muxer writes packets to a container. Finalize flushes and closes the
// container; it may be called exactly once, and any write after it fails
// with ErrInvalidInput rather than panicking.
type Muxer interface {
	WritePacket(pkt *Packet) error
	Finalize() error
}
