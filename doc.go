// Package transcode is a media transcoding core: it reads compressed
// containers, exposes elementary packet streams, carries raw frame buffers
// between codec stages, and writes output containers.
//
// Key pieces include:
//   - Frame/Plane: planar pixel buffers with format-driven subsampling and
//     32-byte aligned plane memory for vectorized row operations
//   - Demuxer/Muxer: container contracts, with MP4 (demux), IVF (mux and
//     demux), and Y4M (demux) implementations
//   - VideoEncoder: a send/receive state machine over pluggable backends,
//     with automatic spatial tile sizing for multi-core encoding
//   - RTP packetization for AV1 encoder output
//
// # Architecture
//
//	byte source -> Demuxer -> Packet stream -> decoder -> Frame stream
//	            -> VideoEncoder -> Packet stream -> Muxer -> byte sink
//
// Demuxing is synchronous and pull-based, one active elementary stream per
// demuxer instance. Frames are built single-owner and then shared read-only
// across pipeline stages via SharedFrame; no lock guards plane memory, so a
// shared frame must never be mutated.
//
// # Native Libraries
//
// The SVT-AV1 encoder backend loads libtranscode_svt via purego
// (CGO_ENABLED=0). Set TRANSCODE_SVT_LIB_PATH to the directory containing
// the library. Availability is detected at runtime; everything else is
// pure Go.
package transcode
