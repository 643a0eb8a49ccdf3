// Planar frame and plane buffer types used across the pipeline.
package transcode

import "unsafe"

// PixelFormat represents video pixel formats.
type PixelFormat int

const (
	PixelFormatYUV420 PixelFormat = iota // YUV 4:2:0 planar (Y + U + V)
	PixelFormatYUV422                    // YUV 4:2:2 planar
	PixelFormatYUV444                    // YUV 4:4:4 planar
	PixelFormatRGB24                     // Packed RGB, 3 bytes per pixel
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatYUV420:
		return "yuv420p"
	case PixelFormatYUV422:
		return "yuv422p"
	case PixelFormatYUV444:
		return "yuv444p"
	case PixelFormatRGB24:
		return "rgb24"
	default:
		return "unknown"
	}
}

// PlaneCount returns the number of planes for this pixel format.
func (p PixelFormat) PlaneCount() int {
	switch p {
	case PixelFormatYUV420, PixelFormatYUV422, PixelFormatYUV444:
		return 3 // Y, U, V
	case PixelFormatRGB24:
		return 1 // Packed
	default:
		return 0
	}
}

// planeAlign is the base-address alignment of plane buffers. Vectorized row
// operations (AVX, NEON) in the native encoder backends rely on it.
const planeAlign = 32

// alignedBytes allocates n zeroed bytes whose base address is aligned to
// planeAlign, regardless of n.
func alignedBytes(n int) []byte {
	buf := make([]byte, n+planeAlign-1)
	off := 0
	if rem := uintptr(unsafe.Pointer(unsafe.SliceData(buf))) % planeAlign; rem != 0 {
		off = planeAlign - int(rem)
	}
	return buf[off : off+n : off+n]
}

// Plane is a single channel's pixel buffer within a Frame.
type Plane struct {
	data   []byte
	width  int
	height int
	stride int // bytes per row, >= width
}

// NewPlane allocates a zero-filled plane. The initial stride equals width
// and the buffer base address is 32-byte aligned.
func NewPlane(width, height int) *Plane {
	stride := width
	return &Plane{
		data:   alignedBytes(stride * height),
		width:  width,
		height: height,
		stride: stride,
	}
}

// Width returns the plane width in pixels.
func (p *Plane) Width() int { return p.width }

// Height returns the plane height in pixels.
func (p *Plane) Height() int { return p.height }

// Stride returns the number of bytes per row.
func (p *Plane) Stride() int { return p.stride }

// Data returns the raw pixel buffer of stride*height bytes.
func (p *Plane) Data() []byte { return p.data }

// Row returns exactly width bytes at row y. Indexing beyond height is a
// precondition violation and panics.
func (p *Plane) Row(y int) []byte {
	start := y * p.stride
	return p.data[start : start+p.width]
}

// Frame is a decoded picture: one or more planes plus format and timestamp.
// For YUV formats planes are ordered [Y, U, V]. Plane count and dimensions
// are fully determined by (format, width, height); no other plane shapes
// are valid.
type Frame struct {
	planes []*Plane
	width  int // luma resolution
	height int
	format PixelFormat
	pts    int64
}

// NewFrame builds the plane set for the given format:
//
//	yuv420p  Y: w*h, U,V: w/2 * h/2
//	yuv422p  Y: w*h, U,V: w/2 * h
//	yuv444p  Y,U,V: w*h
//	rgb24    single interleaved plane: w*3 * h
func NewFrame(width, height int, format PixelFormat) *Frame {
	var planes []*Plane
	switch format {
	case PixelFormatYUV420:
		planes = []*Plane{
			NewPlane(width, height),
			NewPlane(width/2, height/2),
			NewPlane(width/2, height/2),
		}
	case PixelFormatYUV422:
		planes = []*Plane{
			NewPlane(width, height),
			NewPlane(width/2, height),
			NewPlane(width/2, height),
		}
	case PixelFormatYUV444:
		planes = []*Plane{
			NewPlane(width, height),
			NewPlane(width, height),
			NewPlane(width, height),
		}
	case PixelFormatRGB24:
		planes = []*Plane{NewPlane(width*3, height)}
	}
	return &Frame{
		planes: planes,
		width:  width,
		height: height,
		format: format,
		pts:    NoTimestamp,
	}
}

// Width returns the frame width at luma resolution.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height at luma resolution.
func (f *Frame) Height() int { return f.height }

// Format returns the pixel format.
func (f *Frame) Format() PixelFormat { return f.format }

// PTS returns the presentation timestamp, or NoTimestamp if unset.
func (f *Frame) PTS() int64 { return f.pts }

// SetPTS sets the presentation timestamp.
func (f *Frame) SetPTS(pts int64) { f.pts = pts }

// Planes returns the frame's planes.
func (f *Frame) Planes() []*Plane { return f.planes }

// Y returns the luma plane, or nil for packed formats.
func (f *Frame) Y() *Plane {
	if f.format == PixelFormatRGB24 {
		return nil
	}
	return f.planes[0]
}

// U returns the first chroma plane, or nil for packed formats.
func (f *Frame) U() *Plane {
	if f.format == PixelFormatRGB24 {
		return nil
	}
	return f.planes[1]
}

// V returns the second chroma plane, or nil for packed formats.
func (f *Frame) V() *Plane {
	if f.format == PixelFormatRGB24 {
		return nil
	}
	return f.planes[2]
}

// Share converts the frame into a read-only shared handle for handing
// across an ownership boundary (into an encoder, across goroutines).
//
// SharedFrame is the sole mechanism preventing concurrent-mutation races:
// no lock guards plane memory, so once a frame is shared no holder may
// mutate plane contents. The original *Frame must not be written through
// after Share.
func (f *Frame) Share() *SharedFrame {
	return &SharedFrame{f: f}
}

// SharedFrame is a read-only view of a Frame, safe to hold from multiple
// goroutines for an arbitrary lifetime. It exposes no mutating accessor;
// callers must not modify the returned row or plane data.
type SharedFrame struct {
	f *Frame
}

// Width returns the frame width at luma resolution.
func (s *SharedFrame) Width() int { return s.f.width }

// Height returns the frame height at luma resolution.
func (s *SharedFrame) Height() int { return s.f.height }

// Format returns the pixel format.
func (s *SharedFrame) Format() PixelFormat { return s.f.format }

// PTS returns the presentation timestamp, or NoTimestamp if unset.
func (s *SharedFrame) PTS() int64 { return s.f.pts }

// PlaneCount returns the number of planes.
func (s *SharedFrame) PlaneCount() int { return len(s.f.planes) }

// Plane returns plane i for reading.
func (s *SharedFrame) Plane(i int) *Plane { return s.f.planes[i] }

// Row returns row y of plane i for reading.
func (s *SharedFrame) Row(plane, y int) []byte { return s.f.planes[plane].Row(y) }
