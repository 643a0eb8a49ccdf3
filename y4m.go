// Y4M (YUV4MPEG2) support for raw video input.
//
// Y4M is a text-header format used throughout video processing pipelines:
// one ASCII header line declaring geometry, frame rate, and colorspace,
// then repeated FRAME markers each followed by raw Y/U/V byte runs.
//
// Common workflow:
//
//	ffmpeg -i input.mp4 -f yuv4mpeg - | encode to IVF
package transcode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const y4mMagic = "YUV4MPEG2"

// Y4MDemuxer reads raw YUV frames from any byte stream, seekable or not
// (including process standard input).
type Y4MDemuxer struct {
	br         *bufio.Reader
	width      int
	height     int
	fpsNum     uint32
	fpsDen     uint32
	format     PixelFormat
	frameCount uint64
}

// NewY4MDemuxer parses the stream header. Only 4:2:0-family, 4:2:2, and
// 4:4:4 colorspaces are accepted; any other tag fails immediately with
// ErrInvalidInput, before any frame is read.
func NewY4MDemuxer(r io.Reader) (*Y4MDemuxer, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: reading Y4M header: %v", ErrContainerParse, err)
	}
	line = strings.TrimSuffix(line, "\n")

	fields := strings.Split(line, " ")
	if fields[0] != y4mMagic {
		return nil, fmt.Errorf("%w: missing YUV4MPEG2 signature", ErrContainerParse)
	}

	d := &Y4MDemuxer{
		br:     br,
		fpsNum: 25, // Y4M default frame rate
		fpsDen: 1,
		format: PixelFormatYUV420, // C tag defaults to 4:2:0
	}

	for _, f := range fields[1:] {
		if f == "" {
			continue
		}
		tag, val := f[0], f[1:]
		switch tag {
		case 'W':
			d.width, err = strconv.Atoi(val)
		case 'H':
			d.height, err = strconv.Atoi(val)
		case 'F':
			err = d.parseFramerate(val)
		case 'C':
			err = d.parseColorspace(val)
		case 'I', 'A', 'X':
			// Interlacing, aspect ratio, and extensions are carried by the
			// header but not needed here.
		}
		if err != nil {
			return nil, err
		}
	}

	if d.width <= 0 || d.height <= 0 {
		return nil, fmt.Errorf("%w: Y4M header missing W/H", ErrContainerParse)
	}

	logrus.WithFields(logrus.Fields{
		"width":      d.width,
		"height":     d.height,
		"fps":        fmt.Sprintf("%d/%d", d.fpsNum, d.fpsDen),
		"colorspace": d.format.String(),
	}).Info("opened Y4M stream")

	return d, nil
}

func (d *Y4MDemuxer) parseFramerate(val string) error {
	num, den, ok := strings.Cut(val, ":")
	if !ok {
		return fmt.Errorf("%w: bad Y4M frame rate %q", ErrContainerParse, val)
	}
	n, err1 := strconv.ParseUint(num, 10, 32)
	de, err2 := strconv.ParseUint(den, 10, 32)
	if err1 != nil || err2 != nil || de == 0 {
		return fmt.Errorf("%w: bad Y4M frame rate %q", ErrContainerParse, val)
	}
	d.fpsNum, d.fpsDen = uint32(n), uint32(de)
	return nil
}

func (d *Y4MDemuxer) parseColorspace(val string) error {
	switch val {
	case "420", "420jpeg", "420mpeg2", "420paldv":
		d.format = PixelFormatYUV420
	case "422":
		d.format = PixelFormatYUV422
	case "444":
		d.format = PixelFormatYUV444
	default:
		return fmt.Errorf("%w: unsupported Y4M colorspace %q", ErrInvalidInput, val)
	}
	return nil
}

// Width returns the video width.
func (d *Y4MDemuxer) Width() int { return d.width }

// Height returns the video height.
func (d *Y4MDemuxer) Height() int { return d.height }

// Framerate returns the frame rate fraction as (numerator, denominator).
func (d *Y4MDemuxer) Framerate() (uint32, uint32) { return d.fpsNum, d.fpsDen }

// Format returns the pixel format declared by the header.
func (d *Y4MDemuxer) Format() PixelFormat { return d.format }

// FrameCount returns the number of frames read so far.
func (d *Y4MDemuxer) FrameCount() uint64 { return d.frameCount }

// ReadFrame decodes exactly one frame's raw plane bytes into a freshly
// allocated Frame. A clean end of input at a frame boundary returns
// io.EOF; truncation inside a frame is an ErrContainerParse failure.
func (d *Y4MDemuxer) ReadFrame() (*Frame, error) {
	marker, err := d.br.ReadString('\n')
	if err != nil {
		if err == io.EOF && marker == "" {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: reading Y4M frame marker: %v", ErrContainerParse, err)
	}
	// Frame markers may carry parameters after the keyword ("FRAME Ip\n").
	if !strings.HasPrefix(marker, "FRAME") {
		return nil, fmt.Errorf("%w: expected FRAME marker, got %q", ErrContainerParse, strings.TrimSpace(marker))
	}

	frame := NewFrame(d.width, d.height, d.format)
	for _, plane := range frame.Planes() {
		if _, err := io.ReadFull(d.br, plane.Data()); err != nil {
			return nil, fmt.Errorf("%w: truncated Y4M frame: %v", ErrContainerParse, err)
		}
	}

	d.frameCount++
	if d.frameCount%100 == 0 {
		logrus.WithField("frames", d.frameCount).Debug("read Y4M frames")
	}
	return frame, nil
}
