//go:build darwin || linux

// SVT-AV1 encoder backend via libtranscode_svt using purego.
//
// The library is a thin C wrapper over SVT-AV1 with a flat ABI (scalars
// and pointers only); generating that sys layer is outside this package.
// The wrapper owns exactly one foreign encoder per handle, and the Go side
// holds exactly one handle per SVTEncoder with 1:1 lifetime.

package transcode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/sirupsen/logrus"
)

var (
	svtOnce    sync.Once
	svtHandle  uintptr
	svtInitErr error
)

// libtranscode_svt function pointers
var (
	svtCreate        func(width, height, fpsNum, fpsDen, preset, qp, tileCols, tileRows, threads int32) uint64
	svtSendFrame     func(enc uint64, yPlane, uPlane, vPlane uintptr, yStride, uvStride int32, pts int64) int32
	svtSendEOS       func(enc uint64) int32
	svtGetPacket     func(enc uint64, outData uintptr, outCapacity int32, outPTS, outDTS, outKeyframe, outEOS uintptr) int32
	svtMaxOutputSize func(enc uint64) int32
	svtDestroy       func(enc uint64)
	svtGetError      func() uintptr
	svtAvailable     func() int32
)

func loadSVT() error {
	svtOnce.Do(func() {
		svtInitErr = loadSVTLib()
	})
	return svtInitErr
}

func loadSVTLib() error {
	var lastErr error
	for _, path := range svtLibPaths() {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lastErr = err
			continue
		}
		svtHandle = handle
		registerSVTSymbols()
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to load libtranscode_svt: %w", lastErr)
	}
	return errors.New("libtranscode_svt not found in any standard location")
}

func svtLibPaths() []string {
	libName := "libtranscode_svt.so"
	if runtime.GOOS == "darwin" {
		libName = "libtranscode_svt.dylib"
	}

	var paths []string
	if envPath := os.Getenv("TRANSCODE_SVT_LIB_PATH"); envPath != "" {
		paths = append(paths, filepath.Join(envPath, libName))
	}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, libName),
			filepath.Join(exeDir, "..", "lib", libName),
		)
	}
	if wd, err := os.Getwd(); err == nil {
		paths = append(paths,
			filepath.Join(wd, "build", libName),
			filepath.Join(wd, "..", "build", libName),
		)
	}
	paths = append(paths, libName) // system search path
	return paths
}

func registerSVTSymbols() {
	purego.RegisterLibFunc(&svtCreate, svtHandle, "transcode_svt_create")
	purego.RegisterLibFunc(&svtSendFrame, svtHandle, "transcode_svt_send_frame")
	purego.RegisterLibFunc(&svtSendEOS, svtHandle, "transcode_svt_send_eos")
	purego.RegisterLibFunc(&svtGetPacket, svtHandle, "transcode_svt_get_packet")
	purego.RegisterLibFunc(&svtMaxOutputSize, svtHandle, "transcode_svt_max_output_size")
	purego.RegisterLibFunc(&svtDestroy, svtHandle, "transcode_svt_destroy")
	purego.RegisterLibFunc(&svtGetError, svtHandle, "transcode_svt_get_error")
	purego.RegisterLibFunc(&svtAvailable, svtHandle, "transcode_svt_available")
}

// IsSVTAvailable reports whether the native SVT-AV1 library can be loaded.
func IsSVTAvailable() bool {
	if err := loadSVT(); err != nil {
		return false
	}
	return svtAvailable() != 0
}

func svtErrorString() string {
	ptr := svtGetError()
	if ptr == 0 {
		return "unknown error"
	}
	p := unsafe.Pointer(ptr)
	var n int
	for n < 1024 && *(*byte)(unsafe.Pointer(uintptr(p)+uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// svtBackend drives one foreign encoder handle. The handle never escapes
// this struct and is destroyed exactly once.
type svtBackend struct {
	mu     sync.Mutex
	handle uint64
	outBuf []byte
}

// NewSVTEncoder creates a video encoder backed by the native SVT-AV1
// library. The returned encoder accepts yuv420p frames matching the
// configured dimensions and follows the standard send/receive protocol.
func NewSVTEncoder(cfg SVTConfig) (VideoEncoder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := loadSVT(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	if svtAvailable() == 0 {
		return nil, fmt.Errorf("%w: SVT-AV1 not compiled into libtranscode_svt", ErrCodec)
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	tileCols, tileRows := cfg.TileCols, cfg.TileRows
	if tileCols == 0 || tileRows == 0 {
		tileCols, tileRows = CalculateTiles(uint32(cfg.Width), uint32(cfg.Height), threads)
	}

	logrus.WithFields(logrus.Fields{
		"width":   cfg.Width,
		"height":  cfg.Height,
		"preset":  cfg.Preset,
		"tiles":   fmt.Sprintf("%dx%d", tileCols, tileRows),
		"threads": threads,
	}).Debug("creating SVT-AV1 encoder")

	handle := svtCreate(
		int32(cfg.Width), int32(cfg.Height),
		int32(cfg.FPSNum), int32(cfg.FPSDen),
		int32(cfg.Preset), int32(cfg.QP),
		int32(tileCols), int32(tileRows),
		int32(threads),
	)
	if handle == 0 {
		return nil, fmt.Errorf("%w: create encoder: %s", ErrCodec, svtErrorString())
	}

	maxSize := svtMaxOutputSize(handle)
	if maxSize <= 0 {
		// Partial initialization: the handle was acquired but is unusable.
		// Release it before propagating the error.
		svtDestroy(handle)
		return nil, fmt.Errorf("%w: query output size: %s", ErrCodec, svtErrorString())
	}

	backend := &svtBackend{
		handle: handle,
		outBuf: make([]byte, maxSize),
	}
	return newVideoEncoder(backend, cfg.Width, cfg.Height, PixelFormatYUV420), nil
}

func (b *svtBackend) push(f *SharedFrame, pts int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handle == 0 {
		return fmt.Errorf("%w: encoder closed", ErrInvalidInput)
	}

	y := f.Plane(0).Data()
	u := f.Plane(1).Data()
	v := f.Plane(2).Data()
	rc := svtSendFrame(
		b.handle,
		uintptr(unsafe.Pointer(&y[0])),
		uintptr(unsafe.Pointer(&u[0])),
		uintptr(unsafe.Pointer(&v[0])),
		int32(f.Plane(0).Stride()),
		int32(f.Plane(1).Stride()),
		pts,
	)
	runtime.KeepAlive(f)
	if rc != 0 {
		return fmt.Errorf("%w: send frame: %s", ErrCodec, svtErrorString())
	}
	return nil
}

func (b *svtBackend) pushEOS() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handle == 0 {
		return fmt.Errorf("%w: encoder closed", ErrInvalidInput)
	}
	if rc := svtSendEOS(b.handle); rc != 0 {
		return fmt.Errorf("%w: send EOS: %s", ErrCodec, svtErrorString())
	}
	return nil
}

func (b *svtBackend) pull() (*Packet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handle == 0 {
		return nil, io.EOF
	}

	var pts, dts int64
	var keyframe, eos int32
	n := svtGetPacket(
		b.handle,
		uintptr(unsafe.Pointer(&b.outBuf[0])),
		int32(len(b.outBuf)),
		uintptr(unsafe.Pointer(&pts)),
		uintptr(unsafe.Pointer(&dts)),
		uintptr(unsafe.Pointer(&keyframe)),
		uintptr(unsafe.Pointer(&eos)),
	)
	if n < 0 {
		return nil, fmt.Errorf("%w: get packet: %s", ErrCodec, svtErrorString())
	}
	if n == 0 {
		if eos != 0 {
			return nil, io.EOF
		}
		return nil, ErrAgain
	}

	data := make([]byte, n)
	copy(data, b.outBuf[:n])
	return &Packet{
		StreamIndex: 0,
		Data:        data,
		PTS:         pts,
		DTS:         dts,
		Keyframe:    keyframe != 0,
	}, nil
}

func (b *svtBackend) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handle != 0 {
		svtDestroy(b.handle)
		b.handle = 0
	}
	return nil
}
