//go:build !(darwin || linux)

package transcode

import "fmt"

// IsSVTAvailable reports whether the native SVT-AV1 library can be loaded.
// Dynamic loading is only supported on darwin and linux.
func IsSVTAvailable() bool { return false }

// NewSVTEncoder is unavailable on this platform.
func NewSVTEncoder(cfg SVTConfig) (VideoEncoder, error) {
	return nil, fmt.Errorf("%w: SVT-AV1 backend requires darwin or linux", ErrUnsupportedFormat)
}
