package transcode

import "fmt"

// SVTConfig configures the SVT-AV1 encoder backend.
type SVTConfig struct {
	Width  int
	Height int

	FPSNum uint32 // frame rate numerator
	FPSDen uint32 // frame rate denominator

	// Preset selects the speed/quality trade-off: 0 = best quality and
	// slowest, 13 = fastest.
	Preset int

	// QP is the quantization parameter for CRF mode (0-63, lower is
	// better quality).
	QP int

	// TileCols/TileRows set the spatial tile split. Zero means auto:
	// CalculateTiles picks a split from the resolution and thread count.
	TileCols int
	TileRows int

	// Threads sizes the encoder's internal worker pool. Zero means use
	// the available core count.
	Threads int
}

// DefaultSVTConfig returns a balanced configuration for the given
// resolution: preset 8, QP 35, 30fps, automatic tiling and threading.
func DefaultSVTConfig(width, height int) SVTConfig {
	return SVTConfig{
		Width:  width,
		Height: height,
		FPSNum: 30,
		FPSDen: 1,
		Preset: 8,
		QP:     35,
	}
}

func (c *SVTConfig) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: width and height must be set", ErrInvalidInput)
	}
	if c.Preset < 0 || c.Preset > 13 {
		return fmt.Errorf("%w: preset must be 0-13, got %d", ErrInvalidInput, c.Preset)
	}
	if c.QP < 0 || c.QP > 63 {
		return fmt.Errorf("%w: qp must be 0-63, got %d", ErrInvalidInput, c.QP)
	}
	if c.FPSDen == 0 {
		return fmt.Errorf("%w: frame rate denominator must be nonzero", ErrInvalidInput)
	}
	return nil
}
