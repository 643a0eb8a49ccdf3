package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTiles(t *testing.T) {
	tests := []struct {
		name    string
		width   uint32
		height  uint32
		threads int
		cols    int
		rows    int
	}{
		{"1080p 8 threads", 1920, 1080, 8, 4, 4},
		{"1080p 1 thread", 1920, 1080, 1, 1, 4},
		{"4k 16 threads", 3840, 2160, 16, 4, 8},
		{"tiny frame", 64, 64, 8, 1, 1},
		{"tall frame", 256, 2160, 16, 1, 8},
		{"512x512 4 threads", 512, 512, 4, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, rows := CalculateTiles(tt.width, tt.height, tt.threads)
			assert.Equal(t, tt.cols, cols)
			assert.Equal(t, tt.rows, rows)
		})
	}
}

func TestCalculateTilesMinimumSize(t *testing.T) {
	// No split may produce a tile smaller than 256x256.
	for _, dim := range []struct{ w, h uint32 }{
		{1920, 1080}, {1280, 720}, {3840, 2160}, {300, 300}, {256, 256},
	} {
		cols, rows := CalculateTiles(dim.w, dim.h, 32)
		assert.GreaterOrEqual(t, int(dim.w)/cols, 256, "%dx%d cols=%d", dim.w, dim.h, cols)
		assert.GreaterOrEqual(t, int(dim.h)/rows, 256, "%dx%d rows=%d", dim.w, dim.h, rows)
	}
}

func TestCalculateTilesAutoThreads(t *testing.T) {
	cols, rows := CalculateTiles(1920, 1080, 0)
	assert.GreaterOrEqual(t, cols, 1)
	assert.GreaterOrEqual(t, rows, 1)
	assert.LessOrEqual(t, cols, 4)
	assert.LessOrEqual(t, rows, 4)
}

func TestFloorPow2(t *testing.T) {
	cases := map[uint32]int{0: 1, 1: 1, 2: 2, 3: 2, 4: 4, 7: 4, 8: 8, 15: 8, 16: 16}
	for in, want := range cases {
		assert.Equal(t, want, floorPow2(in), "floorPow2(%d)", in)
	}
}
