package transcode

import "runtime"

// CalculateTiles picks a spatial tile split (columns, rows) for a software
// AV1 encoder, trading per-frame parallelism against tile overhead:
//
//   - tile counts are powers of two, at most 8 per axis
//   - no tile smaller than 256x256 pixels
//   - aim for roughly 2 tiles per thread, at least 4 total
//
// threads == 0 means "use the available core count". When the frame is too
// small for even one 256x256 tile per axis the result degrades to (1, 1);
// the encoder still parallelizes across frames, just not within one.
//
// Ties between candidate splits go to the first match in a fixed
// column-major scan; that order is implementation-defined, not claimed
// optimal.
func CalculateTiles(width, height uint32, threads int) (cols, rows int) {
	if threads == 0 {
		threads = runtime.NumCPU()
	}

	maxCols := floorPow2(width / 256)
	maxRows := floorPow2(height / 256)

	target := threads * 2
	if target < 4 {
		target = 4
	}

	bestCols, bestRows := 1, 1
	bestDiff := int(^uint(0) >> 1)
	for _, c := range []int{1, 2, 4, 8} {
		for _, r := range []int{1, 2, 4, 8} {
			if c > maxCols || r > maxRows {
				continue
			}
			diff := c*r - target
			if diff < 0 {
				diff = -diff
			}
			if diff < bestDiff {
				bestDiff = diff
				bestCols, bestRows = c, r
			}
		}
	}
	return bestCols, bestRows
}

// floorPow2 returns the largest power of two <= n, minimum 1.
func floorPow2(n uint32) int {
	p := 1
	for p*2 <= int(n) {
		p *= 2
	}
	return p
}
