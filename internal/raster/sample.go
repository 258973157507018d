package raster

// SamplePoints lists the eight probes used by SampleBackground, in sampling order:
// the four corners, then the top/bottom midpoints, then the left/right midpoints.
func SamplePoints(width, height int) [8][2]int {
	w, h := width-1, height-1
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	midX, midY := width/2, height/2
	return [8][2]int{
		{0, 0},
		{w, 0},
		{0, h},
		{w, h},
		{midX, 0},
		{midX, h},
		{0, midY},
		{w, midY},
	}
}

// SampleBackground returns the most frequent color among the sample points.
// Ties go to the color seen first. Exact equality is used, not tolerance.
func SampleBackground(b *Buffer) Color {
	if b == nil || b.width == 0 || b.height == 0 {
		return White
	}

	var (
		order  []Color
		counts = make(map[Color]int, 8)
	)
	for _, p := range SamplePoints(b.width, b.height) {
		c := b.At(p[0], p[1])
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	best := order[0]
	for _, c := range order[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
