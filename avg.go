package mc

// scalar holds the reference kernels for one bit depth. Every other backend
// must produce bit-identical output (except where noted on the kernel).
type scalar[P Pixel] struct {
	depth int
	max   int
	bias  int
}

func newScalar[P Pixel](depth int) *scalar[P] {
	pmax := pixelMax(depth)
	return &scalar[P]{
		depth: depth,
		max:   pmax,
		bias:  hpelBias(pmax),
	}
}

func (c *scalar[P]) avg(dst, src1, src2 View[P], width, height int) {
	for y := 0; y < height; y++ {
		d := dst.Row(y, 0, width)
		a := src1.Row(y, 0, width)
		b := src2.Row(y, 0, width)
		for x := range d {
			d[x] = P((int(a[x]) + int(b[x]) + 1) >> 1)
		}
	}
}

// avgWeight is implicit weighted bipred: log2 denominator 5, zero offset and
// w1+w2 = 64.
func (c *scalar[P]) avgWeight(dst, src1, src2 View[P], width, height, w1 int) {
	w2 := 64 - w1
	for y := 0; y < height; y++ {
		d := dst.Row(y, 0, width)
		a := src1.Row(y, 0, width)
		b := src2.Row(y, 0, width)
		for x := range d {
			d[x] = clipPixel[P]((int(a[x])*w1+int(b[x])*w2+32)>>6, c.max)
		}
	}
}

func (c *scalar[P]) copy(dst, src View[P], width, height int) {
	for y := 0; y < height; y++ {
		copy(dst.Row(y, 0, width), src.Row(y, 0, width))
	}
}

// avgTable builds one averaging entry per partition. weight 32 is the
// default bidirectional case and takes the plain rounding average.
func avgTable[P Pixel](avg func(dst, src1, src2 View[P], width, height int),
	weighted func(dst, src1, src2 View[P], width, height, w1 int)) [NumPixelSizes]AvgFunc[P] {

	var t [NumPixelSizes]AvgFunc[P]
	for i := range t {
		width, height := PixelSize(i).Size()
		t[i] = func(dst, src1, src2 View[P], weight int) {
			if weight == 32 {
				avg(dst, src1, src2, width, height)
			} else {
				weighted(dst, src1, src2, width, height, weight)
			}
		}
	}
	return t
}

func copyFunc[P Pixel](cp func(dst, src View[P], width, height int), width int) CopyFunc[P] {
	return func(dst, src View[P], height int) {
		cp(dst, src, width, height)
	}
}
