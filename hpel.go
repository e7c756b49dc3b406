package mc

// Widened holds the unclamped vertical 6-tap sums the center half-pel pass filters
// again. Sums are stored with a bias added so that they fit 16 bits at every
// supported depth; the bias is subtracted after the second pass.
type Widened int16

// HpelScratchSize returns the number of Widened elements HpelFilter needs for a row
// of width samples.
func HpelScratchSize(width int) int {
	return width + 8
}

// hpelBias returns the value added to vertical sums before they are narrowed to
// Widened. Sums span [-10*max, 42*max]; the range is shifted down when its top
// would not fit.
func hpelBias(pmax int) int {
	if 42*pmax <= 32767 {
		return 0
	}
	return -10 * pmax
}

func tap6[P Pixel](p []P, i, d int) int {
	return int(p[i-2*d]) + int(p[i+3*d]) -
		5*(int(p[i-d])+int(p[i+2*d])) +
		20*(int(p[i])+int(p[i+d]))
}

func tap6w(p []Widened, i int) int {
	return int(p[i-2]) + int(p[i+3]) -
		5*(int(p[i-1])+int(p[i+2])) +
		20*(int(p[i])+int(p[i+1]))
}

// hpelFilter reads 2 samples before and 3 after every output in both directions.
// The vertical plane is written for columns -2 to width+2.
func (c *scalar[P]) hpelFilter(dsth, dstv, dstc, src View[P], width, height int, buf []Widened) {
	stride := src.Stride
	_ = buf[width+4]

	for y := 0; y < height; y++ {
		s := src.At(0, y)
		v := dstv.At(0, y)
		for x := -2; x < width+3; x++ {
			t := tap6(s.Data, s.Off+x, stride)
			v.Data[v.Off+x] = clipPixel[P]((t+16)>>5, c.max)
			buf[x+2] = Widened(t + c.bias)
		}

		d := dstc.Row(y, 0, width)
		for x := range d {
			d[x] = clipPixel[P]((tap6w(buf, x+2)-32*c.bias+512)>>10, c.max)
		}

		d = dsth.Row(y, 0, width)
		for x := range d {
			d[x] = clipPixel[P]((tap6(s.Data, s.Off+x, 1)+16)>>5, c.max)
		}
	}
}
