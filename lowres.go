package mc

func lowresFilter(a, b, c, d int) int {
	ab := (a + b + 1) >> 1
	cd := (c + d + 1) >> 1
	return (ab + cd + 1) >> 1
}

// frameInitLowresCore produces the four half-resolution planes: full-pel, shifted
// half a lowres pixel right, down, and both. It reads 2*height+1 source rows and
// 2*width+1 source columns.
func (c *scalar[P]) frameInitLowresCore(src, dst0, dsth, dstv, dstc View[P], width, height int) {
	for y := 0; y < height; y++ {
		s0 := src.Row(2*y, 0, 2*width+1)
		s1 := src.Row(2*y+1, 0, 2*width+1)
		s2 := src.Row(2*y+2, 0, 2*width+1)
		d0 := dst0.Row(y, 0, width)
		dh := dsth.Row(y, 0, width)
		dv := dstv.Row(y, 0, width)
		dc := dstc.Row(y, 0, width)

		for x := range d0 {
			d0[x] = P(lowresFilter(int(s0[2*x]), int(s1[2*x]), int(s0[2*x+1]), int(s1[2*x+1])))
			dh[x] = P(lowresFilter(int(s0[2*x+1]), int(s1[2*x+1]), int(s0[2*x+2]), int(s1[2*x+2])))
			dv[x] = P(lowresFilter(int(s1[2*x]), int(s2[2*x]), int(s1[2*x+1]), int(s2[2*x+1])))
			dc[x] = P(lowresFilter(int(s1[2*x+1]), int(s2[2*x+1]), int(s1[2*x+2]), int(s2[2*x+2])))
		}
	}
}

// Integral images are 16-bit running sums that wrap; differences of them are exact as
// long as the true block sum fits 16 bits.

func integralInit4h[P Pixel](sum View[uint16], pix View[P]) {
	stride := sum.Stride
	p := pix.Row(0, 0, stride)
	s := sum.Data

	v := int(p[0]) + int(p[1]) + int(p[2]) + int(p[3])
	for x := 0; x < stride-4; x++ {
		i := sum.Off + x
		s[i] = uint16(v + int(s[i-stride]))
		v += int(p[x+4]) - int(p[x])
	}
}

func integralInit8h[P Pixel](sum View[uint16], pix View[P]) {
	stride := sum.Stride
	p := pix.Row(0, 0, stride)
	s := sum.Data

	v := 0
	for _, q := range p[:8] {
		v += int(q)
	}
	for x := 0; x < stride-8; x++ {
		i := sum.Off + x
		s[i] = uint16(v + int(s[i-stride]))
		v += int(p[x+8]) - int(p[x])
	}
}

// integralInit4v turns the running sums four rows apart into 4x4 block sums in sum4 and
// the running sums eight rows apart into 8x8 block sums in sum8.
func integralInit4v(sum8, sum4 View[uint16]) {
	stride := sum8.Stride
	s8 := sum8.Data
	s4 := sum4.Data

	for x := 0; x < stride-8; x++ {
		i := sum8.Off + x
		s4[sum4.Off+x] = s8[i+4*stride] - s8[i]
	}
	for x := 0; x < stride-8; x++ {
		i := sum8.Off + x
		s8[i] = s8[i+8*stride] + s8[i+8*stride+4] - s8[i] - s8[i+4]
	}
}

func integralInit8v(sum8, _ View[uint16]) {
	stride := sum8.Stride
	s := sum8.Data

	for x := 0; x < stride-8; x++ {
		i := sum8.Off + x
		s[i] = s[i+8*stride] - s[i]
	}
}
