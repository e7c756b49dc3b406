package mc

// chromaCoeffs returns the bilinear weights of the four neighbours for an
// eighth-pel vector. They always sum to 64.
func chromaCoeffs(mvx, mvy int) (cA, cB, cC, cD int) {
	d8x := mvx & 7
	d8y := mvy & 7
	return (8 - d8x) * (8 - d8y), d8x * (8 - d8y), (8 - d8x) * d8y, d8x * d8y
}

// mcChroma interpolates interleaved UV. The source block starts at pair mvx>>3 of
// row mvy>>3 and reads one pair and one row beyond the block.
func (c *scalar[P]) mcChroma(dstu, dstv, src View[P], mvx, mvy, width, height int) {
	cA, cB, cC, cD := chromaCoeffs(mvx, mvy)
	src = src.At((mvx>>3)*2, mvy>>3)

	for y := 0; y < height; y++ {
		s0 := src.Row(y, 0, 2*width+2)
		s1 := src.Row(y+1, 0, 2*width+2)
		u := dstu.Row(y, 0, width)
		v := dstv.Row(y, 0, width)
		for x := range u {
			u[x] = P((cA*int(s0[2*x]) + cB*int(s0[2*x+2]) +
				cC*int(s1[2*x]) + cD*int(s1[2*x+2]) + 32) >> 6)
			v[x] = P((cA*int(s0[2*x+1]) + cB*int(s0[2*x+3]) +
				cC*int(s1[2*x+1]) + cD*int(s1[2*x+3]) + 32) >> 6)
		}
	}
}
