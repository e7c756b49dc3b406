package mc

func (c *scalar[P]) planeCopy(dst, src View[P], w, h int) {
	for y := 0; y < h; y++ {
		copy(dst.Row(y, 0, w), src.Row(y, 0, w))
	}
}

// planeCopySwap swaps the samples of each of the w pairs in a row.
func (c *scalar[P]) planeCopySwap(dst, src View[P], w, h int) {
	for y := 0; y < h; y++ {
		d := dst.Row(y, 0, 2*w)
		s := src.Row(y, 0, 2*w)
		for x := 0; x < 2*w; x += 2 {
			d[x], d[x+1] = s[x+1], s[x]
		}
	}
}

func (c *scalar[P]) planeCopyInterleave(dst, srcu, srcv View[P], w, h int) {
	for y := 0; y < h; y++ {
		d := dst.Row(y, 0, 2*w)
		u := srcu.Row(y, 0, w)
		v := srcv.Row(y, 0, w)
		for x := range u {
			d[2*x] = u[x]
			d[2*x+1] = v[x]
		}
	}
}

func (c *scalar[P]) planeCopyDeinterleave(dsta, dstb, src View[P], w, h int) {
	for y := 0; y < h; y++ {
		a := dsta.Row(y, 0, w)
		b := dstb.Row(y, 0, w)
		s := src.Row(y, 0, 2*w)
		for x := range a {
			a[x] = s[2*x]
			b[x] = s[2*x+1]
		}
	}
}

func (c *scalar[P]) planeCopyDeinterleaveRGB(dsta, dstb, dstc, src View[P], pw, w, h int) {
	for y := 0; y < h; y++ {
		a := dsta.Row(y, 0, w)
		b := dstb.Row(y, 0, w)
		d := dstc.Row(y, 0, w)
		s := src.Row(y, 0, (w-1)*pw+3)
		for x := range a {
			a[x] = s[x*pw]
			b[x] = s[x*pw+1]
			d[x] = s[x*pw+2]
		}
	}
}

// planeCopyDeinterleaveV210 unpacks 10-bit samples; it is meant for tables of depth 10.
// Each pair of words carries three luma and three chroma samples.
func (c *scalar[P]) planeCopyDeinterleaveV210(dsty, dstc View[P], src []uint32, srcStride, w, h int) {
	for l := 0; l < h; l++ {
		yo := dsty.Off + l*dsty.Stride
		co := dstc.Off + l*dstc.Stride
		s := src[l*srcStride:]

		for n, i := 0, 0; n < w; n, i = n+3, i+2 {
			a, b := s[i], s[i+1]
			dstc.Data[co] = P(a & 0x3ff)
			dsty.Data[yo] = P(a >> 10 & 0x3ff)
			dstc.Data[co+1] = P(a >> 20 & 0x3ff)
			dsty.Data[yo+1] = P(b & 0x3ff)
			dstc.Data[co+2] = P(b >> 10 & 0x3ff)
			dsty.Data[yo+2] = P(b >> 20 & 0x3ff)
			yo += 3
			co += 3
		}
	}
}

// storeInterleaveChroma writes 8 UV pairs per row from blocks laid out at FdecStride.
func (c *scalar[P]) storeInterleaveChroma(dst View[P], srcu, srcv []P, height int) {
	for y := 0; y < height; y++ {
		d := dst.Row(y, 0, 16)
		u := srcu[y*FdecStride : y*FdecStride+8]
		v := srcv[y*FdecStride : y*FdecStride+8]
		for x := range u {
			d[2*x] = u[x]
			d[2*x+1] = v[x]
		}
	}
}

func loadDeinterleaveChroma[P Pixel](deinterleave PlaneDeinterleaveFunc[P], stride int) LoadDeinterleaveChromaFunc[P] {
	return func(dst []P, src View[P], height int) {
		u := View[P]{Data: dst, Stride: stride}
		v := View[P]{Data: dst, Off: stride / 2, Stride: stride}
		deinterleave(u, v, src, 8, height)
	}
}
