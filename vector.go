package mc

import (
	"math"
	"unsafe"
)

// vector is the wide kernel family. Kernels work on packed 64-bit lanes, the plane
// adapters on align bytes per step, and fall back to the scalar code for leftovers and
// for operations a family has no fast path for. Every kernel is bit-exact with scalar
// except propagateCost.
type vector[P Pixel] struct {
	*scalar[P]

	name  string
	align int
	size  int

	// alignLoads makes avg start its word loads of the first source on an 8-byte
	// boundary so none of them crosses a cache line.
	alignLoads bool
}

func newVector[P Pixel](c *scalar[P], name string, align int) *vector[P] {
	return &vector[P]{
		scalar: c,
		name:   name,
		align:  align,
		size:   sizeOf[P](),
	}
}

// hints applies the tuning hints of cpu.
func (v *vector[P]) hints(cpu CPU) *vector[P] {
	v.alignLoads = cpu&(CPUCacheline32|CPUCacheline64|CPUSlowUnaligned) != 0
	return v
}

// loadHead returns the number of bytes before b reaches an 8-byte boundary, capped at n.
func loadHead(b []byte, n int) int {
	head := int(-uintptr(unsafe.Pointer(unsafe.SliceData(b)))) & 7
	return min(head, n)
}

func (v *vector[P]) avg(dst, src1, src2 View[P], width, height int) {
	n := width * v.size
	for y := 0; y < height; y++ {
		d := asBytes(dst.Row(y, 0, width))
		a := asBytes(src1.Row(y, 0, width))
		b := asBytes(src2.Row(y, 0, width))

		x := 0
		if v.alignLoads {
			x = loadHead(a, n)
			if x > 0 {
				v.scalar.avg(dst.At(0, y), src1.At(0, y), src2.At(0, y), x/v.size, 1)
			}
		}
		for ; x+8 <= n; x += 8 {
			store64(d[x:], avgWord(load64(a[x:]), load64(b[x:]), v.size))
		}
		if x < n {
			i := x / v.size
			v.scalar.avg(dst.At(i, y), src1.At(i, y), src2.At(i, y), width-i, 1)
		}
	}
}

func (v *vector[P]) copy(dst, src View[P], width, height int) {
	for y := 0; y < height; y++ {
		copy(dst.Row(y, 0, width), src.Row(y, 0, width))
	}
}

// weight works on four samples per word: src*CacheA plus the rounding term of CacheB
// in word lanes biased by 1<<15, the shift, then the offset CacheB carries above Denom.
// Wide samples and weights outside the 8-bit syntax range take the scalar kernel.
func (v *vector[P]) weight(dst, src View[P], w *Weight[P], width, height int) {
	if v.size != 1 || w.Denom < 0 || w.Denom > 7 || w.Scale < -128 || w.Scale > 127 ||
		w.Offset < -128 || w.Offset > 127 {
		v.scalar.weight(dst, src, w, width, height)
		return
	}

	scale := int(w.CacheA[0])
	denom := w.Denom
	bias := int(w.CacheB[0])
	round := bias & (1<<denom - 1)
	offset := bias >> denom

	mul := uint64(int64(scale))
	add := splat16(1<<15 + round)
	rebias := splat16(1<<15 - (1<<15)>>denom + offset)

	for y := 0; y < height; y++ {
		d := asBytes(dst.Row(y, 0, width))
		s := asBytes(src.Row(y, 0, width))

		x := 0
		for ; x+4 <= width; x += 4 {
			r := spread(loadLE32(s[x:]), 1)*mul + add
			r = shr16(r, denom) + rebias
			r = clamp16(unbias16(r), 0, 255)
			storeLE32(d[x:], compact(r, 1))
		}
		for ; x < width; x++ {
			d[x] = byte(clipPixel[P](((int(s[x])*scale+round)>>denom)+offset, v.max))
		}
	}
}

func (v *vector[P]) offsetAdd(dst, src View[P], w *Weight[P], width, height int) {
	v.offset(dst, src, int(w.CacheA[0]), width, height, false)
}

func (v *vector[P]) offsetSub(dst, src View[P], w *Weight[P], width, height int) {
	v.offset(dst, src, int(w.CacheA[0]), width, height, true)
}

func (v *vector[P]) offset(dst, src View[P], off, width, height int, sub bool) {
	n := width * v.size

	var splat uint64
	if v.size == 1 {
		splat = uint64(off) * ones8
	} else {
		splat = uint64(off) * ones16
	}

	for y := 0; y < height; y++ {
		d := asBytes(dst.Row(y, 0, width))
		s := asBytes(src.Row(y, 0, width))

		x := 0
		for ; x+8 <= n; x += 8 {
			a := load64(s[x:])
			var r uint64
			switch {
			case v.size == 1 && sub:
				r = subSat8(a, splat)
			case v.size == 1:
				r = addSat8(a, splat)
			case sub:
				r = subClamp16(a, splat)
			default:
				r = addClamp16(a, splat, v.max)
			}
			store64(d[x:], r)
		}

		dd := dst.Row(y, 0, width)
		ss := src.Row(y, 0, width)
		for i := x / v.size; i < width; i++ {
			if sub {
				dd[i] = clipPixel[P](int(ss[i])-off, v.max)
			} else {
				dd[i] = clipPixel[P](int(ss[i])+off, v.max)
			}
		}
	}
}

func (v *vector[P]) weightTables() (weight, add, sub *WeightTable[P]) {
	return weightTableOf(v.weight), weightTableOf(v.offsetAdd), weightTableOf(v.offsetSub)
}

// Lane biases of the 8-bit half-pel passes. Vertical sums live in word lanes offset by
// hpelLaneBias, a multiple of 32. The center pass adds the same bias to the six sums
// it reads, which lifts its result by 32*hpelLaneBias, and adds hpelCenterBias on top
// so the total is a multiple of 1024.
const (
	hpelLaneBias   = 2560
	hpelCenterBias = 262144
	hpelCenterLift = (32*hpelLaneBias + hpelCenterBias) >> 10
)

// hpelFilter runs the three passes on packed lanes: four vertical or horizontal
// outputs per word lane group and two center outputs per double word pair. Columns
// that do not fill a group go through the scalar formulas. Wide samples take the
// scalar kernel.
func (v *vector[P]) hpelFilter(dsth, dstv, dstc, src View[P], width, height int, buf []Widened) {
	if v.size != 1 {
		v.scalar.hpelFilter(dsth, dstv, dstc, src, width, height, buf)
		return
	}

	stride := src.Stride
	_ = buf[width+4]

	sb := asBytes(src.Data)
	vb := asBytes(dstv.Data)
	load := func(i int) uint64 {
		return spread(loadLE32(sb[i:]), 1)
	}

	for y := 0; y < height; y++ {
		s := src.At(0, y)
		o := s.Off
		vo := dstv.Off + y*dstv.Stride

		x := -2
		for ; x+4 <= width+3; x += 4 {
			i := o + x
			t := tap6Lanes(load(i-2*stride), load(i-stride), load(i), load(i+stride), load(i+2*stride), load(i+3*stride), splat16(hpelLaneBias))

			r := clamp16(shr16(t+splat16(16), 5), hpelLaneBias>>5, hpelLaneBias>>5+255)
			storeLE32(vb[vo+x:], compact(r-splat16(hpelLaneBias>>5), 1))

			for k := 0; k < 4; k++ {
				buf[x+2+k] = Widened(int(t>>(16*k)&0xffff) - hpelLaneBias + v.bias)
			}
		}
		for ; x < width+3; x++ {
			t := tap6(s.Data, o+x, stride)
			vb[vo+x] = byte(clipPixel[P]((t+16)>>5, v.max))
			buf[x+2] = Widened(t + v.bias)
		}

		pair := func(i int) uint64 {
			lo := uint32(int(buf[i]) - v.bias + hpelLaneBias)
			hi := uint32(int(buf[i+1]) - v.bias + hpelLaneBias)
			return uint64(lo) | uint64(hi)<<32
		}

		dc := asBytes(dstc.Row(y, 0, width))
		x = 0
		for ; x+2 <= width; x += 2 {
			t := tap6Lanes(pair(x), pair(x+1), pair(x+2), pair(x+3), pair(x+4), pair(x+5), splat32(hpelCenterBias+512))
			r := clamp32(shr32(t, 10), hpelCenterLift, hpelCenterLift+255) - splat32(hpelCenterLift)
			dc[x] = byte(r)
			dc[x+1] = byte(r >> 32)
		}
		for ; x < width; x++ {
			dc[x] = byte(clipPixel[P]((tap6w(buf, x+2)-32*v.bias+512)>>10, v.max))
		}

		dh := asBytes(dsth.Row(y, 0, width))
		x = 0
		for ; x+4 <= width; x += 4 {
			i := o + x
			t := tap6Lanes(load(i-2), load(i-1), load(i), load(i+1), load(i+2), load(i+3), splat16(hpelLaneBias+16))
			r := clamp16(shr16(t, 5), hpelLaneBias>>5, hpelLaneBias>>5+255)
			storeLE32(dh[x:], compact(r-splat16(hpelLaneBias>>5), 1))
		}
		for ; x < width; x++ {
			dh[x] = byte(clipPixel[P]((tap6(s.Data, o+x, 1)+16)>>5, v.max))
		}
	}
}

// mcChroma produces two output columns per step, one word of interleaved UV lanes, and
// may write one column past an odd width.
func (v *vector[P]) mcChroma(dstu, dstv, src View[P], mvx, mvy, width, height int) {
	cA, cB, cC, cD := chromaCoeffs(mvx, mvy)
	src = src.At((mvx>>3)*2, mvy>>3)
	w2 := (width + 1) &^ 1

	load := func(p []P, i int) uint64 {
		if v.size == 1 {
			return spread(loadLE32(asBytes(p[i:i+4])), 1)
		}
		return uint64(p[i]) | uint64(p[i+1])<<16 | uint64(p[i+2])<<32 | uint64(p[i+3])<<48
	}

	for y := 0; y < height; y++ {
		s0 := src.Row(y, 0, 2*w2+2)
		s1 := src.Row(y+1, 0, 2*w2+2)
		u := dstu.Row(y, 0, w2)
		d := dstv.Row(y, 0, w2)

		for x := 0; x < w2; x += 2 {
			i := 2 * x
			r := load(s0, i)*uint64(cA) + load(s0, i+2)*uint64(cB) +
				load(s1, i)*uint64(cC) + load(s1, i+2)*uint64(cD) + 32*ones16
			r = shr16(r, 6)

			u[x] = P(r & 0xffff)
			d[x] = P(r >> 16 & 0xffff)
			u[x+1] = P(r >> 32 & 0xffff)
			d[x+1] = P(r >> 48)
		}
	}
}

// Plane adapters. The cores need the width to be a multiple of the vector width. Other
// widths run the core with the width rounded up on all rows but the last one in memory
// order, which goes through the exact scalar path so nothing is read or written past
// the end of the planes.

func roundUp(w, cw int) int {
	return (w + cw) &^ cw
}

func (v *vector[P]) planeCopy(dst, src View[P], w, h int) {
	cw := v.align/v.size - 1
	switch {
	case w < 256:
		v.scalar.planeCopy(dst, src, w, h)
	case w&cw == 0:
		v.planeCopyCore(dst, src, w, h)
	default:
		if h--; h > 0 {
			if src.Stride > 0 {
				v.planeCopyCore(dst, src, roundUp(w, cw), h)
				dst = dst.At(0, h)
				src = src.At(0, h)
			} else {
				v.planeCopyCore(dst.At(0, 1), src.At(0, 1), roundUp(w, cw), h)
			}
		}
		copy(dst.Row(0, 0, w), src.Row(0, 0, w))
	}
}

func (v *vector[P]) planeCopyCore(dst, src View[P], w, h int) {
	for y := 0; y < h; y++ {
		copy(dst.Row(y, 0, w), src.Row(y, 0, w))
	}
}

func (v *vector[P]) planeCopySwap(dst, src View[P], w, h int) {
	cw := (v.align>>1)/v.size - 1
	switch {
	case w&cw == 0:
		v.planeCopySwapCore(dst, src, w, h)
	case w > cw:
		if h--; h > 0 {
			if src.Stride > 0 {
				v.planeCopySwapCore(dst, src, roundUp(w, cw), h)
				dst = dst.At(0, h)
				src = src.At(0, h)
			} else {
				v.planeCopySwapCore(dst.At(0, 1), src.At(0, 1), roundUp(w, cw), h)
			}
		}
		v.planeCopySwapCore(dst, src, w&^cw, 1)
		d := dst.Row(0, 0, 2*w)
		s := src.Row(0, 0, 2*w)
		for x := 2 * (w &^ cw); x < 2*w; x += 2 {
			d[x], d[x+1] = s[x+1], s[x]
		}
	default:
		v.scalar.planeCopySwap(dst, src, w, h)
	}
}

func (v *vector[P]) planeCopySwapCore(dst, src View[P], w, h int) {
	n := 2 * w * v.size
	for y := 0; y < h; y++ {
		d := asBytes(dst.Row(y, 0, 2*w))
		s := asBytes(src.Row(y, 0, 2*w))
		for x := 0; x < n; x += 8 {
			a := load64(s[x:])
			if v.size == 1 {
				a = (a&even8)<<8 | (a>>8)&even8
			} else {
				a = (a&even16)<<16 | (a>>16)&even16
			}
			store64(d[x:], a)
		}
	}
}

func (v *vector[P]) planeCopyInterleave(dst, srcu, srcv View[P], w, h int) {
	cw := 16/v.size - 1
	switch {
	case w&cw == 0:
		v.planeCopyInterleaveCore(dst, srcu, srcv, w, h)
	case w > cw && (srcu.Stride^srcv.Stride) >= 0:
		if h--; h > 0 {
			if srcu.Stride > 0 {
				v.planeCopyInterleaveCore(dst, srcu, srcv, roundUp(w, cw), h)
				dst = dst.At(0, h)
				srcu = srcu.At(0, h)
				srcv = srcv.At(0, h)
			} else {
				v.planeCopyInterleaveCore(dst.At(0, 1), srcu.At(0, 1), srcv.At(0, 1), roundUp(w, cw), h)
			}
		}
		v.scalar.planeCopyInterleave(dst, srcu, srcv, w, 1)
	default:
		v.scalar.planeCopyInterleave(dst, srcu, srcv, w, h)
	}
}

// planeCopyInterleaveCore needs w*size to be a multiple of 4.
func (v *vector[P]) planeCopyInterleaveCore(dst, srcu, srcv View[P], w, h int) {
	n := w * v.size
	shift := 8 * v.size
	for y := 0; y < h; y++ {
		d := asBytes(dst.Row(y, 0, 2*w))
		u := asBytes(srcu.Row(y, 0, w))
		vv := asBytes(srcv.Row(y, 0, w))
		for x := 0; x < n; x += 4 {
			p := spread(loadLE32(u[x:]), v.size) | spread(loadLE32(vv[x:]), v.size)<<shift
			storeLE64(d[2*x:], p)
		}
	}
}

func (v *vector[P]) planeCopyDeinterleave(dsta, dstb, src View[P], w, h int) {
	cw := (v.align>>1)/v.size - 1
	switch {
	case w&cw == 0:
		v.planeCopyDeinterleaveCore(dsta, dstb, src, w, h)
	case w > cw:
		if h--; h > 0 {
			if src.Stride > 0 {
				v.planeCopyDeinterleaveCore(dsta, dstb, src, roundUp(w, cw), h)
				dsta = dsta.At(0, h)
				dstb = dstb.At(0, h)
				src = src.At(0, h)
			} else {
				v.planeCopyDeinterleaveCore(dsta.At(0, 1), dstb.At(0, 1), src.At(0, 1), roundUp(w, cw), h)
			}
		}
		v.scalar.planeCopyDeinterleave(dsta, dstb, src, w, 1)
	default:
		v.scalar.planeCopyDeinterleave(dsta, dstb, src, w, h)
	}
}

// planeCopyDeinterleaveCore needs w*size to be a multiple of 4.
func (v *vector[P]) planeCopyDeinterleaveCore(dsta, dstb, src View[P], w, h int) {
	n := w * v.size
	shift := 8 * v.size
	for y := 0; y < h; y++ {
		a := asBytes(dsta.Row(y, 0, w))
		b := asBytes(dstb.Row(y, 0, w))
		s := asBytes(src.Row(y, 0, 2*w))
		for x := 0; x < n; x += 4 {
			p := loadLE64(s[2*x:])
			storeLE32(a[x:], compact(p, v.size))
			storeLE32(b[x:], compact(p>>shift, v.size))
		}
	}
}

func (v *vector[P]) storeInterleaveChroma(dst View[P], srcu, srcv []P, height int) {
	u := View[P]{Data: srcu, Stride: FdecStride}
	d := View[P]{Data: srcv, Stride: FdecStride}
	v.planeCopyInterleaveCore(dst, u, d, 8, height)
}

// frameInitLowresCore filters four outputs per step from nine source bytes per row.
// Wide samples take the scalar kernel.
func (v *vector[P]) frameInitLowresCore(src, dst0, dsth, dstv, dstc View[P], width, height int) {
	if v.size != 1 {
		v.scalar.frameInitLowresCore(src, dst0, dsth, dstv, dstc, width, height)
		return
	}

	for y := 0; y < height; y++ {
		s0 := asBytes(src.Row(2*y, 0, 2*width+1))
		s1 := asBytes(src.Row(2*y+1, 0, 2*width+1))
		s2 := asBytes(src.Row(2*y+2, 0, 2*width+1))
		d0 := asBytes(dst0.Row(y, 0, width))
		dh := asBytes(dsth.Row(y, 0, width))
		dv := asBytes(dstv.Row(y, 0, width))
		dc := asBytes(dstc.Row(y, 0, width))

		x := 0
		for ; x+4 <= width; x += 4 {
			i := 2 * x
			a0 := avgWord(loadLE64(s0[i:]), loadLE64(s1[i:]), 1)
			a1 := avgWord(loadLE64(s0[i+1:]), loadLE64(s1[i+1:]), 1)
			b0 := avgWord(loadLE64(s1[i:]), loadLE64(s2[i:]), 1)
			b1 := avgWord(loadLE64(s1[i+1:]), loadLE64(s2[i+1:]), 1)

			storeLE32(d0[x:], avgWord(compact(a0, 1), compact(a0>>8, 1), 1))
			storeLE32(dh[x:], avgWord(compact(a1, 1), compact(a1>>8, 1), 1))
			storeLE32(dv[x:], avgWord(compact(b0, 1), compact(b0>>8, 1), 1))
			storeLE32(dc[x:], avgWord(compact(b1, 1), compact(b1>>8, 1), 1))
		}

		if x < width {
			v.scalar.frameInitLowresCore(src.At(2*x, 2*y), dst0.At(x, y), dsth.At(x, y), dstv.At(x, y), dstc.At(x, y), width-x, 1)
		}
	}
}

// propagateCost multiplies by a reciprocal and rounds to nearest even. Results may
// differ from mbtreePropagateCost by one.
func (v *vector[P]) propagateCost(dst []int16, propagateIn, intraCosts, interCosts, invQscales []uint16, fpsFactor float32, n int) {
	for i := 0; i < n; i++ {
		intra := int(intraCosts[i])
		if intra == 0 {
			dst[i] = 0
			continue
		}
		inter := min(intra, int(interCosts[i]&LowresCostMask))

		amount := float32(propagateIn[i]) + float32(intra*int(invQscales[i]))*fpsFactor
		rcp := 1 / float32(intra)
		r := math.RoundToEven(float64(amount * float32(intra-inter) * rcp))

		dst[i] = int16(min(r, 32767))
	}
}

// propagateList computes targets and corner weights of up to 8 macroblocks, then
// scatters them. Each entry is mbx, mby and four weights.
func (v *vector[P]) propagateList(g *MBGrid, refCosts []uint16, mvs [][2]int16, propagateAmount []int16, lowresCosts []uint16, bipredWeight, mbY, n, list int) {
	const batch = 8

	var cur [batch * 6]int16

	stride := uint(g.Stride)
	width := uint(g.Width)
	height := uint(g.Height)

	for i0 := 0; i0 < n; i0 += batch {
		end := min(i0+batch, n)

		for i := i0; i < end; i++ {
			e := cur[(i-i0)*6 : (i-i0)*6+6]
			amount := int(propagateAmount[i])
			if lowresCosts[i]>>LowresCostShift == 3 {
				amount = (amount*bipredWeight + 32) >> 6
			}
			x := int(mvs[i][0])
			y := int(mvs[i][1])
			e[0] = int16((x >> 5) + i)
			e[1] = int16((y >> 5) + mbY)
			x &= 31
			y &= 31
			e[2] = int16(((32-y)*(32-x)*amount + 512) >> 10)
			e[3] = int16(((32-y)*x*amount + 512) >> 10)
			e[4] = int16((y*(32-x)*amount + 512) >> 10)
			e[5] = int16((y*x*amount + 512) >> 10)
		}

		for i := i0; i < end; i++ {
			if lowresCosts[i]&(1<<(list+LowresCostShift)) == 0 {
				continue
			}
			e := cur[(i-i0)*6 : (i-i0)*6+6]

			mbx := uint(e[0])
			mby := uint(e[1])
			idx0 := mbx + mby*stride
			idx2 := idx0 + stride

			if mvs[i] == [2]int16{} {
				clipAdd(&refCosts[idx0], int(e[2]))
				continue
			}

			if mbx < width-1 && mby < height-1 {
				clipAdd(&refCosts[idx0], int(e[2]))
				clipAdd(&refCosts[idx0+1], int(e[3]))
				clipAdd(&refCosts[idx2], int(e[4]))
				clipAdd(&refCosts[idx2+1], int(e[5]))
				continue
			}

			if mby < height {
				if mbx < width {
					clipAdd(&refCosts[idx0], int(e[2]))
				}
				if mbx+1 < width {
					clipAdd(&refCosts[idx0+1], int(e[3]))
				}
			}
			if mby+1 < height {
				if mbx < width {
					clipAdd(&refCosts[idx2], int(e[4]))
				}
				if mbx+1 < width {
					clipAdd(&refCosts[idx2+1], int(e[5]))
				}
			}
		}
	}
}
