package mc

// Weight describes the explicit prediction transform
//
//	dst = clip(((src*Scale + round) >> Denom) + Offset<<(depth-8))
//
// Fn is resolved by WeightCache; nil means identity and callers skip weighting.
// CacheA and CacheB hold splatted constants for the vector kernels.
type Weight[P Pixel] struct {
	CacheA [8]int16
	CacheB [8]int16

	Denom  int
	Scale  int
	Offset int

	Fn *WeightTable[P]
}

func (w *Weight[P]) weighted() bool {
	return w != nil && w.Fn != nil
}

func (w *Weight[P]) apply(dst, src View[P], width, height int) {
	w.Fn[width>>2](dst, src, w, height)
}

// SetWeight sets the transform parameters. A weighted descriptor is resolved through
// WeightCache, an unweighted one gets a nil Fn.
func (pf *Functions[P]) SetWeight(w *Weight[P], weighted bool, scale, denom, offset int) {
	w.Scale = scale
	w.Denom = denom
	w.Offset = offset

	if weighted {
		pf.WeightCache(w)
	} else {
		w.Fn = nil
	}
}

func (pf *Functions[P]) weightCache(w *Weight[P]) {
	offset := w.Offset << (pf.Depth - 8)

	if w.Scale == 1<<w.Denom {
		if w.Offset == 0 {
			w.Fn = nil
			return
		}

		if w.Offset < 0 {
			w.Fn = pf.OffsetSub
		} else {
			w.Fn = pf.OffsetAdd
		}
		for i := range w.CacheA {
			w.CacheA[i] = int16(abs(offset))
		}
		return
	}

	w.Fn = pf.Weight

	if pf.Depth == 8 {
		round := 0
		if w.Denom > 0 {
			round = 1 << (w.Denom - 1)
		}
		b := int16(w.Offset<<w.Denom | round)
		for i := range w.CacheA {
			w.CacheA[i] = int16(w.Scale)
			w.CacheB[i] = b
		}
		return
	}

	for i := range w.CacheA {
		w.CacheA[i] = int16(1 << w.Denom)
		if i&1 == 1 {
			w.CacheB[i] = int16(1 + offset<<1)
		} else {
			w.CacheB[i] = int16(w.Scale << 1)
		}
	}
}

func (c *scalar[P]) weight(dst, src View[P], w *Weight[P], width, height int) {
	offset := w.Offset << (c.depth - 8)
	scale := w.Scale
	denom := w.Denom

	if denom >= 1 {
		round := 1 << (denom - 1)
		for y := 0; y < height; y++ {
			d := dst.Row(y, 0, width)
			s := src.Row(y, 0, width)
			for x := range d {
				d[x] = clipPixel[P](((int(s[x])*scale+round)>>denom)+offset, c.max)
			}
		}
		return
	}

	for y := 0; y < height; y++ {
		d := dst.Row(y, 0, width)
		s := src.Row(y, 0, width)
		for x := range d {
			d[x] = clipPixel[P](int(s[x])*scale+offset, c.max)
		}
	}
}

// WeightScalePlane weights a whole plane in horizontal strips of 16 rows, 16 columns
// at a time with an 8-wide tail. The width is rounded up to a multiple of 8. An
// unweighted w copies the plane.
func (pf *Functions[P]) WeightScalePlane(dst, src View[P], width, height int, w *Weight[P]) {
	if !w.weighted() {
		pf.PlaneCopy(dst, src, width, height)
		return
	}

	for y := 0; y < height; y += 16 {
		h := min(height-y, 16)
		d := dst.At(0, y)
		s := src.At(0, y)

		x := 0
		for ; x < width-8; x += 16 {
			w.Fn[16>>2](d.At(x, 0), s.At(x, 0), w, h)
		}
		if x < width {
			w.Fn[8>>2](d.At(x, 0), s.At(x, 0), w, h)
		}
	}
}

var weightWidths = [6]int{2, 4, 8, 12, 16, 20}

func (c *scalar[P]) weightTable() *WeightTable[P] {
	return weightTableOf(c.weight)
}

func weightTableOf[P Pixel](fn func(dst, src View[P], w *Weight[P], width, height int)) *WeightTable[P] {
	var t WeightTable[P]
	for i, width := range weightWidths {
		width := width
		t[i] = func(dst, src View[P], w *Weight[P], height int) {
			fn(dst, src, w, width, height)
		}
	}
	return &t
}
