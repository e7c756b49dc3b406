package mc

// Quarter-pel phase to half-pel plane. Index is ((mvy&3)<<2) + (mvx&3); planes are
// 0 full-pel, 1 horizontal, 2 vertical and 3 center.
var (
	hpelRef0 = [16]int{0, 1, 1, 1, 0, 1, 1, 1, 2, 3, 3, 3, 0, 1, 1, 1}
	hpelRef1 = [16]int{0, 0, 1, 0, 2, 2, 3, 2, 2, 2, 3, 2, 2, 2, 3, 2}
)

// FourTap is the reference set of one luma plane: the full-pel samples followed by the
// horizontal, vertical and center half-pel planes. All four share the block origin Off
// and Stride.
type FourTap[P Pixel] struct {
	Planes [4][]P
	Off    int
	Stride int
}

func (f *FourTap[P]) view(plane, off int) View[P] {
	return View[P]{Data: f.Planes[plane], Off: f.Off + off, Stride: f.Stride}
}

// RefKind tells where a GetRef prediction lives.
type RefKind int

const (
	// RefCopied means the prediction was written into the destination view.
	RefCopied RefKind = iota
	// RefAliased means the prediction is a view into the reference planes and must not be written.
	RefAliased
)

func (k RefKind) String() string {
	switch k {
	case RefCopied:
		return "copied"
	case RefAliased:
		return "aliased"
	default:
		return "unknown"
	}
}

// Ref is the result of GetRef. View has the stride of wherever the prediction lives.
type Ref[P Pixel] struct {
	Kind RefKind
	View View[P]
}

// lumaMC combines the averaging and copy kernels of one backend into quarter-pel prediction.
type lumaMC[P Pixel] struct {
	avg  func(dst, src1, src2 View[P], width, height int)
	copy func(dst, src View[P], width, height int)
}

func (l *lumaMC[P]) sources(src *FourTap[P], mvx, mvy int) (qpel int, src1, src2 View[P]) {
	qpel = ((mvy & 3) << 2) + (mvx & 3)
	offset := (mvy>>2)*src.Stride + (mvx >> 2)

	o1 := offset
	if mvy&3 == 3 {
		o1 += src.Stride
	}
	src1 = src.view(hpelRef0[qpel], o1)

	if qpel&5 != 0 {
		o2 := offset
		if mvx&3 == 3 {
			o2++
		}
		src2 = src.view(hpelRef1[qpel], o2)
	}

	return qpel, src1, src2
}

func (l *lumaMC[P]) mc(dst View[P], src *FourTap[P], mvx, mvy, width, height int, w *Weight[P]) {
	qpel, src1, src2 := l.sources(src, mvx, mvy)

	switch {
	case qpel&5 != 0:
		l.avg(dst, src1, src2, width, height)
		if w.weighted() {
			w.apply(dst, dst, width, height)
		}
	case w.weighted():
		w.apply(dst, src1, width, height)
	default:
		l.copy(dst, src1, width, height)
	}
}

func (l *lumaMC[P]) getRef(dst View[P], src *FourTap[P], mvx, mvy, width, height int, w *Weight[P]) Ref[P] {
	qpel, src1, src2 := l.sources(src, mvx, mvy)

	switch {
	case qpel&5 != 0:
		l.avg(dst, src1, src2, width, height)
		if w.weighted() {
			w.apply(dst, dst, width, height)
		}
	case w.weighted():
		w.apply(dst, src1, width, height)
	default:
		return Ref[P]{Kind: RefAliased, View: src1}
	}

	return Ref[P]{Kind: RefCopied, View: dst}
}
