package mc

import (
	"math/rand"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendNames(t *testing.T) {
	for _, f := range families[uint8]() {
		pf := familyTable[uint8](8, f.cpu, f.arch)
		assert.Equal(t, f.backend, pf.Backend, f.name)
	}

	assert.Equal(t, "c", familyTable[uint8](8, 0, nil).Backend)
}

func TestVectorAvg(t *testing.T) {
	eachFamily(t, 8, checkAvg[uint8])
	eachFamily(t, 10, checkAvg[uint16])
}

func checkAvg[P Pixel](t *testing.T, ref, pf *Functions[P], r *rand.Rand) {
	pmax := pixelMax(ref.Depth)

	for size := PixelSize(0); size < NumPixelSizes; size++ {
		w, h := size.Size()
		for _, weight := range []int{32, 16, 48, -8, 72} {
			a := randomView[P](r, w, h, pmax)
			b := randomView[P](r, w, h, pmax)
			want := newView[P](w, h)
			got := newView[P](w, h)

			ref.Avg[size](want, a, b, weight)
			pf.Avg[size](got, a, b, weight)
			require.Equal(t, rows(want, 0, w, h), rows(got, 0, w, h), "size %d weight %d", size, weight)
		}
	}

	for _, size := range []PixelSize{Pixel16x16, Pixel8x8, Pixel4x4} {
		w, h := size.Size()
		src := randomView[P](r, w, h, pmax)
		got := newView[P](w, h)
		pf.Copy[size](got, src, h)
		assert.Equal(t, rows(src, 0, w, h), rows(got, 0, w, h))
	}

	src := randomView[P](r, 16, 16, pmax)
	got := newView[P](16, 16)
	pf.Copy16x16Unaligned(got, src, 16)
	assert.Equal(t, rows(src, 0, 16, 16), rows(got, 0, 16, 16))
}

func TestVectorWeight(t *testing.T) {
	eachFamily(t, 8, checkWeight[uint8])
	eachFamily(t, 10, checkWeight[uint16])
}

func checkWeight[P Pixel](t *testing.T, ref, pf *Functions[P], r *rand.Rand) {
	pmax := pixelMax(ref.Depth)

	params := []struct{ scale, denom, offset int }{
		{64, 6, 0},
		{64, 6, 3},
		{64, 6, -3},
		{1, 0, 127},
		{1, 0, -128},
		{40, 5, 7},
		{-20, 4, -10},
		{3, 0, 2},
		{90, 7, 127},
		{127, 6, -128},
		{127, 0, 127},
		{-128, 0, -128},
		{-128, 7, 127},
	}

	for _, p := range params {
		var wr, wp Weight[P]
		ref.SetWeight(&wr, true, p.scale, p.denom, p.offset)
		pf.SetWeight(&wp, true, p.scale, p.denom, p.offset)

		if wr.Fn == nil {
			assert.Nil(t, wp.Fn)
			continue
		}

		for i, width := range weightWidths {
			src := randomView[P](r, width, 8, pmax)
			want := newView[P](width, 8)
			got := newView[P](width, 8)

			wr.Fn[i](want, src, &wr, 8)
			wp.Fn[i](got, src, &wp, 8)
			require.Equal(t, rows(want, 0, width, 8), rows(got, 0, width, 8), "%+v width %d", p, width)
		}
	}
}

func TestVectorHpel(t *testing.T) {
	eachFamily(t, 8, checkHpel[uint8])
	eachFamily(t, 10, checkHpel[uint16])
}

func checkHpel[P Pixel](t *testing.T, ref, pf *Functions[P], r *rand.Rand) {
	pmax := pixelMax(ref.Depth)

	for i, w := range []int{8, 45, 64, 45} {
		h := 9
		src := randomPlane[P](r, w, h, pmax)
		if i == 3 {
			// Only black and white samples, which reach the ends of every sum.
			for k, p := range src.Data {
				src.Data[k] = P(int(p) / (pmax/2 + 1) * pmax)
			}
		}

		run := func(fn HpelFilterFunc[P]) (dh, dv, dc *Plane[P]) {
			dh = NewPlane[P](w, h, 32, 32)
			dv = NewPlane[P](w, h, 32, 32)
			dc = NewPlane[P](w, h, 32, 32)
			fn(dh.View(), dv.View(), dc.View(), src.View(), w, h, make([]Widened, HpelScratchSize(w)))
			return dh, dv, dc
		}

		wh, wv, wc := run(ref.HpelFilter)
		gh, gv, gc := run(pf.HpelFilter)

		assert.Equal(t, rows(wh.View(), 0, w, h), rows(gh.View(), 0, w, h), "horizontal width %d", w)
		assert.Equal(t, rows(wv.View(), -2, w+5, h), rows(gv.View(), -2, w+5, h), "vertical width %d", w)
		assert.Equal(t, rows(wc.View(), 0, w, h), rows(gc.View(), 0, w, h), "center width %d", w)
	}
}

func TestVectorChroma(t *testing.T) {
	eachFamily(t, 8, checkChroma[uint8])
	eachFamily(t, 10, checkChroma[uint16])
}

func checkChroma[P Pixel](t *testing.T, ref, pf *Functions[P], r *rand.Rand) {
	pmax := pixelMax(ref.Depth)
	src := randomPlane[P](r, 64, 16, pmax)

	for _, w := range []int{2, 3, 4, 8} {
		for i := 0; i < 20; i++ {
			mvx := r.Intn(33) - 16
			mvy := r.Intn(33) - 16

			wu, wv := newView[P](w+1, 4), newView[P](w+1, 4)
			gu, gv := newView[P](w+1, 4), newView[P](w+1, 4)
			ref.MCChroma(wu, wv, src.View(), mvx, mvy, w, 4)
			pf.MCChroma(gu, gv, src.View(), mvx, mvy, w, 4)

			require.Equal(t, rows(wu, 0, w, 4), rows(gu, 0, w, 4), "u w %d mv %d,%d", w, mvx, mvy)
			require.Equal(t, rows(wv, 0, w, 4), rows(gv, 0, w, 4), "v w %d mv %d,%d", w, mvx, mvy)
		}
	}
}

func TestVectorPlaneCopy(t *testing.T) {
	eachFamily(t, 8, checkPlaneCopy[uint8])
	eachFamily(t, 10, checkPlaneCopy[uint16])
}

// bottomUp returns a view of the first h rows of p that walks them from the last one.
func bottomUp[P Pixel](p *Plane[P], h int) View[P] {
	v := p.View()
	return View[P]{Data: v.Data, Off: v.Off + (h-1)*v.Stride, Stride: -v.Stride}
}

func checkPlaneCopy[P Pixel](t *testing.T, ref, pf *Functions[P], r *rand.Rand) {
	pmax := pixelMax(ref.Depth)
	const h = 5

	for _, w := range []int{7, 256, 300, 320} {
		src := randomPlane[P](r, w, h, pmax)
		for _, s := range []View[P]{src.View(), bottomUp(src, h)} {
			want := NewPlane[P](w, h, 32, 32)
			got := NewPlane[P](w, h, 32, 32)
			ref.PlaneCopy(want.View(), s, w, h)
			pf.PlaneCopy(got.View(), s, w, h)
			require.Equal(t, rows(want.View(), 0, w, h), rows(got.View(), 0, w, h), "copy width %d", w)
		}
	}

	for _, w := range []int{3, 5, 16, 17, 40} {
		src := randomPlane[P](r, 2*w, h, pmax)
		for _, s := range []View[P]{src.View(), bottomUp(src, h)} {
			want := NewPlane[P](2*w, h, 32, 32)
			got := NewPlane[P](2*w, h, 32, 32)
			ref.PlaneCopySwap(want.View(), s, w, h)
			pf.PlaneCopySwap(got.View(), s, w, h)
			require.Equal(t, rows(want.View(), 0, 2*w, h), rows(got.View(), 0, 2*w, h), "swap width %d", w)

			wa, wb := NewPlane[P](w, h, 32, 32), NewPlane[P](w, h, 32, 32)
			ga, gb := NewPlane[P](w, h, 32, 32), NewPlane[P](w, h, 32, 32)
			ref.PlaneCopyDeinterleave(wa.View(), wb.View(), s, w, h)
			pf.PlaneCopyDeinterleave(ga.View(), gb.View(), s, w, h)
			require.Equal(t, rows(wa.View(), 0, w, h), rows(ga.View(), 0, w, h), "deinterleave width %d", w)
			require.Equal(t, rows(wb.View(), 0, w, h), rows(gb.View(), 0, w, h), "deinterleave width %d", w)

			pf.PlaneCopyDeinterleaveYUYV(ga.View(), gb.View(), s, w, h)
			require.Equal(t, rows(wa.View(), 0, w, h), rows(ga.View(), 0, w, h), "yuyv width %d", w)
		}

		u := randomPlane[P](r, w, h, pmax)
		v := randomPlane[P](r, w, h, pmax)
		for _, neg := range []bool{false, true} {
			su, sv := u.View(), v.View()
			if neg {
				su, sv = bottomUp(u, h), bottomUp(v, h)
			}
			want := NewPlane[P](2*w, h, 32, 32)
			got := NewPlane[P](2*w, h, 32, 32)
			ref.PlaneCopyInterleave(want.View(), su, sv, w, h)
			pf.PlaneCopyInterleave(got.View(), su, sv, w, h)
			require.Equal(t, rows(want.View(), 0, 2*w, h), rows(got.View(), 0, 2*w, h), "interleave width %d", w)
		}
	}
}

func TestVectorChromaCache(t *testing.T) {
	eachFamily(t, 8, checkChromaCache[uint8])
	eachFamily(t, 10, checkChromaCache[uint16])
}

func checkChromaCache[P Pixel](t *testing.T, ref, pf *Functions[P], r *rand.Rand) {
	pmax := pixelMax(ref.Depth)
	const h = 8

	u := make([]P, FdecStride*h)
	v := make([]P, FdecStride*h)
	fillRandom(r, u, pmax)
	fillRandom(r, v, pmax)

	want := NewPlane[P](16, h, 32, 32)
	got := NewPlane[P](16, h, 32, 32)
	ref.StoreInterleaveChroma(want.View(), u, v, h)
	pf.StoreInterleaveChroma(got.View(), u, v, h)
	require.Equal(t, rows(want.View(), 0, 16, h), rows(got.View(), 0, 16, h))

	src := randomPlane[P](r, 16, h, pmax)

	wf, gf := make([]P, FencStride*h), make([]P, FencStride*h)
	ref.LoadDeinterleaveChromaFenc(wf, src.View(), h)
	pf.LoadDeinterleaveChromaFenc(gf, src.View(), h)
	assert.Equal(t, wf, gf)

	wd, gd := make([]P, FdecStride*h), make([]P, FdecStride*h)
	ref.LoadDeinterleaveChromaFdec(wd, src.View(), h)
	pf.LoadDeinterleaveChromaFdec(gd, src.View(), h)
	assert.Equal(t, wd, gd)
}

func TestVectorLowres(t *testing.T) {
	eachFamily(t, 8, checkLowres[uint8])
	eachFamily(t, 10, checkLowres[uint16])
}

func checkLowres[P Pixel](t *testing.T, ref, pf *Functions[P], r *rand.Rand) {
	pmax := pixelMax(ref.Depth)

	for _, w := range []int{4, 21, 32} {
		h := 6
		src := randomPlane[P](r, 2*w+2, 2*h+2, pmax)

		run := func(fn LowresFunc[P]) [4][][]P {
			var dst [4]*Plane[P]
			for i := range dst {
				dst[i] = NewPlane[P](w, h, 32, 32)
			}
			fn(src.View(), dst[0].View(), dst[1].View(), dst[2].View(), dst[3].View(), w, h)

			var out [4][][]P
			for i := range dst {
				out[i] = rows(dst[i].View(), 0, w, h)
			}
			return out
		}

		assert.Equal(t, run(ref.FrameInitLowresCore), run(pf.FrameInitLowresCore), "width %d", w)
	}
}

func TestVectorMBTree(t *testing.T) {
	eachFamily(t, 8, checkMBTree[uint8])
}

func checkMBTree[P Pixel](t *testing.T, ref, pf *Functions[P], r *rand.Rand) {
	const n = 37

	in := make([]uint16, n)
	intra := make([]uint16, n)
	inter := make([]uint16, n)
	invq := make([]uint16, n)
	for i := 0; i < n; i++ {
		in[i] = uint16(r.Intn(30000))
		if i%5 != 0 {
			intra[i] = uint16(r.Intn(5000))
		}
		inter[i] = uint16(r.Intn(4)<<LowresCostShift | r.Intn(6000))
		invq[i] = uint16(r.Intn(512))
	}

	want := make([]int16, n)
	got := make([]int16, n)
	fps := FPSFactor(0.04, 0.04)
	ref.MBTreePropagateCost(want, in, intra, inter, invq, fps, n)
	pf.MBTreePropagateCost(got, in, intra, inter, invq, fps, n)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1, "index %d", i)
	}

	g := NewMBGrid(7*8, 5*8)
	count := g.Count()

	mvs := make([][2]int16, count)
	amount := make([]int16, count)
	costs := make([]uint16, count)
	for i := range mvs {
		if i%4 != 0 {
			mvs[i] = [2]int16{int16(r.Intn(161) - 80), int16(r.Intn(161) - 80)}
		}
		amount[i] = int16(r.Intn(32768))
		costs[i] = uint16(r.Intn(4)<<LowresCostShift | r.Intn(1000))
	}

	for list := 0; list < 2; list++ {
		wantRef := make([]uint16, count)
		for i := range wantRef {
			wantRef[i] = uint16(r.Intn(30000))
		}
		gotRef := append([]uint16(nil), wantRef...)

		for y := 0; y < g.Height; y++ {
			idx := y * g.Stride
			ref.MBTreePropagateList(g, wantRef, mvs[idx:], amount[idx:], costs[idx:], 40, y, g.Width, list)
			pf.MBTreePropagateList(g, gotRef, mvs[idx:], amount[idx:], costs[idx:], 40, y, g.Width, list)
		}
		assert.Equal(t, wantRef, gotRef, "list %d", list)
	}
}

func TestVectorMBTreeSaturation(t *testing.T) {
	eachFamily(t, 8, checkMBTreeSaturation[uint8])
}

// checkMBTreeSaturation lands every macroblock of a row on one cell with full-pel
// vectors, so the cell takes the whole amount of each of them.
func checkMBTreeSaturation[P Pixel](t *testing.T, ref, pf *Functions[P], _ *rand.Rand) {
	g := NewMBGrid(8*8, 2*8)
	const target = 1*8 + 3

	mvs := make([][2]int16, g.Width)
	amount := make([]int16, g.Width)
	costs := make([]uint16, g.Width)
	for i := range mvs {
		mvs[i] = [2]int16{int16((3 - i) * 32), 32}
		amount[i] = 32767
		costs[i] = 1<<LowresCostShift | 100
	}

	for _, start := range []uint16{0, 32000, 32767} {
		want := make([]uint16, g.Count())
		got := make([]uint16, g.Count())
		want[target] = start
		got[target] = start

		ref.MBTreePropagateList(g, want, mvs, amount, costs, 32, 0, g.Width, 0)
		pf.MBTreePropagateList(g, got, mvs, amount, costs, 32, 0, g.Width, 0)

		assert.Equal(t, want, got, "start %d", start)
		assert.Equal(t, uint16(32767), got[target], "start %d", start)
		for i, c := range got {
			if i != target {
				assert.Zero(t, c, "index %d", i)
			}
		}
	}
}

type listInput struct {
	mvs    [][2]int16
	amount []int16
	costs  []uint16
}

func randomListInput(r *rand.Rand, count int) listInput {
	in := listInput{
		mvs:    make([][2]int16, count),
		amount: make([]int16, count),
		costs:  make([]uint16, count),
	}
	for i := range in.mvs {
		if i%3 != 0 {
			in.mvs[i] = [2]int16{int16(r.Intn(161) - 80), int16(r.Intn(161) - 80)}
		}
		in.amount[i] = int16(r.Intn(4000))
		in.costs[i] = uint16(r.Intn(4)<<LowresCostShift | r.Intn(1000))
	}
	return in
}

func propagateRows(pf PropagateListFunc, g *MBGrid, refCosts []uint16, in listInput, list int) {
	for y := 0; y < g.Height; y++ {
		idx := y * g.Stride
		pf(g, refCosts, in.mvs[idx:], in.amount[idx:], in.costs[idx:], 40, y, g.Width, list)
	}
}

func TestVectorMBTreeSharedGrid(t *testing.T) {
	eachFamily(t, 8, checkMBTreeSharedGrid[uint8])
}

// checkMBTreeSharedGrid propagates two unrelated frames over one grid at the same time.
func checkMBTreeSharedGrid[P Pixel](t *testing.T, ref, pf *Functions[P], r *rand.Rand) {
	g := NewMBGrid(7*8, 5*8)
	const passes = 20

	inputs := []listInput{randomListInput(r, g.Count()), randomListInput(r, g.Count())}
	want := make([][]uint16, len(inputs))
	got := make([][]uint16, len(inputs))
	for i, in := range inputs {
		want[i] = make([]uint16, g.Count())
		got[i] = make([]uint16, g.Count())
		for n := 0; n < passes; n++ {
			propagateRows(ref.MBTreePropagateList, g, want[i], in, i)
		}
	}

	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func(i int, in listInput) {
			defer wg.Done()
			for n := 0; n < passes; n++ {
				propagateRows(pf.MBTreePropagateList, g, got[i], in, i)
			}
		}(i, in)
	}
	wg.Wait()

	assert.Equal(t, want, got)
}

func TestVectorMBTreeAllocs(t *testing.T) {
	eachFamily(t, 8, checkMBTreeAllocs[uint8])
}

func checkMBTreeAllocs[P Pixel](t *testing.T, _, pf *Functions[P], r *rand.Rand) {
	g := NewMBGrid(7*8, 5*8)
	in := randomListInput(r, g.Count())
	costs := make([]uint16, g.Count())

	allocs := testing.AllocsPerRun(10, func() {
		propagateRows(pf.MBTreePropagateList, g, costs, in, 0)
	})
	assert.Zero(t, allocs)
}

func TestLoadHead(t *testing.T) {
	b := make([]byte, 32)
	for k := 0; k < 9; k++ {
		head := loadHead(b[k:], 100)
		assert.Less(t, head, 8)
		assert.Zero(t, (uintptr(unsafe.Pointer(&b[k]))+uintptr(head))%8, "offset %d", k)
		assert.LessOrEqual(t, loadHead(b[k:], 2), 2)
	}
}

func TestVectorAlignedLoads(t *testing.T) {
	checkAlignedAvg[uint8](t, 8)
	checkAlignedAvg[uint16](t, 10)
}

func checkAlignedAvg[P Pixel](t *testing.T, depth int) {
	r := rand.New(rand.NewSource(19))
	pmax := pixelMax(depth)

	c := newScalar[P](depth)
	v := newVector(c, "sse2", 16).hints(CPUCacheline64)
	require.True(t, v.alignLoads)
	assert.False(t, newVector(c, "sse2", 16).hints(CPUSSE2).alignLoads)

	for off := 0; off < 8; off++ {
		for _, w := range []int{2, 4, 8, 16, 20} {
			a := randomView[P](r, w+8, 4, pmax)
			a.Off = off
			b := randomView[P](r, w, 4, pmax)
			want := newView[P](w, 4)
			got := newView[P](w, 4)

			c.avg(want, a, b, w, 4)
			v.avg(got, a, b, w, 4)
			require.Equal(t, rows(want, 0, w, 4), rows(got, 0, w, 4), "offset %d width %d", off, w)
		}
	}
}
