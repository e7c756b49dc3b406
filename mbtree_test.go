package mc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropagateCost(t *testing.T) {
	fps := FPSFactor(0.04, 0.04)
	assert.Equal(t, float32(1.0/512), fps)

	tests := []struct {
		name                   string
		in, intra, inter, invq uint16
		want                   int16
	}{
		{"no intra cost", 500, 0, 0, 256, 0},
		{"half propagated", 100, 200, 100, 256, 100},
		{"list bits masked", 100, 200, 3<<LowresCostShift | 100, 256, 100},
		{"inter above intra", 100, 200, 900, 256, 0},
		{"saturated", 65535, 1000, 0, 65535, 32767},
	}

	for _, tt := range tests {
		dst := make([]int16, 1)
		mbtreePropagateCost(dst, []uint16{tt.in}, []uint16{tt.intra}, []uint16{tt.inter}, []uint16{tt.invq}, fps, 1)
		assert.Equal(t, tt.want, dst[0], tt.name)
	}

	mbtreePropagateCost(nil, nil, nil, nil, nil, fps, 0)
}

func TestPropagateList(t *testing.T) {
	g := NewMBGrid(32, 32)
	require.Equal(t, 4, g.Width)
	require.Equal(t, 16, g.Count())

	run := func(mv [2]int16, mbx, mby, amount, lists, list, weight int) []uint16 {
		costs := make([]uint16, g.Count())
		mvs := make([][2]int16, g.Width)
		amounts := make([]int16, g.Width)
		lowres := make([]uint16, g.Width)
		mvs[mbx] = mv
		amounts[mbx] = int16(amount)
		lowres[mbx] = uint16(lists << LowresCostShift)
		mbtreePropagateList(g, costs, mvs, amounts, lowres, weight, mby, g.Width, list)
		return costs
	}

	costs := run([2]int16{16, 16}, 1, 1, 1024, 1, 0, 32)
	for _, i := range []int{5, 6, 9, 10} {
		assert.Equal(t, uint16(256), costs[i], "index %d", i)
	}
	assert.Zero(t, costs[0])

	costs = run([2]int16{-16, -16}, 0, 0, 1024, 1, 0, 32)
	assert.Equal(t, uint16(256), costs[0])
	sum := 0
	for _, c := range costs {
		sum += int(c)
	}
	assert.Equal(t, 256, sum)

	costs = run([2]int16{}, 2, 3, 1024, 3, 1, 48)
	assert.Equal(t, uint16((1024*48+32)>>6), costs[3*4+2])

	costs = run([2]int16{16, 16}, 1, 1, 1024, 2, 0, 32)
	assert.Equal(t, make([]uint16, g.Count()), costs)

	costs = run([2]int16{32 * 4, 0}, 0, 0, 1024, 1, 0, 32)
	assert.Equal(t, make([]uint16, g.Count()), costs)
}

func TestClipAdd(t *testing.T) {
	v := uint16(32700)
	clipAdd(&v, 100)
	assert.Equal(t, uint16(32767), v)

	v = 10
	clipAdd(&v, 5)
	assert.Equal(t, uint16(15), v)
}

func TestFix8(t *testing.T) {
	pf, err := New[uint8](Config{})
	require.NoError(t, err)

	src := []float32{1.5, -0.5, 0, 127.99609375, -128}
	packed := make([]uint16, len(src))
	pf.MBTreeFix8Pack(packed, src, len(src))

	assert.Equal(t, []byte{0x01, 0x80, 0xff, 0x80}, asBytes(packed)[:4])

	got := make([]float32, len(src))
	pf.MBTreeFix8Unpack(got, packed, len(src))
	assert.Equal(t, src, got)
}

func TestFPSFactor(t *testing.T) {
	assert.Equal(t, float32(1.0/512), FPSFactor(5, 5))
	assert.InDelta(t, 0.01/(0.04*256)*0.5, FPSFactor(0.001, 0.04), 1e-9)
}

func TestBipredWeight(t *testing.T) {
	assert.Equal(t, 32, BipredWeight(0, 4, 1, false))
	assert.Equal(t, 48, BipredWeight(0, 4, 1, true))
	assert.Equal(t, 32, BipredWeight(0, 2, 1, true))
	assert.Equal(t, 43, BipredWeight(3, 6, 4, true))
}

func TestPropagateFrame(t *testing.T) {
	for _, cpu := range []CPU{0, CPUSSE2 | CPUSSSE3 | CPUAVX | CPUAVX2} {
		pf := familyTable[uint8](8, cpu, initX86[uint8])
		g := NewMBGrid(16, 16)
		n := g.Count()

		fill := func(v uint16) []uint16 {
			s := make([]uint16, n)
			for i := range s {
				s[i] = v
			}
			return s
		}

		p := &Propagation{
			RefCosts:     [2][]uint16{make([]uint16, n), nil},
			MVs:          [2][][2]int16{make([][2]int16, n), nil},
			IntraCosts:   fill(200),
			LowresCosts:  fill(1<<LowresCostShift | 100),
			InvQscales:   fill(256),
			FPSFactor:    FPSFactor(0.04, 0.04),
			BipredWeight: 32,
		}

		pf.PropagateFrame(g, p)
		assert.Equal(t, fill(50), p.RefCosts[0])

		p.RefCosts[0] = make([]uint16, n)
		p.PropagateIn = fill(100)
		pf.PropagateFrame(g, p)
		assert.Equal(t, fill(100), p.RefCosts[0])
	}
}

func TestPropagateFrameBothLists(t *testing.T) {
	r := rand.New(rand.NewSource(13))

	pf := familyTable[uint8](8, 0, nil)
	g := NewMBGrid(40, 24)
	n := g.Count()

	p := &Propagation{
		RefCosts:     [2][]uint16{make([]uint16, n), make([]uint16, n)},
		MVs:          [2][][2]int16{make([][2]int16, n), make([][2]int16, n)},
		PropagateIn:  make([]uint16, n),
		IntraCosts:   make([]uint16, n),
		LowresCosts:  make([]uint16, n),
		InvQscales:   make([]uint16, n),
		FPSFactor:    FPSFactor(0.04, 0.04),
		BipredWeight: BipredWeight(0, 4, 1, true),
	}
	for i := 0; i < n; i++ {
		p.PropagateIn[i] = uint16(r.Intn(2000))
		p.IntraCosts[i] = uint16(1 + r.Intn(2000))
		p.LowresCosts[i] = uint16(3<<LowresCostShift | r.Intn(2000))
		p.InvQscales[i] = uint16(r.Intn(512))
		for l := 0; l < 2; l++ {
			p.MVs[l][i] = [2]int16{int16(r.Intn(65) - 32), int16(r.Intn(65) - 32)}
		}
	}

	want := [2][]uint16{make([]uint16, n), make([]uint16, n)}
	amount := make([]int16, g.Width)
	for y := 0; y < g.Height; y++ {
		idx := y * g.Stride
		mbtreePropagateCost(amount, p.PropagateIn[idx:], p.IntraCosts[idx:], p.LowresCosts[idx:], p.InvQscales[idx:], p.FPSFactor, g.Width)
		mbtreePropagateList(g, want[0], p.MVs[0][idx:], amount, p.LowresCosts[idx:], p.BipredWeight, y, g.Width, 0)
		mbtreePropagateList(g, want[1], p.MVs[1][idx:], amount, p.LowresCosts[idx:], 64-p.BipredWeight, y, g.Width, 1)
	}

	pf.PropagateFrame(g, p)
	assert.Equal(t, want, p.RefCosts)
}

func TestPropagateFrameAllocs(t *testing.T) {
	pf := familyTable[uint8](8, CPUSSE2|CPUSSSE3|CPUAVX|CPUAVX2, initX86[uint8])
	g := NewMBGrid(40, 24)
	n := g.Count()

	p := &Propagation{
		RefCosts:     [2][]uint16{make([]uint16, n), nil},
		MVs:          [2][][2]int16{make([][2]int16, n), nil},
		IntraCosts:   make([]uint16, n),
		LowresCosts:  make([]uint16, n),
		InvQscales:   make([]uint16, n),
		FPSFactor:    FPSFactor(0.04, 0.04),
		BipredWeight: 32,
	}
	for i := 0; i < n; i++ {
		p.IntraCosts[i] = 300
		p.LowresCosts[i] = 1<<LowresCostShift | 100
		p.InvQscales[i] = 256
	}

	allocs := testing.AllocsPerRun(10, func() {
		pf.PropagateFrame(g, p)
	})
	assert.Zero(t, allocs)

	p.PropagateIn = make([]uint16, n)
	allocs = testing.AllocsPerRun(10, func() {
		pf.PropagateFrame(g, p)
	})
	assert.Zero(t, allocs)
}
