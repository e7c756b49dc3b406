package mc

import (
	"math/rand"
	"testing"
)

func fillRandom[P Pixel](r *rand.Rand, data []P, pmax int) {
	for i := range data {
		data[i] = P(r.Intn(pmax + 1))
	}
}

// newView returns a zeroed block with a few samples of slack on every row.
func newView[P Pixel](w, h int) View[P] {
	stride := w + 7
	return View[P]{Data: make([]P, stride*h), Stride: stride}
}

func randomView[P Pixel](r *rand.Rand, w, h, pmax int) View[P] {
	v := newView[P](w, h)
	fillRandom(r, v.Data, pmax)
	return v
}

func randomPlane[P Pixel](r *rand.Rand, w, h, pmax int) *Plane[P] {
	p := NewPlane[P](w, h, 32, 32)
	fillRandom(r, p.Data, pmax)
	return p
}

// rows copies the w x h block at v, starting at column x0.
func rows[P Pixel](v View[P], x0, w, h int) [][]P {
	out := make([][]P, h)
	for y := range out {
		out[y] = append([]P(nil), v.Row(y, x0, w)...)
	}
	return out
}

// familyTable builds a table the way Init does, with arch standing in for the
// architecture dispatch. A nil arch gives the scalar table.
func familyTable[P Pixel](depth int, cpu CPU, arch func(CPU, *Functions[P], *scalar[P])) *Functions[P] {
	c := newScalar[P](depth)
	pf := &Functions[P]{Depth: depth, CPU: cpu, Backend: "c"}
	c.install(pf)
	if arch != nil {
		arch(cpu, pf, c)
	}
	return pf
}

type family[P Pixel] struct {
	name    string
	cpu     CPU
	arch    func(CPU, *Functions[P], *scalar[P])
	backend string
}

func families[P Pixel]() []family[P] {
	return []family[P]{
		{"sse2", CPUSSE2, initX86[P], "sse2"},
		{"sse2slow", CPUSSE2 | CPUSSE2IsSlow, initX86[P], "sse2"},
		{"ssse3", CPUSSE2 | CPUSSSE3, initX86[P], "ssse3"},
		{"ssse3_slow_shuffle", CPUSSE2 | CPUSSSE3 | CPUSlowShuffle, initX86[P], "ssse3"},
		{"ssse3_cache32", CPUSSE2 | CPUSSSE3 | CPUCacheline32, initX86[P], "ssse3"},
		{"avx", CPUSSE2 | CPUSSSE3 | CPUAVX, initX86[P], "avx"},
		{"avx_sse2slow", CPUSSE2 | CPUSSE2IsSlow | CPUSSSE3 | CPUAVX | CPUCacheline64, initX86[P], "avx"},
		{"avx2", CPUSSE2 | CPUSSSE3 | CPUAVX | CPUAVX2, initX86[P], "avx2"},
		{"avx2_slow_unaligned", CPUSSE2 | CPUSSSE3 | CPUAVX | CPUAVX2 | CPUSlowUnaligned, initX86[P], "avx2"},
		{"neon", CPUNEON, initNEON[P], "neon"},
		{"msa", CPUMSA, initMSA[P], "msa"},
		{"x86_without_sse2", CPUNEON | CPUMSA, initX86[P], "c"},
	}
}

// eachFamily runs check for every kernel family against the scalar table of the same depth.
func eachFamily[P Pixel](t *testing.T, depth int, check func(t *testing.T, ref, pf *Functions[P], r *rand.Rand)) {
	ref := familyTable[P](depth, 0, nil)
	for _, f := range families[P]() {
		pf := familyTable[P](depth, f.cpu, f.arch)
		t.Run(f.name, func(t *testing.T) {
			check(t, ref, pf, rand.New(rand.NewSource(1)))
		})
	}
}
