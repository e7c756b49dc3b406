package mc

// installAvg replaces the block averaging, copy and luma kernels.
func (v *vector[P]) installAvg(pf *Functions[P]) {
	l := &lumaMC[P]{avg: v.avg, copy: v.copy}
	pf.MCLuma = l.mc
	pf.GetRef = l.getRef

	pf.Avg = avgTable(v.avg, v.scalar.avgWeight)

	pf.Copy16x16Unaligned = copyFunc(v.copy, 16)
	pf.Copy[Pixel16x16] = copyFunc(v.copy, 16)
	pf.Copy[Pixel8x8] = copyFunc(v.copy, 8)
	pf.Copy[Pixel4x4] = copyFunc(v.copy, 4)
}

func (v *vector[P]) installWeight(pf *Functions[P]) {
	pf.Weight, pf.OffsetAdd, pf.OffsetSub = v.weightTables()
}

// installPlane replaces the layout conversions. Shuffle-heavy kernels stay scalar on
// processors that report slow shuffles.
func (v *vector[P]) installPlane(pf *Functions[P], cpu CPU) {
	pf.PlaneCopy = v.planeCopy

	if cpu&CPUSlowShuffle != 0 {
		return
	}

	pf.PlaneCopySwap = v.planeCopySwap
	pf.PlaneCopyInterleave = v.planeCopyInterleave
	pf.PlaneCopyDeinterleave = v.planeCopyDeinterleave
	pf.PlaneCopyDeinterleaveYUYV = v.planeCopyDeinterleave
	pf.StoreInterleaveChroma = v.storeInterleaveChroma
	pf.LoadDeinterleaveChromaFenc = loadDeinterleaveChroma(v.planeCopyDeinterleaveCore, FencStride)
	pf.LoadDeinterleaveChromaFdec = loadDeinterleaveChroma(v.planeCopyDeinterleaveCore, FdecStride)
}

func (v *vector[P]) installMBTree(pf *Functions[P]) {
	pf.MBTreePropagateCost = v.propagateCost
	pf.MBTreePropagateList = v.propagateList
}

// initX86 installs the SSE2, SSSE3, AVX and AVX2 families.
func initX86[P Pixel](cpu CPU, pf *Functions[P], c *scalar[P]) {
	if cpu&CPUSSE2 == 0 {
		return
	}

	v := newVector(c, "sse2", 16).hints(cpu)
	pf.Backend = v.name

	v.installPlane(pf, cpu)
	pf.MBTreePropagateCost = v.propagateCost

	// 16-byte loads are split on these cores; the 256-bit family below covers them.
	if cpu&CPUSSE2IsSlow == 0 {
		v.installAvg(pf)
		v.installWeight(pf)
		pf.HpelFilter = v.hpelFilter
		pf.FrameInitLowresCore = v.frameInitLowresCore
	}

	if cpu&CPUSSSE3 != 0 {
		v.name = "ssse3"
		pf.Backend = v.name
		pf.MCChroma = v.mcChroma
		pf.MBTreePropagateList = v.propagateList
	}

	// AVX cores do not split 16-byte loads, so the kernels skipped above return.
	if cpu&CPUAVX != 0 {
		v = newVector(c, "avx", 16).hints(cpu)
		pf.Backend = v.name

		v.installAvg(pf)
		v.installWeight(pf)
		pf.HpelFilter = v.hpelFilter
		pf.FrameInitLowresCore = v.frameInitLowresCore
		pf.MCChroma = v.mcChroma
	}

	if cpu&CPUAVX2 == 0 {
		return
	}

	v = newVector(c, "avx2", 32).hints(cpu)
	pf.Backend = v.name

	v.installAvg(pf)
	v.installWeight(pf)
	v.installPlane(pf, cpu)
	v.installMBTree(pf)
	pf.HpelFilter = v.hpelFilter
	pf.FrameInitLowresCore = v.frameInitLowresCore
	pf.MCChroma = v.mcChroma
}

// initNEON installs the 128-bit ARM family.
func initNEON[P Pixel](cpu CPU, pf *Functions[P], c *scalar[P]) {
	if cpu&CPUNEON == 0 {
		return
	}

	v := newVector(c, "neon", 16)
	pf.Backend = v.name

	v.installAvg(pf)
	v.installWeight(pf)
	v.installPlane(pf, cpu)
	v.installMBTree(pf)
	pf.HpelFilter = v.hpelFilter
	pf.FrameInitLowresCore = v.frameInitLowresCore
	pf.MCChroma = v.mcChroma
}

// initMSA installs the MIPS family. It has no macroblock-tree kernels.
func initMSA[P Pixel](cpu CPU, pf *Functions[P], c *scalar[P]) {
	if cpu&CPUMSA == 0 {
		return
	}

	v := newVector(c, "msa", 16)
	pf.Backend = v.name

	v.installAvg(pf)
	v.installWeight(pf)
	v.installPlane(pf, cpu)
	pf.HpelFilter = v.hpelFilter
	pf.FrameInitLowresCore = v.frameInitLowresCore
	pf.MCChroma = v.mcChroma
}
