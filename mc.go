// Package mc implements the motion-compensation primitives of an H.264 encoder.
//
// All kernels are reached through a capability table, Functions, that is filled once
// from a CPU feature mask and read-only afterwards. The table is generic over the pixel
// type: uint8 for 8-bit content and uint16 for 9 and 10-bit content.
//
// The table provides:
//
// 1. Block averaging, implicit weighted bi-prediction and copy for every partition size.
//
// 2. Quarter-pel luma motion compensation (MCLuma and GetRef) over a FourTap reference set
// made of the full-pel plane and three half-pel planes produced by HpelFilter.
//
// 3. Eighth-pel bilinear chroma motion compensation on interleaved (NV12) chroma.
//
// 4. Explicit weighted prediction, resolved once per Weight by WeightCache.
//
// 5. Plane layout conversion: copy, byte swap, interleave, deinterleave (UV, YUYV, RGB, v210).
//
// 6. Lowres downsampling, integral images and macroblock-tree cost propagation used by lookahead.
//
// Frame bundles padded planes and drives the whole-frame stages (border expansion, half-pel
// filtering, lowres construction) the way an encoder does for every reference frame.
//
// Kernels never allocate and never return errors. Views that lack the padding a kernel needs
// make it panic with an index out of range.
package mc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrInvalidDepth is the error returned for a bit depth the pixel type cannot carry.
var ErrInvalidDepth = errors.New("invalid bit depth")

// AvgFunc averages two blocks of one partition size. weight is the implicit bi-prediction
// weight of src1 in 1/64 units; 32 is the plain rounding average.
type AvgFunc[P Pixel] func(dst, src1, src2 View[P], weight int)

// CopyFunc copies height rows of a fixed-width block.
type CopyFunc[P Pixel] func(dst, src View[P], height int)

// WeightFunc applies w to height rows of a fixed-width block. dst and src may be the same view.
type WeightFunc[P Pixel] func(dst, src View[P], w *Weight[P], height int)

// WeightTable holds one WeightFunc per block width, indexed by width>>2 for widths 2, 4, 8, 12, 16 and 20.
type WeightTable[P Pixel] [6]WeightFunc[P]

// LumaFunc writes a quarter-pel luma prediction of width x height into dst.
type LumaFunc[P Pixel] func(dst View[P], src *FourTap[P], mvx, mvy, width, height int, w *Weight[P])

// GetRefFunc is LumaFunc that may alias the reference instead of writing dst.
type GetRefFunc[P Pixel] func(dst View[P], src *FourTap[P], mvx, mvy, width, height int, w *Weight[P]) Ref[P]

// ChromaFunc writes an eighth-pel chroma prediction. src is interleaved UV.
type ChromaFunc[P Pixel] func(dstu, dstv, src View[P], mvx, mvy, width, height int)

// HpelFilterFunc produces the horizontal, vertical and center half-pel planes of src.
// buf needs HpelScratchSize(width) elements.
type HpelFilterFunc[P Pixel] func(dsth, dstv, dstc, src View[P], width, height int, buf []Widened)

// PlaneCopyFunc copies or converts w x h samples.
type PlaneCopyFunc[P Pixel] func(dst, src View[P], w, h int)

// PlaneInterleaveFunc packs two planes of width w into one plane of width 2w.
type PlaneInterleaveFunc[P Pixel] func(dst, srcu, srcv View[P], w, h int)

// PlaneDeinterleaveFunc splits a packed plane into planes of width w.
type PlaneDeinterleaveFunc[P Pixel] func(dsta, dstb, src View[P], w, h int)

// PlaneDeinterleaveRGBFunc splits packed RGB or RGBA with pixel stride pw.
type PlaneDeinterleaveRGBFunc[P Pixel] func(dsta, dstb, dstc, src View[P], pw, w, h int)

// PlaneDeinterleaveV210Func unpacks 10-bit v210 words into luma and interleaved chroma.
// srcStride is in 32-bit words.
type PlaneDeinterleaveV210Func[P Pixel] func(dsty, dstc View[P], src []uint32, srcStride, w, h int)

// StoreInterleaveChromaFunc interleaves two 8-wide blocks laid out at FdecStride into dst.
type StoreInterleaveChromaFunc[P Pixel] func(dst View[P], srcu, srcv []P, height int)

// LoadDeinterleaveChromaFunc splits 8 interleaved pairs per row into a cache block: U at
// column 0 and V at column stride/2, where stride is FencStride or FdecStride.
type LoadDeinterleaveChromaFunc[P Pixel] func(dst []P, src View[P], height int)

// LowresFunc downsamples src into the four lowres planes.
type LowresFunc[P Pixel] func(src, dst0, dsth, dstv, dstc View[P], width, height int)

// IntegralHFunc accumulates one row of horizontal 4 or 8-sample sums on top of the row above.
// sum.Stride is used as the row length and must equal the pixel stride.
type IntegralHFunc[P Pixel] func(sum View[uint16], pix View[P])

// IntegralVFunc turns running sums into block sums. sum4 is nil for the 8x8 variant.
type IntegralVFunc func(sum8, sum4 View[uint16])

// PropagateCostFunc computes the cost each macroblock propagates to its references.
type PropagateCostFunc func(dst []int16, propagateIn, intraCosts, interCosts, invQscales []uint16, fpsFactor float32, n int)

// PropagateListFunc distributes propagated costs of one macroblock row along motion vectors.
type PropagateListFunc func(g *MBGrid, refCosts []uint16, mvs [][2]int16, propagateAmount []int16, lowresCosts []uint16, bipredWeight, mbY, n, list int)

// Fix8PackFunc converts floats to big-endian Q8.8 words.
type Fix8PackFunc func(dst []uint16, src []float32, n int)

// Fix8UnpackFunc converts big-endian Q8.8 words to floats.
type Fix8UnpackFunc func(dst []float32, src []uint16, n int)

// Functions is the motion-compensation capability table.
type Functions[P Pixel] struct {
	// Depth is the bit depth the table was built for.
	Depth int
	// CPU is the mask the table was built from.
	CPU CPU
	// Backend names the widest kernel family installed.
	Backend string

	MCLuma   LumaFunc[P]
	GetRef   GetRefFunc[P]
	MCChroma ChromaFunc[P]

	Avg [NumPixelSizes]AvgFunc[P]

	// Copy is set for Pixel16x16, Pixel8x8 and Pixel4x4 only.
	Copy               [NumPixelSizes]CopyFunc[P]
	Copy16x16Unaligned CopyFunc[P]

	StoreInterleaveChroma      StoreInterleaveChromaFunc[P]
	LoadDeinterleaveChromaFenc LoadDeinterleaveChromaFunc[P]
	LoadDeinterleaveChromaFdec LoadDeinterleaveChromaFunc[P]

	PlaneCopy                 PlaneCopyFunc[P]
	PlaneCopySwap             PlaneCopyFunc[P]
	PlaneCopyInterleave       PlaneInterleaveFunc[P]
	PlaneCopyDeinterleave     PlaneDeinterleaveFunc[P]
	PlaneCopyDeinterleaveYUYV PlaneDeinterleaveFunc[P]
	PlaneCopyDeinterleaveRGB  PlaneDeinterleaveRGBFunc[P]
	PlaneCopyDeinterleaveV210 PlaneDeinterleaveV210Func[P]

	HpelFilter HpelFilterFunc[P]

	FrameInitLowresCore LowresFunc[P]

	IntegralInit4h IntegralHFunc[P]
	IntegralInit8h IntegralHFunc[P]
	IntegralInit4v IntegralVFunc
	IntegralInit8v IntegralVFunc

	// Weight, OffsetAdd and OffsetSub are the kernels WeightCache assigns to Weight.Fn.
	Weight    *WeightTable[P]
	OffsetAdd *WeightTable[P]
	OffsetSub *WeightTable[P]

	WeightCache func(w *Weight[P])

	MBTreePropagateCost PropagateCostFunc
	MBTreePropagateList PropagateListFunc
	MBTreeFix8Pack      Fix8PackFunc
	MBTreeFix8Unpack    Fix8UnpackFunc
}

// Config selects how New builds a table.
type Config struct {
	// CPU is the feature mask. Zero selects the scalar kernels only.
	CPU CPU
	// BitDepth is 8 for uint8 tables and 9 or 10 for uint16 tables. Zero picks the
	// natural depth of the pixel type (8 or 10).
	BitDepth int
	// CPUIndependent keeps the scalar macroblock-tree kernels, whose float results do
	// not depend on the instruction set.
	CPUIndependent bool
}

// New validates cfg and returns a populated table.
func New[P Pixel](cfg Config) (*Functions[P], error) {
	depth := cfg.BitDepth
	if depth == 0 {
		depth = 8
		if sizeOf[P]() == 2 {
			depth = 10
		}
	}

	if err := checkDepth[P](depth); err != nil {
		return nil, err
	}

	pf := &Functions[P]{}
	Init(cfg.CPU, pf, depth, cfg.CPUIndependent)

	return pf, nil
}

func checkDepth[P Pixel](depth int) error {
	switch sizeOf[P]() {
	case 1:
		if depth != 8 {
			return fmt.Errorf("%w: %d for 8-bit pixels", ErrInvalidDepth, depth)
		}
	default:
		// The center half-pel filter keeps biased vertical sums in int16.
		if depth < 9 || depth > 10 {
			return fmt.Errorf("%w: %d for 16-bit pixels", ErrInvalidDepth, depth)
		}
	}

	return nil
}

// Init fills pf for the given CPU mask and bit depth. The scalar kernels are installed
// first and the architecture backends override what the mask allows. It panics on a
// depth New would reject.
func Init[P Pixel](cpu CPU, pf *Functions[P], depth int, cpuIndependent bool) {
	if err := checkDepth[P](depth); err != nil {
		panic("mc: " + err.Error())
	}

	c := newScalar[P](depth)

	*pf = Functions[P]{
		Depth:   depth,
		CPU:     cpu,
		Backend: "c",
	}
	c.install(pf)

	initArch(cpu, pf, c)

	if cpuIndependent {
		pf.MBTreePropagateCost = mbtreePropagateCost
		pf.MBTreePropagateList = mbtreePropagateList
	}

	logrus.WithFields(logrus.Fields{
		"function":        "Init",
		"cpu":             cpu.String(),
		"backend":         pf.Backend,
		"depth":           depth,
		"cpu_independent": cpuIndependent,
	}).Debug("Motion compensation table initialised")
}

// install puts the scalar kernels into pf.
func (c *scalar[P]) install(pf *Functions[P]) {
	l := &lumaMC[P]{avg: c.avg, copy: c.copy}
	pf.MCLuma = l.mc
	pf.GetRef = l.getRef
	pf.MCChroma = c.mcChroma

	pf.Avg = avgTable(c.avg, c.avgWeight)

	pf.Copy16x16Unaligned = copyFunc(c.copy, 16)
	pf.Copy[Pixel16x16] = copyFunc(c.copy, 16)
	pf.Copy[Pixel8x8] = copyFunc(c.copy, 8)
	pf.Copy[Pixel4x4] = copyFunc(c.copy, 4)

	pf.StoreInterleaveChroma = c.storeInterleaveChroma
	pf.LoadDeinterleaveChromaFenc = loadDeinterleaveChroma(c.planeCopyDeinterleave, FencStride)
	pf.LoadDeinterleaveChromaFdec = loadDeinterleaveChroma(c.planeCopyDeinterleave, FdecStride)

	pf.PlaneCopy = c.planeCopy
	pf.PlaneCopySwap = c.planeCopySwap
	pf.PlaneCopyInterleave = c.planeCopyInterleave
	pf.PlaneCopyDeinterleave = c.planeCopyDeinterleave
	pf.PlaneCopyDeinterleaveYUYV = c.planeCopyDeinterleave
	pf.PlaneCopyDeinterleaveRGB = c.planeCopyDeinterleaveRGB
	pf.PlaneCopyDeinterleaveV210 = c.planeCopyDeinterleaveV210

	pf.HpelFilter = c.hpelFilter

	pf.FrameInitLowresCore = c.frameInitLowresCore

	pf.IntegralInit4h = integralInit4h[P]
	pf.IntegralInit8h = integralInit8h[P]
	pf.IntegralInit4v = integralInit4v
	pf.IntegralInit8v = integralInit8v

	wt := c.weightTable()
	pf.Weight = wt
	pf.OffsetAdd = wt
	pf.OffsetSub = wt
	pf.WeightCache = pf.weightCache

	pf.MBTreePropagateCost = mbtreePropagateCost
	pf.MBTreePropagateList = mbtreePropagateList
	pf.MBTreeFix8Pack = mbtreeFix8Pack
	pf.MBTreeFix8Unpack = mbtreeFix8Unpack
}

var (
	defaultOnce  sync.Once
	defaultTable *Functions[uint8]
)

// Default returns the process-wide 8-bit table built from Detect.
func Default() *Functions[uint8] {
	defaultOnce.Do(func() {
		defaultTable = &Functions[uint8]{}
		Init(Detect(), defaultTable, 8, false)
	})

	return defaultTable
}
