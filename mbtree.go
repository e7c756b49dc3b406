package mc

import "encoding/binary"

// Lowres costs pack the inter cost in the low bits and the lists used (bit 0 past,
// bit 1 future) above LowresCostShift.
const (
	LowresCostShift = 14
	LowresCostMask  = 1<<LowresCostShift - 1
)

// Frame durations are clipped to this range when deriving the fps factor.
const (
	MinFrameDuration = 0.01
	MaxFrameDuration = 1.00
)

const mbtreePrecision = 0.5

// MBGrid is the macroblock layout of a lowres frame. Cost arrays are indexed
// mbx + mby*Stride.
type MBGrid struct {
	Width  int
	Height int
	Stride int
}

// NewMBGrid returns the grid of a lowres plane of the given size in pixels.
func NewMBGrid(width, height int) *MBGrid {
	w := (width + 7) >> 3
	h := (height + 7) >> 3
	return &MBGrid{Width: w, Height: h, Stride: w}
}

// Count returns the number of cells a cost array of the grid needs.
func (g *MBGrid) Count() int {
	return g.Stride * g.Height
}

func clipAdd(s *uint16, x int) {
	v := int(*s) + x
	if v > 32767 {
		v = 32767
	}
	*s = uint16(v)
}

// mbtreePropagateCost is the reference cost kernel. Every float operation is rounded
// to float32 on its own so the result does not depend on instruction selection.
func mbtreePropagateCost(dst []int16, propagateIn, intraCosts, interCosts, invQscales []uint16, fpsFactor float32, n int) {
	for i := 0; i < n; i++ {
		intra := int(intraCosts[i])
		if intra == 0 {
			dst[i] = 0
			continue
		}
		inter := min(intra, int(interCosts[i]&LowresCostMask))

		propagateIntra := float32(intra * int(invQscales[i]))
		amount := float32(float32(propagateIn[i]) + float32(propagateIntra*fpsFactor))
		num := float32(intra - inter)
		v := float32(float32(amount*num) / float32(intra))
		v = float32(v + 0.5)

		if v >= 32767 {
			dst[i] = 32767
		} else {
			dst[i] = int16(v)
		}
	}
}

func mbtreePropagateList(g *MBGrid, refCosts []uint16, mvs [][2]int16, propagateAmount []int16, lowresCosts []uint16, bipredWeight, mbY, n, list int) {
	stride := uint(g.Stride)
	width := uint(g.Width)
	height := uint(g.Height)

	for i := 0; i < n; i++ {
		listsUsed := int(lowresCosts[i] >> LowresCostShift)
		if listsUsed&(1<<list) == 0 {
			continue
		}

		amount := int(propagateAmount[i])
		if listsUsed == 3 {
			amount = (amount*bipredWeight + 32) >> 6
		}

		if mvs[i] == [2]int16{} {
			clipAdd(&refCosts[mbY*g.Stride+i], amount)
			continue
		}

		x := int(mvs[i][0])
		y := int(mvs[i][1])
		mbx := uint((x >> 5) + i)
		mby := uint((y >> 5) + mbY)
		idx0 := mbx + mby*stride
		idx2 := idx0 + stride
		x &= 31
		y &= 31

		w0 := ((32-y)*(32-x)*amount + 512) >> 10
		w1 := ((32-y)*x*amount + 512) >> 10
		w2 := (y*(32-x)*amount + 512) >> 10
		w3 := (y*x*amount + 512) >> 10

		if mbx < width-1 && mby < height-1 {
			clipAdd(&refCosts[idx0], w0)
			clipAdd(&refCosts[idx0+1], w1)
			clipAdd(&refCosts[idx2], w2)
			clipAdd(&refCosts[idx2+1], w3)
			continue
		}

		// Negative mbx or mby wrap to huge unsigned values and fail the checks.
		if mby < height {
			if mbx < width {
				clipAdd(&refCosts[idx0], w0)
			}
			if mbx+1 < width {
				clipAdd(&refCosts[idx0+1], w1)
			}
		}
		if mby+1 < height {
			if mbx < width {
				clipAdd(&refCosts[idx2], w2)
			}
			if mbx+1 < width {
				clipAdd(&refCosts[idx2+1], w3)
			}
		}
	}
}

// toBE16 returns the word whose in-memory bytes are v in big-endian order.
func toBE16(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.NativeEndian.Uint16(b[:])
}

func fromBE16(v uint16) uint16 {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], v)
	return binary.BigEndian.Uint16(b[:])
}

// mbtreeFix8Pack stores qp offsets in [-128, 128) as Q8.8.
func mbtreeFix8Pack(dst []uint16, src []float32, n int) {
	for i := 0; i < n; i++ {
		dst[i] = toBE16(uint16(int16(int32(src[i] * 256))))
	}
}

func mbtreeFix8Unpack(dst []float32, src []uint16, n int) {
	for i := 0; i < n; i++ {
		dst[i] = float32(int16(fromBE16(src[i]))) * (1.0 / 256)
	}
}

// Propagation holds the lowres analysis of one frame b predicted from references p0
// (past) and p1 (future). It keeps the working rows of PropagateFrame, so reusing one
// Propagation across frames of a grid does not allocate.
type Propagation struct {
	// RefCosts are the propagate costs of p0 and p1. RefCosts[1] is nil when b is p1.
	RefCosts [2][]uint16
	// MVs are the lowres vectors towards p0 and p1, indexed like the cost arrays.
	MVs [2][][2]int16

	// PropagateIn is the cost propagated into b so far. Nil when b is not referenced.
	PropagateIn []uint16
	IntraCosts  []uint16
	// LowresCosts packs inter costs and the lists used, see LowresCostShift.
	LowresCosts []uint16
	InvQscales  []uint16

	FPSFactor float32
	// BipredWeight is the weight of the past reference in 1/64 units.
	BipredWeight int

	amount []int16
	zero   []uint16
}

// FPSFactor converts frame durations into the fps factor of MBTreePropagateCost.
func FPSFactor(duration, averageDuration float32) float32 {
	return clipDuration(duration) / (clipDuration(averageDuration) * 256) * mbtreePrecision
}

func clipDuration(d float32) float32 {
	return max(MinFrameDuration, min(d, MaxFrameDuration))
}

// BipredWeight returns the list 0 weight of frame b between p0 and p1: distance scaled
// when weighted is set, 32 otherwise.
func BipredWeight(p0, p1, b int, weighted bool) int {
	if !weighted {
		return 32
	}
	dist := (((b - p0) << 8) + ((p1 - p0) >> 1)) / (p1 - p0)
	return 64 - dist>>2
}

// PropagateFrame runs the cost and list kernels over every macroblock row of g,
// adding the contribution of the frame to p.RefCosts.
func (pf *Functions[P]) PropagateFrame(g *MBGrid, p *Propagation) {
	if cap(p.amount) < g.Width {
		p.amount = make([]int16, g.Width)
		p.zero = make([]uint16, g.Width)
	}
	buf := p.amount[:g.Width]

	in := p.PropagateIn
	step := g.Stride
	if in == nil {
		in = p.zero[:g.Width]
		step = 0
	}

	weights := [2]int{p.BipredWeight, 64 - p.BipredWeight}

	for y := 0; y < g.Height; y++ {
		idx := y * g.Stride

		pf.MBTreePropagateCost(buf, in[y*step:], p.IntraCosts[idx:], p.LowresCosts[idx:], p.InvQscales[idx:], p.FPSFactor, g.Width)

		for list := 0; list < 2; list++ {
			if p.RefCosts[list] == nil {
				continue
			}
			pf.MBTreePropagateList(g, p.RefCosts[list], p.MVs[list][idx:], buf, p.LowresCosts[idx:], weights[list], y, g.Width, list)
		}
	}
}
