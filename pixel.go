package mc

import "unsafe"

// Pixel is the sample type of a plane. 8-bit content uses uint8, high bit
// depth content (9 or 10 bits) uses uint16.
type Pixel interface {
	~uint8 | ~uint16
}

// PixelSize enumerates the block partitions used by variable block-size
// motion compensation. The order matches the encoder's partition enum.
type PixelSize int

const (
	Pixel16x16 PixelSize = iota
	Pixel16x8
	Pixel8x16
	Pixel8x8
	Pixel8x4
	Pixel4x8
	Pixel4x4
	Pixel4x16
	Pixel4x2
	Pixel2x8
	Pixel2x4
	Pixel2x2

	NumPixelSizes
)

// Size returns the block width and height in pixels.
func (s PixelSize) Size() (width, height int) {
	d := pixelSizes[s]
	return d[0], d[1]
}

var pixelSizes = [NumPixelSizes][2]int{
	{16, 16}, {16, 8}, {8, 16}, {8, 8}, {8, 4}, {4, 8},
	{4, 4}, {4, 16}, {4, 2}, {2, 8}, {2, 4}, {2, 2},
}

// Strides of the encoder's fixed-layout macroblock caches.
const (
	FencStride = 16
	FdecStride = 32
)

// View addresses a block inside a pixel buffer.
//
// Off is the index of the top-left sample in Data and Stride the distance
// between rows (it may be negative for bottom-up layouts). Kernels read and
// write relative to Off, including negative relative offsets for filter taps
// and padding; the plane behind the view has to provide that margin. A view
// without it panics on the first out-of-range access instead of reading
// someone else's memory.
type View[P Pixel] struct {
	Data   []P
	Off    int
	Stride int
}

// At returns the view moved by dx columns and dy rows.
func (v View[P]) At(dx, dy int) View[P] {
	v.Off += dy*v.Stride + dx
	return v
}

// Row returns n samples of row y starting at column x.
func (v View[P]) Row(y, x, n int) []P {
	o := v.Off + y*v.Stride + x
	return v.Data[o : o+n : o+n]
}

// Get returns the sample at column x of row y.
func (v View[P]) Get(x, y int) P {
	return v.Data[v.Off+y*v.Stride+x]
}

func pixelMax(depth int) int {
	return 1<<depth - 1
}

func clipPixel[P Pixel](v, pmax int) P {
	if v < 0 {
		return 0
	}
	if v > pmax {
		return P(pmax)
	}
	return P(v)
}

func sizeOf[P Pixel]() int {
	var p P
	return int(unsafe.Sizeof(p))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
