package mc

import (
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
)

// Padding of luma planes, and of chroma planes horizontally. Chroma gets half the
// vertical padding.
const (
	PadH = 32
	PadV = 32
)

// ErrInvalidDimensions is the error returned for a frame size that is not positive.
var ErrInvalidDimensions = errors.New("invalid frame dimensions")

// FrameOptions selects the optional planes of a frame.
type FrameOptions struct {
	// Lowres allocates the four half-resolution planes used by lookahead.
	Lowres bool
	// Integral allocates the 8x8 block sum plane filled by Filter.
	Integral bool
	// SubIntegral also allocates the 4x4 block sum plane. It implies Integral.
	SubIntegral bool
}

// Frame is an encoder reference frame: 4:2:0 luma and interleaved chroma, the three
// half-pel luma planes, and optionally lowres planes and integral images.
//
// The planes are sized to whole macroblocks; Width and Height are the visible size.
type Frame[P Pixel] struct {
	Width  int
	Height int

	Luma   Plane[P]
	Chroma Plane[P]

	// Filtered holds the full-pel, horizontal, vertical and center half-pel planes.
	// Filtered[0] shares its samples with Luma.
	Filtered [4]Plane[P]

	Lowres [4]Plane[P]

	integral []uint16
	intOff   int
	sub      bool

	pf      *Functions[P]
	scratch []Widened
	img     image.YCbCr
}

// NewFrame allocates a frame for width x height content using the kernels of pf.
func NewFrame[P Pixel](pf *Functions[P], width, height int, opts FrameOptions) (*Frame[P], error) {
	if width <= 0 || height <= 0 || width&1 != 0 || height&1 != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	mbWidth := (width + 15) >> 4
	mbHeight := (height + 15) >> 4

	lumaWidth := mbWidth << 4
	lumaHeight := mbHeight << 4

	f := &Frame[P]{
		Width:  width,
		Height: height,
		pf:     pf,
	}

	f.Luma.init(lumaWidth, lumaHeight, PadH, PadV)
	f.Chroma.init(lumaWidth, lumaHeight>>1, PadH, PadV>>1)

	f.Filtered[0] = f.Luma
	for i := 1; i < 4; i++ {
		f.Filtered[i].init(lumaWidth, lumaHeight, PadH, PadV)
	}

	if opts.Lowres {
		for i := range f.Lowres {
			f.Lowres[i].init(lumaWidth>>1, lumaHeight>>1, PadH, PadV)
		}
	}

	if opts.Integral || opts.SubIntegral {
		planes := 1
		if opts.SubIntegral {
			planes = 2
		}
		stride := f.Luma.Stride
		f.integral = make([]uint16, planes*stride*(lumaHeight+2*PadV))
		f.intOff = PadV*stride + PadH
		f.sub = opts.SubIntegral
	}

	f.scratch = make([]Widened, HpelScratchSize(lumaWidth+16))

	f.img = image.YCbCr{
		Y:              make([]byte, width*height),
		Cb:             make([]byte, (width/2)*(height/2)),
		Cr:             make([]byte, (width/2)*(height/2)),
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		YStride:        width,
		CStride:        width / 2,
		Rect:           image.Rect(0, 0, width, height),
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewFrame",
		"width":        width,
		"height":       height,
		"luma_width":   lumaWidth,
		"luma_height":  lumaHeight,
		"lowres":       opts.Lowres,
		"integral":     opts.Integral || opts.SubIntegral,
		"sub_integral": opts.SubIntegral,
	}).Debug("Frame allocated")

	return f, nil
}

// Import copies planar 4:2:0 content (I420) of the visible size into the frame and pads
// it to whole macroblocks.
func (f *Frame[P]) Import(y, u, v View[P]) {
	f.pf.PlaneCopy(f.Luma.View(), y, f.Width, f.Height)
	f.pf.PlaneCopyInterleave(f.Chroma.View(), u, v, f.Width>>1, f.Height>>1)
	f.ExpandBorderMod16()
}

// ImportNV12 copies content whose chroma is already interleaved UV.
func (f *Frame[P]) ImportNV12(y, uv View[P]) {
	f.pf.PlaneCopy(f.Luma.View(), y, f.Width, f.Height)
	f.pf.PlaneCopy(f.Chroma.View(), uv, f.Width, f.Height>>1)
	f.ExpandBorderMod16()
}

// ImportNV21 copies content whose chroma is interleaved VU.
func (f *Frame[P]) ImportNV21(y, vu View[P]) {
	f.pf.PlaneCopy(f.Luma.View(), y, f.Width, f.Height)
	f.pf.PlaneCopySwap(f.Chroma.View(), vu, f.Width>>1, f.Height>>1)
	f.ExpandBorderMod16()
}

// ExpandBorderMod16 replicates the last visible column and row into the area between the
// visible size and the macroblock-aligned size.
func (f *Frame[P]) ExpandBorderMod16() {
	padx := f.Luma.Width - f.Width
	pady := f.Luma.Height - f.Height

	planes := []struct {
		p      *Plane[P]
		height int
		pady   int
		unit   int
	}{
		{&f.Luma, f.Height, pady, 1},
		{&f.Chroma, f.Height >> 1, pady >> 1, 2},
	}

	for _, pl := range planes {
		v := pl.p.View()
		if padx > 0 {
			for y := 0; y < pl.height; y++ {
				fillUnits(v.Row(y, f.Width, padx), v.Row(y, f.Width-pl.unit, pl.unit))
			}
		}
		if pl.pady > 0 {
			src := v.Row(pl.height-1, 0, f.Width+padx)
			for y := pl.height; y < pl.height+pl.pady; y++ {
				copy(v.Row(y, 0, f.Width+padx), src)
			}
		}
	}
}

// ExpandBorder fills the padding of the luma and chroma planes.
func (f *Frame[P]) ExpandBorder() {
	f.Luma.ExpandBorder()
	f.Chroma.ExpandBorderPairs()
}

// Filter produces the half-pel planes over the frame and 8 samples around it, pads them
// and, when allocated, builds the integral images. The luma padding must be filled.
func (f *Frame[P]) Filter() {
	stride := f.Luma.Stride
	width := f.Luma.Width
	height := f.Luma.Height

	// 8 rows and columns of context: 3 for the 6-tap filter, rounded up.
	at := func(p *Plane[P]) View[P] {
		return p.View().At(-8, -8)
	}
	f.pf.HpelFilter(at(&f.Filtered[1]), at(&f.Filtered[2]), at(&f.Filtered[3]), at(&f.Luma),
		width+16, height+16, f.scratch)

	// Up to 3 of the outer filtered columns read unpadded context; expansion starts
	// 4 columns out.
	for i := 1; i < 4; i++ {
		v := f.Filtered[i].View().At(-4, -8)
		expandBorder(v, width+8, height+16, PadH-4, PadV-8, true, true, false)
	}

	if f.integral == nil {
		return
	}

	sum := View[uint16]{Data: f.integral, Off: f.intOff, Stride: stride}
	clear(sum.Row(-PadV, -PadH, stride))

	plane := f.Luma.View()
	lines := height + 2*PadV
	for y := -PadV; y < height+PadV-1; y++ {
		pix := plane.At(-PadH, y)
		sum8 := sum.At(-PadH, y+1)

		if f.sub {
			f.pf.IntegralInit4h(sum8, pix)
			sum8 = sum8.At(0, -8)
			sum4 := sum8.At(0, lines)
			if y >= 8-PadV {
				f.pf.IntegralInit4v(sum8, sum4)
			}
			continue
		}

		f.pf.IntegralInit8h(sum8, pix)
		if y >= 8-PadV {
			f.pf.IntegralInit8v(sum8.At(0, -8), View[uint16]{})
		}
	}
}

// Sum8x8 returns the sum of the 8x8 luma block with top-left sample (x, y) after Filter.
// Valid for -PadV < y < Height+PadV-8 and the columns that have 8 samples to the right.
func (f *Frame[P]) Sum8x8(x, y int) int {
	return int(f.integral[f.intOff+y*f.Luma.Stride+x])
}

// Sum4x4 returns the sum of the 4x4 luma block with top-left sample (x, y) after Filter.
// It needs FrameOptions.SubIntegral.
func (f *Frame[P]) Sum4x4(x, y int) int {
	lines := f.Luma.Height + 2*PadV
	return int(f.integral[f.intOff+(y+lines)*f.Luma.Stride+x])
}

// InitLowres builds the lowres planes from the luma plane. It duplicates the last column
// and row of the macroblock-aligned area so their interpolation needs no special case.
func (f *Frame[P]) InitLowres() {
	src := f.Luma.View()
	width := f.Luma.Width
	height := f.Luma.Height

	for y := 0; y < height; y++ {
		r := src.Row(y, width-1, 2)
		r[1] = r[0]
	}
	copy(src.Row(height, 0, width+1), src.Row(height-1, 0, width+1))

	f.pf.FrameInitLowresCore(src, f.Lowres[0].View(), f.Lowres[1].View(), f.Lowres[2].View(), f.Lowres[3].View(),
		f.Lowres[0].Width, f.Lowres[0].Height)

	for i := range f.Lowres {
		f.Lowres[i].ExpandBorder()
	}
}

// FourTap returns the reference set of the luma plane at sample (0, 0).
func (f *Frame[P]) FourTap() *FourTap[P] {
	return &FourTap[P]{
		Planes: [4][]P{f.Luma.Data, f.Filtered[1].Data, f.Filtered[2].Data, f.Filtered[3].Data},
		Off:    f.Luma.Off,
		Stride: f.Luma.Stride,
	}
}

// WeightPlane applies w to the luma plane into dst in strips of 16 rows.
func (f *Frame[P]) WeightPlane(dst View[P], w *Weight[P]) {
	f.pf.WeightScalePlane(dst, f.Luma.View(), f.Luma.Width, f.Luma.Height, w)
}

// YCbCr returns the visible area as image.YCbCr, scaled to 8 bits.
func (f *Frame[P]) YCbCr() *image.YCbCr {
	shift := f.pf.Depth - 8
	narrow(f.img.Y, f.img.YStride, f.Luma.View(), f.Width, f.Height, shift)

	cw, ch := f.Width>>1, f.Height>>1
	u := make([]P, cw*ch)
	v := make([]P, cw*ch)
	f.pf.PlaneCopyDeinterleave(View[P]{Data: u, Stride: cw}, View[P]{Data: v, Stride: cw}, f.Chroma.View(), cw, ch)
	narrow(f.img.Cb, f.img.CStride, View[P]{Data: u, Stride: cw}, cw, ch, shift)
	narrow(f.img.Cr, f.img.CStride, View[P]{Data: v, Stride: cw}, cw, ch, shift)

	return &f.img
}

// LowresGray returns lowres plane i as an 8-bit gray image.
func (f *Frame[P]) LowresGray(i int) *image.Gray {
	p := &f.Lowres[i]
	img := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	narrow(img.Pix, img.Stride, p.View(), p.Width, p.Height, f.pf.Depth-8)
	return img
}

func narrow[P Pixel](dst []byte, stride int, src View[P], w, h, shift int) {
	for y := 0; y < h; y++ {
		d := dst[y*stride : y*stride+w]
		for x, s := range src.Row(y, 0, w) {
			d[x] = byte(s >> shift)
		}
	}
}
