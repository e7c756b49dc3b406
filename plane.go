package mc

// Plane is a padded sample plane. Data holds the padding as well; sample (0, 0) is at
// index Off and samples from -PadH to Width+PadH-1 horizontally and -PadV to
// Height+PadV-1 vertically are addressable.
type Plane[P Pixel] struct {
	Width  int
	Height int
	Stride int
	PadH   int
	PadV   int
	Data   []P
	Off    int
}

// NewPlane allocates a zeroed plane. The stride is rounded up to a multiple of 64 bytes.
func NewPlane[P Pixel](width, height, padh, padv int) *Plane[P] {
	p := &Plane[P]{}
	p.init(width, height, padh, padv)
	return p
}

func (p *Plane[P]) init(width, height, padh, padv int) {
	align := 64 / sizeOf[P]()
	stride := (width + 2*padh + align - 1) &^ (align - 1)

	p.Width = width
	p.Height = height
	p.Stride = stride
	p.PadH = padh
	p.PadV = padv
	p.Data = make([]P, stride*(height+2*padv))
	p.Off = padv*stride + padh
}

// View returns a view at sample (0, 0).
func (p *Plane[P]) View() View[P] {
	return View[P]{Data: p.Data, Off: p.Off, Stride: p.Stride}
}

// ExpandBorder replicates the edge samples into the whole padding.
func (p *Plane[P]) ExpandBorder() {
	expandBorder(p.View(), p.Width, p.Height, p.PadH, p.PadV, true, true, false)
}

// ExpandBorderPairs is ExpandBorder for interleaved chroma: the outermost UV pair is
// replicated instead of the outermost sample.
func (p *Plane[P]) ExpandBorderPairs() {
	expandBorder(p.View(), p.Width, p.Height, p.PadH, p.PadV, true, true, true)
}

// expandBorder fills padh columns on each side of rows 0 to height-1 and, when
// requested, padv full rows above and below. Columns are replicated in units of one
// sample, or of one pair when pairs is set.
func expandBorder[P Pixel](v View[P], width, height, padh, padv int, top, bottom, pairs bool) {
	unit := 1
	if pairs {
		unit = 2
	}

	for y := 0; y < height; y++ {
		left := v.Row(y, -padh, padh)
		fillUnits(left, v.Row(y, 0, unit))
		right := v.Row(y, width, padh)
		fillUnits(right, v.Row(y, width-unit, unit))
	}

	full := width + 2*padh
	if top {
		src := v.Row(0, -padh, full)
		for y := 0; y < padv; y++ {
			copy(v.Row(-y-1, -padh, full), src)
		}
	}
	if bottom {
		src := v.Row(height-1, -padh, full)
		for y := 0; y < padv; y++ {
			copy(v.Row(height+y, -padh, full), src)
		}
	}
}

func fillUnits[P Pixel](dst, unit []P) {
	for i := 0; i+len(unit) <= len(dst); i += len(unit) {
		copy(dst[i:], unit)
	}
}
