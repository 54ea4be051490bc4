package png

// A pass selects a subgrid of the image: every yStep'th row starting
// at yStart, every xStep'th column starting at xStart.
type pass struct {
	xStart, yStart int
	xStep, yStep   int
}

// adam7 is the seven-pass interlace grid (PNG 8.2).
var adam7 = [7]pass{
	{0, 0, 8, 8},
	{4, 0, 8, 8},
	{0, 4, 4, 8},
	{2, 0, 4, 4},
	{0, 2, 2, 4},
	{1, 0, 2, 2},
	{0, 1, 1, 2},
}

// singlePass covers the whole image in one pass.
var singlePass = [1]pass{{0, 0, 1, 1}}

// passes returns the pass list for the interlace method.
func (m InterlaceMethod) passes() []pass {
	if m == InterlaceAdam7 {
		return adam7[:]
	}
	return singlePass[:]
}

// dims returns the sub-image size the pass selects from a w×h image.
// Either dimension may be zero, in which case the pass is empty and
// contributes no scanlines.
func (p pass) dims(w, h int) (pw, ph int) {
	if w > p.xStart {
		pw = (w - p.xStart + p.xStep - 1) / p.xStep
	}
	if h > p.yStart {
		ph = (h - p.yStart + p.yStep - 1) / p.yStep
	}
	return pw, ph
}
