package png

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/imaya/CanvasTool.PngEncoder/flate"
)

// Chromaticities is the cHRM payload: CIE x,y coordinates of the white
// point and primaries, each stored as the value times 100000.
type Chromaticities struct {
	WhiteX, WhiteY float64
	RedX, RedY     float64
	GreenX, GreenY float64
	BlueX, BlueY   float64
}

// ICCProfile is the iCCP payload. Method must be 0 (DEFLATE); the
// profile bytes are compressed by this package's own compressor.
type ICCProfile struct {
	Name    string
	Method  uint8
	Profile []byte
}

// Background is the bKGD colour. For grayscale images the R component
// is used as the gray level; for indexed images the colour is resolved
// to (or appended as) a palette entry.
type Background struct {
	R, G, B uint8
}

// Phys is the pHYs payload: pixels per unit on each axis.
type Phys struct {
	X, Y uint32
	Unit uint8 // 0 = unspecified aspect ratio, 1 = metre
}

// SuggestedPalette is one sPLT chunk.
type SuggestedPalette struct {
	Name    string
	Depth   uint8 // 8 or 16
	Entries []SPLTEntry
}

// SPLTEntry is one sample of a suggested palette. For Depth 8 the
// colour components must fit in a byte.
type SPLTEntry struct {
	R, G, B, A uint16
	Freq       uint16
}

// Text is one tEXt chunk.
type Text struct {
	Keyword string
	Value   string
}

// CompressedText is one zTXt chunk; the value is DEFLATE-compressed.
type CompressedText struct {
	Keyword string
	Value   string
}

// InternationalText is one iTXt chunk.
type InternationalText struct {
	Keyword           string
	Language          string
	TranslatedKeyword string
	Value             string
	Compressed        bool
}

// Params configures a single encode. Start from DefaultParams and
// adjust; ancillary chunks are emitted only for the fields that are
// set.
type Params struct {
	Width  int
	Height int

	BitDepth   int        // 1, 2, 4, 8 or 16
	ColourType ColourType // default TruecolorAlpha
	FilterType FilterType // applied to every scanline
	Interlace  InterlaceMethod

	// TRNS writes a tRNS chunk for indexed images, keying the palette
	// by RGBA so translucent pixels survive the round trip.
	TRNS bool

	// IDATSize caps the payload of each IDAT chunk. 0 writes a single
	// IDAT.
	IDATSize int

	// Deflate configures the IDAT (and iCCP/zTXt/iTXt) compressor.
	// FinalBlock is ignored: chunk payloads are always complete zlib
	// streams.
	Deflate flate.Options

	// Logger receives debug-level tracing. Defaults to a no-op.
	Logger zerolog.Logger

	// Optional ancillary chunks.
	Chrm  *Chromaticities
	Gamma float64 // gAMA, emitted when > 0
	ICCP  *ICCProfile
	SBit  []uint8
	SRGB  *uint8 // rendering intent 0..3
	Bkgd  *Background
	Hist  bool // emit hIST from the palette histogram (indexed only)
	Phys  *Phys
	SPLT  []SuggestedPalette
	Time  *time.Time
	Text  []Text
	ZTxt  []CompressedText
	ITxt  []InternationalText
}

// DefaultParams returns encode parameters for a width×height image:
// 8-bit truecolour with alpha, no filtering, no interlace, indexed
// transparency enabled, fixed-Huffman compression.
func DefaultParams(width, height int) Params {
	return Params{
		Width:      width,
		Height:     height,
		BitDepth:   8,
		ColourType: TruecolorAlpha,
		FilterType: FilterNone,
		Interlace:  InterlaceNone,
		TRNS:       true,
		Deflate:    flate.DefaultOptions(),
		Logger:     zerolog.Nop(),
	}
}

// Encode serializes a raster as a PNG file. pix is width×height pixels
// in canvas RGBA order, 8 bits per channel.
func Encode(pix []byte, p Params) ([]byte, error) {
	e := encoder{p: p, pix: pix, log: p.Logger}
	return e.encode()
}

type encoder struct {
	p   Params
	pix []byte
	pal *palette
	log zerolog.Logger
}

func (e *encoder) encode() ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	p := &e.p
	if p.ColourType == Indexed {
		e.pal = buildPalette(e.pix, p.TRNS)
		if p.TRNS {
			e.pal.sortTranslucentFirst()
		}
		if p.Bkgd != nil {
			if _, err := e.pal.addBackground(p.Bkgd.R, p.Bkgd.G, p.Bkgd.B, 1<<p.BitDepth); err != nil {
				return nil, err
			}
		}
		if len(e.pal.entries) > 1<<p.BitDepth {
			return nil, fmt.Errorf("%w: %d colours at bit depth %d",
				ErrPaletteOverflow, len(e.pal.entries), p.BitDepth)
		}
	}

	stream := e.filteredStream()
	idatOpts := p.Deflate
	idatOpts.FinalBlock = true
	idat, err := flate.Zlib(stream, idatOpts)
	if err != nil {
		return nil, err
	}

	w := newChunkWriter(len(idat)+256, e.log)
	e.writeIHDR(w)
	if err := e.writeBeforePalette(w); err != nil {
		return nil, err
	}
	if err := e.writePaletteGroup(w); err != nil {
		return nil, err
	}
	if err := e.writeBeforeData(w); err != nil {
		return nil, err
	}
	e.writeIDAT(w, idat)
	w.writeChunk("IEND", nil)

	e.log.Debug().
		Int("width", p.Width).
		Int("height", p.Height).
		Int("filtered", len(stream)).
		Int("encoded", len(w.buf)).
		Msg("png: encoded image")
	return w.buf, nil
}

func (e *encoder) validate() error {
	p := &e.p
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidParameter, p.Width, p.Height)
	}
	if !p.ColourType.validDepth(p.BitDepth) {
		return fmt.Errorf("%w: colour type %d at bit depth %d",
			ErrInvalidParameter, p.ColourType, p.BitDepth)
	}
	if p.FilterType > FilterPaeth {
		return fmt.Errorf("%w: filter type %d", ErrInvalidParameter, p.FilterType)
	}
	if p.Interlace > InterlaceAdam7 {
		return fmt.Errorf("%w: interlace method %d", ErrInvalidParameter, p.Interlace)
	}
	if len(e.pix) != p.Width*p.Height*4 {
		return fmt.Errorf("%w: %d pixel bytes for %dx%d",
			ErrInputTooLarge, len(e.pix), p.Width, p.Height)
	}
	if p.ICCP != nil {
		if p.ICCP.Method != 0 {
			return fmt.Errorf("%w: iCCP method %d", ErrUnsupportedCompressionMethod, p.ICCP.Method)
		}
		if err := checkKeyword(p.ICCP.Name); err != nil {
			return err
		}
	}
	if p.SBit != nil && len(p.SBit) != sbitChannels(p.ColourType) {
		return fmt.Errorf("%w: sBIT wants %d entries, got %d",
			ErrInvalidParameter, sbitChannels(p.ColourType), len(p.SBit))
	}
	if p.SRGB != nil && *p.SRGB > 3 {
		return fmt.Errorf("%w: sRGB intent %d", ErrInvalidParameter, *p.SRGB)
	}
	if p.Hist && p.ColourType != Indexed {
		return fmt.Errorf("%w: hIST without a palette", ErrInvalidParameter)
	}
	for _, s := range p.SPLT {
		if s.Depth != 8 && s.Depth != 16 {
			return fmt.Errorf("%w: sPLT depth %d", ErrInvalidParameter, s.Depth)
		}
		if err := checkKeyword(s.Name); err != nil {
			return err
		}
	}
	for _, t := range p.Text {
		if err := checkKeyword(t.Keyword); err != nil {
			return err
		}
	}
	for _, t := range p.ZTxt {
		if err := checkKeyword(t.Keyword); err != nil {
			return err
		}
	}
	for _, t := range p.ITxt {
		if err := checkKeyword(t.Keyword); err != nil {
			return err
		}
	}
	return nil
}

func checkKeyword(k string) error {
	if len(k) == 0 || len(k) > 79 {
		return fmt.Errorf("%w: keyword length %d", ErrInvalidParameter, len(k))
	}
	return nil
}

// sbitChannels is the sBIT payload size; unlike the sample count, an
// indexed image declares three significant-bit values.
func sbitChannels(c ColourType) int {
	if c == Indexed {
		return 3
	}
	return c.channels()
}

func (e *encoder) writeIHDR(w *chunkWriter) {
	w.startChunk("IHDR")
	w.appendUint32(uint32(e.p.Width))
	w.appendUint32(uint32(e.p.Height))
	w.buf = append(w.buf,
		byte(e.p.BitDepth),
		byte(e.p.ColourType),
		0, // compression method: DEFLATE
		0, // filter method 0
		byte(e.p.Interlace),
	)
	w.endChunk()
}

// writeBeforePalette emits the chunks that must precede PLTE.
func (e *encoder) writeBeforePalette(w *chunkWriter) error {
	p := &e.p
	if p.Chrm != nil {
		w.startChunk("cHRM")
		for _, v := range []float64{
			p.Chrm.WhiteX, p.Chrm.WhiteY, p.Chrm.RedX, p.Chrm.RedY,
			p.Chrm.GreenX, p.Chrm.GreenY, p.Chrm.BlueX, p.Chrm.BlueY,
		} {
			w.appendUint32(uint32(v*100000 + 0.5))
		}
		w.endChunk()
	}
	if p.Gamma > 0 {
		w.startChunk("gAMA")
		w.appendUint32(uint32(p.Gamma*100000 + 0.5))
		w.endChunk()
	}
	if p.ICCP != nil {
		compressed, err := flate.Zlib(p.ICCP.Profile, e.textOptions())
		if err != nil {
			return err
		}
		w.startChunk("iCCP")
		w.buf = append(w.buf, p.ICCP.Name...)
		w.buf = append(w.buf, 0, p.ICCP.Method)
		w.buf = append(w.buf, compressed...)
		w.endChunk()
	}
	if p.SBit != nil {
		w.writeChunk("sBIT", p.SBit)
	}
	if p.SRGB != nil {
		w.writeChunk("sRGB", []byte{*p.SRGB})
	}
	return nil
}

// writePaletteGroup emits PLTE and the chunks tied to its position:
// bKGD, hIST and tRNS must follow PLTE and precede IDAT (PNG 5.6).
func (e *encoder) writePaletteGroup(w *chunkWriter) error {
	p := &e.p
	if e.pal != nil {
		w.writeChunk("PLTE", e.pal.plte())
	}
	if p.Bkgd != nil {
		w.startChunk("bKGD")
		switch p.ColourType {
		case Indexed:
			w.buf = append(w.buf, byte(e.pal.lookup(p.Bkgd.R, p.Bkgd.G, p.Bkgd.B, 0xff)))
		case Grayscale, GrayscaleAlpha:
			w.appendUint16(scaleSample(p.Bkgd.R, p.BitDepth))
		default:
			w.appendUint16(scaleSample(p.Bkgd.R, p.BitDepth))
			w.appendUint16(scaleSample(p.Bkgd.G, p.BitDepth))
			w.appendUint16(scaleSample(p.Bkgd.B, p.BitDepth))
		}
		w.endChunk()
	}
	if p.Hist && e.pal != nil {
		w.writeChunk("hIST", e.pal.hist())
	}
	if p.TRNS && e.pal != nil {
		if trns := e.pal.trns(); trns != nil {
			w.writeChunk("tRNS", trns)
		}
	}
	return nil
}

// writeBeforeData emits the remaining ancillary chunks ahead of IDAT.
func (e *encoder) writeBeforeData(w *chunkWriter) error {
	p := &e.p
	if p.Phys != nil {
		w.startChunk("pHYs")
		w.appendUint32(p.Phys.X)
		w.appendUint32(p.Phys.Y)
		w.buf = append(w.buf, p.Phys.Unit)
		w.endChunk()
	}
	for _, s := range p.SPLT {
		w.startChunk("sPLT")
		w.buf = append(w.buf, s.Name...)
		w.buf = append(w.buf, 0, s.Depth)
		for _, en := range s.Entries {
			if s.Depth == 8 {
				w.buf = append(w.buf, byte(en.R), byte(en.G), byte(en.B), byte(en.A))
			} else {
				w.appendUint16(en.R)
				w.appendUint16(en.G)
				w.appendUint16(en.B)
				w.appendUint16(en.A)
			}
			w.appendUint16(en.Freq)
		}
		w.endChunk()
	}
	if p.Time != nil {
		t := p.Time.UTC()
		w.startChunk("tIME")
		w.appendUint16(uint16(t.Year()))
		w.buf = append(w.buf,
			byte(t.Month()), byte(t.Day()),
			byte(t.Hour()), byte(t.Minute()), byte(t.Second()),
		)
		w.endChunk()
	}
	for _, t := range p.Text {
		w.startChunk("tEXt")
		w.buf = append(w.buf, t.Keyword...)
		w.buf = append(w.buf, 0)
		w.buf = append(w.buf, t.Value...)
		w.endChunk()
	}
	for _, t := range p.ZTxt {
		compressed, err := flate.Zlib([]byte(t.Value), e.textOptions())
		if err != nil {
			return err
		}
		w.startChunk("zTXt")
		w.buf = append(w.buf, t.Keyword...)
		w.buf = append(w.buf, 0, 0) // separator, compression method
		w.buf = append(w.buf, compressed...)
		w.endChunk()
	}
	for _, t := range p.ITxt {
		body := []byte(t.Value)
		var compFlag byte
		if t.Compressed {
			var err error
			body, err = flate.Zlib(body, e.textOptions())
			if err != nil {
				return err
			}
			compFlag = 1
		}
		w.startChunk("iTXt")
		w.buf = append(w.buf, t.Keyword...)
		w.buf = append(w.buf, 0, compFlag, 0)
		w.buf = append(w.buf, t.Language...)
		w.buf = append(w.buf, 0)
		w.buf = append(w.buf, t.TranslatedKeyword...)
		w.buf = append(w.buf, 0)
		w.buf = append(w.buf, body...)
		w.endChunk()
	}
	return nil
}

func (e *encoder) writeIDAT(w *chunkWriter, idat []byte) {
	max := e.p.IDATSize
	if max <= 0 {
		max = len(idat)
	}
	for first := true; first || len(idat) > 0; first = false {
		n := len(idat)
		if n > max {
			n = max
		}
		w.writeChunk("IDAT", idat[:n])
		idat = idat[n:]
	}
}

func (e *encoder) textOptions() flate.Options {
	return flate.Options{BlockType: e.p.Deflate.BlockType, FinalBlock: true}
}

// scaleSample widens an 8-bit sample to the image bit depth for bKGD.
func scaleSample(v uint8, depth int) uint16 {
	switch {
	case depth == 16:
		return uint16(v)<<8 | uint16(v)
	case depth < 8:
		return uint16(v) >> (8 - depth)
	}
	return uint16(v)
}
