package flate

import (
	"fmt"

	pngenc "github.com/imaya/CanvasTool.PngEncoder"
)

// A BlockType selects the body encoding of a DEFLATE block.
type BlockType int

const (
	// Stored emits the input uncompressed, split into blocks of at
	// most 65535 bytes.
	Stored BlockType = iota

	// Fixed compresses with the predefined Huffman tables of
	// RFC 1951 3.2.6.
	Fixed

	// Dynamic compresses with Huffman tables built from the block's
	// own symbol frequencies and transmitted in the block header.
	Dynamic
)

func (t BlockType) String() string {
	switch t {
	case Stored:
		return "stored"
	case Fixed:
		return "fixed"
	case Dynamic:
		return "dynamic"
	}
	return fmt.Sprintf("BlockType(%d)", int(t))
}

// Fixed Huffman tables (RFC 1951 3.2.6), built once at startup. The
// full 288/32-symbol alphabets are used so that the code space is
// exactly committed; symbols past 285 and 29 are never emitted.
var (
	fixedLitLenLengths [288]uint8
	fixedLitLenCodes   []uint16
	fixedDistLengths   [32]uint8
	fixedDistCodes     []uint16
)

func init() {
	for i := range fixedLitLenLengths {
		switch {
		case i < 144:
			fixedLitLenLengths[i] = 8
		case i < 256:
			fixedLitLenLengths[i] = 9
		case i < 280:
			fixedLitLenLengths[i] = 7
		default:
			fixedLitLenLengths[i] = 8
		}
	}
	for i := range fixedDistLengths {
		fixedDistLengths[i] = 5
	}
	var err error
	fixedLitLenCodes, err = codesFromLengths(fixedLitLenLengths[:], 9)
	if err != nil {
		panic(err)
	}
	fixedDistCodes, err = codesFromLengths(fixedDistLengths[:], 5)
	if err != nil {
		panic(err)
	}
}

// An Encoder produces a raw DEFLATE bitstream (RFC 1951). The block
// type is a configuration input; the encoder does not autoselect.
//
// Successive Encode calls continue the same bitstream: block
// boundaries are not byte-aligned, so the partial byte carries over
// until a final block or a SyncFlush.
type Encoder struct {
	BlockType BlockType

	bw bitWriter
}

// NewEncoder returns an Encoder producing fixed-Huffman blocks.
func NewEncoder() *Encoder {
	return &Encoder{BlockType: Fixed}
}

func (e *Encoder) Reset() {
	e.bw.bits = 0
	e.bw.nbits = 0
}

// Header appends the stream header. Raw DEFLATE has none.
func (e *Encoder) Header(dst []byte) []byte {
	return dst
}

// SyncFlush emits an empty non-final stored block and pads to a byte
// boundary, so the output so far is decodable up to this point and a
// later stream can be appended byte-aligned. Only needed when the
// stream is cut off without a final block.
func (e *Encoder) SyncFlush(dst []byte) []byte {
	e.bw.dst = dst
	e.bw.writeBits(0, 3)
	e.bw.align()
	e.bw.dst = append(e.bw.dst, 0x00, 0x00, 0xff, 0xff)
	return e.bw.dst
}

// Encode appends one DEFLATE block (or, for stored data longer than
// 65535 bytes, a run of them) holding src to dst. matches is the LZ77
// parse of src; it is ignored for stored blocks. lastBlock sets BFINAL
// and flushes the final partial byte.
func (e *Encoder) Encode(dst []byte, src []byte, matches []pngenc.Match, lastBlock bool) ([]byte, error) {
	e.bw.dst = dst
	var err error
	switch e.BlockType {
	case Stored:
		err = e.stored(src, lastBlock)
	case Fixed:
		err = e.fixed(src, matches, lastBlock)
	case Dynamic:
		err = e.dynamic(src, matches, lastBlock)
	default:
		err = fmt.Errorf("flate: unknown block type %d", int(e.BlockType))
	}
	if err != nil {
		return nil, err
	}
	if lastBlock {
		e.bw.align()
	}
	return e.bw.dst, nil
}

func (e *Encoder) stored(src []byte, lastBlock bool) error {
	for first := true; first || len(src) > 0; first = false {
		n := len(src)
		if n > maxStoredSize {
			n = maxStoredSize
		}
		final := lastBlock && n == len(src)
		e.bw.writeBits(b2u(final), 1)
		e.bw.writeBits(0, 2)
		e.bw.align()
		ln := uint16(n)
		e.bw.dst = append(e.bw.dst, byte(ln), byte(ln>>8), byte(^ln), byte(^ln>>8))
		e.bw.dst = append(e.bw.dst, src[:n]...)
		src = src[n:]
	}
	return nil
}

func (e *Encoder) fixed(src []byte, matches []pngenc.Match, lastBlock bool) error {
	e.bw.writeBits(b2u(lastBlock), 1)
	e.bw.writeBits(1, 2)
	return e.writeTokens(src, matches,
		fixedLitLenCodes, fixedLitLenLengths[:],
		fixedDistCodes, fixedDistLengths[:])
}

func (e *Encoder) dynamic(src []byte, matches []pngenc.Match, lastBlock bool) error {
	litFreq := make([]int, maxLitLenCodes)
	distFreq := make([]int, maxDistCodes)
	if err := countFrequencies(src, matches, litFreq, distFreq); err != nil {
		return err
	}

	litLengths, err := buildLengths(litFreq, maxMainBits)
	if err != nil {
		return err
	}
	distLengths, err := buildLengths(distFreq, maxMainBits)
	if err != nil {
		return err
	}
	litCodes, err := codesFromLengths(litLengths, maxMainBits)
	if err != nil {
		return err
	}
	distCodes, err := codesFromLengths(distLengths, maxMainBits)
	if err != nil {
		return err
	}

	// HLIT and HDIST count the used prefix of each alphabet. The
	// end-of-block symbol is always coded, so numLit >= 257.
	numLit := maxLitLenCodes
	for numLit > 257 && litLengths[numLit-1] == 0 {
		numLit--
	}
	numDist := maxDistCodes
	for numDist > 1 && distLengths[numDist-1] == 0 {
		numDist--
	}

	transmit := make([]uint8, 0, numLit+numDist)
	transmit = append(transmit, litLengths[:numLit]...)
	transmit = append(transmit, distLengths[:numDist]...)
	runs, err := lengthRuns(transmit)
	if err != nil {
		return err
	}

	clenFreq := make([]int, maxClenCodes)
	for _, r := range runs {
		clenFreq[r.sym]++
	}
	clenLengths, err := buildLengths(clenFreq, maxClenBits)
	if err != nil {
		return err
	}
	clenCodes, err := codesFromLengths(clenLengths, maxClenBits)
	if err != nil {
		return err
	}
	numClen := maxClenCodes
	for numClen > 4 && clenLengths[codeLengthOrder[numClen-1]] == 0 {
		numClen--
	}

	e.bw.writeBits(b2u(lastBlock), 1)
	e.bw.writeBits(2, 2)
	e.bw.writeBits(uint64(numLit-257), 5)
	e.bw.writeBits(uint64(numDist-1), 5)
	e.bw.writeBits(uint64(numClen-4), 4)
	for i := 0; i < numClen; i++ {
		e.bw.writeBits(uint64(clenLengths[codeLengthOrder[i]]), 3)
	}
	for _, r := range runs {
		e.bw.writeBits(uint64(clenCodes[r.sym]), uint(clenLengths[r.sym]))
		switch r.sym {
		case 16:
			e.bw.writeBits(uint64(r.extra), 2)
		case 17:
			e.bw.writeBits(uint64(r.extra), 3)
		case 18:
			e.bw.writeBits(uint64(r.extra), 7)
		}
	}
	return e.writeTokens(src, matches, litCodes, litLengths, distCodes, distLengths)
}

// writeTokens emits the LZ77 token stream with the given code tables
// and closes it with the end-of-block symbol. Match fields go out in
// fixed order: length code, length extra, distance code, distance
// extra.
func (e *Encoder) writeTokens(src []byte, matches []pngenc.Match, litCodes []uint16, litLengths []uint8, distCodes []uint16, distLengths []uint8) error {
	pos := 0
	for _, m := range matches {
		for _, b := range src[pos : pos+m.Unmatched] {
			e.bw.writeBits(uint64(litCodes[b]), uint(litLengths[b]))
		}
		pos += m.Unmatched
		if m.Length == 0 {
			continue
		}
		lc, lxBits, lxVal, err := lengthCode(m.Length)
		if err != nil {
			return err
		}
		e.bw.writeBits(uint64(litCodes[lc]), uint(litLengths[lc]))
		if lxBits > 0 {
			e.bw.writeBits(uint64(lxVal), uint(lxBits))
		}
		dc, dxBits, dxVal, err := distanceCode(m.Distance)
		if err != nil {
			return err
		}
		e.bw.writeBits(uint64(distCodes[dc]), uint(distLengths[dc]))
		if dxBits > 0 {
			e.bw.writeBits(uint64(dxVal), uint(dxBits))
		}
		pos += m.Length
	}
	for _, b := range src[pos:] {
		e.bw.writeBits(uint64(litCodes[b]), uint(litLengths[b]))
	}
	e.bw.writeBits(uint64(litCodes[endBlockMarker]), uint(litLengths[endBlockMarker]))
	return nil
}

// countFrequencies tallies literal/length and distance symbol
// frequencies for the token stream, including the one end-of-block
// symbol.
func countFrequencies(src []byte, matches []pngenc.Match, litFreq, distFreq []int) error {
	pos := 0
	for _, m := range matches {
		for _, b := range src[pos : pos+m.Unmatched] {
			litFreq[b]++
		}
		pos += m.Unmatched
		if m.Length == 0 {
			continue
		}
		lc, _, _, err := lengthCode(m.Length)
		if err != nil {
			return err
		}
		litFreq[lc]++
		dc, _, _, err := distanceCode(m.Distance)
		if err != nil {
			return err
		}
		distFreq[dc]++
		pos += m.Length
	}
	for _, b := range src[pos:] {
		litFreq[b]++
	}
	litFreq[endBlockMarker]++
	return nil
}

// A lengthRun is one symbol of the transmitted code-length sequence:
// a literal length 0..15, or one of the run symbols 16/17/18 with its
// repeat count carried in extra.
type lengthRun struct {
	sym   uint8
	extra uint8
}

// lengthRuns run-length encodes a code-length sequence using the
// 19-symbol alphabet. Chunks prefer the maximum run but never leave a
// remainder of 1 or 2, which could not form another run symbol.
func lengthRuns(lengths []uint8) ([]lengthRun, error) {
	var out []lengthRun
	for i := 0; i < len(lengths); {
		v := lengths[i]
		j := i
		for j < len(lengths) && lengths[j] == v {
			j++
		}
		run := j - i
		i = j
		if v > maxMainBits {
			return nil, fmt.Errorf("%w: length %d", ErrBadRunLength, v)
		}
		if v == 0 {
			for run >= 3 {
				n := run
				if n > 138 {
					n = 138
					if run-n < 3 {
						n = run - 3
					}
				}
				if n <= 10 {
					out = append(out, lengthRun{sym: 17, extra: uint8(n - 3)})
				} else {
					out = append(out, lengthRun{sym: 18, extra: uint8(n - 11)})
				}
				run -= n
			}
			for ; run > 0; run-- {
				out = append(out, lengthRun{sym: 0})
			}
			continue
		}
		out = append(out, lengthRun{sym: v})
		run--
		for run >= 3 {
			n := run
			if n > 6 {
				n = 6
				if run-n < 3 {
					n = run - 3
				}
			}
			out = append(out, lengthRun{sym: 16, extra: uint8(n - 3)})
			run -= n
		}
		for ; run > 0; run-- {
			out = append(out, lengthRun{sym: v})
		}
	}
	return out, nil
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
