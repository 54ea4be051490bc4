package flate

import (
	"hash"
	"hash/adler32"

	pngenc "github.com/imaya/CanvasTool.PngEncoder"
)

// zlib container constants (RFC 1950).
const (
	zlibCM    = 8 // DEFLATE
	zlibCINFO = 7 // 32 KiB window: log2(32768) - 8
)

// NewZlibEncoder returns an Encoder that wraps raw DEFLATE blocks of
// the given type in a zlib container: CMF/FLG header, then the
// compressed stream, then the Adler-32 of the uncompressed input,
// big-endian.
func NewZlibEncoder(blockType BlockType) pngenc.Encoder {
	return &zlibEncoder{
		f:     &Encoder{BlockType: blockType},
		adler: adler32.New(),
	}
}

type zlibEncoder struct {
	f     *Encoder
	adler hash.Hash32
}

func (z *zlibEncoder) Reset() {
	z.f.Reset()
	z.adler.Reset()
}

func (z *zlibEncoder) Header(dst []byte) []byte {
	cmf := byte(zlibCINFO<<4 | zlibCM)

	// FLEVEL advertises the effort that went into compression:
	// 0 (fastest) for stored, 1 (fast) for fixed, 2 (default) for
	// dynamic.
	var flevel byte
	switch z.f.BlockType {
	case Stored:
		flevel = 0
	case Fixed:
		flevel = 1
	default:
		flevel = 2
	}
	flg := flevel << 6
	if rem := (uint32(cmf)<<8 | uint32(flg)) % 31; rem != 0 {
		flg += byte(31 - rem)
	}
	return append(dst, cmf, flg)
}

func (z *zlibEncoder) Encode(dst []byte, src []byte, matches []pngenc.Match, lastBlock bool) ([]byte, error) {
	dst, err := z.f.Encode(dst, src, matches, lastBlock)
	if err != nil {
		return nil, err
	}
	z.adler.Write(src)

	if lastBlock {
		sum := z.adler.Sum32()
		dst = append(dst, byte(sum>>24), byte(sum>>16), byte(sum>>8), byte(sum))
	}
	return dst, nil
}
