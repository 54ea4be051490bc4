// Package flate implements a DEFLATE compressor (RFC 1951) and its
// zlib container (RFC 1950): a greedy LZ77 match finder, length-limited
// canonical Huffman coding, and stored/fixed/dynamic block emission.
//
// The package only compresses. Round-tripping in tests is done with an
// independent inflater.
package flate

import (
	pngenc "github.com/imaya/CanvasTool.PngEncoder"
)

// Options configures the one-shot entry points.
type Options struct {
	// BlockType selects stored, fixed-Huffman, or dynamic-Huffman
	// blocks.
	BlockType BlockType

	// FinalBlock sets BFINAL on the last block emitted, terminating
	// the stream. When false, the output ends with an empty non-final
	// stored block (a sync flush), and needs a subsequent final block
	// appended before a decoder will accept it.
	FinalBlock bool
}

// DefaultOptions returns the defaults: fixed-Huffman blocks, stream
// terminated.
func DefaultOptions() Options {
	return Options{BlockType: Fixed, FinalBlock: true}
}

// Deflate compresses src into a raw DEFLATE stream.
func Deflate(src []byte, opts Options) ([]byte, error) {
	return compress(src, opts, &Encoder{BlockType: opts.BlockType})
}

// Zlib compresses src into a zlib container: CMF/FLG header, DEFLATE
// stream, Adler-32 trailer.
func Zlib(src []byte, opts Options) ([]byte, error) {
	return compress(src, opts, NewZlibEncoder(opts.BlockType))
}

func compress(src []byte, opts Options, enc pngenc.Encoder) ([]byte, error) {
	var matches []pngenc.Match
	if opts.BlockType != Stored {
		matches = NewMatchFinder().FindMatches(nil, src)
	}
	n := len(src)
	if n < 64 {
		n = 64
	}
	dst := enc.Header(make([]byte, 0, n))
	dst, err := enc.Encode(dst, src, matches, opts.FinalBlock)
	if err != nil {
		return nil, err
	}
	if !opts.FinalBlock {
		if e, ok := enc.(*Encoder); ok {
			dst = e.SyncFlush(dst)
		} else if z, ok := enc.(*zlibEncoder); ok {
			dst = z.f.SyncFlush(dst)
		}
	}
	return dst, nil
}
