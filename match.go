// Package pngenc holds the compression pipeline shared by the flate
// and png subpackages: raster images are encoded as PNG files, with
// the DEFLATE compressor that backs them exposed as a reusable
// component.
//
// Compression is split into two stages with an intermediate
// representation between them:
//   - a MatchFinder performs the LZ77 stage, reducing the input to a
//     sequence of literals and back-references;
//   - an Encoder serializes that sequence in its final format (raw
//     DEFLATE blocks, or a zlib container around them).
//
// The png subpackage layers scanline filtering, interlacing and the
// chunk stream on top of the flate subpackage.
package pngenc

// A Match is the basic unit of LZ77 compression.
type Match struct {
	Unmatched int // the number of unmatched bytes since the previous match
	Length    int // the number of bytes in the matched string; it may be 0 at the end of the input
	Distance  int // how far back in the stream to copy from
}

// A MatchFinder performs the LZ77 stage of compression, looking for matches.
type MatchFinder interface {
	// FindMatches looks for matches in src, appends them to dst, and returns dst.
	FindMatches(dst []Match, src []byte) []Match

	// Reset clears any internal state, preparing the MatchFinder to be used with
	// a new stream.
	Reset()
}

// An Encoder encodes the data in its final format.
type Encoder interface {
	// Header appends the appropriate stream header to dst.
	Header(dst []byte) []byte

	// Encode appends the encoded format of src to dst, using the match
	// information from matches.
	Encode(dst []byte, src []byte, matches []Match, lastBlock bool) ([]byte, error)

	// Reset clears any internal state, preparing the Encoder to be used with
	// a new stream.
	Reset()
}
