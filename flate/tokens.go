package flate

import (
	"errors"
	"fmt"
)

const (
	minMatch    = 3
	maxMatch    = 258
	maxDistance = 32768

	// maxStoredSize is the largest payload of a single stored block.
	maxStoredSize = 65535

	maxLitLenCodes = 286
	maxDistCodes   = 30
	maxClenCodes   = 19

	endBlockMarker = 256
)

var (
	// ErrInvalidLengthCode reports a match length outside [3,258].
	ErrInvalidLengthCode = errors.New("flate: invalid match length")

	// ErrInvalidDistanceCode reports a match distance outside [1,32768].
	ErrInvalidDistanceCode = errors.New("flate: invalid match distance")

	// ErrBadRunLength reports a code length above 15, which the
	// run-length encoder cannot emit as a literal length symbol.
	ErrBadRunLength = errors.New("flate: bad run-length symbol")

	// ErrCorruptTree reports a Huffman code assignment that over- or
	// undercommits the code space.
	ErrCorruptTree = errors.New("flate: corrupt huffman tree")
)

// Length codes 257..285 per RFC 1951 3.2.5, indexed by code-257.
var (
	lengthBase = [29]uint16{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
		35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
	}
	lengthExtraBits = [29]uint8{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
	}
)

// Distance codes 0..29 per RFC 1951 3.2.5.
var (
	distBase = [30]uint16{
		1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
		257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
		8193, 12289, 16385, 24577,
	}
	distExtraBits = [30]uint8{
		0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
		7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
	}
)

// codeLengthOrder is the transmission permutation of the code-length
// alphabet (RFC 1951 3.2.7).
var codeLengthOrder = [19]uint8{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

// lengthCodeTable maps length-3 to an index into lengthBase.
var lengthCodeTable [256]uint8

func init() {
	c := len(lengthBase) - 2 // 258 is handled separately
	for i := 255; i >= 0; i-- {
		for int(lengthBase[c]) > i+3 {
			c--
		}
		lengthCodeTable[i] = uint8(c)
	}
	lengthCodeTable[255] = uint8(len(lengthBase) - 1)
}

// lengthCode maps a match length in [3,258] to its literal/length
// symbol and extra bits.
func lengthCode(length int) (sym int, extraBits uint8, extraVal uint16, err error) {
	if length < minMatch || length > maxMatch {
		return 0, 0, 0, fmt.Errorf("%w: %d", ErrInvalidLengthCode, length)
	}
	c := lengthCodeTable[length-minMatch]
	return 257 + int(c), lengthExtraBits[c], uint16(length) - lengthBase[c], nil
}

// distanceCode maps a match distance in [1,32768] to its distance
// symbol and extra bits.
func distanceCode(dist int) (sym int, extraBits uint8, extraVal uint16, err error) {
	if dist < 1 || dist > maxDistance {
		return 0, 0, 0, fmt.Errorf("%w: %d", ErrInvalidDistanceCode, dist)
	}
	for c := len(distBase) - 1; c >= 0; c-- {
		if dist >= int(distBase[c]) {
			return c, distExtraBits[c], uint16(dist - int(distBase[c])), nil
		}
	}
	return 0, 0, 0, fmt.Errorf("%w: %d", ErrInvalidDistanceCode, dist)
}
