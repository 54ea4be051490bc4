package flate

import (
	"encoding/binary"
	"math/bits"

	pngenc "github.com/imaya/CanvasTool.PngEncoder"
)

// A MatchFinder is a greedy LZ77 matcher: at each position it takes
// the longest match available, preferring the smallest distance among
// equally long ones (nearer matches cost fewer extra bits).
//
// Candidate positions are indexed by the 24-bit key formed from the
// next three bytes. Each key's position list is chronological, so
// positions that have slid out of the 32 KiB window are dropped from
// the front of the list as soon as they are seen.
type MatchFinder struct {
	table map[uint32][]int32
}

// NewMatchFinder returns a MatchFinder ready for use. The zero value
// is also valid.
func NewMatchFinder() *MatchFinder {
	return &MatchFinder{}
}

func (m *MatchFinder) Reset() {
	m.table = nil
}

// FindMatches looks for matches in src, appends them to dst, and returns dst.
// Positions index into src, so matches never refer back past the start
// of the block.
func (m *MatchFinder) FindMatches(dst []pngenc.Match, src []byte) []pngenc.Match {
	if m.table == nil {
		m.table = make(map[uint32][]int32, 1<<10)
	} else {
		clear(m.table)
	}
	unmatched := 0
	skip := 0
	for p := 0; p < len(src); p++ {
		if p+minMatch > len(src) {
			if skip > 0 {
				skip--
				continue
			}
			unmatched++
			continue
		}
		k := key3(src[p:])
		positions := m.table[k]
		for len(positions) > 0 && p-int(positions[0]) > maxDistance {
			positions = positions[1:]
		}
		if skip > 0 {
			skip--
		} else if len(positions) > 0 {
			length, distance := bestMatch(src, p, positions)
			dst = append(dst, pngenc.Match{
				Unmatched: unmatched,
				Length:    length,
				Distance:  distance,
			})
			unmatched = 0
			skip = length - 1
		} else {
			unmatched++
		}
		m.table[k] = append(positions, int32(p))
	}
	if unmatched > 0 {
		dst = append(dst, pngenc.Match{Unmatched: unmatched})
	}
	return dst
}

// key3 returns the 24-bit hash-table key for the next three bytes.
// The caller must ensure len(b) >= 3.
func key3(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// bestMatch extends every candidate and returns the longest match,
// breaking ties toward the smallest distance. Candidates share the
// full 3-byte key with pos, so every returned length is >= minMatch.
func bestMatch(src []byte, pos int, candidates []int32) (length, distance int) {
	max := len(src) - pos
	if max > maxMatch {
		max = maxMatch
	}
	want := src[pos : pos+max]
	for _, c := range candidates {
		q := int(c)
		n := matchLen(src[q:q+max], want)
		if n >= length {
			length = n
			distance = pos - q
		}
	}
	return length, distance
}

// matchLen returns the length of the common prefix of a and b,
// comparing eight bytes per step before refining byte by byte.
// The slices must be the same length.
func matchLen(a, b []byte) int {
	var checked int
	for len(a) >= 8 {
		if diff := binary.LittleEndian.Uint64(a) ^ binary.LittleEndian.Uint64(b); diff != 0 {
			return checked + bits.TrailingZeros64(diff)>>3
		}
		checked += 8
		a = a[8:]
		b = b[8:]
	}
	for i := range a {
		if a[i] != b[i] {
			return checked + i
		}
	}
	return checked + len(a)
}
