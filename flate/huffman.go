package flate

import (
	"fmt"
	"math/bits"
)

const (
	maxMainBits = 15 // literal/length and distance alphabets
	maxClenBits = 7  // code-length alphabet

	// Frequency caps that keep the tree within the length limit.
	// With the total weight at most maxProb times the smallest weight, no
	// chain of merges can grow deeper than the limit (the caps are
	// consecutive-Fibonacci bounds, as in PuTTY's sshzlib).
	maxProbMain = 2584
	maxProbClen = 55
)

// buildLengths returns per-symbol code lengths for a Huffman code over
// freqs, with no length exceeding maxBits (15 for the main alphabets,
// 7 for the code-length alphabet). Symbols with zero frequency get
// length zero, except that at least two symbols are always assigned a
// code: DEFLATE cannot transmit a tree with fewer.
func buildLengths(freqs []int, maxBits int) ([]uint8, error) {
	var maxProb int64
	switch maxBits {
	case maxMainBits:
		maxProb = maxProbMain
	case maxClenBits:
		maxProb = maxProbClen
	default:
		return nil, fmt.Errorf("%w: unsupported length limit %d", ErrCorruptTree, maxBits)
	}

	weights := make([]int64, len(freqs))
	nActive := 0
	for i, f := range freqs {
		if f > 0 {
			weights[i] = int64(f)
			nActive++
		}
	}
	for i := 0; nActive < 2 && i < len(weights); i++ {
		if weights[i] == 0 {
			weights[i] = 1
			nActive++
		}
	}

	// Flatten the frequency distribution until the deepest possible
	// tree fits in maxBits.
	var totalFreq, smallest int64 = 0, 0
	for _, w := range weights {
		if w == 0 {
			continue
		}
		totalFreq += w
		if smallest == 0 || w < smallest {
			smallest = w
		}
	}
	if adjust := divCeil(totalFreq-smallest*maxProb, maxProb-int64(nActive)); adjust > 0 {
		for i, w := range weights {
			if w > 0 {
				weights[i] = w + adjust
			}
		}
	}

	// Build the tree. Leaves are node ids 0..len(freqs)-1; each merge
	// creates node id len(freqs)+i. parent holds the arena links.
	nSymbols := int32(len(freqs))
	parent := make([]int32, int(nSymbols)+nActive)
	var h minHeap
	h.nodes = make([]heapNode, 0, nActive)
	for i, w := range weights {
		if w > 0 {
			h.push(int32(i), w)
		}
	}
	next := nSymbols
	for h.len() >= 2 {
		a := h.pop()
		b := h.pop()
		parent[a.index] = next
		parent[b.index] = next
		h.push(next, a.weight+b.weight)
		next++
	}
	root := next - 1

	// Depth of each internal node, walking from the root down in
	// reverse creation order (a node's parent is always created after
	// the node itself).
	depth := make([]uint8, next)
	for id := root - 1; id >= nSymbols; id-- {
		depth[id] = depth[parent[id]] + 1
	}
	lengths := make([]uint8, len(freqs))
	for i, w := range weights {
		if w == 0 {
			continue
		}
		l := depth[parent[i]] + 1
		if int(l) > maxBits {
			return nil, fmt.Errorf("%w: code length %d exceeds %d", ErrCorruptTree, l, maxBits)
		}
		lengths[i] = l
	}
	return lengths, nil
}

func divCeil(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// codesFromLengths assigns canonical Huffman codes per RFC 1951 3.2.2
// and bit-reverses each code to its length so it can be fed straight
// to the LSB-first bitWriter. maxBits is the alphabet's length limit;
// an incomplete or oversubscribed set of lengths is ErrCorruptTree.
func codesFromLengths(lengths []uint8, maxBits int) ([]uint16, error) {
	var count [maxMainBits + 1]int
	for i, l := range lengths {
		if int(l) > maxBits {
			return nil, fmt.Errorf("%w: symbol %d has length %d", ErrCorruptTree, i, l)
		}
		count[l]++
	}

	var space int64
	for l := 1; l <= maxBits; l++ {
		space += int64(count[l]) << (maxBits - l)
	}
	if space != 1<<maxBits {
		return nil, fmt.Errorf("%w: code space %d of %d", ErrCorruptTree, space, int64(1)<<maxBits)
	}

	var nextCode [maxMainBits + 1]uint16
	count[0] = 0
	code := uint16(0)
	for l := 1; l <= maxBits; l++ {
		code = (code + uint16(count[l-1])) << 1
		nextCode[l] = code
	}

	codes := make([]uint16, len(lengths))
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		c := nextCode[l]
		nextCode[l]++
		codes[sym] = bits.Reverse16(c) >> (16 - l)
	}
	return codes, nil
}
