package flate

// A heapNode is a (symbol, weight) pair in the tree-construction heap.
// seq records insertion order so that equal weights pop in the order
// they were pushed.
type heapNode struct {
	index  int32
	seq    int32
	weight int64
}

// A minHeap is a binary min-heap of heapNodes in a flat backing array.
// Parent/child relations are arithmetic on the slice index; no node
// objects are allocated.
type minHeap struct {
	nodes []heapNode
	seq   int32
}

func (h *minHeap) len() int { return len(h.nodes) }

func (h *minHeap) less(a, b heapNode) bool {
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	return a.seq < b.seq
}

func (h *minHeap) push(index int32, weight int64) {
	h.nodes = append(h.nodes, heapNode{index: index, seq: h.seq, weight: weight})
	h.seq++
	h.siftUp(len(h.nodes) - 1)
}

// pop removes and returns the node with the smallest weight.
func (h *minHeap) pop() heapNode {
	ret := h.nodes[0]
	last := len(h.nodes) - 1
	h.nodes[0] = h.nodes[last]
	h.nodes = h.nodes[:last]
	if last > 0 {
		h.siftDown(0)
	}
	return ret
}

func (h *minHeap) siftUp(index int) {
	for index > 0 {
		p := (index - 1) / 2
		if h.less(h.nodes[p], h.nodes[index]) {
			break
		}
		h.nodes[p], h.nodes[index] = h.nodes[index], h.nodes[p]
		index = p
	}
}

func (h *minHeap) siftDown(index int) {
	for {
		left := index*2 + 1
		right := left + 1
		if left >= len(h.nodes) {
			break
		}
		c := left
		if right < len(h.nodes) && h.less(h.nodes[right], h.nodes[left]) {
			c = right
		}
		if h.less(h.nodes[index], h.nodes[c]) {
			break
		}
		h.nodes[c], h.nodes[index] = h.nodes[index], h.nodes[c]
		index = c
	}
}
