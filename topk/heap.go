package topk

// maxHeap is a value-based binary max-heap on Distance. It does not implement
// container/heap to avoid interface overhead.
type maxHeap struct {
	items []Result
}

func (h *maxHeap) Len() int {
	return len(h.items)
}

func (h *maxHeap) top() (Result, bool) {
	if len(h.items) == 0 {
		return Result{}, false
	}
	return h.items[0], true
}

// pushBounded inserts item when the heap holds fewer than capacity entries,
// otherwise replaces the maximum when item is strictly closer.
func (h *maxHeap) pushBounded(item Result, capacity int) {
	if len(h.items) < capacity {
		h.items = append(h.items, item)
		h.siftUp(len(h.items) - 1)
		return
	}

	if top, ok := h.top(); ok && item.Distance < top.Distance {
		h.items[0] = item
		h.siftDown(0)
	}
}

func (h *maxHeap) pop() (Result, bool) {
	n := len(h.items)
	if n == 0 {
		return Result{}, false
	}

	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]

	if len(h.items) > 0 {
		h.siftDown(0)
	}

	return item, true
}

// drain empties the heap and returns its entries ascending by distance.
func (h *maxHeap) drain() []Result {
	out := make([]Result, len(h.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = h.pop()
	}
	h.items = nil
	return out
}

func (h *maxHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Distance <= h.items[parent].Distance {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *maxHeap) siftDown(i int) {
	n := len(h.items)
	for {
		largest := i
		left := 2*i + 1
		right := left + 1

		if left < n && h.items[left].Distance > h.items[largest].Distance {
			largest = left
		}
		if right < n && h.items[right].Distance > h.items[largest].Distance {
			largest = right
		}
		if largest == i {
			return
		}

		h.items[i], h.items[largest] = h.items[largest], h.items[i]
		i = largest
	}
}
