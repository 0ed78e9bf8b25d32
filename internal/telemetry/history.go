package telemetry

// MinHistorySize is the floor enforced on the retention window.
const MinHistorySize = 10

// History is a fixed-capacity FIFO of readings with strict ring-buffer
// semantics: pushing onto a full ring evicts the oldest entry, and
// insertion order is chronological order.
type History struct {
	buf  []SensorReading
	head int // index of the oldest entry
	size int
}

// NewHistory returns a ring with the given capacity, floored at
// MinHistorySize.
func NewHistory(capacity int) *History {
	if capacity < MinHistorySize {
		capacity = MinHistorySize
	}
	return &History{buf: make([]SensorReading, capacity)}
}

// Push appends a reading, evicting the oldest when full.
func (h *History) Push(r SensorReading) {
	if h.size < len(h.buf) {
		h.buf[(h.head+h.size)%len(h.buf)] = r
		h.size++
		return
	}
	h.buf[h.head] = r
	h.head = (h.head + 1) % len(h.buf)
}

// Len reports the number of retained readings.
func (h *History) Len() int { return h.size }

// Capacity reports the ring size.
func (h *History) Capacity() int { return len(h.buf) }

// Snapshot returns the retained readings in chronological order.
func (h *History) Snapshot() []SensorReading {
	out := make([]SensorReading, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}

// Resize changes the capacity, floored at MinHistorySize. When the new
// capacity is smaller than the current content the oldest entries are
// dropped immediately.
func (h *History) Resize(capacity int) {
	if capacity < MinHistorySize {
		capacity = MinHistorySize
	}
	old := h.Snapshot()
	if len(old) > capacity {
		old = old[len(old)-capacity:]
	}
	h.buf = make([]SensorReading, capacity)
	h.head = 0
	h.size = len(old)
	copy(h.buf, old)
}

// Clear empties the ring.
func (h *History) Clear() {
	h.head = 0
	h.size = 0
}
