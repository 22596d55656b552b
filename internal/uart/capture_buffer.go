package uart

// captureBuffer is the ring between the ISR and inbound assembly. head ==
// tail means empty, so one slot always stays unused.
type captureBuffer struct {
	data []byte
	head int // next byte to read
	tail int // next slot to write
}

func newCaptureBuffer(size int) captureBuffer {
	return captureBuffer{data: make([]byte, size)}
}

func (b *captureBuffer) empty() bool {
	return b.head == b.tail
}

func (b *captureBuffer) full() bool {
	return (b.tail+1)%len(b.data) == b.head
}

func (b *captureBuffer) len() int {
	return (b.tail - b.head + len(b.data)) % len(b.data)
}

// put stores v. It returns false, storing nothing, when the write would let
// tail catch head.
func (b *captureBuffer) put(v byte) bool {
	if b.full() {
		return false
	}
	b.data[b.tail] = v
	b.tail = (b.tail + 1) % len(b.data)
	return true
}

func (b *captureBuffer) get() (byte, bool) {
	if b.empty() {
		return 0, false
	}
	v := b.data[b.head]
	b.head = (b.head + 1) % len(b.data)
	return v, true
}

func (b *captureBuffer) reset() {
	b.head, b.tail = 0, 0
}
