package pade

import "sync"

// writerPool provides pooled writers for reduced allocations.
var writerPool = sync.Pool{
	New: func() any {
		return &Writer{
			buf:  make([]byte, 0, 256),
			opts: DefaultOptions,
		}
	},
}

// maxPooledBuffer is the largest buffer kept when a Writer is pooled.
const maxPooledBuffer = 64 * 1024

// GetWriter gets a Writer from the pool.
// The Writer should be returned with PutWriter when done.
func GetWriter() *Writer {
	w := writerPool.Get().(*Writer)
	w.Reset()
	w.opts = DefaultOptions
	return w
}

// PutWriter returns a Writer to the pool.
// The Writer must not be used after calling this.
func PutWriter(w *Writer) {
	if w == nil {
		return
	}
	// Don't pool large buffers to avoid memory bloat
	if cap(w.buf) > maxPooledBuffer {
		return
	}
	w.Reset()
	writerPool.Put(w)
}

// Size-tiered buffer pools for frame bodies read by StreamReader.ReadDelimited.
// Buffers are pooled in size classes: 64, 256, 1024, 4096, 16384, 65536 bytes.
var bufferPools = [6]sync.Pool{
	{New: func() any { return make([]byte, 0, 64) }},
	{New: func() any { return make([]byte, 0, 256) }},
	{New: func() any { return make([]byte, 0, 1024) }},
	{New: func() any { return make([]byte, 0, 4096) }},
	{New: func() any { return make([]byte, 0, 16384) }},
	{New: func() any { return make([]byte, 0, 65536) }},
}

var bufferSizes = [6]int{64, 256, 1024, 4096, 16384, 65536}

// poolIndex returns the smallest size class holding size, or -1.
func poolIndex(size int) int {
	for i, c := range bufferSizes {
		if size <= c {
			return i
		}
	}
	return -1
}

// GetBuffer returns an empty buffer with capacity of at least sizeHint.
func GetBuffer(sizeHint int) []byte {
	idx := poolIndex(sizeHint)
	if idx < 0 {
		return make([]byte, 0, sizeHint)
	}
	return bufferPools[idx].Get().([]byte)[:0]
}

// PutBuffer returns a buffer to its size class.
// Buffers larger than 64KB are not pooled.
func PutBuffer(buf []byte) {
	c := cap(buf)
	// A buffer goes to the largest class it fully covers.
	for i := len(bufferSizes) - 1; i >= 0; i-- {
		if c >= bufferSizes[i] {
			if c <= maxPooledBuffer {
				bufferPools[i].Put(buf[:0])
			}
			return
		}
	}
}
