// Package memory pools the hot-path allocations of the search
// pipeline: per-spectrum vectors and the gob-encoded candidate-index
// cache blob. Built on sync.Pool, the way the teacher pools particle
// and voxel-index slices for its 3D renderer — here repurposed to the
// allocations this domain actually makes under load: fixed-length
// []float64 bin vectors (ProcessedSpectrum/TheoreticalSpectrum) rather
// than 3D particles.
package memory

import (
	"bytes"
	"sync"
)

// VectorBuffer wraps a fixed-length float64 slice for pooling. Length
// tracks how much of Data is meaningful; Capacity is the slice's
// allocated length, used to reject a buffer of the wrong size on Put.
type VectorBuffer struct {
	Data     []float64
	Capacity int
	Length   int
}

// VectorPool is a sync.Pool wrapper for []float64 buffers of one fixed
// length (the bin count), avoiding a fresh allocation for every
// spectrum preprocessed or theoretical vector built.
type VectorPool struct {
	pool   sync.Pool
	length int
}

// NewVectorPool creates a pool of buffers of the given length (e.g.
// spectrum.Grid.Bins()).
func NewVectorPool(length int) *VectorPool {
	return &VectorPool{
		length: length,
		pool: sync.Pool{
			New: func() interface{} {
				return &VectorBuffer{Data: make([]float64, length), Capacity: length}
			},
		},
	}
}

// Get retrieves a buffer from the pool with every element zeroed, so
// callers can accumulate into it as if freshly allocated.
func (vp *VectorPool) Get() *VectorBuffer {
	vb := vp.pool.Get().(*VectorBuffer)
	for i := range vb.Data {
		vb.Data[i] = 0
	}
	vb.Length = 0
	return vb
}

// Put returns a buffer to the pool. A buffer of the wrong capacity
// (should never happen within one pool's lifetime) is dropped instead
// of pooled.
func (vp *VectorPool) Put(vb *VectorBuffer) {
	if vb.Capacity != vp.length {
		return
	}
	vp.pool.Put(vb)
}

// Statistics tracks pool usage for monitoring.
type Statistics struct {
	Gets        uint64
	Puts        uint64
	Allocations uint64
	Reuses      uint64
}

// MonitoredVectorPool is a VectorPool with get/put counters, for the
// run summary or a future metrics endpoint to report on.
type MonitoredVectorPool struct {
	pool  *VectorPool
	stats Statistics
	mu    sync.Mutex
}

// NewMonitoredVectorPool creates a monitored vector pool of the given
// length.
func NewMonitoredVectorPool(length int) *MonitoredVectorPool {
	return &MonitoredVectorPool{pool: NewVectorPool(length)}
}

// Get retrieves a buffer and updates stats.
func (mvp *MonitoredVectorPool) Get() *VectorBuffer {
	mvp.mu.Lock()
	mvp.stats.Gets++
	mvp.mu.Unlock()
	return mvp.pool.Get()
}

// Put returns a buffer and updates stats.
func (mvp *MonitoredVectorPool) Put(vb *VectorBuffer) {
	mvp.mu.Lock()
	mvp.stats.Puts++
	mvp.stats.Reuses++
	mvp.mu.Unlock()
	mvp.pool.Put(vb)
}

// Stats returns current pool statistics.
func (mvp *MonitoredVectorPool) Stats() Statistics {
	mvp.mu.Lock()
	defer mvp.mu.Unlock()
	return mvp.stats
}

// ByteBufferPool is a sync.Pool of *bytes.Buffer, used to avoid a
// fresh allocation every time a candidate-index cache entry is
// gob-encoded before being written to Redis or a local file.
type ByteBufferPool struct {
	pool sync.Pool
}

// NewByteBufferPool creates an empty byte-buffer pool.
func NewByteBufferPool() *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() interface{} { return new(bytes.Buffer) },
		},
	}
}

// Get retrieves a buffer from the pool, reset to empty.
func (bp *ByteBufferPool) Get() *bytes.Buffer {
	buf := bp.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns a buffer to the pool.
func (bp *ByteBufferPool) Put(buf *bytes.Buffer) {
	bp.pool.Put(buf)
}

// BufferManager aggregates the pools a search worker needs: one
// vector pool sized to the bin grid for spectrum/theoretical vectors,
// and one byte-buffer pool for cache serialization.
type BufferManager struct {
	vectors *MonitoredVectorPool
	bytes   *ByteBufferPool
}

// NewBufferManager creates a manager whose vector pool is sized to
// binCount (typically spectrum.Grid.Bins()).
func NewBufferManager(binCount int) *BufferManager {
	return &BufferManager{
		vectors: NewMonitoredVectorPool(binCount),
		bytes:   NewByteBufferPool(),
	}
}

// GetVector gets a zeroed bin-length vector buffer from the pool.
func (bm *BufferManager) GetVector() *VectorBuffer { return bm.vectors.Get() }

// PutVector returns a bin-length vector buffer to the pool.
func (bm *BufferManager) PutVector(vb *VectorBuffer) { bm.vectors.Put(vb) }

// GetByteBuffer gets an empty *bytes.Buffer from the pool.
func (bm *BufferManager) GetByteBuffer() *bytes.Buffer { return bm.bytes.Get() }

// PutByteBuffer returns a *bytes.Buffer to the pool.
func (bm *BufferManager) PutByteBuffer(buf *bytes.Buffer) { bm.bytes.Put(buf) }

// Stats returns the vector pool's get/put counters.
func (bm *BufferManager) Stats() Statistics { return bm.vectors.Stats() }
