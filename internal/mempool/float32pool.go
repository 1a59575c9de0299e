// Package mempool pools []float32 buffers for the dense coordinate grids.
// A full-frame grid is width*height*2 (or *6 with per-channel geometry)
// floats, and each rectification run would otherwise allocate it fresh.
package mempool

import (
	"sync"
)

// Buffers are bucketed by size class so differently sized images reuse
// compatible allocations.
var float32Pools sync.Map // key: size class (int), value: *sync.Pool

// sizeClass rounds n up to the next multiple of 4096 floats.
func sizeClass(n int) int {
	const step = 4096
	if n <= step {
		return step
	}
	r := (n + step - 1) / step
	return r * step
}

// GetFloat32 retrieves a []float32 buffer of at least n elements. The
// returned slice has length n but may have larger capacity, and its
// contents are unspecified. Return it via PutFloat32 when done.
func GetFloat32(n int) []float32 {
	cls := sizeClass(n)
	pAny, _ := float32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float32, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return make([]float32, cls)[:n]
	}
	buf, ok := p.Get().([]float32)
	if !ok || cap(buf) < cls {
		buf = make([]float32, cls)
	}
	return buf[:cap(buf)][:n]
}

// PutFloat32 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat32(buf []float32) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	pAny, _ := float32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float32, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return
	}
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}
