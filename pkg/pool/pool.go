// Package pool provides sync.Pool-backed scratch buffers. pkg/graph draws
// its string sets from StringSetPool; no package in this module uses
// VectorPool.
package pool

import "sync"

// VectorPool pools []float64 scratch buffers.
var VectorPool = sync.Pool{
	New: func() interface{} {
		return make([]float64, 0, 256)
	},
}

// GetVector returns a zero-length []float64 with spare capacity from the
// pool.
func GetVector() []float64 {
	v := VectorPool.Get().([]float64)
	return v[:0]
}

// PutVector returns a buffer to the pool. Callers must not use v after
// calling PutVector.
func PutVector(v []float64) {
	VectorPool.Put(v) //nolint:staticcheck // intentional interface box reuse
}

// StringSetPool pools map[string]struct{} scratch sets, used by pkg/graph
// for edge de-duplication and community membership tests.
var StringSetPool = sync.Pool{
	New: func() interface{} {
		return make(map[string]struct{}, 16)
	},
}

// GetStringSet returns an empty set from the pool.
func GetStringSet() map[string]struct{} {
	m := StringSetPool.Get().(map[string]struct{})
	for k := range m {
		delete(m, k)
	}
	return m
}

// PutStringSet returns a set to the pool.
func PutStringSet(m map[string]struct{}) {
	StringSetPool.Put(m)
}
