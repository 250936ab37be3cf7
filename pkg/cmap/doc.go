// Package cmap provides a concurrent map keyed by strings.
//
// The map is split into shards, each guarded by its own RWMutex, so that
// unrelated keys rarely contend. Keys are assigned to shards with
// murmur3, which keeps the distribution stable across processes.
//
//	m := cmap.New[*rate.Limiter]()
//	lim, _ := m.GetOrCompute("10.0.0.1", newLimiter)
//
// All operations are safe for concurrent use. Iteration locks one shard
// at a time, so it does not observe a consistent snapshot of the map.
package cmap
