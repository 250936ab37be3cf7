// Package memory provides the in-memory key-value store for respkv.
//
// A Store keeps two structures in lockstep under a single mutex:
//
//   - entries: key -> value plus optional absolute expiration
//   - expirations: ordered set of (expiration, key) pairs (B-tree)
//
// A background reaper goroutine owned by the Store removes expired keys.
// It sleeps until the nearest expiration, or until a writer inserts a
// nearer one and wakes it. Expiration is lazy: Get returns a key whose
// deadline has passed until the reaper has collected it.
//
// Thread Safety:
//
// All operations are safe for concurrent use. The mutex is held only for
// map and index mutation, never across I/O or sleeping.
package memory
