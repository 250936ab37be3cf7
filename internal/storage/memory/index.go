package memory

import (
	"time"

	"github.com/google/btree"
)

// btreeDegree is the branching factor of the expiration index.
const btreeDegree = 32

// expiration is one (instant, key) pair of the expiration index.
type expiration struct {
	when time.Time
	key  string
}

// lessExpiration orders pairs by instant, then key.
func lessExpiration(a, b expiration) bool {
	if !a.when.Equal(b.when) {
		return a.when.Before(b.when)
	}
	return a.key < b.key
}

// expirationIndex is an ordered set of expiration pairs.
// It is not safe for concurrent use; the Store serializes access.
type expirationIndex struct {
	tree *btree.BTreeG[expiration]
}

func newExpirationIndex() *expirationIndex {
	return &expirationIndex{
		tree: btree.NewG[expiration](btreeDegree, lessExpiration),
	}
}

// insert adds the pair (when, key).
func (x *expirationIndex) insert(when time.Time, key string) {
	x.tree.ReplaceOrInsert(expiration{when: when, key: key})
}

// remove deletes the pair (when, key) and reports whether it was present.
func (x *expirationIndex) remove(when time.Time, key string) bool {
	_, ok := x.tree.Delete(expiration{when: when, key: key})
	return ok
}

// earliest returns the pair with the smallest instant.
func (x *expirationIndex) earliest() (expiration, bool) {
	return x.tree.Min()
}

// popEarliest removes and returns the pair with the smallest instant.
func (x *expirationIndex) popEarliest() (expiration, bool) {
	return x.tree.DeleteMin()
}

func (x *expirationIndex) len() int {
	return x.tree.Len()
}
