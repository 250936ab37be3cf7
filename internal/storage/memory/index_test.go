package memory

import (
	"testing"
	"time"
)

func TestExpirationIndex_Order(t *testing.T) {
	x := newExpirationIndex()
	base := time.Unix(100, 0)

	x.insert(base.Add(2*time.Second), "b")
	x.insert(base.Add(time.Second), "z")
	x.insert(base.Add(time.Second), "a")

	want := []string{"a", "z", "b"}
	for i, key := range want {
		got, ok := x.popEarliest()
		if !ok {
			t.Fatalf("popEarliest() #%d empty", i)
		}
		if got.key != key {
			t.Errorf("popEarliest() #%d key = %q, want %q", i, got.key, key)
		}
	}
	if x.len() != 0 {
		t.Errorf("len() = %d, want 0", x.len())
	}
}

func TestExpirationIndex_Remove(t *testing.T) {
	x := newExpirationIndex()
	when := time.Unix(100, 0)

	x.insert(when, "k")
	if x.remove(when.Add(time.Nanosecond), "k") {
		t.Error("remove() with a different instant should miss")
	}
	if !x.remove(when, "k") {
		t.Error("remove() of existing pair should succeed")
	}
	if _, ok := x.earliest(); ok {
		t.Error("earliest() on empty index should report false")
	}
}
