package discovery

import (
	"sync"

	"chaincore/primitives"
)

// bucketSize is the maximum number of live entries kept per distance
// bucket, the same fan-out Kademlia-derived tables (including devp2p v4's)
// converge on.
const bucketSize = 16

// numBuckets is one per bit of a keccak256 ID hash.
const numBuckets = 256

// Table holds every known node, grouped by log-distance from self. Closest
// scans every bucket and sorts the entries by distance to the target.
type Table struct {
	mu      sync.Mutex
	selfID  NodeID
	selfHash primitives.Hash256
	buckets [numBuckets][]Entry
}

// NewTable builds an empty table centered on self.
func NewTable(self NodeID) *Table {
	return &Table{selfID: self, selfHash: idHash(self)}
}

// Add inserts or refreshes e in its bucket, moving it to the newest
// position; when the bucket is full and e is new, the oldest entry is
// evicted without being pinged.
func (t *Table) Add(e Entry) {
	if e.ID == t.selfID {
		return
	}
	dist, ok := logDistance(t.selfHash, idHash(e.ID))
	if !ok {
		return
	}
	idx := dist - 1

	t.mu.Lock()
	defer t.mu.Unlock()
	bucket := t.buckets[idx]
	for i, existing := range bucket {
		if existing.ID == e.ID {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	bucket = append(bucket, e)
	if len(bucket) > bucketSize {
		bucket = bucket[len(bucket)-bucketSize:]
	}
	t.buckets[idx] = bucket
}

// Remove drops id from its bucket.
func (t *Table) Remove(id NodeID) {
	dist, ok := logDistance(t.selfHash, idHash(id))
	if !ok {
		return
	}
	idx := dist - 1

	t.mu.Lock()
	defer t.mu.Unlock()
	bucket := t.buckets[idx]
	for i, existing := range bucket {
		if existing.ID == id {
			t.buckets[idx] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// Closest returns up to n entries ordered by ascending distance to target.
func (t *Table) Closest(target NodeID, n int) []Entry {
	targetHash := idHash(target)

	t.mu.Lock()
	all := make([]Entry, 0, bucketSize)
	for _, bucket := range t.buckets {
		all = append(all, bucket...)
	}
	t.mu.Unlock()

	dist := make([]int, len(all))
	for i, e := range all {
		d, ok := logDistance(targetHash, idHash(e.ID))
		if !ok {
			d = 0
		}
		dist[i] = d
	}
	// Insertion sort: table sizes here are bucket-bounded, never large
	// enough to warrant sort.Slice's overhead.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && dist[j] < dist[j-1]; j-- {
			dist[j], dist[j-1] = dist[j-1], dist[j]
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	if n > len(all) {
		n = len(all)
	}
	return append([]Entry(nil), all[:n]...)
}

// Len reports the total number of entries across every bucket.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, bucket := range t.buckets {
		n += len(bucket)
	}
	return n
}
