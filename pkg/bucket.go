package justone

import (
	"sort"
)

// partialKey buckets on size and partial hash together, so files of
// different sizes that share their leading bytes are never promoted as a pair
type partialKey struct {
	Size int64
	Hash string
}

// Batch collects (key, index) pairs produced by one pass of a stage before
// they are merged into a BucketIndex. Keys keep first-insertion order.
type Batch[K comparable] struct {
	keys    []K
	members map[K][]int
	seen    map[K]map[int]struct{}
}

// NewBatch creates an empty batch
func NewBatch[K comparable]() *Batch[K] {
	return &Batch[K]{
		members: make(map[K][]int),
		seen:    make(map[K]map[int]struct{}),
	}
}

// Add records that index has key. Adding the same pair twice is a no-op.
func (b *Batch[K]) Add(key K, index int) {
	set, ok := b.seen[key]
	if !ok {
		set = make(map[int]struct{})
		b.seen[key] = set
		b.keys = append(b.keys, key)
	}
	if _, dup := set[index]; dup {
		return
	}
	set[index] = struct{}{}
	b.members[key] = append(b.members[key], index)
}

// Len returns the number of distinct keys in the batch
func (b *Batch[K]) Len() int {
	return len(b.keys)
}

// bucket is an insertion-ordered set of record indices
type bucket struct {
	members []int
	set     map[int]struct{}
}

func (b *bucket) add(index int) bool {
	if _, ok := b.set[index]; ok {
		return false
	}
	b.set[index] = struct{}{}
	b.members = append(b.members, index)
	return true
}

// Group is a bucket with two or more members
type Group[K comparable] struct {
	Key     K
	Members []int
}

// BucketIndex accumulates record indices sharing a key across merges
type BucketIndex[K comparable] struct {
	name    string
	buckets map[K]*bucket
	keys    []K
}

// NewBucketIndex creates an empty index; name only labels debug output
func NewBucketIndex[K comparable](name string) *BucketIndex[K] {
	return &BucketIndex[K]{
		name:    name,
		buckets: make(map[K]*bucket),
	}
}

// Merge folds batch into the index and returns the indices promoted to the
// next stage, in first-seen order:
//   - a newly added member of a bucket that now has two or more members
//   - the sole earlier member of a bucket that was a singleton before this
//     merge and gained a sibling
//
// Members already present are not added again and are never re-promoted.
func (bi *BucketIndex[K]) Merge(batch *Batch[K]) []int {
	var promoted []int
	promotedSet := make(map[int]struct{})
	promote := func(index int) {
		if _, ok := promotedSet[index]; ok {
			return
		}
		promotedSet[index] = struct{}{}
		promoted = append(promoted, index)
	}

	for _, key := range batch.keys {
		b, ok := bi.buckets[key]
		if !ok {
			b = &bucket{set: make(map[int]struct{})}
			bi.buckets[key] = b
			bi.keys = append(bi.keys, key)
		}

		before := len(b.members)
		var added []int
		for _, index := range batch.members[key] {
			if b.add(index) {
				added = append(added, index)
			}
		}

		if len(b.members) < 2 || len(added) == 0 {
			continue
		}
		if before == 1 {
			promote(b.members[0])
		}
		for _, index := range added {
			promote(index)
		}
	}

	if IsDebugEnabled("bucket") {
		VerboseLog(3, "%s: merged %d keys, promoted %d", bi.name, batch.Len(), len(promoted))
	}
	return promoted
}

// Members returns the indices sharing key, in insertion order
func (bi *BucketIndex[K]) Members(key K) []int {
	b, ok := bi.buckets[key]
	if !ok {
		return nil
	}
	return append([]int(nil), b.members...)
}

// Len returns the number of distinct keys
func (bi *BucketIndex[K]) Len() int {
	return len(bi.keys)
}

// Groups returns every bucket with two or more members in key insertion
// order. With sorted set, groups are ordered by their lowest index instead.
func (bi *BucketIndex[K]) Groups(sorted bool) []Group[K] {
	var groups []Group[K]
	for _, key := range bi.keys {
		b := bi.buckets[key]
		if len(b.members) < 2 {
			continue
		}
		groups = append(groups, Group[K]{Key: key, Members: append([]int(nil), b.members...)})
	}

	if sorted {
		sort.SliceStable(groups, func(i, j int) bool {
			return minIndex(groups[i].Members) < minIndex(groups[j].Members)
		})
	}
	return groups
}

func minIndex(members []int) int {
	lowest := members[0]
	for _, m := range members[1:] {
		if m < lowest {
			lowest = m
		}
	}
	return lowest
}
