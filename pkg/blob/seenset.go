// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package blob

import (
	"runtime"
	"sync"
)

// SeenSet tracks which blob IDs have already been observed during a scan,
// so a blob reachable through multiple paths or commits is matched at most
// once. It is sharded across several mutex-guarded maps to cut contention
// when many workers insert concurrently.
type SeenSet struct {
	shards []seenShard
	mask   uint32
}

type seenShard struct {
	mu   sync.Mutex
	seen map[ID]struct{}
}

// NewSeenSet creates a SeenSet sized for concurrent use by a worker pool.
// shardCount is rounded up to the next power of two; a value of 0 defaults
// to runtime.GOMAXPROCS(0)*4.
func NewSeenSet(shardCount int) *SeenSet {
	if shardCount <= 0 {
		shardCount = runtime.GOMAXPROCS(0) * 4
	}
	n := 1
	for n < shardCount {
		n <<= 1
	}

	s := &SeenSet{
		shards: make([]seenShard, n),
		mask:   uint32(n - 1),
	}
	for i := range s.shards {
		s.shards[i].seen = make(map[ID]struct{})
	}
	return s
}

// shardFor picks a shard deterministically from the first four bytes of id,
// which are themselves a uniformly-distributed SHA-1 prefix.
func (s *SeenSet) shardFor(id ID) *seenShard {
	h := uint32(id[0])<<24 | uint32(id[1])<<16 | uint32(id[2])<<8 | uint32(id[3])
	return &s.shards[h&s.mask]
}

// Insert records id as seen and reports whether it was new. This is the
// only primitive the pipeline needs: at-most-once scanning per blob.
func (s *SeenSet) Insert(id ID) (wasNew bool) {
	shard := s.shardFor(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, ok := shard.seen[id]; ok {
		return false
	}
	shard.seen[id] = struct{}{}
	return true
}

// Len returns the total number of distinct blob IDs recorded so far. It
// acquires each shard's lock in turn and is intended for diagnostics, not
// hot-path use.
func (s *SeenSet) Len() int {
	total := 0
	for i := range s.shards {
		s.shards[i].mu.Lock()
		total += len(s.shards[i].seen)
		s.shards[i].mu.Unlock()
	}
	return total
}
