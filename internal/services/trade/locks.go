package trade

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLocks serializes work per key using a fixed set of mutexes. Two keys
// may share a stripe; that only costs parallelism.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyLocks) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &k.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
