package common

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu   sync.Mutex
	idMono io.Reader
)

func init() {
	// Monotonic entropy keeps IDs minted within the same millisecond ordered.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	idMono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// NewEntryID returns a ULID string. ULIDs sort lexicographically by creation
// time, so ledger entries can be ordered by ID as a tie-breaker.
func NewEntryID() string {
	return NewEntryIDAt(time.Now())
}

// NewEntryIDAt returns a ULID stamped with t.
func NewEntryIDAt(t time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), idMono)
	if err != nil {
		// Only possible when entropy fails or the clock runs backwards past the monotonic window.
		panic(err)
	}
	return id.String()
}
