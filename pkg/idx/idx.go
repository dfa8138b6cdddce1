// Package idx generates identifiers for append-only records.
package idx

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a lexicographically sortable id for t. Ids generated within
// the same millisecond are strictly increasing.
func NewULID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// New is NewULID at the current time.
func New() string {
	return NewULID(time.Now())
}

// NewUUID returns a random v4 uuid string.
func NewUUID() string {
	return uuid.NewString()
}
