// Package ids mints the lexicographically sortable identifiers used for user
// records and request correlation.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a new ULID string.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Valid reports whether id is a well-formed ULID.
func Valid(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}
