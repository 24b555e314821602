package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, so they
// double as stable ordering keys for notes and users in every store.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
