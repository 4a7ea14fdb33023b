package session

import (
	"context"
	"errors"
)

// Key is the single storage slot name. There is no versioning and no
// multi-account support: last write wins.
const Key = "auth_token"

// ErrNoSession is returned by Get when no token is stored. Callers treat it
// as "unauthenticated", not as a failure.
var ErrNoSession = errors.New("session: no token stored")

// Store holds the process-wide bearer token slot.
//
// Rules:
// - At most one active token; Set replaces unconditionally.
// - Get after Clear (or before any Set) returns ErrNoSession.
// - Implementations must be safe for concurrent use; a reader racing a
//   writer may observe either the old or the new token, never a torn value.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}
