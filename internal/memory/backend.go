package memory

import (
	"context"
	"errors"
	"time"
)

// ErrStorage wraps every backend I/O failure. Read-or-create paths must fail
// loudly when the backend is down rather than fabricate default records that
// diverge from persisted truth.
var ErrStorage = errors.New("storage backend error")

// Backend is the abstract key/value + list store the memory layer persists
// through. Implementations serialize nothing themselves; every value is an
// opaque string under a namespaced key. List reads return most-recently-added
// first; list appends prepend and trim to maxLen.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetList(ctx context.Context, key string, limit int) ([]string, error)
	AddToList(ctx context.Context, key, value string, maxLen int) error
	Ping(ctx context.Context) error
}
