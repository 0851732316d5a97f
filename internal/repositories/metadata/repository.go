package metadata

import "context"

// Repository is a small key/value store for device-local auth state.
//
// Get returns (nil, nil) for a key that was never set. Delete removes the
// given keys; absent keys are not an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}
