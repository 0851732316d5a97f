package metadata

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetFlag reads a boolean flag stored as "1"/"0". Missing keys read false.
func GetFlag(ctx context.Context, r Repository, key string) (bool, error) {
	v, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return string(v) == "1", nil
}

func SetFlag(ctx context.Context, r Repository, key string, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return r.Set(ctx, key, []byte(v))
}

// GetJSON decodes key into dst. It reports false when the key is missing.
func GetJSON(ctx context.Context, r Repository, key string, dst any) (bool, error) {
	v, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return false, fmt.Errorf("failed to decode metadata key %q: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, r Repository, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode metadata key %q: %w", key, err)
	}
	return r.Set(ctx, key, b)
}
