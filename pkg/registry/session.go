package registry

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/DrSkyle/netscope/pkg/storage"
	"github.com/DrSkyle/netscope/pkg/view"
)

// SessionPrefix is the blob prefix of generated session keys.
const SessionPrefix = "sessions/"

// SaveSession writes a snapshot of v to blob and returns its key. An empty key
// picks a fresh one under SessionPrefix and never overwrites; an explicit key
// replaces any earlier snapshot.
func SaveSession(ctx context.Context, blob storage.BlobStore, key string, v *view.View) (string, error) {
	var buf bytes.Buffer
	if err := v.Serialize(&buf); err != nil {
		return "", fmt.Errorf("failed to serialize session: %w", err)
	}
	if key == "" {
		key = SessionPrefix + uuid.NewString() + ".jsonl"
		return key, blob.Create(ctx, key, buf.Bytes())
	}
	return key, blob.Put(ctx, key, buf.Bytes())
}

// LoadSession restores a view, with its own store, from a snapshot in blob.
func LoadSession(ctx context.Context, blob storage.BlobStore, key string, opts ...view.Option) (*view.View, error) {
	data, err := blob.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session %s: %w", key, err)
	}
	v, err := view.Deserialize(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", key, err)
	}
	return v, nil
}

// ListSessions returns the keys of stored snapshots.
func ListSessions(ctx context.Context, blob storage.BlobStore) ([]string, error) {
	return blob.List(ctx, SessionPrefix)
}
