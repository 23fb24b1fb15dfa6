package ports

import "context"

// SnapshotSink receives the encoded payload of every successful cache fetch.
type SnapshotSink interface {
	Publish(ctx context.Context, key string, generation uint64, payload any) error
}
