package cache

import (
	"context"
	"time"

	"github.com/amy/portal-client/internal/core/ports"
)

const mirrorTimeout = 2 * time.Second

// Mirror copies every newly published value of cell to sink until ctx is done.
// Writes happen on one goroutine in generation order; when the sink falls
// behind, intermediate values are skipped. Sink failures are logged and never
// reach the cell. Attaching a mirror counts as a read, so a lazy cell starts
// loading.
func Mirror[T any](ctx context.Context, cell *Cell[T], sink ports.SnapshotSink) {
	updates := cell.Watch(ctx)
	go func() {
		var last uint64
		for snap := range updates {
			if snap.Generation == 0 || snap.Generation == last {
				continue
			}
			last = snap.Generation

			pubCtx, cancel := context.WithTimeout(ctx, mirrorTimeout)
			err := sink.Publish(pubCtx, cell.Key(), snap.Generation, snap.Value)
			cancel()
			if err != nil {
				cell.log.Warn().Err(err).Uint64("generation", snap.Generation).Msg("snapshot mirror write failed")
			}
		}
	}()
}
