// Write primitives.
//
// Every record is written whole. With Config.VerifyWrite set, a write is
// followed by a read of the same path and a checksum comparison; on a
// mismatch the write is repeated, up to Config.WriteAttempts writes in
// total, and then ErrFailedToWrite is returned. Storage errors are not
// retried. There is no backoff between attempts and no temp-file rename:
// the store replaces the contents in place.
package varia

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// put writes data to path, verifying it when configured.
func (r *Runner) put(ctx context.Context, p port, path string, data []byte) error {
	if !r.config.VerifyWrite {
		if err := p.write(ctx, path, data); err != nil {
			return r.storeErr(ctx, path, err)
		}
		return nil
	}

	want := checksum(data, r.config.Checksum)
	for attempt := 1; attempt <= r.config.WriteAttempts; attempt++ {
		if err := p.write(ctx, path, data); err != nil {
			return r.storeErr(ctx, path, err)
		}
		written, err := r.get(ctx, p, path)
		if err != nil {
			return err
		}
		if checksum(written, r.config.Checksum) == want {
			return nil
		}
		r.metrics.retries.Inc()
		r.log.Warn("written record failed verification",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Int("size", len(data)),
			zap.Int("read", len(written)))
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrFailedToWrite, path, r.config.WriteAttempts)
}
