// Package replay prevents a previously accepted launch from being accepted
// again. A guard tracks (nonce, timestamp) pairs for a retention window and
// treats any re-sighting inside the window as a replay.
package replay

import (
	"context"
	"time"
)

// DefaultTTL is the retention window for consumed nonce/timestamp pairs.
const DefaultTTL = 10 * time.Minute

// Guard is the replay-protection contract. Seen atomically registers the
// pair on first sighting and reports whether it was already registered less
// than the TTL ago. A true result must be treated as a replay. An error means
// the backing store could not answer; callers fail closed.
type Guard interface {
	Seen(ctx context.Context, nonce, timestamp string) (bool, error)
}
