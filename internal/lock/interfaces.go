package lock

import (
	"context"
	"time"
)

// Locker hands out exclusive, non-blocking locks by key. It serializes
// refresh runs so one user never has two reconciliations in flight.
//
// This abstraction allows swapping between an in-process lock (single
// instance) and Redis (several instances sharing one snapshot directory).
type Locker interface {
	// TryLock acquires key if free. ok is false when another holder has it.
	// release must be called exactly once when ok is true.
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}

// DefaultTTL bounds how long a crashed holder can keep a Redis lock.
const DefaultTTL = 30 * time.Minute
