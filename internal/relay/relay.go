// Package relay delivers committed outbox events to the message broker and
// the vanity collaborator.
package relay

import (
	"context"
)

// Relay is a long-running background task draining the outbox
type Relay interface {
	// Start begins the relay's main loop
	// This is a blocking call that runs until the context is canceled
	Start(ctx context.Context) error

	// Stop gracefully stops the relay
	// This should wait for any in-progress delivery to complete
	Stop(ctx context.Context) error

	// Name returns the relay's name for logging and identification
	Name() string
}
