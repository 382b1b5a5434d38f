package ports

import (
	"context"
)

// Server defines the interface for the service's network front end
type Server interface {
	// Start begins serving in the background
	Start() error

	// Stop drains in-flight requests until ctx is done
	Stop(ctx context.Context) error
}
