package ports

import "context"

// Notifier delivers alert messages to one or more outbound channels.
// Delivery is fire-and-forget from the pipeline's perspective: a failed
// channel must never block or fail the trading decision.
type Notifier interface {
	// Send delivers the message and reports per-channel success.
	Send(ctx context.Context, message string) map[string]bool

	// EnabledChannels lists the configured channels and whether each is active.
	EnabledChannels() map[string]bool
}
