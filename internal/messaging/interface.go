package messaging

import "context"

// PublisherInterface defines the contract for event publishing
// This allows for easy mocking in tests
type PublisherInterface interface {
	// Publish sends eventData under routingKey. key identifies the entity the
	// event belongs to so consumers can preserve per-entity ordering.
	Publish(ctx context.Context, routingKey, key string, eventData interface{}) error
	Close() error
}

// Ensure Publisher implements PublisherInterface
var _ PublisherInterface = (*Publisher)(nil)
