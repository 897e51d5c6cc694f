package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/WailSalutem-Health-Care/patient-service/internal/messaging"
)

var _ messaging.PublisherInterface = (*MockPublisher)(nil)

// PublishedEvent is one message accepted by MockPublisher.
type PublishedEvent struct {
	RoutingKey string
	Key        string
	EventData  interface{}
	RawJSON    []byte
}

// MockPublisher records published events in memory instead of sending them to RabbitMQ.
type MockPublisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
	err    error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// FailWith makes every following Publish return err without recording.
func (m *MockPublisher) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

// Publish marshals eventData like the real publisher and records it.
func (m *MockPublisher) Publish(ctx context.Context, routingKey, key string, eventData interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	raw, err := json.Marshal(eventData)
	if err != nil {
		return err
	}
	m.events = append(m.events, PublishedEvent{
		RoutingKey: routingKey,
		Key:        key,
		EventData:  eventData,
		RawJSON:    raw,
	})
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// Events returns the recorded events for routingKey, or all of them when routingKey is empty.
func (m *MockPublisher) Events(routingKey string) []PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []PublishedEvent
	for _, e := range m.events {
		if routingKey == "" || e.RoutingKey == routingKey {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent event for routingKey (any key when empty), or nil.
func (m *MockPublisher) Last(routingKey string) *PublishedEvent {
	events := m.Events(routingKey)
	if len(events) == 0 {
		return nil
	}
	last := events[len(events)-1]
	return &last
}

// AssertEventCount fails t unless exactly expected events were published on routingKey.
func (m *MockPublisher) AssertEventCount(t *testing.T, routingKey string, expected int) {
	t.Helper()

	if got := len(m.Events(routingKey)); got != expected {
		t.Errorf("Expected %d events with routing key '%s', got %d", expected, routingKey, got)
	}
}
