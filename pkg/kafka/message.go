package kafka

import (
	"encoding/json"
	"time"

	"github.com/uruley/4HorsemenDFS/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// ParseSlateRequest parses the message value as a slate resolution request.
// Shape validation is the handler's job; this only decodes.
func (m *IncomingMessage) ParseSlateRequest() (*models.ResolveSlateRequest, error) {
	var req models.ResolveSlateRequest
	if err := json.Unmarshal(m.Value, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// EventType returns the event_type header, if any.
func (m *IncomingMessage) EventType() string {
	return m.Headers["event_type"]
}
