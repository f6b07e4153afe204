package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// MaxRetries is how many failed dispatches an event survives before it is
// parked as failed.
const MaxRetries = 5

// Event is one row/document of the transactional outbox.
type Event struct {
	ID            string
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	RetryCount    int
	LastError     *string
}

// NewEvent builds a pending event ready to be stored next to its aggregate.
func NewEvent(id, aggregateType, aggregateID, eventType string, payload []byte, traceparent string) Event {
	return Event{
		ID:            id,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       payload,
		Headers:       map[string]string{},
		Traceparent:   traceparent,
		CreatedAt:     time.Now().UTC(),
		Status:        StatusPending,
	}
}
