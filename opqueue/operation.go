package opqueue

import (
	"encoding/json"
	"time"
)

// Operation is one unit of unresolved work: an outbound call that exhausted
// its retries and was persisted for later replay.
type Operation struct {
	// ID uniquely identifies the operation.
	ID string `json:"operation_id"`

	// Context labels the call site, e.g. "instagram_publish".
	Context string `json:"context"`

	// Payload holds whatever the call site needs to replay the call.
	Payload map[string]any `json:"payload"`

	// CreatedAt is when the operation was queued.
	CreatedAt time.Time `json:"created_at"`

	// RetryCount counts replay attempts made from the queue.
	RetryCount int `json:"retry_count"`

	// LastAttempt is the time of the most recent replay, nil before the
	// first one.
	LastAttempt *time.Time `json:"last_attempt"`

	// LastError is the most recent replay error, empty before the first
	// failure.
	LastError string `json:"last_error"`
}

func (op Operation) marshal() ([]byte, error) {
	return json.Marshal(op)
}

func unmarshalOperation(data []byte) (Operation, error) {
	var op Operation
	err := json.Unmarshal(data, &op)
	return op, err
}
