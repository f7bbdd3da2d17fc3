// Package mutation defines the durable record of mutating requests that
// failed while offline and await background replay.
package mutation

import (
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// State tracks a pending mutation through its lifecycle.
type State string

const (
	// StatePending awaits replay.
	StatePending State = "pending"
	// StateAbandoned exhausted its retry budget. Abandoned records are
	// retained and surfaced, never silently dropped.
	StateAbandoned State = "abandoned"
)

// OperationIDHeader carries the client-assigned operation identity.
const OperationIDHeader = "X-Operation-ID"

// Pending is one queued mutating operation. Replay preserves enqueue order;
// a failed replay keeps its position and increments Retries.
type Pending struct {
	ID         string      `json:"id" db:"id"`
	OpKey      string      `json:"op_key" db:"op_key"`
	Method     string      `json:"method" db:"method"`
	Endpoint   string      `json:"endpoint" db:"endpoint"`
	Header     http.Header `json:"header" db:"-"`
	Body       []byte      `json:"body" db:"body"`
	EnqueuedAt time.Time   `json:"enqueued_at" db:"enqueued_at"`
	Retries    int         `json:"retries" db:"retries"`
	State      State       `json:"state" db:"state"`
}

// OperationKey derives the operation identity used to deduplicate queued
// mutations against later successful submissions. The X-Operation-ID header
// wins; otherwise an operationId field in a JSON body is used. An empty key
// disables deduplication for the request.
func OperationKey(header http.Header, body []byte) string {
	if header != nil {
		if id := header.Get(OperationIDHeader); id != "" {
			return id
		}
	}
	if len(body) > 0 {
		if id := gjson.GetBytes(body, "operationId"); id.Exists() {
			return id.String()
		}
	}
	return ""
}
