// Package events emits best-effort ownership and ingest events to Kafka.
// Emission is fire-and-forget; the request path never depends on it.
package events

import (
	"context"
	"time"
)

// Event types emitted by the services.
const (
	TypeTagClaimed    = "tag.claimed"
	TypeTagUnclaimed  = "tag.unclaimed"
	TypeTagShared     = "tag.shared"
	TypeTagUnshared   = "tag.unshared"
	TypeBatchIngested = "batch.ingested"
)

// Event is one ownership or ingest occurrence.
type Event struct {
	// ID uniquely identifies the event so consumers can deduplicate
	// redeliveries. Assigned on emit when left empty.
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	TagID      string    `json:"tag_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	GranteeID  string    `json:"grantee_id,omitempty"`
	GatewayMAC string    `json:"gateway_mac,omitempty"`
	Count      int       `json:"count,omitempty"`
	At         time.Time `json:"at"`
}

// Emitter sends events to a broker. Implementations must be safe for
// concurrent use.
type Emitter interface {
	Emit(ctx context.Context, event *Event) error
}
