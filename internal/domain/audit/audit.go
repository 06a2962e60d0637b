// Package audit defines the audit-trail contract for administrative
// mutations. The postgres implementation lives in infrastructure/storage.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"visualeyes/internal/core/id"
)

// Action is the type of audited operation.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDeactivate Action = "deactivate"
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionSuspend    Action = "suspend"
)

// Entry is a single audit record. Changes holds the mutation payload as
// JSON; the store may compress it at rest.
type Entry struct {
	ID         id.ID           `db:"id"`
	EntityType string          `db:"entity_type"`
	EntityID   id.ID           `db:"entity_id"`
	Action     Action          `db:"action"`
	ActorID    string          `db:"actor_id"`
	Changes    json.RawMessage `db:"changes"`
	CreatedAt  time.Time       `db:"created_at"`
}

// Recorder appends audit entries. Recording failures are logged by
// callers, never surfaced to the request.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// History reads back an entity's trail, newest first.
type History interface {
	EntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// NewEntry builds an entry with the payload marshaled to JSON. Marshal
// failures degrade to a nil payload rather than blocking the mutation.
func NewEntry(entityType string, entityID id.ID, action Action, actorID id.ID, changes any) Entry {
	payload, err := json.Marshal(changes)
	if err != nil {
		payload = nil
	}
	return Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID.String(),
		Changes:    payload,
		CreatedAt:  time.Now().UTC(),
	}
}
