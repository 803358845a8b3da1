// Package audit models write-once records of changes to top-level entities.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Action is the kind of change recorded
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// IsValid returns true if the action is known
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Entry is what callers hand to the audit trail.
// OldValue and NewValue are any JSON-marshalable snapshot, or nil.
type Entry struct {
	TenantID   uuid.UUID
	UserID     uuid.UUID
	Action     Action
	EntityType string
	EntityID   uuid.UUID
	OldValue   any
	NewValue   any
}

// LogEntry is a stored audit record
type LogEntry struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	UserID     uuid.UUID
	Action     Action
	EntityType string
	EntityID   uuid.UUID
	OldValue   json.RawMessage
	NewValue   json.RawMessage
	CreatedAt  time.Time
}

// NewLogEntry validates e and snapshots its values
func NewLogEntry(e Entry) (*LogEntry, error) {
	if e.TenantID == uuid.Nil {
		return nil, shared.ErrContextMissing
	}
	if !e.Action.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Invalid audit action")
	}
	if e.EntityType == "" || e.EntityID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Entity type and ID are required")
	}

	oldValue, err := snapshot(e.OldValue)
	if err != nil {
		return nil, err
	}
	newValue, err := snapshot(e.NewValue)
	if err != nil {
		return nil, err
	}

	return &LogEntry{
		ID:         uuid.New(),
		TenantID:   e.TenantID,
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Audit snapshot is not serializable: "+err.Error())
	}
	return data, nil
}

// Filter narrows audit log listings
type Filter struct {
	shared.Filter
	EntityType string
	EntityID   *uuid.UUID
	Action     Action
}

// Repository persists audit entries. Entries are never updated.
type Repository interface {
	Create(ctx context.Context, entry *LogEntry) error
	FindAll(ctx context.Context, filter Filter) ([]LogEntry, error)
}
