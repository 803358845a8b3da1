package models

import (
	"encoding/json"
	"time"

	"github.com/erp/stockledger/internal/domain/audit"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLogModel is the persistence model for an audit log entry
type AuditLogModel struct {
	ID         uuid.UUID    `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID    `gorm:"type:uuid;not null;index:idx_audit_log_entity,priority:1"`
	UserID     *uuid.UUID   `gorm:"type:uuid"`
	Action     audit.Action `gorm:"type:varchar(10);not null"`
	EntityType string       `gorm:"type:varchar(50);not null;index:idx_audit_log_entity,priority:2"`
	EntityID   uuid.UUID    `gorm:"type:uuid;not null;index:idx_audit_log_entity,priority:3"`
	OldValue   datatypes.JSON
	NewValue   datatypes.JSON
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain LogEntry
func (m *AuditLogModel) ToDomain() *audit.LogEntry {
	entry := &audit.LogEntry{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		CreatedAt:  m.CreatedAt,
	}
	if m.UserID != nil {
		entry.UserID = *m.UserID
	}
	if len(m.OldValue) > 0 {
		entry.OldValue = json.RawMessage(m.OldValue)
	}
	if len(m.NewValue) > 0 {
		entry.NewValue = json.RawMessage(m.NewValue)
	}
	return entry
}

// AuditLogModelFromDomain creates a new persistence model from a domain LogEntry
func AuditLogModelFromDomain(e *audit.LogEntry) *AuditLogModel {
	m := &AuditLogModel{
		ID:         e.ID,
		TenantID:   e.TenantID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		CreatedAt:  e.CreatedAt,
	}
	if e.UserID != uuid.Nil {
		userID := e.UserID
		m.UserID = &userID
	}
	if len(e.OldValue) > 0 {
		m.OldValue = datatypes.JSON(e.OldValue)
	}
	if len(e.NewValue) > 0 {
		m.NewValue = datatypes.JSON(e.NewValue)
	}
	return m
}
