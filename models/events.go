package models

import (
	"time"
)

// Event represents a domain event in the database. The composite unique
// index on (aggregate_id, version) is what makes version assignment safe
// under concurrent appends: the second writer of the same version hits a
// duplicate-key error instead of corrupting the stream.
type Event struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EventID       string    `gorm:"uniqueIndex" json:"event_id"`
	AggregateID   string    `gorm:"index;uniqueIndex:idx_events_aggregate_version" json:"aggregate_id"`
	AggregateType string    `gorm:"index" json:"aggregate_type"`
	EventType     string    `gorm:"index" json:"event_type"`
	Data          []byte    `json:"data"`
	Metadata      []byte    `json:"metadata"`
	Version       int       `gorm:"uniqueIndex:idx_events_aggregate_version" json:"version"`
	SchemaVersion int       `json:"schema_version"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`
	UserID        string    `json:"user_id"`
	CorrelationID string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName overrides the table name
func (Event) TableName() string {
	return "events"
}
