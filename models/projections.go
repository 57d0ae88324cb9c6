package models

import (
	"time"
)

// Projection states
const (
	ProjectionIdle       = "IDLE"
	ProjectionBuilding   = "BUILDING"
	ProjectionRunning    = "RUNNING"
	ProjectionCatchingUp = "CATCHING_UP"
	ProjectionError      = "ERROR"
)

// Projection tracks the progress and health of one read-model builder.
// Created once at startup per type, mutated as events are consumed,
// never deleted.
type Projection struct {
	ID                          uint       `gorm:"primaryKey" json:"id"`
	ProjectionID                string     `gorm:"uniqueIndex" json:"projection_id"`
	Type                        string     `json:"type"`
	Name                        string     `json:"name"`
	State                       string     `json:"state"`
	LastProcessedSequence       int64      `json:"last_processed_sequence"`
	LastProcessedEventID        string     `json:"last_processed_event_id"`
	LastProcessedEventTimestamp *time.Time `json:"last_processed_event_timestamp"`
	ErrorMessage                string     `json:"error_message"`
	Version                     int        `json:"version"`
	CreatedAt                   time.Time  `json:"created_at"`
	UpdatedAt                   time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (Projection) TableName() string {
	return "projections"
}

// ProjectionFoldError is the dead-letter record for a single event that
// failed to fold. Processing continues past it; a scheduled sweep retries
// unresolved entries up to the configured limit.
type ProjectionFoldError struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProjectionID string    `gorm:"index" json:"projection_id"`
	EventID      string    `gorm:"index" json:"event_id"`
	ErrorMessage string    `json:"error_message"`
	ErrorDetails string    `json:"error_details"`
	RetryCount   int       `json:"retry_count"`
	Resolved     bool      `gorm:"index" json:"resolved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (ProjectionFoldError) TableName() string {
	return "projection_errors"
}
