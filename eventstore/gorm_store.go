package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/models"
)

// GormEventStore implements EventStore on Postgres via GORM. The database
// must be opened with TranslateError so unique-index violations surface as
// gorm.ErrDuplicatedKey.
type GormEventStore struct {
	db       *gorm.DB
	notifier Notifier
}

// NewGormEventStore creates a new GORM event store. notifier may be nil.
func NewGormEventStore(db *gorm.DB, notifier Notifier) *GormEventStore {
	return &GormEventStore{db: db, notifier: notifier}
}

// Append writes one event inside a transaction. Version assignment and the
// write happen in the same statement scope, guarded by the unique
// (aggregate_id, version) index, so two concurrent appends at the same
// version cannot both commit.
func (s *GormEventStore) Append(ctx context.Context, event domain.Event, expectedVersion int) (domain.Event, error) {
	var dbEvent models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		version := expectedVersion + 1
		if expectedVersion < 0 {
			current, err := currentVersionTx(tx, event.AggregateID)
			if err != nil {
				return err
			}
			version = current + 1
		}
		event.Version = version

		var err error
		dbEvent, err = toDBEvent(event)
		if err != nil {
			return err
		}

		if err := tx.Create(&dbEvent).Error; err != nil {
			if isDuplicateKey(err) {
				return &ConcurrencyError{AggregateID: event.AggregateID, Version: version}
			}
			return fmt.Errorf("failed to save event: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	event.Sequence = int64(dbEvent.ID)

	log.Info().
		Str("aggregateID", event.AggregateID).
		Str("eventType", event.Type).
		Int("version", event.Version).
		Msg("Event appended")

	// Notification is decoupled from durability: a lost publish is
	// recovered by the projector's poll loop.
	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, event); err != nil {
			log.Warn().Err(err).Str("eventID", event.ID).Msg("Failed to publish event notification")
		}
	}

	return event, nil
}

// GetEvents gets all events for an aggregate in version order
func (s *GormEventStore) GetEvents(ctx context.Context, aggregateID string) ([]domain.Event, error) {
	var dbEvents []models.Event
	if err := s.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("version ASC").
		Find(&dbEvents).Error; err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return toDomainEvents(dbEvents)
}

// GetEventByID gets a single event by its unique ID
func (s *GormEventStore) GetEventByID(ctx context.Context, eventID string) (domain.Event, error) {
	var dbEvent models.Event
	if err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&dbEvent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Event{}, ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("failed to get event: %w", err)
	}
	return toDomainEvent(dbEvent)
}

// GetEventsByType gets all events of one type in timestamp order
func (s *GormEventStore) GetEventsByType(ctx context.Context, eventType string) ([]domain.Event, error) {
	var dbEvents []models.Event
	if err := s.db.WithContext(ctx).
		Where("event_type = ?", eventType).
		Order("timestamp ASC").
		Find(&dbEvents).Error; err != nil {
		return nil, fmt.Errorf("failed to get events by type: %w", err)
	}
	return toDomainEvents(dbEvents)
}

// GetEventsByTimeRange gets events in [start, end) in timestamp order
func (s *GormEventStore) GetEventsByTimeRange(ctx context.Context, start, end time.Time) ([]domain.Event, error) {
	var dbEvents []models.Event
	if err := s.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Order("timestamp ASC").
		Find(&dbEvents).Error; err != nil {
		return nil, fmt.Errorf("failed to get events by time range: %w", err)
	}
	return toDomainEvents(dbEvents)
}

// GetEventsByTypesAfter gets up to limit events of the given types with a
// sequence strictly greater than afterSequence, in sequence order
func (s *GormEventStore) GetEventsByTypesAfter(ctx context.Context, types []string, afterSequence int64, limit int) ([]domain.Event, error) {
	var dbEvents []models.Event
	if err := s.db.WithContext(ctx).
		Where("event_type IN ? AND id > ?", types, afterSequence).
		Order("id ASC").
		Limit(limit).
		Find(&dbEvents).Error; err != nil {
		return nil, fmt.Errorf("failed to get events after sequence: %w", err)
	}
	return toDomainEvents(dbEvents)
}

// CurrentVersion returns the highest committed version for an aggregate
func (s *GormEventStore) CurrentVersion(ctx context.Context, aggregateID string) (int, error) {
	return currentVersionTx(s.db.WithContext(ctx), aggregateID)
}

func currentVersionTx(tx *gorm.DB, aggregateID string) (int, error) {
	var version int
	if err := tx.Model(&models.Event{}).
		Where("aggregate_id = ?", aggregateID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error; err != nil {
		return 0, fmt.Errorf("failed to read current version: %w", err)
	}
	return version, nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func toDBEvent(event domain.Event) (models.Event, error) {
	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return models.Event{}, fmt.Errorf("failed to marshal event metadata: %w", err)
		}
	}

	return models.Event{
		EventID:       event.ID,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		EventType:     event.Type,
		Data:          event.Data,
		Metadata:      metadata,
		Version:       event.Version,
		SchemaVersion: event.SchemaVersion,
		Timestamp:     event.Timestamp,
		UserID:        event.UserID,
		CorrelationID: event.CorrelationID,
	}, nil
}

func toDomainEvent(dbEvent models.Event) (domain.Event, error) {
	var metadata map[string]string
	if len(dbEvent.Metadata) > 0 {
		if err := json.Unmarshal(dbEvent.Metadata, &metadata); err != nil {
			return domain.Event{}, fmt.Errorf("failed to unmarshal event metadata: %w", err)
		}
	}

	return domain.Event{
		ID:            dbEvent.EventID,
		Sequence:      int64(dbEvent.ID),
		AggregateID:   dbEvent.AggregateID,
		AggregateType: dbEvent.AggregateType,
		Type:          dbEvent.EventType,
		Version:       dbEvent.Version,
		SchemaVersion: dbEvent.SchemaVersion,
		Timestamp:     dbEvent.Timestamp,
		UserID:        dbEvent.UserID,
		CorrelationID: dbEvent.CorrelationID,
		Metadata:      metadata,
		Data:          dbEvent.Data,
	}, nil
}

func toDomainEvents(dbEvents []models.Event) ([]domain.Event, error) {
	events := make([]domain.Event, len(dbEvents))
	for i, dbEvent := range dbEvents {
		event, err := toDomainEvent(dbEvent)
		if err != nil {
			return nil, err
		}
		events[i] = event
	}
	return events, nil
}
