package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/eventstore"
)

// appendEvent writes one event with optimistic concurrency. On a version
// conflict it re-reads the aggregate's current version and retries, up to
// maxRetries attempts. The command's identity metadata is stamped onto the
// event so the log carries who did what.
func appendEvent(
	ctx context.Context,
	store eventstore.EventStore,
	cmd domain.Command,
	eventType, aggregateType, aggregateID string,
	payload interface{},
	maxRetries int,
) (domain.Event, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		version, err := store.CurrentVersion(ctx, aggregateID)
		if err != nil {
			return domain.Event{}, fmt.Errorf("failed to read aggregate version: %w", err)
		}

		event, err := domain.NewEvent(eventType, aggregateType, aggregateID, version+1, payload)
		if err != nil {
			return domain.Event{}, fmt.Errorf("failed to build event: %w", err)
		}
		event.UserID = cmd.UserID
		event.CorrelationID = cmd.CorrelationID
		event.Metadata = cmd.Metadata

		stored, err := store.Append(ctx, event, version)
		if err == nil {
			return stored, nil
		}
		if !eventstore.IsConcurrencyError(err) {
			return domain.Event{}, err
		}

		lastErr = err
		log.Warn().
			Str("aggregateID", aggregateID).
			Str("eventType", eventType).
			Int("attempt", attempt+1).
			Msg("Version conflict on append, retrying")
	}
	return domain.Event{}, fmt.Errorf("append retries exhausted for aggregate %s: %w", aggregateID, lastErr)
}

// singleEventResult is the common success shape for commands producing one event
func singleEventResult(cmd domain.Command, event domain.Event) domain.CommandResult {
	return domain.CommandResult{
		CommandID: cmd.ID,
		Status:    domain.StatusCompleted,
		Result: map[string]interface{}{
			"aggregate_id": event.AggregateID,
			"version":      event.Version,
			"event_id":     event.ID,
		},
		Events: []domain.Event{event},
	}
}
