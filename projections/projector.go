package projections

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/eventstore"
	"example.com/hospital/services/emr/metrics"
	"example.com/hospital/services/emr/models"
	"example.com/hospital/services/emr/repository"
)

// DomainProjector folds events of one domain into its read model. Folds
// must be deterministic (same event + same prior row yields the same next
// row) and idempotent against the row's last_event_version watermark, so
// replaying the full log reproduces incremental processing exactly.
type DomainProjector interface {
	ID() string
	Type() string
	Name() string
	EventTypes() []string
	Fold(ctx context.Context, event domain.Event) error
	Truncate(ctx context.Context) error
}

// Projector owns all registered domain projectors, their progress rows and
// the dead-letter/circuit-breaker machinery around per-event failures.
type Projector struct {
	store            eventstore.EventStore
	repo             repository.ProjectionRepository
	metrics          *metrics.Metrics
	batchSize        int
	maxRetries       int
	breakerThreshold int

	mu          sync.Mutex
	projectors  map[string]DomainProjector
	byEventType map[string][]DomainProjector
	failures    map[string]int
	paused      map[string]bool
}

// NewProjector creates a projector. m may be nil.
func NewProjector(store eventstore.EventStore, repo repository.ProjectionRepository, m *metrics.Metrics, batchSize, maxRetries, breakerThreshold int) *Projector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if breakerThreshold <= 0 {
		breakerThreshold = 10
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Projector{
		store:            store,
		repo:             repo,
		metrics:          m,
		batchSize:        batchSize,
		maxRetries:       maxRetries,
		breakerThreshold: breakerThreshold,
		projectors:       make(map[string]DomainProjector),
		byEventType:      make(map[string][]DomainProjector),
		failures:         make(map[string]int),
		paused:           make(map[string]bool),
	}
}

// Register adds a domain projector. Registering the same ID twice is a
// wiring error.
func (p *Projector) Register(dp DomainProjector) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.projectors[dp.ID()]; exists {
		return fmt.Errorf("projector %q already registered", dp.ID())
	}
	p.projectors[dp.ID()] = dp
	for _, eventType := range dp.EventTypes() {
		p.byEventType[eventType] = append(p.byEventType[eventType], dp)
	}
	return nil
}

// InitProjections ensures a bookkeeping row exists for every registered
// projector. Called once at worker startup.
func (p *Projector) InitProjections(ctx context.Context) error {
	p.mu.Lock()
	projectors := make([]DomainProjector, 0, len(p.projectors))
	for _, dp := range p.projectors {
		projectors = append(projectors, dp)
	}
	p.mu.Unlock()

	for _, dp := range projectors {
		_, err := p.repo.Get(ctx, dp.ID())
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		row := &models.Projection{
			ProjectionID: dp.ID(),
			Type:         dp.Type(),
			Name:         dp.Name(),
			State:        models.ProjectionIdle,
			Version:      1,
		}
		if err := p.repo.Save(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// ProcessEvent routes one event to every projector registered for its
// type. A fold failure is dead-lettered and does not block the remaining
// projectors or subsequent events.
func (p *Projector) ProcessEvent(ctx context.Context, event domain.Event) error {
	p.mu.Lock()
	targets := make([]DomainProjector, len(p.byEventType[event.Type]))
	copy(targets, p.byEventType[event.Type])
	p.mu.Unlock()

	for _, dp := range targets {
		p.apply(ctx, dp, event)
	}
	return nil
}

// apply folds one event into one projection, handling the failure path.
func (p *Projector) apply(ctx context.Context, dp DomainProjector, event domain.Event) {
	p.mu.Lock()
	if p.paused[dp.ID()] {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if err := dp.Fold(ctx, event); err != nil {
		p.handleFoldError(ctx, dp, event, err)
		return
	}

	p.mu.Lock()
	p.failures[dp.ID()] = 0
	p.mu.Unlock()

	p.advanceProgress(ctx, dp.ID(), event)
}

func (p *Projector) handleFoldError(ctx context.Context, dp DomainProjector, event domain.Event, foldErr error) {
	log.Error().Err(foldErr).
		Str("projection", dp.ID()).
		Str("eventID", event.ID).
		Str("eventType", event.Type).
		Msg("Failed to fold event")

	if p.metrics != nil {
		p.metrics.IncrementCounter("projection." + dp.ID() + ".fold_errors")
	}

	deadLetter := &models.ProjectionFoldError{
		ProjectionID: dp.ID(),
		EventID:      event.ID,
		ErrorMessage: foldErr.Error(),
		ErrorDetails: fmt.Sprintf("event_type=%s aggregate_id=%s version=%d", event.Type, event.AggregateID, event.Version),
	}
	if err := p.repo.RecordFoldError(ctx, deadLetter); err != nil {
		log.Error().Err(err).Str("eventID", event.ID).Msg("Failed to record fold error")
	}

	p.mu.Lock()
	p.failures[dp.ID()]++
	tripped := p.failures[dp.ID()] >= p.breakerThreshold
	if tripped {
		p.paused[dp.ID()] = true
	}
	p.mu.Unlock()

	if tripped {
		log.Error().
			Str("projection", dp.ID()).
			Int("consecutiveFailures", p.breakerThreshold).
			Msg("Circuit breaker tripped, pausing projection")
		p.setState(ctx, dp.ID(), models.ProjectionError, foldErr.Error())
		if p.metrics != nil {
			p.metrics.SetHealth("projection."+dp.ID(), false)
		}
	}
}

// advanceProgress records the last processed event on the projection row.
// The watermark is the event's store sequence and only ever moves forward,
// so a dead-letter retry of an old event cannot rewind it. Read-model
// writes and this watermark are not one transaction: a crash in between
// re-delivers the event, which idempotent folds absorb.
func (p *Projector) advanceProgress(ctx context.Context, projectionID string, event domain.Event) {
	row, err := p.repo.Get(ctx, projectionID)
	if err != nil {
		log.Error().Err(err).Str("projection", projectionID).Msg("Failed to load projection row")
		return
	}
	if event.Sequence <= row.LastProcessedSequence {
		return
	}

	timestamp := event.Timestamp
	row.LastProcessedSequence = event.Sequence
	row.LastProcessedEventID = event.ID
	row.LastProcessedEventTimestamp = &timestamp
	if row.State == models.ProjectionIdle {
		row.State = models.ProjectionRunning
	}
	if err := p.repo.Save(ctx, row); err != nil {
		log.Error().Err(err).Str("projection", projectionID).Msg("Failed to advance projection progress")
	}
}

func (p *Projector) setState(ctx context.Context, projectionID, state, errorMessage string) {
	row, err := p.repo.Get(ctx, projectionID)
	if err != nil {
		log.Error().Err(err).Str("projection", projectionID).Msg("Failed to load projection row")
		return
	}
	row.State = state
	row.ErrorMessage = errorMessage
	if err := p.repo.Save(ctx, row); err != nil {
		log.Error().Err(err).Str("projection", projectionID).Msg("Failed to save projection state")
	}
}

// StartProjection resumes a projection from its sequence watermark (or the
// start of the log when it never ran), folding everything it missed. It
// also resets the circuit breaker, so it doubles as the operator resume
// knob.
func (p *Projector) StartProjection(ctx context.Context, projectionID string) error {
	dp, err := p.get(projectionID)
	if err != nil {
		return err
	}

	row, err := p.repo.Get(ctx, projectionID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.paused[projectionID] = false
	p.failures[projectionID] = 0
	p.mu.Unlock()

	p.setState(ctx, projectionID, models.ProjectionBuilding, "")
	if err := p.replay(ctx, dp, row.LastProcessedSequence); err != nil {
		p.setState(ctx, projectionID, models.ProjectionError, err.Error())
		return err
	}
	p.setState(ctx, projectionID, models.ProjectionRunning, "")

	if p.metrics != nil {
		p.metrics.SetHealth("projection."+projectionID, true)
	}
	return nil
}

// RebuildProjection truncates the projection's read model and replays the
// full event log in timestamp order. Because folds are deterministic, the
// result is identical to what incremental processing produced.
func (p *Projector) RebuildProjection(ctx context.Context, projectionID string) error {
	dp, err := p.get(projectionID)
	if err != nil {
		return err
	}

	log.Info().Str("projection", projectionID).Msg("Rebuilding projection")

	p.mu.Lock()
	p.paused[projectionID] = false
	p.failures[projectionID] = 0
	p.mu.Unlock()

	p.setState(ctx, projectionID, models.ProjectionBuilding, "")

	if err := dp.Truncate(ctx); err != nil {
		p.setState(ctx, projectionID, models.ProjectionError, err.Error())
		return fmt.Errorf("failed to truncate read model: %w", err)
	}

	row, err := p.repo.Get(ctx, projectionID)
	if err != nil {
		return err
	}
	row.LastProcessedSequence = 0
	row.LastProcessedEventID = ""
	row.LastProcessedEventTimestamp = nil
	row.Version++
	if err := p.repo.Save(ctx, row); err != nil {
		return err
	}

	if err := p.replay(ctx, dp, 0); err != nil {
		p.setState(ctx, projectionID, models.ProjectionError, err.Error())
		return err
	}

	p.setState(ctx, projectionID, models.ProjectionRunning, "")
	log.Info().Str("projection", projectionID).Msg("Projection rebuilt")
	return nil
}

// CatchUp folds events newer than the projection's watermark, moving the
// projection through CATCHING_UP back to RUNNING. Used by the poll loop as
// the recovery path for lost pub/sub notifications.
func (p *Projector) CatchUp(ctx context.Context, projectionID string) (int, error) {
	dp, err := p.get(projectionID)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	if p.paused[projectionID] {
		p.mu.Unlock()
		return 0, nil
	}
	p.mu.Unlock()

	row, err := p.repo.Get(ctx, projectionID)
	if err != nil {
		return 0, err
	}
	if row.State != models.ProjectionRunning && row.State != models.ProjectionIdle && row.State != models.ProjectionCatchingUp {
		return 0, nil
	}

	events, err := p.store.GetEventsByTypesAfter(ctx, dp.EventTypes(), row.LastProcessedSequence, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	if len(events) == p.batchSize {
		p.setState(ctx, projectionID, models.ProjectionCatchingUp, "")
	}
	for _, event := range events {
		p.apply(ctx, dp, event)
	}
	if len(events) == p.batchSize {
		p.setState(ctx, projectionID, models.ProjectionRunning, "")
	}
	return len(events), nil
}

// RetryFailedEvents re-folds unresolved dead-letters, bounded by the retry
// limit. Permanent failures stay in projection_errors for inspection.
func (p *Projector) RetryFailedEvents(ctx context.Context, limit int) error {
	deadLetters, err := p.repo.UnresolvedErrors(ctx, p.maxRetries, limit)
	if err != nil {
		return err
	}

	for _, deadLetter := range deadLetters {
		dp, err := p.get(deadLetter.ProjectionID)
		if err != nil {
			continue
		}

		event, err := p.store.GetEventByID(ctx, deadLetter.EventID)
		if err != nil {
			log.Error().Err(err).Str("eventID", deadLetter.EventID).Msg("Dead-lettered event not found in store")
			continue
		}

		if err := dp.Fold(ctx, event); err != nil {
			if err := p.repo.IncrementErrorRetry(ctx, deadLetter.ID); err != nil {
				log.Error().Err(err).Uint("id", deadLetter.ID).Msg("Failed to bump dead-letter retry count")
			}
			continue
		}

		if err := p.repo.MarkErrorResolved(ctx, deadLetter.ID); err != nil {
			log.Error().Err(err).Uint("id", deadLetter.ID).Msg("Failed to resolve dead-letter")
			continue
		}
		p.advanceProgress(ctx, deadLetter.ProjectionID, event)
		log.Info().
			Str("projection", deadLetter.ProjectionID).
			Str("eventID", deadLetter.EventID).
			Msg("Dead-lettered event recovered")
	}
	return nil
}

// ProjectionIDs returns the IDs of all registered projectors.
func (p *Projector) ProjectionIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.projectors))
	for id := range p.projectors {
		ids = append(ids, id)
	}
	return ids
}

// ListProjections returns the bookkeeping rows for all projections.
func (p *Projector) ListProjections(ctx context.Context) ([]models.Projection, error) {
	return p.repo.ListAll(ctx)
}

func (p *Projector) get(projectionID string) (DomainProjector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dp, ok := p.projectors[projectionID]
	if !ok {
		return nil, fmt.Errorf("unknown projection %q", projectionID)
	}
	return dp, nil
}

func (p *Projector) replay(ctx context.Context, dp DomainProjector, afterSequence int64) error {
	for {
		events, err := p.store.GetEventsByTypesAfter(ctx, dp.EventTypes(), afterSequence, p.batchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch events for replay: %w", err)
		}
		if len(events) == 0 {
			return nil
		}
		for _, event := range events {
			p.apply(ctx, dp, event)
			afterSequence = event.Sequence
		}
		if len(events) < p.batchSize {
			return nil
		}
	}
}
