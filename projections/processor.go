package projections

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/domain"
)

// EventSubscriber delivers events published after append. Implemented by
// the Redis event bus. The channel closes when the subscription ends.
type EventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.Event, error)
}

// EventProcessor drives the projections. Events arrive on two paths: the
// subscription channel delivers them with low latency, and the poll ticker
// catches up from the event log whenever a notification was lost. Both
// paths converge on the same idempotent folds, so a double delivery is
// harmless.
type EventProcessor struct {
	projector    *Projector
	subscriber   EventSubscriber
	pollInterval time.Duration
	running      bool
	mutex        sync.Mutex
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewEventProcessor creates an event processor. subscriber may be nil, in
// which case the poll loop carries all traffic.
func NewEventProcessor(projector *Projector, subscriber EventSubscriber, pollInterval time.Duration) *EventProcessor {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &EventProcessor{
		projector:    projector,
		subscriber:   subscriber,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start starts the event processor
func (p *EventProcessor) Start(ctx context.Context) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.running {
		return
	}

	p.running = true
	go p.processEvents(ctx)
}

// Stop stops the event processor and waits for the loop to exit
func (p *EventProcessor) Stop() {
	p.mutex.Lock()
	if !p.running {
		p.mutex.Unlock()
		return
	}
	p.running = false
	p.mutex.Unlock()

	close(p.stopChan)
	<-p.doneChan
}

// processEvents runs the subscription and poll loop
func (p *EventProcessor) processEvents(ctx context.Context) {
	defer close(p.doneChan)

	var eventCh <-chan domain.Event
	if p.subscriber != nil {
		ch, err := p.subscriber.Subscribe(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to subscribe to event bus, polling only")
		} else {
			eventCh = ch
		}
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-eventCh:
			if !ok {
				log.Warn().Msg("Event subscription closed, polling only")
				eventCh = nil
				continue
			}
			if err := p.projector.ProcessEvent(ctx, event); err != nil {
				log.Error().Err(err).Str("eventID", event.ID).Msg("Failed to process event")
			}
		case <-ticker.C:
			p.catchUpAll(ctx)
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// catchUpAll runs one catch-up round over every registered projection
func (p *EventProcessor) catchUpAll(ctx context.Context) {
	for _, projectionID := range p.projector.ProjectionIDs() {
		processed, err := p.projector.CatchUp(ctx, projectionID)
		if err != nil {
			log.Error().Err(err).Str("projection", projectionID).Msg("Catch-up failed")
			continue
		}
		if processed > 0 {
			log.Info().Str("projection", projectionID).Int("events", processed).Msg("Caught up projection")
		}
	}
}
