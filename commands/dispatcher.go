package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/metrics"
)

// HandlerFunc handles one command type. The returned error becomes the
// FAILED result; handlers never write partially on failure.
type HandlerFunc func(ctx context.Context, cmd domain.Command) (domain.CommandResult, error)

// Dispatcher routes commands to their handlers. Dispatch is synchronous;
// DispatchAsync enqueues onto one of N shard workers, hashed by aggregate
// key so commands for the same aggregate are handled in order.
type Dispatcher struct {
	metrics *metrics.Metrics
	timeout time.Duration

	mu       sync.Mutex
	handlers map[domain.CommandType]HandlerFunc

	shards  []chan domain.Command
	wg      sync.WaitGroup
	started bool
	closed  bool
}

// NewDispatcher creates a dispatcher. m may be nil.
func NewDispatcher(m *metrics.Metrics, shards, queueDepth int, timeout time.Duration) *Dispatcher {
	if shards <= 0 {
		shards = 8
	}
	if queueDepth <= 0 {
		queueDepth = 256
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	shardChans := make([]chan domain.Command, shards)
	for i := range shardChans {
		shardChans[i] = make(chan domain.Command, queueDepth)
	}

	return &Dispatcher{
		metrics:  m,
		timeout:  timeout,
		handlers: make(map[domain.CommandType]HandlerFunc),
		shards:   shardChans,
	}
}

// Register binds a handler to a command type. Registering the same type
// twice is a wiring error.
func (d *Dispatcher) Register(cmdType domain.CommandType, handler HandlerFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[cmdType]; exists {
		return fmt.Errorf("handler already registered for command type %q", cmdType)
	}
	d.handlers[cmdType] = handler
	return nil
}

// Dispatch handles one command synchronously and always returns a result.
// Handler failures come back as FAILED results with zero events, never as
// a panic or a partial write.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd domain.Command) domain.CommandResult {
	start := time.Now()

	d.mu.Lock()
	handler, ok := d.handlers[cmd.Type]
	d.mu.Unlock()

	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrNoHandler, cmd.Type)
		log.Warn().Str("commandType", string(cmd.Type)).Msg("No handler for command type")
		return d.finish(cmd, domain.FailedResult(cmd, err), start)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result, err := handler(ctx, cmd)
	if err != nil {
		log.Error().Err(err).
			Str("commandID", cmd.ID).
			Str("commandType", string(cmd.Type)).
			Msg("Command failed")
		return d.finish(cmd, domain.FailedResult(cmd, err), start)
	}

	result.CommandID = cmd.ID
	result.Status = domain.StatusCompleted
	return d.finish(cmd, result, start)
}

func (d *Dispatcher) finish(cmd domain.Command, result domain.CommandResult, start time.Time) domain.CommandResult {
	result.ProcessingTime = time.Since(start)

	if d.metrics != nil {
		d.metrics.RecordTimer("command."+string(cmd.Type), result.ProcessingTime)
		if result.Status == domain.StatusCompleted {
			d.metrics.IncrementCounter("command." + string(cmd.Type) + ".completed")
		} else {
			d.metrics.IncrementCounter("command." + string(cmd.Type) + ".failed")
		}
	}
	return result
}

// DispatchAsync enqueues a command for background handling. Returns
// ErrQueueFull when the shard's queue is at capacity rather than blocking
// the caller.
func (d *Dispatcher) DispatchAsync(cmd domain.Command) error {
	// The send must happen under the same lock as the closed check; Stop
	// closes the shard channels, and a send racing that close panics.
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return domain.ErrDispatcherClose
	}

	shard := d.shards[shardIndex(aggregateKey(cmd), len(d.shards))]
	select {
	case shard <- cmd:
		return nil
	default:
		if d.metrics != nil {
			d.metrics.IncrementCounter("command.queue_full")
		}
		return domain.ErrQueueFull
	}
}

// Start launches the shard workers
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return
	}
	d.started = true

	for i, shard := range d.shards {
		d.wg.Add(1)
		go d.worker(ctx, i, shard)
	}
}

// Stop closes the shard queues and waits for in-flight commands to drain
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, shard := range d.shards {
		close(shard)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, shard int, queue <-chan domain.Command) {
	defer d.wg.Done()

	for cmd := range queue {
		result := d.Dispatch(ctx, cmd)
		if result.Status == domain.StatusFailed {
			log.Error().
				Int("shard", shard).
				Str("commandID", cmd.ID).
				Str("commandType", string(cmd.Type)).
				Str("error", result.Error).
				Msg("Async command failed")
		}
	}
}

// aggregateKey extracts the aggregate identity a command targets, so the
// shard hash keeps per-aggregate ordering. Falls back to the command ID
// when the payload carries none.
func aggregateKey(cmd domain.Command) string {
	var ids struct {
		PatientID     string `json:"patient_id"`
		AppointmentID string `json:"appointment_id"`
		NoteID        string `json:"note_id"`
		BillID        string `json:"bill_id"`
	}
	if err := json.Unmarshal(cmd.Data, &ids); err != nil {
		return cmd.ID
	}

	switch cmd.Type {
	case domain.CmdAppointmentCreate, domain.CmdAppointmentReschedule,
		domain.CmdAppointmentCancel, domain.CmdAppointmentComplete:
		if ids.AppointmentID != "" {
			return ids.AppointmentID
		}
	case domain.CmdClinicalNoteAdd, domain.CmdVitalSignsRecord:
		if ids.NoteID != "" {
			return ids.NoteID
		}
	case domain.CmdBillCreate, domain.CmdBillItemAdd,
		domain.CmdBillPay, domain.CmdBillCancel:
		if ids.BillID != "" {
			return ids.BillID
		}
	}
	if ids.PatientID != "" {
		return ids.PatientID
	}
	return cmd.ID
}

func shardIndex(key string, shards int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(shards))
}
