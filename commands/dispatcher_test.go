package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/metrics"
)

func TestDispatchUnknownCommandType(t *testing.T) {
	dispatcher := NewDispatcher(metrics.NewMetrics(), 2, 8, time.Second)

	cmd, err := domain.NewCommand("mystery_command", map[string]string{})
	require.NoError(t, err)

	result := dispatcher.Dispatch(context.Background(), cmd)
	require.Equal(t, domain.StatusFailed, result.Status)
	require.True(t, result.Rejected)
	require.Empty(t, result.Events)
	require.Contains(t, result.Error, "mystery_command")
}

func TestRegisterDuplicateHandler(t *testing.T) {
	dispatcher := NewDispatcher(nil, 2, 8, time.Second)

	handler := func(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
		return domain.CommandResult{}, nil
	}

	require.NoError(t, dispatcher.Register(domain.CmdPatientRegister, handler))
	require.Error(t, dispatcher.Register(domain.CmdPatientRegister, handler))
}

func TestDispatchHandlerErrorBecomesFailedResult(t *testing.T) {
	dispatcher := NewDispatcher(nil, 2, 8, time.Second)

	require.NoError(t, dispatcher.Register(domain.CmdPatientRegister, func(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
		return domain.CommandResult{}, domain.NewValidationError("first_name", "is required")
	}))

	cmd, err := domain.NewCommand(domain.CmdPatientRegister, map[string]string{})
	require.NoError(t, err)

	result := dispatcher.Dispatch(context.Background(), cmd)
	require.Equal(t, domain.StatusFailed, result.Status)
	require.True(t, result.Rejected)
	require.Empty(t, result.Events)
}

func TestDispatchAsyncDrainsOnStop(t *testing.T) {
	dispatcher := NewDispatcher(nil, 2, 8, time.Second)

	processed := make(chan string, 16)
	require.NoError(t, dispatcher.Register(domain.CmdPatientRegister, func(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
		processed <- cmd.ID
		return domain.CommandResult{}, nil
	}))

	dispatcher.Start(context.Background())

	ids := make(map[string]bool)
	for i := 0; i < 5; i++ {
		cmd, err := domain.NewCommand(domain.CmdPatientRegister, map[string]string{"patient_id": "patient-1"})
		require.NoError(t, err)
		ids[cmd.ID] = true
		require.NoError(t, dispatcher.DispatchAsync(cmd))
	}

	dispatcher.Stop()
	close(processed)

	for id := range processed {
		delete(ids, id)
	}
	require.Empty(t, ids, "all queued commands should be handled before Stop returns")
}

func TestDispatchAsyncAfterStop(t *testing.T) {
	dispatcher := NewDispatcher(nil, 2, 8, time.Second)
	dispatcher.Start(context.Background())
	dispatcher.Stop()

	cmd, err := domain.NewCommand(domain.CmdPatientRegister, map[string]string{})
	require.NoError(t, err)
	require.ErrorIs(t, dispatcher.DispatchAsync(cmd), domain.ErrDispatcherClose)
}

func TestDispatchAsyncRacingStop(t *testing.T) {
	dispatcher := NewDispatcher(nil, 4, 8, time.Second)
	require.NoError(t, dispatcher.Register(domain.CmdPatientRegister, func(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
		return domain.CommandResult{}, nil
	}))
	dispatcher.Start(context.Background())

	// Enqueue from several goroutines while Stop closes the shard queues.
	// Every call must return cleanly; a send on a closed channel would panic.
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				cmd, err := domain.NewCommand(domain.CmdPatientRegister, map[string]string{"patient_id": fmt.Sprintf("patient-%d-%d", n, j)})
				require.NoError(t, err)

				err = dispatcher.DispatchAsync(cmd)
				if err != nil {
					require.True(t, errors.Is(err, domain.ErrDispatcherClose) || errors.Is(err, domain.ErrQueueFull))
				}
			}
		}(i)
	}

	close(start)
	dispatcher.Stop()
	wg.Wait()
}

func TestDispatchAsyncQueueFull(t *testing.T) {
	dispatcher := NewDispatcher(nil, 1, 1, time.Second)
	// Workers never started, so the single-slot queue fills immediately

	first, err := domain.NewCommand(domain.CmdPatientRegister, map[string]string{"patient_id": "p"})
	require.NoError(t, err)
	require.NoError(t, dispatcher.DispatchAsync(first))

	second, err := domain.NewCommand(domain.CmdPatientRegister, map[string]string{"patient_id": "p"})
	require.NoError(t, err)
	require.ErrorIs(t, dispatcher.DispatchAsync(second), domain.ErrQueueFull)
}

func TestAggregateKeyRouting(t *testing.T) {
	billCmd, err := domain.NewCommand(domain.CmdBillPay, map[string]string{"bill_id": "bill-7"})
	require.NoError(t, err)
	require.Equal(t, "bill-7", aggregateKey(billCmd))

	patientCmd, err := domain.NewCommand(domain.CmdPatientAdmit, map[string]string{"patient_id": "patient-3"})
	require.NoError(t, err)
	require.Equal(t, "patient-3", aggregateKey(patientCmd))

	// No aggregate identity falls back to the command's own ID
	emptyCmd, err := domain.NewCommand(domain.CmdPatientRegister, map[string]string{})
	require.NoError(t, err)
	require.Equal(t, emptyCmd.ID, aggregateKey(emptyCmd))
}
