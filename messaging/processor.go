package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/commands"
	"example.com/hospital/services/emr/domain"
)

// CommandMessage is the envelope external producers put on the queue
type CommandMessage struct {
	CommandType   string            `json:"command_type"`
	Data          json.RawMessage   `json:"data"`
	UserID        string            `json:"user_id"`
	CorrelationID string            `json:"correlation_id"`
	Priority      string            `json:"priority"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type MessageProcessor interface {
	ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error
}

// Processor turns queue messages into commands and dispatches them
// synchronously, so a handler failure keeps the message on the queue.
type Processor struct {
	dispatcher *commands.Dispatcher
}

func NewProcessor(dispatcher *commands.Dispatcher) *Processor {
	return &Processor{dispatcher: dispatcher}
}

func (p *Processor) ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error {
	var msg CommandMessage
	if err := json.Unmarshal(message.Body, &msg); err != nil {
		return fmt.Errorf("%w: malformed command message: %v", ErrRejectMessage, err)
	}
	if msg.CommandType == "" {
		return fmt.Errorf("%w: command message carries no command_type", ErrRejectMessage)
	}

	log.Info().Str("commandType", msg.CommandType).Msg("Processing message")

	cmd, err := domain.NewCommand(domain.CommandType(msg.CommandType), nil)
	if err != nil {
		return err
	}
	cmd.Data = msg.Data
	cmd.UserID = msg.UserID
	cmd.CorrelationID = msg.CorrelationID
	cmd.Metadata = msg.Metadata
	if msg.Priority != "" {
		cmd.Priority = domain.CommandPriority(msg.Priority)
	}

	result := p.dispatcher.Dispatch(ctx, cmd)
	if result.Status == domain.StatusFailed {
		if result.Rejected {
			return fmt.Errorf("%w: %s", ErrRejectMessage, result.Error)
		}
		return fmt.Errorf("command %s failed: %s", cmd.ID, result.Error)
	}
	return nil
}
