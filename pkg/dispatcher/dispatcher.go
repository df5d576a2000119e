// Package dispatcher bridges node side effects onto the event bus: outbound
// messages and task records are published to the dispatch topic where channel
// adapters and the task system consume them. The engine never awaits delivery.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leadfuse/leadfuse/pkg/eventbus"
	"github.com/leadfuse/leadfuse/pkg/events"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

type BusDispatcher struct {
	bus    eventbus.EventPublisher
	logger *slog.Logger
}

func NewBusDispatcher(bus eventbus.EventPublisher, logger *slog.Logger) *BusDispatcher {
	return &BusDispatcher{
		bus:    bus,
		logger: logger.With("module", "dispatcher"),
	}
}

// EnqueueSend publishes a send request keyed by lead so per-lead ordering is
// preserved across partitions.
func (d *BusDispatcher) EnqueueSend(ctx context.Context, send protocol.SendRequest) error {
	event := events.SendRequested{
		BaseEvent:  events.NewBaseEvent(events.SendRequestedEvent, send.TenantID),
		LeadID:     send.LeadID,
		Channel:    send.Channel,
		Content:    send.Content,
		TemplateID: send.TemplateID,
	}

	if err := d.bus.Publish(ctx, send.LeadID, event); err != nil {
		return fmt.Errorf("failed to publish send request: %w", err)
	}

	d.logger.DebugContext(ctx, "send enqueued", "lead_id", send.LeadID, "channel", send.Channel)

	return nil
}

// CreateTask publishes a task record for the external task system.
func (d *BusDispatcher) CreateTask(ctx context.Context, task protocol.TaskRequest) error {
	event := events.TaskRequested{
		BaseEvent:   events.NewBaseEvent(events.TaskRequestedEvent, task.TenantID),
		LeadID:      task.LeadID,
		Title:       task.Title,
		Description: task.Description,
		AssigneeID:  task.AssigneeID,
		DueAt:       task.DueAt,
	}

	if err := d.bus.Publish(ctx, task.LeadID, event); err != nil {
		return fmt.Errorf("failed to publish task request: %w", err)
	}

	return nil
}

var (
	_ protocol.MessageDispatcher = (*BusDispatcher)(nil)
	_ protocol.TaskService       = (*BusDispatcher)(nil)
)
