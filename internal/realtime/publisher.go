package realtime

import (
	"context"

	"github.com/yungbote/labreport-backend/internal/pipeline"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

// Bus relays messages between instances. Every instance, the publisher
// included, receives its own messages back through the forwarder.
type Bus interface {
	Publish(ctx context.Context, msg Message) error
	StartForwarder(ctx context.Context, onMsg func(Message)) error
}

// Publisher reports pass outcomes to SSE subscribers. With a nil bus it
// broadcasts on the local hub only.
type Publisher struct {
	hub *Hub
	bus Bus
	log *logger.Logger
}

func NewPublisher(hub *Hub, bus Bus, baseLog *logger.Logger) *Publisher {
	return &Publisher{hub: hub, bus: bus, log: baseLog.With("component", "ReportEventPublisher")}
}

// Start wires the bus forwarder into the hub.
func (p *Publisher) Start(ctx context.Context) error {
	if p.bus == nil {
		return nil
	}
	return p.bus.StartForwarder(ctx, p.hub.Broadcast)
}

func (p *Publisher) Publish(ctx context.Context, msg Message) {
	if p.bus == nil {
		p.hub.Broadcast(msg)
		return
	}
	if err := p.bus.Publish(context.WithoutCancel(ctx), msg); err != nil {
		p.log.Warn("event publish failed", "channel", msg.Channel, "event", msg.Event, "error", err)
	}
}

func (p *Publisher) ReportProcessed(ctx context.Context, externalID string, res *pipeline.Result) {
	p.Publish(ctx, Message{
		Channel: ReportChannel(externalID),
		Event:   EventReportProcessed,
		Data:    res,
	})
}

func (p *Publisher) ReportFailed(ctx context.Context, externalID string, perr *pipeline.Error) {
	p.Publish(ctx, Message{
		Channel: ReportChannel(externalID),
		Event:   EventReportFailed,
		Data:    map[string]string{"code": string(perr.Kind)},
	})
}
