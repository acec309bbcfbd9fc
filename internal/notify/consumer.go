package notify

import (
	"encoding/json"

	"github.com/miqat/umrah-bookings/pkg/events"
	"github.com/miqat/umrah-bookings/pkg/logger"
)

// Consumer turns lead lifecycle events into guest emails. Delivery is
// best-effort: a failed send is logged and never re-queued.
type Consumer struct {
	bus    events.Subscriber
	mailer *Mailer
}

func NewConsumer(bus events.Subscriber, mailer *Mailer) *Consumer {
	return &Consumer{bus: bus, mailer: mailer}
}

func (c *Consumer) Start() error {
	if err := c.bus.QueueSubscribe(events.LeadConfirmed, "notify", c.handleConfirmed); err != nil {
		return err
	}
	return c.bus.QueueSubscribe(events.LeadRejected, "notify", c.handleRejected)
}

func (c *Consumer) handleConfirmed(msg *events.Message) {
	var evt events.LeadConfirmedEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		logger.Error("Failed to decode confirmed event", "error", err)
		return
	}

	err := c.mailer.SendVoucherConfirmed(evt.GuestEmail, evt.GuestName, evt.Reference, evt.CheckIn, evt.CheckOut, evt.TotalAmount)
	if err != nil {
		logger.Error("Failed to send confirmation email", "reference", evt.Reference, "error", err)
		return
	}
	logger.Info("Sent confirmation email", "reference", evt.Reference)
}

func (c *Consumer) handleRejected(msg *events.Message) {
	var evt events.LeadRejectedEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		logger.Error("Failed to decode rejected event", "error", err)
		return
	}

	err := c.mailer.SendVoucherRejected(evt.GuestEmail, evt.GuestName, evt.Reference, evt.Reason)
	if err != nil {
		logger.Error("Failed to send rejection email", "reference", evt.Reference, "error", err)
		return
	}
	logger.Info("Sent rejection email", "reference", evt.Reference)
}
