package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/miqat/umrah-bookings/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Lead lifecycle subjects.
const (
	LeadCreated         = "lead.created"
	LeadReceiptUploaded = "lead.receipt_uploaded"
	LeadConfirmed       = "lead.confirmed"
	LeadRejected        = "lead.rejected"
	LeadExpired         = "lead.expired"
	LeadCancelled       = "lead.cancelled"

	// LeadSubmitFailed feeds the reconciliation queue behind the optimistic
	// acknowledgment path: the guest saw a success message, ops did not.
	LeadSubmitFailed = "lead.submit.failed"
)

type LeadCreatedEvent struct {
	Reference     string    `json:"reference"`
	GuestName     string    `json:"guest_name"`
	GuestEmail    string    `json:"guest_email"`
	City          string    `json:"city"`
	HotelID       int64     `json:"hotel_id"`
	RoomID        int64     `json:"room_id"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	TotalAmount   int64     `json:"total_amount"`
	VoucherExpiry time.Time `json:"voucher_expiry"`
	CreatedAt     time.Time `json:"created_at"`
}

type LeadReceiptUploadedEvent struct {
	Reference  string    `json:"reference"`
	ReceiptURL string    `json:"receipt_url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type LeadConfirmedEvent struct {
	Reference   string    `json:"reference"`
	GuestName   string    `json:"guest_name"`
	GuestEmail  string    `json:"guest_email"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	TotalAmount int64     `json:"total_amount"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

type LeadRejectedEvent struct {
	Reference  string    `json:"reference"`
	GuestName  string    `json:"guest_name"`
	GuestEmail string    `json:"guest_email"`
	Reason     string    `json:"reason"`
	RejectedAt time.Time `json:"rejected_at"`
}

type LeadExpiredEvent struct {
	Reference  string    `json:"reference"`
	GuestEmail string    `json:"guest_email"`
	ExpiredAt  time.Time `json:"expired_at"`
}

type LeadCancelledEvent struct {
	Reference   string    `json:"reference"`
	GuestEmail  string    `json:"guest_email"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type LeadSubmitFailedEvent struct {
	GuestEmail string    `json:"guest_email"`
	City       string    `json:"city"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
