package receipts

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/miqat/umrah-bookings/internal/clock"
	"github.com/miqat/umrah-bookings/internal/domain"
	"github.com/miqat/umrah-bookings/internal/repo/postgres"
	"github.com/miqat/umrah-bookings/internal/storage"
	"github.com/miqat/umrah-bookings/pkg/events"
	"github.com/miqat/umrah-bookings/pkg/logger"
)

// MaxReceiptSize is the upload cap: 5 MiB.
const MaxReceiptSize = 5 * 1024 * 1024

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

// Intake validates and stores payment-proof uploads and moves the lead to
// receipt_uploaded.
type Intake struct {
	leads postgres.LeadsRepository
	store storage.ReceiptStore
	clock clock.Clock
	bus   events.Publisher
}

func NewIntake(leadsRepo postgres.LeadsRepository, store storage.ReceiptStore, clk clock.Clock, bus events.Publisher) *Intake {
	return &Intake{leads: leadsRepo, store: store, clock: clk, bus: bus}
}

// Upload stores the artifact and performs the pending_payment ->
// receipt_uploaded transition. The transition is conditional; if another
// writer moved the lead first, the stored artifact is deleted again so no
// receipt is ever visible on a lead that never reached receipt_uploaded.
func (i *Intake) Upload(ctx context.Context, reference, contentType string, data []byte) (*domain.Lead, error) {
	lead, err := i.leads.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead %s: %w", reference, err)
	}
	if lead == nil {
		return nil, domain.ErrNotFound
	}

	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, domain.Validation(domain.CodeUnsupportedType,
			fmt.Sprintf("content type %q is not accepted; use JPEG, PNG, GIF or PDF", contentType))
	}
	if len(data) > MaxReceiptSize {
		return nil, domain.Validation(domain.CodeTooLarge,
			fmt.Sprintf("receipt is %d bytes, the limit is %d", len(data), MaxReceiptSize))
	}
	if len(data) == 0 {
		return nil, domain.Validation(domain.CodeMissingField, "receipt file is empty")
	}

	if lead.Status != domain.StatusPendingPayment {
		return nil, &domain.InvalidStateError{Current: lead.Status, Attempted: "upload a receipt to"}
	}

	key := fmt.Sprintf("receipts/%s/%s%s", lead.Reference, uuid.NewString(), ext)
	url, err := i.store.Put(ctx, key, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store receipt for %s: %w", reference, err)
	}

	uploadedAt := i.clock.Now()
	won, err := i.leads.AttachReceipt(ctx, lead.ID, url, uploadedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to attach receipt to %s: %w", reference, err)
	}
	if !won {
		// Lost the race (expired, cancelled...). Clean up the orphan.
		if delErr := i.store.Delete(ctx, key); delErr != nil {
			logger.ErrorContext(ctx, "Failed to delete orphaned receipt", "error", delErr, "key", key)
		}
		current := lead.Status
		if fresh, err := i.leads.GetByID(ctx, lead.ID); err == nil && fresh != nil {
			current = fresh.Status
		}
		return nil, &domain.InvalidStateError{Current: current, Attempted: "upload a receipt to"}
	}

	lead.Status = domain.StatusReceiptUploaded
	lead.ReceiptURL = &url
	lead.ReceiptUploadedAt = &uploadedAt

	if err := i.bus.Publish(ctx, events.LeadReceiptUploaded, events.LeadReceiptUploadedEvent{
		Reference:  lead.Reference,
		ReceiptURL: url,
		UploadedAt: uploadedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish receipt uploaded event", "error", err, "reference", lead.Reference)
	}

	return lead, nil
}
