package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/miqat/umrah-bookings/internal/availability"
	"github.com/miqat/umrah-bookings/internal/clock"
	"github.com/miqat/umrah-bookings/internal/domain"
	"github.com/miqat/umrah-bookings/internal/pricing"
	"github.com/miqat/umrah-bookings/internal/repo/postgres"
	"github.com/miqat/umrah-bookings/pkg/events"
	"github.com/miqat/umrah-bookings/pkg/logger"
)

const dateLayout = "2006-01-02"

// Service drives the booking-lead lifecycle. Every status transition is a
// conditional write in the repository, so a confirm racing the expiry sweep
// resolves to exactly one winner.
type Service struct {
	leads      postgres.LeadsRepository
	resolver   *availability.Resolver
	pricing    *pricing.Calculator
	clock      clock.Clock
	bus        events.Publisher
	voucherTTL time.Duration
	sweepBatch int
}

func NewService(
	leadsRepo postgres.LeadsRepository,
	resolver *availability.Resolver,
	calc *pricing.Calculator,
	clk clock.Clock,
	bus events.Publisher,
	voucherTTL time.Duration,
	sweepBatch int,
) *Service {
	if voucherTTL <= 0 {
		voucherTTL = 4 * time.Hour
	}
	return &Service{
		leads:      leadsRepo,
		resolver:   resolver,
		pricing:    calc,
		clock:      clk,
		bus:        bus,
		voucherTTL: voucherTTL,
		sweepBatch: sweepBatch,
	}
}

// Submit validates the guest's request, reserves inventory, prices the stay
// and persists a new lead. The lead is written in status "lead" and
// immediately advanced to "pending_payment" with a payment window of
// voucherTTL from creation.
func (s *Service) Submit(ctx context.Context, req *domain.SubmitLeadReq) (*domain.Lead, error) {
	checkIn, checkOut, err := s.validateSubmit(req)
	if err != nil {
		return nil, err
	}

	hotel, room, err := s.resolver.Reserve(ctx, req.City)
	if err != nil {
		s.reportSubmitFailure(ctx, req, err)
		return nil, err
	}

	if req.NumGuests > req.NumRooms*room.MaxGuests {
		return nil, domain.Validation(domain.CodeTooManyGuests,
			fmt.Sprintf("%d guests exceed capacity of %d rooms", req.NumGuests, req.NumRooms))
	}

	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	total := s.pricing.ComputeTotal(req.Category, nights, req.NumRooms)
	if room.NightlyRate != nil {
		if nights < 1 {
			nights = 1
		}
		total = *room.NightlyRate * int64(nights) * int64(req.NumRooms)
	}

	now := s.clock.Now()
	lead := &domain.Lead{
		ID:              uuid.New(),
		GuestID:         uuid.New(),
		GuestName:       strings.TrimSpace(req.GuestName),
		GuestEmail:      strings.ToLower(strings.TrimSpace(req.GuestEmail)),
		GuestPhone:      strings.TrimSpace(req.GuestPhone),
		City:            strings.ToLower(strings.TrimSpace(req.City)),
		HotelID:         hotel.ID,
		RoomID:          room.ID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		NumGuests:       req.NumGuests,
		NumRooms:        req.NumRooms,
		TotalAmount:     total,
		Status:          domain.StatusLead,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		VoucherExpiry:   now.Add(s.voucherTTL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.insertWithReference(ctx, lead); err != nil {
		s.reportSubmitFailure(ctx, req, err)
		return nil, err
	}

	// Advance the fresh record to pending_payment; the deadline was fixed
	// at insert so voucher_expiry stays exactly created_at + voucherTTL.
	ok, err := s.leads.UpdateStatus(ctx, lead.ID, domain.StatusLead, domain.StatusPendingPayment)
	if err != nil {
		s.reportSubmitFailure(ctx, req, err)
		return nil, fmt.Errorf("failed to activate lead %s: %w", lead.Reference, err)
	}
	if !ok {
		return nil, &domain.InvalidStateError{Current: lead.Status, Attempted: "activate"}
	}
	lead.Status = domain.StatusPendingPayment

	if err := s.bus.Publish(ctx, events.LeadCreated, events.LeadCreatedEvent{
		Reference:     lead.Reference,
		GuestName:     lead.GuestName,
		GuestEmail:    lead.GuestEmail,
		City:          lead.City,
		HotelID:       lead.HotelID,
		RoomID:        lead.RoomID,
		CheckIn:       lead.CheckIn,
		CheckOut:      lead.CheckOut,
		TotalAmount:   lead.TotalAmount,
		VoucherExpiry: lead.VoucherExpiry,
		CreatedAt:     lead.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish lead created event", "error", err, "reference", lead.Reference)
	}

	return lead, nil
}

func (s *Service) validateSubmit(req *domain.SubmitLeadReq) (checkIn, checkOut time.Time, err error) {
	if strings.TrimSpace(req.GuestName) == "" {
		return checkIn, checkOut, domain.Validation(domain.CodeMissingField, "guest_name is required")
	}
	if strings.TrimSpace(req.GuestEmail) == "" || !strings.Contains(req.GuestEmail, "@") {
		return checkIn, checkOut, domain.Validation(domain.CodeMissingField, "a valid guest_email is required")
	}
	if strings.TrimSpace(req.City) == "" {
		return checkIn, checkOut, domain.Validation(domain.CodeMissingField, "city is required")
	}

	checkIn, err = time.Parse(dateLayout, req.CheckIn)
	if err != nil {
		return checkIn, checkOut, domain.Validation(domain.CodeInvalidDates, "check_in must be a YYYY-MM-DD date")
	}
	checkOut, err = time.Parse(dateLayout, req.CheckOut)
	if err != nil {
		return checkIn, checkOut, domain.Validation(domain.CodeInvalidDates, "check_out must be a YYYY-MM-DD date")
	}
	if !checkOut.After(checkIn) {
		return checkIn, checkOut, domain.Validation(domain.CodeInvalidDates, "check_out must be after check_in")
	}

	switch req.Category {
	case 3, 4, 5:
	default:
		return checkIn, checkOut, domain.Validation(domain.CodeInvalidCategory, "category must be 3, 4 or 5")
	}

	// Form tolerance: absent counts default to one room, one guest.
	if req.NumRooms < 1 {
		req.NumRooms = 1
	}
	if req.NumGuests < 1 {
		req.NumGuests = 1
	}

	return checkIn, checkOut, nil
}

func (s *Service) insertWithReference(ctx context.Context, lead *domain.Lead) error {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		ref, err := GenerateReference()
		if err != nil {
			return err
		}
		lead.Reference = ref

		err = s.leads.Insert(ctx, lead)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrDuplicateReference) {
			logger.WarnContext(ctx, "Reference collision, regenerating", "attempt", attempt+1)
			continue
		}
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return fmt.Errorf("failed to insert lead after %d reference attempts: %w",
		maxReferenceAttempts, domain.ErrDuplicateReference)
}

// reportSubmitFailure feeds the reconciliation path behind the optimistic
// acknowledgment: the guest sees a success message, ops sees this.
func (s *Service) reportSubmitFailure(ctx context.Context, req *domain.SubmitLeadReq, cause error) {
	logger.ErrorContext(ctx, "Lead submission failed",
		"error", cause,
		"guest_email", req.GuestEmail,
		"city", req.City,
		"reconcile", true,
	)
	if err := s.bus.Publish(ctx, events.LeadSubmitFailed, events.LeadSubmitFailedEvent{
		GuestEmail: strings.ToLower(strings.TrimSpace(req.GuestEmail)),
		City:       req.City,
		Reason:     cause.Error(),
		OccurredAt: s.clock.Now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish submit failure event", "error", err)
	}
}

// Get returns the lead for a reference, or ErrNotFound.
func (s *Service) Get(ctx context.Context, reference string) (*domain.Lead, error) {
	lead, err := s.leads.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead %s: %w", reference, err)
	}
	if lead == nil {
		return nil, domain.ErrNotFound
	}
	return lead, nil
}

// Confirm finalizes a verified lead. Legal only from receipt_uploaded.
func (s *Service) Confirm(ctx context.Context, reference string) (*domain.Lead, error) {
	lead, err := s.Get(ctx, reference)
	if err != nil {
		return nil, err
	}
	if lead.Status != domain.StatusReceiptUploaded {
		return nil, &domain.InvalidStateError{Current: lead.Status, Attempted: "confirm"}
	}

	ok, err := s.leads.UpdateStatus(ctx, lead.ID, domain.StatusReceiptUploaded, domain.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm lead %s: %w", reference, err)
	}
	if !ok {
		return nil, s.staleTransition(ctx, lead, "confirm")
	}
	lead.Status = domain.StatusConfirmed

	if err := s.bus.Publish(ctx, events.LeadConfirmed, events.LeadConfirmedEvent{
		Reference:   lead.Reference,
		GuestName:   lead.GuestName,
		GuestEmail:  lead.GuestEmail,
		CheckIn:     lead.CheckIn,
		CheckOut:    lead.CheckOut,
		TotalAmount: lead.TotalAmount,
		ConfirmedAt: s.clock.Now(),
	}); err != nil {
		// Voucher mail is best-effort; the confirmation stands.
		logger.ErrorContext(ctx, "Failed to publish lead confirmed event", "error", err, "reference", lead.Reference)
	}

	return lead, nil
}

// Reject declines a verified lead with an optional reason. Legal only from
// receipt_uploaded.
func (s *Service) Reject(ctx context.Context, reference string, reason *string) (*domain.Lead, error) {
	lead, err := s.Get(ctx, reference)
	if err != nil {
		return nil, err
	}
	if lead.Status != domain.StatusReceiptUploaded {
		return nil, &domain.InvalidStateError{Current: lead.Status, Attempted: "reject"}
	}

	ok, err := s.leads.Reject(ctx, lead.ID, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to reject lead %s: %w", reference, err)
	}
	if !ok {
		return nil, s.staleTransition(ctx, lead, "reject")
	}
	lead.Status = domain.StatusRejected
	lead.RejectReason = reason

	reasonText := ""
	if reason != nil {
		reasonText = *reason
	}
	if err := s.bus.Publish(ctx, events.LeadRejected, events.LeadRejectedEvent{
		Reference:  lead.Reference,
		GuestName:  lead.GuestName,
		GuestEmail: lead.GuestEmail,
		Reason:     reasonText,
		RejectedAt: s.clock.Now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish lead rejected event", "error", err, "reference", lead.Reference)
	}

	return lead, nil
}

// Cancel voids a lead from any non-terminal state, guest- or admin-driven.
func (s *Service) Cancel(ctx context.Context, reference string) error {
	lead, err := s.Get(ctx, reference)
	if err != nil {
		return err
	}
	if !lead.CanCancel() {
		return &domain.InvalidStateError{Current: lead.Status, Attempted: "cancel"}
	}

	ok, err := s.leads.UpdateStatus(ctx, lead.ID, lead.Status, domain.StatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel lead %s: %w", reference, err)
	}
	if !ok {
		return s.staleTransition(ctx, lead, "cancel")
	}

	if err := s.bus.Publish(ctx, events.LeadCancelled, events.LeadCancelledEvent{
		Reference:   lead.Reference,
		GuestEmail:  lead.GuestEmail,
		CancelledAt: s.clock.Now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish lead cancelled event", "error", err, "reference", lead.Reference)
	}

	return nil
}

// List returns leads for the admin overview.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Lead, error) {
	return s.leads.List(ctx, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status domain.LeadStatus, limit, offset int) ([]domain.Lead, error) {
	return s.leads.ListByStatus(ctx, status, limit, offset)
}

// ExpireOverdue transitions every lead whose payment window has lapsed to
// expired. Idempotent: a second run finds nothing to do, and a lead already
// moved by a racing admin action is skipped because its conditional update
// affects zero rows.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.clock.Now()

	overdue, err := s.leads.ListByStatusAndExpiry(ctx, domain.SweepableStatuses, now, s.sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue leads: %w", err)
	}

	expired := 0
	for i := range overdue {
		lead := &overdue[i]

		ok, err := s.leads.UpdateStatus(ctx, lead.ID, lead.Status, domain.StatusExpired)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to expire lead", "error", err, "reference", lead.Reference)
			continue
		}
		if !ok {
			// Another writer got there first; nothing to do.
			continue
		}
		expired++

		if err := s.bus.Publish(ctx, events.LeadExpired, events.LeadExpiredEvent{
			Reference:  lead.Reference,
			GuestEmail: lead.GuestEmail,
			ExpiredAt:  now,
		}); err != nil {
			logger.ErrorContext(ctx, "Failed to publish lead expired event", "error", err, "reference", lead.Reference)
		}
	}

	return expired, nil
}

// staleTransition re-reads the lead so the error reports where it actually
// ended up, not where this writer last saw it.
func (s *Service) staleTransition(ctx context.Context, lead *domain.Lead, attempted string) error {
	current := lead.Status
	if fresh, err := s.leads.GetByID(ctx, lead.ID); err == nil && fresh != nil {
		current = fresh.Status
	}
	return &domain.InvalidStateError{Current: current, Attempted: attempted}
}
