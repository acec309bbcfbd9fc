package leads

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miqat/umrah-bookings/internal/availability"
	"github.com/miqat/umrah-bookings/internal/clock"
	"github.com/miqat/umrah-bookings/internal/domain"
	"github.com/miqat/umrah-bookings/internal/pricing"
	"github.com/miqat/umrah-bookings/pkg/events"
)

// fakeLeadsRepo is an in-memory repository with the same conditional-update
// semantics as the real one: a transition only applies when the stored
// status still matches the expected status.
type fakeLeadsRepo struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*domain.Lead
	byRef map[string]uuid.UUID

	// duplicatesLeft makes the next N inserts fail with ErrDuplicateReference.
	duplicatesLeft int
	// onUpdateStatus runs before each conditional update, letting tests
	// interleave a racing writer.
	onUpdateStatus func()
}

func newFakeLeadsRepo() *fakeLeadsRepo {
	return &fakeLeadsRepo{
		byID:  make(map[uuid.UUID]*domain.Lead),
		byRef: make(map[string]uuid.UUID),
	}
}

func (f *fakeLeadsRepo) Insert(ctx context.Context, l *domain.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.duplicatesLeft > 0 {
		f.duplicatesLeft--
		return domain.ErrDuplicateReference
	}
	if _, exists := f.byRef[l.Reference]; exists {
		return domain.ErrDuplicateReference
	}
	cp := *l
	f.byID[l.ID] = &cp
	f.byRef[l.Reference] = l.ID
	return nil
}

func (f *fakeLeadsRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeadsRepo) GetByReference(ctx context.Context, reference string) (*domain.Lead, error) {
	f.mu.Lock()
	id, ok := f.byRef[reference]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return f.GetByID(ctx, id)
}

func (f *fakeLeadsRepo) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.LeadStatus) (bool, error) {
	if f.onUpdateStatus != nil {
		f.onUpdateStatus()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok || l.Status != expected {
		return false, nil
	}
	l.Status = next
	return true, nil
}

func (f *fakeLeadsRepo) Reject(ctx context.Context, id uuid.UUID, reason *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok || l.Status != domain.StatusReceiptUploaded {
		return false, nil
	}
	l.Status = domain.StatusRejected
	l.RejectReason = reason
	return true, nil
}

func (f *fakeLeadsRepo) AttachReceipt(ctx context.Context, id uuid.UUID, url string, uploadedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok || l.Status != domain.StatusPendingPayment {
		return false, nil
	}
	l.Status = domain.StatusReceiptUploaded
	l.ReceiptURL = &url
	l.ReceiptUploadedAt = &uploadedAt
	return true, nil
}

func (f *fakeLeadsRepo) ListByStatusAndExpiry(ctx context.Context, statuses []domain.LeadStatus, before time.Time, limit int) ([]domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Lead
	for _, l := range f.byID {
		for _, st := range statuses {
			if l.Status == st && l.VoucherExpiry.Before(before) {
				out = append(out, *l)
				break
			}
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLeadsRepo) List(ctx context.Context, limit, offset int) ([]domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Lead
	for _, l := range f.byID {
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeLeadsRepo) ListByStatus(ctx context.Context, status domain.LeadStatus, limit, offset int) ([]domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Lead
	for _, l := range f.byID {
		if l.Status == status {
			out = append(out, *l)
		}
	}
	return out, nil
}

type fakeFinder struct {
	hotel *domain.Hotel
	room  *domain.Room
}

func (f *fakeFinder) FirstActiveHotel(ctx context.Context, city string) (*domain.Hotel, error) {
	if f.hotel != nil && f.hotel.City == city {
		return f.hotel, nil
	}
	return nil, nil
}

func (f *fakeFinder) FirstRoom(ctx context.Context, hotelID int64) (*domain.Room, error) {
	return f.room, nil
}

type recordingBus struct {
	mu       sync.Mutex
	subjects []string
}

func (b *recordingBus) Publish(ctx context.Context, subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) published(subject string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

var _ clock.Clock = (*fixedClock)(nil)

func newTestService(repo *fakeLeadsRepo, bus *recordingBus, clk *fixedClock) *Service {
	finder := &fakeFinder{
		hotel: &domain.Hotel{ID: 1, Name: "Al Safwah", City: "makkah", Category: 4, Active: true},
		room:  &domain.Room{ID: 10, HotelID: 1, Name: "Quad", MaxGuests: 4},
	}
	return NewService(
		repo,
		availability.NewResolver(finder),
		pricing.NewCalculator(nil),
		clk,
		bus,
		4*time.Hour,
		100,
	)
}

func validSubmitReq() *domain.SubmitLeadReq {
	return &domain.SubmitLeadReq{
		GuestName:  "Aisha Rahman",
		GuestEmail: "aisha@example.com",
		GuestPhone: "+441234567890",
		City:       "makkah",
		CheckIn:    "2026-09-10",
		CheckOut:   "2026-09-12",
		Category:   4,
		NumGuests:  4,
		NumRooms:   1,
	}
}

func TestSubmit(t *testing.T) {
	repo := newFakeLeadsRepo()
	bus := &recordingBus{}
	clk := &fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, bus, clk)

	lead, err := svc.Submit(context.Background(), validSubmitReq())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingPayment, lead.Status)
	assert.Len(t, lead.Reference, 8)
	// 2 nights x 1 room at the 4-star rate of 200
	assert.Equal(t, int64(400), lead.TotalAmount)
	assert.Equal(t, clk.now.Add(4*time.Hour), lead.VoucherExpiry)
	assert.Equal(t, clk.now, lead.CreatedAt)
	assert.True(t, bus.published(events.LeadCreated))

	stored, err := repo.GetByReference(context.Background(), lead.Reference)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusPendingPayment, stored.Status)
}

func TestSubmitValidation(t *testing.T) {
	repo := newFakeLeadsRepo()
	bus := &recordingBus{}
	clk := &fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, bus, clk)

	tests := []struct {
		name   string
		mutate func(r *domain.SubmitLeadReq)
	}{
		{"missing name", func(r *domain.SubmitLeadReq) { r.GuestName = "" }},
		{"bad email", func(r *domain.SubmitLeadReq) { r.GuestEmail = "not-an-email" }},
		{"missing city", func(r *domain.SubmitLeadReq) { r.City = "  " }},
		{"bad check_in", func(r *domain.SubmitLeadReq) { r.CheckIn = "10/09/2026" }},
		{"check_out before check_in", func(r *domain.SubmitLeadReq) { r.CheckOut = "2026-09-09" }},
		{"same-day stay", func(r *domain.SubmitLeadReq) { r.CheckOut = r.CheckIn }},
		{"bad category", func(r *domain.SubmitLeadReq) { r.Category = 2 }},
		{"too many guests", func(r *domain.SubmitLeadReq) { r.NumGuests = 9; r.NumRooms = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSubmitReq()
			tt.mutate(req)

			_, err := svc.Submit(context.Background(), req)
			assert.True(t, domain.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	// Nothing stored, nothing announced.
	all, err := repo.List(context.Background(), 100, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.False(t, bus.published(events.LeadCreated))
}

func TestSubmitNoInventory(t *testing.T) {
	repo := newFakeLeadsRepo()
	bus := &recordingBus{}
	clk := &fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, bus, clk)

	req := validSubmitReq()
	req.City = "jeddah"

	_, err := svc.Submit(context.Background(), req)
	assert.True(t, domain.IsNoInventory(err), "expected no-inventory error, got %v", err)

	all, listErr := repo.List(context.Background(), 100, 0)
	require.NoError(t, listErr)
	assert.Empty(t, all, "a failed submission must leave no record behind")
	assert.True(t, bus.published(events.LeadSubmitFailed))
}

func TestSubmitRetriesReferenceCollision(t *testing.T) {
	repo := newFakeLeadsRepo()
	repo.duplicatesLeft = 2
	bus := &recordingBus{}
	clk := &fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, bus, clk)

	lead, err := svc.Submit(context.Background(), validSubmitReq())
	require.NoError(t, err)
	assert.Len(t, lead.Reference, 8)
}

func TestConfirm(t *testing.T) {
	repo := newFakeLeadsRepo()
	bus := &recordingBus{}
	clk := &fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, bus, clk)

	lead, err := svc.Submit(context.Background(), validSubmitReq())
	require.NoError(t, err)

	// Not yet verifiable: no receipt.
	_, err = svc.Confirm(context.Background(), lead.Reference)
	assert.True(t, domain.IsInvalidState(err), "confirm before receipt must fail, got %v", err)

	_, err = repo.AttachReceipt(context.Background(), lead.ID, "https://cdn.example/receipts/x.jpg", clk.now)
	require.NoError(t, err)

	confirmed, err := svc.Confirm(context.Background(), lead.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	assert.True(t, bus.published(events.LeadConfirmed))

	// Terminal: a second confirm reports the real current state.
	_, err = svc.Confirm(context.Background(), lead.Reference)
	assert.True(t, domain.IsInvalidState(err))
}

func TestRejectStoresReason(t *testing.T) {
	repo := newFakeLeadsRepo()
	bus := &recordingBus{}
	clk := &fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, bus, clk)

	lead, err := svc.Submit(context.Background(), validSubmitReq())
	require.NoError(t, err)
	_, err = repo.AttachReceipt(context.Background(), lead.ID, "https://cdn.example/receipts/x.jpg", clk.now)
	require.NoError(t, err)

	reason := "amount does not match the invoice"
	rejected, err := svc.Reject(context.Background(), lead.Reference, &reason)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectReason)
	assert.Equal(t, reason, *rejected.RejectReason)
	assert.True(t, bus.published(events.LeadRejected))
}

func TestCancel(t *testing.T) {
	repo := newFakeLeadsRepo()
	bus := &recordingBus{}
	clk := &fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, bus, clk)

	lead, err := svc.Submit(context.Background(), validSubmitReq())
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), lead.Reference))
	assert.True(t, bus.published(events.LeadCancelled))

	// Terminal states cannot be cancelled again.
	err = svc.Cancel(context.Background(), lead.Reference)
	assert.True(t, domain.IsInvalidState(err))
}

func TestExpireOverdueIsIdempotent(t *testing.T) {
	repo := newFakeLeadsRepo()
	bus := &recordingBus{}
	clk := &fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, bus, clk)

	lead, err := svc.Submit(context.Background(), validSubmitReq())
	require.NoError(t, err)

	// Voucher window was 4h; jump 5 hours past submission.
	clk.now = clk.now.Add(5 * time.Hour)

	expired, err := svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.True(t, bus.published(events.LeadExpired))

	stored, err := repo.GetByReference(context.Background(), lead.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, stored.Status)

	// Second run finds nothing sweepable and changes nothing.
	expired, err = svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	stored, err = repo.GetByReference(context.Background(), lead.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, stored.Status)
}

func TestConfirmRacingSweepHasOneWinner(t *testing.T) {
	repo := newFakeLeadsRepo()
	bus := &recordingBus{}
	clk := &fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(repo, bus, clk)

	lead, err := svc.Submit(context.Background(), validSubmitReq())
	require.NoError(t, err)
	_, err = repo.AttachReceipt(context.Background(), lead.ID, "https://cdn.example/receipts/x.jpg", clk.now)
	require.NoError(t, err)

	clk.now = clk.now.Add(5 * time.Hour)

	// An admin confirm slips in between the sweep's scan and its write.
	raced := false
	repo.onUpdateStatus = func() {
		if !raced {
			raced = true
			repo.onUpdateStatus = nil
			_, err := svc.Confirm(context.Background(), lead.Reference)
			require.NoError(t, err)
		}
	}

	expired, err := svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, expired, "sweep must lose the race it did not win")

	stored, err := repo.GetByReference(context.Background(), lead.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
}
