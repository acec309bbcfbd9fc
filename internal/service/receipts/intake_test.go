package receipts

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miqat/umrah-bookings/internal/domain"
)

type fakeLeadsRepo struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*domain.Lead
	byRef map[string]uuid.UUID

	// onAttach runs before the conditional receipt attach, letting tests
	// interleave a racing writer.
	onAttach func()
}

func newFakeLeadsRepo(leadsIn ...*domain.Lead) *fakeLeadsRepo {
	f := &fakeLeadsRepo{
		byID:  make(map[uuid.UUID]*domain.Lead),
		byRef: make(map[string]uuid.UUID),
	}
	for _, l := range leadsIn {
		cp := *l
		f.byID[l.ID] = &cp
		f.byRef[l.Reference] = l.ID
	}
	return f
}

func (f *fakeLeadsRepo) Insert(ctx context.Context, l *domain.Lead) error { return nil }

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
	return false, nil
}

func (f *fakeLeadsRepo) AttachReceipt(ctx context.Context, id uuid.UUID, url string, uploadedAt time.Time) (bool, error) {
	if f.onAttach != nil {
		f.onAttach()
	}
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
	return nil, nil
}

func (f *fakeLeadsRepo) List(ctx context.Context, limit, offset int) ([]domain.Lead, error) {
	return nil, nil
}

func (f *fakeLeadsRepo) ListByStatus(ctx context.Context, status domain.LeadStatus, limit, offset int) ([]domain.Lead, error) {
	return nil, nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deletes []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://cdn.example/" + key, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deletes = append(s.deletes, key)
	return nil
}

type noopBus struct{}

func (noopBus) Publish(ctx context.Context, subject string, data interface{}) error { return nil }
func (noopBus) Close() error                                                        { return nil }

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func pendingLead() *domain.Lead {
	return &domain.Lead{
		ID:        uuid.New(),
		GuestID:   uuid.New(),
		Reference: "K7M2P4QX",
		Status:    domain.StatusPendingPayment,
	}
}

func TestUploadHappyPath(t *testing.T) {
	lead := pendingLead()
	repo := newFakeLeadsRepo(lead)
	store := newFakeStore()
	clk := &fixedClock{now: time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)}
	intake := NewIntake(repo, store, clk, noopBus{})

	got, err := intake.Upload(context.Background(), lead.Reference, "image/jpeg", []byte("jpeg-bytes"))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusReceiptUploaded, got.Status)
	require.NotNil(t, got.ReceiptURL)
	assert.Contains(t, *got.ReceiptURL, "receipts/"+lead.Reference+"/")
	require.NotNil(t, got.ReceiptUploadedAt)
	assert.Equal(t, clk.now, *got.ReceiptUploadedAt)

	stored, err := repo.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReceiptUploaded, stored.Status)
	assert.Len(t, store.objects, 1)
}

func TestUploadUnknownReference(t *testing.T) {
	intake := NewIntake(newFakeLeadsRepo(), newFakeStore(), &fixedClock{now: time.Now()}, noopBus{})

	_, err := intake.Upload(context.Background(), "NOPE1234", "image/jpeg", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUploadRejectsBadArtifacts(t *testing.T) {
	lead := pendingLead()
	repo := newFakeLeadsRepo(lead)
	store := newFakeStore()
	intake := NewIntake(repo, store, &fixedClock{now: time.Now()}, noopBus{})

	tests := []struct {
		name        string
		contentType string
		data        []byte
	}{
		{"executable", "application/x-msdownload", []byte("MZ")},
		{"svg", "image/svg+xml", []byte("<svg/>")},
		{"oversized pdf", "application/pdf", bytes.Repeat([]byte("a"), MaxReceiptSize+1)},
		{"empty file", "image/png", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := intake.Upload(context.Background(), lead.Reference, tt.contentType, tt.data)
			assert.True(t, domain.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	// Rejected uploads never touch storage or the lead.
	assert.Empty(t, store.objects)
	stored, err := repo.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, stored.Status)
	assert.Nil(t, stored.ReceiptURL)
}

func TestUploadInWrongState(t *testing.T) {
	for _, status := range []domain.LeadStatus{
		domain.StatusLead,
		domain.StatusReceiptUploaded,
		domain.StatusConfirmed,
		domain.StatusRejected,
		domain.StatusExpired,
		domain.StatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			lead := pendingLead()
			lead.Status = status
			store := newFakeStore()
			intake := NewIntake(newFakeLeadsRepo(lead), store, &fixedClock{now: time.Now()}, noopBus{})

			_, err := intake.Upload(context.Background(), lead.Reference, "image/jpeg", []byte("x"))
			assert.True(t, domain.IsInvalidState(err), "expected invalid-state error, got %v", err)
			assert.Empty(t, store.objects)
		})
	}
}

func TestUploadLosingRaceCleansUpArtifact(t *testing.T) {
	lead := pendingLead()
	repo := newFakeLeadsRepo(lead)
	store := newFakeStore()
	intake := NewIntake(repo, store, &fixedClock{now: time.Now()}, noopBus{})

	// The sweep expires the lead between the store write and the attach.
	repo.onAttach = func() {
		repo.onAttach = nil
		_, err := repo.UpdateStatus(context.Background(), lead.ID, domain.StatusPendingPayment, domain.StatusExpired)
		require.NoError(t, err)
	}

	_, err := intake.Upload(context.Background(), lead.Reference, "image/png", []byte("png-bytes"))
	assert.True(t, domain.IsInvalidState(err), "expected invalid-state error, got %v", err)

	assert.Empty(t, store.objects, "orphaned artifact must be removed")
	require.Len(t, store.deletes, 1)

	stored, getErr := repo.GetByID(context.Background(), lead.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusExpired, stored.Status)
	assert.Nil(t, stored.ReceiptURL)
}
