package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/miqat/umrah-bookings/internal/domain"
)

type LeadsRepository interface {
	Insert(ctx context.Context, l *domain.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	GetByReference(ctx context.Context, reference string) (*domain.Lead, error)
	// UpdateStatus performs the conditional transition expected -> next and
	// reports whether this writer won. Zero rows affected means the lead
	// moved on; the caller treats that as "transition no longer applicable".
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.LeadStatus) (bool, error)
	Reject(ctx context.Context, id uuid.UUID, reason *string) (bool, error)
	AttachReceipt(ctx context.Context, id uuid.UUID, url string, uploadedAt time.Time) (bool, error)
	ListByStatusAndExpiry(ctx context.Context, statuses []domain.LeadStatus, before time.Time, limit int) ([]domain.Lead, error)
	List(ctx context.Context, limit, offset int) ([]domain.Lead, error)
	ListByStatus(ctx context.Context, status domain.LeadStatus, limit, offset int) ([]domain.Lead, error)
}

type leadsRepository struct {
	pool *pgxpool.Pool
}

func NewLeadsRepository(pool *pgxpool.Pool) LeadsRepository {
	return &leadsRepository{pool: pool}
}

const leadCols = `id, reference, guest_id, guest_name, guest_email, guest_phone,
city, hotel_id, room_id, check_in, check_out, num_guests, num_rooms,
total_amount, status, special_requests, reject_reason,
receipt_url, receipt_uploaded_at, voucher_expiry, created_at, updated_at`

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(
		&l.ID, &l.Reference, &l.GuestID, &l.GuestName, &l.GuestEmail, &l.GuestPhone,
		&l.City, &l.HotelID, &l.RoomID, &l.CheckIn, &l.CheckOut, &l.NumGuests, &l.NumRooms,
		&l.TotalAmount, &l.Status, &l.SpecialRequests, &l.RejectReason,
		&l.ReceiptURL, &l.ReceiptUploadedAt, &l.VoucherExpiry, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *leadsRepository) Insert(ctx context.Context, l *domain.Lead) error {
	const q = `INSERT INTO leads (
		id, reference, guest_id, guest_name, guest_email, guest_phone,
		city, hotel_id, room_id, check_in, check_out, num_guests, num_rooms,
		total_amount, status, special_requests, voucher_expiry, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$18)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		l.ID, l.Reference, l.GuestID, l.GuestName, l.GuestEmail, l.GuestPhone,
		l.City, l.HotelID, l.RoomID, l.CheckIn, l.CheckOut, l.NumGuests, l.NumRooms,
		l.TotalAmount, l.Status, l.SpecialRequests, l.VoucherExpiry, l.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *leadsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	const q = `SELECT ` + leadCols + ` FROM leads WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	l, err := scanLead(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func (r *leadsRepository) GetByReference(ctx context.Context, reference string) (*domain.Lead, error) {
	const q = `SELECT ` + leadCols + ` FROM leads WHERE reference=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	l, err := scanLead(r.pool.QueryRow(ctx, q, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func (r *leadsRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.LeadStatus) (bool, error) {
	const q = `UPDATE leads SET status=$3, updated_at=now() WHERE id=$1 AND status=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, expected, next)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *leadsRepository) Reject(ctx context.Context, id uuid.UUID, reason *string) (bool, error) {
	const q = `UPDATE leads SET status='rejected', reject_reason=$2, updated_at=now()
		WHERE id=$1 AND status='receipt_uploaded'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, reason)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *leadsRepository) AttachReceipt(ctx context.Context, id uuid.UUID, url string, uploadedAt time.Time) (bool, error) {
	// Receipt fields are only ever written by this transition, keeping the
	// receipt_url <-> status invariant in the database itself.
	const q = `UPDATE leads SET status='receipt_uploaded', receipt_url=$2,
		receipt_uploaded_at=$3, updated_at=now()
		WHERE id=$1 AND status='pending_payment'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, url, uploadedAt)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *leadsRepository) ListByStatusAndExpiry(ctx context.Context, statuses []domain.LeadStatus, before time.Time, limit int) ([]domain.Lead, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	const q = `SELECT ` + leadCols + ` FROM leads
		WHERE status = ANY($1) AND voucher_expiry < $2
		ORDER BY voucher_expiry LIMIT $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}

	rows, err := r.pool.Query(ctx, q, raw, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (r *leadsRepository) List(ctx context.Context, limit, offset int) ([]domain.Lead, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + leadCols + ` FROM leads ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (r *leadsRepository) ListByStatus(ctx context.Context, status domain.LeadStatus, limit, offset int) ([]domain.Lead, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + leadCols + ` FROM leads WHERE status=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	var leads []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}
