package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/miqat/umrah-bookings/internal/domain"
)

type HotelsRepository interface {
	// FirstActiveHotel returns the first active hotel in the city, ordered
	// by id (creation order) for a deterministic tie-break. nil when the
	// city has no active hotel.
	FirstActiveHotel(ctx context.Context, city string) (*domain.Hotel, error)
	// FirstRoom returns the hotel's first registered room type, nil when
	// the hotel has none.
	FirstRoom(ctx context.Context, hotelID int64) (*domain.Room, error)

	GetHotel(ctx context.Context, id int64) (*domain.Hotel, error)
	ListByPartner(ctx context.Context, partnerID int64) ([]domain.Hotel, error)
	CreateHotel(ctx context.Context, h *domain.Hotel) error
	UpdateHotel(ctx context.Context, id, partnerID int64, patch domain.HotelPatch) (*domain.Hotel, error)
	CreateRoom(ctx context.Context, room *domain.Room) error
	ListRooms(ctx context.Context, hotelID int64) ([]domain.Room, error)
	DeleteRoom(ctx context.Context, hotelID, roomID int64) (bool, error)
}

type hotelsRepository struct {
	pool *pgxpool.Pool
}

func NewHotelsRepository(pool *pgxpool.Pool) HotelsRepository {
	return &hotelsRepository{pool: pool}
}

const hotelCols = `id, partner_id, name, city, category, active, created_at`
const roomCols = `id, hotel_id, name, max_guests, nightly_rate, created_at`

func scanHotel(row pgx.Row) (*domain.Hotel, error) {
	var h domain.Hotel
	err := row.Scan(&h.ID, &h.PartnerID, &h.Name, &h.City, &h.Category, &h.Active, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var rm domain.Room
	err := row.Scan(&rm.ID, &rm.HotelID, &rm.Name, &rm.MaxGuests, &rm.NightlyRate, &rm.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *hotelsRepository) FirstActiveHotel(ctx context.Context, city string) (*domain.Hotel, error) {
	const q = `SELECT ` + hotelCols + ` FROM hotels
		WHERE active AND lower(city)=lower($1) ORDER BY id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	h, err := scanHotel(r.pool.QueryRow(ctx, q, city))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return h, err
}

func (r *hotelsRepository) FirstRoom(ctx context.Context, hotelID int64) (*domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE hotel_id=$1 ORDER BY id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rm, err := scanRoom(r.pool.QueryRow(ctx, q, hotelID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rm, err
}

func (r *hotelsRepository) GetHotel(ctx context.Context, id int64) (*domain.Hotel, error) {
	const q = `SELECT ` + hotelCols + ` FROM hotels WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	h, err := scanHotel(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return h, err
}

func (r *hotelsRepository) ListByPartner(ctx context.Context, partnerID int64) ([]domain.Hotel, error) {
	const q = `SELECT ` + hotelCols + ` FROM hotels WHERE partner_id=$1 ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hotels []domain.Hotel
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, err
		}
		hotels = append(hotels, *h)
	}
	return hotels, rows.Err()
}

func (r *hotelsRepository) CreateHotel(ctx context.Context, h *domain.Hotel) error {
	const q = `INSERT INTO hotels (partner_id, name, city, category, active, created_at)
		VALUES ($1,$2,$3,$4,$5,now()) RETURNING id, created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.pool.QueryRow(ctx, q, h.PartnerID, h.Name, h.City, h.Category, h.Active).
		Scan(&h.ID, &h.CreatedAt)
}

func (r *hotelsRepository) UpdateHotel(ctx context.Context, id, partnerID int64, patch domain.HotelPatch) (*domain.Hotel, error) {
	const q = `UPDATE hotels SET
			name     = COALESCE($3, name),
			city     = COALESCE($4, city),
			category = COALESCE($5, category),
			active   = COALESCE($6, active)
		WHERE id=$1 AND partner_id=$2
		RETURNING ` + hotelCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	h, err := scanHotel(r.pool.QueryRow(ctx, q, id, partnerID,
		patch.Name, patch.City, patch.Category, patch.Active))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return h, err
}

func (r *hotelsRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	const q = `INSERT INTO rooms (hotel_id, name, max_guests, nightly_rate, created_at)
		VALUES ($1,$2,$3,$4,now()) RETURNING id, created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.pool.QueryRow(ctx, q, room.HotelID, room.Name, room.MaxGuests, room.NightlyRate).
		Scan(&room.ID, &room.CreatedAt)
}

func (r *hotelsRepository) ListRooms(ctx context.Context, hotelID int64) ([]domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE hotel_id=$1 ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *rm)
	}
	return rooms, rows.Err()
}

func (r *hotelsRepository) DeleteRoom(ctx context.Context, hotelID, roomID int64) (bool, error) {
	const q = `DELETE FROM rooms WHERE id=$1 AND hotel_id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, roomID, hotelID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
