package availability

import (
	"context"

	"github.com/miqat/umrah-bookings/internal/domain"
)

// InventoryFinder is the slice of the hotels repository the resolver needs.
type InventoryFinder interface {
	FirstActiveHotel(ctx context.Context, city string) (*domain.Hotel, error)
	FirstRoom(ctx context.Context, hotelID int64) (*domain.Room, error)
}

// Resolver picks inventory for a submission: the first active hotel in the
// requested city, then that hotel's first registered room type.
//
// There is no room-night occupancy ledger: two simultaneous leads can
// reserve the same room and date range. Known limitation, carried over
// deliberately.
type Resolver struct {
	hotels InventoryFinder
}

func NewResolver(hotels InventoryFinder) *Resolver {
	return &Resolver{hotels: hotels}
}

// Reserve resolves a hotel/room pair for the city. It has no side effects;
// inventory counters are not decremented.
func (r *Resolver) Reserve(ctx context.Context, city string) (*domain.Hotel, *domain.Room, error) {
	hotel, err := r.hotels.FirstActiveHotel(ctx, city)
	if err != nil {
		return nil, nil, err
	}
	if hotel == nil {
		return nil, nil, &domain.NoInventoryError{City: city}
	}

	room, err := r.hotels.FirstRoom(ctx, hotel.ID)
	if err != nil {
		return nil, nil, err
	}
	if room == nil {
		return nil, nil, &domain.NoInventoryError{City: city}
	}

	return hotel, room, nil
}
