package clock

import "time"

// Clock abstracts the time source so the voucher window and the expiry
// sweep can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func System() Clock { return systemClock{} }
