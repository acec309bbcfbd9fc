package pricing

// Table maps a hotel star category to its base nightly rate.
type Table map[int]int64

func DefaultTable() Table {
	return Table{
		3: 100,
		4: 200,
		5: 350,
	}
}

// Calculator computes lead totals. Pure and deterministic; input validation
// belongs to the caller.
type Calculator struct {
	rates Table
}

func NewCalculator(rates Table) *Calculator {
	if len(rates) == 0 {
		rates = DefaultTable()
	}
	return &Calculator{rates: rates}
}

// ComputeTotal returns baseRate(category) * nights * rooms.
//
// Nights below 1 are clamped to 1 so incomplete guest input still prices a
// minimum stay; the submission path rejects bad date ranges before pricing.
// Rooms below 1 are clamped the same way. An unknown category falls back to
// the 3-star rate.
func (c *Calculator) ComputeTotal(category, nights, rooms int) int64 {
	if nights < 1 {
		nights = 1
	}
	if rooms < 1 {
		rooms = 1
	}

	rate, ok := c.rates[category]
	if !ok {
		rate = c.rates[3]
	}

	return rate * int64(nights) * int64(rooms)
}

// NightlyRate exposes the base rate for a category, used when a room has no
// rate override.
func (c *Calculator) NightlyRate(category int) int64 {
	if rate, ok := c.rates[category]; ok {
		return rate
	}
	return c.rates[3]
}
