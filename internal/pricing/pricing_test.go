package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotal(t *testing.T) {
	calc := NewCalculator(nil)

	tests := []struct {
		name     string
		category int
		nights   int
		rooms    int
		want     int64
	}{
		{"two nights one room four star", 4, 2, 1, 400},
		{"one night one room three star", 3, 1, 1, 100},
		{"five star multi room", 5, 3, 2, 2100},
		{"zero nights clamps to one", 4, 0, 1, 200},
		{"negative nights clamps to one", 4, -3, 1, 200},
		{"zero rooms clamps to one", 3, 2, 0, 200},
		{"unknown category falls back to three star", 7, 1, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calc.ComputeTotal(tt.category, tt.nights, tt.rooms))
		})
	}
}

func TestComputeTotal_Monotonic(t *testing.T) {
	calc := NewCalculator(nil)

	for _, category := range []int{3, 4, 5} {
		prev := int64(0)
		for nights := 1; nights <= 30; nights++ {
			total := calc.ComputeTotal(category, nights, 1)
			require.Greater(t, total, prev, "total must grow with nights (category %d)", category)
			prev = total
		}

		prev = 0
		for rooms := 1; rooms <= 10; rooms++ {
			total := calc.ComputeTotal(category, 2, rooms)
			require.Greater(t, total, prev, "total must grow with rooms (category %d)", category)
			prev = total
		}
	}

	// Non-decreasing in category for the default table.
	require.LessOrEqual(t, calc.ComputeTotal(3, 2, 1), calc.ComputeTotal(4, 2, 1))
	require.LessOrEqual(t, calc.ComputeTotal(4, 2, 1), calc.ComputeTotal(5, 2, 1))
}

func TestComputeTotal_CustomTable(t *testing.T) {
	calc := NewCalculator(Table{3: 50, 4: 80, 5: 120})

	assert.Equal(t, int64(160), calc.ComputeTotal(4, 2, 1))
	assert.Equal(t, int64(80), calc.NightlyRate(4))
	assert.Equal(t, int64(50), calc.NightlyRate(9))
}
