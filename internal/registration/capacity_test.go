package registration

import (
	"context"
	"errors"
	"testing"

	"ms-registration/internal/rowsource"

	"github.com/stretchr/testify/assert"
)

func TestCapacityRemaining(t *testing.T) {
	gate := NewCapacityGate(newMemorySheet(120, 97), 100, testLogger())

	av := gate.Check(context.Background())
	assert.True(t, av.Available)
	assert.Equal(t, 97, av.CurrentCount)
	assert.Equal(t, 100, av.MaxLimit)
	assert.Equal(t, 3, av.Remaining)
	assert.Equal(t, "3 Poker Run spots remaining", av.Message)
}

func TestCapacityFull(t *testing.T) {
	gate := NewCapacityGate(newMemorySheet(100, 100), 100, testLogger())

	av := gate.Check(context.Background())
	assert.False(t, av.Available)
	assert.Equal(t, 0, av.Remaining)
	assert.Equal(t, "Poker Run is full", av.Message)
	assert.False(t, gate.IsAvailable(context.Background()))
}

func TestCapacityOverLimitClampsRemaining(t *testing.T) {
	gate := NewCapacityGate(newMemorySheet(12, 12), 10, testLogger())

	av := gate.Check(context.Background())
	assert.False(t, av.Available)
	assert.Equal(t, 12, av.CurrentCount)
	assert.Equal(t, 0, av.Remaining)
}

func TestCapacityIgnoresHeaderAndOtherValues(t *testing.T) {
	sheet := newMemorySheet(3, 1)
	sheet.rows[0][9] = PokerRunMarker // header cell never counts
	sheet.rows[2][9] = "yes"

	count, err := NewCapacityGate(sheet, 100, testLogger()).CurrentCount(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCapacityFailsOpen(t *testing.T) {
	sheet := newMemorySheet(0, 0)
	sheet.readErr = errors.New("429 quota exceeded")

	av := NewCapacityGate(sheet, 50, testLogger()).Check(context.Background())
	assert.True(t, av.Available)
	assert.Equal(t, 50, av.Remaining)
	assert.Equal(t, "Unable to check availability - assuming available", av.Message)
	assert.Contains(t, av.Error, "quota")
}

func TestCapacityUnconfigured(t *testing.T) {
	gate := NewCapacityGate(rowsource.Unconfigured{}, 0, testLogger())
	assert.Equal(t, 100, gate.Limit())

	av := gate.Check(context.Background())
	assert.True(t, av.Available)
	assert.Equal(t, 100, av.Remaining)
	assert.Equal(t, "Row source not configured - assuming available", av.Message)
	assert.Empty(t, av.Error)
}
