package registration

import (
	"context"
	"fmt"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/rowsource"
)

// CapacityGate answers whether the Poker Run has room for one more participant.
// Any read failure is treated as full availability.
type CapacityGate struct {
	src    rowsource.RowSource
	limit  int
	column string
	marker string
	logger *logger.Logger
}

func NewCapacityGate(src rowsource.RowSource, limit int, log *logger.Logger) *CapacityGate {
	if src == nil {
		src = rowsource.Unconfigured{}
	}
	if limit <= 0 {
		limit = 100
	}
	return &CapacityGate{
		src:    src,
		limit:  limit,
		column: ColPokerRun,
		marker: PokerRunMarker,
		logger: log,
	}
}

func (g *CapacityGate) Limit() int { return g.limit }

// CurrentCount counts marker cells below the header.
func (g *CapacityGate) CurrentCount(ctx context.Context) (int, error) {
	cells, err := g.src.ReadColumn(ctx, g.column)
	if err != nil {
		return 0, err
	}
	return countMarkers(cells, g.marker), nil
}

// Check returns the availability snapshot. It never returns an error; a
// failed read yields available with the whole limit remaining and an
// advisory message.
func (g *CapacityGate) Check(ctx context.Context) models.Availability {
	count, err := g.CurrentCount(ctx)
	if err != nil {
		outcome := Classify(err)
		av := models.Availability{
			Available:    true,
			CurrentCount: 0,
			MaxLimit:     g.limit,
			Remaining:    g.limit,
		}
		if outcome.Kind == KindConfigurationMissing {
			av.Message = "Row source not configured - assuming available"
		} else {
			av.Message = "Unable to check availability - assuming available"
			av.Error = err.Error()
		}
		g.logger.Warn("CAPACITY", fmt.Sprintf("Poker Run count unavailable, failing open: %s", outcome))
		return av
	}

	remaining := g.limit - count
	if remaining < 0 {
		remaining = 0
	}
	av := models.Availability{
		Available:    remaining > 0,
		CurrentCount: count,
		MaxLimit:     g.limit,
		Remaining:    remaining,
	}
	if av.Available {
		av.Message = fmt.Sprintf("%d Poker Run spots remaining", remaining)
	} else {
		av.Message = "Poker Run is full"
	}
	return av
}

func (g *CapacityGate) IsAvailable(ctx context.Context) bool {
	return g.Check(ctx).Available
}

func countMarkers(cells []string, marker string) int {
	count := 0
	for i, v := range cells {
		if i == 0 {
			continue
		}
		if v == marker {
			count++
		}
	}
	return count
}
