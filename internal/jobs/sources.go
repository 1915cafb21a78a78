package jobs

import (
	"context"

	"github.com/cuongbtq/trade-insights/internal/widget"
)

// Fetcher pulls one upstream series per call. Failures come back inside the
// payload (OK false, Error or Errors set), never as an error.
type Fetcher interface {
	TradeCorridors(ctx context.Context, forceWCI bool) *widget.TradeCorridors
	TradeExim(ctx context.Context, country string, endYear, years int, force bool) *widget.TradeExim
	WealthIndicators(ctx context.Context, country string, endYear, years int, force bool) *widget.WealthIndicators
	DisposableIncome(ctx context.Context, force bool) *widget.DisposableIncome
	AgeStructure(ctx context.Context, country string, endYear, lookbackYears int, force bool) *widget.AgeStructure
	MAIndustry(ctx context.Context, force bool) *widget.MAIndustry
	MACountry(ctx context.Context, force bool) *widget.MACountry
}
