package fetcher

import (
	"context"

	"github.com/cuongbtq/trade-insights/internal/widget"
)

const sourceCorridorsStub = "MVP stub (planned: UN Comtrade / IMF DOTS)"

// TradeCorridors returns the placeholder corridor rankings with a live WCI block
func (c *Client) TradeCorridors(ctx context.Context, forceWCI bool) *widget.TradeCorridors {
	return &widget.TradeCorridors{
		Source:    sourceCorridorsStub,
		UpdatedAt: c.now().UTC().Format("2006-01-02 15:04 UTC"),
		ValueUSDTop: []widget.CorridorValue{
			{Rank: 1, Origin: "CN", Dest: "US", ValueUSD: 575e9},
			{Rank: 2, Origin: "DE", Dest: "US", ValueUSD: 160e9},
			{Rank: 3, Origin: "MX", Dest: "US", ValueUSD: 155e9},
		},
		VolumeTop: []widget.CorridorVolume{
			{Rank: 1, Origin: "CN", Dest: "US", VolumeKg: 92e9},
			{Rank: 2, Origin: "CN", Dest: "VN", VolumeKg: 45e9},
			{Rank: 3, Origin: "US", Dest: "CA", VolumeKg: 40e9},
		},
		Notes: []string{
			"Value and volume are shown separately; volume may be missing for some corridors in real data.",
			"Update cadence target: monthly/quarterly depending on source availability.",
		},
		WCI: c.WCI(ctx, forceWCI),
	}
}
