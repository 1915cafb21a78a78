package insight

import (
	"sort"

	"github.com/cuongbtq/trade-insights/internal/widget"
)

const maxRankedRows = 10

func payloadOf[T widget.Payload](in []Input) (T, bool) {
	for _, i := range in {
		if p, ok := i.Payload.(T); ok {
			return p, true
		}
	}
	var zero T
	return zero, false
}

func projectCorridors(in []Input) any {
	p, ok := payloadOf[*widget.TradeCorridors](in)
	if !ok {
		return nil
	}
	value := make([]map[string]any, 0, len(p.ValueUSDTop))
	for _, c := range p.ValueUSDTop {
		value = append(value, map[string]any{"rank": c.Rank, "corridor": c.Origin + "->" + c.Dest, "value_usd": c.ValueUSD})
	}
	volume := make([]map[string]any, 0, len(p.VolumeTop))
	for _, c := range p.VolumeTop {
		volume = append(volume, map[string]any{"rank": c.Rank, "corridor": c.Origin + "->" + c.Dest, "volume_kg": c.VolumeKg})
	}
	return map[string]any{
		"value_usd_top": value,
		"volume_top":    volume,
		"notes":         p.Notes,
	}
}

func projectWCI(in []Input) any {
	p, ok := payloadOf[*widget.TradeCorridors](in)
	if !ok || p.WCI == nil {
		return map[string]any{"available": false}
	}
	return map[string]any{
		"available":          p.WCI.ValueUSDPer40ft != nil,
		"period":             p.WCI.Period,
		"value_usd_per_40ft": p.WCI.ValueUSDPer40ft,
		"commentary":         p.WCI.Commentary,
		"stale":              p.WCI.Stale,
		"error":              p.WCI.Error,
	}
}

func projectExim(in []Input) any {
	p, ok := payloadOf[*widget.TradeExim](in)
	if !ok {
		return nil
	}
	rows := make([]map[string]any, 0, len(p.Series))
	for _, r := range p.Series {
		rows = append(rows, map[string]any{"period": r.Period, "export_usd": r.ExportUSD, "import_usd": r.ImportUSD})
	}
	return map[string]any{"geo": p.Geo, "series": rows, "latest_period": p.LatestPeriod()}
}

func projectBalance(in []Input) any {
	p, ok := payloadOf[*widget.TradeExim](in)
	if !ok {
		return nil
	}
	rows := make([]map[string]any, 0, len(p.Series))
	for _, r := range p.Series {
		rows = append(rows, map[string]any{"period": r.Period, "balance_usd": r.BalanceUSD})
	}
	return map[string]any{"geo": p.Geo, "series": rows, "definition": "export minus import"}
}

func projectGDPPerCapita(in []Input) any {
	p, ok := payloadOf[*widget.WealthIndicators](in)
	if !ok {
		return nil
	}
	rows := make([]map[string]any, 0, len(p.Series))
	for _, r := range p.Series {
		rows = append(rows, map[string]any{"period": r.Period, "gdp_per_capita_usd": r.GDPPerCapitaUSD})
	}
	return map[string]any{"geo": p.Geo, "series": rows, "unit": "current USD"}
}

func projectConsumption(in []Input) any {
	p, ok := payloadOf[*widget.WealthIndicators](in)
	if !ok {
		return nil
	}
	rows := make([]map[string]any, 0, len(p.Series))
	for _, r := range p.Series {
		rows = append(rows, map[string]any{"period": r.Period, "consumption_expenditure_usd": r.ConsumptionExpenditureUSD})
	}
	return map[string]any{"geo": p.Geo, "series": rows, "unit": "current USD"}
}

func projectAge(in []Input) any {
	p, ok := payloadOf[*widget.AgeStructure](in)
	if !ok {
		return nil
	}
	return map[string]any{
		"geo":             p.Geo,
		"period":          p.Period,
		"rows":            p.Rows,
		"working_age_pct": p.WorkingAgePct(),
	}
}

func disposableRows(p *widget.DisposableIncome, pick func(widget.DisposableRow) *float64) []map[string]any {
	geos := make([]string, 0, len(p.Rows))
	for geo := range p.Rows {
		geos = append(geos, geo)
	}
	sort.Strings(geos)

	rows := make([]map[string]any, 0, len(geos))
	for _, geo := range geos {
		rows = append(rows, map[string]any{"geo": geo, "value_usd": pick(p.Rows[geo])})
	}
	return rows
}

func projectDisposablePerCapita(in []Input) any {
	p, ok := payloadOf[*widget.DisposableIncome](in)
	if !ok {
		return nil
	}
	return map[string]any{
		"measure":       "per capita",
		"rows":          disposableRows(p, func(r widget.DisposableRow) *float64 { return r.PerCapitaUSD }),
		"note":          p.Note,
		"fallback_used": p.Fallback != nil && p.Fallback.OK,
	}
}

func projectDisposablePerHousehold(in []Input) any {
	p, ok := payloadOf[*widget.DisposableIncome](in)
	if !ok {
		return nil
	}
	return map[string]any{
		"measure": "per household",
		"rows":    disposableRows(p, func(r widget.DisposableRow) *float64 { return r.PerHouseholdUSD }),
		"note":    p.Note,
	}
}

func projectIndustry(in []Input) any {
	p, ok := payloadOf[*widget.MAIndustry](in)
	if !ok {
		return nil
	}
	rows := p.Rows
	if len(rows) > maxRankedRows {
		rows = rows[:maxRankedRows]
	}
	return map[string]any{"rows": rows, "currency": p.Currency, "unit": p.Unit}
}

func projectCountry(in []Input) any {
	p, ok := payloadOf[*widget.MACountry](in)
	if !ok {
		return nil
	}
	rows := p.Rows
	if len(rows) > maxRankedRows {
		rows = rows[:maxRankedRows]
	}
	return map[string]any{"rows": rows, "warnings": p.Warnings}
}
