package widget

import (
	"encoding/json"
	"fmt"
)

// Payload is the decoded body of a snapshot
type Payload interface {
	// WidgetKey names the series the payload belongs to
	WidgetKey() string
	// Healthy is false when the upstream fetch failed or degraded
	Healthy() bool
	// SourceLabel is the human-readable provenance
	SourceLabel() string
}

// CorridorValue is a trade corridor ranked by customs value
type CorridorValue struct {
	Rank     int     `json:"rank"`
	Origin   string  `json:"origin"`
	Dest     string  `json:"dest"`
	ValueUSD float64 `json:"value_usd"`
}

// CorridorVolume is a trade corridor ranked by shipped weight
type CorridorVolume struct {
	Rank     int     `json:"rank"`
	Origin   string  `json:"origin"`
	Dest     string  `json:"dest"`
	VolumeKg float64 `json:"volume_kg"`
}

// WCI is the Drewry World Container Index headline
type WCI struct {
	Source          string  `json:"source"`
	Link            string  `json:"link"`
	Period          *string `json:"period"`
	ValueUSDPer40ft *int    `json:"value_usd_per_40ft"`
	Commentary      string  `json:"commentary"`
	Cached          bool    `json:"cached,omitempty"`
	Stale           bool    `json:"stale,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// TradeCorridors is the trade_corridors payload
type TradeCorridors struct {
	Source      string           `json:"source"`
	UpdatedAt   string           `json:"updated_at"`
	ValueUSDTop []CorridorValue  `json:"value_usd_top"`
	VolumeTop   []CorridorVolume `json:"volume_top"`
	Notes       []string         `json:"notes"`
	WCI         *WCI             `json:"wci,omitempty"`
}

func (p *TradeCorridors) WidgetKey() string   { return KeyTradeCorridors }
func (p *TradeCorridors) Healthy() bool       { return p.WCI == nil || p.WCI.Error == "" }
func (p *TradeCorridors) SourceLabel() string { return p.Source }

// EximPoint is one annual export/import observation
type EximPoint struct {
	Period     string   `json:"period"`
	ExportUSD  *float64 `json:"export_usd"`
	ImportUSD  *float64 `json:"import_usd"`
	BalanceUSD *float64 `json:"balance_usd"`
}

// TradeExim is the trade_exim_5y payload
type TradeExim struct {
	Source    string      `json:"source"`
	Frequency string      `json:"frequency"`
	Country   string      `json:"country"`
	Geo       string      `json:"geo"`
	Date      string      `json:"date"`
	OK        bool        `json:"ok"`
	Errors    []string    `json:"errors"`
	Series    []EximPoint `json:"series"`
}

func (p *TradeExim) WidgetKey() string   { return KeyTradeExim5y }
func (p *TradeExim) Healthy() bool       { return p.OK }
func (p *TradeExim) SourceLabel() string { return p.Source }

// LatestPeriod is the newest period with an export or import value
func (p *TradeExim) LatestPeriod() string {
	for i := len(p.Series) - 1; i >= 0; i-- {
		if p.Series[i].ExportUSD != nil || p.Series[i].ImportUSD != nil {
			return p.Series[i].Period
		}
	}
	return ""
}

// WealthPoint is one annual GDP per capita and consumption observation
type WealthPoint struct {
	Period                    string   `json:"period"`
	GDPPerCapitaUSD           *float64 `json:"gdp_per_capita_usd"`
	ConsumptionExpenditureUSD *float64 `json:"consumption_expenditure_usd"`
}

// WealthIndicators is the wealth_indicators_5y payload
type WealthIndicators struct {
	Source    string        `json:"source"`
	Frequency string        `json:"frequency"`
	Country   string        `json:"country"`
	Geo       string        `json:"geo"`
	Date      string        `json:"date"`
	OK        bool          `json:"ok"`
	Errors    []string      `json:"errors"`
	Series    []WealthPoint `json:"series"`
}

func (p *WealthIndicators) WidgetKey() string   { return KeyWealthIndicators5y }
func (p *WealthIndicators) Healthy() bool       { return p.OK }
func (p *WealthIndicators) SourceLabel() string { return p.Source }

// LatestPeriod is the newest period with a GDP or consumption value
func (p *WealthIndicators) LatestPeriod() string {
	for i := len(p.Series) - 1; i >= 0; i-- {
		if p.Series[i].GDPPerCapitaUSD != nil || p.Series[i].ConsumptionExpenditureUSD != nil {
			return p.Series[i].Period
		}
	}
	return ""
}

// DisposableRow holds disposable income values for one geography
type DisposableRow struct {
	PerCapitaUSD    *float64 `json:"per_capita_usd"`
	PerHouseholdUSD *float64 `json:"per_household_usd"`
}

// FallbackInfo describes the secondary source used to fill gaps
type FallbackInfo struct {
	OK     bool   `json:"ok"`
	Link   string `json:"link,omitempty"`
	Source string `json:"source,omitempty"`
	Note   string `json:"note,omitempty"`
}

// DisposableIncome is the wealth_disposable_latest payload
type DisposableIncome struct {
	OK       bool                     `json:"ok"`
	Source   string                   `json:"source"`
	Link     string                   `json:"link"`
	Note     string                   `json:"note,omitempty"`
	Rows     map[string]DisposableRow `json:"rows"`
	Fallback *FallbackInfo            `json:"fallback,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

func (p *DisposableIncome) WidgetKey() string   { return KeyDisposableLatest }
func (p *DisposableIncome) Healthy() bool       { return p.OK }
func (p *DisposableIncome) SourceLabel() string { return p.Source }

// AgeBucket is the population share of one age band
type AgeBucket struct {
	Label string   `json:"label"`
	Pct   *float64 `json:"pct"`
}

// AgeStructure is the wealth_age_structure_latest payload
type AgeStructure struct {
	Source  string      `json:"source"`
	Country string      `json:"country"`
	Geo     string      `json:"geo"`
	Period  string      `json:"period"`
	OK      bool        `json:"ok"`
	Errors  []string    `json:"errors"`
	Rows    []AgeBucket `json:"rows"`
}

func (p *AgeStructure) WidgetKey() string   { return KeyAgeStructureLatest }
func (p *AgeStructure) Healthy() bool       { return p.OK }
func (p *AgeStructure) SourceLabel() string { return p.Source }

// WorkingAgePct returns the 15-64 share if present
func (p *AgeStructure) WorkingAgePct() *float64 {
	for _, r := range p.Rows {
		if r.Label == "15-64" {
			return r.Pct
		}
	}
	return nil
}

// IndustryRow is one line of the M&A industry ranking
type IndustryRow struct {
	Rank        int      `json:"rank"`
	Industry    string   `json:"industry"`
	Deals       *int     `json:"deals"`
	ValueUSDBil *float64 `json:"value_usd_bil"`
}

// MAIndustry is the finance_ma_industry payload
type MAIndustry struct {
	OK       bool          `json:"ok"`
	Source   string        `json:"source"`
	Link     string        `json:"link"`
	Currency string        `json:"currency,omitempty"`
	Unit     string        `json:"unit,omitempty"`
	Rows     []IndustryRow `json:"rows"`
	Note     string        `json:"note,omitempty"`
	Error    string        `json:"error,omitempty"`
}

func (p *MAIndustry) WidgetKey() string   { return KeyFinanceMAIndustry }
func (p *MAIndustry) Healthy() bool       { return p.OK }
func (p *MAIndustry) SourceLabel() string { return p.Source }

// CountryRow is the cumulative M&A activity of one country
type CountryRow struct {
	Country   string  `json:"country"`
	SinceYear int     `json:"since_year"`
	Deals     int     `json:"deals"`
	ValueBil  float64 `json:"value_bil"`
	Currency  string  `json:"currency"`
	ValueUnit string  `json:"value_unit"`
}

// MACountry is the finance_ma_country payload
type MACountry struct {
	OK       bool         `json:"ok"`
	Source   string       `json:"source"`
	Link     string       `json:"link"`
	Rows     []CountryRow `json:"rows"`
	Note     string       `json:"note,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
	Error    string       `json:"error,omitempty"`
}

func (p *MACountry) WidgetKey() string   { return KeyFinanceMACountry }
func (p *MACountry) Healthy() bool       { return p.OK }
func (p *MACountry) SourceLabel() string { return p.Source }

// Decode maps a stored payload back to the shape of its widget key
func Decode(widgetKey string, raw []byte) (Payload, error) {
	var p Payload
	switch widgetKey {
	case KeyTradeCorridors:
		p = &TradeCorridors{}
	case KeyTradeExim5y:
		p = &TradeExim{}
	case KeyWealthIndicators5y:
		p = &WealthIndicators{}
	case KeyDisposableLatest:
		p = &DisposableIncome{}
	case KeyAgeStructureLatest:
		p = &AgeStructure{}
	case KeyFinanceMAIndustry:
		p = &MAIndustry{}
	case KeyFinanceMACountry:
		p = &MACountry{}
	default:
		return nil, fmt.Errorf("unknown widget key: %s", widgetKey)
	}

	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", widgetKey, err)
	}
	return p, nil
}
