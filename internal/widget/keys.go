// Package widget defines the dashboard data series, their geographies and payload shapes.
package widget

// Widget keys, one per snapshot series
const (
	KeyTradeCorridors     = "trade_corridors"
	KeyTradeExim5y        = "trade_exim_5y"
	KeyWealthIndicators5y = "wealth_indicators_5y"
	KeyDisposableLatest   = "wealth_disposable_latest"
	KeyAgeStructureLatest = "wealth_age_structure_latest"
	KeyFinanceMAIndustry  = "finance_ma_industry"
	KeyFinanceMACountry   = "finance_ma_country"
)

// Geography names accepted in job parameters, in display order
var Geos = []string{"Global", "India", "Mexico", "Singapore", "Hong Kong"}

// GeoToWDI maps a geography to its World Bank WDI country code
var GeoToWDI = map[string]string{
	"Global":    "WLD",
	"India":     "IND",
	"Mexico":    "MEX",
	"Singapore": "SGP",
	"Hong Kong": "HKG",
}

// GeoToISO2 maps a geography to the two-letter code used by the per-capita consumption endpoint
var GeoToISO2 = map[string]string{
	"Global":    "WLD",
	"India":     "IN",
	"Mexico":    "MX",
	"Singapore": "SG",
	"Hong Kong": "HK",
}

// AllGeos returns a fresh copy of Geos
func AllGeos() []string {
	out := make([]string, len(Geos))
	copy(out, Geos)
	return out
}
