package jobs

import (
	"time"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/insight"
	"github.com/cuongbtq/trade-insights/internal/widget"
)

// Deps are the collaborators of the built-in jobs
type Deps struct {
	Fetcher              Fetcher
	Store                Store
	Insights             InsightBatcher
	RetentionDays        int
	Timezone             string
	InsightsMisfireGrace time.Duration
	Now                  func() time.Time
}

// DefaultSpecs is the built-in job table
func DefaultSpecs(d Deps) []JobSpec {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	rec := NewSnapshotRecorder(d.Store, now)

	annual := func() Params {
		return Params{"geo_list": widget.AllGeos(), "years": 5, "end_year": nil, "force": false}
	}
	force := func() Params { return Params{"force": false} }

	return []JobSpec{
		{
			ID:            domain.JobTradeCorridors,
			Name:          "Trade Corridors Snapshot",
			Description:   "Refresh trade corridors summary (includes WCI extraction).",
			CronExpr:      "0 */6 * * *",
			Timezone:      d.Timezone,
			DefaultParams: Params{"force_wci": false},
			Body:          &tradeCorridorsJob{fetcher: d.Fetcher, recorder: rec},
		},
		{
			ID:            domain.JobTradeExim5y,
			Name:          "Trade Exim 5Y by Geo",
			Description:   "Refresh export/import series from World Bank WDI for configured geos.",
			CronExpr:      "15 2 * * *",
			Timezone:      d.Timezone,
			DefaultParams: annual(),
			Body:          &tradeEximJob{fetcher: d.Fetcher, recorder: rec, now: now},
		},
		{
			ID:            domain.JobWealthIndicators5y,
			Name:          "Wealth Indicators 5Y by Geo",
			Description:   "Refresh GDP per capita and consumption 5Y series for configured geos.",
			CronExpr:      "30 2 * * *",
			Timezone:      d.Timezone,
			DefaultParams: annual(),
			Body:          &wealthIndicatorsJob{fetcher: d.Fetcher, recorder: rec, now: now},
		},
		{
			ID:            domain.JobWealthDisposableLatest,
			Name:          "Disposable Income Latest",
			Description:   "Refresh latest disposable-income-like snapshot from WPR with WB fallback.",
			CronExpr:      "45 2 * * *",
			Timezone:      d.Timezone,
			DefaultParams: force(),
			Body:          &wealthDisposableJob{fetcher: d.Fetcher, recorder: rec},
		},
		{
			ID:            domain.JobWealthAgeStructureLatest,
			Name:          "Age Structure Latest",
			Description:   "Refresh latest age-structure (% population) snapshot from World Bank WDI.",
			CronExpr:      "50 2 * * *",
			Timezone:      d.Timezone,
			DefaultParams: Params{"geo_list": widget.AllGeos(), "end_year": nil, "lookback_years": 20, "force": false},
			Body:          &wealthAgeStructureJob{fetcher: d.Fetcher, recorder: rec, now: now},
		},
		{
			ID:            domain.JobFinanceMAIndustry,
			Name:          "Finance M&A by Industry",
			Description:   "Refresh IMAA industry ranking snapshot.",
			CronExpr:      "10 3 * * *",
			Timezone:      d.Timezone,
			DefaultParams: force(),
			Body:          &financeIndustryJob{fetcher: d.Fetcher, recorder: rec},
		},
		{
			ID:            domain.JobFinanceMACountry,
			Name:          "Finance M&A by Country",
			Description:   "Refresh IMAA country snapshot.",
			CronExpr:      "20 3 * * *",
			Timezone:      d.Timezone,
			DefaultParams: force(),
			Body:          &financeCountryJob{fetcher: d.Fetcher, recorder: rec},
		},
		{
			ID:            domain.JobCleanupSnapshots,
			Name:          "Cleanup Snapshots",
			Description:   "Delete snapshot and run logs older than configured retention days.",
			CronExpr:      "0 4 * * *",
			Timezone:      d.Timezone,
			DefaultParams: Params{"keep_days": d.RetentionDays, "preserve_latest": true},
			Body:          &cleanupJob{snapshots: d.Store, runs: d.Store, retentionDays: d.RetentionDays, now: now},
		},
		{
			ID:            domain.JobGenerateHomepageInsights,
			Name:          "Generate Homepage Insights",
			Description:   "Generate Insights text for homepage cards/tabs and save to DB.",
			CronExpr:      "0 5 * * *",
			Timezone:      d.Timezone,
			DefaultParams: Params{"langs": []string{insight.LangEnglish}, "all_geos": false, "force": false},
			MisfireGrace:  d.InsightsMisfireGrace,
			Body:          &insightsJob{batcher: d.Insights},
		},
	}
}
