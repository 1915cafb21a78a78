package domain

// Run status constants
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
	RunStatusSkipped = "skipped"
)

// Trigger sources recorded on every run
const (
	TriggeredByScheduler = "scheduler"
	TriggeredByManual    = "manual"
	TriggeredByStartup   = "startup"
	TriggeredByAPI       = "api"
)

// Job identifiers of the static job table
const (
	JobTradeCorridors           = "trade_corridors"
	JobTradeExim5y              = "trade_exim_5y"
	JobWealthIndicators5y       = "wealth_indicators_5y"
	JobWealthDisposableLatest   = "wealth_disposable_latest"
	JobWealthAgeStructureLatest = "wealth_age_structure_latest"
	JobFinanceMAIndustry        = "finance_ma_industry"
	JobFinanceMACountry         = "finance_ma_country"
	JobCleanupSnapshots         = "cleanup_snapshots"
	JobGenerateHomepageInsights = "generate_homepage_insights"
)

// ScopeGlobal is the scope of aggregate, non-geographic snapshots and insights
const ScopeGlobal = "global"

// GeneratedByLLM marks insight rows produced by the text generator
const GeneratedByLLM = "llm"

// NormalizeTriggeredBy maps unknown trigger sources to manual
func NormalizeTriggeredBy(v string) string {
	switch v {
	case TriggeredByScheduler, TriggeredByManual, TriggeredByStartup, TriggeredByAPI:
		return v
	default:
		return TriggeredByManual
	}
}

// IsTerminalStatus reports whether a run status is final
func IsTerminalStatus(status string) bool {
	return status == RunStatusSuccess || status == RunStatusFailed || status == RunStatusSkipped
}

// IsValidRunStatus reports whether status is one of the run statuses
func IsValidRunStatus(status string) bool {
	return status == RunStatusRunning || IsTerminalStatus(status)
}
