package insight

import (
	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/widget"
)

// Card keys
const (
	CardTradeFlow = "trade_flow"
	CardWealth    = "wealth"
	CardFinance   = "finance"
)

// Input is one decoded snapshot feeding a tab
type Input struct {
	Snapshot model.WidgetSnapshot
	Payload  widget.Payload
}

// Tab is one dashboard panel that gets an insight
type Tab struct {
	CardKey     string
	TabKey      string
	// PerGeo tabs are generated once per geography, the others once with the global scope
	PerGeo      bool
	// Inputs are the widget keys whose latest snapshots feed the tab
	Inputs      []string
	// ContextURLs are public pages quoted as extra context
	ContextURLs []string
	// Project builds the display-oriented view of the inputs
	Project     func(in []Input) any
}

var tabs = []Tab{
	{CardKey: CardTradeFlow, TabKey: "corridors", Inputs: []string{widget.KeyTradeCorridors}, Project: projectCorridors},
	{CardKey: CardTradeFlow, TabKey: "wci", Inputs: []string{widget.KeyTradeCorridors}, ContextURLs: []string{widget.DrewryWCIURL}, Project: projectWCI},
	{CardKey: CardTradeFlow, TabKey: "exim", PerGeo: true, Inputs: []string{widget.KeyTradeExim5y}, Project: projectExim},
	{CardKey: CardTradeFlow, TabKey: "balance", PerGeo: true, Inputs: []string{widget.KeyTradeExim5y}, Project: projectBalance},
	{CardKey: CardWealth, TabKey: "gdp_pc", PerGeo: true, Inputs: []string{widget.KeyWealthIndicators5y}, Project: projectGDPPerCapita},
	{CardKey: CardWealth, TabKey: "cons", PerGeo: true, Inputs: []string{widget.KeyWealthIndicators5y}, Project: projectConsumption},
	{CardKey: CardWealth, TabKey: "age", PerGeo: true, Inputs: []string{widget.KeyAgeStructureLatest}, Project: projectAge},
	{CardKey: CardWealth, TabKey: "disp_pc", Inputs: []string{widget.KeyDisposableLatest}, Project: projectDisposablePerCapita},
	{CardKey: CardWealth, TabKey: "disp_hh", Inputs: []string{widget.KeyDisposableLatest}, Project: projectDisposablePerHousehold},
	{CardKey: CardFinance, TabKey: "industry", Inputs: []string{widget.KeyFinanceMAIndustry}, ContextURLs: []string{widget.IMAAIndustryURL}, Project: projectIndustry},
	{CardKey: CardFinance, TabKey: "country", Inputs: []string{widget.KeyFinanceMACountry}, ContextURLs: []string{widget.IMAACountryURL}, Project: projectCountry},
}

// Tabs returns every panel in display order
func Tabs() []Tab {
	out := make([]Tab, len(tabs))
	copy(out, tabs)
	return out
}

// FindTab looks up a panel
func FindTab(cardKey, tabKey string) (Tab, bool) {
	for _, t := range tabs {
		if t.CardKey == cardKey && t.TabKey == tabKey {
			return t, true
		}
	}
	return Tab{}, false
}

// CardKeys is the allow-list of card filters
func CardKeys() []string {
	return []string{CardTradeFlow, CardWealth, CardFinance}
}

// TabKeys is the allow-list of tab filters, in catalog order
func TabKeys() []string {
	keys := make([]string, 0, len(tabs))
	for _, t := range tabs {
		keys = append(keys, t.TabKey)
	}
	return keys
}

// SelectTabs filters the catalog by card and tab; empty filters match everything
func SelectTabs(cardKey, tabKey string) []Tab {
	var out []Tab
	for _, t := range tabs {
		if cardKey != "" && t.CardKey != cardKey {
			continue
		}
		if tabKey != "" && t.TabKey != tabKey {
			continue
		}
		out = append(out, t)
	}
	return out
}
