package widget

// Upstream pages scraped by the fetchers and quoted as prompt context
const (
	DrewryWCIURL     = "https://www.drewry.co.uk/supply-chain-advisors/supply-chain-expertise/world-container-index-assessed-by-drewry"
	IMAAIndustryURL  = "https://imaa-institute.org/mergers-and-acquisitions-statistics/ma-statistics-by-industries/"
	IMAACountryURL   = "https://imaa-institute.org/mergers-and-acquisitions-statistics/ma-statistics-by-countries/"
	WPRDisposableURL = "https://worldpopulationreview.com/country-rankings/disposable-income-by-country"
)
