package fetcher

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cuongbtq/trade-insights/internal/widget"
)

const (
	sourceWPR         = "worldpopulationreview.com"
	sourceWPRCombined = "worldpopulationreview.com (scrape) + worldbank.org (api fallback)"
	noteWPR           = "Best-effort: WPR scrape first; missing geos filled using World Bank proxy (NE.CON.PRVT.PC.KD). Latest point only."
	noteWBFallback    = "Proxy: HH+NPISH final consumption expenditure per capita (constant 2015 US$) · Indicator NE.CON.PRVT.PC.KD · Latest non-null point."
	sourceWBAPI       = "worldbank.org (api)"
)

// wprAliases are the row labels a geography may appear under
var wprAliases = map[string][]string{
	"India":     {"India"},
	"Mexico":    {"Mexico"},
	"Singapore": {"Singapore"},
	"Hong Kong": {"Hong Kong", "Hong Kong SAR", "Hong Kong (China)", "Hong Kong SAR, China"},
	"Global":    {"World", "Global"},
}

var dollarAmount = regexp.MustCompile(`\$\s*([0-9]{1,3}(?:,[0-9]{3})+|[0-9]+)`)

func parseAmount(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return f, err == nil
}

// scrapeDisposable reads per-capita and per-household amounts from the table row of each geography
func scrapeDisposable(html string) map[string]widget.DisposableRow {
	rows := make(map[string]widget.DisposableRow)
	for _, geo := range widget.Geos {
		for _, name := range wprAliases[geo] {
			pat := regexp.MustCompile(fmt.Sprintf(`(?is)>\s*%s\s*(?:</[a-z]+>\s*)*?</td>(.*?)</tr>`, regexp.QuoteMeta(name)))
			m := pat.FindStringSubmatch(html)
			if m == nil {
				continue
			}
			nums := dollarAmount.FindAllStringSubmatch(m[1], 2)
			if len(nums) == 0 {
				continue
			}
			var row widget.DisposableRow
			if v, ok := parseAmount(nums[0][1]); ok {
				row.PerCapitaUSD = &v
			}
			if len(nums) > 1 {
				if v, ok := parseAmount(nums[1][1]); ok {
					row.PerHouseholdUSD = &v
				}
			}
			rows[geo] = row
			break
		}
	}
	return rows
}

// DisposableIncome scrapes WPR and fills missing geographies from the World Bank proxy
func (c *Client) DisposableIncome(ctx context.Context, force bool) *widget.DisposableIncome {
	out, _ := cached(ctx, c, "wpr:disposable_income_latest", c.ttl, force, func(ctx context.Context) (*widget.DisposableIncome, bool) {
		html, err := c.get(ctx, c.wprURL, requestOptions{})
		if err != nil {
			return &widget.DisposableIncome{
				OK:     false,
				Source: sourceWPR,
				Link:   c.wprURL,
				Rows:   map[string]widget.DisposableRow{},
				Error:  err.Error(),
			}, false
		}

		rows := scrapeDisposable(html)

		var missing []string
		codeToGeo := make(map[string]string)
		for _, geo := range widget.Geos {
			if _, ok := rows[geo]; ok {
				continue
			}
			code := widget.GeoToISO2[geo]
			missing = append(missing, code)
			codeToGeo[code] = geo
		}

		fallback := &widget.FallbackInfo{OK: true}
		if len(missing) > 0 {
			wb := c.latestConsumptionPerCapita(ctx, missing, force)
			fallback = &widget.FallbackInfo{OK: wb.OK, Link: wb.Link, Source: sourceWBAPI, Note: noteWBFallback}
			for code, geo := range codeToGeo {
				if v, ok := wb.Values[code]; ok {
					rows[geo] = widget.DisposableRow{PerCapitaUSD: &v}
				}
			}
		}

		return &widget.DisposableIncome{
			OK:       true,
			Source:   sourceWPRCombined,
			Link:     c.wprURL,
			Note:     noteWPR,
			Rows:     rows,
			Fallback: fallback,
		}, true
	})
	return out
}
