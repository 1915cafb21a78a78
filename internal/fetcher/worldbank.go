package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/trade-insights/internal/widget"
)

// World Bank WDI indicators
const (
	indicatorExports       = "NE.EXP.GNFS.CD"
	indicatorImports       = "NE.IMP.GNFS.CD"
	indicatorGDPPerCapita  = "NY.GDP.PCAP.CD"
	indicatorConsumption   = "NE.CON.PRVT.CD"
	indicatorConsumptionPC = "NE.CON.PRVT.PC.KD"
	indicatorAge0014       = "SP.POP.0014.TO.ZS"
	indicatorAge1564       = "SP.POP.1564.TO.ZS"
	indicatorAge65Up       = "SP.POP.65UP.TO.ZS"

	sourceWDI = "World Bank WDI"
)

type wdiPoint struct {
	Period string   `json:"period"`
	Value  *float64 `json:"value"`
}

type wdiSeries struct {
	OK     bool       `json:"ok"`
	Points []wdiPoint `json:"points"`
	Error  string     `json:"error,omitempty"`
}

type wdiRow struct {
	Date    string   `json:"date"`
	Value   *float64 `json:"value"`
	Country struct {
		ID string `json:"id"`
	} `json:"country"`
	ISO3 string `json:"countryiso3code"`
}

// parseWDI decodes the [meta, rows] envelope of the WDI API
func parseWDI(body string) ([]wdiRow, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, err
	}
	if len(envelope) < 2 {
		// an error message or an empty result comes back as a single meta element
		return nil, nil
	}
	var rows []wdiRow
	if err := json.Unmarshal(envelope[1], &rows); err != nil {
		// data is null for unknown series
		return nil, nil
	}
	return rows, nil
}

func dateRange(endYear, years int) string {
	return fmt.Sprintf("%d:%d", endYear-years+1, endYear)
}

func (c *Client) wdiURL(countries, indicator string, q url.Values) string {
	return fmt.Sprintf("%s/country/%s/indicator/%s?%s", c.worldBankURL, countries, indicator, q.Encode())
}

// wdiIndicator fetches one annual series, ascending by period
func (c *Client) wdiIndicator(ctx context.Context, country, indicator, date string, force bool) wdiSeries {
	key := fmt.Sprintf("wdi:%s:%s:%s", country, indicator, date)
	s, _ := cached(ctx, c, key, c.ttl, force, func(ctx context.Context) (*wdiSeries, bool) {
		q := url.Values{}
		q.Set("format", "json")
		q.Set("per_page", "200")
		q.Set("date", date)

		body, err := c.get(ctx, c.wdiURL(country, indicator, q), requestOptions{})
		if err != nil {
			return &wdiSeries{Points: []wdiPoint{}, Error: err.Error()}, false
		}
		rows, err := parseWDI(body)
		if err != nil {
			return &wdiSeries{Points: []wdiPoint{}, Error: err.Error()}, false
		}

		points := make([]wdiPoint, 0, len(rows))
		for _, r := range rows {
			if r.Date == "" {
				continue
			}
			points = append(points, wdiPoint{Period: r.Date, Value: r.Value})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Period < points[j].Period })
		return &wdiSeries{OK: true, Points: points}, true
	})
	return *s
}

// wdiPair fetches two indicators concurrently
func (c *Client) wdiPair(ctx context.Context, country, first, second, date string, force bool) (wdiSeries, wdiSeries) {
	var a, b wdiSeries
	var g errgroup.Group
	g.Go(func() error {
		a = c.wdiIndicator(ctx, country, first, date, force)
		return nil
	})
	g.Go(func() error {
		b = c.wdiIndicator(ctx, country, second, date, force)
		return nil
	})
	_ = g.Wait()
	return a, b
}

func (s wdiSeries) byPeriod() map[string]*float64 {
	m := make(map[string]*float64, len(s.Points))
	for _, p := range s.Points {
		m[p.Period] = p.Value
	}
	return m
}

func mergedPeriods(series ...wdiSeries) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range series {
		for _, p := range s.Points {
			if !seen[p.Period] {
				seen[p.Period] = true
				out = append(out, p.Period)
			}
		}
	}
	sort.Strings(out)
	return out
}

func seriesErrors(series ...wdiSeries) []string {
	out := []string{}
	for _, s := range series {
		if s.Error != "" {
			out = append(out, s.Error)
		}
	}
	return out
}

// TradeExim merges exports and imports; balance is set only when both are
func (c *Client) TradeExim(ctx context.Context, country string, endYear, years int, force bool) *widget.TradeExim {
	date := dateRange(endYear, years)
	exp, imp := c.wdiPair(ctx, country, indicatorExports, indicatorImports, date, force)
	expBy, impBy := exp.byPeriod(), imp.byPeriod()

	periods := mergedPeriods(exp, imp)
	series := make([]widget.EximPoint, 0, len(periods))
	for _, per := range periods {
		pt := widget.EximPoint{Period: per, ExportUSD: expBy[per], ImportUSD: impBy[per]}
		if pt.ExportUSD != nil && pt.ImportUSD != nil {
			bal := *pt.ExportUSD - *pt.ImportUSD
			pt.BalanceUSD = &bal
		}
		series = append(series, pt)
	}

	return &widget.TradeExim{
		Source:    sourceWDI,
		Frequency: "annual",
		Country:   country,
		Date:      date,
		OK:        exp.OK && imp.OK,
		Errors:    seriesErrors(exp, imp),
		Series:    series,
	}
}

// WealthIndicators merges GDP per capita and household consumption
func (c *Client) WealthIndicators(ctx context.Context, country string, endYear, years int, force bool) *widget.WealthIndicators {
	date := dateRange(endYear, years)
	gdp, cons := c.wdiPair(ctx, country, indicatorGDPPerCapita, indicatorConsumption, date, force)
	gdpBy, consBy := gdp.byPeriod(), cons.byPeriod()

	periods := mergedPeriods(gdp, cons)
	series := make([]widget.WealthPoint, 0, len(periods))
	for _, per := range periods {
		series = append(series, widget.WealthPoint{
			Period:                    per,
			GDPPerCapitaUSD:           gdpBy[per],
			ConsumptionExpenditureUSD: consBy[per],
		})
	}

	return &widget.WealthIndicators{
		Source:    sourceWDI,
		Frequency: "annual",
		Country:   country,
		Date:      date,
		OK:        gdp.OK && cons.OK,
		Errors:    seriesErrors(gdp, cons),
		Series:    series,
	}
}

var ageBuckets = []struct {
	indicator string
	label     string
}{
	{indicatorAge0014, "0-14"},
	{indicatorAge1564, "15-64"},
	{indicatorAge65Up, "65+"},
}

// AgeStructure returns the latest year with every bucket reported, or the latest with any
func (c *Client) AgeStructure(ctx context.Context, country string, endYear, lookbackYears int, force bool) *widget.AgeStructure {
	date := dateRange(endYear, lookbackYears)

	series := make([]wdiSeries, len(ageBuckets))
	var g errgroup.Group
	for i, b := range ageBuckets {
		g.Go(func() error {
			series[i] = c.wdiIndicator(ctx, country, b.indicator, date, force)
			return nil
		})
	}
	_ = g.Wait()

	lookups := make([]map[string]*float64, len(series))
	ok := true
	for i, s := range series {
		lookups[i] = s.byPeriod()
		ok = ok && s.OK
	}

	periods := mergedPeriods(series...)
	period := ""
	for i := len(periods) - 1; i >= 0 && period == ""; i-- {
		complete := true
		for _, l := range lookups {
			if l[periods[i]] == nil {
				complete = false
				break
			}
		}
		if complete {
			period = periods[i]
		}
	}
	for i := len(periods) - 1; i >= 0 && period == ""; i-- {
		for _, l := range lookups {
			if l[periods[i]] != nil {
				period = periods[i]
				break
			}
		}
	}

	errs := seriesErrors(series...)
	rows := make([]widget.AgeBucket, 0, len(ageBuckets))
	if period != "" {
		for i, b := range ageBuckets {
			rows = append(rows, widget.AgeBucket{Label: b.label, Pct: lookups[i][period]})
		}
	} else if ok {
		ok = false
		errs = append(errs, "no age structure data in "+date)
	}

	return &widget.AgeStructure{
		Source:  sourceWDI,
		Country: country,
		Period:  period,
		OK:      ok,
		Errors:  errs,
		Rows:    rows,
	}
}

type latestPerCapita struct {
	OK     bool               `json:"ok"`
	Link   string             `json:"link"`
	Values map[string]float64 `json:"values"`
	Error  string             `json:"error,omitempty"`
}

// latestConsumptionPerCapita returns the latest non-null consumption per capita per World Bank country id
func (c *Client) latestConsumptionPerCapita(ctx context.Context, codes []string, force bool) latestPerCapita {
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)
	countries := strings.Join(sorted, ";")

	q := url.Values{}
	q.Set("format", "json")
	q.Set("per_page", "500")
	link := c.wdiURL(countries, indicatorConsumptionPC, q)

	key := "wb:" + indicatorConsumptionPC + ":latest:" + countries
	out, _ := cached(ctx, c, key, c.ttl, force, func(ctx context.Context) (*latestPerCapita, bool) {
		res := &latestPerCapita{Link: link, Values: map[string]float64{}}
		body, err := c.get(ctx, link, requestOptions{})
		if err != nil {
			res.Error = err.Error()
			return res, false
		}
		rows, err := parseWDI(body)
		if err != nil {
			res.Error = err.Error()
			return res, false
		}

		// newest year first so the first non-null per country wins
		sort.SliceStable(rows, func(i, j int) bool {
			yi, _ := strconv.Atoi(rows[i].Date)
			yj, _ := strconv.Atoi(rows[j].Date)
			return yi > yj
		})
		for _, r := range rows {
			if r.Value == nil {
				continue
			}
			// aggregates such as WLD are matched by their ISO3 code
			for _, id := range []string{r.Country.ID, r.ISO3} {
				if _, seen := res.Values[id]; id != "" && !seen {
					res.Values[id] = *r.Value
				}
			}
		}
		res.OK = true
		return res, true
	})
	return *out
}
