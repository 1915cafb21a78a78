package fetcher

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/trade-insights/internal/widget"
)

const imaaTimeout = 15 * time.Second

const (
	sourceIMAA         = "IMAA"
	sourceIMAAIndustry = "IMAA (industry ranking)"
	sourceIMAACountry  = "IMAA (country narratives)"
	noteIMAAIndustry   = "Parsed from public IMAA table (best-effort)."
	noteIMAACountry    = "Derived by parsing narrative text; best-effort and may miss countries or use mixed currencies."
)

var imaaCountryWarnings = []string{
	"Value is normalized to billions of the stated currency (USD/EUR).",
	"Some country sections may use EUR; cross-country value comparisons are indicative only unless converted.",
}

var (
	industryRow = regexp.MustCompile(`(?is)<tr[^>]*>\s*<td[^>]*>\s*(\d+)\s*</td>\s*<td[^>]*>(.*?)</td>\s*<td[^>]*>\s*([0-9'’,]+)\s*</td>\s*<td[^>]*>\s*([0-9.,]+)\s*</td>`)
	countryLine = regexp.MustCompile(`(?i)Since\s+(\d{4}).{0,80}?([0-9]{1,3}(?:[,'’][0-9]{3})+|\d{1,7}).{0,80}?deal.{0,120}?(?:in|for)\s+([A-Z][A-Za-z .&()-]+?),\s+.{0,120}?(?:value|valued?).{0,120}?([0-9]+(?:\.[0-9]+)?)\s*(trillion|billion|bil\.|million)?\s*(USD|EUR)`)

	anyTag     = regexp.MustCompile(`<[^>]+>`)
	whitespace = regexp.MustCompile(`\s+`)
)

func stripTags(s string) string {
	s = anyTag.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

var thousandsSep = strings.NewReplacer(",", "", "'", "", "’", "")

func parseIndustryRows(html string) []widget.IndustryRow {
	rows := []widget.IndustryRow{}
	for _, m := range industryRow.FindAllStringSubmatch(html, -1) {
		rank, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		row := widget.IndustryRow{Rank: rank, Industry: stripTags(m[2])}
		if n, err := strconv.Atoi(thousandsSep.Replace(strings.TrimSpace(m[3]))); err == nil {
			row.Deals = &n
		}
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[4], ",", ""), 64); err == nil {
			row.ValueUSDBil = &v
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	return rows
}

func parseCountryRows(html string) []widget.CountryRow {
	text := stripTags(html)

	best := make(map[string]widget.CountryRow)
	var order []string
	for _, m := range countryLine.FindAllStringSubmatch(text, -1) {
		since, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		deals, err := strconv.Atoi(thousandsSep.Replace(m[2]))
		if err != nil {
			continue
		}
		val, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			continue
		}

		scale := strings.ToLower(m[5])
		switch {
		case strings.Contains(scale, "trillion"):
			val *= 1000
		case strings.Contains(scale, "million"):
			val *= 0.001
		}

		row := widget.CountryRow{
			Country:   strings.TrimSpace(m[3]),
			SinceYear: since,
			Deals:     deals,
			ValueBil:  val,
			Currency:  strings.ToUpper(m[6]),
			ValueUnit: "bil.",
		}
		k := strings.ToLower(row.Country)
		prev, seen := best[k]
		if !seen {
			order = append(order, k)
		}
		if !seen || row.Deals > prev.Deals {
			best[k] = row
		}
	}

	rows := make([]widget.CountryRow, 0, len(order))
	for _, k := range order {
		rows = append(rows, best[k])
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Deals > rows[j].Deals })
	return rows
}

// MAIndustry parses the IMAA industry ranking table
func (c *Client) MAIndustry(ctx context.Context, force bool) *widget.MAIndustry {
	out, _ := cached(ctx, c, "imaa:industry", c.ttl, force, func(ctx context.Context) (*widget.MAIndustry, bool) {
		html, err := c.get(ctx, c.imaaIndustryURL, requestOptions{timeout: imaaTimeout})
		if err != nil {
			return &widget.MAIndustry{OK: false, Source: sourceIMAA, Link: c.imaaIndustryURL, Rows: []widget.IndustryRow{}, Error: err.Error()}, false
		}
		return &widget.MAIndustry{
			OK:       true,
			Source:   sourceIMAAIndustry,
			Link:     c.imaaIndustryURL,
			Currency: "USD",
			Unit:     "bil.",
			Rows:     parseIndustryRows(html),
			Note:     noteIMAAIndustry,
		}, true
	})
	return out
}

// MACountry derives a per-country ranking from the IMAA narrative sections
func (c *Client) MACountry(ctx context.Context, force bool) *widget.MACountry {
	out, _ := cached(ctx, c, "imaa:country", c.ttl, force, func(ctx context.Context) (*widget.MACountry, bool) {
		html, err := c.get(ctx, c.imaaCountryURL, requestOptions{timeout: imaaTimeout})
		if err != nil {
			return &widget.MACountry{OK: false, Source: sourceIMAA, Link: c.imaaCountryURL, Rows: []widget.CountryRow{}, Error: err.Error()}, false
		}
		return &widget.MACountry{
			OK:       true,
			Source:   sourceIMAACountry,
			Link:     c.imaaCountryURL,
			Rows:     parseCountryRows(html),
			Note:     noteIMAACountry,
			Warnings: imaaCountryWarnings,
		}, true
	})
	return out
}
