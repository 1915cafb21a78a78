package fetcher

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/trade-insights/internal/widget"
)

const (
	wciCacheKey     = "drewry_wci"
	wciLastGoodKey  = "drewry_wci:last"
	wciTTL          = 6 * time.Hour
	wciLastGoodTTL  = 30 * 24 * time.Hour
	wciTimeout      = 10 * time.Second
	wciUserAgent    = "GTA (Global Trade Analysis) dashboard bot; contact: admin"
	wciAccept       = "text/html,application/xhtml+xml"
	sourceWCI       = "Drewry World Container Index (auto) · public page"
	sourceWCIFailed = "Drewry WCI (auto)"
	wciDefaultNote  = "Auto-extracted from public Drewry WCI page."
	wciPlaceholder  = "Fetch failed; showing placeholder."
)

var (
	wciPeriod     = regexp.MustCompile(`(?i)World\s+Container\s+Index\s*-\s*(\d{1,2}\s+[A-Za-z]{3})`)
	wciValue      = regexp.MustCompile(`(?i)to\s*\$\s*([0-9]{1,3}(?:,[0-9]{3})+|[0-9]+)\s*per\s*40ft`)
	wciCommentary = regexp.MustCompile(`(?is)Our detailed assessment.*?(The\s+Drewry.*?\.)`)
)

func parseWCI(html, link string) *widget.WCI {
	wci := &widget.WCI{Source: sourceWCI, Link: link, Commentary: wciDefaultNote}
	if m := wciPeriod.FindStringSubmatch(html); m != nil {
		p := m[1]
		wci.Period = &p
	}
	if m := wciValue.FindStringSubmatch(html); m != nil {
		if v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			wci.ValueUSDPer40ft = &v
		}
	}
	if m := wciCommentary.FindStringSubmatch(html); m != nil {
		if s := strings.TrimSpace(whitespace.ReplaceAllString(m[1], " ")); s != "" {
			wci.Commentary = s
		}
	}
	return wci
}

// WCI returns the Drewry headline, falling back to the last good value when the page is unreachable
func (c *Client) WCI(ctx context.Context, force bool) *widget.WCI {
	if !force {
		if raw, ok := c.lookup(ctx, wciCacheKey); ok {
			var wci widget.WCI
			if err := json.Unmarshal(raw, &wci); err == nil {
				wci.Cached = true
				return &wci
			}
		}
	}

	html, err := c.get(ctx, c.drewryURL, requestOptions{timeout: wciTimeout, userAgent: wciUserAgent, accept: wciAccept})
	if err != nil {
		if raw, ok := c.lookup(ctx, wciLastGoodKey); ok {
			var wci widget.WCI
			if jerr := json.Unmarshal(raw, &wci); jerr == nil {
				wci.Cached = true
				wci.Stale = true
				wci.Error = err.Error()
				return &wci
			}
		}
		return &widget.WCI{
			Source:     sourceWCIFailed,
			Link:       c.drewryURL,
			Commentary: wciPlaceholder,
			Error:      err.Error(),
		}
	}

	wci := parseWCI(html, c.drewryURL)
	c.store(ctx, wciCacheKey, wci, wciTTL)
	c.store(ctx, wciLastGoodKey, wci, wciLastGoodTTL)
	return wci
}
