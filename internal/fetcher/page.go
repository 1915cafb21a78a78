package fetcher

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/cuongbtq/trade-insights/internal/insight"
	"github.com/cuongbtq/trade-insights/internal/jobs"
)

const (
	pageTimeout     = 20 * time.Second
	pageUserAgent   = "GTA-insight-job"
	maxTitleRunes   = 240
	maxExcerptRunes = 1800
)

var (
	scriptBlock = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlock  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	titleTag    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ParseExcerpt extracts the title and readable text of an HTML page
func ParseExcerpt(html string) (title, text string) {
	if m := titleTag.FindStringSubmatch(html); m != nil {
		title = truncateRunes(stripTags(m[1]), maxTitleRunes)
	}
	body := scriptBlock.ReplaceAllString(html, " ")
	body = styleBlock.ReplaceAllString(body, " ")
	text = truncateRunes(stripTags(body), maxExcerptRunes)
	return title, strings.TrimSpace(text)
}

// FetchExcerpt downloads url and returns its readable excerpt
func (c *Client) FetchExcerpt(ctx context.Context, url string) insight.Excerpt {
	html, err := c.get(ctx, url, requestOptions{timeout: pageTimeout, userAgent: pageUserAgent})
	if err != nil {
		return insight.Excerpt{OK: false, Error: err.Error()}
	}
	title, text := ParseExcerpt(html)
	return insight.Excerpt{OK: true, Title: title, Text: text}
}

var (
	_ jobs.Fetcher           = (*Client)(nil)
	_ insight.ExcerptFetcher = (*Client)(nil)
)
