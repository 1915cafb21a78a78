package textgen

import (
	"net/url"
	"strings"
)

var secretParams = map[string]bool{
	"key":          true,
	"api_key":      true,
	"apikey":       true,
	"token":        true,
	"access_token": true,
}

// RedactURL masks secret query parameters, keeping parameter order
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}

	pairs := strings.Split(u.RawQuery, "&")
	for i, pair := range pairs {
		k, _, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(k)
		if err != nil {
			name = k
		}
		if secretParams[strings.ToLower(name)] {
			pairs[i] = k + "=***"
		}
	}
	u.RawQuery = strings.Join(pairs, "&")
	return u.String()
}

// RedactText removes every occurrence of secret from s
func RedactText(s, secret string) string {
	if secret == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(secret), "***")
	return strings.ReplaceAll(s, secret, "***")
}
