package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
)

type geminiClient struct {
	apiKey  string
	baseURL string
	model   string
	caller  *httpCaller
	logger  *slog.Logger
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type geminiRequest struct {
	SystemInstruction geminiContent    `json:"systemInstruction"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *geminiClient) Generate(ctx context.Context, system, user string) Result {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	payload := geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: user}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			MaxOutputTokens:  geminiMaxTokens,
			ResponseMimeType: "application/json",
		},
	}
	res := Result{
		Provider:       ProviderGemini,
		Model:          c.model,
		Endpoint:       RedactURL(endpoint),
		RequestPayload: payload,
	}

	c.logger.Info("Text generation request",
		slog.String("provider", res.Provider),
		slog.String("model", res.Model),
		slog.String("endpoint", res.Endpoint),
	)
	c.logger.Debug("Text generation prompt",
		slog.String("system", system),
		slog.String("user", user),
	)

	started := time.Now()
	status, raw, err := c.caller.postJSON(ctx, endpoint, nil, payload)
	res.ResponseStatus = status
	res.ResponseRaw = raw
	if err != nil {
		// transport errors embed the request url, key included
		res.Error = RedactText(err.Error(), c.apiKey)
	}
	logResponse(c.logger, res, started)
	if err != nil {
		return res
	}

	var resp geminiResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		res.Error = errors.Wrap(err, "failed to unmarshal response").Error()
		return res
	}

	var text string
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		res.Error = "empty response"
		return res
	}

	return finish(res, text)
}
