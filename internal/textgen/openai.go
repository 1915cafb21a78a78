package textgen

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
)

type openAIClient struct {
	apiKey  string
	baseURL string
	model   string
	caller  *httpCaller
	logger  *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	ResponseFormat responseFormat `json:"response_format"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *openAIClient) Generate(ctx context.Context, system, user string) Result {
	endpoint := c.baseURL + "/chat/completions"
	payload := chatRequest{
		Model:          c.model,
		ResponseFormat: responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	}
	res := Result{
		Provider:       ProviderOpenAI,
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
	status, raw, err := c.caller.postJSON(ctx, endpoint, map[string]string{"Authorization": "Bearer " + c.apiKey}, payload)
	res.ResponseStatus = status
	res.ResponseRaw = raw
	if err != nil {
		res.Error = RedactText(err.Error(), c.apiKey)
	}
	logResponse(c.logger, res, started)
	if err != nil {
		return res
	}

	var resp chatResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		res.Error = errors.Wrap(err, "failed to unmarshal response").Error()
		return res
	}
	if len(resp.Choices) == 0 {
		res.Error = "no response choices"
		return res
	}

	return finish(res, resp.Choices[0].Message.Content)
}

// logResponse logs the outcome; res.Error must already be redacted
func logResponse(logger *slog.Logger, res Result, started time.Time) {
	attrs := []any{
		slog.String("provider", res.Provider),
		slog.String("model", res.Model),
		slog.String("endpoint", res.Endpoint),
		slog.Int("status", res.ResponseStatus),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()),
	}
	if res.Error != "" {
		logger.Error("Text generation failed", append(attrs, slog.String("error", res.Error))...)
		return
	}
	logger.Info("Text generation response", attrs...)
}
