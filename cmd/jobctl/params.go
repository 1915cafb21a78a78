package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/jobs"
)

const triggerMessageType = "job.trigger"

// parseParams turns key=value pairs into run overrides. Values that are valid
// JSON keep their JSON type, anything else is a string.
func parseParams(pairs []string) (jobs.Params, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(jobs.Params, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q, expected key=value", pair)
		}
		params[key] = parseValue(raw)
	}
	return params, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// buildTriggerMessage assembles a manual trigger for jobID
func buildTriggerMessage(jobID string, pairs []string) (domain.TriggerMessage, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return domain.TriggerMessage{}, fmt.Errorf("job id is required")
	}
	params, err := parseParams(pairs)
	if err != nil {
		return domain.TriggerMessage{}, err
	}
	return domain.TriggerMessage{
		JobID:       jobID,
		Params:      params,
		TriggeredBy: domain.TriggeredByManual,
	}, nil
}
