package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTriggeredBy(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "scheduler", want: TriggeredByScheduler},
		{in: "manual", want: TriggeredByManual},
		{in: "startup", want: TriggeredByStartup},
		{in: "api", want: TriggeredByAPI},
		{in: "", want: TriggeredByManual},
		{in: "Scheduler", want: TriggeredByManual},
		{in: "cron", want: TriggeredByManual},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTriggeredBy(tt.in))
		})
	}
}

func TestInvalidScheduleError(t *testing.T) {
	inner := errors.New("expected exactly 5 fields, found 2")
	err := error(&InvalidScheduleError{Err: inner})

	assert.Equal(t, "invalid cron/timezone: expected exactly 5 fields, found 2", err.Error())
	assert.ErrorIs(t, err, inner)

	var target *InvalidScheduleError
	assert.True(t, errors.As(err, &target))
}

func TestRetryableError(t *testing.T) {
	inner := errors.New("connection reset")
	err := NewRetryableError(inner)

	assert.Equal(t, "retryable error: connection reset", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestIsValidRunStatus(t *testing.T) {
	for _, s := range []string{RunStatusRunning, RunStatusSuccess, RunStatusFailed, RunStatusSkipped} {
		assert.True(t, IsValidRunStatus(s), s)
	}
	assert.False(t, IsValidRunStatus("SUCCESS"))
	assert.False(t, IsValidRunStatus(""))
	assert.False(t, IsTerminalStatus(RunStatusRunning))
}
