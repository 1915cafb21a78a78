package jobs

import (
	"context"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/widget"
)

const noteIMAAUndeclared = "source update time not declared by IMAA page; kept NULL"

func forceParams(raw Params) Params {
	return Params{"force": AsBool(raw["force"], false)}
}

type financeIndustryJob struct {
	fetcher  Fetcher
	recorder *SnapshotRecorder
}

func (j *financeIndustryJob) Normalize(raw Params) Params { return forceParams(raw) }

func (j *financeIndustryJob) Execute(ctx context.Context, params Params, runID int64) (string, error) {
	payload := j.fetcher.MAIndustry(ctx, paramBool(params, "force"))
	_, err := j.recorder.Record(ctx, SnapshotInput{
		Scope:      domain.ScopeGlobal,
		Payload:    payload,
		JobRunID:   runID,
		SourceTime: widget.Unknown(noteIMAAUndeclared),
	})
	if err != nil {
		return "", err
	}
	return "finance industry snapshot saved", nil
}

type financeCountryJob struct {
	fetcher  Fetcher
	recorder *SnapshotRecorder
}

func (j *financeCountryJob) Normalize(raw Params) Params { return forceParams(raw) }

func (j *financeCountryJob) Execute(ctx context.Context, params Params, runID int64) (string, error) {
	payload := j.fetcher.MACountry(ctx, paramBool(params, "force"))
	_, err := j.recorder.Record(ctx, SnapshotInput{
		Scope:      domain.ScopeGlobal,
		Payload:    payload,
		JobRunID:   runID,
		SourceTime: widget.Unknown(noteIMAAUndeclared),
	})
	if err != nil {
		return "", err
	}
	return "finance country snapshot saved", nil
}
