package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/widget"
)

const noteWPRUndeclared = "source update time not declared by WPR page; kept NULL"

type wealthIndicatorsJob struct {
	fetcher  Fetcher
	recorder *SnapshotRecorder
	now      func() time.Time
}

func (j *wealthIndicatorsJob) Normalize(raw Params) Params {
	return annualSeriesParams(raw, j.now())
}

func (j *wealthIndicatorsJob) Execute(ctx context.Context, params Params, runID int64) (string, error) {
	endYear := paramInt(params, "end_year", j.now().UTC().Year()-1)
	years := paramInt(params, "years", 5)
	force := paramBool(params, "force")

	saved, stale := 0, 0
	for _, geo := range paramStrings(params, "geo_list") {
		code, ok := widget.GeoToWDI[geo]
		if !ok {
			continue
		}

		payload := j.fetcher.WealthIndicators(ctx, code, endYear, years, force)
		payload.Geo = geo

		isStale, err := j.recorder.Record(ctx, SnapshotInput{
			Scope:      geo,
			Payload:    payload,
			JobRunID:   runID,
			SourceTime: widget.InferAnnualYearEnd(payload.LatestPeriod()),
		})
		if err != nil {
			return "", err
		}
		if isStale {
			stale++
		}
		saved++
	}
	return fmt.Sprintf("wealth indicator snapshots saved: %d, stale: %d", saved, stale), nil
}

type wealthDisposableJob struct {
	fetcher  Fetcher
	recorder *SnapshotRecorder
}

func (j *wealthDisposableJob) Normalize(raw Params) Params { return forceParams(raw) }

func (j *wealthDisposableJob) Execute(ctx context.Context, params Params, runID int64) (string, error) {
	payload := j.fetcher.DisposableIncome(ctx, paramBool(params, "force"))
	_, err := j.recorder.Record(ctx, SnapshotInput{
		Scope:      domain.ScopeGlobal,
		Payload:    payload,
		JobRunID:   runID,
		SourceTime: widget.Unknown(noteWPRUndeclared),
	})
	if err != nil {
		return "", err
	}
	return "wealth disposable snapshot saved", nil
}

type wealthAgeStructureJob struct {
	fetcher  Fetcher
	recorder *SnapshotRecorder
	now      func() time.Time
}

func (j *wealthAgeStructureJob) Normalize(raw Params) Params {
	return Params{
		"geo_list":       AsGeoList(raw["geo_list"]),
		"end_year":       AsEndYear(raw["end_year"], j.now()),
		"lookback_years": AsInt(raw["lookback_years"], 20, 5, 60),
		"force":          AsBool(raw["force"], false),
	}
}

func (j *wealthAgeStructureJob) Execute(ctx context.Context, params Params, runID int64) (string, error) {
	endYear := paramInt(params, "end_year", j.now().UTC().Year()-1)
	lookback := paramInt(params, "lookback_years", 20)
	force := paramBool(params, "force")

	saved, stale := 0, 0
	for _, geo := range paramStrings(params, "geo_list") {
		code, ok := widget.GeoToWDI[geo]
		if !ok {
			continue
		}

		payload := j.fetcher.AgeStructure(ctx, code, endYear, lookback, force)
		payload.Geo = geo

		isStale, err := j.recorder.Record(ctx, SnapshotInput{
			Scope:      geo,
			Payload:    payload,
			JobRunID:   runID,
			SourceTime: widget.InferAnnualYearEnd(payload.Period),
		})
		if err != nil {
			return "", err
		}
		if isStale {
			stale++
		}
		saved++
	}
	return fmt.Sprintf("wealth age-structure snapshots saved: %d, stale: %d", saved, stale), nil
}
