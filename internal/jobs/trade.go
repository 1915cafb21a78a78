package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/widget"
)

const noteCorridorsStub = "MVP stub; source time not applicable"

type tradeCorridorsJob struct {
	fetcher  Fetcher
	recorder *SnapshotRecorder
}

func (j *tradeCorridorsJob) Normalize(raw Params) Params {
	return Params{"force_wci": AsBool(raw["force_wci"], false)}
}

func (j *tradeCorridorsJob) Execute(ctx context.Context, params Params, runID int64) (string, error) {
	payload := j.fetcher.TradeCorridors(ctx, paramBool(params, "force_wci"))
	_, err := j.recorder.Record(ctx, SnapshotInput{
		Scope:      domain.ScopeGlobal,
		Payload:    payload,
		JobRunID:   runID,
		SourceTime: widget.Unknown(noteCorridorsStub),
	})
	if err != nil {
		return "", err
	}
	return "trade corridors snapshot saved", nil
}

// annualSeriesParams is shared by the 5-year per-geo jobs
func annualSeriesParams(raw Params, now time.Time) Params {
	return Params{
		"geo_list": AsGeoList(raw["geo_list"]),
		"years":    AsInt(raw["years"], 5, 2, 20),
		"end_year": AsEndYear(raw["end_year"], now),
		"force":    AsBool(raw["force"], false),
	}
}

type tradeEximJob struct {
	fetcher  Fetcher
	recorder *SnapshotRecorder
	now      func() time.Time
}

func (j *tradeEximJob) Normalize(raw Params) Params {
	return annualSeriesParams(raw, j.now())
}

func (j *tradeEximJob) Execute(ctx context.Context, params Params, runID int64) (string, error) {
	endYear := paramInt(params, "end_year", j.now().UTC().Year()-1)
	years := paramInt(params, "years", 5)
	force := paramBool(params, "force")

	saved, stale := 0, 0
	for _, geo := range paramStrings(params, "geo_list") {
		code, ok := widget.GeoToWDI[geo]
		if !ok {
			continue
		}

		payload := j.fetcher.TradeExim(ctx, code, endYear, years, force)
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
	return fmt.Sprintf("trade exim snapshots saved: %d, stale: %d", saved, stale), nil
}
