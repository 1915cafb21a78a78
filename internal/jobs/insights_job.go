package jobs

import (
	"context"

	"github.com/cuongbtq/trade-insights/internal/insight"
)

// InsightBatcher regenerates homepage insights; implemented by insight.Batcher
type InsightBatcher interface {
	RunBatch(ctx context.Context, opts insight.BatchOptions, runID int64) (insight.Summary, error)
}

type insightsJob struct {
	batcher InsightBatcher
}

func (j *insightsJob) Normalize(raw Params) Params {
	var langs []string
	if raw["langs"] == nil {
		langs = []string{insight.LangEnglish}
	} else {
		langs = AsChoiceList(raw["langs"], insight.Langs())
	}

	// an empty list means rotate, same as absent
	geos := []string{}
	if !isEmptyList(raw["geo_list"]) {
		geos = AsGeoList(raw["geo_list"])
	}

	return Params{
		"langs":    langs,
		"all_geos": AsBool(raw["all_geos"], false),
		"geo_list": geos,
		"card_key": AsChoice(raw["card_key"], insight.CardKeys()),
		"tab_key":  AsChoice(raw["tab_key"], insight.TabKeys()),
		"force":    AsBool(raw["force"], false),
	}
}

// Execute fails only when every attempted generation failed
func (j *insightsJob) Execute(ctx context.Context, params Params, runID int64) (string, error) {
	card, _ := params["card_key"].(string)
	tab, _ := params["tab_key"].(string)

	sum, err := j.batcher.RunBatch(ctx, insight.BatchOptions{
		Langs:   paramStrings(params, "langs"),
		AllGeos: paramBool(params, "all_geos"),
		GeoList: paramStrings(params, "geo_list"),
		CardKey: card,
		TabKey:  tab,
		Force:   paramBool(params, "force"),
	}, runID)
	if err != nil {
		return "", err
	}
	return sum.String(), nil
}
