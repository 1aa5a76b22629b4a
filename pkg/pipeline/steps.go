package pipeline

import (
	"context"

	"housing-data-go/pkg/models"

	"go.uber.org/zap"
)

// Saver persists the final merged dataset.
type Saver interface {
	ReplaceAll(ctx context.Context, records []models.HousingRecord) error
}

// BuildSteps assembles the six pipeline steps in run order. Each step reads
// and writes the shared State; the orchestrator handles sequencing,
// cancellation and progress.
func BuildSteps(zillow *ZillowClient, hud *HUDClient, census *CensusClient, saver Saver, logger *zap.Logger) []Step {
	if logger == nil {
		logger = zap.NewNop()
	}
	return []Step{
		{
			Name: "Download Zillow Data",
			Run: func(ctx context.Context, st *State) error {
				zhvi, zori, err := zillow.Download(ctx)
				if err != nil {
					return err
				}
				st.ZHVI = zhvi
				st.ZORI = zori
				return nil
			},
		},
		{
			Name: "Merge Zillow Data",
			Run: func(ctx context.Context, st *State) error {
				records, err := MergeZillow(st.ZHVI, st.ZORI)
				if err != nil {
					return err
				}
				st.Records = records
				st.ReportRecords(len(records))
				// The raw tables are no longer needed.
				st.ZHVI, st.ZORI = nil, nil
				return nil
			},
		},
		{
			Name: "Fetch HUD Data",
			Run: func(ctx context.Context, st *State) error {
				matched, err := hud.EnrichAll(ctx, st.Records, st)
				if err != nil {
					return err
				}
				logger.Info("HUD step complete", zap.Int("matched", matched))
				return nil
			},
		},
		{
			Name: "Fetch NAR Data",
			Run: func(ctx context.Context, st *State) error {
				values, err := census.Fetch(ctx)
				if err != nil {
					return err
				}
				census.Enrich(st.Records, values)
				return nil
			},
		},
		{
			Name: "Calculate Ratios",
			Run: func(ctx context.Context, st *State) error {
				CalculateRatios(st.Records)
				return nil
			},
		},
		{
			Name: "Save Final Data",
			Run: func(ctx context.Context, st *State) error {
				if err := saver.ReplaceAll(ctx, st.Records); err != nil {
					return err
				}
				st.ReportRecords(len(st.Records))
				return nil
			},
		},
	}
}
