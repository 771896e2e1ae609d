package services_test

import (
	"context"
	"testing"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/analysis"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"
	"github.com/bionicotaku/lingo-services-analysis/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTopDeltas_SortsByAbsoluteDiff(t *testing.T) {
	previous := []analysis.Category{
		{Label: "A", Name: "Praise", Ratio: 0.10},
		{Label: "B", Name: "Question", Ratio: 0.30},
		{Label: "C", Name: "Command", Ratio: 0.50},
	}
	current := []analysis.Category{
		{Label: "A", Name: "Praise", Ratio: 0.30},
		{Label: "B", Name: "Question", Ratio: 0.30},
		{Label: "C", Name: "Command", Ratio: 0.20},
	}

	got := services.TopDeltas(previous, current)
	require.Len(t, got, 3)
	require.Equal(t, "C", got[0].Key)
	require.Equal(t, "Command", got[0].Label)
	require.InDelta(t, -30.0, got[0].Diff, 1e-9)
	require.InDelta(t, 50.0, got[0].Before, 1e-9)
	require.InDelta(t, 20.0, got[0].After, 1e-9)
	require.Equal(t, "A", got[1].Key)
	require.InDelta(t, 20.0, got[1].Diff, 1e-9)
	require.Equal(t, "B", got[2].Key)
	require.InDelta(t, 0.0, got[2].Diff, 1e-9)
	require.Equal(t, analysis.MetricValueTypeRatio, got[0].ValueType)
}

func TestTopDeltas_FirstReportComparesAgainstZero(t *testing.T) {
	current := []analysis.Category{
		{Label: "A", Ratio: 0.123},
		{Label: "B", Ratio: 0.456},
		{Label: "C", Ratio: 0.05},
		{Label: "D", Ratio: 0.371},
	}

	got := services.TopDeltas(nil, current)
	require.Len(t, got, services.TopDeltaLimit)
	require.Equal(t, "B", got[0].Key)
	require.Equal(t, "B", got[0].Label, "label falls back to key when name is empty")
	require.InDelta(t, 45.6, got[0].Diff, 1e-9)
	require.InDelta(t, 0.0, got[0].Before, 1e-9)
	require.Equal(t, "D", got[1].Key)
	require.InDelta(t, 37.1, got[1].After, 1e-9)
	require.Equal(t, "A", got[2].Key)
	require.InDelta(t, 12.3, got[2].Diff, 1e-9)
}

func TestTopDeltas_StableOnTies(t *testing.T) {
	current := []analysis.Category{
		{Label: "X", Ratio: 0.2},
		{Label: "Y", Ratio: 0.2},
	}
	got := services.TopDeltas(nil, current)
	require.Equal(t, []string{"X", "Y"}, []string{got[0].Key, got[1].Key})
}

func TestGrowthMetricsEngine_UsesLatestOtherReport(t *testing.T) {
	childID := uuid.New()
	reports := &memReportStore{}
	previous := resultJSON(resultOptions{pi: 10, ndi: 10, categories: []analysis.Category{{Label: "A", Name: "Praise", Ratio: 0.4}}})
	_, err := reports.Create(context.Background(), nil, &po.AnalysisReport{ReportID: uuid.New(), ChildID: childID, VideoID: uuid.New(), Content: previous})
	require.NoError(t, err)

	engine := services.NewGrowthMetricsEngine(reports, discardLogger())
	got, err := engine.ComputeTopDeltas(context.Background(), childID, uuid.New(), []analysis.Category{{Label: "A", Name: "Praise", Ratio: 0.1}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.InDelta(t, 40.0, got[0].Before, 1e-9)
	require.InDelta(t, -30.0, got[0].Diff, 1e-9)
}

func TestGrowthMetricsEngine_UnreadablePreviousTreatedAsFirst(t *testing.T) {
	childID := uuid.New()
	reports := &memReportStore{}
	_, err := reports.Create(context.Background(), nil, &po.AnalysisReport{ReportID: uuid.New(), ChildID: childID, VideoID: uuid.New(), Content: []byte(`"oops"`)})
	require.NoError(t, err)

	engine := services.NewGrowthMetricsEngine(reports, discardLogger())
	got, err := engine.ComputeTopDeltas(context.Background(), childID, uuid.New(), []analysis.Category{{Label: "A", Ratio: 0.25}})
	require.NoError(t, err)
	require.InDelta(t, 0.0, got[0].Before, 1e-9)
	require.InDelta(t, 25.0, got[0].Diff, 1e-9)
}
