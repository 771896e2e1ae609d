package services

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "lingo-services-analysis.services"

const (
	metricNamePipelineRuns     = "analysis_pipeline_runs_total"
	metricNamePipelineStage    = "analysis_pipeline_stage_seconds"
	metricNameReportsFinalized = "analysis_reports_finalized_total"
)

type pipelineMetrics struct {
	runs      metric.Int64Counter
	stage     metric.Float64Histogram
	finalized metric.Int64Counter
	enabled   bool
}

func newPipelineMetrics(helper *log.Helper) *pipelineMetrics {
	meter := otel.GetMeterProvider().Meter(meterName)
	m := &pipelineMetrics{}

	var err error
	if m.runs, err = meter.Int64Counter(metricNamePipelineRuns,
		metric.WithDescription("Number of analysis pipeline runs by outcome")); err != nil {
		helper.Warnf("pipeline metrics: register runs counter: %v", err)
		return m
	}
	if m.stage, err = meter.Float64Histogram(metricNamePipelineStage,
		metric.WithDescription("Duration of each analysis pipeline stage"), metric.WithUnit("s")); err != nil {
		helper.Warnf("pipeline metrics: register stage histogram: %v", err)
	}
	if m.finalized, err = meter.Int64Counter(metricNameReportsFinalized,
		metric.WithDescription("Number of analysis reports persisted")); err != nil {
		helper.Warnf("pipeline metrics: register finalized counter: %v", err)
	}
	m.enabled = true
	return m
}

func (m *pipelineMetrics) recordRun(ctx context.Context, outcome string) {
	if m == nil || !m.enabled || m.runs == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *pipelineMetrics) recordStage(ctx context.Context, stage string, started time.Time) {
	if m == nil || !m.enabled || m.stage == nil {
		return
	}
	m.stage.Record(ctx, time.Since(started).Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *pipelineMetrics) recordFinalized(ctx context.Context) {
	if m == nil || !m.enabled || m.finalized == nil {
		return
	}
	m.finalized.Add(ctx, 1)
}
