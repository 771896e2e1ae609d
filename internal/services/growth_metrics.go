package services

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/analysis"
	"github.com/bionicotaku/lingo-services-analysis/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// TopDeltaLimit 为成长报告保留的指标数量。
const TopDeltaLimit = 3

// GrowthMetricsEngine 对比同一儿童上一份报告，计算家长行为占比变化最大的指标。
type GrowthMetricsEngine struct {
	reports ReportStore
	log     *log.Helper
}

// NewGrowthMetricsEngine 创建 GrowthMetricsEngine。
func NewGrowthMetricsEngine(reports ReportStore, logger log.Logger) *GrowthMetricsEngine {
	return &GrowthMetricsEngine{
		reports: reports,
		log:     log.NewHelper(log.With(logger, "component", "growth_metrics")),
	}
}

// ComputeTopDeltas 读取上一份报告（排除当前视频）并返回变化最大的前三项。
// 上一份报告不存在或内容无法解析时按首份报告处理。
func (e *GrowthMetricsEngine) ComputeTopDeltas(ctx context.Context, childID, excludeVideoID uuid.UUID, current []analysis.Category) ([]analysis.Metric, error) {
	prev, err := e.previousCategories(ctx, childID, excludeVideoID)
	if err != nil {
		return nil, err
	}
	return TopDeltas(prev, current), nil
}

func (e *GrowthMetricsEngine) previousCategories(ctx context.Context, childID, excludeVideoID uuid.UUID) ([]analysis.Category, error) {
	report, err := e.reports.FindLatestByChild(ctx, nil, childID, excludeVideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrReportNotFound) {
			return nil, nil
		}
		return nil, err
	}
	doc, err := analysis.NewDocument(report.Content)
	if err != nil {
		e.log.WithContext(ctx).Warnf("previous report unreadable, treating as first report: report_id=%s err=%v", report.ReportID, err)
		return nil, nil
	}
	result, err := doc.Decode()
	if result == nil {
		return nil, nil
	}
	if err != nil {
		e.log.WithContext(ctx).Warnf("previous report sections unreadable: report_id=%s err=%v", report.ReportID, err)
	}
	return result.ParentCategories(), nil
}

// TopDeltas 以 label 匹配前后分类，before/after/diff 转为百分比并保留一位小数，
// 按 |diff| 降序稳定排序后取前三。缺失的上一期分类视为 0。
func TopDeltas(previous, current []analysis.Category) []analysis.Metric {
	prev := make(map[string]float64, len(previous))
	for _, c := range previous {
		prev[c.Label] = c.Ratio
	}

	metrics := make([]analysis.Metric, 0, len(current))
	for _, c := range current {
		before := prev[c.Label] * 100
		after := c.Ratio * 100
		name := c.Name
		if name == "" {
			name = c.Label
		}
		metrics = append(metrics, analysis.Metric{
			Label:     name,
			Key:       c.Label,
			Before:    round1(before),
			After:     round1(after),
			Diff:      round1(after - before),
			ValueType: analysis.MetricValueTypeRatio,
		})
	}

	sort.SliceStable(metrics, func(i, j int) bool {
		return math.Abs(metrics[i].Diff) > math.Abs(metrics[j].Diff)
	})
	if len(metrics) > TopDeltaLimit {
		metrics = metrics[:TopDeltaLimit]
	}
	return metrics
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
