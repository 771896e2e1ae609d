package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/analysis"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// DefaultChallengeDays 为建议周期缺失时的挑战天数（含首尾）。
const DefaultChallengeDays = 7

// ChallengeExtractor 将 AI 结果中的挑战建议转换为挑战实体。
type ChallengeExtractor struct {
	log *log.Helper
	now func() time.Time
	loc *time.Location
}

// NewChallengeExtractor 创建 ChallengeExtractor。
func NewChallengeExtractor(logger log.Logger) *ChallengeExtractor {
	return &ChallengeExtractor{
		log: log.NewHelper(log.With(logger, "component", "challenge_extractor")),
		now: time.Now,
		loc: time.UTC,
	}
}

// ProvideChallengeExtractor 使用与过期扫描相同的业务时区计算默认周期。
func ProvideChallengeExtractor(cfg configloader.SweepConfig, logger log.Logger) (*ChallengeExtractor, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("challenge extractor: %w", err)
	}
	return NewChallengeExtractor(logger).WithLocation(loc), nil
}

// WithLocation 设置判定“今天”所用的时区。
func (x *ChallengeExtractor) WithLocation(loc *time.Location) *ChallengeExtractor {
	if loc != nil {
		x.loc = loc
	}
	return x
}

// WithClock 覆盖“今天”的来源。
func (x *ChallengeExtractor) WithClock(now func() time.Time) *ChallengeExtractor {
	if now != nil {
		x.now = now
	}
	return x
}

// Build 根据报告与挑战建议构造 PROCEEDING 状态的挑战。
// 建议缺失或标题/目标为空时返回 ErrNoChallengePlan。
// 日期无法解析、缺失或结束早于开始时使用 [today, today+6]。
func (x *ChallengeExtractor) Build(report *po.AnalysisReport, plan *analysis.ChallengePlan) (*po.Challenge, error) {
	if report == nil {
		return nil, fmt.Errorf("%w: report is required", ErrNoChallengePlan)
	}
	if plan == nil {
		return nil, ErrNoChallengePlan
	}
	title := strings.TrimSpace(plan.Title)
	goal := strings.TrimSpace(plan.Goal)
	if title == "" || goal == "" {
		return nil, fmt.Errorf("%w: title and goal are required", ErrNoChallengePlan)
	}

	start, end := x.period(plan.SuggestedPeriod)
	reportID := report.ReportID
	challenge := &po.Challenge{
		ChallengeID:    uuid.New(),
		UserID:         report.UserID,
		ChildID:        report.ChildID,
		SourceReportID: &reportID,
		Title:          title,
		Goal:           goal,
		StartDate:      start,
		EndDate:        end,
		Status:         po.ChallengeStatusProceeding,
	}
	for _, content := range plan.Actions {
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		challenge.Actions = append(challenge.Actions, po.ChallengeAction{
			ActionID:    uuid.New(),
			ChallengeID: challenge.ChallengeID,
			Position:    int32(len(challenge.Actions)),
			Content:     content,
		})
	}
	return challenge, nil
}

func (x *ChallengeExtractor) period(r *analysis.SuggestedRange) (time.Time, time.Time) {
	today := po.DateOnly(x.now().In(x.loc))
	defStart, defEnd := today, today.AddDate(0, 0, DefaultChallengeDays-1)
	if r == nil {
		return defStart, defEnd
	}
	start, errStart := time.Parse(po.DateLayout, strings.TrimSpace(r.Start))
	end, errEnd := time.Parse(po.DateLayout, strings.TrimSpace(r.End))
	if errStart != nil || errEnd != nil {
		x.log.Warnf("suggested period unparsable, using default: start=%q end=%q", r.Start, r.End)
		return defStart, defEnd
	}
	if end.Before(start) {
		x.log.Warnf("suggested period ends before it starts, using default: start=%s end=%s", r.Start, r.End)
		return defStart, defEnd
	}
	return start, end
}
