package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/analysis"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/vo"
	"github.com/bionicotaku/lingo-services-analysis/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// ChallengeService 负责挑战的创建、动作完成与过期扫描。
type ChallengeService struct {
	reports    ReportStore
	challenges ChallengeStore
	extractor  *ChallengeExtractor
	txManager  txmanager.Manager
	log        *log.Helper
	now        func() time.Time
}

// NewChallengeService 创建 ChallengeService。
func NewChallengeService(reports ReportStore, challenges ChallengeStore, extractor *ChallengeExtractor, tx txmanager.Manager, logger log.Logger) *ChallengeService {
	return &ChallengeService{
		reports:    reports,
		challenges: challenges,
		extractor:  extractor,
		txManager:  tx,
		log:        log.NewHelper(log.With(logger, "component", "challenge")),
		now:        time.Now,
	}
}

// WithClock 覆盖时间源。
func (s *ChallengeService) WithClock(now func() time.Time) *ChallengeService {
	if now != nil {
		s.now = now
	}
	return s
}

// CreateFromReport 由用户确认后从报告派生挑战。
// 报告必须属于该用户；同一报告已派生过挑战时返回 Conflict。
func (s *ChallengeService) CreateFromReport(ctx context.Context, userID, reportID uuid.UUID) (*vo.Challenge, error) {
	if userID == uuid.Nil {
		return nil, errUserRequired()
	}
	report, err := s.reports.GetByID(ctx, nil, reportID)
	if err != nil {
		if errors.Is(err, repositories.ErrReportNotFound) {
			return nil, kerrors.NotFound(ReasonReportNotFound, "report not found")
		}
		return nil, errQueryFailed("load report failed", err)
	}
	if report.UserID != userID {
		return nil, errAccessDenied("report does not belong to user")
	}

	created, err := s.createForReport(ctx, report)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrChallengeAlreadyExists):
			return nil, kerrors.Conflict(ReasonChallengeAlreadyCreated, "challenge already created").WithCause(err)
		case errors.Is(err, ErrNoChallengePlan):
			return nil, kerrors.BadRequest(ReasonChallengePlanInvalid, "report has no usable challenge plan").WithCause(err)
		default:
			return nil, errQueryFailed("create challenge failed", err)
		}
	}
	return vo.NewChallenge(created), nil
}

// createForReport 先查后建，唯一索引兜底并发重复。
func (s *ChallengeService) createForReport(ctx context.Context, report *po.AnalysisReport) (*po.Challenge, error) {
	existing, err := s.challenges.GetBySourceReport(ctx, nil, report.ReportID)
	switch {
	case err == nil && existing != nil:
		return nil, repositories.ErrChallengeAlreadyExists
	case err != nil && !errors.Is(err, repositories.ErrChallengeNotFound):
		return nil, err
	}

	doc, err := analysis.NewDocument(report.Content)
	if err != nil {
		return nil, errors.Join(ErrNoChallengePlan, err)
	}
	result, err := doc.Decode()
	if result == nil {
		return nil, errors.Join(ErrNoChallengePlan, err)
	}
	if err != nil {
		s.log.WithContext(ctx).Warnf("report sections unreadable: report_id=%s err=%v", report.ReportID, err)
	}
	challenge, err := s.extractor.Build(report, result.ChallengePlan())
	if err != nil {
		return nil, err
	}

	var created *po.Challenge
	err = s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		var createErr error
		created, createErr = s.challenges.Create(txCtx, sess, challenge)
		return createErr
	})
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Infof("challenge created: challenge_id=%s report_id=%s actions=%d", created.ChallengeID, report.ReportID, len(created.Actions))
	return created, nil
}

// CompleteAction 完成动作并返回挑战进度；动作一旦完成不可重开。
func (s *ChallengeService) CompleteAction(ctx context.Context, userID, actionID uuid.UUID, reflection *string) (*vo.ActionProgress, error) {
	if userID == uuid.Nil {
		return nil, errUserRequired()
	}
	action, err := s.challenges.GetAction(ctx, nil, actionID)
	if err != nil {
		if errors.Is(err, repositories.ErrActionNotFound) {
			return nil, kerrors.NotFound(ReasonActionNotFound, "action not found")
		}
		return nil, errQueryFailed("load action failed", err)
	}
	challenge, err := s.challenges.GetByID(ctx, nil, action.ChallengeID)
	if err != nil {
		if errors.Is(err, repositories.ErrChallengeNotFound) {
			return nil, kerrors.NotFound(ReasonChallengeNotFound, "challenge not found")
		}
		return nil, errQueryFailed("load challenge failed", err)
	}
	if challenge.UserID != userID {
		return nil, errAccessDenied("challenge does not belong to user")
	}

	var memo *string
	if reflection != nil {
		if trimmed := strings.TrimSpace(*reflection); trimmed != "" {
			memo = &trimmed
		}
	}

	progress := &vo.ActionProgress{ChallengeID: challenge.ChallengeID, ActionID: actionID}
	err = s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		if _, err := s.challenges.CompleteAction(txCtx, sess, actionID, memo, s.now()); err != nil {
			return err
		}
		completed, total, err := s.challenges.CountActions(txCtx, sess, challenge.ChallengeID)
		if err != nil {
			return err
		}
		progress.CompletedCount = completed
		progress.TotalCount = total
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrActionAlreadyCompleted):
			return nil, kerrors.Conflict(ReasonActionAlreadyCompleted, "action already completed").WithCause(err)
		case errors.Is(err, repositories.ErrActionNotFound):
			return nil, kerrors.NotFound(ReasonActionNotFound, "action not found")
		default:
			return nil, errQueryFailed("complete action failed", err)
		}
	}
	if progress.TotalCount > 0 {
		progress.ProgressPercent = progress.CompletedCount * 100 / progress.TotalCount
	}
	return progress, nil
}

// SweepExpired 将 end_date 早于 today 的进行中挑战置为 FAILED。
func (s *ChallengeService) SweepExpired(ctx context.Context, today time.Time) (int64, error) {
	var affected int64
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		n, err := s.challenges.FailExpired(txCtx, sess, po.DateOnly(today))
		affected = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// autoCreate 在报告落库后按策略派生挑战，失败只记录日志。
func (s *ChallengeService) autoCreate(ctx context.Context, report *po.AnalysisReport) *po.Challenge {
	created, err := s.createForReport(ctx, report)
	if err != nil {
		if errors.Is(err, ErrNoChallengePlan) || errors.Is(err, repositories.ErrChallengeAlreadyExists) {
			s.log.WithContext(ctx).Infof("auto challenge skipped: report_id=%s reason=%v", report.ReportID, err)
			return nil
		}
		s.log.WithContext(ctx).Warnf("auto challenge failed: report_id=%s err=%v", report.ReportID, err)
		return nil
	}
	return created
}
