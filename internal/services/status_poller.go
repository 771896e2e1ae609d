package services

import (
	"context"
	"errors"
	"fmt"
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
	"golang.org/x/sync/singleflight"
)

// 状态提示文案。
const (
	MessageUploading     = "Video upload in progress, preparing analysis."
	MessageSTTProcessing = "Converting speech to text."
	MessageSTTCompleted  = "STT complete, awaiting analysis."
	MessageAIAnalyzing   = "AI is analyzing the interaction."
	MessageCompleted     = "Analysis completed."
	MessageFailed        = "An error occurred during analysis."
)

// PollerConfig 控制轮询行为。
type PollerConfig struct {
	PollTimeout         time.Duration
	AutoCreateChallenge bool
}

// StatusPoller 查询视频分析进度，并在 AI 完成时一次性落库报告。
type StatusPoller struct {
	videos     VideoStore
	reports    ReportStore
	challenges ChallengeStore
	ai         AnalysisGateway
	growth     *GrowthMetricsEngine
	challenge  *ChallengeService
	txManager  txmanager.Manager
	cfg        PollerConfig
	group      singleflight.Group
	metrics    *pipelineMetrics
	log        *log.Helper
}

// NewStatusPoller 创建 StatusPoller。
func NewStatusPoller(
	videos VideoStore,
	reports ReportStore,
	challenges ChallengeStore,
	ai AnalysisGateway,
	growth *GrowthMetricsEngine,
	challenge *ChallengeService,
	tx txmanager.Manager,
	cfg PollerConfig,
	logger log.Logger,
) *StatusPoller {
	helper := log.NewHelper(log.With(logger, "component", "status_poller"))
	return &StatusPoller{
		videos:     videos,
		reports:    reports,
		challenges: challenges,
		ai:         ai,
		growth:     growth,
		challenge:  challenge,
		txManager:  tx,
		cfg:        cfg,
		metrics:    newPipelineMetrics(helper),
		log:        helper,
	}
}

// CheckStatus 返回视频当前分析状态。AI_ANALYZING 时会查询外部服务，
// 外部服务异常只记录日志并回落到已持久化的状态。
func (p *StatusPoller) CheckStatus(ctx context.Context, userID, videoID uuid.UUID) (*vo.AnalysisStatus, error) {
	video, err := p.videos.GetByID(ctx, nil, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, kerrors.NotFound(ReasonVideoNotFound, "video not found")
		}
		return nil, errQueryFailed("load video failed", err)
	}
	if userID != uuid.Nil && video.UserID != userID {
		return nil, errAccessDenied("video does not belong to user")
	}

	if video.Status == po.VideoStatusAIAnalyzing && video.HasExecutionHandle() {
		status, handled := p.pollExecution(ctx, video)
		if handled {
			return status, nil
		}
	}
	return p.fromPersisted(ctx, video)
}

// pollExecution 查询 AI 执行状态；返回 false 表示需要回落到持久化状态。
func (p *StatusPoller) pollExecution(ctx context.Context, video *po.Video) (*vo.AnalysisStatus, bool) {
	logger := p.log.WithContext(ctx)

	pollCtx, cancel := withOptionalTimeout(ctx, p.cfg.PollTimeout)
	snap, err := p.ai.Poll(pollCtx, *video.AIExecutionID)
	cancel()
	if err != nil {
		logger.Warnf("poll ai status failed: video_id=%s execution_id=%s err=%v", video.VideoID, *video.AIExecutionID, err)
		return nil, false
	}

	switch snap.State() {
	case analysis.ExecutionCompleted:
		status, err := p.finalizeOnce(ctx, video, snap)
		if err != nil {
			logger.Errorf("finalize analysis failed: video_id=%s err=%v", video.VideoID, err)
			return nil, false
		}
		return status, true

	case analysis.ExecutionFailed:
		message := "AI analysis failed: " + snap.StatusMessage
		updated, err := p.videos.TransitionStatus(ctx, nil, repositories.TransitionInput{
			VideoID:      video.VideoID,
			From:         []po.VideoStatus{po.VideoStatusAIAnalyzing},
			To:           po.VideoStatusFailed,
			ErrorMessage: &message,
		})
		if err != nil {
			logger.Warnf("mark ai failure failed: video_id=%s err=%v", video.VideoID, err)
			return nil, false
		}
		p.metrics.recordRun(ctx, "ai_failed")
		return failedStatus(updated), true

	default:
		msg := strings.TrimSpace(snap.StatusMessage)
		if msg == "" {
			msg = MessageAIAnalyzing
		}
		return &vo.AnalysisStatus{
			VideoID:      video.VideoID,
			Status:       string(po.VideoStatusAIAnalyzing),
			Message:      msg,
			DetailStatus: snap.AnalysisStatus,
			Progress:     snap.ProgressPercentage,
		}, true
	}
}

// finalizeOnce 在进程内按视频合并并发的完成处理。
func (p *StatusPoller) finalizeOnce(ctx context.Context, video *po.Video, snap *analysis.Snapshot) (*vo.AnalysisStatus, error) {
	v, err, _ := p.group.Do(video.VideoID.String(), func() (any, error) {
		return p.finalize(context.WithoutCancel(ctx), video, snap)
	})
	if err != nil {
		return nil, err
	}
	return v.(*vo.AnalysisStatus), nil
}

// finalize 计算成长指标、在同一事务内 CAS 视频状态并写入报告。
// CAS 失败说明其它实例已完成，改为读取已落库结果。
func (p *StatusPoller) finalize(ctx context.Context, video *po.Video, snap *analysis.Snapshot) (*vo.AnalysisStatus, error) {
	logger := p.log.WithContext(ctx)
	if !snap.HasResult() {
		return nil, fmt.Errorf("%w: completed execution without result", analysis.ErrMalformedResult)
	}
	doc, err := analysis.NewDocument(snap.Result)
	if err != nil {
		return nil, err
	}
	result, err := doc.Decode()
	if result == nil {
		return nil, err
	}
	if err != nil {
		logger.Warnf("analysis result sections dropped: video_id=%s err=%v", video.VideoID, err)
	}

	var metrics []analysis.Metric
	if categories := result.ParentCategories(); categories != nil {
		metrics, err = p.growth.ComputeTopDeltas(ctx, video.ChildID, video.VideoID, categories)
		if err != nil {
			logger.Warnf("growth metrics skipped: video_id=%s err=%v", video.VideoID, err)
			metrics = nil
		}
	}
	if err := doc.SetGrowthMetrics(metrics); err != nil {
		logger.Warnf("embed growth metrics failed: video_id=%s err=%v", video.VideoID, err)
	}

	report := &po.AnalysisReport{
		ReportID: uuid.New(),
		UserID:   video.UserID,
		ChildID:  video.ChildID,
		VideoID:  video.VideoID,
		PIScore:  result.PI(),
		NDIScore: result.NDI(),
		QIScore:  po.ComputeQI(result.PI(), result.NDI()),
		Content:  doc.Raw(),
	}
	if stage := strings.TrimSpace(result.StageName()); stage != "" {
		report.RelationshipStatus = &stage
	}

	var saved *po.AnalysisReport
	err = p.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		if _, err := p.videos.TransitionStatus(txCtx, sess, repositories.TransitionInput{
			VideoID: video.VideoID,
			From:    []po.VideoStatus{po.VideoStatusAIAnalyzing},
			To:      po.VideoStatusCompleted,
		}); err != nil {
			return err
		}
		var err error
		saved, err = p.reports.Create(txCtx, sess, report)
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrVideoStatusConflict) || errors.Is(err, repositories.ErrReportAlreadyExists) {
			logger.Infof("analysis already finalized elsewhere: video_id=%s", video.VideoID)
			current, getErr := p.videos.GetByID(ctx, nil, video.VideoID)
			if getErr != nil {
				return nil, getErr
			}
			return p.fromPersisted(ctx, current)
		}
		return nil, err
	}
	p.metrics.recordFinalized(ctx)
	p.metrics.recordRun(ctx, "completed")
	logger.Infof("analysis report saved: video_id=%s report_id=%s qi=%.2f", video.VideoID, saved.ReportID, saved.QIScore)

	out := &vo.AnalysisStatus{
		VideoID:         video.VideoID,
		Status:          string(po.VideoStatusCompleted),
		Message:         MessageCompleted,
		ReportID:        &saved.ReportID,
		Result:          saved.Content,
		ChallengeStatus: vo.ChallengeStatusNotCreated,
	}
	if p.cfg.AutoCreateChallenge && p.challenge != nil {
		if created := p.challenge.autoCreate(ctx, saved); created != nil {
			out.ChallengeStatus = string(created.Status)
			out.ChallengeID = &created.ChallengeID
		}
	}
	return out, nil
}

// fromPersisted 根据已持久化的状态构造返回值。
func (p *StatusPoller) fromPersisted(ctx context.Context, video *po.Video) (*vo.AnalysisStatus, error) {
	switch video.Status {
	case po.VideoStatusCompleted:
		return p.completedStatus(ctx, video)
	case po.VideoStatusFailed:
		return failedStatus(video), nil
	default:
		return &vo.AnalysisStatus{
			VideoID: video.VideoID,
			Status:  string(video.Status),
			Message: statusMessage(video.Status),
		}, nil
	}
}

func (p *StatusPoller) completedStatus(ctx context.Context, video *po.Video) (*vo.AnalysisStatus, error) {
	out := &vo.AnalysisStatus{
		VideoID:         video.VideoID,
		Status:          string(po.VideoStatusCompleted),
		Message:         MessageCompleted,
		ChallengeStatus: vo.ChallengeStatusNotCreated,
	}
	report, err := p.reports.GetByVideoID(ctx, nil, video.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrReportNotFound) {
			p.log.WithContext(ctx).Warnf("completed video without report: video_id=%s", video.VideoID)
			return out, nil
		}
		return nil, errQueryFailed("load report failed", err)
	}
	out.ReportID = &report.ReportID
	out.Result = report.Content

	challenge, err := p.challenges.GetBySourceReport(ctx, nil, report.ReportID)
	switch {
	case err == nil:
		out.ChallengeStatus = string(challenge.Status)
		out.ChallengeID = &challenge.ChallengeID
	case errors.Is(err, repositories.ErrChallengeNotFound):
	default:
		p.log.WithContext(ctx).Warnf("load linked challenge failed: report_id=%s err=%v", report.ReportID, err)
	}
	return out, nil
}

func failedStatus(video *po.Video) *vo.AnalysisStatus {
	out := &vo.AnalysisStatus{
		VideoID: video.VideoID,
		Status:  string(po.VideoStatusFailed),
		Message: MessageFailed,
	}
	if video.ErrorMessage != nil {
		out.ErrorMessage = *video.ErrorMessage
	}
	return out
}

func statusMessage(status po.VideoStatus) string {
	switch status {
	case po.VideoStatusUploading:
		return MessageUploading
	case po.VideoStatusSTTProcessing:
		return MessageSTTProcessing
	case po.VideoStatusSTTCompleted:
		return MessageSTTCompleted
	case po.VideoStatusAIAnalyzing:
		return MessageAIAnalyzing
	case po.VideoStatusCompleted:
		return MessageCompleted
	case po.VideoStatusFailed:
		return MessageFailed
	default:
		return "Waiting."
	}
}
