package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/analysis"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"
	"github.com/bionicotaku/lingo-services-analysis/internal/repositories"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// 流水线阶段名，出现在失败信息与指标标签中。
const (
	StageSignDownload    = "sign_download"
	StageTranscribe      = "stt"
	StageStoreTranscript = "store_transcript"
	StageBuildRequest    = "build_request"
	StageSubmit          = "ai_submit"
	StageStoreExecution  = "store_execution"
)

// PipelineConfig 控制后台流水线的并发与超时。
type PipelineConfig struct {
	MaxConcurrency int64
	STTTimeout     time.Duration
	SubmitTimeout  time.Duration
}

// PipelineOrchestrator 推进视频从 STT_PROCESSING 到 AI_ANALYZING。
// 外部调用期间不持有任何锁，所有状态写入均为 CAS。
type PipelineOrchestrator struct {
	videos     VideoStore
	children   ChildStore
	challenges ChallengeStore
	storage    ObjectStorage
	speech     SpeechRecognizer
	ai         AnalysisGateway

	cfg     PipelineConfig
	sem     *semaphore.Weighted
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
	metrics *pipelineMetrics
	log     *log.Helper
	now     func() time.Time
}

// NewPipelineOrchestrator 创建 PipelineOrchestrator。
func NewPipelineOrchestrator(
	videos VideoStore,
	children ChildStore,
	challenges ChallengeStore,
	storage ObjectStorage,
	speech SpeechRecognizer,
	ai AnalysisGateway,
	cfg PipelineConfig,
	logger log.Logger,
) *PipelineOrchestrator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	helper := log.NewHelper(log.With(logger, "component", "pipeline"))
	return &PipelineOrchestrator{
		videos:     videos,
		children:   children,
		challenges: challenges,
		storage:    storage,
		speech:     speech,
		ai:         ai,
		cfg:        cfg,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrency),
		metrics:    newPipelineMetrics(helper),
		log:        helper,
		now:        time.Now,
	}
}

// StartAnalysis 将视频从 UPLOADING 推进到 STT_PROCESSING 并在后台运行流水线，立即返回。
// 同一视频只能成功启动一次，其它状态返回 Conflict。
func (o *PipelineOrchestrator) StartAnalysis(ctx context.Context, userID, videoID uuid.UUID) error {
	if o.isClosing() {
		return kerrors.ServiceUnavailable(ReasonShuttingDown, "service is shutting down")
	}
	video, err := o.videos.GetByID(ctx, nil, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return kerrors.NotFound(ReasonVideoNotFound, "video not found")
		}
		return errQueryFailed("load video failed", err)
	}
	if userID != uuid.Nil && video.UserID != userID {
		return errAccessDenied("video does not belong to user")
	}

	video, err = o.videos.TransitionStatus(ctx, nil, repositories.TransitionInput{
		VideoID: videoID,
		From:    []po.VideoStatus{po.VideoStatusUploading},
		To:      po.VideoStatusSTTProcessing,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrVideoStatusConflict):
			return kerrors.Conflict(ReasonVideoStatusConflict, "video is not awaiting analysis").WithCause(err)
		case errors.Is(err, repositories.ErrVideoNotFound):
			return kerrors.NotFound(ReasonVideoNotFound, "video not found")
		default:
			return errQueryFailed("start analysis failed", err)
		}
	}

	runCtx := context.WithoutCancel(ctx)
	o.mu.Lock()
	if o.closing {
		o.mu.Unlock()
		o.fail(runCtx, video.VideoID, "schedule", errors.New("service is shutting down"))
		return kerrors.ServiceUnavailable(ReasonShuttingDown, "service is shutting down")
	}
	o.wg.Add(1)
	o.mu.Unlock()
	go func() {
		defer o.wg.Done()
		if err := o.sem.Acquire(runCtx, 1); err != nil {
			o.fail(runCtx, video.VideoID, "schedule", err)
			return
		}
		defer o.sem.Release(1)
		o.run(runCtx, video)
	}()

	o.log.WithContext(ctx).Infof("analysis started: video_id=%s", videoID)
	return nil
}

// Shutdown 拒绝新任务并等待在途流水线结束，超时返回 ctx 错误。
func (o *PipelineOrchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closing = true
	o.mu.Unlock()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *PipelineOrchestrator) isClosing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closing
}

func (o *PipelineOrchestrator) run(ctx context.Context, video *po.Video) {
	if err := o.runPipeline(ctx, video); err != nil {
		var stageErr *stageError
		stage := "unknown"
		if errors.As(err, &stageErr) {
			stage = stageErr.stage
		}
		o.fail(ctx, video.VideoID, stage, err)
		o.metrics.recordRun(ctx, "failed")
		return
	}
	o.metrics.recordRun(ctx, "submitted")
}

func (o *PipelineOrchestrator) runPipeline(ctx context.Context, video *po.Video) error {
	logger := o.log.WithContext(ctx)

	var sourceURL string
	if err := o.stage(ctx, StageSignDownload, func(ctx context.Context) error {
		var err error
		sourceURL, _, err = o.storage.SignDownload(ctx, video.BucketKey)
		return err
	}); err != nil {
		return err
	}

	var transcript *analysis.Transcript
	if err := o.stage(ctx, StageTranscribe, func(ctx context.Context) error {
		sttCtx, cancel := withOptionalTimeout(ctx, o.cfg.STTTimeout)
		defer cancel()
		var err error
		transcript, err = o.speech.Transcribe(sttCtx, sourceURL)
		return err
	}); err != nil {
		return err
	}

	if err := o.stage(ctx, StageStoreTranscript, func(ctx context.Context) error {
		raw := transcript.Raw
		if len(raw) == 0 {
			encoded, err := json.Marshal(transcript)
			if err != nil {
				return err
			}
			raw = encoded
		}
		_, err := o.videos.TransitionStatus(ctx, nil, repositories.TransitionInput{
			VideoID:   video.VideoID,
			From:      []po.VideoStatus{po.VideoStatusSTTProcessing},
			To:        po.VideoStatusSTTCompleted,
			STTResult: raw,
		})
		return err
	}); err != nil {
		return err
	}
	logger.Infof("stt completed: video_id=%s segments=%d", video.VideoID, len(transcript.Segments))

	var req *analysis.Request
	if err := o.stage(ctx, StageBuildRequest, func(ctx context.Context) error {
		child, err := o.children.GetByID(ctx, nil, video.ChildID)
		if err != nil {
			return fmt.Errorf("load child: %w", err)
		}
		active, err := o.challenges.ListByChildAndStatus(ctx, nil, child.ChildID, po.ChallengeStatusProceeding)
		if err != nil {
			return fmt.Errorf("load active challenges: %w", err)
		}
		req = BuildAnalysisRequest(transcript, child, video, active)
		return nil
	}); err != nil {
		return err
	}

	var executionID string
	if err := o.stage(ctx, StageSubmit, func(ctx context.Context) error {
		submitCtx, cancel := withOptionalTimeout(ctx, o.cfg.SubmitTimeout)
		defer cancel()
		var err error
		executionID, err = o.ai.Submit(submitCtx, req)
		return err
	}); err != nil {
		return err
	}

	if err := o.stage(ctx, StageStoreExecution, func(ctx context.Context) error {
		_, err := o.videos.TransitionStatus(ctx, nil, repositories.TransitionInput{
			VideoID:     video.VideoID,
			From:        []po.VideoStatus{po.VideoStatusSTTCompleted},
			To:          po.VideoStatusAIAnalyzing,
			ExecutionID: &executionID,
		})
		return err
	}); err != nil {
		return err
	}

	logger.Infof("analysis submitted: video_id=%s execution_id=%s", video.VideoID, executionID)
	return nil
}

type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func (o *PipelineOrchestrator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	started := time.Now()
	err := fn(ctx)
	o.metrics.recordStage(ctx, name, started)
	if err != nil {
		return &stageError{stage: name, err: err}
	}
	return nil
}

func (o *PipelineOrchestrator) fail(ctx context.Context, videoID uuid.UUID, stage string, cause error) {
	message := fmt.Sprintf("analysis failed at %s: %v (%s)", stage, cause, o.now().UTC().Format(time.RFC3339))
	o.log.WithContext(ctx).Errorf("pipeline failed: video_id=%s stage=%s err=%v", videoID, stage, cause)
	if _, err := o.videos.MarkFailed(ctx, nil, videoID, message); err != nil {
		o.log.WithContext(ctx).Warnf("mark video failed: video_id=%s err=%v", videoID, err)
	}
}

// BuildAnalysisRequest 组装 AI 请求：发言列表、儿童与场景信息、进行中挑战的未完成动作。
func BuildAnalysisRequest(transcript *analysis.Transcript, child *po.Child, video *po.Video, active []*po.Challenge) *analysis.Request {
	req := &analysis.Request{
		Utterances:     transcript.Utterances(),
		ChallengeSpecs: make([]analysis.ChallengeSpec, 0, len(active)),
	}
	if req.Utterances == nil {
		req.Utterances = []analysis.Utterance{}
	}
	if child != nil {
		req.Meta.ChildName = child.Name
		req.Meta.ChildGender = string(child.Gender)
		if child.BirthDate != nil {
			req.Meta.ChildBirthDate = child.BirthDate.Format(po.DateLayout)
		}
	}
	if video != nil && video.ContextTag != nil {
		req.Meta.ContextTag = *video.ContextTag
	}
	for _, c := range active {
		if c == nil {
			continue
		}
		incomplete := c.IncompleteActions()
		actions := make([]analysis.ActionSpec, 0, len(incomplete))
		for _, a := range incomplete {
			actions = append(actions, analysis.ActionSpec{ActionID: a.ActionID.String(), Content: a.Content})
		}
		req.ChallengeSpecs = append(req.ChallengeSpecs, analysis.ChallengeSpec{
			ChallengeID: c.ChallengeID.String(),
			Title:       c.Title,
			Goal:        c.Goal,
			Actions:     actions,
		})
	}
	return req
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
