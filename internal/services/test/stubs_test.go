package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/analysis"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"
	"github.com/bionicotaku/lingo-services-analysis/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func discardLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

type noopTxManager struct{}

type noopSession struct{}

func (noopSession) Tx() pgx.Tx               { return nil }
func (noopSession) Context() context.Context { return context.Background() }

func (noopTxManager) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

func (noopTxManager) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

// memDB 模拟数据库的事务可见性：事务内写入对事务外读取整体可见。
type memDB struct {
	sync.RWMutex
}

func (db *memDB) read(sess txmanager.Session) func() {
	if db == nil || sess != nil {
		return func() {}
	}
	db.RLock()
	return db.RUnlock
}

func (db *memDB) write(sess txmanager.Session) func() {
	if db == nil || sess != nil {
		return func() {}
	}
	db.Lock()
	return db.Unlock
}

// serialTxManager 串行执行事务，配合 memDB 使用。
type serialTxManager struct {
	db *memDB
}

func (m serialTxManager) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	m.db.Lock()
	defer m.db.Unlock()
	return fn(ctx, noopSession{})
}

func (m serialTxManager) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	m.db.RLock()
	defer m.db.RUnlock()
	return fn(ctx, noopSession{})
}

// memVideoStore 以内存实现 CAS 语义。
type memVideoStore struct {
	mu     sync.Mutex
	db     *memDB
	videos map[uuid.UUID]*po.Video
}

func newMemVideoStore() *memVideoStore {
	return &memVideoStore{videos: map[uuid.UUID]*po.Video{}}
}

func (s *memVideoStore) put(v *po.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.videos[v.VideoID] = &cp
}

func (s *memVideoStore) Create(_ context.Context, _ txmanager.Session, v *po.Video) (*po.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	cp.CreatedAt = time.Now()
	cp.StatusUpdatedAt = cp.CreatedAt
	s.videos[v.VideoID] = &cp
	out := cp
	return &out, nil
}

func (s *memVideoStore) GetByID(_ context.Context, sess txmanager.Session, id uuid.UUID) (*po.Video, error) {
	defer s.db.read(sess)()
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, repositories.ErrVideoNotFound
	}
	out := *v
	return &out, nil
}

func (s *memVideoStore) TransitionStatus(_ context.Context, sess txmanager.Session, input repositories.TransitionInput) (*po.Video, error) {
	defer s.db.write(sess)()
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[input.VideoID]
	if !ok {
		return nil, repositories.ErrVideoNotFound
	}
	matched := false
	for _, from := range input.From {
		if !from.CanTransitionTo(input.To) {
			return nil, fmt.Errorf("transition: %s -> %s is not allowed", from, input.To)
		}
		if v.Status == from {
			matched = true
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: current=%s target=%s", repositories.ErrVideoStatusConflict, v.Status, input.To)
	}
	v.Status = input.To
	if len(input.STTResult) > 0 {
		v.STTResult = input.STTResult
	}
	if input.ExecutionID != nil {
		id := *input.ExecutionID
		v.AIExecutionID = &id
	}
	if input.ErrorMessage != nil {
		msg := *input.ErrorMessage
		v.ErrorMessage = &msg
	}
	v.StatusUpdatedAt = time.Now()
	out := *v
	return &out, nil
}

func (s *memVideoStore) MarkFailed(ctx context.Context, sess txmanager.Session, id uuid.UUID, message string) (*po.Video, error) {
	return s.TransitionStatus(ctx, sess, repositories.TransitionInput{
		VideoID:      id,
		From:         po.NonTerminalVideoStatuses(),
		To:           po.VideoStatusFailed,
		ErrorMessage: &message,
	})
}

type memReportStore struct {
	mu      sync.Mutex
	db      *memDB
	reports []*po.AnalysisReport
	creates int
}

func (s *memReportStore) Create(_ context.Context, _ txmanager.Session, r *po.AnalysisReport) (*po.AnalysisReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	for _, existing := range s.reports {
		if existing.VideoID == r.VideoID {
			return nil, repositories.ErrReportAlreadyExists
		}
	}
	cp := *r
	cp.CreatedAt = time.Now()
	s.reports = append(s.reports, &cp)
	out := cp
	return &out, nil
}

func (s *memReportStore) GetByID(_ context.Context, _ txmanager.Session, id uuid.UUID) (*po.AnalysisReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ReportID == id {
			out := *r
			return &out, nil
		}
	}
	return nil, repositories.ErrReportNotFound
}

func (s *memReportStore) GetByVideoID(_ context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.AnalysisReport, error) {
	defer s.db.read(sess)()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.VideoID == videoID {
			out := *r
			return &out, nil
		}
	}
	return nil, repositories.ErrReportNotFound
}

func (s *memReportStore) FindLatestByChild(_ context.Context, _ txmanager.Session, childID, excludeVideoID uuid.UUID) (*po.AnalysisReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.reports) - 1; i >= 0; i-- {
		r := s.reports[i]
		if r.ChildID == childID && r.VideoID != excludeVideoID {
			out := *r
			return &out, nil
		}
	}
	return nil, repositories.ErrReportNotFound
}

func (s *memReportStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

type memChallengeStore struct {
	mu         sync.Mutex
	challenges []*po.Challenge
	swept      []time.Time
	sweepCount int64
}

func (s *memChallengeStore) Create(_ context.Context, _ txmanager.Session, c *po.Challenge) (*po.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.challenges {
		if c.SourceReportID != nil && existing.SourceReportID != nil && *existing.SourceReportID == *c.SourceReportID {
			return nil, repositories.ErrChallengeAlreadyExists
		}
	}
	cp := *c
	cp.Actions = append([]po.ChallengeAction(nil), c.Actions...)
	s.challenges = append(s.challenges, &cp)
	out := cp
	return &out, nil
}

func (s *memChallengeStore) find(pred func(*po.Challenge) bool) (*po.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.challenges {
		if pred(c) {
			out := *c
			out.Actions = append([]po.ChallengeAction(nil), c.Actions...)
			return &out, nil
		}
	}
	return nil, repositories.ErrChallengeNotFound
}

func (s *memChallengeStore) GetBySourceReport(_ context.Context, _ txmanager.Session, reportID uuid.UUID) (*po.Challenge, error) {
	return s.find(func(c *po.Challenge) bool { return c.SourceReportID != nil && *c.SourceReportID == reportID })
}

func (s *memChallengeStore) GetByID(_ context.Context, _ txmanager.Session, id uuid.UUID) (*po.Challenge, error) {
	return s.find(func(c *po.Challenge) bool { return c.ChallengeID == id })
}

func (s *memChallengeStore) ListByChildAndStatus(_ context.Context, _ txmanager.Session, childID uuid.UUID, status po.ChallengeStatus) ([]*po.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*po.Challenge
	for _, c := range s.challenges {
		if c.ChildID == childID && c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memChallengeStore) GetAction(_ context.Context, _ txmanager.Session, actionID uuid.UUID) (*po.ChallengeAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.challenges {
		for _, a := range c.Actions {
			if a.ActionID == actionID {
				out := a
				return &out, nil
			}
		}
	}
	return nil, repositories.ErrActionNotFound
}

func (s *memChallengeStore) CompleteAction(_ context.Context, _ txmanager.Session, actionID uuid.UUID, reflection *string, at time.Time) (*po.ChallengeAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.challenges {
		for i := range c.Actions {
			a := &c.Actions[i]
			if a.ActionID != actionID {
				continue
			}
			if a.Completed {
				return nil, repositories.ErrActionAlreadyCompleted
			}
			a.Completed = true
			a.CompletedAt = &at
			a.Reflection = reflection
			out := *a
			return &out, nil
		}
	}
	return nil, repositories.ErrActionNotFound
}

func (s *memChallengeStore) CountActions(_ context.Context, _ txmanager.Session, challengeID uuid.UUID) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.challenges {
		if c.ChallengeID != challengeID {
			continue
		}
		completed := 0
		for _, a := range c.Actions {
			if a.Completed {
				completed++
			}
		}
		return completed, len(c.Actions), nil
	}
	return 0, 0, nil
}

func (s *memChallengeStore) FailExpired(_ context.Context, _ txmanager.Session, today time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swept = append(s.swept, today)
	var n int64
	for _, c := range s.challenges {
		if c.Status == po.ChallengeStatusProceeding && c.EndDate.Before(today) {
			c.Status = po.ChallengeStatusFailed
			n++
		}
	}
	s.sweepCount += n
	return n, nil
}

type childStoreStub struct {
	child *po.Child
	count int
	err   error
}

func (s *childStoreStub) GetByID(_ context.Context, _ txmanager.Session, id uuid.UUID) (*po.Child, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.child == nil || s.child.ChildID != id {
		return nil, repositories.ErrChildNotFound
	}
	return s.child, nil
}

func (s *childStoreStub) FindByUser(_ context.Context, _ txmanager.Session, _ uuid.UUID) (*po.Child, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	if s.child == nil {
		return nil, 0, repositories.ErrChildNotFound
	}
	count := s.count
	if count == 0 {
		count = 1
	}
	return s.child, count, nil
}

type storageStub struct {
	mu          sync.Mutex
	uploadKey   string
	contentType string
	err         error
}

func (s *storageStub) SignUpload(_ context.Context, key, contentType string) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	s.uploadKey = key
	s.contentType = contentType
	return "https://storage.test/put/" + key, time.Now().Add(15 * time.Minute), nil
}

func (s *storageStub) SignDownload(_ context.Context, key string) (string, time.Time, error) {
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return "https://storage.test/get/" + key, time.Now().Add(time.Hour), nil
}

func (s *storageStub) PublicURL(key string) string {
	return "https://storage.test/" + key
}

// stageGate 让桩在进入时发出信号并阻塞到 release 关闭，用于观察流水线中间状态。
type stageGate struct {
	entered chan struct{}
	release chan struct{}
}

func newStageGate() *stageGate {
	return &stageGate{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *stageGate) wait(ctx context.Context) {
	if g == nil {
		return
	}
	select {
	case g.entered <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
	case <-ctx.Done():
	}
}

type speechStub struct {
	transcript *analysis.Transcript
	err        error
	gate       *stageGate
}

func (s *speechStub) Transcribe(ctx context.Context, _ string) (*analysis.Transcript, error) {
	s.gate.wait(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return s.transcript, nil
}

type aiStub struct {
	mu        sync.Mutex
	submitted []*analysis.Request
	submitErr error
	snapshot  *analysis.Snapshot
	pollErr   error
	polls     int
	gate      *stageGate
}

func (s *aiStub) Submit(ctx context.Context, req *analysis.Request) (string, error) {
	s.gate.wait(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return "", s.submitErr
	}
	s.submitted = append(s.submitted, req)
	return fmt.Sprintf("exec-%d", len(s.submitted)), nil
}

func (s *aiStub) Poll(_ context.Context, _ string) (*analysis.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if s.pollErr != nil {
		return nil, s.pollErr
	}
	snap := *s.snapshot
	return &snap, nil
}

func sampleTranscript() *analysis.Transcript {
	return &analysis.Transcript{
		Text: "엄마 여기 봐 블록 쌓자",
		Segments: []analysis.Segment{
			{Start: 0, End: 1200, Text: "엄마 여기 봐", Speaker: analysis.Speaker{Label: "1", Name: "A"}},
			{Start: 1300, End: 2400, Text: "  ", Speaker: analysis.Speaker{Label: "2", Name: "B"}},
			{Start: 2500, End: 4000, Text: "블록 쌓자", Speaker: analysis.Speaker{Label: "2"}},
		},
	}
}

type resultOptions struct {
	pi, ndi    float64
	categories []analysis.Category
	plan       *analysis.ChallengePlan
}

func resultJSON(opts resultOptions) json.RawMessage {
	doc := map[string]any{
		"schema_version":    "v2",
		"scores":            map[string]any{"pi_score": opts.pi, "ndi_score": opts.ndi},
		"summary_diagnosis": map[string]any{"stage_name": "Growing together"},
		"style_analysis": map[string]any{
			"interaction_style": map[string]any{
				"parent_analysis": map[string]any{"categories": opts.categories},
			},
		},
		"growth_report": map[string]any{"comment": "keep going"},
	}
	if opts.plan != nil {
		doc["coaching_and_plan"] = map[string]any{"coaching_plan": map[string]any{"challenge": opts.plan}}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return raw
}

func completedSnapshot(result json.RawMessage) *analysis.Snapshot {
	return &analysis.Snapshot{ExecutionID: "exec-1", Status: "completed", Result: result}
}

func int32Ptr(v int32) *int32 { return &v }
func strPtr(v string) *string { return &v }
