package repositories_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"
	"github.com/bionicotaku/lingo-services-analysis/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func createVideo(ctx context.Context, t *testing.T, repo *repositories.VideoRepository, userID, childID uuid.UUID) *po.Video {
	t.Helper()
	videoID := uuid.New()
	video, err := repo.Create(ctx, nil, &po.Video{
		VideoID:          videoID,
		UserID:           userID,
		ChildID:          childID,
		FileName:         "clip.mp4",
		BucketKey:        "user-" + userID.String() + "/" + videoID.String() + "-clip.mp4",
		ContentType:      "video/mp4",
		OriginalVideoURL: "https://storage.example/" + videoID.String(),
		Status:           po.VideoStatusUploading,
	})
	require.NoError(t, err)
	return video
}

func TestReportRepository_UniquePerVideoAndLatest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := newTestPool(ctx, t)
	logger := log.NewStdLogger(io.Discard)
	videos := repositories.NewVideoRepository(pool, logger)
	reports := repositories.NewReportRepository(pool, logger)

	userID := uuid.New()
	childID := seedChild(ctx, t, pool, userID, "Mina")
	first := createVideo(ctx, t, videos, userID, childID)
	second := createVideo(ctx, t, videos, userID, childID)

	stage := "secure"
	report := &po.AnalysisReport{
		ReportID:           uuid.New(),
		UserID:             userID,
		ChildID:            childID,
		VideoID:            first.VideoID,
		PIScore:            60,
		NDIScore:           40,
		QIScore:            po.ComputeQI(60, 40),
		RelationshipStatus: &stage,
		Content:            json.RawMessage(`{"scores":{"pi_score":60,"ndi_score":40}}`),
	}
	created, err := reports.Create(ctx, nil, report)
	require.NoError(t, err)
	require.InDelta(t, 60.0, created.QIScore, 0.001)
	require.Equal(t, "secure", *created.RelationshipStatus)

	dup := *report
	dup.ReportID = uuid.New()
	_, err = reports.Create(ctx, nil, &dup)
	require.ErrorIs(t, err, repositories.ErrReportAlreadyExists)

	byVideo, err := reports.GetByVideoID(ctx, nil, first.VideoID)
	require.NoError(t, err)
	require.Equal(t, report.ReportID, byVideo.ReportID)

	latest, err := reports.FindLatestByChild(ctx, nil, childID, second.VideoID)
	require.NoError(t, err)
	require.Equal(t, report.ReportID, latest.ReportID)

	_, err = reports.FindLatestByChild(ctx, nil, childID, first.VideoID)
	require.ErrorIs(t, err, repositories.ErrReportNotFound)
}

func TestChallengeRepository_ActionsAndSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := newTestPool(ctx, t)
	logger := log.NewStdLogger(io.Discard)
	repo := repositories.NewChallengeRepository(pool, logger)

	userID := uuid.New()
	childID := seedChild(ctx, t, pool, userID, "Mina")
	today := po.DateOnly(time.Now())

	expired := insertChallenge(ctx, t, repo, userID, childID, today.AddDate(0, 0, -7), today.AddDate(0, 0, -1), "read together", "ask open questions")
	endsToday := insertChallenge(ctx, t, repo, userID, childID, today.AddDate(0, 0, -6), today, "play blocks")

	proceeding, err := repo.ListByChildAndStatus(ctx, nil, childID, po.ChallengeStatusProceeding)
	require.NoError(t, err)
	require.Len(t, proceeding, 2)
	require.Len(t, proceeding[0].Actions, 2)
	require.Equal(t, "read together", proceeding[0].Actions[0].Content)

	note := "went well"
	done, err := repo.CompleteAction(ctx, nil, expired.Actions[0].ActionID, &note, time.Now())
	require.NoError(t, err)
	require.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)

	_, err = repo.CompleteAction(ctx, nil, expired.Actions[0].ActionID, nil, time.Now())
	require.ErrorIs(t, err, repositories.ErrActionAlreadyCompleted)

	_, err = repo.CompleteAction(ctx, nil, uuid.New(), nil, time.Now())
	require.ErrorIs(t, err, repositories.ErrActionNotFound)

	completed, total, err := repo.CountActions(ctx, nil, expired.ChallengeID)
	require.NoError(t, err)
	require.Equal(t, 1, completed)
	require.Equal(t, 2, total)

	affected, err := repo.FailExpired(ctx, nil, today)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	reloaded, err := repo.GetByID(ctx, nil, expired.ChallengeID)
	require.NoError(t, err)
	require.Equal(t, po.ChallengeStatusFailed, reloaded.Status)

	stillOn, err := repo.GetByID(ctx, nil, endsToday.ChallengeID)
	require.NoError(t, err)
	require.Equal(t, po.ChallengeStatusProceeding, stillOn.Status)
}

func TestChallengeRepository_OnePerReport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := newTestPool(ctx, t)
	logger := log.NewStdLogger(io.Discard)
	repo := repositories.NewChallengeRepository(pool, logger)

	userID := uuid.New()
	childID := seedChild(ctx, t, pool, userID, "Mina")
	reportID := seedReport(ctx, t, pool, userID, childID)
	today := po.DateOnly(time.Now())

	first := &po.Challenge{
		ChallengeID:    uuid.New(),
		UserID:         userID,
		ChildID:        childID,
		SourceReportID: &reportID,
		Title:          "title",
		Goal:           "goal",
		StartDate:      today,
		EndDate:        today.AddDate(0, 0, 6),
		Status:         po.ChallengeStatusProceeding,
	}
	_, err := repo.Create(ctx, nil, first)
	require.NoError(t, err)

	second := *first
	second.ChallengeID = uuid.New()
	_, err = repo.Create(ctx, nil, &second)
	require.ErrorIs(t, err, repositories.ErrChallengeAlreadyExists)

	found, err := repo.GetBySourceReport(ctx, nil, reportID)
	require.NoError(t, err)
	require.Equal(t, first.ChallengeID, found.ChallengeID)
}

func TestChallengeRepository_UpdateStatusCAS(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := newTestPool(ctx, t)
	logger := log.NewStdLogger(io.Discard)
	repo := repositories.NewChallengeRepository(pool, logger)

	userID := uuid.New()
	childID := seedChild(ctx, t, pool, userID, "Mina")
	today := po.DateOnly(time.Now())
	c := insertChallenge(ctx, t, repo, userID, childID, today, today.AddDate(0, 0, 6), "play blocks")

	require.NoError(t, repo.UpdateStatus(ctx, nil, c.ChallengeID, po.ChallengeStatusProceeding, po.ChallengeStatusCompleted))

	reloaded, err := repo.GetByID(ctx, nil, c.ChallengeID)
	require.NoError(t, err)
	require.Equal(t, po.ChallengeStatusCompleted, reloaded.Status)

	// 期望状态已不匹配。
	err = repo.UpdateStatus(ctx, nil, c.ChallengeID, po.ChallengeStatusProceeding, po.ChallengeStatusFailed)
	require.ErrorIs(t, err, repositories.ErrChallengeStatusConflict)

	err = repo.UpdateStatus(ctx, nil, uuid.New(), po.ChallengeStatusProceeding, po.ChallengeStatusCompleted)
	require.ErrorIs(t, err, repositories.ErrChallengeStatusConflict)

	affected, err := repo.FailExpired(ctx, nil, today.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Zero(t, affected)

	reloaded, err = repo.GetByID(ctx, nil, c.ChallengeID)
	require.NoError(t, err)
	require.Equal(t, po.ChallengeStatusCompleted, reloaded.Status)
}

func insertChallenge(ctx context.Context, t *testing.T, repo *repositories.ChallengeRepository, userID, childID uuid.UUID, start, end time.Time, actions ...string) *po.Challenge {
	t.Helper()
	c := &po.Challenge{
		ChallengeID: uuid.New(),
		UserID:      userID,
		ChildID:     childID,
		Title:       "challenge",
		Goal:        "goal",
		StartDate:   start,
		EndDate:     end,
		Status:      po.ChallengeStatusProceeding,
	}
	for _, content := range actions {
		c.Actions = append(c.Actions, po.ChallengeAction{Content: content})
	}
	created, err := repo.Create(ctx, nil, c)
	require.NoError(t, err)
	require.Len(t, created.Actions, len(actions))
	return created
}

func seedReport(ctx context.Context, t *testing.T, pool *pgxpool.Pool, userID, childID uuid.UUID) uuid.UUID {
	t.Helper()
	logger := log.NewStdLogger(io.Discard)
	video := createVideo(ctx, t, repositories.NewVideoRepository(pool, logger), userID, childID)
	report, err := repositories.NewReportRepository(pool, logger).Create(ctx, nil, &po.AnalysisReport{
		ReportID: uuid.New(),
		UserID:   userID,
		ChildID:  childID,
		VideoID:  video.VideoID,
		Content:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return report.ReportID
}
