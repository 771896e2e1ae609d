package repositories_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"
	"github.com/bionicotaku/lingo-services-analysis/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestVideoRepository_TransitionLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := newTestPool(ctx, t)
	repo := repositories.NewVideoRepository(pool, log.NewStdLogger(io.Discard))

	userID := uuid.New()
	childID := seedChild(ctx, t, pool, userID, "Mina")
	tag := "free play"

	created, err := repo.Create(ctx, nil, &po.Video{
		VideoID:          uuid.New(),
		UserID:           userID,
		ChildID:          childID,
		FileName:         "clip.mp4",
		BucketKey:        "user-" + userID.String() + "/1700000000000-clip.mp4",
		ContentType:      "video/mp4",
		ContextTag:       &tag,
		DurationSeconds:  120,
		OriginalVideoURL: "https://storage.example/clip.mp4",
		Status:           po.VideoStatusUploading,
	})
	require.NoError(t, err)
	require.Equal(t, po.VideoStatusUploading, created.Status)
	require.NotNil(t, created.ContextTag)
	require.Nil(t, created.AIExecutionID)

	moved, err := repo.TransitionStatus(ctx, nil, repositories.TransitionInput{
		VideoID: created.VideoID,
		From:    []po.VideoStatus{po.VideoStatusUploading},
		To:      po.VideoStatusSTTProcessing,
	})
	require.NoError(t, err)
	require.Equal(t, po.VideoStatusSTTProcessing, moved.Status)

	_, err = repo.TransitionStatus(ctx, nil, repositories.TransitionInput{
		VideoID: created.VideoID,
		From:    []po.VideoStatus{po.VideoStatusUploading},
		To:      po.VideoStatusSTTProcessing,
	})
	require.True(t, errors.Is(err, repositories.ErrVideoStatusConflict))

	transcript := json.RawMessage(`{"segments":[{"start":0,"text":"hi","speaker":{"name":"A"}}]}`)
	sttDone, err := repo.TransitionStatus(ctx, nil, repositories.TransitionInput{
		VideoID:   created.VideoID,
		From:      []po.VideoStatus{po.VideoStatusSTTProcessing},
		To:        po.VideoStatusSTTCompleted,
		STTResult: transcript,
	})
	require.NoError(t, err)
	require.JSONEq(t, string(transcript), string(sttDone.STTResult))

	execID := "exec-1"
	analyzing, err := repo.TransitionStatus(ctx, nil, repositories.TransitionInput{
		VideoID:     created.VideoID,
		From:        []po.VideoStatus{po.VideoStatusSTTCompleted},
		To:          po.VideoStatusAIAnalyzing,
		ExecutionID: &execID,
	})
	require.NoError(t, err)
	require.True(t, analyzing.HasExecutionHandle())
	require.JSONEq(t, string(transcript), string(analyzing.STTResult))

	failed, err := repo.MarkFailed(ctx, nil, created.VideoID, "AI analysis failed: boom")
	require.NoError(t, err)
	require.Equal(t, po.VideoStatusFailed, failed.Status)
	require.Equal(t, "exec-1", *failed.AIExecutionID)

	_, err = repo.MarkFailed(ctx, nil, created.VideoID, "again")
	require.True(t, errors.Is(err, repositories.ErrVideoStatusConflict))

	_, err = repo.GetByID(ctx, nil, uuid.New())
	require.ErrorIs(t, err, repositories.ErrVideoNotFound)
}

func TestVideoRepository_RejectsIllegalEdge(t *testing.T) {
	repo := repositories.NewVideoRepository(nil, log.NewStdLogger(io.Discard))

	_, err := repo.TransitionStatus(context.Background(), nil, repositories.TransitionInput{
		VideoID: uuid.New(),
		From:    []po.VideoStatus{po.VideoStatusCompleted},
		To:      po.VideoStatusFailed,
	})
	require.Error(t, err)
}

func TestChildRepository_FindByUserPicksOldest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := newTestPool(ctx, t)
	repo := repositories.NewChildRepository(pool, log.NewStdLogger(io.Discard))

	userID := uuid.New()
	_, _, err := repo.FindByUser(ctx, nil, userID)
	require.ErrorIs(t, err, repositories.ErrChildNotFound)

	firstID := seedChild(ctx, t, pool, userID, "Mina")
	seedChild(ctx, t, pool, userID, "Joon")

	child, total, err := repo.FindByUser(ctx, nil, userID)
	require.NoError(t, err)
	require.Equal(t, firstID, child.ChildID)
	require.Equal(t, 2, total)
	require.Equal(t, po.GenderFemale, child.Gender)
	require.NotNil(t, child.BirthDate)

	byID, err := repo.GetByID(ctx, nil, firstID)
	require.NoError(t, err)
	require.Equal(t, "Mina", byID.Name)
}
