package services_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"
	"github.com/bionicotaku/lingo-services-analysis/internal/services"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newUploadFixture(child *po.Child) (*services.UploadService, *memVideoStore, *storageStub) {
	videos := newMemVideoStore()
	storage := &storageStub{}
	svc := services.NewUploadService(videos, &childStoreStub{child: child}, storage, discardLogger()).WithClock(fixedClock())
	return svc, videos, storage
}

func TestUploadService_PresignRegistersVideo(t *testing.T) {
	userID := uuid.New()
	child := &po.Child{ChildID: uuid.New(), UserID: userID, Name: "Minji"}
	svc, videos, storage := newUploadFixture(child)

	out, err := svc.Presign(context.Background(), services.PresignInput{
		UserID:          userID,
		FileName:        "dir/my clip.mp4",
		ContentType:     "video/MP4; codecs=avc1",
		ContextTag:      strPtr("  play  "),
		DurationSeconds: 120,
	})
	require.NoError(t, err)

	wantKey := fmt.Sprintf("user-%s/%d-my_clip.mp4", userID, fixedClock()().UnixMilli())
	require.Equal(t, wantKey, out.BucketKey)
	require.Equal(t, wantKey, storage.uploadKey)
	require.Equal(t, "video/mp4", storage.contentType)
	require.Equal(t, "https://storage.test/put/"+wantKey, out.UploadURL)

	video, err := videos.GetByID(context.Background(), nil, out.VideoID)
	require.NoError(t, err)
	require.Equal(t, po.VideoStatusUploading, video.Status)
	require.Equal(t, child.ChildID, video.ChildID)
	require.Equal(t, "play", *video.ContextTag)
	require.Equal(t, "https://storage.test/"+wantKey, video.OriginalVideoURL)
	require.Equal(t, int32(120), video.DurationSeconds)
}

func TestUploadService_PresignValidation(t *testing.T) {
	userID := uuid.New()
	svc, _, _ := newUploadFixture(&po.Child{ChildID: uuid.New(), UserID: userID})

	cases := map[string]services.PresignInput{
		"missing file name": {UserID: userID, ContentType: "video/mp4"},
		"missing type":      {UserID: userID, FileName: "a.mp4"},
		"malformed type":    {UserID: userID, FileName: "a.mp4", ContentType: "video/"},
		"unsupported type":  {UserID: userID, FileName: "a.png", ContentType: "image/png"},
		"too long":          {UserID: userID, FileName: "a.mp4", ContentType: "video/mp4", DurationSeconds: services.MaxVideoDurationSeconds + 1},
		"negative duration": {UserID: userID, FileName: "a.mp4", ContentType: "video/mp4", DurationSeconds: -1},
	}
	for name, input := range cases {
		_, err := svc.Presign(context.Background(), input)
		require.Error(t, err, name)
		e := errors.FromError(err)
		require.Equal(t, int32(400), e.Code, name)
		require.Equal(t, services.ReasonPresignInvalid, e.Reason, name)
	}

	_, err := svc.Presign(context.Background(), services.PresignInput{FileName: "a.mp4", ContentType: "video/mp4"})
	require.Equal(t, int32(401), errors.FromError(err).Code)
}

func TestUploadService_PresignRequiresChild(t *testing.T) {
	svc, _, _ := newUploadFixture(nil)

	_, err := svc.Presign(context.Background(), services.PresignInput{UserID: uuid.New(), FileName: "a.mp4", ContentType: "video/mp4"})
	e := errors.FromError(err)
	require.Equal(t, int32(404), e.Code)
	require.Equal(t, services.ReasonChildNotRegistered, e.Reason)
}

func TestUploadService_PresignStorageFailure(t *testing.T) {
	userID := uuid.New()
	svc, videos, storage := newUploadFixture(&po.Child{ChildID: uuid.New(), UserID: userID})
	storage.err = stderrors.New("signer unavailable")

	_, err := svc.Presign(context.Background(), services.PresignInput{UserID: userID, FileName: "a.mp4", ContentType: "video/mp4"})
	e := errors.FromError(err)
	require.Equal(t, int32(500), e.Code)
	require.Equal(t, services.ReasonStorageFailed, e.Reason)
	require.Empty(t, videos.videos)
}
