// Package repositories 提供数据访问层实现，负责与 PostgreSQL 交互。
// 所有方法接受可选的 txmanager.Session，为 nil 时直接使用连接池。
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrVideoNotFound 表示视频不存在。
	ErrVideoNotFound = errors.New("video not found")
	// ErrVideoStatusConflict 表示状态已被其它写入方推进，CAS 未命中。
	ErrVideoStatusConflict = errors.New("video status conflict")
)

const videoColumns = `
	video_id, user_id, child_id, file_name, bucket_key, content_type, context_tag,
	duration_seconds, original_video_url, status, stt_result, ai_execution_id,
	error_message, status_updated_at, created_at, updated_at`

// VideoRepository 封装 analysis.videos 表的访问逻辑。
type VideoRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewVideoRepository 构造 VideoRepository。
func NewVideoRepository(db *pgxpool.Pool, logger log.Logger) *VideoRepository {
	return &VideoRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// Create 插入 UPLOADING 状态的视频记录。
func (r *VideoRepository) Create(ctx context.Context, sess txmanager.Session, v *po.Video) (*po.Video, error) {
	query := `
		INSERT INTO analysis.videos (
			video_id, user_id, child_id, file_name, bucket_key, content_type, context_tag,
			duration_seconds, original_video_url, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + videoColumns

	row := pick(r.db, sess).QueryRow(ctx, query,
		v.VideoID,
		v.UserID,
		v.ChildID,
		v.FileName,
		v.BucketKey,
		v.ContentType,
		textFromNullableString(v.ContextTag),
		v.DurationSeconds,
		v.OriginalVideoURL,
		string(v.Status),
	)
	created, err := scanVideo(row)
	if err != nil {
		r.log.WithContext(ctx).Errorf("insert video failed: video_id=%s err=%v", v.VideoID, err)
		return nil, fmt.Errorf("insert video: %w", err)
	}
	return created, nil
}

// GetByID 查询单个视频。
func (r *VideoRepository) GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM analysis.videos WHERE video_id = $1`

	video, err := scanVideo(pick(r.db, sess).QueryRow(ctx, query, videoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		r.log.WithContext(ctx).Errorf("get video failed: video_id=%s err=%v", videoID, err)
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// TransitionInput 描述一次 CAS 状态迁移。
type TransitionInput struct {
	VideoID      uuid.UUID
	From         []po.VideoStatus // 期望的当前状态集合
	To           po.VideoStatus
	STTResult    json.RawMessage // 非空时写入
	ExecutionID  *string         // 非空时写入
	ErrorMessage *string         // 非空时写入
}

// TransitionStatus 以 `WHERE status = ANY(from)` 的方式推进状态。
// 当前状态不在 From 中时返回 ErrVideoStatusConflict。
func (r *VideoRepository) TransitionStatus(ctx context.Context, sess txmanager.Session, input TransitionInput) (*po.Video, error) {
	if len(input.From) == 0 {
		return nil, errors.New("transition: from statuses are required")
	}
	from := make([]string, 0, len(input.From))
	for _, status := range input.From {
		if !status.CanTransitionTo(input.To) {
			return nil, fmt.Errorf("transition: %s -> %s is not allowed", status, input.To)
		}
		from = append(from, string(status))
	}

	query := `
		UPDATE analysis.videos
		SET
			status = $2,
			stt_result = COALESCE($3, stt_result),
			ai_execution_id = COALESCE($4, ai_execution_id),
			error_message = COALESCE($5, error_message),
			status_updated_at = now()
		WHERE video_id = $1 AND status = ANY($6)
		RETURNING ` + videoColumns

	q := pick(r.db, sess)
	video, err := scanVideo(q.QueryRow(ctx, query,
		input.VideoID,
		string(input.To),
		input.STTResult,
		textFromNullableString(input.ExecutionID),
		textFromNullableString(input.ErrorMessage),
		from,
	))
	if err == nil {
		return video, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.log.WithContext(ctx).Errorf("transition video failed: video_id=%s to=%s err=%v", input.VideoID, input.To, err)
		return nil, fmt.Errorf("transition video: %w", err)
	}

	var current string
	if err := q.QueryRow(ctx, `SELECT status FROM analysis.videos WHERE video_id = $1`, input.VideoID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("load video status: %w", err)
	}
	return nil, fmt.Errorf("%w: current=%s target=%s", ErrVideoStatusConflict, current, input.To)
}

// MarkFailed 将任一非终态视频置为 FAILED。
func (r *VideoRepository) MarkFailed(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, message string) (*po.Video, error) {
	return r.TransitionStatus(ctx, sess, TransitionInput{
		VideoID:      videoID,
		From:         po.NonTerminalVideoStatuses(),
		To:           po.VideoStatusFailed,
		ErrorMessage: &message,
	})
}

func scanVideo(row pgx.Row) (*po.Video, error) {
	var (
		v          po.Video
		contextTag pgtype.Text
		execID     pgtype.Text
		errMsg     pgtype.Text
		status     string
		sttResult  []byte
	)
	if err := row.Scan(
		&v.VideoID,
		&v.UserID,
		&v.ChildID,
		&v.FileName,
		&v.BucketKey,
		&v.ContentType,
		&contextTag,
		&v.DurationSeconds,
		&v.OriginalVideoURL,
		&status,
		&sttResult,
		&execID,
		&errMsg,
		&v.StatusUpdatedAt,
		&v.CreatedAt,
		&v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	v.Status = po.VideoStatus(status)
	if len(sttResult) > 0 {
		v.STTResult = json.RawMessage(sttResult)
	}
	v.ContextTag = stringPtr(contextTag)
	v.AIExecutionID = stringPtr(execID)
	v.ErrorMessage = stringPtr(errMsg)
	return &v, nil
}
