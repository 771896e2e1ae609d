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
	// ErrReportNotFound 表示报告不存在。
	ErrReportNotFound = errors.New("analysis report not found")
	// ErrReportAlreadyExists 表示该视频已有报告（video_id 唯一）。
	ErrReportAlreadyExists = errors.New("analysis report already exists")
)

const reportColumns = `
	report_id, user_id, child_id, video_id, pi_score, ndi_score, qi_score,
	relationship_status, content, created_at`

// ReportRepository 封装 analysis.analysis_reports 表的访问逻辑。
type ReportRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewReportRepository 构造 ReportRepository。
func NewReportRepository(db *pgxpool.Pool, logger log.Logger) *ReportRepository {
	return &ReportRepository{db: db, log: log.NewHelper(logger)}
}

// Create 插入报告；同一视频重复插入返回 ErrReportAlreadyExists。
func (r *ReportRepository) Create(ctx context.Context, sess txmanager.Session, report *po.AnalysisReport) (*po.AnalysisReport, error) {
	query := `
		INSERT INTO analysis.analysis_reports (
			report_id, user_id, child_id, video_id, pi_score, ndi_score, qi_score,
			relationship_status, content
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + reportColumns

	created, err := scanReport(pick(r.db, sess).QueryRow(ctx, query,
		report.ReportID,
		report.UserID,
		report.ChildID,
		report.VideoID,
		report.PIScore,
		report.NDIScore,
		report.QIScore,
		textFromNullableString(report.RelationshipStatus),
		report.Content,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrReportAlreadyExists
		}
		r.log.WithContext(ctx).Errorf("insert report failed: video_id=%s err=%v", report.VideoID, err)
		return nil, fmt.Errorf("insert report: %w", err)
	}
	return created, nil
}

// GetByID 查询报告。
func (r *ReportRepository) GetByID(ctx context.Context, sess txmanager.Session, reportID uuid.UUID) (*po.AnalysisReport, error) {
	query := `SELECT ` + reportColumns + ` FROM analysis.analysis_reports WHERE report_id = $1`
	return r.getOne(ctx, sess, query, reportID)
}

// GetByVideoID 查询视频对应的报告。
func (r *ReportRepository) GetByVideoID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.AnalysisReport, error) {
	query := `SELECT ` + reportColumns + ` FROM analysis.analysis_reports WHERE video_id = $1`
	return r.getOne(ctx, sess, query, videoID)
}

// FindLatestByChild 返回儿童最近一份报告，排除 excludeVideoID 对应的报告。
func (r *ReportRepository) FindLatestByChild(ctx context.Context, sess txmanager.Session, childID, excludeVideoID uuid.UUID) (*po.AnalysisReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM analysis.analysis_reports
		WHERE child_id = $1 AND video_id <> $2
		ORDER BY created_at DESC, report_id DESC
		LIMIT 1`
	return r.getOne(ctx, sess, query, childID, excludeVideoID)
}

func (r *ReportRepository) getOne(ctx context.Context, sess txmanager.Session, query string, args ...any) (*po.AnalysisReport, error) {
	report, err := scanReport(pick(r.db, sess).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		r.log.WithContext(ctx).Errorf("query report failed: err=%v", err)
		return nil, fmt.Errorf("query report: %w", err)
	}
	return report, nil
}

func scanReport(row pgx.Row) (*po.AnalysisReport, error) {
	var (
		report  po.AnalysisReport
		stage   pgtype.Text
		content []byte
	)
	if err := row.Scan(
		&report.ReportID,
		&report.UserID,
		&report.ChildID,
		&report.VideoID,
		&report.PIScore,
		&report.NDIScore,
		&report.QIScore,
		&stage,
		&content,
		&report.CreatedAt,
	); err != nil {
		return nil, err
	}
	report.RelationshipStatus = stringPtr(stage)
	report.Content = json.RawMessage(content)
	return &report, nil
}
