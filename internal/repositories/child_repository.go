package repositories

import (
	"context"
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

// ErrChildNotFound 表示儿童记录不存在。
var ErrChildNotFound = errors.New("child not found")

// ChildRepository 只读访问 analysis.children。
type ChildRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewChildRepository 构造 ChildRepository。
func NewChildRepository(db *pgxpool.Pool, logger log.Logger) *ChildRepository {
	return &ChildRepository{db: db, log: log.NewHelper(logger)}
}

// GetByID 查询儿童。
func (r *ChildRepository) GetByID(ctx context.Context, sess txmanager.Session, childID uuid.UUID) (*po.Child, error) {
	query := `
		SELECT child_id, user_id, name, gender, birth_date, created_at, 1
		FROM analysis.children
		WHERE child_id = $1`
	child, _, err := r.scanOne(ctx, sess, query, childID)
	return child, err
}

// FindByUser 返回用户最早登记的儿童以及该用户名下儿童总数。
func (r *ChildRepository) FindByUser(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.Child, int, error) {
	query := `
		SELECT child_id, user_id, name, gender, birth_date, created_at, count(*) OVER ()
		FROM analysis.children
		WHERE user_id = $1
		ORDER BY created_at ASC, child_id ASC
		LIMIT 1`
	return r.scanOne(ctx, sess, query, userID)
}

func (r *ChildRepository) scanOne(ctx context.Context, sess txmanager.Session, query string, arg any) (*po.Child, int, error) {
	var (
		child     po.Child
		gender    string
		birthDate pgtype.Date
		total     int64
	)
	err := pick(r.db, sess).QueryRow(ctx, query, arg).Scan(
		&child.ChildID,
		&child.UserID,
		&child.Name,
		&gender,
		&birthDate,
		&child.CreatedAt,
		&total,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrChildNotFound
		}
		r.log.WithContext(ctx).Errorf("query child failed: err=%v", err)
		return nil, 0, fmt.Errorf("query child: %w", err)
	}
	child.Gender = po.Gender(gender)
	if birthDate.Valid {
		d := birthDate.Time
		child.BirthDate = &d
	}
	return &child, int(total), nil
}
