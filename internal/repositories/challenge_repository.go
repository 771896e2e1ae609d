package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrChallengeNotFound 表示挑战不存在。
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeAlreadyExists 表示该报告已派生挑战。
	ErrChallengeAlreadyExists = errors.New("challenge already exists for report")
	// ErrChallengeStatusConflict 表示挑战状态已变化。
	ErrChallengeStatusConflict = errors.New("challenge status conflict")
	// ErrActionNotFound 表示动作不存在。
	ErrActionNotFound = errors.New("challenge action not found")
	// ErrActionAlreadyCompleted 表示动作已完成，不可重复完成。
	ErrActionAlreadyCompleted = errors.New("challenge action already completed")
)

const challengeColumns = `
	challenge_id, user_id, child_id, source_report_id, title, goal,
	start_date, end_date, status, created_at, updated_at`

const actionColumns = `
	action_id, challenge_id, position, content, completed, completed_at, reflection`

// ChallengeRepository 封装 analysis.challenges 与 analysis.challenge_actions 的访问逻辑。
type ChallengeRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewChallengeRepository 构造 ChallengeRepository。
func NewChallengeRepository(db *pgxpool.Pool, logger log.Logger) *ChallengeRepository {
	return &ChallengeRepository{db: db, log: log.NewHelper(logger)}
}

// Create 写入挑战及其动作，调用方应在事务内执行以保证原子性。
func (r *ChallengeRepository) Create(ctx context.Context, sess txmanager.Session, c *po.Challenge) (*po.Challenge, error) {
	q := pick(r.db, sess)
	query := `
		INSERT INTO analysis.challenges (
			challenge_id, user_id, child_id, source_report_id, title, goal,
			start_date, end_date, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + challengeColumns

	created, err := scanChallenge(q.QueryRow(ctx, query,
		c.ChallengeID,
		c.UserID,
		c.ChildID,
		c.SourceReportID,
		c.Title,
		c.Goal,
		dateFromTime(c.StartDate),
		dateFromTime(c.EndDate),
		string(c.Status),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrChallengeAlreadyExists
		}
		r.log.WithContext(ctx).Errorf("insert challenge failed: challenge_id=%s err=%v", c.ChallengeID, err)
		return nil, fmt.Errorf("insert challenge: %w", err)
	}

	if len(c.Actions) > 0 {
		batch := &pgx.Batch{}
		for i, action := range c.Actions {
			actionID := action.ActionID
			if actionID == uuid.Nil {
				actionID = uuid.New()
			}
			batch.Queue(`
				INSERT INTO analysis.challenge_actions (action_id, challenge_id, position, content, completed)
				VALUES ($1, $2, $3, $4, false)
				RETURNING `+actionColumns,
				actionID, created.ChallengeID, int32(i), action.Content,
			)
		}
		results := q.SendBatch(ctx, batch)
		defer results.Close()
		for range c.Actions {
			action, scanErr := scanAction(results.QueryRow())
			if scanErr != nil {
				r.log.WithContext(ctx).Errorf("insert challenge action failed: challenge_id=%s err=%v", created.ChallengeID, scanErr)
				return nil, fmt.Errorf("insert challenge action: %w", scanErr)
			}
			created.Actions = append(created.Actions, *action)
		}
	}
	return created, nil
}

// GetByID 查询挑战及其动作。
func (r *ChallengeRepository) GetByID(ctx context.Context, sess txmanager.Session, challengeID uuid.UUID) (*po.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM analysis.challenges WHERE challenge_id = $1`
	return r.getOneWithActions(ctx, sess, query, challengeID)
}

// GetBySourceReport 查询报告派生的挑战。
func (r *ChallengeRepository) GetBySourceReport(ctx context.Context, sess txmanager.Session, reportID uuid.UUID) (*po.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM analysis.challenges WHERE source_report_id = $1`
	return r.getOneWithActions(ctx, sess, query, reportID)
}

// ListByChildAndStatus 列出儿童指定状态的挑战（含动作），按创建时间升序。
func (r *ChallengeRepository) ListByChildAndStatus(ctx context.Context, sess txmanager.Session, childID uuid.UUID, status po.ChallengeStatus) ([]*po.Challenge, error) {
	q := pick(r.db, sess)
	query := `
		SELECT ` + challengeColumns + `
		FROM analysis.challenges
		WHERE child_id = $1 AND status = $2
		ORDER BY created_at ASC, challenge_id ASC`

	rows, err := q.Query(ctx, query, childID, string(status))
	if err != nil {
		r.log.WithContext(ctx).Errorf("list challenges failed: child_id=%s err=%v", childID, err)
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	var (
		challenges []*po.Challenge
		ids        []uuid.UUID
	)
	for rows.Next() {
		c, scanErr := scanChallenge(rows)
		if scanErr != nil {
			rows.Close()
			return nil, fmt.Errorf("scan challenge: %w", scanErr)
		}
		challenges = append(challenges, c)
		ids = append(ids, c.ChallengeID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate challenges: %w", err)
	}
	if len(challenges) == 0 {
		return nil, nil
	}

	actions, err := r.listActions(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range challenges {
		c.Actions = actions[c.ChallengeID]
	}
	return challenges, nil
}

// GetAction 查询单个动作。
func (r *ChallengeRepository) GetAction(ctx context.Context, sess txmanager.Session, actionID uuid.UUID) (*po.ChallengeAction, error) {
	query := `SELECT ` + actionColumns + ` FROM analysis.challenge_actions WHERE action_id = $1`
	action, err := scanAction(pick(r.db, sess).QueryRow(ctx, query, actionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActionNotFound
		}
		return nil, fmt.Errorf("get challenge action: %w", err)
	}
	return action, nil
}

// CompleteAction 以 completed = false 为前提完成动作；已完成时返回 ErrActionAlreadyCompleted。
func (r *ChallengeRepository) CompleteAction(ctx context.Context, sess txmanager.Session, actionID uuid.UUID, reflection *string, at time.Time) (*po.ChallengeAction, error) {
	q := pick(r.db, sess)
	query := `
		UPDATE analysis.challenge_actions
		SET completed = true, completed_at = $2, reflection = $3
		WHERE action_id = $1 AND completed = false
		RETURNING ` + actionColumns

	action, err := scanAction(q.QueryRow(ctx, query, actionID, at.UTC(), textFromNullableString(reflection)))
	if err == nil {
		return action, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.log.WithContext(ctx).Errorf("complete action failed: action_id=%s err=%v", actionID, err)
		return nil, fmt.Errorf("complete action: %w", err)
	}
	if _, getErr := r.GetAction(ctx, sess, actionID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrActionAlreadyCompleted
}

// CountActions 返回挑战已完成与总动作数。
func (r *ChallengeRepository) CountActions(ctx context.Context, sess txmanager.Session, challengeID uuid.UUID) (completed int, total int, err error) {
	query := `
		SELECT count(*) FILTER (WHERE completed), count(*)
		FROM analysis.challenge_actions
		WHERE challenge_id = $1`
	var done, all int64
	if err := pick(r.db, sess).QueryRow(ctx, query, challengeID).Scan(&done, &all); err != nil {
		return 0, 0, fmt.Errorf("count actions: %w", err)
	}
	return int(done), int(all), nil
}

// UpdateStatus 以 CAS 方式推进挑战状态。
func (r *ChallengeRepository) UpdateStatus(ctx context.Context, sess txmanager.Session, challengeID uuid.UUID, from, to po.ChallengeStatus) error {
	tag, err := pick(r.db, sess).Exec(ctx, `
		UPDATE analysis.challenges SET status = $3
		WHERE challenge_id = $1 AND status = $2`,
		challengeID, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("update challenge status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChallengeStatusConflict
	}
	return nil
}

// FailExpired 将 end_date 早于 today 的进行中挑战置为 FAILED，返回受影响行数。
func (r *ChallengeRepository) FailExpired(ctx context.Context, sess txmanager.Session, today time.Time) (int64, error) {
	tag, err := pick(r.db, sess).Exec(ctx, `
		UPDATE analysis.challenges SET status = $1
		WHERE status = $2 AND end_date < $3`,
		string(po.ChallengeStatusFailed), string(po.ChallengeStatusProceeding), dateFromTime(today),
	)
	if err != nil {
		r.log.WithContext(ctx).Errorf("fail expired challenges failed: today=%s err=%v", today.Format(po.DateLayout), err)
		return 0, fmt.Errorf("fail expired challenges: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ChallengeRepository) getOneWithActions(ctx context.Context, sess txmanager.Session, query string, arg any) (*po.Challenge, error) {
	q := pick(r.db, sess)
	c, err := scanChallenge(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		r.log.WithContext(ctx).Errorf("query challenge failed: err=%v", err)
		return nil, fmt.Errorf("query challenge: %w", err)
	}
	actions, err := r.listActions(ctx, q, []uuid.UUID{c.ChallengeID})
	if err != nil {
		return nil, err
	}
	c.Actions = actions[c.ChallengeID]
	return c, nil
}

func (r *ChallengeRepository) listActions(ctx context.Context, q querier, challengeIDs []uuid.UUID) (map[uuid.UUID][]po.ChallengeAction, error) {
	rows, err := q.Query(ctx, `
		SELECT `+actionColumns+`
		FROM analysis.challenge_actions
		WHERE challenge_id = ANY($1)
		ORDER BY challenge_id, position`, challengeIDs)
	if err != nil {
		return nil, fmt.Errorf("list challenge actions: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]po.ChallengeAction, len(challengeIDs))
	for rows.Next() {
		action, scanErr := scanAction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan challenge action: %w", scanErr)
		}
		out[action.ChallengeID] = append(out[action.ChallengeID], *action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate challenge actions: %w", err)
	}
	return out, nil
}

func scanChallenge(row pgx.Row) (*po.Challenge, error) {
	var (
		c        po.Challenge
		sourceID pgtype.UUID
		start    pgtype.Date
		end      pgtype.Date
		status   string
	)
	if err := row.Scan(
		&c.ChallengeID,
		&c.UserID,
		&c.ChildID,
		&sourceID,
		&c.Title,
		&c.Goal,
		&start,
		&end,
		&status,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if sourceID.Valid {
		id := uuid.UUID(sourceID.Bytes)
		c.SourceReportID = &id
	}
	c.StartDate = start.Time
	c.EndDate = end.Time
	c.Status = po.ChallengeStatus(status)
	return &c, nil
}

func scanAction(row pgx.Row) (*po.ChallengeAction, error) {
	var (
		a           po.ChallengeAction
		completedAt pgtype.Timestamptz
		reflection  pgtype.Text
	)
	if err := row.Scan(
		&a.ActionID,
		&a.ChallengeID,
		&a.Position,
		&a.Content,
		&a.Completed,
		&completedAt,
		&reflection,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	a.Reflection = stringPtr(reflection)
	return &a, nil
}
