package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rauth/examprep-backend/internal/model"
)

// ProgressRepository stores quiz and exam attempts plus study time.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

const attemptColumns = `id, submission_key, user_id, kind, content_id, score,
	COALESCE(total_questions, 0), time_taken_seconds, created_at`

func scanAttempt(row pgx.Row) (model.ProgressAttempt, error) {
	var a model.ProgressAttempt
	err := row.Scan(&a.ID, &a.SubmissionKey, &a.UserID, &a.Kind, &a.ContentID,
		&a.Score, &a.TotalQuestions, &a.TimeTakenSeconds, &a.CreatedAt)
	return a, err
}

// InsertBatch writes jobs in one statement. Rows whose (user, submission key)
// pair already exists are skipped; only newly inserted attempts are returned.
func (r *ProgressRepository) InsertBatch(ctx context.Context, jobs []model.ProgressJob) ([]model.ProgressAttempt, error) {
	n := len(jobs)
	if n == 0 {
		return nil, nil
	}

	keys := make([]string, 0, n)
	users := make([]int, 0, n)
	kinds := make([]string, 0, n)
	contents := make([]string, 0, n)
	scores := make([]int, 0, n)
	totals := make([]int, 0, n)
	times := make([]int, 0, n)
	submitted := make([]time.Time, 0, n)

	for _, j := range jobs {
		keys = append(keys, j.SubmissionKey)
		users = append(users, j.UserID)
		kinds = append(kinds, j.Kind)
		contents = append(contents, j.ContentID)
		scores = append(scores, j.Score)
		totals = append(totals, j.TotalQuestions)
		times = append(times, j.TimeTakenSeconds)
		submitted = append(submitted, j.SubmittedAt)
	}

	rows, err := r.pool.Query(ctx, `
		INSERT INTO progress_attempts
			(submission_key, user_id, kind, content_id, score, total_questions, time_taken_seconds, created_at)
		SELECT u.key, u.user_id, u.kind, u.content_id, u.score, NULLIF(u.total, 0), u.time_taken, u.submitted_at
		FROM UNNEST(
			$1::text[],
			$2::int[],
			$3::text[],
			$4::text[],
			$5::int[],
			$6::int[],
			$7::int[],
			$8::timestamptz[]
		) AS u (key, user_id, kind, content_id, score, total, time_taken, submitted_at)
		ON CONFLICT (user_id, submission_key) DO NOTHING
		RETURNING `+attemptColumns,
		keys, users, kinds, contents, scores, totals, times, submitted,
	)
	if err != nil {
		return nil, fmt.Errorf("bulk insert attempts: %w", err)
	}
	defer rows.Close()

	var inserted []model.ProgressAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, a)
	}
	return inserted, rows.Err()
}

// InsertOne writes a single job. The boolean is false when the submission
// key was already recorded.
func (r *ProgressRepository) InsertOne(ctx context.Context, j model.ProgressJob) (model.ProgressAttempt, bool, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx, `
		INSERT INTO progress_attempts
			(submission_key, user_id, kind, content_id, score, total_questions, time_taken_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), $7, $8)
		ON CONFLICT (user_id, submission_key) DO NOTHING
		RETURNING `+attemptColumns,
		j.SubmissionKey, j.UserID, j.Kind, j.ContentID, j.Score, j.TotalQuestions, j.TimeTakenSeconds, j.SubmittedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ProgressAttempt{}, false, nil
	}
	if err != nil {
		return model.ProgressAttempt{}, false, fmt.Errorf("insert attempt: %w", err)
	}
	return a, true, nil
}

// ListByUser returns a page of a user's attempts, newest first.
func (r *ProgressRepository) ListByUser(ctx context.Context, userID int, kind string, limit, offset int) ([]model.ProgressAttempt, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM progress_attempts
		 WHERE user_id = $1 AND ($2 = '' OR kind = $2)`,
		userID, kind,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attempts: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM progress_attempts
		 WHERE user_id = $1 AND ($2 = '' OR kind = $2)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3 OFFSET $4`,
		userID, kind, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts := []model.ProgressAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, a)
	}
	return attempts, total, rows.Err()
}

// Overview aggregates a user's attempts per kind and their study time.
func (r *ProgressRepository) Overview(ctx context.Context, userID int, today time.Time) (*model.ProgressOverview, error) {
	ov := &model.ProgressOverview{}

	rows, err := r.pool.Query(ctx,
		`SELECT kind, COUNT(*), COALESCE(AVG(score), 0), COALESCE(MAX(score), 0),
		        COALESCE(SUM(time_taken_seconds), 0), MAX(created_at)
		 FROM progress_attempts
		 WHERE user_id = $1
		 GROUP BY kind`, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate attempts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind  string
			stats model.KindStats
			last  *time.Time
		)
		if err := rows.Scan(&kind, &stats.Attempts, &stats.AverageScore, &stats.BestScore, &stats.TotalTimeTaken, &last); err != nil {
			return nil, err
		}
		switch kind {
		case "quiz":
			ov.Quiz = stats
		case "exam":
			ov.Exam = stats
		}
		if last != nil && (ov.LastAttemptAt == nil || last.After(*ov.LastAttemptAt)) {
			ov.LastAttemptAt = last
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(seconds), 0),
		        COALESCE(SUM(seconds) FILTER (WHERE day = $2::date), 0)
		 FROM study_time WHERE user_id = $1`,
		userID, today.Format(time.DateOnly),
	).Scan(&ov.StudySeconds, &ov.StudySecondsToday)
	if err != nil {
		return nil, fmt.Errorf("sum study time: %w", err)
	}
	return ov, nil
}

// SummaryByContent aggregates attempts across all users per content item.
func (r *ProgressRepository) SummaryByContent(ctx context.Context, kind string) ([]model.ContentProgressSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT kind, content_id, COUNT(*), COUNT(DISTINCT user_id),
		        AVG(score), MAX(score), MAX(created_at)
		 FROM progress_attempts
		 WHERE ($1 = '' OR kind = $1)
		 GROUP BY kind, content_id
		 ORDER BY MAX(created_at) DESC`, kind)
	if err != nil {
		return nil, fmt.Errorf("summarize attempts: %w", err)
	}
	defer rows.Close()

	out := []model.ContentProgressSummary{}
	for rows.Next() {
		var s model.ContentProgressSummary
		if err := rows.Scan(&s.Kind, &s.ContentID, &s.Attempts, &s.Learners, &s.AverageScore, &s.BestScore, &s.LastAttempt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AddStudyTime adds seconds to a user's total for day (YYYY-MM-DD).
func (r *ProgressRepository) AddStudyTime(ctx context.Context, userID int, day string, seconds int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO study_time (user_id, day, seconds, updated_at)
		 VALUES ($1, $2::date, $3, NOW())
		 ON CONFLICT (user_id, day)
		 DO UPDATE SET seconds = study_time.seconds + EXCLUDED.seconds, updated_at = NOW()`,
		userID, day, seconds,
	)
	if err != nil {
		return fmt.Errorf("add study time: %w", err)
	}
	return nil
}
