package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/account-academy/backoffice-api/internal/models"
)

const lectureColumns = `id, course_id, position, name, description, file, video_link, video_meta, created_at, updated_at`

// LectureRepository manages persistence for lectures, their quiz question
// banks, the per-student answer history and completion marks.
type LectureRepository struct {
	db *sqlx.DB
}

// NewLectureRepository constructs a LectureRepository.
func NewLectureRepository(db *sqlx.DB) *LectureRepository {
	return &LectureRepository{db: db}
}

// ListByCourse returns the course's lectures in position order with their
// question banks loaded.
func (r *LectureRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Lecture, error) {
	query := fmt.Sprintf("SELECT %s FROM lectures WHERE course_id = $1 ORDER BY position", lectureColumns)
	var lectures []models.Lecture
	if err := r.db.SelectContext(ctx, &lectures, query, courseID); err != nil {
		return nil, fmt.Errorf("list lectures: %w", err)
	}
	for i := range lectures {
		if err := r.loadQuiz(ctx, &lectures[i]); err != nil {
			return nil, err
		}
	}
	return lectures, nil
}

// FindByID fetches a lecture without its quiz payload.
func (r *LectureRepository) FindByID(ctx context.Context, id string) (*models.Lecture, error) {
	query := fmt.Sprintf("SELECT %s FROM lectures WHERE id = $1", lectureColumns)
	var lecture models.Lecture
	if err := r.db.GetContext(ctx, &lecture, query, id); err != nil {
		return nil, err
	}
	return &lecture, nil
}

// FindWithQuiz fetches a lecture with its questions, the full answer history
// and the completion set.
func (r *LectureRepository) FindWithQuiz(ctx context.Context, id string) (*models.Lecture, error) {
	lecture, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadQuiz(ctx, lecture); err != nil {
		return nil, err
	}
	for i := range lecture.Quiz.MCQs {
		mcq := &lecture.Quiz.MCQs[i]
		const query = `SELECT student_id, answer, result FROM mcq_answers WHERE mcq_id = $1 ORDER BY answered_at`
		answers := []models.StudentAnswer{}
		if err := r.db.SelectContext(ctx, &answers, query, mcq.ID); err != nil {
			return nil, fmt.Errorf("load answers: %w", err)
		}
		mcq.StudentsAnswers = answers
	}
	completed, err := r.ListCompletedBy(ctx, id)
	if err != nil {
		return nil, err
	}
	lecture.CompletedBy = completed
	return lecture, nil
}

// Create inserts the lecture and its question bank at the end of the
// course's ordering.
func (r *LectureRepository) Create(ctx context.Context, lecture *models.Lecture) error {
	if lecture.ID == "" {
		lecture.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lecture.CreatedAt = now
	lecture.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create lecture: %w", err)
	}
	defer tx.Rollback()

	if err := tx.GetContext(ctx, &lecture.Position, `SELECT COALESCE(MAX(position), 0) + 1 FROM lectures WHERE course_id = $1`, lecture.CourseID); err != nil {
		return fmt.Errorf("next lecture position: %w", err)
	}

	const insert = `INSERT INTO lectures (id, course_id, position, name, description, file, video_link, video_meta, created_at, updated_at)
		VALUES (:id, :course_id, :position, :name, :description, :file, :video_link, :video_meta, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, lecture); err != nil {
		return fmt.Errorf("create lecture: %w", err)
	}

	if err := insertMCQsTx(ctx, tx, lecture.ID, lecture.Quiz.MCQs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create lecture: %w", err)
	}
	return nil
}

// Update modifies the lecture's content fields. The quiz is replaced through
// ReplaceQuiz.
func (r *LectureRepository) Update(ctx context.Context, lecture *models.Lecture) error {
	lecture.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lectures SET name = :name, description = :description, file = :file, video_link = :video_link, video_meta = :video_meta, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lecture); err != nil {
		return fmt.Errorf("update lecture: %w", err)
	}
	return nil
}

// ReplaceQuiz swaps the lecture's question bank. Answers to removed
// questions go with them.
func (r *LectureRepository) ReplaceQuiz(ctx context.Context, lectureID string, mcqs []models.MCQ) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace quiz: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mcq_answers WHERE mcq_id IN (SELECT id FROM mcqs WHERE lecture_id = $1)`, lectureID); err != nil {
		return fmt.Errorf("clear quiz answers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM mcqs WHERE lecture_id = $1`, lectureID); err != nil {
		return fmt.Errorf("clear quiz: %w", err)
	}
	if err := insertMCQsTx(ctx, tx, lectureID, mcqs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace quiz: %w", err)
	}
	return nil
}

// Delete removes the lecture, its questions, answers and completion marks.
func (r *LectureRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete lecture: %w", err)
	}
	defer tx.Rollback()

	cascades := []string{
		`DELETE FROM mcq_answers WHERE mcq_id IN (SELECT id FROM mcqs WHERE lecture_id = $1)`,
		`DELETE FROM mcqs WHERE lecture_id = $1`,
		`DELETE FROM lecture_completions WHERE lecture_id = $1`,
		`DELETE FROM lectures WHERE id = $1`,
	}
	for _, query := range cascades {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("delete lecture: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete lecture: %w", err)
	}
	return nil
}

// UpsertAnswer records the student's latest answer to a question. Resubmits
// overwrite the previous answer, keeping at most one row per pair.
func (r *LectureRepository) UpsertAnswer(ctx context.Context, mcqID, studentID, answer string, result bool) error {
	const query = `INSERT INTO mcq_answers (id, mcq_id, student_id, answer, result, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (mcq_id, student_id) DO UPDATE SET answer = EXCLUDED.answer, result = EXCLUDED.result, answered_at = EXCLUDED.answered_at`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), mcqID, studentID, answer, result, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

// AddCompletion marks the lecture completed for the student. Returns false
// when the mark already existed.
func (r *LectureRepository) AddCompletion(ctx context.Context, lectureID, studentID string) (bool, error) {
	const query = `INSERT INTO lecture_completions (id, lecture_id, student_id, completed_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (lecture_id, student_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, uuid.NewString(), lectureID, studentID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add completion: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add completion: %w", err)
	}
	return affected > 0, nil
}

// RemoveCompletion clears the completion mark.
func (r *LectureRepository) RemoveCompletion(ctx context.Context, lectureID, studentID string) error {
	const query = `DELETE FROM lecture_completions WHERE lecture_id = $1 AND student_id = $2`
	if _, err := r.db.ExecContext(ctx, query, lectureID, studentID); err != nil {
		return fmt.Errorf("remove completion: %w", err)
	}
	return nil
}

// ListCompletedBy returns the ids of students who completed the lecture.
func (r *LectureRepository) ListCompletedBy(ctx context.Context, lectureID string) ([]string, error) {
	const query = `SELECT student_id FROM lecture_completions WHERE lecture_id = $1 ORDER BY completed_at`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, lectureID); err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return ids, nil
}

// ListProgress computes the per-lecture progress rows for one student across
// one course in a single pass.
func (r *LectureRepository) ListProgress(ctx context.Context, courseID, studentID string) ([]models.LectureProgress, error) {
	const query = `SELECT l.id AS lecture_id, l.name AS lecture_title,
		COUNT(m.id) AS question_count,
		COUNT(a.mcq_id) AS answered_count,
		EXISTS (SELECT 1 FROM lecture_completions lc WHERE lc.lecture_id = l.id AND lc.student_id = $2) AS is_completed
		FROM lectures l
		LEFT JOIN mcqs m ON m.lecture_id = l.id
		LEFT JOIN mcq_answers a ON a.mcq_id = m.id AND a.student_id = $2
		WHERE l.course_id = $1
		GROUP BY l.id, l.name, l.position
		ORDER BY l.position`
	rows := []models.LectureProgress{}
	if err := r.db.SelectContext(ctx, &rows, query, courseID, studentID); err != nil {
		return nil, fmt.Errorf("list lecture progress: %w", err)
	}
	return rows, nil
}

func (r *LectureRepository) loadQuiz(ctx context.Context, lecture *models.Lecture) error {
	const query = `SELECT id, lecture_id, position, question, options, correct_answer FROM mcqs WHERE lecture_id = $1 ORDER BY position`
	mcqs := []models.MCQ{}
	if err := r.db.SelectContext(ctx, &mcqs, query, lecture.ID); err != nil {
		return fmt.Errorf("load quiz: %w", err)
	}
	lecture.Quiz = models.Quiz{MCQs: mcqs}
	return nil
}

func insertMCQsTx(ctx context.Context, tx *sqlx.Tx, lectureID string, mcqs []models.MCQ) error {
	for i := range mcqs {
		mcq := &mcqs[i]
		if mcq.ID == "" {
			mcq.ID = uuid.NewString()
		}
		mcq.LectureID = lectureID
		mcq.Position = i + 1
		const query = `INSERT INTO mcqs (id, lecture_id, position, question, options, correct_answer)
			VALUES (:id, :lecture_id, :position, :question, :options, :correct_answer)`
		if _, err := tx.NamedExecContext(ctx, query, mcq); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}
	return nil
}
