package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gleeclub/portal-api/internal/models"
)

// MidtermRepository reads midterm submissions and their per-question grades.
type MidtermRepository struct {
	db *sqlx.DB
}

// NewMidtermRepository constructs the repository.
func NewMidtermRepository(db *sqlx.DB) *MidtermRepository {
	return &MidtermRepository{db: db}
}

// ListSubmitted returns submitted midterms for the given students, oldest first.
func (r *MidtermRepository) ListSubmitted(ctx context.Context, studentIDs []string) ([]models.MidtermSubmission, error) {
	if len(studentIDs) == 0 {
		return []models.MidtermSubmission{}, nil
	}
	const query = `SELECT id, user_id, grade, is_submitted
        FROM midterm_submissions
        WHERE user_id = ANY($1) AND is_submitted = TRUE
        ORDER BY created_at, id`
	var submissions []models.MidtermSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list midterm submissions: %w", err)
	}
	return submissions, nil
}

// ListSubmissionGrades returns rubric grade rows for the given submissions.
func (r *MidtermRepository) ListSubmissionGrades(ctx context.Context, submissionIDs []string) ([]models.SubmissionGrade, error) {
	if len(submissionIDs) == 0 {
		return []models.SubmissionGrade{}, nil
	}
	const query = `SELECT submission_id, question_type, question_id, ai_score, instructor_score
        FROM submission_grades
        WHERE submission_id = ANY($1)
        ORDER BY created_at, submission_id`
	var grades []models.SubmissionGrade
	if err := r.db.SelectContext(ctx, &grades, query, pq.Array(submissionIDs)); err != nil {
		return nil, fmt.Errorf("list submission grades: %w", err)
	}
	return grades, nil
}
