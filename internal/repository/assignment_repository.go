package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gleeclub/portal-api/internal/models"
)

// AssignmentRepository reads graded assignment submissions.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListGraded returns submissions with a grade for the given students.
func (r *AssignmentRepository) ListGraded(ctx context.Context, studentIDs []string) ([]models.AssignmentScore, error) {
	if len(studentIDs) == 0 {
		return []models.AssignmentScore{}, nil
	}
	const query = `SELECT student_id, assignment_id, grade
        FROM assignment_submissions
        WHERE student_id = ANY($1) AND grade IS NOT NULL
        ORDER BY student_id, submitted_at`
	var scores []models.AssignmentScore
	if err := r.db.SelectContext(ctx, &scores, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list assignment grades: %w", err)
	}
	return scores, nil
}
