package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gleeclub/portal-api/internal/models"
)

// EnrollmentRepository reads course enrollments joined with student profiles.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListEnrolled returns enrolled students for a term. Students without a profile are skipped.
func (r *EnrollmentRepository) ListEnrolled(ctx context.Context, term string) ([]models.Enrollment, error) {
	const query = `SELECT e.student_id, e.term, e.enrollment_status, p.full_name, p.email
        FROM course_enrollments e
        JOIN profiles p ON p.user_id = e.student_id
        WHERE e.term = $1 AND e.enrollment_status = $2
        ORDER BY e.enrolled_at, e.student_id`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, term, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}
