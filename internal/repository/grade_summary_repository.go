package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gleeclub/portal-api/internal/models"
)

const upsertGradeSummaryQuery = `INSERT INTO grade_summaries (student_id, term, assignment_points, assignment_possible, participation_points, participation_possible, overall_points, overall_possible, overall_percentage, letter_grade, calculated_at)
        VALUES (:student_id, :term, :assignment_points, :assignment_possible, :participation_points, :participation_possible, :overall_points, :overall_possible, :overall_percentage, :letter_grade, :calculated_at)
        ON CONFLICT (student_id, term)
        DO UPDATE SET assignment_points = EXCLUDED.assignment_points, assignment_possible = EXCLUDED.assignment_possible,
            participation_points = EXCLUDED.participation_points, participation_possible = EXCLUDED.participation_possible,
            overall_points = EXCLUDED.overall_points, overall_possible = EXCLUDED.overall_possible,
            overall_percentage = EXCLUDED.overall_percentage, letter_grade = EXCLUDED.letter_grade, calculated_at = EXCLUDED.calculated_at`

// GradeSummaryRepository manages the cached grade summary table.
type GradeSummaryRepository struct {
	db *sqlx.DB
}

// NewGradeSummaryRepository constructs repository.
func NewGradeSummaryRepository(db *sqlx.DB) *GradeSummaryRepository {
	return &GradeSummaryRepository{db: db}
}

// Upsert writes one summary, overwriting any previous row for (student_id, term).
func (r *GradeSummaryRepository) Upsert(ctx context.Context, summary *models.GradeSummaryRecord) error {
	if summary.CalculatedAt.IsZero() {
		summary.CalculatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, upsertGradeSummaryQuery, summary); err != nil {
		return fmt.Errorf("upsert grade summary %s: %w", summary.StudentID, err)
	}
	return nil
}

// UpsertAll writes every summary inside one transaction.
func (r *GradeSummaryRepository) UpsertAll(ctx context.Context, summaries []models.GradeSummaryRecord) error {
	if len(summaries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range summaries {
		if summaries[i].CalculatedAt.IsZero() {
			summaries[i].CalculatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, upsertGradeSummaryQuery, summaries[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert grade summary %s: %w", summaries[i].StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grade summaries: %w", err)
	}
	return nil
}

// ListByTerm returns cached summaries for a term ordered by percentage.
func (r *GradeSummaryRepository) ListByTerm(ctx context.Context, term string) ([]models.GradeSummaryRecord, error) {
	const query = `SELECT student_id, term, assignment_points, assignment_possible, participation_points, participation_possible,
        overall_points, overall_possible, overall_percentage, letter_grade, calculated_at
        FROM grade_summaries WHERE term = $1
        ORDER BY overall_percentage DESC, student_id`
	var summaries []models.GradeSummaryRecord
	if err := r.db.SelectContext(ctx, &summaries, query, term); err != nil {
		return nil, fmt.Errorf("list grade summaries: %w", err)
	}
	return summaries, nil
}
