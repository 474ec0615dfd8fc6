package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gleeclub/portal-api/internal/models"
)

// JournalRepository reads journal grades joined with their entries.
type JournalRepository struct {
	db *sqlx.DB
}

// NewJournalRepository constructs the repository.
func NewJournalRepository(db *sqlx.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// ListGraded returns journal grades for entries written by the given students.
func (r *JournalRepository) ListGraded(ctx context.Context, studentIDs []string) ([]models.JournalScore, error) {
	if len(studentIDs) == 0 {
		return []models.JournalScore{}, nil
	}
	const query = `SELECT je.student_id, jg.journal_id, jg.overall_score
        FROM journal_grades jg
        JOIN journal_entries je ON je.id = jg.journal_id
        WHERE je.student_id = ANY($1)
        ORDER BY je.student_id, jg.graded_at`
	var scores []models.JournalScore
	if err := r.db.SelectContext(ctx, &scores, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list journal grades: %w", err)
	}
	return scores, nil
}
