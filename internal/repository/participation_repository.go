package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gleeclub/portal-api/internal/models"
)

// ParticipationRepository reads participation points.
type ParticipationRepository struct {
	db *sqlx.DB
}

// NewParticipationRepository constructs the repository.
func NewParticipationRepository(db *sqlx.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// ListByTerm returns participation rows for the given students within a term.
func (r *ParticipationRepository) ListByTerm(ctx context.Context, studentIDs []string, term string) ([]models.ParticipationScore, error) {
	if len(studentIDs) == 0 {
		return []models.ParticipationScore{}, nil
	}
	const query = `SELECT student_id, term, points_earned
        FROM participation_grades
        WHERE student_id = ANY($1) AND term = $2`
	var scores []models.ParticipationScore
	if err := r.db.SelectContext(ctx, &scores, query, pq.Array(studentIDs), term); err != nil {
		return nil, fmt.Errorf("list participation grades: %w", err)
	}
	return scores, nil
}
