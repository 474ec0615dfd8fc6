package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gleeclub/portal-api/internal/models"
)

// RubricRepository reads grading rubrics.
type RubricRepository struct {
	db *sqlx.DB
}

// NewRubricRepository constructs the repository.
func NewRubricRepository(db *sqlx.DB) *RubricRepository {
	return &RubricRepository{db: db}
}

// List returns every rubric row.
func (r *RubricRepository) List(ctx context.Context) ([]models.GradingRubric, error) {
	const query = `SELECT question_type, question_id, total_points FROM grading_rubrics`
	var rubrics []models.GradingRubric
	if err := r.db.SelectContext(ctx, &rubrics, query); err != nil {
		return nil, fmt.Errorf("list rubrics: %w", err)
	}
	return rubrics, nil
}
