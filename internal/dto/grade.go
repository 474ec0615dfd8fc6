package dto

import "github.com/gleeclub/portal-api/internal/models"

// GradeQueryParams binds the query string of the roster endpoints. Unset weights
// fall back to the configured defaults one by one.
type GradeQueryParams struct {
	Midterm       *float64            `form:"midterm"`
	Assignments   *float64            `form:"assignments"`
	Journals      *float64            `form:"journals"`
	Participation *float64            `form:"participation"`
	Policy        models.WeightPolicy `form:"policy"`
	Refresh       bool                `form:"refresh"`
}

// CommitRequest is the body of POST /grades/terms/:term/summaries.
type CommitRequest struct {
	Weights *models.GradeWeights `json:"weights,omitempty"`
	Policy  models.WeightPolicy  `json:"policy,omitempty"`
}

// Weights merges the supplied components over defaults. It returns nil when no
// component was supplied.
func (p GradeQueryParams) Weights(defaults models.GradeWeights) *models.GradeWeights {
	if p.Midterm == nil && p.Assignments == nil && p.Journals == nil && p.Participation == nil {
		return nil
	}
	w := defaults
	if p.Midterm != nil {
		w.Midterm = *p.Midterm
	}
	if p.Assignments != nil {
		w.Assignments = *p.Assignments
	}
	if p.Journals != nil {
		w.Journals = *p.Journals
	}
	if p.Participation != nil {
		w.Participation = *p.Participation
	}
	return &w
}
