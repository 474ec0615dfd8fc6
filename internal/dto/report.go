package dto

import (
	"time"

	"github.com/gleeclub/portal-api/internal/models"
)

// ReportRequest captures the POST /reports/grades payload.
type ReportRequest struct {
	Term    string               `json:"term" validate:"required,max=64"`
	Format  models.ReportFormat  `json:"format" validate:"required,oneof=csv pdf"`
	Weights *models.GradeWeights `json:"weights,omitempty" validate:"-"`
	Policy  models.WeightPolicy  `json:"policy,omitempty" validate:"omitempty,oneof=literal renormalize"`
}

// ReportJobResponse is returned after enqueueing an export.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID         string                 `json:"id"`
	Status     models.ReportStatus    `json:"status"`
	Progress   int                    `json:"progress"`
	Params     models.ReportJobParams `json:"params"`
	ResultURL  *string                `json:"resultUrl,omitempty"`
	Error      *string                `json:"error,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	FinishedAt *time.Time             `json:"finishedAt,omitempty"`
}
