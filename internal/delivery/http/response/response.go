package response

import (
	"time"

	"github.com/user/catalog-etl/internal/entity"
)

type SubmitRunResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

// RunStatusResponse is a DTO for run status, mirroring entity.CrawlRun
type RunStatusResponse struct {
	RunID         string            `json:"run_id"`
	ListingURL    string            `json:"listing_url,omitempty"`
	Stage         string            `json:"stage"`
	CurrentStatus string            `json:"current_status"` // "pending", "running", "completed", "failed"
	SubmittedAt   time.Time         `json:"submitted_at"`
	StartedAt     *time.Time        `json:"started_at,omitempty"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
	Summary       entity.RunSummary `json:"summary"`
	FailureReason string            `json:"failure_reason,omitempty"`
}

func NewRunStatusResponse(run *entity.CrawlRun) RunStatusResponse {
	return RunStatusResponse{
		RunID:         run.ID,
		ListingURL:    run.ListingURL,
		Stage:         run.Stage,
		CurrentStatus: run.Status,
		SubmittedAt:   run.SubmittedAt,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		Summary:       run.Summary,
		FailureReason: run.FailureReason,
	}
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
