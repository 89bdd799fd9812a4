package mappers

import (
	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/lifecycle"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/apc-foundation/exam-pipeline/internal/store/model"
)

func RunToApi(run model.Run) api.Run {
	sources := run.Sources
	if sources == nil {
		sources = []string{}
	}
	metadata := run.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return api.Run{
		ID:         run.ID.String(),
		RunType:    api.RunType(run.RunType),
		Status:     api.RunStatus(run.Status),
		Sources:    sources,
		Found:      run.Found,
		New:        run.New,
		Updated:    run.Updated,
		Closed:     run.Closed,
		Errors:     run.Errors,
		ErrorLog:   run.ErrorLog,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMs: run.DurationMs,
		Metadata:   metadata,
	}
}

func RunListToApi(runs model.RunList) []api.Run {
	apiRuns := make([]api.Run, 0, len(runs))
	for _, r := range runs {
		apiRuns = append(apiRuns, RunToApi(r))
	}
	return apiRuns
}

func ExamStatsToApi(stats model.ExamStats) api.ExamStats {
	byOrganization := stats.ByOrganization
	if byOrganization == nil {
		byOrganization = map[string]int64{}
	}
	byLevel := stats.ByLevel
	if byLevel == nil {
		byLevel = map[string]int64{}
	}

	return api.ExamStats{
		TotalActive:    stats.TotalActive,
		Open:           stats.ByStatus[lifecycle.StatusOpen],
		Closed:         stats.ByStatus[lifecycle.StatusClosed],
		ComingSoon:     stats.ByStatus[lifecycle.StatusComingSoon],
		ByOrganization: byOrganization,
		ByLevel:        byLevel,
	}
}

func OverviewToApi(overview *service.Overview) api.StatusResponse {
	resp := api.StatusResponse{
		Runs:  RunListToApi(overview.Runs),
		Stats: ExamStatsToApi(overview.Stats),
	}
	if last := overview.LastRun(); last != nil {
		lastRun := RunToApi(*last)
		resp.LastRun = &lastRun
	}
	return resp
}

func StatusChangesToApi(t lifecycle.Transitions) api.StatusChanges {
	return api.StatusChanges{
		Closed:     t.Closed,
		Opened:     t.Opened,
		ComingSoon: t.ComingSoon,
	}
}

func RunResultToApi(result *service.RunResult) api.RunResponse {
	return api.RunResponse{
		Success:       true,
		RunID:         runID(result.RunID),
		DurationMs:    result.DurationMs,
		StatusChanges: StatusChangesToApi(result.StatusChanges),
		Totals: api.Totals{
			ActiveExams: result.Totals.Active,
			OpenExams:   result.Totals.Open,
		},
	}
}

func WebhookResultToApi(result *service.RunResult) api.WebhookResponse {
	return api.WebhookResponse{
		Success:       true,
		RunID:         runID(result.RunID),
		DurationMs:    result.DurationMs,
		New:           result.New,
		Updated:       result.Updated,
		Errors:        len(result.Errors),
		StatusChanges: StatusChangesToApi(result.StatusChanges),
	}
}

// runID is nil when the run could not be recorded.
func runID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func ErrorToApi(err error, id string) api.ErrorResponse {
	return api.ErrorResponse{Error: err.Error(), RunID: runID(id)}
}
