package v1alpha1

import (
	"encoding/json"
	"io"
	"net/http"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/auth"
	"github.com/apc-foundation/exam-pipeline/internal/handlers/v1alpha1/mappers"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

const maxRunRequestSize = 64 << 10

// (POST /api/v1/pipeline/runs) and (GET /api/v1/pipeline/runs)
func (h *ServiceHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustHaveCaller(r.Context())

	var body *api.RunRequest
	if caller.Kind == auth.CallerAdmin && r.Body != nil {
		// the body is optional: anything unreadable means a manual run
		data, err := io.ReadAll(io.LimitReader(r.Body, maxRunRequestSize))
		if err == nil && len(data) > 0 {
			req := api.RunRequest{}
			if json.Unmarshal(data, &req) == nil {
				body = &req
			}
		}
	}

	runType := mappers.RunTypeFromRequest(caller, body)
	result, err := h.pipelineSrv.Execute(r.Context(), service.NewRefreshRequest(runType))
	if err != nil {
		zap.S().Named("pipeline_handler").Errorw("run failed", "error", err, "run_type", runType)
		renderRunError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	_ = render.Render(w, r, RunReply{mappers.RunResultToApi(result)})
}
