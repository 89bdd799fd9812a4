package v1alpha1

import (
	"net/http"
	"strconv"

	"github.com/apc-foundation/exam-pipeline/internal/handlers/v1alpha1/mappers"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/go-chi/render"
)

// (GET /api/v1/pipeline/status)
func (h *ServiceHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			renderError(w, r, http.StatusBadRequest, service.NewErrInvalidRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}

	overview, err := h.statusSrv.Overview(r.Context(), limit)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	render.Status(r, http.StatusOK)
	_ = render.Render(w, r, StatusReply{mappers.OverviewToApi(overview)})
}
