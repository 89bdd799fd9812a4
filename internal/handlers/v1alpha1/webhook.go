package v1alpha1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/handlers/v1alpha1/mappers"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

const maxWebhookSize = 32 << 20

// (POST /api/v1/pipeline/webhook)
func (h *ServiceHandler) PushWebhook(w http.ResponseWriter, r *http.Request) {
	req, err := decodeWebhook(w, r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, service.NewErrInvalidRequest(err.Error()))
		return
	}

	result, err := h.pipelineSrv.Execute(r.Context(), service.NewWebhookRequest(*req))
	if err != nil {
		zap.S().Named("pipeline_handler").Errorw("webhook run failed", "error", err, "scrapers", req.Scrapers)
		renderRunError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	_ = render.Render(w, r, WebhookReply{mappers.WebhookResultToApi(result)})
}

// decodeWebhook reads exactly one JSON object and rejects fields it does not know.
func decodeWebhook(w http.ResponseWriter, r *http.Request) (*api.WebhookRequest, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookSize))
	dec.DisallowUnknownFields()

	req := &api.WebhookRequest{}
	if err := dec.Decode(req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty body")
		}
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("body must hold a single JSON object")
	}
	return req, nil
}
