package v1alpha1

import (
	"errors"
	"net/http"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/auth"
	"github.com/apc-foundation/exam-pipeline/internal/handlers/v1alpha1/mappers"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/apc-foundation/exam-pipeline/pkg/requestid"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type ServiceHandler struct {
	pipelineSrv *service.PipelineService
	statusSrv   *service.StatusService
}

func NewServiceHandler(pipelineService *service.PipelineService, statusService *service.StatusService) *ServiceHandler {
	return &ServiceHandler{
		pipelineSrv: pipelineService,
		statusSrv:   statusService,
	}
}

// RegisterApi mounts the pipeline endpoints behind the guard.
func RegisterApi(router chi.Router, h *ServiceHandler, guard *auth.Guard) {
	router.Get("/health", h.Health)

	router.Route("/api/v1/pipeline", func(r chi.Router) {
		r.With(guard.SecretOrAdmin).Post("/runs", h.TriggerRun)
		r.With(guard.SecretOnly).Get("/runs", h.TriggerRun)
		r.With(guard.SecretOnly).Post("/webhook", h.PushWebhook)
		r.With(guard.SecretOrAdmin).Get("/status", h.GetStatus)
	})
}

// (GET /health)
func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type RunReply struct {
	api.RunResponse
}

func (RunReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

type WebhookReply struct {
	api.WebhookResponse
}

func (WebhookReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

type StatusReply struct {
	api.StatusResponse
}

func (StatusReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

type ErrorReply struct {
	api.ErrorResponse
	status int
}

func (e ErrorReply) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.status)
	return nil
}

func renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	reply := ErrorReply{ErrorResponse: api.ErrorResponse{Error: err.Error()}, status: status}
	reply.RequestId = requestid.FromContextPtr(r.Context())
	_ = render.Render(w, r, reply)
}

// renderRunError reports a failed run with its id so the ledger entry can be found.
func renderRunError(w http.ResponseWriter, r *http.Request, err error) {
	id := ""
	var runErr *service.ErrRunFailed
	if errors.As(err, &runErr) {
		id = runErr.RunID
	}

	reply := ErrorReply{ErrorResponse: mappers.ErrorToApi(err, id), status: http.StatusInternalServerError}
	reply.RequestId = requestid.FromContextPtr(r.Context())
	_ = render.Render(w, r, reply)
}
