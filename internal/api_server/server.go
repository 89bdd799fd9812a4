package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/apc-foundation/exam-pipeline/internal/auth"
	"github.com/apc-foundation/exam-pipeline/internal/config"
	handlers "github.com/apc-foundation/exam-pipeline/internal/handlers/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/apc-foundation/exam-pipeline/pkg/metrics"
	"github.com/apc-foundation/exam-pipeline/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg         *config.Config
	store       store.Store
	listener    net.Listener
	pipelineSrv *service.PipelineService
}

// New returns a new instance of an exam-pipeline server.
func New(
	cfg *config.Config,
	store store.Store,
	listener net.Listener,
	pipelineSrv *service.PipelineService,
) *Server {
	return &Server{
		cfg:         cfg,
		store:       store,
		listener:    listener,
		pipelineSrv: pipelineSrv,
	}
}

// Handler builds the router serving the pipeline API.
func (s *Server) Handler() (http.Handler, error) {
	sessions, err := auth.NewSessionAuthenticator(s.cfg.Service.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Service.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	h := handlers.NewServiceHandler(s.pipelineSrv, service.NewStatusService(s.store))
	handlers.RegisterApi(router, h, auth.NewGuard(s.cfg.Service.Auth, sessions, s.store))

	return router, nil
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router, err := s.Handler()
	if err != nil {
		return err
	}

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
