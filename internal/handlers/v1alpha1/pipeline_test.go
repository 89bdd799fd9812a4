package v1alpha1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/auth"
	"github.com/apc-foundation/exam-pipeline/internal/config"
	handlers "github.com/apc-foundation/exam-pipeline/internal/handlers/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

const cronSecret = "s3cret"

var _ = Describe("pipeline handlers", Ordered, func() {
	var (
		s       store.Store
		gormdb  *gorm.DB
		router  *chi.Mux
		signKey = []byte("local-signing-key")
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = "file:handlers?mode=memory&cache=shared"

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())
		s = store.NewStore(db)
		Expect(s.InitialMigration(context.TODO())).To(Succeed())
		gormdb = db

		Expect(db.Create(&model.Profile{ID: "admin-1", Email: "admin@example.org", Role: "admin"}).Error).To(BeNil())
		Expect(db.Create(&model.Profile{ID: "member-1", Email: "member@example.org", Role: "member"}).Error).To(BeNil())

		now := func() time.Time { return time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC) }
		h := handlers.NewServiceHandler(
			service.NewPipelineService(s, nil, service.WithClock(now)),
			service.NewStatusService(s),
		)
		guard := auth.NewGuard(config.Auth{CronSecret: cronSecret, AdminRole: "admin"}, auth.NewLocalAuthenticator(signKey), s)

		router = chi.NewRouter()
		handlers.RegisterApi(router, h, guard)
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM exams;")
		gormdb.Exec("DELETE FROM pipeline_runs;")
	})

	do := func(method, path, authorization string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	session := func(userID string) string {
		token, err := auth.GenerateLocalToken(signKey, userID, "", time.Hour)
		Expect(err).To(BeNil())
		return "Bearer " + token
	}

	countRuns := func() int64 {
		var count int64
		Expect(gormdb.Model(&model.Run{}).Count(&count).Error).To(BeNil())
		return count
	}

	It("answers the health check", func() {
		rr := do(http.MethodGet, "/health", "", nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
	})

	Context("webhook", func() {
		It("ingests a batch", func() {
			body := []byte(`{
				"scrapers": ["UPSC"],
				"exams": [
					{"exam_name": "UPSC CSE 2026", "organization": "UPSC", "application_last_date": "2026-02-01"},
					{"exam_name": "UPSC ESE", "organization": "UPSC", "application_last_date": "2025-09-01"},
					{"organization": "UPSC"}
				],
				"stats": {"scraped": 3},
				"error_log": ""
			}`)

			rr := do(http.MethodPost, "/api/v1/pipeline/webhook", "Bearer "+cronSecret, body)
			Expect(rr.Code).To(Equal(http.StatusOK))

			resp := api.WebhookResponse{}
			Expect(json.Unmarshal(rr.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Success).To(BeTrue())
			Expect(resp.RunID).ToNot(BeNil())
			Expect(resp.New).To(Equal(2))
			Expect(resp.Updated).To(BeZero())
			Expect(resp.Errors).To(Equal(1))

			run, err := s.Run().Get(context.TODO(), uuid.MustParse(*resp.RunID))
			Expect(err).To(BeNil())
			Expect(run.Status).To(Equal(string(api.RunStatusPartial)))
		})

		It("rejects unknown fields before opening a run", func() {
			rr := do(http.MethodPost, "/api/v1/pipeline/webhook", "Bearer "+cronSecret, []byte(`{"exams": [], "extra": true}`))
			Expect(rr.Code).To(Equal(http.StatusBadRequest))
			Expect(countRuns()).To(BeZero())

			rr = do(http.MethodPost, "/api/v1/pipeline/webhook", "Bearer "+cronSecret, []byte(`{"exams": [{"exam_name": "x", "organization": "y", "salary": "1"}]}`))
			Expect(rr.Code).To(Equal(http.StatusBadRequest))
			Expect(countRuns()).To(BeZero())
		})

		It("rejects malformed JSON", func() {
			rr := do(http.MethodPost, "/api/v1/pipeline/webhook", "Bearer "+cronSecret, []byte(`{"exams": [`))
			Expect(rr.Code).To(Equal(http.StatusBadRequest))

			resp := api.ErrorResponse{}
			Expect(json.Unmarshal(rr.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Error).To(HavePrefix("bad request"))
		})

		It("requires the shared secret", func() {
			rr := do(http.MethodPost, "/api/v1/pipeline/webhook", "", []byte(`{"exams": []}`))
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))

			rr = do(http.MethodPost, "/api/v1/pipeline/webhook", session("admin-1"), []byte(`{"exams": []}`))
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
			Expect(countRuns()).To(BeZero())
		})
	})

	Context("run trigger", func() {
		It("records a scheduled run for the secret holder", func() {
			rr := do(http.MethodPost, "/api/v1/pipeline/runs", "Bearer "+cronSecret, []byte(`{"runType": "manual"}`))
			Expect(rr.Code).To(Equal(http.StatusOK))

			resp := api.RunResponse{}
			Expect(json.Unmarshal(rr.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Success).To(BeTrue())

			run, err := s.Run().Get(context.TODO(), uuid.MustParse(*resp.RunID))
			Expect(err).To(BeNil())
			Expect(run.RunType).To(Equal(string(api.RunTypeScheduled)))
			Expect(run.Status).To(Equal(string(api.RunStatusSuccess)))
		})

		It("accepts the cron GET", func() {
			rr := do(http.MethodGet, "/api/v1/pipeline/runs", "Bearer "+cronSecret, nil)
			Expect(rr.Code).To(Equal(http.StatusOK))

			rr = do(http.MethodGet, "/api/v1/pipeline/runs", session("admin-1"), nil)
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})

		It("lets an admin pick the run type", func() {
			rr := do(http.MethodPost, "/api/v1/pipeline/runs", session("admin-1"), []byte(`{"runType": "scheduled"}`))
			Expect(rr.Code).To(Equal(http.StatusOK))

			resp := api.RunResponse{}
			Expect(json.Unmarshal(rr.Body.Bytes(), &resp)).To(Succeed())
			run, err := s.Run().Get(context.TODO(), uuid.MustParse(*resp.RunID))
			Expect(err).To(BeNil())
			Expect(run.RunType).To(Equal(string(api.RunTypeScheduled)))
		})

		It("defaults an admin run to manual", func() {
			rr := do(http.MethodPost, "/api/v1/pipeline/runs", session("admin-1"), nil)
			Expect(rr.Code).To(Equal(http.StatusOK))

			resp := api.RunResponse{}
			Expect(json.Unmarshal(rr.Body.Bytes(), &resp)).To(Succeed())
			run, err := s.Run().Get(context.TODO(), uuid.MustParse(*resp.RunID))
			Expect(err).To(BeNil())
			Expect(run.RunType).To(Equal(string(api.RunTypeManual)))
		})

		It("refuses members before opening a run", func() {
			rr := do(http.MethodPost, "/api/v1/pipeline/runs", session("member-1"), nil)
			Expect(rr.Code).To(Equal(http.StatusForbidden))
			Expect(countRuns()).To(BeZero())
		})
	})

	Context("status", func() {
		It("returns the latest runs and aggregates", func() {
			for i := 0; i < 3; i++ {
				rr := do(http.MethodPost, "/api/v1/pipeline/runs", "Bearer "+cronSecret, nil)
				Expect(rr.Code).To(Equal(http.StatusOK))
			}

			rr := do(http.MethodGet, "/api/v1/pipeline/status?limit=2", session("admin-1"), nil)
			Expect(rr.Code).To(Equal(http.StatusOK))

			resp := api.StatusResponse{}
			Expect(json.Unmarshal(rr.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Runs).To(HaveLen(2))
			Expect(resp.LastRun).ToNot(BeNil())
			Expect(resp.LastRun.Status).To(Equal(api.RunStatusSuccess))
			Expect(resp.Stats.ByOrganization).ToNot(BeNil())
		})

		It("returns a null last run on a fresh database", func() {
			rr := do(http.MethodGet, "/api/v1/pipeline/status", "Bearer "+cronSecret, nil)
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(ContainSubstring(`"last_run":null`))
			Expect(rr.Body.String()).To(ContainSubstring(`"runs":[]`))
		})

		It("rejects a bad limit", func() {
			rr := do(http.MethodGet, "/api/v1/pipeline/status?limit=abc", "Bearer "+cronSecret, nil)
			Expect(rr.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
