package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/auth"
	"github.com/apc-foundation/exam-pipeline/internal/config"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("guard", Ordered, func() {
	var (
		s     store.Store
		key   = []byte("local-signing-key")
		guard *auth.Guard
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = "file:guard?mode=memory&cache=shared"

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())
		s = store.NewStore(db)
		Expect(s.InitialMigration(context.TODO())).To(Succeed())

		Expect(db.Create(&model.Profile{ID: "admin-1", Email: "admin@example.org", Role: "admin"}).Error).To(BeNil())
		Expect(db.Create(&model.Profile{ID: "member-1", Email: "member@example.org", Role: "member"}).Error).To(BeNil())

		authConfig := config.Auth{CronSecret: "s3cret", AdminRole: "admin"}
		guard = auth.NewGuard(authConfig, auth.NewLocalAuthenticator(key), s)
	})

	AfterAll(func() {
		s.Close()
	})

	session := func(userID string) string {
		token, err := auth.GenerateLocalToken(key, userID, "", time.Hour)
		Expect(err).To(BeNil())
		return "Bearer " + token
	}

	serve := func(mw func(http.Handler) http.Handler, authorization string) (*httptest.ResponseRecorder, *auth.Caller) {
		var caller *auth.Caller
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := auth.MustHaveCaller(r.Context())
			caller = &c
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/runs", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr, caller
	}

	Context("secret or admin", func() {
		It("accepts the shared secret", func() {
			rr, caller := serve(guard.SecretOrAdmin, "Bearer s3cret")
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(caller.Kind).To(Equal(auth.CallerSecret))
		})

		It("accepts an admin session", func() {
			rr, caller := serve(guard.SecretOrAdmin, session("admin-1"))
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(caller.Kind).To(Equal(auth.CallerAdmin))
			Expect(caller.User.ID).To(Equal("admin-1"))
		})

		It("rejects a member session", func() {
			rr, caller := serve(guard.SecretOrAdmin, session("member-1"))
			Expect(rr.Code).To(Equal(http.StatusForbidden))
			Expect(caller).To(BeNil())

			body := api.ErrorResponse{}
			Expect(json.Unmarshal(rr.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Error).To(Equal("Admin access required"))
		})

		It("rejects a session without a profile", func() {
			rr, _ := serve(guard.SecretOrAdmin, session("ghost"))
			Expect(rr.Code).To(Equal(http.StatusForbidden))
		})

		It("rejects missing credentials", func() {
			rr, _ := serve(guard.SecretOrAdmin, "")
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects a wrong secret", func() {
			rr, _ := serve(guard.SecretOrAdmin, "Bearer wrong")
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Context("secret only", func() {
		It("accepts the shared secret", func() {
			rr, caller := serve(guard.SecretOnly, "bearer s3cret")
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(caller.Kind).To(Equal(auth.CallerSecret))
		})

		It("rejects an admin session", func() {
			rr, _ := serve(guard.SecretOnly, session("admin-1"))
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Context("default configuration", func() {
		var defaults *auth.Guard

		BeforeAll(func() {
			authConfig := config.NewDefault().Service.Auth
			authConfig.CronSecret = "s3cret"
			sessions, err := auth.NewSessionAuthenticator(authConfig)
			Expect(err).To(BeNil())
			defaults = auth.NewGuard(authConfig, sessions, s)
		})

		It("rejects an arbitrary bearer token", func() {
			rr, caller := serve(defaults.SecretOrAdmin, "Bearer x")
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
			Expect(caller).To(BeNil())
		})

		It("still accepts the shared secret", func() {
			rr, caller := serve(defaults.SecretOrAdmin, "Bearer s3cret")
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(caller.Kind).To(Equal(auth.CallerSecret))
		})
	})

	Context("none authentication", func() {
		var none *auth.Guard

		BeforeAll(func() {
			sessions, err := auth.NewSessionAuthenticator(config.Auth{AuthenticationType: auth.NoneAuthentication})
			Expect(err).To(BeNil())
			none = auth.NewGuard(config.Auth{CronSecret: "s3cret", AdminRole: "admin"}, sessions, s)
		})

		It("rejects the local admin without an admin profile", func() {
			rr, _ := serve(none.SecretOrAdmin, "Bearer x")
			Expect(rr.Code).To(Equal(http.StatusForbidden))
		})
	})

	It("never accepts an empty secret", func() {
		open := auth.NewGuard(config.Auth{AdminRole: "admin"}, auth.NewLocalAuthenticator(key), s)
		rr, _ := serve(open.SecretOnly, "Bearer ")
		Expect(rr.Code).To(Equal(http.StatusUnauthorized))
	})
})
