package ledger_test

import (
	"context"
	"errors"
	"time"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/config"
	"github.com/apc-foundation/exam-pipeline/internal/ledger"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = DescribeTable("outcome status",
	func(o ledger.Outcome, expected api.RunStatus) {
		Expect(o.Status()).To(Equal(expected))
	},
	Entry("no errors", ledger.Outcome{Found: 3, New: 1, Updated: 2}, api.RunStatusSuccess),
	Entry("refresh only", ledger.Outcome{Found: 40}, api.RunStatusSuccess),
	Entry("empty batch", ledger.Outcome{}, api.RunStatusSuccess),
	Entry("some records failed", ledger.Outcome{Found: 3, New: 1, Updated: 1, Errors: 1}, api.RunStatusPartial),
	Entry("every record failed", ledger.Outcome{Found: 2, Errors: 2}, api.RunStatusFailed),
	Entry("aborted", ledger.Outcome{Found: 2, New: 2, Err: errors.New("boom")}, api.RunStatusFailed),
)

var _ = Describe("run ledger", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		now    time.Time
		l      *ledger.Ledger
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = "file:ledger?mode=memory&cache=shared"

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())
		s = store.NewStore(db)
		Expect(s.InitialMigration(context.TODO())).To(Succeed())
		gormdb = db

		l = ledger.New(s, ledger.WithClock(func() time.Time { return now }))
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		now = time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM pipeline_runs;")
	})

	Context("open", func() {
		It("inserts a running entry", func() {
			h, err := l.Open(context.TODO(), api.RunTypeWebhook, []string{"UPSC", "SSC"})
			Expect(err).To(BeNil())
			Expect(h.RunID()).ToNot(BeEmpty())

			run, err := s.Run().Get(context.TODO(), h.ID)
			Expect(err).To(BeNil())
			Expect(run.Status).To(Equal(string(api.RunStatusRunning)))
			Expect(run.RunType).To(Equal(string(api.RunTypeWebhook)))
			Expect(run.Sources).To(Equal([]string{"UPSC", "SSC"}))
		})

		It("has an empty id for a missing handle", func() {
			var h *ledger.Handle
			Expect(h.RunID()).To(BeEmpty())
		})
	})

	Context("close", func() {
		It("closes a partial run with counters and duration", func() {
			h, err := l.Open(context.TODO(), api.RunTypeWebhook, nil)
			Expect(err).To(BeNil())

			now = now.Add(1500 * time.Millisecond)
			errorLog := "Skipped exam \"x\": exam_name is required"
			run, err := l.Close(context.TODO(), h, ledger.Outcome{
				Found:    3,
				New:      1,
				Updated:  1,
				Errors:   1,
				ErrorLog: &errorLog,
				Metadata: map[string]any{"scrapers": []string{"UPSC"}},
			})
			Expect(err).To(BeNil())
			Expect(run.Status).To(Equal(string(api.RunStatusPartial)))
			Expect(*run.DurationMs).To(Equal(int64(1500)))
			Expect(run.FinishedAt).ToNot(BeNil())
			Expect(*run.ErrorLog).To(Equal(errorLog))
			Expect(run.Metadata).To(HaveKey("scrapers"))
		})

		It("closes exactly once", func() {
			h, err := l.Open(context.TODO(), api.RunTypeManual, nil)
			Expect(err).To(BeNil())

			_, err = l.Close(context.TODO(), h, ledger.Outcome{Found: 1, Updated: 1})
			Expect(err).To(BeNil())

			_, err = l.Close(context.TODO(), h, ledger.Outcome{Err: errors.New("late failure")})
			Expect(errors.Is(err, ledger.ErrRunAlreadyClosed)).To(BeTrue())

			// a different handle on the same run cannot reopen it either
			_, err = l.Close(context.TODO(), &ledger.Handle{ID: h.ID, StartedAt: h.StartedAt}, ledger.Outcome{})
			Expect(errors.Is(err, ledger.ErrRunAlreadyClosed)).To(BeTrue())

			run, err := s.Run().Get(context.TODO(), h.ID)
			Expect(err).To(BeNil())
			Expect(run.Status).To(Equal(string(api.RunStatusSuccess)))
		})

		It("records the abort message verbatim", func() {
			h, err := l.Open(context.TODO(), api.RunTypeScheduled, nil)
			Expect(err).To(BeNil())

			run, err := l.Close(context.TODO(), h, ledger.Outcome{Err: errors.New("refresh statuses: connection reset")})
			Expect(err).To(BeNil())
			Expect(run.Status).To(Equal(string(api.RunStatusFailed)))
			Expect(*run.ErrorLog).To(Equal("refresh statuses: connection reset"))
			Expect(run.Errors).To(Equal(1))
		})

		It("refuses a nil handle", func() {
			_, err := l.Close(context.TODO(), nil, ledger.Outcome{})
			Expect(err).ToNot(BeNil())
		})
	})

	Context("sweep", func() {
		It("fails runs stuck in running", func() {
			stale, err := l.Open(context.TODO(), api.RunTypeScheduled, nil)
			Expect(err).To(BeNil())

			now = now.Add(20 * time.Minute)
			fresh, err := l.Open(context.TODO(), api.RunTypeScheduled, nil)
			Expect(err).To(BeNil())

			done, err := l.Open(context.TODO(), api.RunTypeManual, nil)
			Expect(err).To(BeNil())
			_, err = l.Close(context.TODO(), done, ledger.Outcome{})
			Expect(err).To(BeNil())

			now = now.Add(time.Minute)
			swept, err := l.Sweep(context.TODO(), 10*time.Minute)
			Expect(err).To(BeNil())
			Expect(swept).To(Equal(1))

			run, err := s.Run().Get(context.TODO(), stale.ID)
			Expect(err).To(BeNil())
			Expect(run.Status).To(Equal(string(api.RunStatusFailed)))
			Expect(*run.ErrorLog).To(Equal(ledger.StaleRunMessage))
			Expect(*run.DurationMs).To(Equal((21 * time.Minute).Milliseconds()))

			run, err = s.Run().Get(context.TODO(), fresh.ID)
			Expect(err).To(BeNil())
			Expect(run.Status).To(Equal(string(api.RunStatusRunning)))

			// the owner of a swept run can no longer close it
			_, err = l.Close(context.TODO(), stale, ledger.Outcome{})
			Expect(errors.Is(err, ledger.ErrRunAlreadyClosed)).To(BeTrue())
		})

		It("does nothing without running runs", func() {
			swept, err := l.Sweep(context.TODO(), time.Minute)
			Expect(err).To(BeNil())
			Expect(swept).To(BeZero())
		})
	})
})
