package reconcile_test

import (
	"context"
	"time"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/config"
	"github.com/apc-foundation/exam-pipeline/internal/lifecycle"
	"github.com/apc-foundation/exam-pipeline/internal/reconcile"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/apc-foundation/exam-pipeline/internal/store/model"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func ptr(s string) *string { return &s }

var _ = Describe("reconciler", Ordered, func() {
	var (
		s          store.Store
		gormdb     *gorm.DB
		reconciler *reconcile.Reconciler
		today      = time.Date(2025, 10, 1, 10, 0, 0, 0, time.UTC)
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = "file:reconciler?mode=memory&cache=shared"

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())
		s = store.NewStore(db)
		Expect(s.InitialMigration(context.TODO())).To(Succeed())
		gormdb = db

		reconciler = reconcile.NewReconciler(s, reconcile.WithClock(func() time.Time { return today }))
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM exams;")
	})

	listExams := func() model.ExamList {
		exams, err := s.Exam().List(context.TODO(), store.NewExamQueryFilter())
		Expect(err).To(BeNil())
		return exams
	}

	Context("fresh insert", func() {
		It("creates an active exam with a derived status", func() {
			result, err := reconciler.Reconcile(context.TODO(), []api.ExamRecord{
				{
					ExamName:            "CAT 2025",
					Organization:        "IIM",
					ApplicationLastDate: ptr("2025-10-15"),
					Status:              ptr("Closed"),
				},
			})
			Expect(err).To(BeNil())
			Expect(result.New).To(Equal(1))
			Expect(result.Updated).To(BeZero())
			Expect(result.Errors).To(BeEmpty())

			exams := listExams()
			Expect(exams).To(HaveLen(1))
			Expect(exams[0].IsActive).To(BeTrue())
			Expect(exams[0].Level).To(Equal(model.DefaultExamLevel))
			// the pushed status is ignored
			Expect(exams[0].Status).To(Equal(string(lifecycle.StatusOpen)))
		})

		It("closes an exam whose close date has passed", func() {
			_, err := reconciler.Reconcile(context.TODO(), []api.ExamRecord{
				{ExamName: "GATE", Organization: "IIT", ApplicationLastDate: ptr("2025-09-30")},
			})
			Expect(err).To(BeNil())
			Expect(listExams()[0].Status).To(Equal(string(lifecycle.StatusClosed)))
		})

		It("marks an exam coming soon before its window opens", func() {
			_, err := reconciler.Reconcile(context.TODO(), []api.ExamRecord{
				{ExamName: "NEET", Organization: "NTA", ApplicationStartDate: ptr("2025-12-01"), ApplicationLastDate: ptr("2026-01-15")},
			})
			Expect(err).To(BeNil())
			Expect(listExams()[0].Status).To(Equal(string(lifecycle.StatusComingSoon)))
		})
	})

	Context("known exams", func() {
		It("updates case-insensitively without duplicating", func() {
			_, err := reconciler.Reconcile(context.TODO(), []api.ExamRecord{
				{ExamName: "CAT 2025", Organization: "IIM", State: ptr("Delhi")},
			})
			Expect(err).To(BeNil())

			result, err := reconciler.Reconcile(context.TODO(), []api.ExamRecord{
				{ExamName: "cat 2025", Organization: "iim", Level: ptr("National")},
			})
			Expect(err).To(BeNil())
			Expect(result.New).To(BeZero())
			Expect(result.Updated).To(Equal(1))

			exams := listExams()
			Expect(exams).To(HaveLen(1))
			Expect(exams[0].Level).To(Equal("National"))
			Expect(exams[0].State).To(BeNil())
		})

		It("is idempotent", func() {
			batch := []api.ExamRecord{
				{ExamName: "CAT 2025", Organization: "IIM", ExamDate: ptr("2025-11-30")},
				{ExamName: "GATE", Organization: "IIT", ApplicationLastDate: ptr("2025-09-30")},
			}

			first, err := reconciler.Reconcile(context.TODO(), batch)
			Expect(err).To(BeNil())
			Expect(first.New).To(Equal(2))
			before := listExams()

			second, err := reconciler.Reconcile(context.TODO(), batch)
			Expect(err).To(BeNil())
			Expect(second.New).To(BeZero())
			Expect(second.Updated).To(Equal(2))

			after := listExams()
			Expect(after).To(HaveLen(len(before)))
			for i := range after {
				Expect(after[i].ID).To(Equal(before[i].ID))
				Expect(after[i].Status).To(Equal(before[i].Status))
				Expect(after[i].CreatedAt).To(BeTemporally("==", before[i].CreatedAt))
			}
		})

		It("finds a non-ASCII uppercase name on its second sighting", func() {
			batch := []api.ExamRecord{{ExamName: "ÉCOLE Exam", Organization: "Org"}}

			first, err := reconciler.Reconcile(context.TODO(), batch)
			Expect(err).To(BeNil())
			Expect(first.New).To(Equal(1))

			second, err := reconciler.Reconcile(context.TODO(), batch)
			Expect(err).To(BeNil())
			Expect(second.Errors).To(BeEmpty())
			Expect(second.New).To(BeZero())
			Expect(second.Updated).To(Equal(1))

			third, err := reconciler.Reconcile(context.TODO(), []api.ExamRecord{{ExamName: "école exam", Organization: "ORG"}})
			Expect(err).To(BeNil())
			Expect(third.Errors).To(BeEmpty())
			Expect(third.Updated).To(Equal(1))

			Expect(listExams()).To(HaveLen(1))
		})

		It("counts duplicates within one batch as updates", func() {
			result, err := reconciler.Reconcile(context.TODO(), []api.ExamRecord{
				{ExamName: "SSC CGL", Organization: "SSC"},
				{ExamName: "SSC CGL ", Organization: "ssc"},
			})
			Expect(err).To(BeNil())
			Expect(result.New).To(Equal(1))
			Expect(result.Updated).To(Equal(1))
			Expect(listExams()).To(HaveLen(1))
		})
	})

	Context("invalid records", func() {
		It("skips a record missing a required field and keeps going", func() {
			result, err := reconciler.Reconcile(context.TODO(), []api.ExamRecord{
				{ExamName: "CAT 2025", Organization: "IIM"},
				{ExamName: "", Organization: "UPSC"},
				{ExamName: "Bad date", Organization: "BPSC", ExamDate: ptr("next week")},
				{ExamName: "GATE", Organization: "IIT"},
			})
			Expect(err).To(BeNil())
			Expect(result.New).To(Equal(2))
			Expect(result.Errors).To(HaveLen(2))
			Expect(result.Processed()).To(Equal(4))

			Expect(result.Errors[0].Kind).To(Equal(reconcile.ErrorKindValidation))
			Expect(result.Errors[0].ExamName).To(BeEmpty())
			Expect(result.Errors[0].Record).To(ContainSubstring("UPSC"))
			Expect(result.Errors[0].Reason).To(ContainSubstring("exam_name is required"))
			Expect(result.Errors[1].ExamName).To(Equal("Bad date"))
			Expect(*result.ErrorLog()).To(ContainSubstring(`Skipped exam "Bad date"`))

			Expect(listExams()).To(HaveLen(2))
		})

		It("reports a storage error for an ambiguous key", func() {
			Expect(gormdb.Exec("DROP INDEX exams_natural_key").Error).To(BeNil())
			DeferCleanup(func() {
				gormdb.Exec("DELETE FROM exams;")
				Expect(gormdb.Exec("CREATE UNIQUE INDEX exams_natural_key ON exams (name_key, organization_key)").Error).To(BeNil())
			})

			for i := 0; i < 2; i++ {
				Expect(gormdb.Create(&model.Exam{
					ID:              uuid.New(),
					ExamName:        "UPSC CSE",
					Organization:    "UPSC",
					NameKey:         "upsc cse",
					OrganizationKey: "upsc",
					Status:          "Open",
					IsActive:        true,
				}).Error).To(BeNil())
			}

			result, err := reconciler.Reconcile(context.TODO(), []api.ExamRecord{
				{ExamName: "UPSC CSE", Organization: "UPSC"},
				{ExamName: "CAT 2025", Organization: "IIM"},
			})
			Expect(err).To(BeNil())
			Expect(result.New).To(Equal(1))
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].Kind).To(Equal(reconcile.ErrorKindStorage))
			Expect(result.Errors[0].Reason).To(ContainSubstring(store.ErrAmbiguousNaturalKey.Error()))
		})
	})

	Context("conservation", func() {
		It("accounts for every record", func() {
			batch := []api.ExamRecord{
				{ExamName: "a", Organization: "x"},
				{ExamName: "b", Organization: "x"},
				{ExamName: "a", Organization: "X"},
				{ExamName: "", Organization: ""},
				{ExamName: "c", Organization: "y", OfficialWebsite: ptr("not a url")},
			}
			result, err := reconciler.Reconcile(context.TODO(), batch)
			Expect(err).To(BeNil())
			Expect(result.New + result.Updated + len(result.Errors)).To(Equal(len(batch)))
		})

		It("handles an empty batch", func() {
			result, err := reconciler.Reconcile(context.TODO(), nil)
			Expect(err).To(BeNil())
			Expect(result.Processed()).To(BeZero())
			Expect(result.ErrorLog()).To(BeNil())
		})
	})

	Context("cancellation", func() {
		It("stops when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.TODO())
			cancel()

			result, err := reconciler.Reconcile(ctx, []api.ExamRecord{{ExamName: "a", Organization: "x"}})
			Expect(err).ToNot(BeNil())
			Expect(err).To(MatchError(context.Canceled))
			Expect(result.Processed()).To(BeZero())
		})
	})
})
