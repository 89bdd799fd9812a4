package migrations_test

import (
	"os"
	"path"

	"github.com/apc-foundation/exam-pipeline/internal/config"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/apc-foundation/exam-pipeline/pkg/migrations"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("migrations", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = "file:migrations?mode=memory&cache=shared"

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
	})

	AfterAll(func() {
		s.Close()
	})

	tableExists := func(name string) bool {
		var count int64
		tx := gormdb.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
		Expect(tx.Error).To(BeNil())
		return count == 1
	}

	Context("store migrations", Ordered, func() {
		It("fails to migrate the db -- migration folder does not exist", func() {
			err := migrations.MigrateStore(gormdb, "some folder")
			Expect(err).NotTo(BeNil())
		})

		It("fails to migrate the db -- migration folder is a file", func() {
			currentFolder, err := os.Getwd()
			Expect(err).To(BeNil())

			err = migrations.MigrateStore(gormdb, path.Join(currentFolder, "migrations.go"))
			Expect(err).NotTo(BeNil())
		})

		It("successfully migrate the db from a folder", func() {
			currentFolder, err := os.Getwd()
			Expect(err).To(BeNil())

			err = migrations.MigrateStore(gormdb, path.Join(currentFolder, "sql"))
			Expect(err).To(BeNil())

			for _, table := range []string{"exams", "pipeline_runs", "profiles"} {
				Expect(tableExists(table)).To(BeTrue())
			}

			version, err := migrations.Version(gormdb)
			Expect(err).To(BeNil())
			Expect(version).To(Equal(int64(20251001000003)))
		})

		It("is a no-op when already applied", func() {
			Expect(migrations.MigrateStore(gormdb, "")).To(Succeed())
		})

		It("enforces the natural key", func() {
			insert := "INSERT INTO exams (id, exam_name, organization, name_key, organization_key, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, 'Open', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)"
			Expect(gormdb.Exec(insert, "1", "CAT", "IIM", "cat", "iim").Error).To(BeNil())
			Expect(gormdb.Exec(insert, "2", "cat ", "iim", "cat", "iim").Error).ToNot(BeNil())
		})
	})

	Context("embedded migrations", func() {
		It("migrates a fresh database", func() {
			cfg := config.NewDefault()
			cfg.Database.Type = "sqlite"
			cfg.Database.Name = "file:migrations_embedded?mode=memory&cache=shared"

			db, err := store.InitDB(cfg)
			Expect(err).To(BeNil())
			defer store.NewStore(db).Close()

			Expect(migrations.MigrateStore(db, "")).To(Succeed())

			version, err := migrations.Version(db)
			Expect(err).To(BeNil())
			Expect(version).To(Equal(int64(20251001000003)))
		})
	})
})
