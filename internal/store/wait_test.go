package store_test

import (
	"context"
	"database/sql"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/backupqa/qa-agent/internal/models"
	"github.com/backupqa/qa-agent/internal/store"
)

var _ = Describe("WaitStore", func() {
	var (
		ctx context.Context
		s   *store.Store
		db  *sql.DB
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())

		s = store.NewStore(db)
		Expect(s.Migrate(ctx)).To(Succeed())

		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		records := []models.WaitRecord{
			{ID: "w1", RunID: "r1", JobID: "1001", Kind: models.WaitKindJob, FinalState: "completed", Polls: 3, Elapsed: 30 * time.Second, Outcome: models.WaitOutcomeSucceeded, CreatedAt: base},
			{ID: "w2", RunID: "r1", JobID: "1002", Kind: models.WaitKindJob, FinalState: "failed", DelayReason: "Client is offline", Outcome: models.WaitOutcomeFailed, Error: "job 1002 failed", CreatedAt: base.Add(time.Minute)},
			{ID: "w3", JobID: "laptop1/12", Kind: models.WaitKindRunStatus, FinalState: "running", Outcome: models.WaitOutcomeTimedOut, CreatedAt: base.Add(2 * time.Minute)},
		}
		for _, r := range records {
			Expect(s.Waits().Create(ctx, r)).To(Succeed())
		}
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	It("should list waits newest first with every field", func() {
		// Act
		waits, err := s.Waits().List(ctx)

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(waits).To(HaveLen(3))
		Expect(waits[0].ID).To(Equal("w3"))
		Expect(waits[2].Elapsed).To(Equal(30 * time.Second))
		Expect(waits[2].Polls).To(Equal(3))
		Expect(waits[1].DelayReason).To(Equal("Client is offline"))
		Expect(waits[0].Kind).To(Equal(models.WaitKindRunStatus))
	})

	It("should filter by run, job and outcome", func() {
		byRun, err := s.Waits().List(ctx, store.ByRun("r1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(byRun).To(HaveLen(2))

		byJob, err := s.Waits().List(ctx, store.ByJob("1002"))
		Expect(err).NotTo(HaveOccurred())
		Expect(byJob).To(HaveLen(1))

		count, err := s.Waits().Count(ctx, store.ByOutcome(string(models.WaitOutcomeTimedOut), string(models.WaitOutcomeFailed)))
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))
	})
})
