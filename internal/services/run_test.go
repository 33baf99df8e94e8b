package services_test

import (
	"context"
	"database/sql"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vmware/govmomi/simulator"
	"github.com/vmware/govmomi/vim25"

	"github.com/backupqa/qa-agent/internal/models"
	"github.com/backupqa/qa-agent/internal/services"
	"github.com/backupqa/qa-agent/internal/store"
	"github.com/backupqa/qa-agent/internal/testcases"
	srvErrors "github.com/backupqa/qa-agent/pkg/errors"
	"github.com/backupqa/qa-agent/pkg/productapi"
	"github.com/backupqa/qa-agent/pkg/scheduler"
	"github.com/backupqa/qa-agent/pkg/testcase"
	"github.com/backupqa/qa-agent/pkg/vmware"
	"github.com/backupqa/qa-agent/pkg/waiter"
	"github.com/backupqa/qa-agent/test/fakeproduct"
)

// blockingCase runs until its context ends.
type blockingCase struct{}

func (blockingCase) ID() string               { return "blocking" }
func (blockingCase) Name() string             { return "Blocks until canceled" }
func (blockingCase) RequiredInputs() []string { return nil }

func (blockingCase) Setup(context.Context, *testcase.Env) error { return nil }

func (blockingCase) Run(ctx context.Context, _ *testcase.Env) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingCase) TearDown(context.Context, *testcase.Env) error { return nil }

var _ = Describe("RunService", func() {
	var (
		ctx   context.Context
		db    *sql.DB
		st    *store.Store
		fake  *fakeproduct.Server
		sched *scheduler.Scheduler
		srv   *services.RunService
		waits *services.WaitService
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
		st = store.NewStore(db)
		Expect(st.Migrate(ctx)).To(Succeed())

		fake, err = fakeproduct.New()
		Expect(err).NotTo(HaveOccurred())
		client, err := productapi.NewClient(fake.URL(),
			productapi.WithCredentials(fakeproduct.DefaultUsername, fakeproduct.DefaultPassword))
		Expect(err).NotTo(HaveOccurred())

		reg := testcases.Register(testcase.NewRegistry())
		Expect(reg.Register(func() testcase.TestCase { return blockingCase{} })).To(Succeed())

		sched = scheduler.NewScheduler(2)
		waits = services.NewWaitService(st)
		srv = services.NewRunService(st, reg, sched, waits, testcase.Env{
			Product: client,
			Waiter:  waiter.New(waiter.WithInterval(5 * time.Millisecond)),
		})
	})

	AfterEach(func() {
		sched.Close()
		fake.Close()
		db.Close()
	})

	// Given a backup testcase and a product that completes backups
	// When a run is started and awaited
	// Then the run should pass and its wait should be recorded
	It("should run a testcase and record its waits", func() {
		// Arrange
		run, err := srv.Start(ctx, testcases.BackupID, map[string]any{"SubclientId": "12"})
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Status).To(Equal(models.RunStatusPending))

		// Act
		final, err := srv.Await(ctx, run.ID)

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(final.Status).To(Equal(models.RunStatusPassed), final.Result)
		Expect(final.StartedAt).NotTo(BeNil())
		Expect(final.FinishedAt).NotTo(BeNil())

		recorded, err := waits.List(ctx, services.WaitListParams{RunID: run.ID})
		Expect(err).NotTo(HaveOccurred())
		Expect(recorded.Total).To(Equal(1))
		Expect(recorded.Waits[0].Outcome).To(Equal(models.WaitOutcomeSucceeded))
		Expect(recorded.Waits[0].Kind).To(Equal(models.WaitKindJob))
	})

	// Given an agent pool with a single worker and a simulated vCenter
	// When a snapshot run fans out over two VMs
	// Then the run should pass instead of waiting on the worker it occupies
	It("should finish a snapshot run on a single worker pool", func() {
		simulator.Test(func(sctx context.Context, c *vim25.Client) {
			// Arrange
			single := scheduler.NewScheduler(1)
			defer single.Close()
			reg := testcases.Register(testcase.NewRegistry())
			agent := services.NewRunService(st, reg, single, waits, testcase.Env{
				VMs:    vmware.NewVMManager(c, "user"),
				Waiter: waiter.New(waiter.WithInterval(5 * time.Millisecond)),
			})
			run, err := agent.Start(sctx, testcases.VMSnapshotID, map[string]any{
				"VMNames":            []any{"DC0_H0_VM0", "DC0_H0_VM1"},
				"SkipPrivilegeCheck": true,
			})
			Expect(err).NotTo(HaveOccurred())

			// Act
			awaitCtx, cancel := context.WithTimeout(sctx, 10*time.Second)
			defer cancel()
			final, err := agent.Await(awaitCtx, run.ID)

			// Assert
			Expect(err).NotTo(HaveOccurred())
			Expect(final.Status).To(Equal(models.RunStatusPassed), final.Result)
		})
	})

	It("should record a failed run with the delay reason", func() {
		// Arrange
		fake.SetBackupScript(fakeproduct.Step{State: "Failed", DelayReason: "No resources available"})

		// Act
		run, err := srv.Start(ctx, testcases.BackupID, map[string]any{"SubclientId": "12"})
		Expect(err).NotTo(HaveOccurred())
		final, err := srv.Await(ctx, run.ID)

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(final.Status).To(Equal(models.RunStatusFailed))
		Expect(final.Result).To(ContainSubstring("No resources available"))
	})

	It("should use stored inputs when none are given", func() {
		// Arrange
		Expect(srv.SaveInputs(ctx, testcases.BackupID, map[string]any{"SubclientId": "12"})).To(Succeed())

		// Act
		run, err := srv.Start(ctx, testcases.BackupID, nil)
		Expect(err).NotTo(HaveOccurred())
		final, err := srv.Await(ctx, run.ID)

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(final.Inputs).To(HaveKeyWithValue("SubclientId", "12"))
		Expect(final.Status).To(Equal(models.RunStatusPassed), final.Result)
	})

	It("should reject unknown testcases", func() {
		_, err := srv.Start(ctx, "nope", nil)
		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())

		err = srv.SaveInputs(ctx, "nope", map[string]any{})
		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
	})

	// Given a run of a testcase in progress
	// When another run of the same testcase is started
	// Then it should be rejected until the first run is canceled
	It("should allow one active run per testcase and cancel it", func() {
		// Arrange
		first, err := srv.Start(ctx, "blocking", nil)
		Expect(err).NotTo(HaveOccurred())

		// Act
		_, err = srv.Start(ctx, "blocking", nil)

		// Assert
		Expect(srvErrors.IsRunInProgressError(err)).To(BeTrue())

		canceled, err := srv.Cancel(ctx, first.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(canceled.Status).To(Equal(models.RunStatusCanceled))

		second, err := srv.Start(ctx, "blocking", nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = srv.Cancel(ctx, second.ID)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should list runs with filters and totals", func() {
		// Arrange
		for i := 0; i < 3; i++ {
			run, err := srv.Start(ctx, testcases.BackupID, map[string]any{"SubclientId": "12"})
			Expect(err).NotTo(HaveOccurred())
			_, err = srv.Await(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
		}

		// Act
		res, err := srv.List(ctx, services.RunListParams{TestcaseIDs: []string{testcases.BackupID}, Limit: 2})

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Runs).To(HaveLen(2))
		Expect(res.Total).To(Equal(3))
	})

	It("should fail runs interrupted by a restart", func() {
		// Arrange
		Expect(st.Runs().Create(ctx, models.Run{ID: "old", TestcaseID: "backup", Name: "b", Status: models.RunStatusRunning})).To(Succeed())

		// Act
		err := srv.RecoverInterrupted(ctx)

		// Assert
		Expect(err).NotTo(HaveOccurred())
		run, err := srv.Get(ctx, "old")
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Status).To(Equal(models.RunStatusFailed))
	})
})
