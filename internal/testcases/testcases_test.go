package testcases_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vmware/govmomi/simulator"
	"github.com/vmware/govmomi/vim25"

	"github.com/backupqa/qa-agent/internal/testcases"
	"github.com/backupqa/qa-agent/pkg/productapi"
	"github.com/backupqa/qa-agent/pkg/testcase"
	"github.com/backupqa/qa-agent/pkg/vmware"
	"github.com/backupqa/qa-agent/pkg/waiter"
	"github.com/backupqa/qa-agent/test/fakeproduct"
)

var _ = Describe("Built-in testcases", func() {
	var (
		ctx    context.Context
		fake   *fakeproduct.Server
		reg    *testcase.Registry
		runner *testcase.Runner
		env    *testcase.Env
	)

	run := func(id string, inputs testcase.Inputs) testcase.Result {
		tc, err := reg.New(id)
		Expect(err).NotTo(HaveOccurred())
		env.Inputs = inputs
		return runner.Run(ctx, tc, env)
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		fake, err = fakeproduct.New()
		Expect(err).NotTo(HaveOccurred())
		client, err := productapi.NewClient(fake.URL(),
			productapi.WithCredentials(fakeproduct.DefaultUsername, fakeproduct.DefaultPassword))
		Expect(err).NotTo(HaveOccurred())

		reg = testcases.Register(testcase.NewRegistry())
		runner = testcase.NewRunner()
		env = &testcase.Env{
			Product: client,
			Waiter:  waiter.New(waiter.WithInterval(5 * time.Millisecond)),
		}
	})

	AfterEach(func() {
		fake.Close()
	})

	It("should register every built-in testcase", func() {
		ids := []string{}
		for _, info := range reg.List() {
			ids = append(ids, info.ID)
		}
		Expect(ids).To(ConsistOf(
			testcases.BackupID,
			testcases.RestoreID,
			testcases.KillActiveJobsID,
			testcases.LaptopIdleID,
			testcases.VMSnapshotID,
		))
	})

	Context("backup", func() {
		It("should pass when the backup completes", func() {
			res := run(testcases.BackupID, testcase.Inputs{"SubclientId": "12"})
			Expect(res.Status).To(Equal(testcase.StatusPassed), res.ResultString)
		})

		// Given a backup that fails with a delay reason
		// When the backup testcase runs
		// Then it should fail and report the delay reason
		It("should fail with the delay reason", func() {
			// Arrange
			fake.SetBackupScript(
				fakeproduct.Step{State: "Running"},
				fakeproduct.Step{State: "Failed", DelayReason: "Index cache is full"},
			)

			// Act
			res := run(testcases.BackupID, testcase.Inputs{"SubclientId": "12"})

			// Assert
			Expect(res.Status).To(Equal(testcase.StatusFailed))
			Expect(res.ResultString).To(ContainSubstring("Index cache is full"))
		})

		It("should fail without a product client", func() {
			// Arrange
			env.Product = nil

			// Act
			res := run(testcases.BackupID, testcase.Inputs{"SubclientId": "12"})

			// Assert
			Expect(res.Status).To(Equal(testcase.StatusFailed))
			Expect(res.ResultString).To(ContainSubstring("product client is not configured"))
		})
	})

	Context("restore", func() {
		It("should restore in place when no destination is given", func() {
			// Act
			res := run(testcases.RestoreID, testcase.Inputs{"SubclientId": "12", "Paths": []any{"/data"}})

			// Assert
			Expect(res.Status).To(Equal(testcase.StatusPassed), res.ResultString)
			Expect(fake.Restores()).To(HaveLen(1))
			Expect(fake.Restores()[0].InPlace).To(BeTrue())
		})

		It("should require paths", func() {
			res := run(testcases.RestoreID, testcase.Inputs{"SubclientId": "12"})
			Expect(res.Status).To(Equal(testcase.StatusFailed))
			Expect(res.ResultString).To(ContainSubstring("Paths"))
		})
	})

	Context("kill-active-jobs", func() {
		// Given a client with two running backups
		// When the kill-active-jobs testcase runs
		// Then both jobs should be killed and the testcase should pass
		It("should kill every active job", func() {
			// Arrange
			a := fake.AddJob("laptop1", fakeproduct.Step{State: "Running"})
			b := fake.AddJob("laptop1", fakeproduct.Step{State: "Waiting"})

			// Act
			res := run(testcases.KillActiveJobsID, testcase.Inputs{"ClientName": "laptop1", "IntervalSeconds": 1, "Attempts": 2})

			// Assert
			Expect(res.Status).To(Equal(testcase.StatusPassed), res.ResultString)
			Expect(fake.JobState(a)).To(Equal("Killed"))
			Expect(fake.JobState(b)).To(Equal("Killed"))
		})

		It("should fail when a job survives", func() {
			// Arrange
			fake.AddUncontrollableJob("laptop1", fakeproduct.Step{State: "Running"})

			// Act
			res := run(testcases.KillActiveJobsID, testcase.Inputs{"ClientName": "laptop1", "IntervalSeconds": 1, "Attempts": 1})

			// Assert
			Expect(res.Status).To(Equal(testcase.StatusFailed))
			Expect(res.ResultString).To(ContainSubstring("still active on laptop1"))
		})
	})

	Context("laptop-idle", func() {
		const key = productapi.RunStatusKeyPrefix + "12"

		It("should pass when the laptop is idle", func() {
			// Arrange
			fake.SetRegistry("laptop1", key, productapi.RunStatusValue, "0")

			// Act
			res := run(testcases.LaptopIdleID, testcase.Inputs{"ClientName": "laptop1", "SubclientId": "12"})

			// Assert
			Expect(res.Status).To(Equal(testcase.StatusPassed), res.ResultString)
		})

		It("should fail when the last backup failed", func() {
			// Arrange
			fake.SetRegistry("laptop1", key, productapi.RunStatusValue, "6")

			// Act
			res := run(testcases.LaptopIdleID, testcase.Inputs{"ClientName": "laptop1", "SubclientId": "12"})

			// Assert
			Expect(res.Status).To(Equal(testcase.StatusFailed))
			Expect(res.ResultString).To(ContainSubstring("last backup job failed"))
		})
	})

	Context("vm-snapshot", func() {
		It("should fail without vSphere", func() {
			res := run(testcases.VMSnapshotID, testcase.Inputs{"VMNames": "vm1"})
			Expect(res.Status).To(Equal(testcase.StatusFailed))
			Expect(res.ResultString).To(ContainSubstring("vSphere is not configured"))
		})

		// Given a simulated vCenter with two VMs
		// When the snapshot cycle runs with a backup in between
		// Then both VMs should be processed and the testcase should pass
		It("should snapshot every VM in parallel", func() {
			simulator.Test(func(sctx context.Context, c *vim25.Client) {
				// Arrange
				env.VMs = vmware.NewVMManager(c, "user")
				ctx = sctx

				// Act
				res := run(testcases.VMSnapshotID, testcase.Inputs{
					"VMNames":            []any{"DC0_H0_VM0", "DC0_H0_VM1"},
					"SubclientId":        "12",
					"SkipPrivilegeCheck": true,
				})

				// Assert
				Expect(res.Status).To(Equal(testcase.StatusPassed), res.ResultString)
			})
		})

		// Given a simulated vCenter
		// When the snapshot cycle gets an empty list of VMs
		// Then setup should reject it instead of passing without work
		It("should fail with an empty list of VMs", func() {
			simulator.Test(func(sctx context.Context, c *vim25.Client) {
				// Arrange
				env.VMs = vmware.NewVMManager(c, "user")
				ctx = sctx

				// Act
				res := run(testcases.VMSnapshotID, testcase.Inputs{"VMNames": []any{}})

				// Assert
				Expect(res.Status).To(Equal(testcase.StatusFailed))
				Expect(res.ResultString).To(ContainSubstring("no VMs to snapshot"))
			})
		})

		It("should report the machines that failed", func() {
			simulator.Test(func(sctx context.Context, c *vim25.Client) {
				// Arrange
				env.VMs = vmware.NewVMManager(c, "user")
				ctx = sctx

				// Act
				res := run(testcases.VMSnapshotID, testcase.Inputs{
					"VMNames":            "DC0_H0_VM0, no-such-vm",
					"SkipPrivilegeCheck": true,
				})

				// Assert
				Expect(res.Status).To(Equal(testcase.StatusFailed))
				Expect(res.ResultString).To(ContainSubstring("1 of the machines failed"))
				Expect(res.ResultString).To(ContainSubstring("no-such-vm"))
			})
		})
	})
})
