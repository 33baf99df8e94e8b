package productapi_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	serviceErrs "github.com/backupqa/qa-agent/pkg/errors"
	"github.com/backupqa/qa-agent/pkg/productapi"
	"github.com/backupqa/qa-agent/pkg/waiter"
	"github.com/backupqa/qa-agent/test/fakeproduct"
)

var _ = Describe("RunStatusHandle", func() {
	var (
		ctx    context.Context
		fake   *fakeproduct.Server
		client *productapi.Client
		w      *waiter.JobWaiter
	)

	const key = productapi.RunStatusKeyPrefix + "12"

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		fake, err = fakeproduct.New()
		Expect(err).NotTo(HaveOccurred())
		client, err = productapi.NewClient(fake.URL(),
			productapi.WithCredentials(fakeproduct.DefaultUsername, fakeproduct.DefaultPassword))
		Expect(err).NotTo(HaveOccurred())

		w = waiter.New(waiter.WithInterval(5*time.Millisecond), waiter.WithTimeout(200*time.Millisecond))
	})

	AfterEach(func() {
		fake.Close()
	})

	It("should read a registry value", func() {
		// Arrange
		fake.SetRegistry("laptop1", key, productapi.RunStatusValue, "3")

		// Act
		v, err := client.RegistryValue(ctx, "laptop1", key, productapi.RunStatusValue)

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("3"))
	})

	It("should return not found for a missing registry value", func() {
		_, err := client.RegistryValue(ctx, "laptop1", key, "Missing")
		Expect(serviceErrs.IsResourceNotFoundError(err)).To(BeTrue())
	})

	// Given a laptop reporting RunStatus 0
	// When waiting for completion
	// Then the wait should succeed
	It("should treat status 0 as completed", func() {
		// Arrange
		fake.SetRegistry("laptop1", key, productapi.RunStatusValue, "0")
		h := productapi.NewRunStatusHandle(client, "laptop1", "12")

		// Act
		res, err := w.WaitForCompletion(ctx, h)

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status.State).To(Equal(waiter.StateCompleted))
	})

	It("should fail on status 6", func() {
		// Arrange
		fake.SetRegistry("laptop1", key, productapi.RunStatusValue, "6")
		h := productapi.NewRunStatusHandle(client, "laptop1", "12")

		// Act
		_, err := w.WaitForCompletion(ctx, h)

		// Assert
		var failed *waiter.JobFailedError
		Expect(errors.As(err, &failed)).To(BeTrue())
		Expect(failed.Error()).To(ContainSubstring("last backup job failed on client laptop1"))
	})

	// Given a laptop that never wrote RunStatus
	// When waiting with a short timeout
	// Then the handle should look running and the wait should time out
	It("should treat a missing value as running", func() {
		// Arrange
		h := productapi.NewRunStatusHandle(client, "laptop1", "12")

		// Act
		_, err := w.WaitForCompletion(ctx, h)

		// Assert
		Expect(waiter.IsTimeout(err)).To(BeTrue())
	})

	It("should stop on an unparsable value", func() {
		// Arrange
		fake.SetRegistry("laptop1", key, productapi.RunStatusValue, "busy")
		h := productapi.NewRunStatusHandle(client, "laptop1", "12")

		// Act
		_, err := w.WaitForCompletion(ctx, h)

		// Assert
		Expect(err).To(HaveOccurred())
		Expect(waiter.IsTimeout(err)).To(BeFalse())
	})

	It("should not support control actions", func() {
		h := productapi.NewRunStatusHandle(client, "laptop1", "12")
		Expect(h.Kill(ctx)).To(MatchError(waiter.ErrUnsupported))
		Expect(h.Pause(ctx)).To(MatchError(waiter.ErrUnsupported))
		Expect(h.Resume(ctx)).To(MatchError(waiter.ErrUnsupported))
	})
})
