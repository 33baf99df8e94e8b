package testcase_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	serviceErrs "github.com/backupqa/qa-agent/pkg/errors"
	"github.com/backupqa/qa-agent/pkg/testcase"
)

type scriptedCase struct {
	setupErr    error
	runErr      error
	tearDownErr error
	panicInRun  bool
	required    []string
	calls       []string
}

func (s *scriptedCase) ID() string               { return "58327" }
func (s *scriptedCase) Name() string             { return "scripted" }
func (s *scriptedCase) RequiredInputs() []string { return s.required }

func (s *scriptedCase) Setup(context.Context, *testcase.Env) error {
	s.calls = append(s.calls, "setup")
	return s.setupErr
}

func (s *scriptedCase) Run(context.Context, *testcase.Env) error {
	s.calls = append(s.calls, "run")
	if s.panicInRun {
		panic("boom")
	}
	return s.runErr
}

func (s *scriptedCase) TearDown(context.Context, *testcase.Env) error {
	s.calls = append(s.calls, "teardown")
	return s.tearDownErr
}

var _ = Describe("Runner", func() {
	var (
		ctx    context.Context
		runner *testcase.Runner
	)

	BeforeEach(func() {
		ctx = context.Background()
		runner = testcase.NewRunner()
	})

	It("should pass when every step succeeds", func() {
		// Arrange
		tc := &scriptedCase{}

		// Act
		res := runner.Run(ctx, tc, &testcase.Env{})

		// Assert
		Expect(res.Status).To(Equal(testcase.StatusPassed))
		Expect(res.ResultString).To(BeEmpty())
		Expect(res.TestcaseID).To(Equal("58327"))
		Expect(tc.calls).To(Equal([]string{"setup", "run", "teardown"}))
		Expect(res.Finished).NotTo(BeTemporally("<", res.Started))
	})

	// Given a testcase whose run fails
	// When it is executed
	// Then it should be FAILED with the error text and tear down should still run
	It("should tear down after a failed run", func() {
		// Arrange
		tc := &scriptedCase{runErr: errors.New("job 12 failed: media agent offline")}

		// Act
		res := runner.Run(ctx, tc, &testcase.Env{})

		// Assert
		Expect(res.Status).To(Equal(testcase.StatusFailed))
		Expect(res.ResultString).To(ContainSubstring("media agent offline"))
		Expect(tc.calls).To(Equal([]string{"setup", "run", "teardown"}))
	})

	It("should skip run but tear down after a failed setup", func() {
		// Arrange
		tc := &scriptedCase{setupErr: errors.New("no client")}

		// Act
		res := runner.Run(ctx, tc, &testcase.Env{})

		// Assert
		Expect(res.Status).To(Equal(testcase.StatusFailed))
		Expect(res.ResultString).To(HavePrefix("setup: no client"))
		Expect(tc.calls).To(Equal([]string{"setup", "teardown"}))
	})

	It("should turn a panic into a failure", func() {
		// Arrange
		tc := &scriptedCase{panicInRun: true}

		// Act
		res := runner.Run(ctx, tc, &testcase.Env{})

		// Assert
		Expect(res.Status).To(Equal(testcase.StatusFailed))
		Expect(res.ResultString).To(ContainSubstring("run panicked: boom"))
		Expect(tc.calls).To(Equal([]string{"setup", "run", "teardown"}))
	})

	// Given a testcase that passes but fails to clean up
	// When it is executed
	// Then it should stay PASSED and report the cleanup error
	It("should not fail a passed run on tear down errors", func() {
		// Arrange
		tc := &scriptedCase{tearDownErr: errors.New("snapshot still present")}

		// Act
		res := runner.Run(ctx, tc, &testcase.Env{})

		// Assert
		Expect(res.Status).To(Equal(testcase.StatusPassed))
		Expect(res.ResultString).To(ContainSubstring("snapshot still present"))
	})

	It("should keep the run error first when tear down also fails", func() {
		// Arrange
		tc := &scriptedCase{runErr: errors.New("run broke"), tearDownErr: errors.New("cleanup broke")}

		// Act
		res := runner.Run(ctx, tc, &testcase.Env{})

		// Assert
		Expect(res.ResultString).To(Equal("run: run broke; tear down: cleanup broke"))
	})

	It("should fail without setup when required inputs are missing", func() {
		// Arrange
		tc := &scriptedCase{required: []string{"ClientName", "SubclientId"}}
		env := &testcase.Env{Inputs: testcase.Inputs{"ClientName": "laptop1"}}

		// Act
		res := runner.Run(ctx, tc, env)

		// Assert
		Expect(res.Status).To(Equal(testcase.StatusFailed))
		Expect(serviceErrs.IsInvalidInputsError(res.Err)).To(BeTrue())
		Expect(res.ResultString).To(ContainSubstring("SubclientId"))
		Expect(tc.calls).To(BeEmpty())
	})

	It("should still tear down when the context is canceled", func() {
		// Arrange
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		tc := &scriptedCase{runErr: context.Canceled}

		// Act
		res := runner.Run(cctx, tc, &testcase.Env{})

		// Assert
		Expect(res.Status).To(Equal(testcase.StatusFailed))
		Expect(tc.calls).To(ContainElement("teardown"))
	})
})
