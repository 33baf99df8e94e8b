package testcase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/backupqa/qa-agent/pkg/productapi"
	"github.com/backupqa/qa-agent/pkg/vmware"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

type Status string

const (
	StatusPassed Status = "PASSED"
	StatusFailed Status = "FAILED"
)

// TestCase is a scripted QA procedure.
type TestCase interface {
	ID() string
	Name() string
	// RequiredInputs are the tcinputs keys checked before Setup.
	RequiredInputs() []string
	Setup(ctx context.Context, env *Env) error
	Run(ctx context.Context, env *Env) error
	TearDown(ctx context.Context, env *Env) error
}

// Env carries what a testcase may touch while it runs. Testcases that fan out
// bring their own pool; the agent's pool is busy running the testcase itself.
type Env struct {
	Inputs  Inputs
	Product *productapi.Client
	VMs     *vmware.VMManager
	Waiter  *waiter.JobWaiter
	Log     *zap.SugaredLogger
}

// Result is the outcome of one testcase execution.
type Result struct {
	TestcaseID   string
	Name         string
	Status       Status
	ResultString string
	Err          error
	Started      time.Time
	Finished     time.Time
}

func (r Result) Passed() bool {
	return r.Status == StatusPassed
}

func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
