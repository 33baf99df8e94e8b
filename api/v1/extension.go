package v1

import (
	"github.com/backupqa/qa-agent/internal/models"
	"github.com/backupqa/qa-agent/internal/util"
	"github.com/backupqa/qa-agent/pkg/testcase"
)

func NewTestcaseInfo(info testcase.Info) TestcaseInfo {
	required := info.RequiredInputs
	if required == nil {
		required = []string{}
	}
	return TestcaseInfo{Id: info.ID, Name: info.Name, RequiredInputs: required}
}

// NewRunFromModel converts a models.Run to an API Run.
func NewRunFromModel(run models.Run) Run {
	apiRun := Run{
		Id:         run.ID,
		TestcaseId: run.TestcaseID,
		Name:       run.Name,
		Status:     RunStatus(run.Status),
		Inputs:     run.Inputs,
		Result:     util.PtrOrNil(run.Result),
		CreatedAt:  run.CreatedAt,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if apiRun.Inputs == nil {
		apiRun.Inputs = map[string]interface{}{}
	}
	if run.StartedAt != nil && run.FinishedAt != nil {
		apiRun.DurationSeconds = util.Ptr(util.Seconds(run.Duration()))
	}
	return apiRun
}

// NewWaitFromModel converts a models.WaitRecord to an API Wait.
func NewWaitFromModel(w models.WaitRecord) Wait {
	return Wait{
		Id:             w.ID,
		RunId:          util.PtrOrNil(w.RunID),
		JobId:          w.JobID,
		Kind:           string(w.Kind),
		FinalState:     w.FinalState,
		Phase:          util.PtrOrNil(w.Phase),
		DelayReason:    util.PtrOrNil(w.DelayReason),
		Polls:          w.Polls,
		ElapsedSeconds: util.Seconds(w.Elapsed),
		Outcome:        WaitOutcome(w.Outcome),
		Error:          util.PtrOrNil(w.Error),
		CreatedAt:      w.CreatedAt,
	}
}

func NewInputsDocument(in models.StoredInputs) InputsDocument {
	doc := InputsDocument{TestcaseId: in.TestcaseID, Inputs: in.Inputs}
	if doc.Inputs == nil {
		doc.Inputs = map[string]interface{}{}
	}
	if !in.UpdatedAt.IsZero() {
		doc.UpdatedAt = &in.UpdatedAt
	}
	return doc
}
