package store

// Run queries
const (
	queryInsertRun = `
		INSERT INTO runs (id, testcase_id, name, status, result, inputs, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateRun = `
		UPDATE runs SET status = ?, result = ?, started_at = ?, finished_at = ?
		WHERE id = ?`

	queryFailUnfinishedRuns = `
		UPDATE runs SET status = 'failed', result = ?, finished_at = now()
		WHERE status IN ('pending', 'running')`
)

// Testcase inputs queries
const (
	queryGetInputs = `
		SELECT data, updated_at
		FROM testcase_inputs WHERE testcase_id = ?`

	queryUpsertInputs = `
		INSERT INTO testcase_inputs (testcase_id, data, updated_at)
		VALUES (?, ?, now())
		ON CONFLICT (testcase_id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = now()`

	queryDeleteInputs = `DELETE FROM testcase_inputs WHERE testcase_id = ?`
)

// Wait queries
const (
	queryInsertWait = `
		INSERT INTO waits (id, run_id, job_id, kind, final_state, phase, delay_reason, polls, elapsed_ms, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)
