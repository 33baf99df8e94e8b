// Package services implements the business logic between the HTTP handlers and the store.
//
// # Service Dependency Graph
//
//	Handlers (HTTP endpoints)
//	    │
//	    ▼
//	Services Layer
//	    ├── RunService ──► Store, Scheduler, Testcase Registry, WaitService
//	    └── WaitService ─► Store
//
// # RunService
//
// RunService queues testcase runs on the shared scheduler and records their
// lifecycle in the runs table:
//
//	pending ──► running ──► passed
//	   │           ├──────► failed
//	   │           └──────► canceled
//	   └──────────────────► canceled (scheduler closed before the run started)
//
// Only one run of a given testcase may be active. Starting a second one returns
// a RunInProgressError until the first run finished or was canceled.
//
// Inputs given to Start take precedence. When none are given the inputs saved
// with SaveInputs are used.
//
// Runs left in pending or running by a previous process are failed by
// RecoverInterrupted, which the serve command calls before accepting requests.
//
// # WaitService
//
// WaitService wraps the waiter handed to testcases with an observer, so every
// wait a run performs is stored with its final state, the number of polls, the
// elapsed time and an outcome (succeeded, failed, timed_out, canceled).
package services
