// Package scheduler implements the worker pool that runs testcases and their parallel steps.
//
// A Scheduler owns a fixed number of workers. Work submitted with AddWork or
// AddNamedWork is queued and handed to the next idle worker. Every submission
// returns a Future right away.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                           Scheduler                                 │
//	│                                                                     │
//	│  ┌──────────────┐      ┌──────────────┐      ┌──────────────┐       │
//	│  │   Worker 1   │      │   Worker 2   │      │   Worker N   │       │
//	│  └──────────────┘      └──────────────┘      └──────────────┘       │
//	│         ▲                     ▲                     ▲               │
//	│         └─────────────────────┼─────────────────────┘               │
//	│                        ┌──────┴──────┐                              │
//	│                        │  dispatch() │                              │
//	│                        └──────┬──────┘                              │
//	│  ┌────────────────────────────┴────────────────────────────┐        │
//	│  │                      Work Queue (FIFO)                  │        │
//	│  └─────────────────────────────────────────────────────────┘        │
//	│                               ▲                                     │
//	│                  AddNamedWork(name, fn)                             │
//	└─────────────────────────────────────────────────────────────────────┘
//
// The RunService submits one work item per testcase run. Testcases that fan
// out over several machines go through testcase.FanOut, which submits one
// work item per machine to a private scheduler sized to the machine count.
// Fanning out on the scheduler that runs the testcase would wait on the worker
// the testcase itself holds.
//
// # Event Loop
//
//	for {
//	    select {
//	    case w := <-s.work:       // new work
//	        s.workQueue.Push(w)
//	        s.dispatch()
//	    case <-s.done:            // a worker finished
//	        s.workers.Push(s.newWorker())
//	        s.dispatch()
//	    case <-s.close:           // shutdown
//	        // queued requests get context.Canceled
//	        s.wg.Wait()
//	        return
//	    }
//	}
//
// # Futures
//
//   - C() receives exactly one Result when the work completes
//   - Stop() cancels the context of that work only
//   - Wait(ctx) blocks for the Result and stops the work if ctx ends first
//
// Usage:
//
//	future := sched.AddNamedWork("run "+id, func(ctx context.Context) (any, error) {
//	    return tc.Run(ctx, env, inputs)
//	})
//	result, err := future.Wait(ctx)
//
// # Panics
//
// A panicking work function is recovered. Its future receives an error
// result and the worker returns to the pool.
//
// # Shutdown
//
// Close cancels the main context, so every running work sees ctx.Done(),
// answers queued requests with context.Canceled and waits for in-flight
// workers. Close is idempotent. AddWork after Close answers context.Canceled
// immediately. InFlight reports how many work functions are executing.
package scheduler
