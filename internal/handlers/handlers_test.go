package handlers_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/backupqa/qa-agent/api/v1"
	"github.com/backupqa/qa-agent/internal/handlers"
	"github.com/backupqa/qa-agent/internal/models"
	"github.com/backupqa/qa-agent/internal/services"
	"github.com/backupqa/qa-agent/internal/store"
	"github.com/backupqa/qa-agent/pkg/scheduler"
	"github.com/backupqa/qa-agent/pkg/testcase"
)

// gatedCase blocks in Run until its gate is closed or the run is canceled.
type gatedCase struct {
	id   string
	gate chan struct{}
}

func (g *gatedCase) ID() string {
	if g.id == "" {
		return "gated"
	}
	return g.id
}
func (g *gatedCase) Name() string             { return "Gated testcase" }
func (g *gatedCase) RequiredInputs() []string { return []string{"Target"} }

func (g *gatedCase) Setup(context.Context, *testcase.Env) error { return nil }

func (g *gatedCase) Run(ctx context.Context, _ *testcase.Env) error {
	select {
	case <-g.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gatedCase) TearDown(context.Context, *testcase.Env) error { return nil }

var _ = Describe("Handlers", func() {
	var (
		db     *sql.DB
		st     *store.Store
		sched  *scheduler.Scheduler
		runSrv *services.RunService
		router *gin.Engine
		gate   chan struct{}
	)

	BeforeEach(func() {
		var err error
		db, err = store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())
		st = store.NewStore(db)
		Expect(st.Migrate(context.Background())).To(Succeed())

		gate = make(chan struct{})
		reg := testcase.NewRegistry().MustRegister(func() testcase.TestCase { return &gatedCase{gate: gate} })

		sched = scheduler.NewScheduler(1)
		waitSrv := services.NewWaitService(st)
		runSrv = services.NewRunService(st, reg, sched, waitSrv, testcase.Env{})

		router = gin.New()
		v1.RegisterHandlers(router.Group("/api/v1"), handlers.New(runSrv, waitSrv))
	})

	AfterEach(func() {
		select {
		case <-gate:
		default:
			close(gate)
		}
		sched.Close()
		db.Close()
	})

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Context("testcases", func() {
		It("should list registered testcases", func() {
			// Act
			w := do(http.MethodGet, "/api/v1/testcases", nil)

			// Assert
			Expect(w.Code).To(Equal(http.StatusOK))
			var infos []v1.TestcaseInfo
			Expect(json.Unmarshal(w.Body.Bytes(), &infos)).To(Succeed())
			Expect(infos).To(HaveLen(1))
			Expect(infos[0].Id).To(Equal("gated"))
			Expect(infos[0].RequiredInputs).To(ConsistOf("Target"))
		})

		It("should store and return inputs", func() {
			// Act
			put := do(http.MethodPut, "/api/v1/testcases/gated/inputs", map[string]any{"Target": "vm-1"})
			get := do(http.MethodGet, "/api/v1/testcases/gated/inputs", nil)

			// Assert
			Expect(put.Code).To(Equal(http.StatusOK))
			Expect(get.Code).To(Equal(http.StatusOK))
			var doc v1.InputsDocument
			Expect(json.Unmarshal(get.Body.Bytes(), &doc)).To(Succeed())
			Expect(doc.Inputs).To(HaveKeyWithValue("Target", "vm-1"))
		})

		It("should return 404 for inputs of unknown testcases or when none are stored", func() {
			Expect(do(http.MethodPut, "/api/v1/testcases/nope/inputs", map[string]any{}).Code).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodGet, "/api/v1/testcases/gated/inputs", nil).Code).To(Equal(http.StatusNotFound))
		})

		It("should reject inputs that are not an object", func() {
			w := do(http.MethodPut, "/api/v1/testcases/gated/inputs", []string{"a"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("runs", func() {
		// Given a registered testcase
		// When a run is started twice
		// Then the first is accepted and the second conflicts
		It("should start a run and reject a concurrent one", func() {
			// Act
			first := do(http.MethodPost, "/api/v1/runs", v1.StartRunRequest{TestcaseId: "gated", Inputs: &map[string]any{"Target": "vm-1"}})
			second := do(http.MethodPost, "/api/v1/runs", v1.StartRunRequest{TestcaseId: "gated", Inputs: &map[string]any{"Target": "vm-1"}})

			// Assert
			Expect(first.Code).To(Equal(http.StatusAccepted))
			Expect(second.Code).To(Equal(http.StatusConflict))

			var run v1.Run
			Expect(json.Unmarshal(first.Body.Bytes(), &run)).To(Succeed())
			Expect(run.Status).To(Equal(v1.RunStatusPending))
			Expect(run.TestcaseId).To(Equal("gated"))
		})

		It("should return 404 for unknown testcases and 400 for bad bodies", func() {
			Expect(do(http.MethodPost, "/api/v1/runs", v1.StartRunRequest{TestcaseId: "nope"}).Code).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodPost, "/api/v1/runs", map[string]any{}).Code).To(Equal(http.StatusBadRequest))
			Expect(do(http.MethodPost, "/api/v1/runs", "not an object").Code).To(Equal(http.StatusBadRequest))
		})

		It("should get a finished run", func() {
			// Arrange
			w := do(http.MethodPost, "/api/v1/runs", v1.StartRunRequest{TestcaseId: "gated", Inputs: &map[string]any{"Target": "vm-1"}})
			var run v1.Run
			Expect(json.Unmarshal(w.Body.Bytes(), &run)).To(Succeed())
			close(gate)
			_, err := runSrv.Await(context.Background(), run.Id)
			Expect(err).NotTo(HaveOccurred())

			// Act
			got := do(http.MethodGet, "/api/v1/runs/"+run.Id, nil)

			// Assert
			Expect(got.Code).To(Equal(http.StatusOK))
			Expect(json.Unmarshal(got.Body.Bytes(), &run)).To(Succeed())
			Expect(run.Status).To(Equal(v1.RunStatusPassed))
			Expect(run.DurationSeconds).NotTo(BeNil())
		})

		It("should fail a run with missing inputs", func() {
			// Arrange
			w := do(http.MethodPost, "/api/v1/runs", v1.StartRunRequest{TestcaseId: "gated"})
			var run v1.Run
			Expect(json.Unmarshal(w.Body.Bytes(), &run)).To(Succeed())

			// Act
			final, err := runSrv.Await(context.Background(), run.Id)

			// Assert
			Expect(err).NotTo(HaveOccurred())
			Expect(final.Status).To(Equal(models.RunStatusFailed))
			Expect(final.Result).To(ContainSubstring("Target"))
		})

		It("should cancel a running run", func() {
			// Arrange
			w := do(http.MethodPost, "/api/v1/runs", v1.StartRunRequest{TestcaseId: "gated", Inputs: &map[string]any{"Target": "vm-1"}})
			var run v1.Run
			Expect(json.Unmarshal(w.Body.Bytes(), &run)).To(Succeed())
			Eventually(func() models.RunStatus {
				r, err := runSrv.Get(context.Background(), run.Id)
				Expect(err).NotTo(HaveOccurred())
				return r.Status
			}, 2*time.Second, 10*time.Millisecond).Should(Equal(models.RunStatusRunning))

			// Act
			del := do(http.MethodDelete, "/api/v1/runs/"+run.Id, nil)

			// Assert
			Expect(del.Code).To(Equal(http.StatusOK))
			Expect(json.Unmarshal(del.Body.Bytes(), &run)).To(Succeed())
			Expect(run.Status).To(Equal(v1.RunStatusCanceled))
		})

		// Given a single worker kept busy by a running testcase
		// When a second testcase is queued behind it and then canceled
		// Then the cancel should answer at once with the queued run canceled
		It("should cancel a queued run without waiting for a worker", func() {
			// Arrange
			reg := testcase.NewRegistry().
				MustRegister(func() testcase.TestCase { return &gatedCase{gate: gate} }).
				MustRegister(func() testcase.TestCase { return &gatedCase{id: "queued", gate: gate} })
			waitSrv := services.NewWaitService(st)
			busySrv := services.NewRunService(st, reg, sched, waitSrv, testcase.Env{})
			busyRouter := gin.New()
			v1.RegisterHandlers(busyRouter.Group("/api/v1"), handlers.New(busySrv, waitSrv))
			send := func(method, path string, body any) *httptest.ResponseRecorder {
				var buf bytes.Buffer
				if body != nil {
					Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
				}
				req := httptest.NewRequest(method, path, &buf)
				req.Header.Set("Content-Type", "application/json")
				w := httptest.NewRecorder()
				busyRouter.ServeHTTP(w, req)
				return w
			}

			w := send(http.MethodPost, "/api/v1/runs", v1.StartRunRequest{TestcaseId: "gated", Inputs: &map[string]any{"Target": "vm-1"}})
			var busy v1.Run
			Expect(json.Unmarshal(w.Body.Bytes(), &busy)).To(Succeed())
			Eventually(func() models.RunStatus {
				r, err := busySrv.Get(context.Background(), busy.Id)
				Expect(err).NotTo(HaveOccurred())
				return r.Status
			}, 2*time.Second, 10*time.Millisecond).Should(Equal(models.RunStatusRunning))

			w = send(http.MethodPost, "/api/v1/runs", v1.StartRunRequest{TestcaseId: "queued", Inputs: &map[string]any{"Target": "vm-2"}})
			Expect(w.Code).To(Equal(http.StatusAccepted))
			var queued v1.Run
			Expect(json.Unmarshal(w.Body.Bytes(), &queued)).To(Succeed())

			// Act
			start := time.Now()
			del := send(http.MethodDelete, "/api/v1/runs/"+queued.Id, nil)

			// Assert
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
			Expect(del.Code).To(Equal(http.StatusOK))
			Expect(json.Unmarshal(del.Body.Bytes(), &queued)).To(Succeed())
			Expect(queued.Status).To(Equal(v1.RunStatusCanceled))

			close(gate)
			final, err := busySrv.Await(context.Background(), busy.Id)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.Status).To(Equal(models.RunStatusPassed))

			Consistently(func() models.RunStatus {
				r, err := busySrv.Get(context.Background(), queued.Id)
				Expect(err).NotTo(HaveOccurred())
				return r.Status
			}, 200*time.Millisecond, 20*time.Millisecond).Should(Equal(models.RunStatusCanceled))
		})

		It("should return 404 for unknown runs", func() {
			Expect(do(http.MethodGet, "/api/v1/runs/missing", nil).Code).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodDelete, "/api/v1/runs/missing", nil).Code).To(Equal(http.StatusNotFound))
		})

		It("should paginate the run history", func() {
			// Arrange
			close(gate)
			for i := 0; i < 3; i++ {
				w := do(http.MethodPost, "/api/v1/runs", v1.StartRunRequest{TestcaseId: "gated", Inputs: &map[string]any{"Target": "vm-1"}})
				Expect(w.Code).To(Equal(http.StatusAccepted))
				var run v1.Run
				Expect(json.Unmarshal(w.Body.Bytes(), &run)).To(Succeed())
				_, err := runSrv.Await(context.Background(), run.Id)
				Expect(err).NotTo(HaveOccurred())
			}

			// Act
			w := do(http.MethodGet, "/api/v1/runs?testcaseId=gated&status=passed&page=2&pageSize=2", nil)

			// Assert
			Expect(w.Code).To(Equal(http.StatusOK))
			var resp v1.RunListResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Page).To(Equal(2))
			Expect(resp.PageCount).To(Equal(2))
			Expect(resp.Total).To(Equal(3))
			Expect(resp.Runs).To(HaveLen(1))
		})

		It("should reject invalid filters", func() {
			Expect(do(http.MethodGet, "/api/v1/runs?status=sleeping", nil).Code).To(Equal(http.StatusBadRequest))
			Expect(do(http.MethodGet, "/api/v1/runs?page=first", nil).Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("waits", func() {
		It("should list recorded waits", func() {
			// Arrange
			Expect(st.Waits().Create(context.Background(), models.WaitRecord{
				ID: "w1", RunID: "r1", JobID: "1001", Kind: models.WaitKindJob,
				FinalState: "completed", Polls: 3, Elapsed: 2 * time.Second, Outcome: models.WaitOutcomeSucceeded,
			})).To(Succeed())
			Expect(st.Waits().Create(context.Background(), models.WaitRecord{
				ID: "w2", RunID: "r1", JobID: "1002", Kind: models.WaitKindJob,
				FinalState: "failed", Polls: 1, Outcome: models.WaitOutcomeFailed, DelayReason: "No resources",
			})).To(Succeed())

			// Act
			w := do(http.MethodGet, "/api/v1/waits?outcome=failed", nil)

			// Assert
			Expect(w.Code).To(Equal(http.StatusOK))
			var resp v1.WaitListResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Total).To(Equal(1))
			Expect(resp.Waits[0].JobId).To(Equal("1002"))
			Expect(*resp.Waits[0].DelayReason).To(Equal("No resources"))
		})

		It("should reject unknown outcomes", func() {
			Expect(do(http.MethodGet, "/api/v1/waits?outcome=maybe", nil).Code).To(Equal(http.StatusBadRequest))
		})
	})
})
