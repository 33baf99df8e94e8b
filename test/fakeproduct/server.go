// Package fakeproduct is an in-process stand-in for the backup product REST API.
// It issues RS256 tokens on login, verifies them on every call and serves
// jobs whose states follow a script.
package fakeproduct

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultUsername = "admin"
	DefaultPassword = "secret"
)

// Step is one scripted observation of a job.
type Step struct {
	State       string
	Phase       string
	DelayReason string
	Percent     int
}

type job struct {
	id         int64
	clientName string
	jobType    string
	steps      []Step
	pos        int
	override   *Step
	// Uncontrollable jobs refuse kill, pause and resume.
	uncontrollable bool
}

func (j *job) current() Step {
	if j.override != nil {
		return *j.override
	}
	s := j.steps[j.pos]
	if j.pos < len(j.steps)-1 {
		j.pos++
	}
	return s
}

type Server struct {
	srv        *httptest.Server
	privateKey *rsa.PrivateKey
	kid        string

	Username string
	Password string
	TokenTTL time.Duration

	mu            sync.Mutex
	jobs          map[int64]*job
	nextID        int64
	registry      map[string]string
	backupScript  []Step
	restoreScript []Step
	failures      int
	logins        int
	restores      []RestoreCall
}

// RestoreCall records the body of a restore request.
type RestoreCall struct {
	SubclientID string
	Paths       []string
	Destination string
	InPlace     bool
}

// New starts a fake product listening on a random local port.
func New() (*Server, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}

	s := &Server{
		privateKey:    key,
		kid:           uuid.NewString(),
		Username:      DefaultUsername,
		Password:      DefaultPassword,
		TokenTTL:      time.Hour,
		jobs:          make(map[int64]*job),
		nextID:        1000,
		registry:      make(map[string]string),
		backupScript:  []Step{{State: "Running", Phase: "Scan"}, {State: "Running", Phase: "Backup", Percent: 50}, {State: "Completed", Percent: 100}},
		restoreScript: []Step{{State: "Running", Phase: "Restore"}, {State: "Completed", Percent: 100}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /Login", s.handleLogin)
	mux.HandleFunc("GET /Job", s.authorized(s.handleListJobs))
	mux.HandleFunc("GET /Job/{jobId}", s.authorized(s.handleGetJob))
	mux.HandleFunc("POST /Job/{jobId}/action/{action}", s.authorized(s.handleJobAction))
	mux.HandleFunc("POST /Subclient/{subclientId}/action/backup", s.authorized(s.handleBackup))
	mux.HandleFunc("POST /Subclient/{subclientId}/action/restore", s.authorized(s.handleRestore))
	mux.HandleFunc("GET /Client/{clientName}/Registry", s.authorized(s.handleRegistry))

	s.srv = httptest.NewServer(s.failing(mux))
	return s, nil
}

func (s *Server) URL() string { return s.srv.URL }

func (s *Server) Close() { s.srv.Close() }

// AddJob registers a job that walks through steps, repeating the last one.
func (s *Server) AddJob(clientName string, steps ...Step) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strconv.FormatInt(s.addJobLocked(clientName, "Backup", steps), 10)
}

// AddUncontrollableJob registers a job that rejects control actions.
func (s *Server) AddUncontrollableJob(clientName string, steps ...Step) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.addJobLocked(clientName, "Backup", steps)
	s.jobs[id].uncontrollable = true
	return strconv.FormatInt(id, 10)
}

func (s *Server) addJobLocked(clientName, jobType string, steps []Step) int64 {
	if len(steps) == 0 {
		steps = []Step{{State: "Running"}}
	}
	s.nextID++
	s.jobs[s.nextID] = &job{id: s.nextID, clientName: clientName, jobType: jobType, steps: append([]Step(nil), steps...)}
	return s.nextID
}

// SetBackupScript sets the steps followed by jobs created by backup requests.
func (s *Server) SetBackupScript(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backupScript = steps
}

func (s *Server) SetRestoreScript(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreScript = steps
}

func (s *Server) SetRegistry(clientName, key, value, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[registryKey(clientName, key, value)] = data
}

// FailNext makes the next n requests answer 503.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
}

func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

func (s *Server) Restores() []RestoreCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RestoreCall(nil), s.restores...)
}

// JobState returns the state a job would report next without advancing it.
func (s *Server) JobState(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _ := strconv.ParseInt(id, 10, 64)
	j, ok := s.jobs[n]
	if !ok {
		return ""
	}
	if j.override != nil {
		return j.override.State
	}
	return j.steps[j.pos].State
}

// GenerateToken signs a token for username valid for ttl.
func (s *Server) GenerateToken(username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
		Issuer:    s.srv.URL,
		Subject:   username,
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	return token.SignedString(s.privateKey)
}

func (s *Server) failing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		fail := s.failures > 0
		if fail {
			s.failures--
		}
		s.mu.Unlock()
		if fail {
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			return &s.privateKey.PublicKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username != s.Username || req.Password != s.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.GenerateToken(req.Username, s.TokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	s.logins++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *job {
	id, err := strconv.ParseInt(r.PathValue("jobId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return nil
	}
	j, ok := s.jobs[id]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %d not found", id))
		return nil
	}
	return j
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.lookup(w, r)
	if j == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobSummary": summary(j, j.current())})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clientName := r.URL.Query().Get("clientName")
	jobs := []map[string]any{}
	for _, j := range s.jobs {
		if clientName != "" && j.clientName != clientName {
			continue
		}
		step := j.steps[j.pos]
		if j.override != nil {
			step = *j.override
		}
		if isTerminal(step.State) {
			continue
		}
		jobs = append(jobs, map[string]any{"jobSummary": summary(j, step)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleJobAction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.lookup(w, r)
	if j == nil {
		return
	}
	if j.uncontrollable {
		writeError(w, http.StatusBadRequest, "Job cannot be suspended/killed/resumed.")
		return
	}

	var state string
	switch r.PathValue("action") {
	case "kill":
		state = "Killed"
	case "pause":
		state = "Suspended"
	case "resume":
		state = "Running"
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}
	j.override = &Step{State: state}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.addJobLocked("", "Backup", s.backupScript)
	writeJSON(w, http.StatusOK, map[string]any{"jobIds": []string{strconv.FormatInt(id, 10)}})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paths       []string `json:"paths"`
		Destination string   `json:"destination"`
		InPlace     bool     `json:"inPlace"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.restores = append(s.restores, RestoreCall{
		SubclientID: r.PathValue("subclientId"),
		Paths:       req.Paths,
		Destination: req.Destination,
		InPlace:     req.InPlace,
	})
	id := s.addJobLocked("", "Restore", s.restoreScript)
	writeJSON(w, http.StatusOK, map[string]any{"jobIds": []string{strconv.FormatInt(id, 10)}})
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := r.URL.Query()
	v, ok := s.registry[registryKey(r.PathValue("clientName"), q.Get("key"), q.Get("value"))]
	if !ok {
		writeError(w, http.StatusNotFound, "registry value not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"value": v})
}

func summary(j *job, step Step) map[string]any {
	return map[string]any{
		"jobId":            j.id,
		"status":           step.State,
		"currentPhaseName": step.Phase,
		"pendingReason":    step.DelayReason,
		"percentComplete":  step.Percent,
		"clientName":       j.clientName,
		"jobType":          j.jobType,
	}
}

func isTerminal(state string) bool {
	switch strings.ToLower(state) {
	case "completed", "failed", "killed", "failed to start", "completed w/ one or more errors":
		return true
	}
	return false
}

func registryKey(clientName, key, value string) string {
	return clientName + "|" + key + "|" + value
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"errorCode": code, "errorMessage": msg})
}
