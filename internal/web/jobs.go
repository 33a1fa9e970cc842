package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusEmpty   = "empty" // input had no order rows
	StatusFailed  = "failed"
)

// Job is one transform run started through the upload endpoint.
type Job struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// outputPath is where the finished import landed. Served through
	// the result endpoint, never exposed to clients.
	outputPath string
}

// jobStore tracks jobs in memory for the life of the process.
type jobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*Job)}
}

// Create registers a new running job and returns its snapshot.
func (js *jobStore) Create(filename string) Job {
	js.mu.Lock()
	defer js.mu.Unlock()

	j := &Job{
		ID:        uuid.NewString(),
		Filename:  filename,
		Status:    StatusRunning,
		CreatedAt: time.Now(),
	}
	js.jobs[j.ID] = j
	return *j
}

// Get returns a snapshot of the job.
func (js *jobStore) Get(id string) (Job, bool) {
	js.mu.Lock()
	defer js.mu.Unlock()
	j, ok := js.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Finish records the job's terminal state.
func (js *jobStore) Finish(id, status, outputPath, errMsg string) {
	js.mu.Lock()
	defer js.mu.Unlock()
	j, ok := js.jobs[id]
	if !ok {
		return
	}
	j.Status = status
	j.outputPath = outputPath
	j.Error = errMsg
	j.FinishedAt = time.Now()
}
