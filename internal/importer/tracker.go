package importer

import (
	"sync"
	"time"

	"github.com/01moynul/seller-console/internal/models"
)

// Job is the progress of one asynchronous import.
type Job struct {
	UploadID  string               `json:"uploadId"`
	SellerID  string               `json:"sellerId"`
	Status    string               `json:"status"`
	Progress  float64              `json:"progress"`
	Error     string               `json:"error,omitempty"`
	Record    *models.UploadRecord `json:"record,omitempty"`
	StartedAt time.Time            `json:"startedAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Tracker keeps import jobs in memory. Finished jobs are dropped after ttl.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tracker{jobs: make(map[string]*Job), ttl: ttl, now: time.Now}
}

func (t *Tracker) Start(uploadID, sellerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gc()
	now := t.now()
	t.jobs[uploadID] = &Job{
		UploadID:  uploadID,
		SellerID:  sellerID,
		Status:    models.UploadStatusProcessing,
		StartedAt: now,
		UpdatedAt: now,
	}
}

func (t *Tracker) Progress(uploadID string, pct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[uploadID]; ok {
		j.Progress = pct
		j.UpdatedAt = t.now()
	}
}

func (t *Tracker) Finish(uploadID string, rec *models.UploadRecord, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[uploadID]
	if !ok {
		return
	}
	j.Record = rec
	j.UpdatedAt = t.now()
	if err != nil {
		j.Status = models.UploadStatusFailed
		j.Error = err.Error()
		return
	}
	j.Status = models.UploadStatusCompleted
	j.Progress = 100
}

// Get returns a copy of the job.
func (t *Tracker) Get(uploadID string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	j, ok := t.jobs[uploadID]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// gc drops finished jobs older than ttl. Caller holds the lock.
func (t *Tracker) gc() {
	cutoff := t.now().Add(-t.ttl)
	for id, j := range t.jobs {
		if j.Status != models.UploadStatusProcessing && j.UpdatedAt.Before(cutoff) {
			delete(t.jobs, id)
		}
	}
}
