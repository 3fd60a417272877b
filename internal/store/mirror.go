package store

import (
	"sync"

	"github.com/seantiz/errand/internal/model"
)

// Mirror is the in-memory copy of job records held by the serving process.
// It is safe for concurrent use.
type Mirror struct {
	mu      sync.RWMutex
	records map[string]model.JobRecord
}

// NewMirror returns an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{records: make(map[string]model.JobRecord)}
}

// Set replaces the record for rec.RequestID.
func (m *Mirror) Set(rec model.JobRecord) {
	m.mu.Lock()
	m.records[rec.RequestID] = rec
	m.mu.Unlock()
}

// Get returns the record for requestID, if any.
func (m *Mirror) Get(requestID string) (model.JobRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[requestID]
	return rec, ok
}

// Len returns the number of mirrored records.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
