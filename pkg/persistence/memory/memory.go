package memory

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Layr-Labs/bcos-web3-go/pkg/persistence"
)

// MemoryJournal is an in-memory implementation of ISubmissionJournal.
// Records are lost when the process exits.
// Thread-safe using sync.RWMutex; records are copied in and out.
type MemoryJournal struct {
	mu      sync.RWMutex
	records map[string]*persistence.SubmissionRecord
	closed  bool
}

// NewMemoryJournal creates a new in-memory journal.
func NewMemoryJournal(logger *zap.Logger) *MemoryJournal {
	logger.Sugar().Warnw("Using in-memory submission journal, records are lost on restart")
	return &MemoryJournal{
		records: make(map[string]*persistence.SubmissionRecord),
	}
}

func (m *MemoryJournal) RecordSubmission(record *persistence.SubmissionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("journal is closed")
	}
	m.records[record.ID] = record.Copy()
	return nil
}

func (m *MemoryJournal) LoadSubmission(id string) (*persistence.SubmissionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("journal is closed")
	}
	record, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return record.Copy(), nil
}

func (m *MemoryJournal) ListSubmissions() ([]*persistence.SubmissionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("journal is closed")
	}
	records := make([]*persistence.SubmissionRecord, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, r.Copy())
	}
	persistence.SortSubmissions(records)
	return records, nil
}

// Close is idempotent.
func (m *MemoryJournal) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	return nil
}

func (m *MemoryJournal) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("journal is closed")
	}
	return nil
}
