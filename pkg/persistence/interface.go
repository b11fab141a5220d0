package persistence

// ISubmissionJournal records the transactions a client has dispatched.
// All implementations must be thread-safe; submissions are recorded from
// concurrent callers.
//
// The journal is an audit trail only. Block heights are recorded for
// inspection and never read back to build a new transaction.
type ISubmissionJournal interface {
	// RecordSubmission persists a record keyed by its ID.
	// Overwrites any existing record with the same ID.
	RecordSubmission(record *SubmissionRecord) error

	// LoadSubmission retrieves a record by ID.
	// Returns nil if the record doesn't exist, error only on storage failure.
	LoadSubmission(id string) (*SubmissionRecord, error)

	// ListSubmissions returns every record ordered by submission time (ascending).
	// Returns empty slice if no records exist, error only on storage failure.
	ListSubmissions() ([]*SubmissionRecord, error)

	// Close cleanly shuts down the journal.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return errors.
	Close() error

	// HealthCheck verifies the journal is operational.
	HealthCheck() error
}
