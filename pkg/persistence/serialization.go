package persistence

import (
	"encoding/json"
	"fmt"
	"sort"
)

// MarshalSubmissionRecord serializes a SubmissionRecord to JSON bytes.
func MarshalSubmissionRecord(r *SubmissionRecord) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil SubmissionRecord")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SubmissionRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalSubmissionRecord deserializes a SubmissionRecord from JSON bytes.
func UnmarshalSubmissionRecord(data []byte) (*SubmissionRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var r SubmissionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to SubmissionRecord: %w", err)
	}

	return &r, nil
}

// SortSubmissions orders records by submission time, then ID.
func SortSubmissions(records []*SubmissionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].SubmittedAt.Equal(records[j].SubmittedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].SubmittedAt.Before(records[j].SubmittedAt)
	})
}
