package persistencetest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/bcos-web3-go/pkg/persistence"
)

// RunJournalTests exercises the ISubmissionJournal contract against a backend.
// newJournal must return an empty, open journal.
func RunJournalTests(t *testing.T, newJournal func(t *testing.T) persistence.ISubmissionJournal) {
	t.Run("record and load", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		record := persistence.NewSubmissionRecord(persistence.SubmissionKind_Call, "0xfeed", "127.0.0.1:20200")
		record.From = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
		record.Function = "set(uint256)"
		record.BlockLimit = 600
		require.NoError(t, j.RecordSubmission(record))

		loaded, err := j.LoadSubmission(record.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, record.TxHash, loaded.TxHash)
		assert.Equal(t, record.Kind, loaded.Kind)
		assert.Equal(t, record.From, loaded.From)
		assert.Equal(t, uint64(600), loaded.BlockLimit)
		assert.True(t, record.SubmittedAt.Equal(loaded.SubmittedAt))
	})

	t.Run("missing record is nil", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		loaded, err := j.LoadSubmission("does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("invalid record rejected", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		assert.Error(t, j.RecordSubmission(nil))
		assert.Error(t, j.RecordSubmission(&persistence.SubmissionRecord{Kind: persistence.SubmissionKind_Raw}))
	})

	t.Run("list is ordered by submission time", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		empty, err := j.ListSubmissions()
		require.NoError(t, err)
		assert.Empty(t, empty)

		base := time.Now().UTC()
		for i := 2; i >= 0; i-- {
			r := persistence.NewSubmissionRecord(persistence.SubmissionKind_Raw, fmt.Sprintf("0x%d", i), "n")
			r.SubmittedAt = base.Add(time.Duration(i) * time.Second)
			require.NoError(t, j.RecordSubmission(r))
		}

		list, err := j.ListSubmissions()
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, r := range list {
			assert.Equal(t, fmt.Sprintf("0x%d", i), r.TxHash)
		}
	})

	t.Run("overwrite keeps one record", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		r := persistence.NewSubmissionRecord(persistence.SubmissionKind_Deploy, "0x1", "n")
		require.NoError(t, j.RecordSubmission(r))
		r.RPCError = "rejected"
		require.NoError(t, j.RecordSubmission(r))

		list, err := j.ListSubmissions()
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "rejected", list[0].RPCError)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		j := newJournal(t)
		defer func() { _ = j.Close() }()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, j.RecordSubmission(persistence.NewSubmissionRecord(persistence.SubmissionKind_Raw, fmt.Sprintf("0x%x", i), "n")))
			}(i)
		}
		wg.Wait()

		list, err := j.ListSubmissions()
		require.NoError(t, err)
		assert.Len(t, list, 20)
	})

	t.Run("closed journal fails", func(t *testing.T) {
		j := newJournal(t)
		require.NoError(t, j.HealthCheck())
		require.NoError(t, j.Close())
		require.NoError(t, j.Close())

		assert.Error(t, j.HealthCheck())
		assert.Error(t, j.RecordSubmission(persistence.NewSubmissionRecord(persistence.SubmissionKind_Raw, "0x1", "n")))
		_, err := j.LoadSubmission("x")
		assert.Error(t, err)
		_, err = j.ListSubmissions()
		assert.Error(t, err)
	})
}
