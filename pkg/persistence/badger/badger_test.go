package badger

import (
	"testing"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Layr-Labs/bcos-web3-go/pkg/persistence"
	"github.com/Layr-Labs/bcos-web3-go/pkg/persistence/persistencetest"
)

func TestBadgerJournal(t *testing.T) {
	persistencetest.RunJournalTests(t, func(t *testing.T) persistence.ISubmissionJournal {
		j, err := NewBadgerJournal(t.TempDir(), zaptest.NewLogger(t))
		require.NoError(t, err)
		return j
	})
}

func TestBadgerJournal_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	l := zaptest.NewLogger(t)

	j, err := NewBadgerJournal(dir, l)
	require.NoError(t, err)
	record := persistence.NewSubmissionRecord(persistence.SubmissionKind_Deploy, "0xabc", "127.0.0.1:20200")
	require.NoError(t, j.RecordSubmission(record))
	require.NoError(t, j.Close())

	reopened, err := NewBadgerJournal(dir, l)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadSubmission(record.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "0xabc", loaded.TxHash)
	assert.Equal(t, persistence.SubmissionKind_Deploy, loaded.Kind)
}

func TestBadgerJournal_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()

	opts := badgerdb.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badgerdb.Open(opts)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keySchemaVersion), []byte("v0"))
	}))
	require.NoError(t, db.Close())

	_, err = NewBadgerJournal(dir, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestBadgerJournal_EmptyPath(t *testing.T) {
	_, err := NewBadgerJournal("", zaptest.NewLogger(t))
	assert.Error(t, err)
}
