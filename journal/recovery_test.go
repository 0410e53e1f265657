package journal_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondbase/kvjournal/journal"
	"github.com/ondbase/kvjournal/journal/faketxn"
	"github.com/ondbase/kvjournal/journal/pagestore"
)

// recoveryFixture bundles the fake collaborators a Recover call needs.
type recoveryFixture struct {
	store *pagestore.Store
	txns  *faketxn.Manager
	dbs   *faketxn.Store
	env   *faketxn.Environment
}

func newRecoveryFixture(pageSize int) recoveryFixture {
	return recoveryFixture{
		store: pagestore.New(pageSize),
		txns:  faketxn.NewManager(),
		dbs:   faketxn.NewStore(),
		env:   &faketxn.Environment{},
	}
}

func TestRecoveryEmptyJournal(t *testing.T) {
	cfg := journal.ConfigForTest(t)
	j, err := journal.Create(cfg)
	require.NoError(t, err)
	require.NoError(t, j.Close(true))

	j2, err := journal.Open(cfg)
	require.NoError(t, err)
	defer j2.Close(false)

	fx := newRecoveryFixture(cfg.PageSize)
	require.NoError(t, j2.Recover(fx.txns, fx.dbs, fx.store, fx.env))
	assert.Zero(t, fx.store.PageCount())
	// teardown flushes committed transactions whenever replay did not
	// fail, even when phase 2 did no work at all.
	assert.Equal(t, 1, fx.env.Flushed)
}

func TestRecoveryTemporaryOpDurability(t *testing.T) {
	cfg := journal.ConfigForTest(t)
	j, err := journal.Create(cfg)
	require.NoError(t, err)

	require.NoError(t, j.AppendInsert(0, 1, 1, []byte{0x01}, []byte{0xAA, 0xBB}, 0))
	require.NoError(t, j.Close(true))

	j2, err := journal.Open(cfg)
	require.NoError(t, err)
	defer j2.Close(false)

	fx := newRecoveryFixture(cfg.PageSize)
	require.NoError(t, j2.Recover(fx.txns, fx.dbs, fx.store, fx.env))

	db := fx.dbs.Database(1)
	require.NotNil(t, db)
	rec, ok := db.Get([]byte{0x01})
	require.True(t, ok)
	assert.Equal(t, []byte{0xAA, 0xBB}, rec)
}

func TestRecoveryCommitBeforeChangeset(t *testing.T) {
	cfg := journal.ConfigForTest(t)
	j, err := journal.Create(cfg)
	require.NoError(t, err)

	_, err = j.AppendTxnBegin(7, "writer", 1)
	require.NoError(t, err)
	require.NoError(t, j.AppendInsert(7, 1, 2, []byte{0x02}, []byte{0x01}, 0))
	require.NoError(t, j.AppendTxnCommit(7, 3))
	require.NoError(t, j.Close(true))

	j2, err := journal.Open(cfg)
	require.NoError(t, err)
	defer j2.Close(false)

	fx := newRecoveryFixture(cfg.PageSize)
	require.NoError(t, j2.Recover(fx.txns, fx.dbs, fx.store, fx.env))

	db := fx.dbs.Database(1)
	require.NotNil(t, db)
	rec, ok := db.Get([]byte{0x02})
	require.True(t, ok)
	assert.Equal(t, []byte{0x01}, rec)
	assert.Equal(t, 1, fx.env.Flushed)
}

func TestRecoveryChangesetSupersedesInsert(t *testing.T) {
	cfg := journal.ConfigForTest(t)
	j, err := journal.Create(cfg)
	require.NoError(t, err)

	_, err = j.AppendTxnBegin(7, "writer", 1)
	require.NoError(t, err)
	require.NoError(t, j.AppendInsert(7, 1, 2, []byte{0x02}, []byte{0x01}, 0))
	require.NoError(t, j.AppendTxnCommit(7, 3))

	page := make([]byte, cfg.PageSize)
	page[0] = 0x42
	_, err = j.AppendChangeset([]journal.ChangesetPage{{Address: 0, Data: page}}, 0, 4)
	require.NoError(t, err)
	require.NoError(t, j.Close(true))

	j2, err := journal.Open(cfg)
	require.NoError(t, err)
	defer j2.Close(false)

	fx := newRecoveryFixture(cfg.PageSize)
	require.NoError(t, j2.Recover(fx.txns, fx.dbs, fx.store, fx.env))

	// The insert at LSN 2 <= the changeset's LSN 4 must not be replayed
	// against the fake database: no database was ever opened for it.
	assert.Nil(t, fx.dbs.Database(1))
	// But the changeset's page bytes must have landed in the page store.
	require.Equal(t, 1, fx.store.PageCount())
}

func TestRecoveryRotationUnderLoad(t *testing.T) {
	cfg := journal.ConfigForTest(t)
	cfg.SwitchThreshold = 2
	j, err := journal.Create(cfg)
	require.NoError(t, err)
	defer j.Close(true)

	idxA, err := j.AppendTxnBegin(1, "a", 1)
	require.NoError(t, err)
	idxB, err := j.AppendTxnBegin(2, "b", 2)
	require.NoError(t, err)
	assert.Equal(t, idxA, idxB)

	require.NoError(t, j.AppendTxnCommit(1, 3))
	j.TransactionFlushed(idxA) // txn A's pages are durable: closedTxn[idxA] += 1, openTxn[idxA] -= 1

	// weight(idxA) is now openTxn=1 (B still open) + closedTxn=1 (A flushed) == 2 == threshold.
	idxC, err := j.AppendTxnBegin(3, "c", 4)
	require.NoError(t, err)
	assert.NotEqual(t, idxA, idxC, "rotation should have switched since the other file was idle")

	require.NoError(t, j.AppendTxnAbort(2, 5))
	// A's flush plus B's abort both land in closedTxn[idxA]; B began there
	// before rotation moved to idxC, so its abort is logged on idxA too.
	assert.EqualValues(t, 2, j.ClosedTxnCount(idxA))
	assert.EqualValues(t, 0, j.OpenTxnCount(idxA))
}

func TestRecoveryCorruptTail(t *testing.T) {
	cfg := journal.ConfigForTest(t)
	j, err := journal.Create(cfg)
	require.NoError(t, err)

	_, err = j.AppendTxnBegin(1, "a", 1)
	require.NoError(t, err)
	require.NoError(t, j.AppendInsert(1, 1, 2, []byte{0x03}, []byte{0x04}, 0))
	require.NoError(t, j.Close(true))

	idx := j.CurrentFD()
	path0, path1 := journal.Paths(cfg)
	path := path0
	if idx == 1 {
		path = path1
	}

	size, err := journal.FileSizeForTest(path)
	require.NoError(t, err)
	require.NoError(t, journal.TruncateFileForTest(path, size-1))

	j2, err := journal.Open(cfg)
	require.NoError(t, err)
	defer j2.Close(false)

	fx := newRecoveryFixture(cfg.PageSize)
	require.NoError(t, j2.Recover(fx.txns, fx.dbs, fx.store, fx.env))

	// the begin was read, the insert's followup is truncated and the scan
	// stops there without error; the begun transaction must be aborted.
	assert.Empty(t, fx.txns.LiveTransactions())
}

func TestRecoveryIsIdempotent(t *testing.T) {
	cfg := journal.ConfigForTest(t)
	cfg.Filename = filepath.Join(t.TempDir(), "env.db")
	j, err := journal.Create(cfg)
	require.NoError(t, err)

	require.NoError(t, j.AppendInsert(0, 1, 1, []byte{0x01}, []byte{0xAA}, 0))
	require.NoError(t, j.Close(true))

	j2, err := journal.Open(cfg)
	require.NoError(t, err)
	fx := newRecoveryFixture(cfg.PageSize)
	require.NoError(t, j2.Recover(fx.txns, fx.dbs, fx.store, fx.env))
	require.NoError(t, j2.Close(false))

	// journal is now empty; recovering it again must be a pure no-op.
	j3, err := journal.Open(cfg)
	require.NoError(t, err)
	defer j3.Close(false)
	fx2 := newRecoveryFixture(cfg.PageSize)
	require.NoError(t, j3.Recover(fx2.txns, fx2.dbs, fx2.store, fx2.env))
	assert.Zero(t, fx2.store.PageCount())
	assert.Nil(t, fx2.dbs.Database(1))
}
