package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotationStaysOnCurrentBelowThreshold(t *testing.T) {
	r := newRotation(10)
	r.txnBegin(0)
	idx, err := r.switchFilesMaybe(func(int) error { t.Fatal("should not clear"); return nil })
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestRotationSwitchesOnThreshold(t *testing.T) {
	r := newRotation(2)
	r.temporaryOp(0)
	r.temporaryOp(0) // weight(0) == 2, >= threshold

	cleared := -1
	idx, err := r.switchFilesMaybe(func(other int) error {
		cleared = other
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1, cleared)
	assert.EqualValues(t, 1, r.currentFD())
}

func TestRotationDoesNotSwitchWhileOtherHasLiveTxn(t *testing.T) {
	r := newRotation(2)
	r.temporaryOp(0)
	r.temporaryOp(0)
	r.txnBegin(1) // other file has an open transaction

	idx, err := r.switchFilesMaybe(func(int) error { t.Fatal("should not clear"); return nil })
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestRotationDefaultThreshold(t *testing.T) {
	r := newRotation(0)
	assert.EqualValues(t, kSwitchTxnThreshold, r.threshold)
}

func TestRotationCounters(t *testing.T) {
	r := newRotation(1000)
	r.txnBegin(0)
	assert.EqualValues(t, 1, r.openTxn[0].Load())

	r.txnAbort(0)
	assert.EqualValues(t, 0, r.openTxn[0].Load())
	assert.EqualValues(t, 1, r.closedTxn[0].Load())

	r.txnBegin(0)
	r.txnFlushed(0)
	assert.EqualValues(t, 0, r.openTxn[0].Load())
	assert.EqualValues(t, 2, r.closedTxn[0].Load())

	r.changesetAppended(1)
	assert.EqualValues(t, 1, r.openTxn[1].Load())
	r.changesetFlushed(1)
	assert.EqualValues(t, 1, r.closedTxn[1].Load())
}
