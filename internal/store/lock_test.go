package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	akerrors "github.com/askbase/askbase/internal/errors"
)

func TestDirLockExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()

	l1, err := AcquireDirLock(dir)
	require.NoError(t, err)

	_, err = AcquireDirLock(dir)
	assert.True(t, akerrors.IsCode(err, akerrors.ErrCodeDataDirLocked))

	require.NoError(t, l1.Release())

	l2, err := AcquireDirLock(dir)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}
