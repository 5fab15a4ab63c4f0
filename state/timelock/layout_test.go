package timelock_test

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"timelock/state/timelock"
)

func TestLockAccountLayout(t *testing.T) {
	owner := newWallet(t)
	account := timelock.LockAccount{Owner: owner.Account, Amount: 100, UnlockTime: T + 120, CreatedAt: T}

	b, err := account.Encode()
	require.NoError(t, err)
	require.Len(t, b, timelock.AccountSize)
	assert.Equal(t, owner.Account, hex.EncodeToString(b[8:40]))
	assert.Equal(t, uint64(100), binary.LittleEndian.Uint64(b[40:48]))
	assert.Equal(t, T+120, int64(binary.LittleEndian.Uint64(b[48:56])))

	decoded, err := timelock.DecodeLockAccount(b)
	require.NoError(t, err)
	assert.Equal(t, account, decoded)
}

func TestDecodeLockAccountRejectsGarbage(t *testing.T) {
	_, err := timelock.DecodeLockAccount(make([]byte, timelock.AccountSize-1))
	require.ErrorIs(t, err, timelock.ErrCorruptAccount)

	_, err = timelock.DecodeLockAccount(make([]byte, timelock.AccountSize))
	require.ErrorIs(t, err, timelock.ErrCorruptAccount)
}

func TestEncodeRejectsBadOwner(t *testing.T) {
	_, err := timelock.LockAccount{Owner: "not hex", Amount: 1}.Encode()
	require.Error(t, err)
}

func TestAddressForIsDeterministic(t *testing.T) {
	a := newWallet(t)
	b := newWallet(t)
	first, err := timelock.AddressFor(a.Account)
	require.NoError(t, err)
	second, err := timelock.AddressFor(a.Account)
	require.NoError(t, err)
	other, err := timelock.AddressFor(b.Account)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, 64)
}
