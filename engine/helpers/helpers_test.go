package helpers

import (
	"encoding/json"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"timelock/engine/actors"
	"timelock/engine/library"
	"timelock/state/timelock"
)

func TestInitializeLockRequest(t *testing.T) {
	w, err := actors.WalletFromPrivateKey(nostr.GeneratePrivateKey())
	require.NoError(t, err)

	e, err := InitializeLockRequest(w, 100, 1_700_000_120, actors.ReplayGenesis)
	require.NoError(t, err)
	assert.Equal(t, timelock.KindInitializeLock, e.Kind)
	assert.Equal(t, e.GetID(), e.ID)
	ok, err := e.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)

	var args timelock.Kind640800
	require.NoError(t, json.Unmarshal([]byte(e.Content), &args))
	assert.Equal(t, timelock.Kind640800{Amount: 100, UnlockTime: 1_700_000_120}, args)

	address, err := timelock.AddressFor(w.Account)
	require.NoError(t, err)
	owner, _ := library.GetFirstTag(e, "p")
	tagged, _ := library.GetFirstTag(e, "address")
	r, _ := library.GetFirstTag(e, "r")
	assert.Equal(t, w.Account, owner)
	assert.Equal(t, address, tagged)
	assert.Equal(t, actors.ReplayGenesis, r)
}

func TestWithdrawRequest(t *testing.T) {
	w, err := actors.WalletFromPrivateKey(nostr.GeneratePrivateKey())
	require.NoError(t, err)

	e, err := WithdrawRequest(w, "prev")
	require.NoError(t, err)
	assert.Equal(t, timelock.KindWithdraw, e.Kind)
	assert.Empty(t, e.Content)
	ok, err := e.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)
}
