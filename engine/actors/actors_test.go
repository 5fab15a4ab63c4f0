package actors

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletFromPrivateKeyMatchesNostr(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	w, err := WalletFromPrivateKey(sk)
	require.NoError(t, err)
	pk, err := nostr.GetPublicKey(sk)
	require.NoError(t, err)
	assert.Equal(t, pk, w.Account)

	_, err = WalletFromPrivateKey("abcd")
	require.Error(t, err)
	_, err = WalletFromPrivateKey("not hex")
	require.Error(t, err)
}

func TestWalletFromSeedWords(t *testing.T) {
	w, err := NewWallet()
	require.NoError(t, err)
	require.NotEmpty(t, w.SeedWords)

	restored, err := WalletFromSeedWords(w.SeedWords)
	require.NoError(t, err)
	assert.Equal(t, w, restored)
}

func TestFlatFiles(t *testing.T) {
	conf := viper.New()
	conf.Set("rootDir", t.TempDir())
	SetDefaults(conf)
	SetConfig(conf)

	_, ok, err := ReadFlatFile("ledger", "state")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, WriteFlatFile("ledger", "state", []byte("one")))
	require.NoError(t, WriteFlatFile("ledger", "state", []byte("two")))
	b, ok, err := ReadFlatFile("ledger", "state")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("two"), b)
}

func TestShutdownIsIdempotent(t *testing.T) {
	SetTerminateChan(make(chan struct{}))
	terminated = false
	Shutdown()
	Shutdown()
	select {
	case <-GetTerminateChan():
	default:
		t.Fatal("terminate channel was not closed")
	}
}
