package blocks_test

import (
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"timelock/engine/actors"
	"timelock/engine/helpers"
	"timelock/engine/library"
	"timelock/state/blocks"
)

func newWallet(t *testing.T) library.Wallet {
	t.Helper()
	w, err := actors.WalletFromPrivateKey(nostr.GeneratePrivateKey())
	require.NoError(t, err)
	return w
}

func header(t *testing.T, w library.Wallet, height int64, hash string, medianTime int64) nostr.Event {
	t.Helper()
	e, err := helpers.BlockHeaderEvent(w, blocks.Block{
		Height:     height,
		Hash:       hash,
		MedianTime: time.Unix(medianTime, 0),
		MinerTime:  time.Unix(medianTime+600, 0),
		Difficulty: 1,
	})
	require.NoError(t, err)
	return e
}

func TestNowBeforeFirstBlock(t *testing.T) {
	_, err := blocks.New(nil).Now()
	require.ErrorIs(t, err, blocks.ErrNoTip)
}

func TestBlocksAdvanceTheClock(t *testing.T) {
	oracle := newWallet(t)
	m := blocks.New([]library.Account{oracle.Account})

	mapped, err := m.HandleEvent(header(t, oracle, 800000, "aa", 1_700_000_000))
	require.NoError(t, err)
	assert.Len(t, mapped, 1)
	now, err := m.Now()
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), now)

	_, err = m.HandleEvent(header(t, oracle, 800001, "bb", 1_700_000_121))
	require.NoError(t, err)
	tip, ok := m.Tip()
	require.True(t, ok)
	assert.Equal(t, int64(800001), tip.Height)
	assert.Equal(t, "bb", tip.Hash)
	assert.Equal(t, int64(1), tip.Difficulty)
	now, _ = m.Now()
	assert.Equal(t, int64(1_700_000_121), now)
}

func TestBlocksRejected(t *testing.T) {
	oracle := newWallet(t)
	stranger := newWallet(t)

	noMedianTime := header(t, oracle, 800001, "cc", 1_700_000_100)
	noMedianTime.Tags = nostr.Tags{nostr.Tag{"hash", "cc"}, nostr.Tag{"height", "800001"}}
	badHeight := header(t, oracle, 800001, "cc", 1_700_000_100)
	badHeight.Tags = nostr.Tags{nostr.Tag{"hash", "cc"}, nostr.Tag{"height", "tall"}, nostr.Tag{"mediantime", "1700000100"}}
	wrongKind := header(t, oracle, 800001, "cc", 1_700_000_100)
	wrongKind.Kind = 1

	tests := map[string]nostr.Event{
		"not an oracle":           header(t, stranger, 800001, "cc", 1_700_000_100),
		"same block again":        header(t, oracle, 800000, "aa", 1_700_000_000),
		"not higher than the tip": header(t, oracle, 799999, "dd", 1_700_000_100),
		"median time going back":  header(t, oracle, 800001, "cc", 1_699_999_999),
		"missing median time":     noMedianTime,
		"unparsable height":       badHeight,
		"wrong kind":              wrongKind,
	}
	for name, e := range tests {
		t.Run(name, func(t *testing.T) {
			m := blocks.New([]library.Account{oracle.Account})
			_, err := m.HandleEvent(header(t, oracle, 800000, "aa", 1_700_000_000))
			require.NoError(t, err)

			_, err = m.HandleEvent(e)
			require.Error(t, err)
			tip, _ := m.Tip()
			assert.Equal(t, int64(800000), tip.Height)
		})
	}
}

func TestBlocksSnapshotRestore(t *testing.T) {
	oracle := newWallet(t)
	m := blocks.New([]library.Account{oracle.Account})
	_, err := m.HandleEvent(header(t, oracle, 800000, "aa", 1_700_000_000))
	require.NoError(t, err)

	snap, err := m.Snapshot()
	require.NoError(t, err)
	restored := blocks.New([]library.Account{oracle.Account})
	require.NoError(t, restored.Restore(snap))

	now, err := restored.Now()
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), now)
	assert.Equal(t, m.GetMapped()[800000].Hash, restored.GetMapped()[800000].Hash)
}
