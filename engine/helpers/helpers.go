package helpers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"timelock/engine/library"
	"timelock/state/blocks"
	"timelock/state/timelock"
)

// InitializeLockRequest builds and signs a request locking amount of the
// wallet's balance until unlockTime. replayHash is the wallet's current
// replay hash.
func InitializeLockRequest(w library.Wallet, amount uint64, unlockTime int64, replayHash library.Sha256) (r nostr.Event, err error) {
	address, err := timelock.AddressFor(w.Account)
	if err != nil {
		return r, err
	}
	content, err := json.Marshal(timelock.Kind640800{Amount: amount, UnlockTime: unlockTime})
	if err != nil {
		return r, err
	}
	return Request(w, timelock.KindInitializeLock, w.Account, address, replayHash, string(content))
}

// WithdrawRequest builds and signs a request releasing the wallet's lock.
func WithdrawRequest(w library.Wallet, replayHash library.Sha256) (r nostr.Event, err error) {
	address, err := timelock.AddressFor(w.Account)
	if err != nil {
		return r, err
	}
	return Request(w, timelock.KindWithdraw, w.Account, address, replayHash, "")
}

// BlockHeaderEvent builds and signs a clock oracle announcement.
func BlockHeaderEvent(w library.Wallet, b blocks.Block) (r nostr.Event, err error) {
	r = nostr.Event{
		PubKey:    w.Account,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      blocks.KindBlockHeader,
		Tags: nostr.Tags{
			nostr.Tag{"hash", b.Hash},
			nostr.Tag{"height", strconv.FormatInt(b.Height, 10)},
			nostr.Tag{"mediantime", strconv.FormatInt(b.MedianTime.Unix(), 10)},
			nostr.Tag{"minertime", strconv.FormatInt(b.MinerTime.Unix(), 10)},
			nostr.Tag{"difficulty", strconv.FormatInt(b.Difficulty, 10)},
		},
	}
	err = sign(&r, w)
	return
}

// Request signs an arbitrary lock instruction with w. owner and address are
// taken as given, so the result may well be rejected.
func Request(w library.Wallet, kind int, owner library.Account, address library.Address, replayHash library.Sha256, content string) (nostr.Event, error) {
	r := nostr.Event{
		PubKey:    w.Account,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      kind,
		Tags: nostr.Tags{
			nostr.Tag{"p", owner},
			nostr.Tag{"address", address},
			nostr.Tag{"r", replayHash},
		},
		Content: content,
	}
	if err := sign(&r, w); err != nil {
		return r, err
	}
	return r, nil
}

func sign(r *nostr.Event, w library.Wallet) error {
	r.ID = r.GetID()
	return r.Sign(w.PrivateKey)
}
