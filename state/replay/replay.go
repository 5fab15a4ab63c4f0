package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"timelock/engine/actors"
	"timelock/engine/library"
	"timelock/state/ledger"
)

// Namespace is where the last handled request of every account is kept.
const Namespace = "replay"

var ErrInvalidReplay = errors.New("invalid replay hash")

// Check verifies that event carries the r tag its signer must present next:
// the ID of the signer's last handled request, or the genesis hash.
func Check(inv *ledger.Invocation, event nostr.Event) error {
	claimedHash, ok := library.GetFirstTag(event, "r")
	if !ok {
		return fmt.Errorf("%w: event %s has no r tag", ErrInvalidReplay, event.ID)
	}
	current, err := currentHash(inv, event.PubKey)
	if err != nil {
		return err
	}
	if claimedHash != current {
		return fmt.Errorf("%w: event %s presents %s, expected %s", ErrInvalidReplay, event.ID, claimedHash, current)
	}
	return nil
}

// Advance makes event the signer's last handled request. It must be staged in
// the same invocation as the state change the event caused.
func Advance(inv *ledger.Invocation, event nostr.Event) {
	inv.SetRecord(Namespace, event.PubKey, []byte(event.ID))
}

func currentHash(inv *ledger.Invocation, account library.Account) (library.Sha256, error) {
	b, ok, err := inv.Record(Namespace, account)
	if err != nil {
		return "", err
	}
	if !ok {
		return actors.ReplayGenesis, nil
	}
	return string(b), nil
}

// GetCurrentHashForAccount is the r tag account has to put on its next request.
func GetCurrentHashForAccount(ctx context.Context, rt *ledger.Runtime, account library.Account) (library.Sha256, error) {
	b, ok, err := rt.Record(ctx, Namespace, account)
	if err != nil {
		return "", err
	}
	if !ok {
		return actors.ReplayGenesis, nil
	}
	return string(b), nil
}
