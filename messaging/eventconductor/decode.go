package eventconductor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"timelock/engine/library"
)

var ErrMalformedRequest = errors.New("malformed request")

// accountRefs are the account handles every lock instruction carries.
type accountRefs struct {
	owner   library.Account
	address library.Address
}

type initializeLockArgs struct {
	Amount     *uint64 `json:"amount"`
	UnlockTime *int64  `json:"unlock_time"`
}

func decodeAccountRefs(e nostr.Event) (refs accountRefs, err error) {
	if library.CountTags(e, "p") != 1 {
		return refs, fmt.Errorf("%w: event %s must name exactly one owner (p tag)", ErrMalformedRequest, e.ID)
	}
	if library.CountTags(e, "address") != 1 {
		return refs, fmt.Errorf("%w: event %s must name exactly one lock account (address tag)", ErrMalformedRequest, e.ID)
	}
	refs.owner, _ = library.GetFirstTag(e, "p")
	refs.address, _ = library.GetFirstTag(e, "address")
	if _, err := library.DecodeAccount(refs.owner); err != nil {
		return refs, fmt.Errorf("%w: event %s owner: %s", ErrMalformedRequest, e.ID, err.Error())
	}
	if _, err := library.DecodeAccount(refs.address); err != nil {
		return refs, fmt.Errorf("%w: event %s address: %s", ErrMalformedRequest, e.ID, err.Error())
	}
	return refs, nil
}

func decodeInitializeLock(e nostr.Event) (amount uint64, unlockTime int64, err error) {
	var args initializeLockArgs
	if err = strictUnmarshal(e.Content, &args); err != nil {
		return 0, 0, fmt.Errorf("%w: event %s content: %s", ErrMalformedRequest, e.ID, err.Error())
	}
	if args.Amount == nil || args.UnlockTime == nil {
		return 0, 0, fmt.Errorf("%w: event %s needs both amount and unlock_time", ErrMalformedRequest, e.ID)
	}
	return *args.Amount, *args.UnlockTime, nil
}

func decodeWithdraw(e nostr.Event) error {
	if strings.TrimSpace(e.Content) == "" {
		return nil
	}
	var args *struct{}
	if err := strictUnmarshal(e.Content, &args); err != nil {
		return fmt.Errorf("%w: event %s content: %s", ErrMalformedRequest, e.ID, err.Error())
	}
	if args == nil {
		return fmt.Errorf("%w: event %s content must be empty or {}", ErrMalformedRequest, e.ID)
	}
	return nil
}

func strictUnmarshal(content string, v any) error {
	d := json.NewDecoder(bytes.NewReader([]byte(content)))
	d.DisallowUnknownFields()
	if err := d.Decode(v); err != nil {
		return err
	}
	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("trailing data after JSON object")
	}
	return nil
}
