package timelock

import (
	"timelock/engine/library"
)

// SeedDomain is the fixed tag mixed with the owner's key to derive the address
// of their lock account.
const SeedDomain = "time_locked_wallet"

// Namespace is where lock records live in ledger storage.
const Namespace = "time_locked_wallet"

const (
	KindInitializeLock = 640800
	KindWithdraw       = 640802
)

type Status uint8

const (
	StatusEmpty Status = iota
	StatusLocked
)

func (s Status) String() string {
	switch s {
	case StatusLocked:
		return "locked"
	}
	return "empty"
}

// LockAccount is the custody record of one owner.
type LockAccount struct {
	Owner      library.Account `json:"owner"`
	Amount     uint64          `json:"amount"`
	UnlockTime int64           `json:"unlock_time"`
	CreatedAt  int64           `json:"created_at"`
}

// Status is derived from Amount, never stored.
func (l LockAccount) Status() Status {
	if l.Amount > 0 {
		return StatusLocked
	}
	return StatusEmpty
}

//Kind640800 STATUS:DRAFT
//Used for locking Amount until UnlockTime (unix seconds). Tags: p (owner), address (lock account), r (replay).
type Kind640800 struct {
	Amount     uint64 `json:"amount"`
	UnlockTime int64  `json:"unlock_time"`
}

//Kind640802 STATUS:DRAFT
//Used for withdrawing everything held by an unlocked account. Content is empty. Tags: p (owner), address (lock account), r (replay).
type Kind640802 struct{}
