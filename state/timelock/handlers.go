package timelock

import (
	"context"
	"errors"
	"fmt"

	"timelock/engine/library"
	"timelock/state/ledger"
)

// Mind owns the lifecycle of lock accounts. It holds no ledger state of its
// own: every call re-reads and re-writes the record through the invocation.
type Mind struct {
	requireFutureUnlock bool
}

type Option func(*Mind)

// WithFutureUnlockPolicy controls whether initializeLock refuses deadlines
// that are not after the current ledger time. On by default.
func WithFutureUnlockPolicy(required bool) Option {
	return func(m *Mind) {
		m.requireFutureUnlock = required
	}
}

func New(opts ...Option) *Mind {
	m := &Mind{requireFutureUnlock: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddressFor is the only address a lock owned by owner can live at.
func AddressFor(owner library.Account) (library.Address, error) {
	return ledger.DeriveAddress(SeedDomain, owner)
}

// InitializeLock escrows amount from owner until unlockTime. All checks run
// before the first write.
func (m *Mind) InitializeLock(inv *ledger.Invocation, owner library.Account, address library.Address, amount uint64, unlockTime int64) (LockAccount, error) {
	if err := checkAuthority(inv, owner, address); err != nil {
		return LockAccount{}, err
	}
	existing, exists, err := load(inv, address)
	if err != nil {
		return LockAccount{}, err
	}
	if exists && existing.Status() == StatusLocked {
		return LockAccount{}, fmt.Errorf("%w: %s already holds %d until %d", ErrAlreadyInitialized, address, existing.Amount, existing.UnlockTime)
	}
	if amount == 0 {
		return LockAccount{}, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidAmount)
	}
	balance, err := inv.Balance(owner)
	if err != nil {
		return LockAccount{}, err
	}
	if amount > balance {
		return LockAccount{}, fmt.Errorf("%w: %d exceeds spendable balance %d", ErrInvalidAmount, amount, balance)
	}
	if unlockTime < 0 {
		return LockAccount{}, fmt.Errorf("%w: %d is negative", ErrInvalidUnlockTime, unlockTime)
	}
	if m.requireFutureUnlock && unlockTime <= inv.Now() {
		return LockAccount{}, fmt.Errorf("%w: %d is not after ledger time %d", ErrInvalidUnlockTime, unlockTime, inv.Now())
	}
	// an empty account must not escrow anything
	if escrow, err := inv.Escrow(address); err != nil {
		return LockAccount{}, err
	} else if escrow != 0 {
		return LockAccount{}, fmt.Errorf("%w: empty account %s still escrows %d", ErrCorruptAccount, address, escrow)
	}

	account := LockAccount{
		Owner:      owner,
		Amount:     amount,
		UnlockTime: unlockTime,
		CreatedAt:  inv.Now(),
	}
	data, err := account.Encode()
	if err != nil {
		return LockAccount{}, err
	}
	if err := inv.Lock(owner, address, amount); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return LockAccount{}, fmt.Errorf("%w: %s", ErrInvalidAmount, err.Error())
		}
		return LockAccount{}, err
	}
	inv.SetRecord(Namespace, address, data)
	return account, nil
}

// Withdraw releases everything held at address back to owner once the
// ledger clock has reached the unlock time.
func (m *Mind) Withdraw(inv *ledger.Invocation, owner library.Account, address library.Address) (uint64, error) {
	if err := checkAuthority(inv, owner, address); err != nil {
		return 0, err
	}
	account, exists, err := load(inv, address)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: no lock account at %s", ErrNotInitialized, address)
	}
	if account.Status() != StatusLocked {
		return 0, fmt.Errorf("%w: lock account %s is empty", ErrAlreadyWithdrawn, address)
	}
	if account.Owner != owner {
		return 0, fmt.Errorf("%w: %s is owned by %s", ErrUnauthorized, address, account.Owner)
	}
	if inv.Now() < account.UnlockTime {
		return 0, fmt.Errorf("%w: ledger time %d, unlocks at %d", ErrFundsStillLocked, inv.Now(), account.UnlockTime)
	}

	released := account.Amount
	account.Amount = 0
	data, err := account.Encode()
	if err != nil {
		return 0, err
	}
	if err := inv.Release(address, owner, released); err != nil {
		return 0, err
	}
	inv.SetRecord(Namespace, address, data)
	return released, nil
}

// Get returns the lock account at address. Anyone may read any account.
func Get(ctx context.Context, rt *ledger.Runtime, address library.Address) (LockAccount, bool, error) {
	data, ok, err := rt.Record(ctx, Namespace, address)
	if err != nil || !ok {
		return LockAccount{}, false, err
	}
	account, err := DecodeLockAccount(data)
	if err != nil {
		return LockAccount{}, false, err
	}
	return account, true, nil
}

// AddressedLock is a lock account together with the address it lives at.
type AddressedLock struct {
	Address library.Address
	Account LockAccount
}

// List returns every lock account the ledger holds, ordered by address.
// Withdrawn accounts are included with a zero amount.
func List(ctx context.Context, rt *ledger.Runtime) ([]AddressedLock, error) {
	addresses, err := rt.RecordIDs(ctx, Namespace)
	if err != nil {
		return nil, err
	}
	locks := make([]AddressedLock, 0, len(addresses))
	for _, address := range addresses {
		account, ok, err := Get(ctx, rt, address)
		if err != nil {
			return nil, fmt.Errorf("lock account %s: %w", address, err)
		}
		if ok {
			locks = append(locks, AddressedLock{Address: address, Account: account})
		}
	}
	return locks, nil
}

func checkAuthority(inv *ledger.Invocation, owner library.Account, address library.Address) error {
	if inv.Signer() != owner {
		return fmt.Errorf("%w: signed by %s, claimed owner is %s", ErrUnauthorized, inv.Signer(), owner)
	}
	expected, err := AddressFor(owner)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, err.Error())
	}
	if address != expected {
		return fmt.Errorf("%w: %s is not the lock account of %s", ErrInvalidAddress, address, owner)
	}
	return nil
}

func load(inv *ledger.Invocation, address library.Address) (LockAccount, bool, error) {
	data, ok, err := inv.Record(Namespace, address)
	if err != nil || !ok {
		return LockAccount{}, false, err
	}
	account, err := DecodeLockAccount(data)
	if err != nil {
		return LockAccount{}, false, err
	}
	return account, true, nil
}
