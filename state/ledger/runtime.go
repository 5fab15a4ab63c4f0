package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"timelock/engine/library"
)

var (
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrNotSigner         = errors.New("ledger: transfer source did not sign the request")
	ErrOverflow          = errors.New("ledger: balance overflow")
	ErrCorruptBalance    = errors.New("ledger: stored balance is not 8 bytes")
)

const (
	balancePrefix = "balance:"
	escrowPrefix  = "escrow:"
	recordPrefix  = "record:"
	genesisKey    = "genesis"
)

// Runtime is the host environment programs execute in. It owns storage,
// spendable balances, escrowed balances and the clock. Programs only ever see
// it through an Invocation.
type Runtime struct {
	store Store
	clock Clock
}

func NewRuntime(store Store, clock Clock) *Runtime {
	return &Runtime{store: store, clock: clock}
}

// Invoke executes fn as a single indivisible instruction signed by signer.
// The signature itself is verified by the caller before Invoke. If fn returns
// an error nothing it wrote is kept.
func (r *Runtime) Invoke(ctx context.Context, signer library.Account, fn func(inv *Invocation) error) error {
	now, err := r.clock.Now()
	if err != nil {
		return fmt.Errorf("ledger clock: %w", err)
	}
	return r.store.Update(ctx, func(b Batch) error {
		return fn(&Invocation{ctx: ctx, batch: b, signer: signer, now: now})
	})
}

// Credit mints amount into account's spendable balance. Programs cannot
// reach it; it exists for genesis funding and test harnesses.
func (r *Runtime) Credit(ctx context.Context, account library.Account, amount uint64) error {
	return r.store.Update(ctx, func(b Batch) error {
		return credit(ctx, b, account, amount)
	})
}

// Genesis credits every balance exactly once per store. It reports whether
// this call was the one that did it.
func (r *Runtime) Genesis(ctx context.Context, balances map[library.Account]uint64) (funded bool, err error) {
	err = r.store.Update(ctx, func(b Batch) error {
		funded = false
		_, done, err := b.Get(ctx, genesisKey)
		if err != nil || done {
			return err
		}
		for account, amount := range balances {
			if err := credit(ctx, b, account, amount); err != nil {
				return err
			}
		}
		b.Put(genesisKey, []byte{1})
		funded = true
		return nil
	})
	return
}

func credit(ctx context.Context, b Batch, account library.Account, amount uint64) error {
	bal, err := readUint64(ctx, b, balancePrefix+account)
	if err != nil {
		return err
	}
	if bal > math.MaxUint64-amount {
		return ErrOverflow
	}
	b.Put(balancePrefix+account, encodeUint64(bal+amount))
	return nil
}

// Balance is the spendable balance of account.
func (r *Runtime) Balance(ctx context.Context, account library.Account) (bal uint64, err error) {
	err = r.store.View(ctx, func(rd Reader) error {
		bal, err = readUint64(ctx, rd, balancePrefix+account)
		return err
	})
	return
}

// Escrow is the value held by the program controlled account at address.
func (r *Runtime) Escrow(ctx context.Context, address library.Address) (bal uint64, err error) {
	err = r.store.View(ctx, func(rd Reader) error {
		bal, err = readUint64(ctx, rd, escrowPrefix+address)
		return err
	})
	return
}

// Record returns the raw data stored under namespace/id. Reads are unrestricted.
func (r *Runtime) Record(ctx context.Context, namespace, id string) (data []byte, ok bool, err error) {
	err = r.store.View(ctx, func(rd Reader) error {
		data, ok, err = rd.Get(ctx, recordPrefix+namespace+":"+id)
		return err
	})
	return
}

// RecordIDs lists the ids stored under namespace, sorted.
func (r *Runtime) RecordIDs(ctx context.Context, namespace string) ([]string, error) {
	prefix := recordPrefix + namespace + ":"
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, prefix)
	}
	return ids, nil
}

func (r *Runtime) Now() (int64, error) {
	return r.clock.Now()
}

// Invocation is the view a program has of the ledger while handling one
// request. It is only valid inside the Invoke callback that created it.
type Invocation struct {
	ctx    context.Context
	batch  Batch
	signer library.Account
	now    int64
}

func (i *Invocation) Context() context.Context {
	return i.ctx
}

// Signer is the account whose signature authorized this request.
func (i *Invocation) Signer() library.Account {
	return i.signer
}

// Now is the ledger time in unix seconds, fixed for the whole invocation.
func (i *Invocation) Now() int64 {
	return i.now
}

func (i *Invocation) Balance(account library.Account) (uint64, error) {
	return readUint64(i.ctx, i.batch, balancePrefix+account)
}

func (i *Invocation) Escrow(address library.Address) (uint64, error) {
	return readUint64(i.ctx, i.batch, escrowPrefix+address)
}

func (i *Invocation) Record(namespace, id string) ([]byte, bool, error) {
	return i.batch.Get(i.ctx, recordPrefix+namespace+":"+id)
}

func (i *Invocation) SetRecord(namespace, id string, data []byte) {
	i.batch.Put(recordPrefix+namespace+":"+id, data)
}

// Lock moves amount from the signer's spendable balance into the escrow of
// address.
func (i *Invocation) Lock(from library.Account, to library.Address, amount uint64) error {
	if from != i.signer {
		return ErrNotSigner
	}
	bal, err := i.Balance(from)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("%s has %d, needs %d: %w", from, bal, amount, ErrInsufficientFunds)
	}
	escrow, err := i.Escrow(to)
	if err != nil {
		return err
	}
	if escrow > math.MaxUint64-amount {
		return ErrOverflow
	}
	i.batch.Put(balancePrefix+from, encodeUint64(bal-amount))
	i.batch.Put(escrowPrefix+to, encodeUint64(escrow+amount))
	return nil
}

// Release moves amount out of the escrow of address back into the spendable
// balance of to.
func (i *Invocation) Release(from library.Address, to library.Account, amount uint64) error {
	escrow, err := i.Escrow(from)
	if err != nil {
		return err
	}
	if escrow < amount {
		return fmt.Errorf("escrow %s has %d, needs %d: %w", from, escrow, amount, ErrInsufficientFunds)
	}
	bal, err := i.Balance(to)
	if err != nil {
		return err
	}
	if bal > math.MaxUint64-amount {
		return ErrOverflow
	}
	i.batch.Put(escrowPrefix+from, encodeUint64(escrow-amount))
	i.batch.Put(balancePrefix+to, encodeUint64(bal+amount))
	return nil
}

func readUint64(ctx context.Context, r Reader, key string) (uint64, error) {
	b, ok, err := r.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("%s: %w", key, ErrCorruptBalance)
	}
	return binary.BigEndian.Uint64(b), nil
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
