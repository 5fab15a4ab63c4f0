package eventconductor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"timelock/engine/actors"
	"timelock/engine/library"
	"timelock/engine/metrics"
	"timelock/state/blocks"
	"timelock/state/ledger"
	"timelock/state/replay"
	"timelock/state/timelock"
)

// Receipt describes the state change a request caused.
type Receipt struct {
	EventID  library.Sha256
	Kind     int
	Address  library.Address
	Account  timelock.LockAccount
	Released uint64
	Blocks   blocks.Mapped
}

// Conductor is the instruction dispatcher. It authenticates a request, maps
// its kind to a handler, decodes the arguments and runs the handler inside a
// single ledger invocation.
type Conductor struct {
	runtime *ledger.Runtime
	locks   *timelock.Mind
	blocks  *blocks.Mind

	pending     *library.Queue[nostr.Event]
	handled     map[library.Sha256]struct{}
	handledFIFO *library.Queue[library.Sha256]
	window      int
	pendingMu   *deadlock.Mutex
}

// handledWindow is how many recently applied event IDs are remembered to skip
// relay duplicates. Older duplicates are still refused by the replay chain.
const handledWindow = 4096

func New(runtime *ledger.Runtime, locks *timelock.Mind, blockMind *blocks.Mind) *Conductor {
	return &Conductor{
		runtime:   runtime,
		locks:     locks,
		blocks:    blockMind,
		pending:     library.NewQueue[nostr.Event](16),
		handled:     make(map[library.Sha256]struct{}),
		handledFIFO: library.NewQueue[library.Sha256](256),
		window:      handledWindow,
		pendingMu:   &deadlock.Mutex{},
	}
}

var outcomes = map[string]error{
	"malformed":           ErrMalformedRequest,
	"unauthorized":        timelock.ErrUnauthorized,
	"invalid_address":     timelock.ErrInvalidAddress,
	"already_initialized": timelock.ErrAlreadyInitialized,
	"invalid_amount":      timelock.ErrInvalidAmount,
	"invalid_unlock_time": timelock.ErrInvalidUnlockTime,
	"not_initialized":     timelock.ErrNotInitialized,
	"already_withdrawn":   timelock.ErrAlreadyWithdrawn,
	"funds_still_locked":  timelock.ErrFundsStillLocked,
	"invalid_replay":      replay.ErrInvalidReplay,
	"no_clock":            blocks.ErrNoTip,
}

// HandleEvent applies one signed request. On error nothing changed.
func (c *Conductor) HandleEvent(ctx context.Context, e nostr.Event) (Receipt, error) {
	sane := library.ValidateSaneExecutionTime("event "+e.ID, time.Second)
	defer sane()
	r, err := c.handleEvent(ctx, e)
	metrics.RequestCounter.WithLabelValues(strconv.Itoa(e.Kind), metrics.Outcome(err, outcomes)).Inc()
	if err != nil {
		library.LogCLI(fmt.Sprintf("%s rejected: %s", e.ID, err.Error()), 3)
		return r, err
	}
	switch e.Kind {
	case timelock.KindInitializeLock:
		metrics.EscrowedGauge.Add(float64(r.Account.Amount))
		library.LogCLI(fmt.Sprintf("%s locked %d at %s until %d", e.PubKey, r.Account.Amount, r.Address, r.Account.UnlockTime), 4)
	case timelock.KindWithdraw:
		metrics.EscrowedGauge.Sub(float64(r.Released))
		library.LogCLI(fmt.Sprintf("%s withdrew %d from %s", e.PubKey, r.Released, r.Address), 4)
	}
	return r, nil
}

func (c *Conductor) handleEvent(ctx context.Context, e nostr.Event) (r Receipt, err error) {
	r.EventID = e.ID
	r.Kind = e.Kind
	if e.GetID() != e.ID {
		return r, fmt.Errorf("%w: event id %s does not match its contents", ErrMalformedRequest, e.ID)
	}
	if ok, err := e.CheckSignature(); err != nil || !ok {
		return r, fmt.Errorf("%w: event %s is not signed by %s", timelock.ErrUnauthorized, e.ID, e.PubKey)
	}
	switch e.Kind {
	case blocks.KindBlockHeader:
		r.Blocks, err = c.blocks.HandleEvent(e)
		return r, err
	case timelock.KindInitializeLock:
		return c.initializeLock(ctx, e, r)
	case timelock.KindWithdraw:
		return c.withdraw(ctx, e, r)
	default:
		return r, fmt.Errorf("%w: no handler for kind %d (event %s)", ErrMalformedRequest, e.Kind, e.ID)
	}
}

func (c *Conductor) initializeLock(ctx context.Context, e nostr.Event, r Receipt) (Receipt, error) {
	refs, err := decodeAccountRefs(e)
	if err != nil {
		return r, err
	}
	amount, unlockTime, err := decodeInitializeLock(e)
	if err != nil {
		return r, err
	}
	r.Address = refs.address
	err = c.runtime.Invoke(ctx, e.PubKey, func(inv *ledger.Invocation) error {
		account, err := c.locks.InitializeLock(inv, refs.owner, refs.address, amount, unlockTime)
		if err != nil {
			return err
		}
		if err := replay.Check(inv, e); err != nil {
			return err
		}
		replay.Advance(inv, e)
		r.Account = account
		return nil
	})
	return r, err
}

func (c *Conductor) withdraw(ctx context.Context, e nostr.Event, r Receipt) (Receipt, error) {
	refs, err := decodeAccountRefs(e)
	if err != nil {
		return r, err
	}
	if err := decodeWithdraw(e); err != nil {
		return r, err
	}
	r.Address = refs.address
	err = c.runtime.Invoke(ctx, e.PubKey, func(inv *ledger.Invocation) error {
		released, err := c.locks.Withdraw(inv, refs.owner, refs.address)
		if err != nil {
			return err
		}
		if err := replay.Check(inv, e); err != nil {
			return err
		}
		replay.Advance(inv, e)
		r.Released = released
		return nil
	})
	return r, err
}

// Run handles events from eventChan one at a time until ctx is cancelled or
// the engine terminates. Requests that arrive before the ledger clock has a
// first block are held back and retried after the next block header.
func (c *Conductor) Run(ctx context.Context, eventChan <-chan nostr.Event) {
	actors.GetWaitGroup().Add(1)
	defer actors.GetWaitGroup().Done()
	library.LogCLI("Event conductor has started", 4)
L:
	for {
		select {
		case e := <-eventChan:
			c.consume(ctx, e)
		case <-ctx.Done():
			break L
		case <-actors.GetTerminateChan():
			break L
		}
	}
	library.LogCLI("Event conductor has shut down", 4)
}

func (c *Conductor) consume(ctx context.Context, e nostr.Event) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if _, seen := c.handled[e.ID]; seen {
		return
	}
	_, err := c.HandleEvent(ctx, e)
	switch {
	case errors.Is(err, blocks.ErrNoTip):
		c.pending.Push(e)
		metrics.PendingGauge.Set(float64(c.pending.Len()))
		return
	case err != nil:
		library.LogCLI(err.Error(), 2)
		return
	}
	c.markHandled(e.ID)
	if e.Kind == blocks.KindBlockHeader {
		c.drainPending(ctx)
	}
}

func (c *Conductor) drainPending(ctx context.Context) {
	for n := c.pending.Len(); n > 0; n-- {
		e, _ := c.pending.Pop()
		if _, err := c.HandleEvent(ctx, e); err != nil {
			library.LogCLI(err.Error(), 2)
			continue
		}
		c.markHandled(e.ID)
	}
	metrics.PendingGauge.Set(float64(c.pending.Len()))
}

func (c *Conductor) markHandled(id library.Sha256) {
	if _, ok := c.handled[id]; ok {
		return
	}
	c.handled[id] = struct{}{}
	c.handledFIFO.Push(id)
	for c.handledFIFO.Len() > c.window {
		oldest, _ := c.handledFIFO.Pop()
		delete(c.handled, oldest)
	}
}

// Pending is the number of requests waiting for the ledger clock.
func (c *Conductor) Pending() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return c.pending.Len()
}
