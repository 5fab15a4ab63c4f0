package main

import (
	"context"
	"fmt"

	"github.com/eiannone/keyboard"
	"timelock/engine/actors"
	"timelock/state/blocks"
	"timelock/state/ledger"
	"timelock/state/replay"
	"timelock/state/timelock"
)

// cliListener is a cheap and nasty way to inspect a running engine. It listens for keypresses and prints state.
func cliListener(runtime *ledger.Runtime, clock *blocks.Mind) {
	fmt.Println("VIEW CURRENT STATE:\nl: my lock account\na: all lock accounts\nb: my balance\nr: my replay hash\nt: chain tip\nc: engine config\nq: to quit\nSee cliListener.go for more")
	ctx := context.Background()
	me := actors.MyWallet().Account
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			fmt.Println("keyboard unavailable, console disabled: " + err.Error())
			return
		}
		str := string(r)
		switch str {
		default:
			if k == keyboard.KeyEnter {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to anything. See cliListener.go for more details.")
		case "l":
			address, err := timelock.AddressFor(me)
			if err != nil {
				fmt.Println(err)
				break
			}
			account, ok, err := timelock.Get(ctx, runtime, address)
			if err != nil {
				fmt.Println(err)
				break
			}
			if !ok {
				fmt.Printf("\nAddress: %s\nStatus: never initialized\n", address)
				break
			}
			escrow, _ := runtime.Escrow(ctx, address)
			fmt.Printf("\nAddress: %s\nStatus: %s\nAmount: %d\nEscrow: %d\nUnlockTime: %d\nCreatedAt: %d\n",
				address, account.Status(), account.Amount, escrow, account.UnlockTime, account.CreatedAt)
		case "a":
			locks, err := timelock.List(ctx, runtime)
			if err != nil {
				fmt.Println(err)
				break
			}
			fmt.Printf("\n%d lock accounts\n", len(locks))
			for _, l := range locks {
				fmt.Printf("%s owner: %s status: %s amount: %d unlocks: %d\n",
					l.Address, l.Account.Owner, l.Account.Status(), l.Account.Amount, l.Account.UnlockTime)
			}
		case "b":
			bal, err := runtime.Balance(ctx, me)
			if err != nil {
				fmt.Println(err)
				break
			}
			fmt.Printf("\nAccount: %s\nSpendable: %d\n", me, bal)
		case "r":
			h, err := replay.GetCurrentHashForAccount(ctx, runtime, me)
			if err != nil {
				fmt.Println(err)
				break
			}
			fmt.Println(h)
		case "t":
			t, ok := clock.Tip()
			if !ok {
				fmt.Println("no block yet, the ledger clock is not running")
				break
			}
			fmt.Printf("\nHeight: %d Hash: %s\nMedianTime: %s\n", t.Height, t.Hash, t.MedianTime)
		case "c":
			fmt.Println("CURRENT CONFIG")
			for k, v := range actors.MakeOrGetConfig().AllSettings() {
				fmt.Printf("\nKey: %s; Value: %v\n", k, v)
			}
		case "q":
			actors.Shutdown()
			return
		}
	}
}
