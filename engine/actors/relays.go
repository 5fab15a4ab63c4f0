package actors

import (
	"context"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"timelock/engine/library"
)

// StartRelaysForPublishing connects to every relay and returns a channel that
// fans each event out to all of them. Relays that cannot be reached are
// skipped. The returned func closes the channel and blocks until every relay
// has handled every event sent before it.
func StartRelaysForPublishing(ctx context.Context, relays []string) (chan<- nostr.Event, func()) {
	sendChan := make(chan nostr.Event)
	var chans []chan nostr.Event
	done := make(chan struct{})
	var connected int
	for _, s := range relays {
		relay, err := nostr.RelayConnect(ctx, s)
		if err != nil {
			library.LogCLI(err.Error(), 2)
			continue
		}
		connected++
		c := make(chan nostr.Event)
		chans = append(chans, c)
		go func(relay *nostr.Relay, c chan nostr.Event) {
			for e := range c {
				pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				_, err := relay.Publish(pctx, e)
				cancel()
				if err != nil {
					library.LogCLI(err.Error(), 2)
				} else {
					library.LogCLI("published "+e.ID+" to "+relay.URL, 4)
				}
			}
			relay.Close()
			done <- struct{}{}
		}(relay, c)
	}
	go func() {
		for e := range sendChan {
			for _, c := range chans {
				c <- e
			}
		}
		for _, c := range chans {
			close(c)
		}
	}()
	wait := func() {
		close(sendChan)
		for i := 0; i < connected; i++ {
			<-done
		}
	}
	return sendChan, wait
}
