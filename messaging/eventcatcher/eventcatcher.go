package eventcatcher

import (
	"context"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"timelock/engine/actors"
	"timelock/engine/library"
	"timelock/state/blocks"
	"timelock/state/timelock"
)

// Kinds is every event kind the engine acts on.
var Kinds = []int{blocks.KindBlockHeader, timelock.KindInitializeLock, timelock.KindWithdraw}

// silence after which a relay connection is considered dead
const silence = 2 * time.Minute

// SubscribeToRequests forwards every correctly signed request seen on relay to
// eChan until the engine terminates. The subscription is re-established
// whenever the relay drops or goes silent.
func SubscribeToRequests(relayURL string, eChan chan<- nostr.Event) {
	actors.GetWaitGroup().Add(1)
	defer actors.GetWaitGroup().Done()
	var sleepChan = make(chan bool)
	sleeper(sleepChan)
	since := nostr.Timestamp(0)
	for {
		last, stop := subscribe(relayURL, since, eChan, sleepChan)
		if stop {
			return
		}
		if last > since {
			since = last
		}
		select {
		case <-actors.GetTerminateChan():
			return
		case <-time.After(5 * time.Second):
			library.LogCLI("Restarting eventcatcher for "+relayURL, 4)
		}
	}
}

func subscribe(relayURL string, since nostr.Timestamp, eChan chan<- nostr.Event, sleepChan chan bool) (last nostr.Timestamp, stop bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay, err := nostr.RelayConnect(ctx, relayURL)
	if err != nil {
		library.LogCLI(err.Error(), 2)
		return since, false
	}
	defer relay.Close()

	filter := nostr.Filter{Kinds: Kinds}
	if since > 0 {
		filter.Since = &since
	}
	library.LogCLI("Connecting to "+relay.URL, 4)
	sub, err := relay.Subscribe(ctx, nostr.Filters{filter})
	if err != nil {
		library.LogCLI(err.Error(), 2)
		return since, false
	}
	last = since
	lastEventTime := time.Now()
	for {
		select {
		case <-sleepChan:
			library.LogCLI("system sleep detected, terminating application", 2)
			actors.Shutdown()
			return last, true
		case ev, ok := <-sub.Events:
			if !ok || ev == nil {
				library.LogCLI("Terminating connection to "+relayURL, 3)
				return last, false
			}
			lastEventTime = time.Now()
			if ok, _ := ev.CheckSignature(); !ok {
				continue
			}
			if ev.CreatedAt > last {
				last = ev.CreatedAt
			}
			select {
			case eChan <- *ev:
			case <-actors.GetTerminateChan():
				return last, true
			}
		case <-time.After(time.Minute):
			if time.Since(lastEventTime) > silence {
				library.LogCLI("Terminating connection to "+relayURL+", no events for "+silence.String(), 3)
				return last, false
			}
		case <-actors.GetTerminateChan():
			return last, true
		}
	}
}
