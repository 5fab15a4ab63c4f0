package actors

import (
	"github.com/sasha-s/go-deadlock"
)

var terminateChan = make(chan struct{})
var terminateOnce = &deadlock.Mutex{}
var terminated = false
var waitGroup = &deadlock.WaitGroup{}

func SetTerminateChan(term chan struct{}) {
	terminateChan = term
}

func GetTerminateChan() chan struct{} {
	return terminateChan
}

// GetWaitGroup is held by every long running goroutine so that main can wait for a clean shutdown.
func GetWaitGroup() *deadlock.WaitGroup {
	return waitGroup
}

// Shutdown closes the terminate channel once, no matter how many callers ask for it.
func Shutdown() {
	terminateOnce.Lock()
	defer terminateOnce.Unlock()
	if !terminated {
		terminated = true
		close(terminateChan)
	}
}
