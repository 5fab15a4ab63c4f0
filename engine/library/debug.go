package library

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// ValidateSaneExecutionTime arms the go-deadlock detector for the caller. If
// the returned func is not called before deadlock.Opts.DeadlockTimeout the
// detector reports the goroutine. Calls slower than warnAfter are logged.
func ValidateSaneExecutionTime(name string, warnAfter time.Duration) func() {
	mu := deadlock.Mutex{}
	mu.Lock()
	started := time.Now()
	go func() {
		mu.Lock()
		mu.Unlock()
	}()
	return func() {
		if elapsed := time.Since(started); elapsed > warnAfter {
			LogCLI(name+" took "+elapsed.String(), 2)
		}
		mu.Unlock()
	}
}
