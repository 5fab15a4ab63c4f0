//go:build !darwin

package eventcatcher

// sleeper never fires outside darwin.
func sleeper(listen chan bool) {}
