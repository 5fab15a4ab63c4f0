package library

import (
	"github.com/nbd-wtf/go-nostr"
)

// GetFirstTag returns the value of the first tag named key.
func GetFirstTag(e nostr.Event, key string) (string, bool) {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == key {
			return tag[1], true
		}
	}
	return "", false
}

// CountTags reports how many tags named key the event carries.
func CountTags(e nostr.Event, key string) (n int) {
	for _, tag := range e.Tags {
		if len(tag) >= 1 && tag[0] == key {
			n++
		}
	}
	return
}
