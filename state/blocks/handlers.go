package blocks

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"timelock/engine/library"
)

func (m *Mind) HandleEvent(event nostr.Event) (Mapped, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if event.Kind != KindBlockHeader {
		return nil, fmt.Errorf("invalid kind")
	}

	if _, ok := m.oracles[event.PubKey]; !ok {
		return nil, fmt.Errorf("pubkey %s is not a clock oracle", event.PubKey)
	}

	hash, ok := library.GetFirstTag(event, "hash")
	if !ok {
		return nil, fmt.Errorf("failed to get block hash from event")
	}

	heightInt, err := intTag(event, "height")
	if err != nil {
		return nil, err
	}

	mediantimeInt, err := intTag(event, "mediantime")
	if err != nil {
		return nil, err
	}

	var minerTime time.Time
	if _, ok := library.GetFirstTag(event, "minertime"); ok {
		minerTimeInt, err := intTag(event, "minertime")
		if err != nil {
			return nil, err
		}
		minerTime = time.Unix(minerTimeInt, 0)
	}

	var difficultyInt int64
	if _, ok := library.GetFirstTag(event, "difficulty"); ok {
		if difficultyInt, err = intTag(event, "difficulty"); err != nil {
			return nil, err
		}
	}

	if existing, exists := m.data[heightInt]; exists {
		if existing.Hash == hash {
			return nil, fmt.Errorf("we already have this block")
		}
	}
	t, ok := m.tip()
	if ok {
		if t.Height >= heightInt {
			return nil, fmt.Errorf("this block is not higher than our current block")
		}
		if t.MedianTime.Unix() > mediantimeInt {
			return nil, fmt.Errorf("median time %d is earlier than the current tip's %d", mediantimeInt, t.MedianTime.Unix())
		}
	}
	m.data[heightInt] = Block{
		Height:     heightInt,
		Hash:       hash,
		MedianTime: time.Unix(mediantimeInt, 0),
		MinerTime:  minerTime,
		Difficulty: difficultyInt,
	}
	return m.getMapped(), nil
}

func intTag(event nostr.Event, name string) (int64, error) {
	v, ok := library.GetFirstTag(event, name)
	if !ok {
		return 0, fmt.Errorf("failed to get block %s from event", name)
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("block %s: %w", name, err)
	}
	return i, nil
}
