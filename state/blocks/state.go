package blocks

import (
	"encoding/json"
	"errors"

	"github.com/sasha-s/go-deadlock"
	"timelock/engine/library"
)

var ErrNoTip = errors.New("no block has been seen yet")

// Mind follows the bitcoin tip as reported by trusted oracles. Its median time
// is the ledger clock.
type Mind struct {
	data    Mapped
	oracles map[library.Account]struct{}
	mutex   *deadlock.Mutex
}

func New(oracles []library.Account) *Mind {
	m := &Mind{
		data:    make(Mapped),
		oracles: make(map[library.Account]struct{}),
		mutex:   &deadlock.Mutex{},
	}
	for _, o := range oracles {
		m.oracles[o] = struct{}{}
	}
	return m
}

func (m *Mind) Tip() (t Block, b bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.tip()
}

func (m *Mind) tip() (t Block, b bool) {
	for _, block := range m.data {
		if !b || block.Height > t.Height {
			t = block
			b = true
		}
	}
	return
}

// Now implements ledger.Clock with the median time of the tip.
func (m *Mind) Now() (int64, error) {
	t, ok := m.Tip()
	if !ok {
		return 0, ErrNoTip
	}
	return t.MedianTime.Unix(), nil
}

func (m *Mind) GetMapped() Mapped {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.getMapped()
}

func (m *Mind) getMapped() Mapped {
	c := make(Mapped, len(m.data))
	for h, b := range m.data {
		c[h] = b
	}
	return c
}

func (m *Mind) Snapshot() ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return json.Marshal(m.data)
}

func (m *Mind) Restore(b []byte) error {
	data := make(Mapped)
	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data = data
	return nil
}
