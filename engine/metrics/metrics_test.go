package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	locked := errors.New("locked")
	known := map[string]error{"funds_still_locked": locked}

	assert.Equal(t, "ok", Outcome(nil, known))
	assert.Equal(t, "funds_still_locked", Outcome(fmt.Errorf("withdraw: %w", locked), known))
	assert.Equal(t, "other", Outcome(errors.New("boom"), known))
}

func TestRegisterMetrics(t *testing.T) {
	reg := NewRegistry()
	RegisterMetrics(reg)

	RequestCounter.WithLabelValues("640800", "ok").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	counted := false
	for _, f := range families {
		if f.GetName() != "timelock_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			counted = counted || m.GetCounter().GetValue() >= 1
		}
	}
	assert.True(t, counted)
}
