package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPnlRatio(t *testing.T) {
	assert.InDelta(t, -5.0, pnlRatio(9.5, 10), 1e-9)
	assert.InDelta(t, 50.0, pnlRatio(15, 10), 1e-9)
	assert.Equal(t, 0.0, pnlRatio(10, 0))
}

func TestRealizedPL(t *testing.T) {
	assert.InDelta(t, -60.95, realizedPL(9.5, 10.05, 100, 5.95), 1e-9)
	assert.Equal(t, 0.0, realizedPL(12, 10, 0, 0))
}
