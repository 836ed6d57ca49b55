package indicators

import (
	"testing"

	"github.com/rustyeddy/stocksim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBars() []market.Bar {
	closes := []float64{10.2, 10.5, 10.6, 10.8, 11.0, 11.1, 11.3, 11.4, 11.6, 11.8}
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{Code: "000001.SZ", Close: c}
	}
	return bars
}

func TestMA(t *testing.T) {
	ma, err := MA(createTestBars(), 5)
	require.NoError(t, err)
	// 11.1, 11.3, 11.4, 11.6, 11.8
	assert.InDelta(t, 11.44, ma, 1e-9)
}

func TestSMAErrors(t *testing.T) {
	_, err := SMA([]float64{1, 2}, 0)
	assert.Error(t, err)

	_, err = SMA([]float64{1, 2}, 3)
	assert.Error(t, err)
}

func TestSMAWith(t *testing.T) {
	values := []float64{9, 10, 11, 12}

	ma, err := SMAWith(values, 13, 3)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, ma, 1e-9)
	assert.Equal(t, []float64{9, 10, 11, 12}, values)

	ma, err = SMAWith(nil, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, ma)

	_, err = SMAWith(values, 13, 6)
	assert.Error(t, err)
}

func TestRescale(t *testing.T) {
	values := []float64{10, 20}
	Rescale(values, 0.5)
	assert.Equal(t, []float64{5, 10}, values)
}
