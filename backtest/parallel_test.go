package backtest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/sim"
	"github.com/rustyeddy/stocksim/strategies"
)

func TestRunParallel_IsolatedAccounts(t *testing.T) {
	t.Parallel()

	newJob := func(name string, pct float64) Job {
		return Job{Name: name, Run: func(ctx context.Context) (Result, error) {
			acct, err := sim.NewAccountManager(sim.DefaultConfig(), nil)
			if err != nil {
				return Result{}, err
			}
			r := &Runner{
				RunID:    name,
				Account:  acct,
				Feed:     &sliceFeed{events: threeDays()},
				Strategy: strategies.NewOpenOnce(strategies.Params{Granularity: market.GranularityDaily, PositionPct: pct}),
			}
			return r.Run(ctx)
		}}
	}

	jobs := []Job{newJob("a", 10), newJob("b", 20), newJob("c", 10)}
	results := RunParallel(context.Background(), jobs, 2)

	require.Len(t, results, 3)
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, jobs[i].Name, res.Name)
		assert.Equal(t, jobs[i].Name, res.Result.RunID)
		assert.Equal(t, 1, res.Result.Deals)
	}
	assert.Equal(t, results[0].Result.Equity, results[2].Result.Equity, "same inputs, same curve")
	assert.NotEqual(t, results[0].Result.EndCapital, results[1].Result.EndCapital)
}

func TestRunParallel_FailureDoesNotCancelOthers(t *testing.T) {
	t.Parallel()

	var done atomic.Int32
	jobs := []Job{
		{Name: "fail", Run: func(context.Context) (Result, error) {
			return Result{}, errors.New("boom")
		}},
		{Name: "slow", Run: func(ctx context.Context) (Result, error) {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(20 * time.Millisecond):
			}
			done.Add(1)
			return Result{RunID: "slow"}, nil
		}},
	}

	results := RunParallel(context.Background(), jobs, 0)
	require.Len(t, results, 2)
	assert.EqualError(t, results[0].Err, "boom")
	assert.NoError(t, results[1].Err)
	assert.Equal(t, int32(1), done.Load())
}

func TestRunParallel_Limit(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	job := Job{Run: func(context.Context) (Result, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return Result{}, nil
	}}

	jobs := make([]Job, 8)
	for i := range jobs {
		jobs[i] = job
	}
	RunParallel(context.Background(), jobs, 3)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}
