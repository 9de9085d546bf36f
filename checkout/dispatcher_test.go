package checkout

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ExpectedCompletion_PrefersFasterIdleServer(t *testing.T) {
	loads := []ServerLoad{
		{ServerID: 1, Rate: 1.0},
		{ServerID: 2, Rate: 2.0},
	}

	assert.InDelta(t, 10.0, ExpectedWait(loads[0], 10), 1e-9)
	assert.InDelta(t, 20.0, ExpectedWait(loads[1], 10), 1e-9)
	assert.Equal(t, 0, ExpectedCompletion{}.Choose(loads, 10))
}

func Test_ExpectedCompletion_AccountsForQueuedBacklog(t *testing.T) {
	loads := []ServerLoad{
		{ServerID: 1, Rate: 1.0, QueueLen: 10, QueuedItems: 100},
		{ServerID: 2, Rate: 1.0},
	}

	assert.InDelta(t, 101.0, ExpectedWait(loads[0], 1), 1e-9)
	assert.InDelta(t, 1.0, ExpectedWait(loads[1], 1), 1e-9)
	assert.Equal(t, 1, ExpectedCompletion{}.Choose(loads, 1))
}

func Test_ExpectedCompletion_AccountsForCustomerInService(t *testing.T) {
	loads := []ServerLoad{
		// 10 items at 1 s/item, 4 s in: 6 s left.
		{ServerID: 1, Rate: 1.0, Serving: true, CurrentItems: 10, Elapsed: 4},
		{ServerID: 2, Rate: 1.5},
	}

	assert.InDelta(t, 6.0, loads[0].RemainingTime(), 1e-9)
	assert.InDelta(t, 8.0, ExpectedWait(loads[0], 2), 1e-9)
	assert.InDelta(t, 3.0, ExpectedWait(loads[1], 2), 1e-9)
	assert.Equal(t, 1, ExpectedCompletion{}.Choose(loads, 2))
}

func Test_ServerLoad_RemainingTimeNeverNegative(t *testing.T) {
	overdue := ServerLoad{Rate: 1.0, Serving: true, CurrentItems: 2, Elapsed: 30}
	idle := ServerLoad{Rate: 1.0, CurrentItems: 5}

	assert.Zero(t, overdue.RemainingTime())
	assert.Zero(t, idle.RemainingTime())
}

func Test_ExpectedCompletion_TiesGoToFirstServer(t *testing.T) {
	loads := []ServerLoad{
		{ServerID: 1, Rate: 2.0, QueuedItems: 1},
		{ServerID: 2, Rate: 1.0, QueuedItems: 4},
		{ServerID: 3, Rate: 1.0, QueuedItems: 4},
	}

	// All three expect 6 s for a 2-item customer.
	assert.Equal(t, 0, ExpectedCompletion{}.Choose(loads, 2))
}

func Test_ExpectedCompletion_IsDeterministic(t *testing.T) {
	loads := []ServerLoad{
		{ServerID: 1, Rate: 0.9, QueuedItems: 12, Serving: true, CurrentItems: 3, Elapsed: 1.2},
		{ServerID: 2, Rate: 0.8, QueuedItems: 14},
		{ServerID: 3, Rate: 1.3, QueuedItems: 5, Serving: true, CurrentItems: 9, Elapsed: 0.4},
	}

	first := ExpectedCompletion{}.Choose(loads, 7)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, ExpectedCompletion{}.Choose(loads, 7))
	}
}

func Test_Policies_ReturnNoAssignmentWithoutServers(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	assert.Equal(t, -1, ExpectedCompletion{}.Choose(nil, 3))
	assert.Equal(t, -1, ShortestQueue{}.Choose(nil, 3))
	assert.Equal(t, -1, SampledShortestQueue{D: 2, Rand: rnd}.Choose(nil, 3))
	assert.Nil(t, BestServerFor(NewCustomer(1, 3), nil, time.Now()))
}

func Test_ShortestQueue_IgnoresRatesAndWorkload(t *testing.T) {
	loads := []ServerLoad{
		{ServerID: 1, Rate: 0.1, QueueLen: 3, QueuedItems: 3},
		{ServerID: 2, Rate: 5.0, QueueLen: 1, QueuedItems: 40},
		{ServerID: 3, Rate: 1.0, QueueLen: 1},
	}

	assert.Equal(t, 1, ShortestQueue{}.Choose(loads, 10))
}

func Test_SampledShortestQueue_FullSampleMatchesShortestQueue(t *testing.T) {
	loads := []ServerLoad{
		{QueueLen: 4}, {QueueLen: 2}, {QueueLen: 7}, {QueueLen: 2},
	}
	policy := SampledShortestQueue{D: len(loads), Rand: rand.New(rand.NewSource(7))}

	for i := 0; i < 20; i++ {
		got := policy.Choose(loads, 1)
		assert.Equal(t, 2, loads[got].QueueLen)
	}
	assert.Equal(t, "sq4", policy.Name())
}

func Test_SampledShortestQueue_SingleSampleIsUniformRandom(t *testing.T) {
	loads := make([]ServerLoad, 4)
	policy := SampledShortestQueue{D: 1, Rand: rand.New(rand.NewSource(3))}

	hits := make([]int, len(loads))
	for i := 0; i < 400; i++ {
		got := policy.Choose(loads, 1)
		require.GreaterOrEqual(t, got, 0)
		require.Less(t, got, len(loads))
		hits[got]++
	}
	for i, n := range hits {
		assert.Positive(t, n, "server %d never picked", i)
	}
	assert.Equal(t, "random", policy.Name())
}

func Test_ParsePolicy(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	for name, want := range map[string]string{
		"":         "expected",
		"expected": "expected",
		"shortest": "shortest",
		"random":   "random",
		"sq2":      "sq2",
	} {
		p, err := ParsePolicy(name, rnd)
		require.NoError(t, err, name)
		assert.Equal(t, want, p.Name())
	}

	_, err := ParsePolicy("round-robin", rnd)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func Test_BestServerFor_ScoresLiveServers(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	a := NewServer(1, KindCounter, 1, 1.0)
	b := NewServer(2, KindKiosk, 1, 1.0)

	// 100 items of backlog in front of a.
	for i := 0; i < 10; i++ {
		a.enqueue(NewCustomer(i+1, 10), now)
	}

	got := BestServerFor(NewCustomer(99, 1), []*Server{a, b}, now)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ID())
}

func Test_BestServerFor_UsesElapsedServiceTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	a := NewServer(1, KindCounter, 1, 1.0)
	b := NewServer(2, KindCounter, 2, 1.0)

	busy := NewCustomer(1, 10)
	a.enqueue(busy, start)
	c, ok := a.queue.Dequeue()
	require.True(t, ok)
	_, ok = c.beginService(a.ID())
	require.True(t, ok)
	a.current = c
	c.startService(start)

	b.enqueue(NewCustomer(2, 3), start)

	// At +5s a has 5 s left, b has 3 s of backlog: b wins for a 1-item customer.
	got := BestServerFor(NewCustomer(3, 1), []*Server{a, b}, start.Add(5*time.Second))
	assert.Equal(t, 2, got.ID())

	// At +9s a has 1 s left and beats b's 3 s.
	got = BestServerFor(NewCustomer(4, 1), []*Server{a, b}, start.Add(9*time.Second))
	assert.Equal(t, 1, got.ID())
}
