package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type rankerStub struct {
	ranking Ranking
	err     error
	calls   int
}

func (r *rankerStub) Score(ctx context.Context, ev Event, candidates []Employee) (Ranking, error) {
	r.calls++
	if r.err != nil {
		return Ranking{}, r.err
	}
	return r.ranking, nil
}

func rankingPool() []Employee {
	return []Employee{
		{ID: "carol", HireDate: Date{Year: 2023, Month: time.June, Day: 1}},
		{ID: "alice", HireDate: Date{Year: 2019, Month: time.January, Day: 6}},
		{ID: "bob", HireDate: Date{Year: 2021, Month: time.April, Day: 12}},
	}
}

func TestDeterministicOrder(t *testing.T) {
	t.Parallel()

	got := deterministicOrder(rankingPool())
	want := []string{"alice", "bob", "carol"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	t.Run("ties break on identifier", func(t *testing.T) {
		hired := Date{Year: 2020, Month: time.May, Day: 4}
		got := deterministicOrder([]Employee{{ID: "zoe", HireDate: hired}, {ID: "ana", HireDate: hired}})
		if got[0] != "ana" || got[1] != "zoe" {
			t.Fatalf("tie order = %v", got)
		}
	})
}

func TestRankingClient_FallbackPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fallback := []string{"alice", "bob", "carol"}

	assertOrder := func(t *testing.T, got, want []string) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("order = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("order = %v, want %v", got, want)
			}
		}
	}

	t.Run("no ranker configured", func(t *testing.T) {
		client := newRankingClient(nil, RankingConfig{Timeout: time.Second}, nil)
		assertOrder(t, client.order(ctx, Event{ID: "ev-1"}, rankingPool()), fallback)
	})

	t.Run("zero timeout disables the ranker", func(t *testing.T) {
		stub := &rankerStub{ranking: Ranking{Confidence: 1}}
		client := newRankingClient(stub, RankingConfig{}, nil)
		assertOrder(t, client.order(ctx, Event{ID: "ev-1"}, rankingPool()), fallback)
		if stub.calls != 0 {
			t.Fatalf("ranker called %d times with ranking disabled", stub.calls)
		}
	})

	t.Run("provider error falls back", func(t *testing.T) {
		stub := &rankerStub{err: errors.New("ranker down")}
		client := newRankingClient(stub, RankingConfig{Timeout: time.Second, MinConfidence: 0.5}, nil)
		assertOrder(t, client.order(ctx, Event{ID: "ev-1"}, rankingPool()), fallback)
	})

	t.Run("low confidence falls back", func(t *testing.T) {
		stub := &rankerStub{ranking: Ranking{
			Candidates: []RankedCandidate{{EmployeeID: "carol", Score: 0.9}},
			Confidence: 0.2,
		}}
		client := newRankingClient(stub, RankingConfig{Timeout: time.Second, MinConfidence: 0.5}, nil)
		assertOrder(t, client.order(ctx, Event{ID: "ev-1"}, rankingPool()), fallback)
	})

	t.Run("throttled call falls back without scoring", func(t *testing.T) {
		stub := &rankerStub{ranking: Ranking{
			Candidates: []RankedCandidate{{EmployeeID: "carol", Score: 0.9}},
			Confidence: 0.9,
		}}
		client := newRankingClient(stub, RankingConfig{Timeout: time.Second, MinConfidence: 0.5, RatePerSecond: 0.001}, nil)
		client.order(ctx, Event{ID: "ev-1"}, rankingPool())
		assertOrder(t, client.order(ctx, Event{ID: "ev-2"}, rankingPool()), fallback)
		if stub.calls != 1 {
			t.Fatalf("expected exactly one scored call, got %d", stub.calls)
		}
	})
}

func TestRankingClient_UsesRankedOrder(t *testing.T) {
	t.Parallel()

	stub := &rankerStub{ranking: Ranking{
		Candidates: []RankedCandidate{
			{EmployeeID: "carol", Score: 0.9},
			{EmployeeID: "ghost", Score: 0.8}, // not in the pool
			{EmployeeID: "bob", Score: 0.7},
		},
		Confidence: 0.9,
	}}
	client := newRankingClient(stub, RankingConfig{Timeout: time.Second, MinConfidence: 0.5}, nil)

	got := client.order(context.Background(), Event{ID: "ev-1"}, rankingPool())
	want := []string{"carol", "bob", "alice"}
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
