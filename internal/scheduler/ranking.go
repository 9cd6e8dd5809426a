package scheduler

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/time/rate"
)

// RankedCandidate is one scored employee in a ranking response.
type RankedCandidate struct {
	EmployeeID string
	Score      float64
}

// Ranking is a ranking provider's response: candidates in descending
// preference plus the provider's confidence in the ordering.
type Ranking struct {
	Candidates []RankedCandidate
	Confidence float64
}

// Ranker scores candidate employees for an event. Implementations may call
// out over the network; the engine bounds every call with a timeout and
// falls back to deterministic ordering on error, timeout, or low confidence.
type Ranker interface {
	Score(ctx context.Context, ev Event, candidates []Employee) (Ranking, error)
}

// rankingClient wraps the optional ranker with the timeout, throttle, and
// confidence policy from RankingConfig.
type rankingClient struct {
	ranker  Ranker
	cfg     RankingConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

func newRankingClient(ranker Ranker, cfg RankingConfig, logger *slog.Logger) *rankingClient {
	client := &rankingClient{ranker: ranker, cfg: cfg, logger: logger}
	if cfg.RatePerSecond > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return client
}

// order returns candidate IDs in placement order. The deterministic fallback
// (seniority, then identifier) applies whenever the ranker is absent,
// throttled, errors, times out, omits candidates, or reports confidence
// below the threshold. Ranking failures never fail the run.
func (rc *rankingClient) order(ctx context.Context, ev Event, candidates []Employee) []string {
	fallback := deterministicOrder(candidates)
	if rc == nil || rc.ranker == nil || rc.cfg.Timeout <= 0 {
		return fallback
	}
	if rc.limiter != nil && !rc.limiter.Allow() {
		rc.debug("ranking throttled", "event", ev.ID)
		return fallback
	}

	scoreCtx, cancel := context.WithTimeout(ctx, rc.cfg.Timeout)
	defer cancel()

	ranking, err := rc.ranker.Score(scoreCtx, ev, candidates)
	if err != nil {
		rc.debug("ranking unavailable, using fallback order", "event", ev.ID, "error", err)
		return fallback
	}
	if ranking.Confidence < rc.cfg.MinConfidence {
		rc.debug("ranking confidence below threshold", "event", ev.ID, "confidence", ranking.Confidence)
		return fallback
	}

	known := make(map[string]bool, len(candidates))
	for _, emp := range candidates {
		known[emp.ID] = true
	}
	ordered := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, cand := range ranking.Candidates {
		if known[cand.EmployeeID] && !seen[cand.EmployeeID] {
			ordered = append(ordered, cand.EmployeeID)
			seen[cand.EmployeeID] = true
		}
	}
	// Candidates the provider omitted keep their deterministic order at
	// the tail.
	for _, id := range fallback {
		if !seen[id] {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

func (rc *rankingClient) debug(msg string, args ...any) {
	if rc.logger != nil {
		rc.logger.Debug(msg, args...)
	}
}

// deterministicOrder sorts candidates by hire date ascending, then ID.
func deterministicOrder(candidates []Employee) []string {
	sorted := make([]Employee, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].HireDate != sorted[j].HireDate {
			return sorted[i].HireDate.Before(sorted[j].HireDate)
		}
		return sorted[i].ID < sorted[j].ID
	})
	ids := make([]string, len(sorted))
	for i, emp := range sorted {
		ids[i] = emp.ID
	}
	return ids
}
