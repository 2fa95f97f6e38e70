package judge

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/feedpulse/feedpulse/internal/coordination"
)

// maxBatch is the provider's candidate ceiling per call
const maxBatch = 30

// lockWait is the single wait-and-recheck interval on lock contention
const (
	lockKey  = "judge:batch"
	lockTTL  = 20 * time.Second
	lockWait = 500 * time.Millisecond
)

// Candidate is one news item submitted for batch relevance judgment
type Candidate struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ItemJudgment is the provider's verdict on one candidate
type ItemJudgment struct {
	ID        string  `json:"id"`
	Relevance float64 `json:"relevance"`
	Reason    string  `json:"reason"`
}

// Judgment is a batch verdict. ShortageReason is set when the batch
// could not be (fully) judged; that is a normal state, not an error.
type Judgment struct {
	Items          []ItemJudgment `json:"items"`
	OverallBrief   string         `json:"overall_brief"`
	ShortageReason string         `json:"shortage_reason,omitempty"`
}

// Service calls the LLM judgment provider at most once per cache
// window regardless of request volume, guarded by its own daily budget
// and the stampede lock.
type Service struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	budget   *coordination.BudgetTracker
	lock     *coordination.Lock
	cacheTTL time.Duration

	mu       sync.Mutex
	cached   *Judgment
	cachedAt time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewService creates the judgment service
func NewService(endpoint, apiKey string, cacheTTL time.Duration, budget *coordination.BudgetTracker, lock *coordination.Lock) *Service {
	return &Service{
		client: resty.New().
			SetTimeout(15 * time.Second).
			SetHeader("User-Agent", "feedpulse/1.0"),
		endpoint: endpoint,
		apiKey:   apiKey,
		budget:   budget,
		lock:     lock,
		cacheTTL: cacheTTL,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// JudgeBatch returns the cached judgment when the cache window is
// still open, otherwise computes it under the stampede lock. All
// degraded paths return a well-formed Judgment with a shortage reason.
func (s *Service) JudgeBatch(ctx context.Context, candidates []Candidate) *Judgment {
	if len(candidates) > maxBatch {
		candidates = candidates[:maxBatch]
	}

	if j := s.fromCache(false); j != nil {
		return j
	}

	if s.budget.Exceeded(ctx, coordination.SourceJudge) {
		return s.degraded("daily judgment budget exhausted")
	}

	if !s.lock.Acquire(ctx, lockKey, lockTTL) {
		// Someone else is computing: wait once, recheck, then give up
		s.sleep(lockWait)
		if j := s.fromCache(false); j != nil {
			return j
		}
		return s.degraded("judgment in progress elsewhere")
	}
	defer s.lock.Release(ctx, lockKey)

	judgment, err := s.call(ctx, candidates)
	if err != nil {
		logrus.Errorf("Judgment call failed: %v", err)
		return s.degraded("judgment provider unavailable")
	}

	s.budget.Increment(ctx, coordination.SourceJudge)

	s.mu.Lock()
	s.cached = judgment
	s.cachedAt = s.now()
	s.mu.Unlock()

	return judgment
}

// fromCache returns the cached judgment; stale entries only when asked
func (s *Service) fromCache(allowStale bool) *Judgment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil {
		return nil
	}
	if !allowStale && s.now().Sub(s.cachedAt) > s.cacheTTL {
		return nil
	}
	return s.cached
}

// degraded falls back to the stale cache when one exists, else to an
// empty judgment carrying the reason
func (s *Service) degraded(reason string) *Judgment {
	if j := s.fromCache(true); j != nil {
		return j
	}
	return &Judgment{ShortageReason: reason}
}

func (s *Service) call(ctx context.Context, candidates []Candidate) (*Judgment, error) {
	var judgment Judgment
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.apiKey).
		SetBody(map[string]interface{}{"candidates": candidates}).
		SetResult(&judgment).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("judge request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("judge provider returned status %d", resp.StatusCode())
	}
	return &judgment, nil
}
