package coordination

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Budget sources. Each has an independent daily ceiling and counter.
const (
	SourceSearch = "search"
	SourceDeals  = "deals"
	SourceGossip = "gossip"
	SourceJudge  = "judge"
)

// counterTTL is deliberately longer than 24h so a counter never
// expires before its calendar day has fully passed
const counterTTL = 25 * time.Hour

// BudgetTracker gates external API calls with per-source daily counters
// keyed by (source, calendar day in the reference timezone). It fails
// open when the backing store is unavailable: availability of the feed
// matters more than perfect quota enforcement.
type BudgetTracker struct {
	store   Store
	loc     *time.Location
	budgets map[string]int
	now     func() time.Time
}

// NewBudgetTracker creates a budget tracker with per-source ceilings
func NewBudgetTracker(store Store, loc *time.Location, budgets map[string]int) *BudgetTracker {
	return &BudgetTracker{
		store:   store,
		loc:     loc,
		budgets: budgets,
		now:     time.Now,
	}
}

func (b *BudgetTracker) key(source string) string {
	day := b.now().In(b.loc).Format("2006-01-02")
	return "budget:" + source + ":" + day
}

// Exceeded reports whether the source has used up today's budget.
// A missing counter or an unavailable store both read as "not exceeded".
func (b *BudgetTracker) Exceeded(ctx context.Context, source string) bool {
	budget, ok := b.budgets[source]
	if !ok {
		return false
	}

	val, found, err := b.store.Get(ctx, b.key(source))
	if err != nil {
		logrus.Warnf("Budget check for %s failed, failing open: %v", source, err)
		return false
	}
	if !found {
		return false
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return false
	}
	return count >= budget
}

// Increment records one successful external call and returns the new
// count. Callers increment only after the call succeeds.
func (b *BudgetTracker) Increment(ctx context.Context, source string) int64 {
	count, err := b.store.IncrWithTTL(ctx, b.key(source), counterTTL)
	if err != nil {
		logrus.Warnf("Budget increment for %s failed, failing open: %v", source, err)
		return 0
	}
	return count
}
