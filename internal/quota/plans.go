package quota

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/example/twiller/internal/common"
	"github.com/example/twiller/internal/models"
)

// Currency of plan prices.
const Currency = "INR"

// Plan describes a subscription tier.
type Plan struct {
	Tier   models.PlanTier `json:"tier"`
	Name   string          `json:"name"`
	Tweets int             `json:"tweets"`
	Price  decimal.Decimal `json:"price"`
}

var catalog = map[models.PlanTier]Plan{
	models.PlanFree:   {Tier: models.PlanFree, Name: "Free", Tweets: 1, Price: decimal.Zero},
	models.PlanBronze: {Tier: models.PlanBronze, Name: "Bronze", Tweets: 3, Price: decimal.NewFromInt(100)},
	models.PlanSilver: {Tier: models.PlanSilver, Name: "Silver", Tweets: 5, Price: decimal.NewFromInt(300)},
	models.PlanGold:   {Tier: models.PlanGold, Name: "Gold", Tweets: models.UnlimitedTweets, Price: decimal.NewFromInt(1000)},
}

// LookupPlan returns the plan for tier or a wrapped common.ErrUnsupportedPlan.
func LookupPlan(tier models.PlanTier) (Plan, error) {
	plan, ok := catalog[tier]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", common.ErrUnsupportedPlan, tier)
	}
	return plan, nil
}

// Plans returns the catalog ordered by price.
func Plans() []Plan {
	plans := make([]Plan, 0, len(catalog))
	for _, p := range catalog {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].Price.LessThan(plans[j].Price)
	})
	return plans
}
