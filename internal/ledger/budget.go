package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"expensed/internal/core"
)

// Budget period selectors.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// BudgetReport compares period spend in a category against a monthly budget
// scaled to the period.
type BudgetReport struct {
	Category        string  `json:"category"`
	Period          string  `json:"period"`
	BudgetLimit     float64 `json:"budget_limit"`
	AmountSpent     float64 `json:"amount_spent"`
	RemainingBudget float64 `json:"remaining_budget"`
	PercentageUsed  float64 `json:"percentage_used"`
	Status          string  `json:"status"`
	DaysInPeriod    int     `json:"days_in_period"`
	ExpenseCount    int     `json:"expense_count"`
}

// Budget status strings, most severe first.
const (
	StatusOverBudget = "OVER BUDGET"
	StatusWarning    = "WARNING - Close to limit"
	StatusCaution    = "CAUTION - 60% used"
	StatusOK         = "OK"
)

// CheckBudget evaluates the owner's spend in a category for the given
// period against a monthly budget. The period is validated before any store
// access.
func (s *Service) CheckBudget(ctx context.Context, userID, category string, monthlyBudget float64, period string) (BudgetReport, error) {
	now := s.now()
	start, budget, err := budgetWindow(period, monthlyBudget, now)
	if err != nil {
		return BudgetReport{}, err
	}

	spent, count, err := s.store.SumCategorySince(ctx, userID, category, start)
	if err != nil {
		return BudgetReport{}, fmt.Errorf("check budget: %w", err)
	}

	pct := 0.0
	if budget > 0 {
		pct = spent / budget * 100
	}

	return BudgetReport{
		Category:        category,
		Period:          period,
		BudgetLimit:     budget,
		AmountSpent:     spent,
		RemainingBudget: budget - spent,
		PercentageUsed:  round1(pct),
		Status:          budgetStatus(pct),
		DaysInPeriod:    int(now.Sub(start).Hours()/24) + 1,
		ExpenseCount:    count,
	}, nil
}

// budgetWindow returns the window start and the monthly budget scaled to
// the period: a quarter for a week, twelvefold for a year.
func budgetWindow(period string, monthlyBudget float64, now time.Time) (time.Time, float64, error) {
	switch period {
	case PeriodWeek:
		return weekStart(now), monthlyBudget / 4, nil
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), monthlyBudget, nil
	case PeriodYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), monthlyBudget * 12, nil
	default:
		return time.Time{}, 0, core.ErrInvalidPeriod
	}
}

// budgetStatus maps a usage percentage to a status, evaluated top-down with
// the first match winning.
func budgetStatus(pct float64) string {
	switch {
	case pct >= 100:
		return StatusOverBudget
	case pct >= 80:
		return StatusWarning
	case pct >= 60:
		return StatusCaution
	default:
		return StatusOK
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
