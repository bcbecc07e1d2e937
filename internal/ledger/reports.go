package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"expensed/internal/core"
	"expensed/internal/storage"
)

type (
	// MonthlyReport summarizes one calendar month. A TotalExpenses of zero
	// marks an empty report.
	MonthlyReport struct {
		Period            string             `json:"period"`
		TotalExpenses     int                `json:"total_expenses"`
		TotalAmount       float64            `json:"total_amount"`
		CategoryBreakdown map[string]float64 `json:"category_breakdown"`
		Expenses          []ExpenseView      `json:"expenses"`
	}

	// CategorySummary is one row of the all-time summary.
	CategorySummary struct {
		Category    string  `json:"category"`
		TotalAmount float64 `json:"total_amount"`
		Count       int     `json:"count"`
		Percentage  float64 `json:"percentage"`
	}

	// SummaryReport groups all of the owner's expenses by category.
	SummaryReport struct {
		TotalExpenses     int               `json:"total_expenses"`
		TotalAmount       float64           `json:"total_amount"`
		CategoryBreakdown []CategorySummary `json:"category_breakdown"`
	}

	// WeekReport summarizes the current Monday-to-Monday week.
	WeekReport struct {
		WeekPeriod        string             `json:"week_period"`
		TotalAmount       float64            `json:"total_amount"`
		DailyBreakdown    map[string]float64 `json:"daily_breakdown"`
		CategoryBreakdown map[string]float64 `json:"category_breakdown"`
		AveragePerDay     float64            `json:"average_per_day"`
	}

	// TrendCategory is one of the top spending categories in a trend report.
	TrendCategory struct {
		Category          string  `json:"category"`
		TotalSpent        float64 `json:"total_spent"`
		AveragePerExpense float64 `json:"average_per_expense"`
		ExpenseCount      int     `json:"expense_count"`
	}

	// TrendsReport analyzes the last 30 days of spending.
	TrendsReport struct {
		AnalysisPeriod        string             `json:"analysis_period"`
		DailyAverage          float64            `json:"daily_average"`
		WeeklyAverage         float64            `json:"weekly_average"`
		TotalDaysWithExpenses int                `json:"total_days_with_expenses"`
		TopSpendingCategories []TrendCategory    `json:"top_spending_categories"`
		WeeklyBreakdown       map[string]float64 `json:"weekly_breakdown"`
	}
)

// Monthly returns the report for one calendar month. The month must be in
// [1, 12].
func (s *Service) Monthly(ctx context.Context, userID string, year, month int) (MonthlyReport, error) {
	if month < 1 || month > 12 {
		return MonthlyReport{}, core.ErrInvalidDate
	}

	key := fmt.Sprintf("%s:monthly:%04d-%02d", userID, year, month)
	if report, ok := s.cachedReport(key); ok {
		return report.(MonthlyReport), nil
	}

	start, end := monthRange(year, month)
	expenses, err := s.store.ListBetween(ctx, userID, start, end)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("monthly report: %w", err)
	}

	report := buildMonthlyReport(year, month, expenses)
	s.cacheReport(key, report)
	return report, nil
}

// Summary groups all of the owner's expenses by category with percentage
// shares, largest total first.
func (s *Service) Summary(ctx context.Context, userID string) (SummaryReport, error) {
	key := userID + ":summary"
	if report, ok := s.cachedReport(key); ok {
		return report.(SummaryReport), nil
	}

	totals, err := s.store.CategoryTotals(ctx, userID)
	if err != nil {
		return SummaryReport{}, fmt.Errorf("category totals: %w", err)
	}
	count, err := s.store.CountExpenses(ctx, userID)
	if err != nil {
		return SummaryReport{}, fmt.Errorf("count expenses: %w", err)
	}

	report := buildSummary(totals, count)
	s.cacheReport(key, report)
	return report, nil
}

// Week summarizes the current week, Monday 00:00 through the following
// Monday.
func (s *Service) Week(ctx context.Context, userID string) (WeekReport, error) {
	start := weekStart(s.now())
	end := start.AddDate(0, 0, 7)

	expenses, err := s.store.ListBetween(ctx, userID, start, end)
	if err != nil {
		return WeekReport{}, fmt.Errorf("week summary: %w", err)
	}

	return buildWeekReport(expenses, start), nil
}

// Trends analyzes spending over the last 30 days. It returns nil when the
// window holds no records at all.
func (s *Service) Trends(ctx context.Context, userID string) (*TrendsReport, error) {
	now := s.now()
	cutoff := now.AddDate(0, 0, -30)

	expenses, err := s.store.ListBetween(ctx, userID, cutoff, now.Add(time.Second))
	if err != nil {
		return nil, fmt.Errorf("spending trends: %w", err)
	}
	if len(expenses) == 0 {
		return nil, nil
	}

	report := buildTrends(expenses)
	return &report, nil
}

func (s *Service) cachedReport(key string) (any, bool) {
	if s.reports == nil {
		return nil, false
	}
	return s.reports.Get(key)
}

func (s *Service) cacheReport(key string, report any) {
	if s.reports != nil {
		s.reports.Set(key, report)
	}
}

// monthRange returns [start of month, start of next month). December rolls
// over into January of the next year.
func monthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)

	var end time.Time
	if month == 12 {
		end = time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.Local)
	} else {
		end = time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.Local)
	}
	return start, end
}

// weekStart truncates to the most recent Monday 00:00.
func weekStart(now time.Time) time.Time {
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
}

func buildMonthlyReport(year, month int, expenses []core.Expense) MonthlyReport {
	breakdown := make(map[string]float64)
	var total float64
	for _, e := range expenses {
		breakdown[e.Category] += e.Amount
		total += e.Amount
	}

	return MonthlyReport{
		Period:            fmt.Sprintf("%04d-%02d", year, month),
		TotalExpenses:     len(expenses),
		TotalAmount:       total,
		CategoryBreakdown: breakdown,
		Expenses:          dateViews(expenses),
	}
}

func buildSummary(totals []storage.CategoryTotal, count int) SummaryReport {
	var grand float64
	for _, ct := range totals {
		grand += ct.Total
	}

	breakdown := make([]CategorySummary, len(totals))
	for i, ct := range totals {
		pct := 0.0
		if grand > 0 {
			pct = round2(ct.Total / grand * 100)
		}
		breakdown[i] = CategorySummary{
			Category:    ct.Category,
			TotalAmount: ct.Total,
			Count:       ct.Count,
			Percentage:  pct,
		}
	}

	return SummaryReport{
		TotalExpenses:     count,
		TotalAmount:       grand,
		CategoryBreakdown: breakdown,
	}
}

func buildWeekReport(expenses []core.Expense, start time.Time) WeekReport {
	daily := make(map[string]float64)
	byCategory := make(map[string]float64)
	var total float64

	for _, e := range expenses {
		daily[e.Date.Weekday().String()] += e.Amount
		byCategory[e.Category] += e.Amount
		total += e.Amount
	}

	end := start.AddDate(0, 0, 6)
	return WeekReport{
		WeekPeriod:        start.Format(core.DateFormat) + " to " + end.Format(core.DateFormat),
		TotalAmount:       total,
		DailyBreakdown:    daily,
		CategoryBreakdown: byCategory,
		// Always divided by the full week, not by the days with activity.
		AveragePerDay: round2(total / 7),
	}
}

func buildTrends(expenses []core.Expense) TrendsReport {
	weekly := make(map[string]float64)
	daily := make(map[string]float64)
	categoryTotals := make(map[string]float64)
	categoryCounts := make(map[string]int)

	for _, e := range expenses {
		year, week := e.Date.ISOWeek()
		weekly[fmt.Sprintf("%04d-W%02d", year, week)] += e.Amount
		daily[e.Date.Format(core.DateFormat)] += e.Amount
		categoryTotals[e.Category] += e.Amount
		categoryCounts[e.Category]++
	}

	var weeklySum, dailySum float64
	for _, v := range weekly {
		weeklySum += v
	}
	for _, v := range daily {
		dailySum += v
	}

	top := make([]TrendCategory, 0, len(categoryTotals))
	for category, totalSpent := range categoryTotals {
		count := categoryCounts[category]
		top = append(top, TrendCategory{
			Category:          category,
			TotalSpent:        totalSpent,
			AveragePerExpense: round2(totalSpent / float64(count)),
			ExpenseCount:      count,
		})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].TotalSpent != top[j].TotalSpent {
			return top[i].TotalSpent > top[j].TotalSpent
		}
		return top[i].Category < top[j].Category
	})
	if len(top) > 5 {
		top = top[:5]
	}

	return TrendsReport{
		AnalysisPeriod:        "30 days",
		DailyAverage:          round2(dailySum / float64(len(daily))),
		WeeklyAverage:         round2(weeklySum / float64(len(weekly))),
		TotalDaysWithExpenses: len(daily),
		TopSpendingCategories: top,
		WeeklyBreakdown:       weekly,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
