package ledger

import (
	"context"
	"fmt"
	"time"

	"expensed/internal/core"
	"expensed/internal/storage"
)

// ExpenseView is the serialized form of an expense in tool responses.
// Listings carry a calendar date; recency-sensitive listings carry a
// time-of-day or a full timestamp instead.
type ExpenseView struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date,omitempty"`
	Time        string  `json:"time,omitempty"`
	Description string  `json:"description"`
}

type (
	// CategoryListResult is the response of a by-category listing.
	CategoryListResult struct {
		Category      string        `json:"category"`
		TotalExpenses int           `json:"total_expenses"`
		TotalAmount   float64       `json:"total_amount"`
		Expenses      []ExpenseView `json:"expenses"`
	}

	// FindCriteria echoes the search inputs in the response.
	FindCriteria struct {
		SearchTerm string   `json:"search_term,omitempty"`
		MinAmount  *float64 `json:"min_amount,omitempty"`
		MaxAmount  *float64 `json:"max_amount,omitempty"`
		DaysBack   *int     `json:"days_back,omitempty"`
	}

	// FindResult is the response of a flexible search.
	FindResult struct {
		SearchCriteria FindCriteria  `json:"search_criteria"`
		TotalFound     int           `json:"total_found"`
		TotalAmount    float64       `json:"total_amount"`
		Expenses       []ExpenseView `json:"expenses"`
	}

	// TodayResult is the response of the current-day listing.
	TodayResult struct {
		Date          string        `json:"date"`
		TotalExpenses int           `json:"total_expenses"`
		TotalAmount   float64       `json:"total_amount"`
		Expenses      []ExpenseView `json:"expenses"`
	}

	// RecentResult is the response of the most-recent listing.
	RecentResult struct {
		RecentExpensesCount int           `json:"recent_expenses_count"`
		TotalAmountRecent   float64       `json:"total_amount_recent"`
		Expenses            []ExpenseView `json:"expenses"`
	}
)

// List returns all of the owner's expenses, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]ExpenseView, error) {
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return dateViews(expenses), nil
}

// ByCategory returns the owner's expenses matching the category exactly,
// with their total sum.
func (s *Service) ByCategory(ctx context.Context, userID, category string) (CategoryListResult, error) {
	expenses, err := s.store.ListByCategory(ctx, userID, category)
	if err != nil {
		return CategoryListResult{}, fmt.Errorf("list by category: %w", err)
	}

	return CategoryListResult{
		Category:      category,
		TotalExpenses: len(expenses),
		TotalAmount:   sum(expenses),
		Expenses:      dateViews(expenses),
	}, nil
}

// FindOptions holds the optional search criteria. All present criteria must
// match (logical AND); no criteria degenerates to a full listing.
type FindOptions struct {
	SearchTerm string
	MinAmount  *float64
	MaxAmount  *float64
	DaysBack   *int
}

// Find searches the owner's expenses with flexible criteria.
func (s *Service) Find(ctx context.Context, userID string, opts FindOptions) (FindResult, error) {
	filter := storage.Filter{
		Term:      opts.SearchTerm,
		MinAmount: opts.MinAmount,
		MaxAmount: opts.MaxAmount,
	}
	if opts.DaysBack != nil {
		cutoff := s.now().AddDate(0, 0, -*opts.DaysBack)
		filter.Since = &cutoff
	}

	expenses, err := s.store.FindExpenses(ctx, userID, filter)
	if err != nil {
		return FindResult{}, fmt.Errorf("find expenses: %w", err)
	}

	return FindResult{
		SearchCriteria: FindCriteria{
			SearchTerm: opts.SearchTerm,
			MinAmount:  opts.MinAmount,
			MaxAmount:  opts.MaxAmount,
			DaysBack:   opts.DaysBack,
		},
		TotalFound:  len(expenses),
		TotalAmount: sum(expenses),
		Expenses:    dateViews(expenses),
	}, nil
}

// Today returns the owner's expenses within the current calendar day,
// reporting a time-of-day per record instead of a date.
func (s *Service) Today(ctx context.Context, userID string) (TodayResult, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := midnight.AddDate(0, 0, 1)

	expenses, err := s.store.ListBetween(ctx, userID, midnight, tomorrow)
	if err != nil {
		return TodayResult{}, fmt.Errorf("list today: %w", err)
	}

	views := make([]ExpenseView, len(expenses))
	for i, e := range expenses {
		views[i] = ExpenseView{
			ID:          e.ID,
			Category:    e.Category,
			Amount:      e.Amount,
			Time:        e.Date.Format("15:04"),
			Description: e.Description,
		}
	}

	return TodayResult{
		Date:          midnight.Format(core.DateFormat),
		TotalExpenses: len(expenses),
		TotalAmount:   sum(expenses),
		Expenses:      views,
	}, nil
}

// Recent returns the owner's most recent expenses. The limit must be within
// [1, 20] or the call fails with core.ErrInvalidRange.
func (s *Service) Recent(ctx context.Context, userID string, limit int) (RecentResult, error) {
	if limit < 1 || limit > 20 {
		return RecentResult{}, core.ErrInvalidRange
	}

	expenses, err := s.store.ListRecent(ctx, userID, limit)
	if err != nil {
		return RecentResult{}, fmt.Errorf("list recent: %w", err)
	}

	views := make([]ExpenseView, len(expenses))
	for i, e := range expenses {
		views[i] = ExpenseView{
			ID:          e.ID,
			Category:    e.Category,
			Amount:      e.Amount,
			Date:        e.Date.Format(core.DateTimeFormat),
			Description: e.Description,
		}
	}

	return RecentResult{
		RecentExpensesCount: len(expenses),
		TotalAmountRecent:   sum(expenses),
		Expenses:            views,
	}, nil
}

func dateViews(expenses []core.Expense) []ExpenseView {
	views := make([]ExpenseView, len(expenses))
	for i, e := range expenses {
		views[i] = ExpenseView{
			ID:          e.ID,
			Category:    e.Category,
			Amount:      e.Amount,
			Date:        e.Date.Format(core.DateFormat),
			Description: e.Description,
		}
	}
	return views
}

func sum(expenses []core.Expense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}
