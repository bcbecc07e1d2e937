// Package ledger implements the expense ledger engines: repository glue,
// query and filtering, report aggregation, budget alerting, and the
// quick-add parser. Every operation takes the owner's user id explicitly;
// there is no ambient identity.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expensed/internal/cache"
	"expensed/internal/core"
	"expensed/internal/events"
	"expensed/internal/storage"
)

// Service orchestrates ledger operations across the record store, the
// report cache, and the event publisher.
type Service struct {
	store   *storage.Repository
	events  *events.Client
	reports *cache.LRUCache[any]
	now     func() time.Time
}

// NewService creates a ledger service. The events client and report cache
// are optional; nil disables event publishing or caching respectively.
func NewService(store *storage.Repository, eventsClient *events.Client, reportCache *cache.LRUCache[any]) *Service {
	return &Service{
		store:   store,
		events:  eventsClient,
		reports: reportCache,
		now:     time.Now,
	}
}

// Add inserts a new expense dated at local midnight of the given
// YYYY-MM-DD string and returns the new id.
func (s *Service) Add(ctx context.Context, userID, category string, amount float64, date, description string) (string, error) {
	when, err := core.ParseDate(date)
	if err != nil {
		return "", err
	}
	return s.AddAt(ctx, userID, category, amount, when, description)
}

// AddAt inserts a new expense with a full timestamp. Quick-add uses it with
// the current moment.
func (s *Service) AddAt(ctx context.Context, userID, category string, amount float64, when time.Time, description string) (string, error) {
	id, err := s.store.InsertExpense(ctx, core.Expense{
		UserID:      userID,
		Category:    category,
		Amount:      amount,
		Date:        when,
		Description: description,
	})
	if err != nil {
		return "", fmt.Errorf("add expense: %w", err)
	}

	s.invalidate(userID)
	s.publish(ctx, events.TypeExpenseCreated, id, userID)
	return id, nil
}

// Get returns the owner's expense, or core.ErrNotFound.
func (s *Service) Get(ctx context.Context, userID, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, userID, id)
}

// Update applies a partial field replace. An empty update is a no-op
// success: it returns (false, nil) meaning there was nothing to update.
// A missing record fails with core.ErrNotFound.
func (s *Service) Update(ctx context.Context, userID, id string, upd storage.ExpenseUpdate) (bool, error) {
	if upd.IsEmpty() {
		return false, nil
	}

	matched, err := s.store.UpdateExpense(ctx, userID, id, upd)
	if err != nil {
		return false, fmt.Errorf("update expense: %w", err)
	}
	if !matched {
		return false, core.ErrNotFound
	}

	s.invalidate(userID)
	s.publish(ctx, events.TypeExpenseUpdated, id, userID)
	return true, nil
}

// Delete removes the owner's expense, or fails with core.ErrNotFound.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	matched, err := s.store.DeleteExpense(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if !matched {
		return core.ErrNotFound
	}

	s.invalidate(userID)
	s.publish(ctx, events.TypeExpenseDeleted, id, userID)
	return nil
}

// Duplicate copies the owner's expense into a new record. Category and
// description carry over (the description marked as a copy); amount and date
// are overridden when supplied, otherwise the amount is copied and the date
// defaults to the current moment, not the original date.
func (s *Service) Duplicate(ctx context.Context, userID, id, newDate string, newAmount *float64) (string, error) {
	original, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return "", err
	}

	when := s.now()
	if newDate != "" {
		when, err = core.ParseDate(newDate)
		if err != nil {
			return "", err
		}
	}

	amount := original.Amount
	if newAmount != nil {
		amount = *newAmount
	}

	return s.AddAt(ctx, userID, original.Category, amount, when, original.Description+" (duplicate)")
}

// invalidate drops every cached report belonging to the user.
func (s *Service) invalidate(userID string) {
	if s.reports != nil {
		s.reports.DeletePrefix(userID + ":")
	}
}

// publish sends a lifecycle event. Failures are logged, never propagated:
// the ledger write already succeeded.
func (s *Service) publish(ctx context.Context, eventType, expenseID, userID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseEvent(ctx, eventType, expenseID, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", eventType,
			"expense_id", expenseID,
			"error", err)
	}
}
