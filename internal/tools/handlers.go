package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensed/internal/core"
	"expensed/internal/ledger"
	"expensed/internal/session"
	"expensed/internal/storage"
)

// registerAll wires the complete tool catalog.
func (s *Server) registerAll() {
	s.register("register", "Register a new user with username and password", false, s.handleRegister)
	s.register("login", "Log in with username and password", false, s.handleLogin)
	s.register("logout", "Log out the current user", true, s.handleLogout)

	s.register("add_expense", "Add a new expense for the logged-in user", true, s.handleAddExpense)
	s.register("get_my_expenses", "Get all expenses for the logged-in user", true, s.handleGetExpenses)
	s.register("get_my_expense_by_id", "Get a specific expense by ID for the logged-in user", true, s.handleGetExpenseByID)
	s.register("update_my_expense", "Update an expense by ID for the logged-in user", true, s.handleUpdateExpense)
	s.register("delete_my_expense", "Delete an expense by ID for the logged-in user", true, s.handleDeleteExpense)
	s.register("duplicate_my_expense", "Duplicate an existing expense for the logged-in user", true, s.handleDuplicateExpense)

	s.register("get_my_expenses_by_category", "Get expenses by category for the logged-in user", true, s.handleExpensesByCategory)
	s.register("find_my_expenses", "Search expenses by description, category, or amount range for the logged-in user", true, s.handleFindExpenses)
	s.register("get_my_recent_expenses", "Get the most recent expenses for the logged-in user", true, s.handleRecentExpenses)
	s.register("get_my_today_expenses", "Get all expenses for today for the logged-in user", true, s.handleTodayExpenses)

	s.register("get_my_monthly_report", "Get monthly expense report for the logged-in user", true, s.handleMonthlyReport)
	s.register("get_my_expense_summary", "Get a summary of all expenses with totals by category for the logged-in user", true, s.handleExpenseSummary)
	s.register("get_my_week_summary", "Get expenses summary for the current week for the logged-in user", true, s.handleWeekSummary)
	s.register("get_my_spending_trends", "Analyze spending patterns and trends over time for the logged-in user", true, s.handleSpendingTrends)

	s.register("set_my_budget_alert", "Check if spending exceeds budget limits for the logged-in user", true, s.handleBudgetAlert)
	s.register("quick_add_expense", "Quickly add an expense with today's date using natural language like 'lunch $15' or 'gas 45.50'", true, s.handleQuickAdd)

	s.register("calculator", "Evaluate a mathematical expression", false, s.handleCalculator)
}

func (s *Server) handleRegister(ctx context.Context, _ session.Session, args Args) (any, error) {
	username := args.String("username")
	password := args.String("password")
	if username == "" || password == "" {
		return "Both username and password are required.", nil
	}

	user, err := s.sessions.Register(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("User '%s' registered successfully. Please log in.", user.Username), nil
}

// loginResult carries the bearer token that must accompany every
// authenticated tool call.
type loginResult struct {
	Message   string `json:"message"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (s *Server) handleLogin(ctx context.Context, _ session.Session, args Args) (any, error) {
	username := args.String("username")
	password := args.String("password")
	if username == "" || password == "" {
		return "Both username and password are required.", nil
	}

	sess, err := s.sessions.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return loginResult{
		Message:   fmt.Sprintf("Logged in as %s.", sess.Username),
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.Format(time.RFC3339),
	}, nil
}

func (s *Server) handleLogout(_ context.Context, sess session.Session, _ Args) (any, error) {
	s.sessions.Logout(sess.Token)
	return "Logged out.", nil
}

func (s *Server) handleAddExpense(ctx context.Context, sess session.Session, args Args) (any, error) {
	category := args.String("category")
	date := args.String("date")
	description := args.String("description")
	amount, hasAmount := args.Float("amount")
	if category == "" || date == "" || !hasAmount {
		return "category, amount, and date are required.", nil
	}

	id, err := s.ledger.Add(ctx, sess.UserID, category, amount, date, description)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Expense added for %s with ID: %s", sess.Username, id), nil
}

func (s *Server) handleGetExpenses(ctx context.Context, sess session.Session, _ Args) (any, error) {
	expenses, err := s.ledger.List(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return "No expenses found.", nil
	}
	return expenses, nil
}

func (s *Server) handleGetExpenseByID(ctx context.Context, sess session.Session, args Args) (any, error) {
	id := args.String("expense_id")
	expense, err := s.ledger.Get(ctx, sess.UserID, id)
	if errors.Is(err, core.ErrNotFound) {
		return notFoundMessage(id), nil
	}
	if err != nil {
		return nil, err
	}

	return ledger.ExpenseView{
		ID:          expense.ID,
		Category:    expense.Category,
		Amount:      expense.Amount,
		Date:        expense.Date.Format(core.DateFormat),
		Description: expense.Description,
	}, nil
}

func (s *Server) handleUpdateExpense(ctx context.Context, sess session.Session, args Args) (any, error) {
	id := args.String("expense_id")

	var upd storage.ExpenseUpdate
	if args.Has("category") {
		category := args.String("category")
		upd.Category = &category
	}
	if amount, ok := args.Float("amount"); ok {
		upd.Amount = &amount
	}
	if args.Has("date") {
		when, err := core.ParseDate(args.String("date"))
		if err != nil {
			return nil, err
		}
		upd.Date = &when
	}
	if args.Has("description") {
		description := args.String("description")
		upd.Description = &description
	}

	updated, err := s.ledger.Update(ctx, sess.UserID, id, upd)
	if errors.Is(err, core.ErrNotFound) {
		return notFoundMessage(id), nil
	}
	if err != nil {
		return nil, err
	}
	if !updated {
		return "No update data provided.", nil
	}
	return "Expense updated.", nil
}

func (s *Server) handleDeleteExpense(ctx context.Context, sess session.Session, args Args) (any, error) {
	id := args.String("expense_id")
	err := s.ledger.Delete(ctx, sess.UserID, id)
	if errors.Is(err, core.ErrNotFound) {
		return notFoundMessage(id), nil
	}
	if err != nil {
		return nil, err
	}
	return "Expense deleted.", nil
}

func (s *Server) handleDuplicateExpense(ctx context.Context, sess session.Session, args Args) (any, error) {
	id := args.String("expense_id")
	newDate := args.String("new_date")

	var newAmount *float64
	if amount, ok := args.Float("new_amount"); ok {
		newAmount = &amount
	}

	newID, err := s.ledger.Duplicate(ctx, sess.UserID, id, newDate, newAmount)
	if errors.Is(err, core.ErrNotFound) {
		return notFoundMessage(id), nil
	}
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Expense duplicated successfully with new ID: %s", newID), nil
}

func (s *Server) handleExpensesByCategory(ctx context.Context, sess session.Session, args Args) (any, error) {
	category := args.String("category")
	result, err := s.ledger.ByCategory(ctx, sess.UserID, category)
	if err != nil {
		return nil, err
	}
	if result.TotalExpenses == 0 {
		return fmt.Sprintf("No expenses found for category: %s.", category), nil
	}
	return result, nil
}

func (s *Server) handleFindExpenses(ctx context.Context, sess session.Session, args Args) (any, error) {
	opts := ledger.FindOptions{SearchTerm: args.String("search_term")}
	if min, ok := args.Float("min_amount"); ok {
		opts.MinAmount = &min
	}
	if max, ok := args.Float("max_amount"); ok {
		opts.MaxAmount = &max
	}
	if days, ok := args.Int("days_back"); ok {
		opts.DaysBack = &days
	}

	result, err := s.ledger.Find(ctx, sess.UserID, opts)
	if err != nil {
		return nil, err
	}
	if result.TotalFound == 0 {
		return "No expenses found matching your criteria.", nil
	}
	return result, nil
}

func (s *Server) handleRecentExpenses(ctx context.Context, sess session.Session, args Args) (any, error) {
	limit := 5
	if n, ok := args.Int("limit"); ok {
		limit = n
	}

	result, err := s.ledger.Recent(ctx, sess.UserID, limit)
	if err != nil {
		return nil, err
	}
	if result.RecentExpensesCount == 0 {
		return "No expenses found.", nil
	}
	return result, nil
}

func (s *Server) handleTodayExpenses(ctx context.Context, sess session.Session, _ Args) (any, error) {
	result, err := s.ledger.Today(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if result.TotalExpenses == 0 {
		return "No expenses recorded for today.", nil
	}
	return result, nil
}

func (s *Server) handleMonthlyReport(ctx context.Context, sess session.Session, args Args) (any, error) {
	year, okYear := args.Int("year")
	month, okMonth := args.Int("month")
	if !okYear || !okMonth {
		return "Both year and month are required.", nil
	}

	report, err := s.ledger.Monthly(ctx, sess.UserID, year, month)
	if err != nil {
		return nil, err
	}
	if report.TotalExpenses == 0 {
		return fmt.Sprintf("No expenses found for %s.", report.Period), nil
	}
	return report, nil
}

func (s *Server) handleExpenseSummary(ctx context.Context, sess session.Session, _ Args) (any, error) {
	return s.ledger.Summary(ctx, sess.UserID)
}

func (s *Server) handleWeekSummary(ctx context.Context, sess session.Session, _ Args) (any, error) {
	report, err := s.ledger.Week(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if len(report.DailyBreakdown) == 0 {
		return fmt.Sprintf("No expenses found for this week (%s)", report.WeekPeriod), nil
	}
	return report, nil
}

func (s *Server) handleSpendingTrends(ctx context.Context, sess session.Session, _ Args) (any, error) {
	report, err := s.ledger.Trends(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return "Not enough data for trend analysis (need at least 30 days of expenses)", nil
	}
	return report, nil
}

func (s *Server) handleBudgetAlert(ctx context.Context, sess session.Session, args Args) (any, error) {
	category := args.String("category")
	budget, hasBudget := args.Float("monthly_budget")
	if category == "" || !hasBudget {
		return "Both category and monthly_budget are required.", nil
	}

	period := args.String("period")
	if period == "" {
		period = ledger.PeriodMonth
	}

	return s.ledger.CheckBudget(ctx, sess.UserID, category, budget, period)
}

func (s *Server) handleQuickAdd(ctx context.Context, sess session.Session, args Args) (any, error) {
	text := args.String("expense_text")
	if text == "" {
		return "expense_text is required.", nil
	}

	_, id, err := s.ledger.QuickAdd(ctx, sess.UserID, text)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Expense added for %s with ID: %s", sess.Username, id), nil
}

func notFoundMessage(id string) string {
	return fmt.Sprintf("No expense found with ID: %s for this user.", id)
}
