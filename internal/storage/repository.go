package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensed/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Repository is the SQLite-backed record store for users and expenses.
// Every expense operation takes the owner id explicitly; there is no way to
// read or write another user's records through this type.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser inserts a new user and returns it with its assigned id.
func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	u := core.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", u.ID, "username", u.Username)
	return u, nil
}

// GetUserByUsername returns sql.ErrNoRows (wrapped) when no user matches.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		username,
	)

	var u core.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// UserExists reports whether a username is already taken.
func (r *Repository) UserExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, username,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

// InsertExpense stores a new expense and returns its assigned id.
func (r *Repository) InsertExpense(ctx context.Context, e core.Expense) (string, error) {
	e.ID = uuid.NewString()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, category, amount, date, description) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Category, e.Amount, e.Date, e.Description,
	)
	if err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"category", e.Category,
		"amount", e.Amount)

	return e.ID, nil
}

// GetExpense returns core.ErrNotFound when no record matches the owner and id.
func (r *Repository) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, category, amount, date, description FROM expenses WHERE id = ? AND user_id = ?`,
		id, userID,
	)

	var e core.Expense
	err := row.Scan(&e.ID, &e.UserID, &e.Category, &e.Amount, &e.Date, &e.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ExpenseUpdate carries the optional fields of a partial update. Nil fields
// are left untouched.
type ExpenseUpdate struct {
	Category    *string
	Amount      *float64
	Date        *time.Time
	Description *string
}

// IsEmpty reports whether no field was supplied.
func (u ExpenseUpdate) IsEmpty() bool {
	return u.Category == nil && u.Amount == nil && u.Date == nil && u.Description == nil
}

// UpdateExpense applies the supplied fields to the owner's record. It returns
// false when no record matched.
func (r *Repository) UpdateExpense(ctx context.Context, userID, id string, upd ExpenseUpdate) (bool, error) {
	var (
		sets []string
		args []any
	)
	if upd.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *upd.Category)
	}
	if upd.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *upd.Amount)
	}
	if upd.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, *upd.Date)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if len(sets) == 0 {
		return false, nil
	}

	args = append(args, id, userID)
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("update expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteExpense removes the owner's record. It returns false when no record
// matched.
func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Expense deleted", "id", id)
	}
	return n > 0, nil
}

// ListExpenses returns all of the owner's expenses, newest first.
func (r *Repository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, user_id, category, amount, date, description FROM expenses WHERE user_id = ? ORDER BY date DESC`,
		userID,
	)
}

// ListByCategory returns the owner's expenses with an exact category match,
// newest first.
func (r *Repository) ListByCategory(ctx context.Context, userID, category string) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, user_id, category, amount, date, description FROM expenses WHERE user_id = ? AND category = ? ORDER BY date DESC`,
		userID, category,
	)
}

// Filter holds optional search criteria combined with logical AND.
type Filter struct {
	// Term matches as a case-insensitive substring of category OR description.
	Term      string
	MinAmount *float64
	MaxAmount *float64
	Since     *time.Time
}

// FindExpenses returns the owner's expenses matching the filter, newest first.
func (r *Repository) FindExpenses(ctx context.Context, userID string, f Filter) ([]core.Expense, error) {
	query := `SELECT id, user_id, category, amount, date, description FROM expenses WHERE user_id = ?`
	args := []any{userID}

	if f.Term != "" {
		pattern := "%" + strings.ToLower(f.Term) + "%"
		query += ` AND (LOWER(category) LIKE ? OR LOWER(description) LIKE ?)`
		args = append(args, pattern, pattern)
	}
	if f.MinAmount != nil {
		query += ` AND amount >= ?`
		args = append(args, *f.MinAmount)
	}
	if f.MaxAmount != nil {
		query += ` AND amount <= ?`
		args = append(args, *f.MaxAmount)
	}
	if f.Since != nil {
		query += ` AND date >= ?`
		args = append(args, *f.Since)
	}
	query += ` ORDER BY date DESC`

	return r.queryExpenses(ctx, query, args...)
}

// ListBetween returns the owner's expenses with start <= date < end, newest first.
func (r *Repository) ListBetween(ctx context.Context, userID string, start, end time.Time) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, user_id, category, amount, date, description FROM expenses WHERE user_id = ? AND date >= ? AND date < ? ORDER BY date DESC`,
		userID, start, end,
	)
}

// ListRecent returns the owner's most recent expenses, newest first.
func (r *Repository) ListRecent(ctx context.Context, userID string, limit int) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, user_id, category, amount, date, description FROM expenses WHERE user_id = ? ORDER BY date DESC LIMIT ?`,
		userID, limit,
	)
}

// CategoryTotal is one row of the per-category aggregate.
type CategoryTotal struct {
	Category string
	Total    float64
	Count    int
}

// CategoryTotals groups all of the owner's expenses by category, largest
// total first.
func (r *Repository) CategoryTotals(ctx context.Context, userID string) ([]CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount), COUNT(*) FROM expenses WHERE user_id = ? GROUP BY category ORDER BY SUM(amount) DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// CountExpenses returns the number of expenses the owner has.
func (r *Repository) CountExpenses(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// SumCategorySince returns the total and count of the owner's expenses in a
// category with date >= since.
func (r *Repository) SumCategorySince(ctx context.Context, userID, category string, since time.Time) (float64, int, error) {
	var (
		total float64
		count int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM expenses WHERE user_id = ? AND category = ? AND date >= ?`,
		userID, category, since,
	).Scan(&total, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("sum category since: %w", err)
	}
	return total, count, nil
}

func (r *Repository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &e.Amount, &e.Date, &e.Description); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}
