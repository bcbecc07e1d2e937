package core

import (
	"errors"
	"time"
)

type (
	// User is an account able to own expenses. The password hash is never
	// serialized through the tool boundary.
	User struct {
		ID           string    `json:"id"`
		Username     string    `json:"username"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"`
	}

	// Expense is a single ledger record. IDs are opaque, store-assigned and
	// immutable. UserID scopes every read and write path and is never exposed
	// or accepted from callers.
	Expense struct {
		ID          string    `json:"id"`
		UserID      string    `json:"-"`
		Category    string    `json:"category"`
		Amount      float64   `json:"amount"`
		Date        time.Time `json:"-"`
		Description string    `json:"description"`
	}
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrDuplicateUser      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidDate        = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidPeriod      = errors.New("invalid period, use 'week', 'month', or 'year'")
	ErrInvalidRange       = errors.New("limit must be between 1 and 20")
	ErrNotFound           = errors.New("expense not found")
	ErrNoAmount           = errors.New("no amount found in text")
)

// DateFormat is the calendar date layout for request and response fields.
const DateFormat = "2006-01-02"

// DateTimeFormat is used for recency-sensitive listings.
const DateTimeFormat = "2006-01-02 15:04"

// ParseDate parses a YYYY-MM-DD string to local midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateFormat, s, time.Local)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
