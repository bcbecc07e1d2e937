package events

import (
	"encoding/json"
	"time"
)

// Event types published on the expense lifecycle.
const (
	TypeExpenseCreated = "expense.created"
	TypeExpenseUpdated = "expense.updated"
	TypeExpenseDeleted = "expense.deleted"
)

// ExpenseEvent is a lightweight lifecycle message. It carries only the ids;
// consumers fetch the full record if they need it.
type ExpenseEvent struct {
	Type      string    `json:"type"`
	ExpenseID string    `json:"expense_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEvent creates a lifecycle event for the given expense
func NewExpenseEvent(eventType, expenseID, userID string) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      eventType,
		ExpenseID: expenseID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON creates an event from JSON bytes
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var e ExpenseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
