package ledger

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"expensed/internal/core"
)

// amountPattern matches the first numeric token, optionally preceded by a
// currency symbol. The symbol is stripped along with the number.
var amountPattern = regexp.MustCompile(`[$€]?(\d+(?:\.\d+)?)`)

// categoryKeywords is the classifier's priority list: sets are tested in
// order against the lower-cased description and the first hit wins.
var categoryKeywords = []struct {
	Category string
	Keywords []string
}{
	{"Food", []string{"coffee", "lunch", "dinner", "food", "restaurant", "eat", "pizza", "burger"}},
	{"Transport", []string{"uber", "taxi", "gas", "fuel", "parking", "bus", "train", "transport"}},
	{"Entertainment", []string{"movie", "cinema", "game", "entertainment", "concert", "show"}},
	{"Groceries", []string{"grocery", "supermarket", "shopping", "store", "market"}},
	{"Bills", []string{"bill", "electric", "water", "internet", "phone", "utility"}},
	{"Health", []string{"medicine", "doctor", "hospital", "pharmacy", "health"}},
}

// DefaultCategory is assigned when no keyword set matches.
const DefaultCategory = "Other"

// ParsedExpense is the structured result of parsing free text.
type ParsedExpense struct {
	Amount      float64
	Description string
	Category    string
}

// ParseQuickAdd extracts amount, description, and category from text like
// "lunch with friends 15" or "uber to airport 25.50". It fails with
// core.ErrNoAmount when no numeric token is present.
func ParseQuickAdd(text string) (ParsedExpense, error) {
	loc := amountPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return ParsedExpense{}, core.ErrNoAmount
	}

	amount, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
	if err != nil {
		return ParsedExpense{}, core.ErrNoAmount
	}

	// Drop the matched token (currency symbol included) to get the description.
	description := strings.TrimSpace(text[:loc[0]] + " " + text[loc[1]:])
	description = strings.Join(strings.Fields(description), " ")
	if description == "" {
		description = fmt.Sprintf("Expense for $%.2f", amount)
	}

	return ParsedExpense{
		Amount:      amount,
		Description: description,
		Category:    ClassifyCategory(description),
	}, nil
}

// ClassifyCategory tests the description against the keyword sets in
// priority order.
func ClassifyCategory(description string) string {
	lower := strings.ToLower(description)
	for _, set := range categoryKeywords {
		for _, keyword := range set.Keywords {
			if strings.Contains(lower, keyword) {
				return set.Category
			}
		}
	}
	return DefaultCategory
}

// QuickAdd parses free text and records the expense at the current moment.
func (s *Service) QuickAdd(ctx context.Context, userID, text string) (ParsedExpense, string, error) {
	parsed, err := ParseQuickAdd(text)
	if err != nil {
		return ParsedExpense{}, "", err
	}

	id, err := s.AddAt(ctx, userID, parsed.Category, parsed.Amount, s.now(), parsed.Description)
	if err != nil {
		return ParsedExpense{}, "", err
	}
	return parsed, id, nil
}
