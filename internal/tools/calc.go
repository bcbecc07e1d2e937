package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/PaesslerAG/gval"

	"expensed/internal/session"
)

// calcLang supports arithmetic plus a few helpers handy for splitting
// bills and rounding shares.
var calcLang = gval.NewLanguage(
	gval.Arithmetic(),
	gval.Function("abs", math.Abs),
	gval.Function("round", math.Round),
	gval.Function("min", math.Min),
	gval.Function("max", math.Max),
)

func (s *Server) handleCalculator(ctx context.Context, _ session.Session, args Args) (any, error) {
	expression := args.String("expression")
	if expression == "" {
		return "expression is required.", nil
	}

	value, err := calcLang.Evaluate(expression, nil)
	if err != nil {
		return fmt.Sprintf("Could not evaluate expression: %v", err), nil
	}
	return value, nil
}
