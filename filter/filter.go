// Package filter provides expr-based filtering of transaction listings.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/kwachira/pesaflow/payments"
)

// Filter is a compiled transaction filter expression.
type Filter struct {
	program    *vm.Program
	expression string
}

// Compile compiles a filter expression. Expressions evaluate to a
// boolean over the fields of a single transaction, e.g.
//
//	Amount > 1000 && Status == "completed"
//	Type == "payout" && daysSince(Created) < 7
func Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("empty filter expression")
	}

	program, err := expr.Compile(expression,
		expr.Env(helperFunctions()),
		expr.AllowUndefinedVariables(), // transaction fields arrive at run time
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter %q: %w", expression, err)
	}

	return &Filter{
		program:    program,
		expression: expression,
	}, nil
}

// String returns the original expression.
func (f *Filter) String() string {
	return f.expression
}

// Match evaluates the filter against a single transaction.
func (f *Filter) Match(tx payments.Transaction) (bool, error) {
	env := helperFunctions()
	env["ID"] = tx.ID
	env["Type"] = tx.Type
	env["Amount"] = tx.Amount
	env["PhoneNumber"] = tx.PhoneNumber
	env["Reference"] = tx.Reference
	env["Status"] = tx.Status
	env["Created"] = tx.Created

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter %q: %w", f.expression, err)
	}

	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q did not evaluate to a boolean", f.expression)
	}
	return matched, nil
}

// Apply returns the transactions matching the filter, preserving order.
func (f *Filter) Apply(txs []payments.Transaction) ([]payments.Transaction, error) {
	var matched []payments.Transaction
	for _, tx := range txs {
		ok, err := f.Match(tx)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, tx)
		}
	}
	return matched, nil
}

// helperFunctions defines the helpers available inside expressions.
func helperFunctions() map[string]any {
	return map[string]any{
		// Date helpers
		"daysSince": func(t time.Time) int {
			return int(time.Since(t).Hours() / 24)
		},
		"daysAgo": func(days int) time.Time {
			return time.Now().AddDate(0, 0, -days)
		},
		"parseDate": func(dateStr string) time.Time {
			t, _ := time.Parse("2006-01-02", dateStr)
			return t
		},
		// String helpers
		"contains": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"startsWith": func(str, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		// Current time
		"now": time.Now,
	}
}
