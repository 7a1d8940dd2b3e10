package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeAmount parses a price or amount typed by an operator and returns
// it with two decimal places. A comma decimal separator is accepted.
func NormalizeAmount(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: amount is required", ErrInvalidInput)
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, raw)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("%w: amount must be non-negative", ErrInvalidInput)
	}
	return d.StringFixed(2), nil
}
