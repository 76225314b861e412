package review

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Tolerance is the largest absolute difference between the reviewed total and
// the expected amount that still counts as a match.
var Tolerance = decimal.New(1, -2)

// AmountExponentLimit bounds the decimal exponent of any amount. Arithmetic on
// a decimal grows with its exponent, so values outside the range are rejected.
const AmountExponentLimit = 15

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ParseAmount reads the leading number of an amount field. Empty,
// unparseable or out of range text is zero.
func ParseAmount(text string) decimal.Decimal {
	match := numericPrefix.FindString(strings.TrimSpace(text))
	if match == "" {
		return decimal.Zero
	}
	match = strings.TrimPrefix(match, "+")
	match = strings.TrimSuffix(match, ".")
	match = strings.NewReplacer(".e", "e", ".E", "e").Replace(match)

	amount, err := decimal.NewFromString(match)
	if err != nil || !InRange(amount) {
		return decimal.Zero
	}
	return amount
}

// InRange reports whether an amount's exponent is within AmountExponentLimit.
func InRange(amount decimal.Decimal) bool {
	exp := amount.Exponent()
	return exp >= -AmountExponentLimit && exp <= AmountExponentLimit
}

// Total sums the parsed value of every amount field.
func Total(texts []string) decimal.Decimal {
	total := decimal.Zero
	for _, text := range texts {
		total = total.Add(ParseAmount(text))
	}
	return total
}

type Status string

const (
	// StatusUnchecked means no expected amount is set, so no warning applies.
	StatusUnchecked Status = "unchecked"
	StatusMatch     Status = "match"
	StatusMismatch  Status = "mismatch"
)

// Evaluation is the comparison of the reviewed total with the expected amount.
type Evaluation struct {
	Total      decimal.Decimal
	Expected   decimal.Decimal
	Difference decimal.Decimal
	Status     Status
}

// Evaluate compares a total against the expected amount.
func Evaluate(total, expected decimal.Decimal) Evaluation {
	ev := Evaluation{
		Total:      total,
		Expected:   expected,
		Difference: total.Sub(expected).Abs(),
		Status:     StatusUnchecked,
	}
	if !expected.IsPositive() {
		return ev
	}
	if ev.Difference.GreaterThan(Tolerance) {
		ev.Status = StatusMismatch
	} else {
		ev.Status = StatusMatch
	}
	return ev
}

func (e Evaluation) WarningVisible() bool {
	return e.Status == StatusMismatch
}

// StyleClass is the styling applied to the total. Unchecked totals keep
// whatever styling they had.
func (e Evaluation) StyleClass() string {
	switch e.Status {
	case StatusMatch:
		return "total-match"
	case StatusMismatch:
		return "total-mismatch"
	default:
		return ""
	}
}

func (e Evaluation) Mismatch() Mismatch {
	return Mismatch{Total: e.Total, Expected: e.Expected, Difference: e.Difference}
}

func (e Evaluation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Total          string `json:"total"`
		Expected       string `json:"expected"`
		Difference     string `json:"difference"`
		Status         Status `json:"status"`
		WarningVisible bool   `json:"warning_visible"`
		StyleClass     string `json:"style_class,omitempty"`
	}{
		Total:          e.Total.StringFixed(2),
		Expected:       e.Expected.StringFixed(2),
		Difference:     e.Difference.StringFixed(2),
		Status:         e.Status,
		WarningVisible: e.WarningVisible(),
		StyleClass:     e.StyleClass(),
	})
}

// Mismatch holds the figures shown when asking the reviewer to confirm a
// submission whose total does not match.
type Mismatch struct {
	Total      decimal.Decimal
	Expected   decimal.Decimal
	Difference decimal.Decimal
}

func (m Mismatch) Message() string {
	return fmt.Sprintf(
		"Warning: The reviewed total ($%s) does not match the expected amount ($%s).\n\nDifference: $%s\n\nAre you sure you want to submit?",
		m.Total.StringFixed(2), m.Expected.StringFixed(2), m.Difference.StringFixed(2),
	)
}

func (m Mismatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Total      string `json:"total"`
		Expected   string `json:"expected"`
		Difference string `json:"difference"`
		Message    string `json:"message"`
	}{
		Total:      m.Total.StringFixed(2),
		Expected:   m.Expected.StringFixed(2),
		Difference: m.Difference.StringFixed(2),
		Message:    m.Message(),
	})
}
