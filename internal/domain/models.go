package domain

import "fmt"

// Problem is one arithmetic challenge with its precomputed answer.
// Problems are immutable once generated.
type Problem struct {
	A      int64
	B      int64
	Op     string
	Answer int64
}

// Prompt renders the human-readable arithmetic expression, e.g. "2 + 3".
func (p Problem) Prompt() string {
	return fmt.Sprintf("%d %s %d", p.A, p.Op, p.B)
}

// ProblemSet is a template describing how session problems are generated:
// which operators to draw from, the operand range, and how many problems a
// session gets. Sets are content and can be loaded from a backing store;
// the problems themselves are regenerated fresh for every connection.
type ProblemSet struct {
	ID         string   `json:"id"`
	Operators  []string `json:"operators"`
	MinOperand int64    `json:"minOperand"`
	MaxOperand int64    `json:"maxOperand"`
	Count      int      `json:"count"`
}

// DefaultOperators is used when a ProblemSet leaves Operators empty.
var DefaultOperators = []string{"+", "-", "*", "/"}

// Flag is the unique completion token issued after a fully solved session.
type Flag string
