// Package problem generates the per-session arithmetic challenges.
package problem

import (
	"math/rand"

	"math-challenge-service/internal/domain"
)

// Generate produces set.Count problems drawn from the set's operators and
// operand range. The same seed always yields the same sequence. Division
// operands are constructed so the quotient is an exact integer and the
// divisor is never zero.
func Generate(set domain.ProblemSet, seed int64) []domain.Problem {
	rnd := rand.New(rand.NewSource(seed))

	ops := set.Operators
	if len(ops) == 0 {
		ops = domain.DefaultOperators
	}
	lo, hi := set.MinOperand, set.MaxOperand
	if hi <= lo {
		lo, hi = 1, 10
	}

	problems := make([]domain.Problem, 0, set.Count)
	for i := 0; i < set.Count; i++ {
		op := ops[rnd.Intn(len(ops))]
		problems = append(problems, newProblem(rnd, op, lo, hi))
	}
	return problems
}

func newProblem(rnd *rand.Rand, op string, lo, hi int64) domain.Problem {
	a := operand(rnd, lo, hi)
	b := operand(rnd, lo, hi)

	switch op {
	case "+":
		return domain.Problem{A: a, B: b, Op: op, Answer: a + b}
	case "-":
		return domain.Problem{A: a, B: b, Op: op, Answer: a - b}
	case "*":
		return domain.Problem{A: a, B: b, Op: op, Answer: a * b}
	case "/":
		// Build the dividend from a nonzero divisor and a quotient in range,
		// so the answer is always an exact integer.
		for b == 0 {
			b = operand(rnd, lo, hi)
		}
		q := operand(rnd, lo, hi)
		return domain.Problem{A: b * q, B: b, Op: op, Answer: q}
	default:
		// Unknown operators fall back to addition rather than failing;
		// generation must not error for a valid count.
		return domain.Problem{A: a, B: b, Op: "+", Answer: a + b}
	}
}

func operand(rnd *rand.Rand, lo, hi int64) int64 {
	return lo + rnd.Int63n(hi-lo+1)
}
